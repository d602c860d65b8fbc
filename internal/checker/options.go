package checker

import (
	"errors"
	"runtime"

	"github.com/benz9527/xtree/xlog"
)

var (
	ErrInvalidRounds   = errors.New("[checker] rounds must be positive")
	ErrInvalidOps      = errors.New("[checker] ops per round must be positive")
	ErrInvalidKeySpace = errors.New("[checker] key space must be positive")
)

type checkerOption struct {
	rounds   int
	ops      int
	workers  int
	seed     uint64
	keySpace int64
	stats    bool
	logger   xlog.XLogger
}

func (opt *checkerOption) getRounds() int {
	return opt.rounds
}

func (opt *checkerOption) getOps() int {
	return opt.ops
}

// A non-positive workers follows the GOMAXPROCS.
func (opt *checkerOption) getWorkers() int {
	if opt.workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return opt.workers
}

func (opt *checkerOption) getKeySpace() int64 {
	return opt.keySpace
}

func (opt *checkerOption) getLogger() xlog.XLogger {
	if opt.logger == nil {
		return xlog.NopXLogger()
	}
	return opt.logger
}

func defaultCheckerOption() *checkerOption {
	return &checkerOption{
		rounds:   16,
		ops:      1024,
		seed:     1,
		keySpace: 512,
	}
}

type Option func(*checkerOption) error

func WithRounds(rounds int) Option {
	return func(opt *checkerOption) error {
		if rounds <= 0 {
			return ErrInvalidRounds
		}
		opt.rounds = rounds
		return nil
	}
}

func WithOps(ops int) Option {
	return func(opt *checkerOption) error {
		if ops <= 0 {
			return ErrInvalidOps
		}
		opt.ops = ops
		return nil
	}
}

func WithWorkers(workers int) Option {
	return func(opt *checkerOption) error {
		opt.workers = workers
		return nil
	}
}

// WithSeed makes the whole run reproducible, round i is seeded by seed+i.
func WithSeed(seed uint64) Option {
	return func(opt *checkerOption) error {
		opt.seed = seed
		return nil
	}
}

// WithKeySpace bounds the random keys into [0, keySpace). A small key
// space produces many duplicates and removals of present keys.
func WithKeySpace(keySpace int64) Option {
	return func(opt *checkerOption) error {
		if keySpace <= 0 {
			return ErrInvalidKeySpace
		}
		opt.keySpace = keySpace
		return nil
	}
}

// WithStats records the tree otel instruments of every round.
func WithStats() Option {
	return func(opt *checkerOption) error {
		opt.stats = true
		return nil
	}
}

func WithLogger(logger xlog.XLogger) Option {
	return func(opt *checkerOption) error {
		opt.logger = logger
		return nil
	}
}
