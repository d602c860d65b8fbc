package checker

import (
	"context"
	"errors"
	"fmt"
	randv2 "math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xtree/lib/tree"
	"github.com/benz9527/xtree/xlog"
)

// ContextKeyRound carries the round index into the round logs.
const ContextKeyRound = "round"

var ErrMismatch = errors.New("[checker] tree mismatches the reference")

// Report sums up all the finished rounds.
type Report struct {
	Rounds  int
	Ops     int64
	Inserts int64
	Removes int64
	Misses  int64
	Clones  int64
	// MaxHeight is the highest tree seen at the end of a round.
	MaxHeight int
	// Failed lists the failed round indexes in ascending order.
	Failed  []int
	Elapsed time.Duration
}

func (r *Report) merge(res *roundResult) {
	r.Rounds++
	r.Ops += res.ops
	r.Inserts += res.inserts
	r.Removes += res.removes
	r.Misses += res.misses
	r.Clones += res.clones
	r.MaxHeight = max(r.MaxHeight, res.height)
}

type roundResult struct {
	ops, inserts, removes, misses, clones int64
	height                                int
}

// Checker replays seeded random workloads on independent trees, one tree
// per round, and validates every tree rule after every operation.
type Checker struct {
	opt          *checkerOption
	logger       xlog.XLogger
	pool         *ants.Pool
	undoMaxProcs func()
}

func New(opts ...Option) (*Checker, error) {
	opt := defaultCheckerOption()
	var err error
	for _, o := range opts {
		if o == nil {
			continue
		}
		err = multierr.Append(err, o(opt))
	}
	if err != nil {
		return nil, err
	}

	c := &Checker{
		opt:          opt,
		logger:       opt.getLogger().Named("checker"),
		undoMaxProcs: func() {},
	}
	if opt.workers <= 0 {
		// Follow the container cpu quota before sizing the pool.
		undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			c.logger.Logf(zapcore.DebugLevel, format, args...)
		}))
		if err != nil {
			c.logger.Warn("failed to adjust GOMAXPROCS", zap.Error(err))
		} else {
			c.undoMaxProcs = undo
		}
	}

	if c.pool, err = ants.NewPool(
		opt.getWorkers(),
		ants.WithPreAlloc(true),
		ants.WithLogger(xlog.NewAntsXLogger(opt.getLogger())),
	); err != nil {
		c.undoMaxProcs()
		return nil, err
	}
	return c, nil
}

func (c *Checker) Workers() int {
	return c.pool.Cap()
}

// Release frees the pool and restores the GOMAXPROCS, call it after Run returns.
func (c *Checker) Release() {
	c.pool.Release()
	c.undoMaxProcs()
}

// Run submits all the rounds into the pool and waits for them.
// The returned error combines every failed round.
func (c *Checker) Run(ctx context.Context) (*Report, error) {
	var (
		wg     sync.WaitGroup
		lock   sync.Mutex
		errs   error
		report = &Report{}
		start  = time.Now()
	)
	c.logger.InfoContext(ctx, "checker started",
		zap.Int("rounds", c.opt.getRounds()),
		zap.Int("ops", c.opt.getOps()),
		zap.Int("workers", c.Workers()),
		zap.Uint64("seed", c.opt.seed),
	)

	for round := 0; round < c.opt.getRounds(); round++ {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		wg.Add(1)
		if err := c.pool.Submit(func() {
			defer wg.Done()
			res, err := c.runRound(ctx, round)

			lock.Lock()
			defer lock.Unlock()
			report.merge(res)
			if err != nil {
				report.Failed = append(report.Failed, round)
				errs = multierr.Append(errs, err)
			}
		}); err != nil {
			wg.Done()
			errs = multierr.Append(errs, fmt.Errorf("failed to submit round %d: %w", round, err))
			break
		}
	}
	wg.Wait()

	slices.Sort(report.Failed)
	report.Elapsed = time.Since(start)
	if errs != nil {
		c.logger.ErrorContext(ctx, errs, "checker failed", zap.Ints("failedRounds", report.Failed))
	} else {
		c.logger.InfoContext(ctx, "checker passed",
			zap.Int("rounds", report.Rounds),
			zap.Int64("ops", report.Ops),
			zap.Int("maxHeight", report.MaxHeight),
			zap.Duration("elapsed", report.Elapsed),
		)
	}
	return report, errs
}

func (c *Checker) newTree(round int) (tree.RBTree[int64, int64], bool) {
	desc := round%4 >= 2
	opts := make([]tree.RBTreeOpt[int64, int64], 0, 3)
	if desc {
		opts = append(opts, tree.WithRBTreeDesc[int64, int64]())
	}
	if round%2 == 1 {
		opts = append(opts, tree.WithRBTreeRemoveBorrowSucc[int64, int64]())
	}
	if c.opt.stats {
		opts = append(opts, tree.WithRBTreeStats[int64, int64]("checker"))
	}
	return tree.NewRBTree[int64, int64](opts...), desc
}

// runRound never panics, the tree assertion faults fail the round instead.
func (c *Checker) runRound(ctx context.Context, round int) (res *roundResult, err error) {
	res = &roundResult{}
	ctx = context.WithValue(ctx, xlog.ContextKey(ContextKeyRound), round)
	seed := c.opt.seed + uint64(round)
	rng := randv2.New(randv2.NewPCG(seed, uint64(round)))
	t, desc := c.newTree(round)
	ref := newReference(desc)
	defer t.Release()

	op := 0
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("round %d op %d (seed %d) panic: %v", round, op, seed, p)
		}
		if err != nil {
			c.logger.ErrorContext(ctx, err, "round failed", zap.Uint64("seed", seed), zap.Int("op", op))
		}
	}()

	keySpace := c.opt.getKeySpace()
	for ; op < c.opt.getOps(); op++ {
		if op&63 == 0 {
			if err = ctx.Err(); err != nil {
				return res, err
			}
		}
		res.ops++

		switch p := rng.IntN(100); {
		case p < 55 || ref.len() <= 0:
			key := rng.Int64N(keySpace)
			t.Insert(key, int64(op))
			ref.insert(key)
			res.inserts++
		case p < 80:
			key := ref.at(rng.IntN(ref.len()))
			if _, ok := t.Remove(key); !ok {
				return res, fmt.Errorf("%w: round %d op %d (seed %d) present key %d not removed",
					ErrMismatch, round, op, seed, key)
			}
			ref.remove(key)
			res.removes++
		case p < 92:
			key := rng.Int64N(keySpace)
			node, ok := t.Remove(key)
			if ok != ref.contains(key) || (ok && node.Key() != key) {
				return res, fmt.Errorf("%w: round %d op %d (seed %d) remove %d returns %v",
					ErrMismatch, round, op, seed, key, ok)
			}
			if ok {
				ref.remove(key)
				res.removes++
			} else {
				res.misses++
			}
		case p < 97:
			node, ok := t.RemoveMin()
			if !ok || node.Key() != ref.first() {
				return res, fmt.Errorf("%w: round %d op %d (seed %d) remove min", ErrMismatch, round, op, seed)
			}
			ref.remove(node.Key())
			res.removes++
		default:
			if err = checkClone(t, rng.Int64N(keySpace)); err != nil {
				return res, fmt.Errorf("round %d op %d (seed %d): %w", round, op, seed, err)
			}
			res.clones++
		}

		if err = tree.Validate(t); err != nil {
			return res, fmt.Errorf("round %d op %d (seed %d): %w", round, op, seed, err)
		}
		if t.Len() != int64(ref.len()) {
			return res, fmt.Errorf("%w: round %d op %d (seed %d) len %d, expected %d",
				ErrMismatch, round, op, seed, t.Len(), ref.len())
		}
	}

	if keys := inorderKeys(t); !slices.Equal(keys, ref.ordered()) {
		return res, fmt.Errorf("%w: round %d (seed %d) inorder keys differ", ErrMismatch, round, seed)
	}
	res.height = t.Height()
	c.logger.DebugContext(ctx, "round passed",
		zap.Int64("len", t.Len()),
		zap.Int("height", res.height),
		zap.Int64("clones", res.clones),
	)
	return res, nil
}

// checkClone mutates a clone and expects the origin untouched.
func checkClone(t tree.RBTree[int64, int64], key int64) error {
	before := inorderKeys(t)
	clone := t.Clone()
	defer clone.Release()

	if !slices.Equal(before, inorderKeys(clone)) {
		return fmt.Errorf("%w: clone keys differ", ErrMismatch)
	}
	clone.Insert(key, -1)
	if node, ok := clone.RemoveMin(); ok {
		clone.Insert(node.Key(), node.Val())
	}
	clone.Remove(key)
	if err := tree.Validate(clone); err != nil {
		return fmt.Errorf("clone: %w", err)
	}
	if !slices.Equal(before, inorderKeys(t)) {
		return fmt.Errorf("%w: origin changed by its clone", ErrMismatch)
	}
	return nil
}

func inorderKeys(t tree.RBTree[int64, int64]) []int64 {
	keys := make([]int64, 0, t.Len())
	for node := range t.Traverse(tree.InOrder) {
		keys = append(keys, node.Key())
	}
	return keys
}

// reference is the sorted multiset the tree is compared with.
type reference struct {
	keys []int64
	desc bool
}

func newReference(desc bool) *reference {
	return &reference{keys: make([]int64, 0, 256), desc: desc}
}

func (r *reference) len() int {
	return len(r.keys)
}

func (r *reference) at(i int) int64 {
	return r.keys[i]
}

func (r *reference) contains(key int64) bool {
	_, found := slices.BinarySearch(r.keys, key)
	return found
}

func (r *reference) insert(key int64) {
	idx, _ := slices.BinarySearch(r.keys, key)
	r.keys = slices.Insert(r.keys, idx, key)
}

func (r *reference) remove(key int64) {
	if idx, found := slices.BinarySearch(r.keys, key); found {
		r.keys = slices.Delete(r.keys, idx, idx+1)
	}
}

// first is the leftmost key in the tree order.
func (r *reference) first() int64 {
	if r.desc {
		return r.keys[len(r.keys)-1]
	}
	return r.keys[0]
}

func (r *reference) ordered() []int64 {
	if r.desc {
		return lo.Reverse(slices.Clone(r.keys))
	}
	return slices.Clone(r.keys)
}
