package xlog

import (
	"errors"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	_ xLogCore     = (*encodedCore)(nil)
	_ zapcore.Core = (*teeCore)(nil)
)

var errEmptyCoreConfig = errors.New("[XLogger] logger core config is empty")

func baseEncoderCfg() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "lvl",
		TimeKey:       "ts",
		CallerKey:     "callAt",
		EncodeCaller:  zapcore.ShortCallerEncoder,
		FunctionKey:   "fn",
		NameKey:       "component",
		EncodeName:    zapcore.FullNameEncoder,
		StacktraceKey: coreKeyIgnored,
	}
}

// componentEncoderCfg drops the caller, the component name tells
// where the entry comes from.
func componentEncoderCfg() *zapcore.EncoderConfig {
	cfg := baseEncoderCfg()
	cfg.CallerKey = coreKeyIgnored
	cfg.FunctionKey = coreKeyIgnored
	return &cfg
}

// encodedCore keeps its encoding parts, so it can be rebuilt with
// another encoder config on the same writer and level.
type encodedCore struct {
	zapcore.Core
	lvlEnc zapcore.LevelEncoder
	tsEnc  zapcore.TimeEncoder
	ws     zapcore.WriteSyncer
	enc    func(cfg zapcore.EncoderConfig) zapcore.Encoder
}

func newEncodedCore(
	cfg zapcore.EncoderConfig,
	lvlEnabler zapcore.LevelEnabler,
	lvlEnc zapcore.LevelEncoder,
	tsEnc zapcore.TimeEncoder,
	ws zapcore.WriteSyncer,
	enc func(cfg zapcore.EncoderConfig) zapcore.Encoder,
) *encodedCore {
	cfg.EncodeLevel = lvlEnc
	cfg.EncodeTime = tsEnc
	return &encodedCore{
		Core:   zapcore.NewCore(enc(cfg), ws, lvlEnabler),
		lvlEnc: lvlEnc,
		tsEnc:  tsEnc,
		ws:     ws,
		enc:    enc,
	}
}

func (c *encodedCore) timeEncoder() zapcore.TimeEncoder                            { return c.tsEnc }
func (c *encodedCore) levelEncoder() zapcore.LevelEncoder                          { return c.lvlEnc }
func (c *encodedCore) writeSyncer() zapcore.WriteSyncer                            { return c.ws }
func (c *encodedCore) outEncoder() func(cfg zapcore.EncoderConfig) zapcore.Encoder { return c.enc }

// WrapCore rebuilds the core with another encoder config, keeping
// its writer, encoders and level.
func WrapCore(core xLogCore, cfg *zapcore.EncoderConfig) (xLogCore, error) {
	if cfg == nil {
		return nil, errEmptyCoreConfig
	}
	return newEncodedCore(
		*cfg,
		zap.LevelEnablerFunc(core.Enabled),
		core.levelEncoder(),
		core.timeEncoder(),
		core.writeSyncer(),
		core.outEncoder(),
	), nil
}

func newCoreTo(ws zapcore.WriteSyncer) XLogCoreConstructor {
	return func(
		lvlEnabler zapcore.LevelEnabler,
		encoder logEncoderType,
		lvlEnc zapcore.LevelEncoder,
		tsEnc zapcore.TimeEncoder,
	) xLogCore {
		return newEncodedCore(baseEncoderCfg(), lvlEnabler, lvlEnc, tsEnc, ws, getEncoderByType(encoder))
	}
}

func newConsoleCore(writer logOutWriterType) XLogCoreConstructor {
	return newCoreTo(getOutWriterByType(writer))
}

func newWriterCore(w io.Writer) XLogCoreConstructor {
	return newCoreTo(getOutWriter(w))
}

// teeCore writes every entry into all of its cores. It has no encoder
// of its own, rewrap rebuilds the members one by one.
type teeCore struct {
	zapcore.Core
	cores []xLogCore
}

func newTeeCore(cores []xLogCore) zapcore.Core {
	if len(cores) == 1 {
		return cores[0]
	}
	members := make([]zapcore.Core, 0, len(cores))
	for _, core := range cores {
		members = append(members, core)
	}
	return &teeCore{Core: zapcore.NewTee(members...), cores: cores}
}

func (tc *teeCore) rewrap(cfg *zapcore.EncoderConfig) (zapcore.Core, error) {
	var err error
	cores := make([]xLogCore, 0, len(tc.cores))
	for _, core := range tc.cores {
		wrapped, wrapErr := WrapCore(core, cfg)
		if wrapErr != nil {
			err = multierr.Append(err, wrapErr)
			continue
		}
		cores = append(cores, wrapped)
	}
	if err != nil {
		return nil, err
	}
	return newTeeCore(cores), nil
}
