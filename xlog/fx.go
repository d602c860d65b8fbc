package xlog

import (
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FxXLogger prints the fx container events. Failed events are errors,
// the app lifecycle is info and the graph building is debug.
type FxXLogger struct {
	logger XLogger
}

type fxEntry struct {
	lvl    zapcore.Level
	msg    string
	err    error
	fields []zap.Field
}

func fxModule(name string) zap.Field {
	if name == "" {
		return zap.Skip()
	}
	return zap.String("module", name)
}

func fxHook(function, caller string) []zap.Field {
	return []zap.Field{zap.String("function", function), zap.String("caller", caller)}
}

func fxEntryOf(event fxevent.Event) (fxEntry, bool) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		return fxEntry{lvl: zapcore.DebugLevel, msg: "fx hook starting", fields: fxHook(e.FunctionName, e.CallerName)}, true
	case *fxevent.OnStartExecuted:
		return fxEntry{
			lvl:    zapcore.DebugLevel,
			msg:    "fx hook started",
			err:    e.Err,
			fields: append(fxHook(e.FunctionName, e.CallerName), zap.Duration("runtime", e.Runtime)),
		}, true
	case *fxevent.OnStopExecuting:
		return fxEntry{lvl: zapcore.DebugLevel, msg: "fx hook stopping", fields: fxHook(e.FunctionName, e.CallerName)}, true
	case *fxevent.OnStopExecuted:
		return fxEntry{
			lvl:    zapcore.InfoLevel,
			msg:    "fx hook stopped",
			err:    e.Err,
			fields: append(fxHook(e.FunctionName, e.CallerName), zap.Duration("runtime", e.Runtime)),
		}, true
	case *fxevent.Supplied:
		return fxEntry{
			lvl:    zapcore.DebugLevel,
			msg:    "fx supplied",
			err:    e.Err,
			fields: []zap.Field{zap.String("type", e.TypeName), fxModule(e.ModuleName)},
		}, true
	case *fxevent.Provided:
		return fxEntry{
			lvl: zapcore.DebugLevel,
			msg: "fx provided",
			err: e.Err,
			fields: []zap.Field{
				zap.Strings("types", e.OutputTypeNames),
				zap.String("constructor", e.ConstructorName),
				zap.Bool("private", e.Private),
				fxModule(e.ModuleName),
			},
		}, true
	case *fxevent.Replaced:
		return fxEntry{
			lvl:    zapcore.DebugLevel,
			msg:    "fx replaced",
			err:    e.Err,
			fields: []zap.Field{zap.Strings("types", e.OutputTypeNames), fxModule(e.ModuleName)},
		}, true
	case *fxevent.Decorated:
		return fxEntry{
			lvl: zapcore.DebugLevel,
			msg: "fx decorated",
			err: e.Err,
			fields: []zap.Field{
				zap.Strings("types", e.OutputTypeNames),
				zap.String("decorator", e.DecoratorName),
				fxModule(e.ModuleName),
			},
		}, true
	case *fxevent.Invoking:
		return fxEntry{
			lvl:    zapcore.DebugLevel,
			msg:    "fx invoking",
			fields: []zap.Field{zap.String("function", e.FunctionName), fxModule(e.ModuleName)},
		}, true
	case *fxevent.Invoked:
		return fxEntry{
			lvl:    zapcore.DebugLevel,
			msg:    "fx invoked",
			err:    e.Err,
			fields: []zap.Field{zap.String("function", e.FunctionName), zap.String("trace", e.Trace)},
		}, true
	case *fxevent.Stopping:
		return fxEntry{lvl: zapcore.InfoLevel, msg: "fx stopping", fields: []zap.Field{zap.Stringer("signal", e.Signal)}}, true
	case *fxevent.Stopped:
		return fxEntry{lvl: zapcore.InfoLevel, msg: "fx stopped", err: e.Err}, true
	case *fxevent.RollingBack:
		return fxEntry{lvl: zapcore.ErrorLevel, msg: "fx rolling back", err: e.StartErr}, true
	case *fxevent.RolledBack:
		return fxEntry{lvl: zapcore.InfoLevel, msg: "fx rolled back", err: e.Err}, true
	case *fxevent.Started:
		return fxEntry{lvl: zapcore.InfoLevel, msg: "fx started", err: e.Err}, true
	case *fxevent.LoggerInitialized:
		return fxEntry{
			lvl:    zapcore.DebugLevel,
			msg:    "fx logger initialized",
			err:    e.Err,
			fields: []zap.Field{zap.String("constructor", e.ConstructorName)},
		}, true
	default:
	}
	return fxEntry{}, false
}

func (l *FxXLogger) LogEvent(event fxevent.Event) {
	if l == nil || l.logger == nil {
		return
	}
	entry, ok := fxEntryOf(event)
	if !ok {
		return
	}
	if entry.err != nil {
		l.logger.Error(entry.err, entry.msg+" failed", entry.fields...)
		return
	}
	if entry.lvl == zapcore.InfoLevel {
		l.logger.Info(entry.msg, entry.fields...)
		return
	}
	l.logger.Debug(entry.msg, entry.fields...)
}

func NewFxXLogger(logger XLogger) *FxXLogger {
	return &FxXLogger{logger: logger.Named("Fx")}
}
