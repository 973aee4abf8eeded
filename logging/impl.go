package logging

import (
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type impl struct {
	name string
	// parent is nil for a root logger.
	parent *impl
	// level only applies once set; until then the parent's level does.
	level    zap.AtomicLevel
	levelSet atomic.Bool
	core     zapcore.Core
	sugar    *zap.SugaredLogger
}

// levelCore gates an underlying core on a per-logger level, so that sibling subloggers sharing
// one output can be tuned independently.
type levelCore struct {
	zapcore.Core
	logger *impl
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return c.logger.effectiveLevel().Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *levelCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.logger.effectiveLevel().Enabled(entry.Level) {
		return checked
	}
	return c.Core.Check(entry, checked)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), logger: c.logger}
}

func newImpl(name string, level Level, core zapcore.Core) *impl {
	imp := &impl{name: name, level: zap.NewAtomicLevelAt(level.AsZap()), core: core}
	imp.levelSet.Store(true)
	imp.sugar = imp.build()
	return imp
}

func (imp *impl) build() *zap.SugaredLogger {
	logger := zap.New(&levelCore{Core: imp.core, logger: imp}, zap.AddCaller(), zap.AddCallerSkip(1))
	if imp.name != "" {
		logger = logger.Named(imp.name)
	}
	return logger.Sugar()
}

func (imp *impl) effectiveLevel() zap.AtomicLevel {
	for l := imp; ; l = l.parent {
		if l.parent == nil || l.levelSet.Load() {
			return l.level
		}
	}
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	sub := &impl{name: newName, parent: imp, level: zap.NewAtomicLevelAt(imp.effectiveLevel().Level()), core: imp.core}
	sub.sugar = sub.build()
	return sub
}

// SetLevel fixes this logger's level. Subloggers that never had their own level set follow it.
func (imp *impl) SetLevel(level Level) {
	imp.level.SetLevel(level.AsZap())
	imp.levelSet.Store(true)
}

func (imp *impl) GetLevel() Level {
	switch imp.effectiveLevel().Level() {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.WarnLevel:
		return WARN
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return ERROR
	case zapcore.InfoLevel, zapcore.InvalidLevel:
		fallthrough
	default:
		return INFO
	}
}

func (imp *impl) AsZap() *zap.SugaredLogger {
	return imp.sugar
}

func (imp *impl) Sync() error {
	return imp.core.Sync()
}

func (imp *impl) Debug(args ...interface{}) {
	imp.sugar.Debug(args...)
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.sugar.Debugf(template, args...)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.sugar.Debugw(msg, keysAndValues...)
}

func (imp *impl) Info(args ...interface{}) {
	imp.sugar.Info(args...)
}

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.sugar.Infof(template, args...)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.sugar.Infow(msg, keysAndValues...)
}

func (imp *impl) Warn(args ...interface{}) {
	imp.sugar.Warn(args...)
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.sugar.Warnf(template, args...)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.sugar.Warnw(msg, keysAndValues...)
}

func (imp *impl) Error(args ...interface{}) {
	imp.sugar.Error(args...)
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.sugar.Errorf(template, args...)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.sugar.Errorw(msg, keysAndValues...)
}
