// Package zaplog adapts a zap logger to cache.Logger.
package zaplog

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-catalog-cache/cache"
)

type Logger struct{ L *zap.Logger }

var _ cache.Logger = Logger{}

func New(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return Logger{L: l}
}

// NewProduction builds a JSON logger at level, or a console logger when
// development is set.
func NewProduction(level string, development bool) (Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return Logger{}, err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return Logger{}, err
	}
	return Logger{L: l}, nil
}

func (z Logger) Debug(msg string, f cache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f cache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f cache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f cache.Fields) { z.L.Error(msg, fields(f)...) }

func (z Logger) Sync() error { return z.L.Sync() }

// fields emits keys in sorted order so output is stable.
func fields(f cache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
