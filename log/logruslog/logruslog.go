// Package logruslog adapts a logrus entry to cache.Logger.
package logruslog

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-catalog-cache/cache"
)

type Logger struct{ E *logrus.Entry }

var _ cache.Logger = Logger{}

func New(e *logrus.Entry) Logger {
	if e == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		e = logrus.NewEntry(l)
	}
	return Logger{E: e}
}

// NewJSON returns a JSON logger writing to w at level.
func NewJSON(w io.Writer, level string) (Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return Logger{}, err
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.JSONFormatter{})
	return Logger{E: logrus.NewEntry(l)}, nil
}

func (l Logger) Debug(msg string, f cache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f cache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f cache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f cache.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f cache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	return l.E.WithFields(logrus.Fields(f))
}
