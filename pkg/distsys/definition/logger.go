// Package definition holds the Logger interface every component in this
// module writes through, and the default logrus-backed implementation.
package definition

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used across the runtime and both engines.
// stdout is reserved for protocol traffic, so every implementation must
// write to stderr (or wherever the caller points it, for tests).
type Logger interface {
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Panic(args ...interface{})
	Panicf(format string, args ...interface{})

	// WithField returns a Logger enriched with a structured key/value,
	// e.g. log.WithField("node", id).Errorf("gossip to %s failed", peer).
	WithField(key string, value interface{}) Logger

	// ToggleDebug turns debug-level logging on or off and returns the new
	// state.
	ToggleDebug(on bool) bool
}

// DefaultLogger backs Logger with logrus, writing structured, leveled
// records to stderr.
type DefaultLogger struct {
	entry *logrus.Entry
}

// NewDefaultLogger returns a Logger writing to stderr at info level.
func NewDefaultLogger(component string) *DefaultLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &DefaultLogger{entry: l.WithField("component", component)}
}

func (d *DefaultLogger) Info(args ...interface{})                  { d.entry.Info(args...) }
func (d *DefaultLogger) Infof(format string, args ...interface{})  { d.entry.Infof(format, args...) }
func (d *DefaultLogger) Warn(args ...interface{})                  { d.entry.Warn(args...) }
func (d *DefaultLogger) Warnf(format string, args ...interface{})  { d.entry.Warnf(format, args...) }
func (d *DefaultLogger) Error(args ...interface{})                 { d.entry.Error(args...) }
func (d *DefaultLogger) Errorf(format string, args ...interface{}) { d.entry.Errorf(format, args...) }
func (d *DefaultLogger) Debug(args ...interface{})                 { d.entry.Debug(args...) }
func (d *DefaultLogger) Debugf(format string, args ...interface{}) { d.entry.Debugf(format, args...) }
func (d *DefaultLogger) Fatal(args ...interface{})                 { d.entry.Fatal(args...) }
func (d *DefaultLogger) Fatalf(format string, args ...interface{}) { d.entry.Fatalf(format, args...) }
func (d *DefaultLogger) Panic(args ...interface{})                 { d.entry.Panic(args...) }
func (d *DefaultLogger) Panicf(format string, args ...interface{}) { d.entry.Panicf(format, args...) }

func (d *DefaultLogger) WithField(key string, value interface{}) Logger {
	return &DefaultLogger{entry: d.entry.WithField(key, value)}
}

func (d *DefaultLogger) ToggleDebug(on bool) bool {
	if on {
		d.entry.Logger.SetLevel(logrus.DebugLevel)
	} else {
		d.entry.Logger.SetLevel(logrus.InfoLevel)
	}
	return on
}
