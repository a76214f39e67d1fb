package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Fields carries structured key/value pairs for a log entry.
type Fields = logrus.Fields

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel changes the level of every component logger. Unknown levels are ignored.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		base.Warnf("unknown log level %q, keeping %s", level, base.GetLevel())
		return
	}
	base.SetLevel(lvl)
}

// Logger is a component-scoped structured logger.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) *Logger {
	return &Logger{entry: base.WithField("component", component)}
}

// With returns a child logger that always carries the given fields.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

func (l *Logger) Debug(msg string, fields ...Fields) { l.withFields(fields).Debug(msg) }
func (l *Logger) Info(msg string, fields ...Fields)  { l.withFields(fields).Info(msg) }
func (l *Logger) Warn(msg string, fields ...Fields)  { l.withFields(fields).Warn(msg) }
func (l *Logger) Error(msg string, fields ...Fields) { l.withFields(fields).Error(msg) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...Fields) { l.withFields(fields).Fatal(msg) }

func (l *Logger) withFields(fields []Fields) *logrus.Entry {
	e := l.entry
	for _, f := range fields {
		e = e.WithFields(f)
	}
	return e
}

// Infof logs an unstructured message at info level.
func Infof(format string, args ...interface{}) {
	base.Info(fmt.Sprintf(format, args...))
}
