package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. It is never replaced, only reconfigured,
// so callers may hold it across Init.
var Logger = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(textFormatter())
	return l
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
}

// Init configures the logger from config values; unknown values fall back to info/text/stdout.
// logrus guards its setters, so Init may run while other goroutines log.
func Init(level, format, output string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	default:
		Logger.SetFormatter(textFormatter())
	}

	Logger.SetOutput(writerFor(output))
}

func writerFor(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	case "discard":
		return io.Discard
	default:
		return os.Stdout
	}
}

// GetLogger returns the process-wide logger.
func GetLogger() *logrus.Logger {
	return Logger
}

// WithField creates an entry with one field.
func WithField(key string, value interface{}) *logrus.Entry {
	return GetLogger().WithField(key, value)
}

// WithFields creates an entry with several fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return GetLogger().WithFields(fields)
}

// WithError creates an entry carrying err.
func WithError(err error) *logrus.Entry {
	return GetLogger().WithError(err)
}

func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}
