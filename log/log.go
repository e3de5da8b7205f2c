// Package log holds the shared, preconfigured logger for the module.
// Debug-level output is enabled with the TRANSCRIBE_DEBUG environment
// variable.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Logger is the minimal logging surface pipeline components depend on.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
}

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug, err := strconv.ParseBool(os.Getenv("TRANSCRIBE_DEBUG")); err == nil && debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// GetLogger returns the shared logger. Callers derive their own entries
// with WithField rather than reconfiguring it.
func GetLogger() *logrus.Logger {
	return logger
}
