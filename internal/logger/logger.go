// Package logger configures structured logging with logrus.
package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Setup initializes and returns a configured logrus logger with JSON output.
// Unknown levels fall back to info.
func Setup(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}
