// Package logger builds the logrus logger shared by the binaries.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stdout.
// Development uses the text formatter, every other env logs JSON.
func New(level, env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if env == "development" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		log.WithField("level", level).Warn("unknown log level, falling back to info")
	}
	log.SetLevel(lvl)

	return log
}
