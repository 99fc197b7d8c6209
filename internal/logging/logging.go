// Package logging builds the service logger.
package logging

import (
	"io"
	"os"

	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/sirupsen/logrus"
)

// Fields represents structured logging fields
type Fields = logrus.Fields

// New returns a logger configured from the general section. Unknown levels
// fall back to info.
func New(cfg config.GeneralConfig) *logrus.Logger {
	return NewWithOutput(cfg, os.Stderr)
}

func NewWithOutput(cfg config.GeneralConfig, w io.Writer) *logrus.Logger {
	cfg = cfg.Normalize()
	logger := logrus.New()
	logger.SetOutput(w)
	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// ForService returns an entry tagged with the service name.
func ForService(logger *logrus.Logger, service string) *logrus.Entry {
	return logger.WithField("service", service)
}
