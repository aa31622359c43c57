// Package logging configures the single process-wide logrus instance used
// by every component. The per-notification-kind log levels are applied by
// notify.LogTo, not here.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger with a text formatter writing to stderr and a
// level resolved from levelName (falls back to Info on an empty or invalid
// name). Components should keep a *logrus.Entry (via WithField) rather than
// the bare Logger so log lines carry their component name.
func New(levelName string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	return l
}

// Component returns a logger entry tagged with the given component name,
// the convention every package in this module follows when logging.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}
