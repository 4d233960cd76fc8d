package persistence

import (
	"os"

	"github.com/sirupsen/logrus"
)

// WithCorruptAlertThreshold sets the fraction of unreadable lines above
// which reading an archive fails.
func WithCorruptAlertThreshold(c float64) Option {
	return func(a *Archive) {
		a.corruptAlertThreshold = c
	}
}

// WithFileMode sets the permissions of archive files.
func WithFileMode(f os.FileMode) Option {
	return func(a *Archive) {
		a.fileMode = f
	}
}

// WithDirMode sets the permissions of directories created for archive files.
func WithDirMode(d os.FileMode) Option {
	return func(a *Archive) {
		a.dirMode = d
	}
}

// WithLogger sets the logger that reports skipped lines. Nothing is logged
// by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Archive) {
		a.logger = l
	}
}

// Option configures an [Archive] through the functional options pattern.
type Option func(*Archive)
