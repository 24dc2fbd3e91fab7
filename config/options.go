package config

import (
	"time"

	"github.com/viant/afs"
	"go.uber.org/zap"
)

// Option configures a Store.
type Option func(s *Store)

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithFS sets the storage service used for reading and backup housekeeping.
func WithFS(fs afs.Service) Option {
	return func(s *Store) {
		s.fs = fs
	}
}

// WithClock sets the time source for backup names and temp file expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}
