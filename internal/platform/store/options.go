package store

import (
	"bestsellers/internal/platform/logger"
)

// Option adjusts the Store while Open assembles it
type Option func(*Store) error

// WithLogger overrides the logger handed to subclients
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}
