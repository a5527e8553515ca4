package core

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cosmoos/cosmo-go/pkg/health"
	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// DefaultSnapshotTTL is how long a last good snapshot is kept.
const DefaultSnapshotTTL = 24 * time.Hour

// ClientOption is a function type for configuring a Client.
//
// Options are applied using the functional options pattern, allowing
// collaborators to be replaced without touching the configuration.
type ClientOption func(*clientOptions)

type clientOptions struct {
	store    storage.RecordStore
	source   health.Source
	logger   *logrus.Logger
	now      func() time.Time
	cacheTTL time.Duration
}

// WithStore uses an already opened record store instead of the configured
// one. The client does not close it.
//
// Example:
//
//	client, _ := core.NewClient(config, core.WithStore(store))
func WithStore(store storage.RecordStore) ClientOption {
	return func(opts *clientOptions) {
		opts.store = store
	}
}

// WithHealthSource replaces the record-backed health source.
func WithHealthSource(source health.Source) ClientOption {
	return func(opts *clientOptions) {
		opts.source = source
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *logrus.Logger) ClientOption {
	return func(opts *clientOptions) {
		opts.logger = logger
	}
}

// WithClock overrides the clock used by every aggregator.
func WithClock(now func() time.Time) ClientOption {
	return func(opts *clientOptions) {
		opts.now = now
	}
}

// WithSnapshotTTL sets how long the last good snapshot of each dimension is
// kept for fallback.
func WithSnapshotTTL(ttl time.Duration) ClientOption {
	return func(opts *clientOptions) {
		if ttl > 0 {
			opts.cacheTTL = ttl
		}
	}
}
