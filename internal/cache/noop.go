package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// noopCache stores nothing. Writes succeed and are discarded; reads always
// return ErrNotFound.
type noopCache struct {
	log    zerolog.Logger
	closed atomic.Bool
}

var _ Cache = (*noopCache)(nil)

func newNoopCache(log zerolog.Logger) *noopCache {
	log.Debug().Msg("caching disabled, using noop backend")
	return &noopCache{log: log}
}

func (c *noopCache) Get(_ context.Context, _ string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	return nil, ErrNotFound
}

func (c *noopCache) SetWithTTL(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (c *noopCache) Delete(_ context.Context, _ string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (c *noopCache) Close() error {
	c.closed.Store(true)
	return nil
}
