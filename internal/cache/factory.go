package cache

import (
	"fmt"

	"github.com/rs/zerolog"
)

// New creates a Cache for the configured mode.
func New(cfg Config, log zerolog.Logger) (Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log = log.With().Str("backend", string(cfg.Mode)).Logger()

	switch cfg.Mode {
	case ModeSingle:
		return newRistrettoCache(cfg.Ristretto, log)
	case ModeDisabled:
		return newNoopCache(log), nil
	default:
		return nil, fmt.Errorf("cache: unknown mode %q", cfg.Mode)
	}
}
