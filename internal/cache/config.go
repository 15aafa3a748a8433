package cache

import (
	"errors"
	"fmt"
)

// Mode selects the cache backend.
type Mode string

const (
	// ModeSingle uses a local Ristretto cache.
	ModeSingle Mode = "single"

	// ModeDisabled uses the noop backend; every read misses.
	ModeDisabled Mode = "disabled"
)

// Config defines cache configuration.
type Config struct {
	Mode      Mode            `yaml:"mode" toml:"mode"`
	Ristretto RistrettoConfig `yaml:"ristretto" toml:"ristretto"`
}

// RistrettoConfig tunes the Ristretto backend.
type RistrettoConfig struct {
	// NumCounters is the number of 4-bit access counters; recommended
	// 10x the expected number of cached items.
	NumCounters int64 `yaml:"num_counters" toml:"num_counters"`

	// MaxCost is the maximum total cost (bytes of cached values).
	MaxCost int64 `yaml:"max_cost" toml:"max_cost"`

	// BufferItems is the admission buffer size per Get. 64 is the
	// recommended default.
	BufferItems int64 `yaml:"buffer_items" toml:"buffer_items"`
}

// DefaultRistrettoConfig returns defaults sized for a port-lookup cache:
// the working set is one key per tenant instance, so small limits suffice.
func DefaultRistrettoConfig() RistrettoConfig {
	return RistrettoConfig{
		NumCounters: 10_000,
		MaxCost:     1 << 20, // 1 MB
		BufferItems: 64,
	}
}

// Validate checks the configuration. An empty mode is invalid; callers
// apply their own default before constructing the cache.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSingle:
		if c.Ristretto.MaxCost <= 0 {
			return errors.New("cache: ristretto.max_cost must be positive")
		}
		if c.Ristretto.NumCounters <= 0 {
			return errors.New("cache: ristretto.num_counters must be positive")
		}
	case ModeDisabled:
	case "":
		return errors.New("cache: mode is required")
	default:
		return fmt.Errorf("cache: unknown mode %q", c.Mode)
	}
	return nil
}
