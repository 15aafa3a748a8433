package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker guarding runtime calls.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the circuit open. Zero selects the default (5).
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`

	// OpenSeconds is how long the circuit stays open before probing
	// again. Zero selects the default (30s).
	OpenSeconds int `yaml:"open_seconds" toml:"open_seconds"`
}

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultOpenDuration     = 30 * time.Second
)

// GetFailureThreshold returns the failure threshold with default fallback.
func (c BreakerConfig) GetFailureThreshold() int {
	if c.FailureThreshold <= 0 {
		return DefaultFailureThreshold
	}
	return c.FailureThreshold
}

// GetOpenDuration returns the open duration with default fallback.
func (c BreakerConfig) GetOpenDuration() time.Duration {
	if c.OpenSeconds <= 0 {
		return DefaultOpenDuration
	}
	return time.Duration(c.OpenSeconds) * time.Second
}

// Breaker wraps a ContainerRuntime with a circuit breaker so a wedged
// docker daemon trips fast-fail during reconcile and certificate sweeps
// instead of stalling every entry on a timeout.
type Breaker struct {
	inner ContainerRuntime
	cb    *gobreaker.CircuitBreaker[any]
}

var _ ContainerRuntime = (*Breaker)(nil)

// NewBreaker decorates a runtime with circuit breaking.
func NewBreaker(inner ContainerRuntime, cfg BreakerConfig, log zerolog.Logger) *Breaker {
	threshold := cfg.GetFailureThreshold()

	settings := gobreaker.Settings{
		Name:    "container-runtime",
		Timeout: cfg.GetOpenDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold) //nolint:gosec // validated positive above
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			event := log.Info()
			if to == gobreaker.StateOpen {
				event = log.Warn()
			}
			event.
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("runtime circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// Not-found and no-binding are answers, not runtime failures.
			return err == nil ||
				errors.Is(err, ErrContainerNotFound) ||
				errors.Is(err, ErrNoBinding) ||
				errors.Is(err, context.Canceled)
		},
	}

	return &Breaker{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// List implements ContainerRuntime.
func (b *Breaker) List(ctx context.Context) ([]Container, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.List(ctx)
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return out.([]Container), nil
}

// PortBinding implements ContainerRuntime.
func (b *Breaker) PortBinding(ctx context.Context, containerID string, containerPort uint16) (uint16, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.PortBinding(ctx, containerID, containerPort)
	})
	if err != nil {
		return 0, mapBreakerErr(err)
	}
	return out.(uint16), nil
}

// Restart implements ContainerRuntime.
func (b *Breaker) Restart(ctx context.Context, instance string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Restart(ctx, instance)
	})
	return mapBreakerErr(err)
}

func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}
