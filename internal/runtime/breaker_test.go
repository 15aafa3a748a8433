package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRuntime scripts ContainerRuntime responses for breaker tests.
type fakeRuntime struct {
	listErr    error
	restartErr error
	containers []Container
	port       uint16
	portErr    error
}

func (f *fakeRuntime) List(_ context.Context) ([]Container, error) {
	return f.containers, f.listErr
}

func (f *fakeRuntime) PortBinding(_ context.Context, _ string, _ uint16) (uint16, error) {
	return f.port, f.portErr
}

func (f *fakeRuntime) Restart(_ context.Context, _ string) error {
	return f.restartErr
}

func TestBreaker(t *testing.T) {
	ctx := context.Background()

	t.Run("passes results through when closed", func(t *testing.T) {
		inner := &fakeRuntime{
			containers: []Container{{ID: "1", Name: "db1", State: "running"}},
			port:       40001,
		}
		b := NewBreaker(inner, BreakerConfig{}, zerolog.Nop())

		containers, err := b.List(ctx)
		require.NoError(t, err)
		assert.Len(t, containers, 1)

		port, err := b.PortBinding(ctx, "1", 5432)
		require.NoError(t, err)
		assert.Equal(t, uint16(40001), port)

		assert.NoError(t, b.Restart(ctx, "db1"))
	})

	t.Run("trips open after consecutive failures", func(t *testing.T) {
		inner := &fakeRuntime{listErr: errors.New("daemon unreachable")}
		b := NewBreaker(inner, BreakerConfig{FailureThreshold: 3}, zerolog.Nop())

		for range 3 {
			_, err := b.List(ctx)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrCircuitOpen)
		}

		_, err := b.List(ctx)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	})

	t.Run("not-found answers do not trip the circuit", func(t *testing.T) {
		inner := &fakeRuntime{
			restartErr: ErrContainerNotFound,
			portErr:    ErrNoBinding,
		}
		b := NewBreaker(inner, BreakerConfig{FailureThreshold: 2}, zerolog.Nop())

		for range 5 {
			assert.ErrorIs(t, b.Restart(ctx, "ghost"), ErrContainerNotFound)
			_, err := b.PortBinding(ctx, "1", 5432)
			assert.ErrorIs(t, err, ErrNoBinding)
		}
	})
}
