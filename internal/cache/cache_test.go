package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("disabled mode returns noop", func(t *testing.T) {
		c, err := New(Config{Mode: ModeDisabled}, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })

		require.NoError(t, c.SetWithTTL(context.Background(), "k", []byte("v"), time.Minute))
		_, err = c.Get(context.Background(), "k")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("single mode stores and retrieves", func(t *testing.T) {
		c, err := New(Config{Mode: ModeSingle, Ristretto: DefaultRistrettoConfig()}, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })

		ctx := context.Background()
		require.NoError(t, c.SetWithTTL(ctx, "port:db1", []byte("40001"), time.Minute))

		// Ristretto admits asynchronously.
		var value []byte
		require.Eventually(t, func() bool {
			v, err := c.Get(ctx, "port:db1")
			if err != nil {
				return false
			}
			value = v
			return true
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, []byte("40001"), value)
	})

	t.Run("empty mode is invalid", func(t *testing.T) {
		_, err := New(Config{}, zerolog.Nop())
		assert.Error(t, err)
	})

	t.Run("unknown mode is invalid", func(t *testing.T) {
		_, err := New(Config{Mode: "ha"}, zerolog.Nop())
		assert.Error(t, err)
	})
}

func TestClosedCache(t *testing.T) {
	c, err := New(Config{Mode: ModeSingle, Ristretto: DefaultRistrettoConfig()}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "close is idempotent")

	_, err = c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.SetWithTTL(context.Background(), "k", nil, time.Minute), ErrClosed)
	assert.ErrorIs(t, c.Delete(context.Background(), "k"), ErrClosed)
}

func TestValidate(t *testing.T) {
	t.Run("single mode requires positive limits", func(t *testing.T) {
		cfg := Config{Mode: ModeSingle}
		assert.Error(t, cfg.Validate())

		cfg.Ristretto = DefaultRistrettoConfig()
		assert.NoError(t, cfg.Validate())
	})
}
