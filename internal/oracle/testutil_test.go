package oracle

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dockgate/dockgate/internal/cache"
)

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()

	c, err := cache.New(cache.Config{
		Mode:      cache.ModeSingle,
		Ristretto: cache.DefaultRistrettoConfig(),
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}
