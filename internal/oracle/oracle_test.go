package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dockgate/dockgate/internal/runtime"
	"github.com/dockgate/dockgate/internal/store"
)

// fakeRuntime serves scripted containers and bindings, counting calls.
type fakeRuntime struct {
	containers []runtime.Container
	bindings   map[string]uint16 // containerID -> host port
	listErr    error
	listCalls  int
}

func (f *fakeRuntime) List(_ context.Context) ([]runtime.Container, error) {
	f.listCalls++
	return f.containers, f.listErr
}

func (f *fakeRuntime) PortBinding(_ context.Context, containerID string, _ uint16) (uint16, error) {
	port, ok := f.bindings[containerID]
	if !ok {
		return 0, runtime.ErrNoBinding
	}
	return port, nil
}

func (f *fakeRuntime) Restart(_ context.Context, _ string) error {
	return nil
}

func TestResolvePort(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves bound port for matching container", func(t *testing.T) {
		rt := &fakeRuntime{
			containers: []runtime.Container{{ID: "c1", Name: "acme_db1", State: "running"}},
			bindings:   map[string]uint16{"c1": 40001},
		}

		port, err := New(rt).ResolvePort(ctx, "db1", store.FamilyPostgres)
		require.NoError(t, err)
		require.True(t, port.IsPresent())
		assert.Equal(t, uint16(40001), port.MustGet())
	})

	t.Run("no matching container returns None without error", func(t *testing.T) {
		rt := &fakeRuntime{
			containers: []runtime.Container{{ID: "c1", Name: "other", State: "running"}},
		}

		port, err := New(rt).ResolvePort(ctx, "db1", store.FamilyPostgres)
		require.NoError(t, err)
		assert.False(t, port.IsPresent())
	})

	t.Run("container without binding returns None without error", func(t *testing.T) {
		rt := &fakeRuntime{
			containers: []runtime.Container{{ID: "c1", Name: "db1", State: "running"}},
			bindings:   map[string]uint16{},
		}

		port, err := New(rt).ResolvePort(ctx, "db1", store.FamilyPostgres)
		require.NoError(t, err)
		assert.False(t, port.IsPresent())
	})

	t.Run("runtime failure propagates", func(t *testing.T) {
		rt := &fakeRuntime{listErr: errors.New("daemon unreachable")}

		_, err := New(rt).ResolvePort(ctx, "db1", store.FamilyPostgres)
		assert.Error(t, err)
	})
}

func TestResolvePortCaching(t *testing.T) {
	ctx := context.Background()

	newCachedOracle := func(t *testing.T, rt runtime.ContainerRuntime) *Oracle {
		t.Helper()
		c := newTestCache(t)
		return New(rt, WithCache(c, 5*time.Second))
	}

	t.Run("second lookup is served from cache", func(t *testing.T) {
		rt := &fakeRuntime{
			containers: []runtime.Container{{ID: "c1", Name: "db1", State: "running"}},
			bindings:   map[string]uint16{"c1": 40001},
		}
		o := newCachedOracle(t, rt)

		first, err := o.ResolvePort(ctx, "db1", store.FamilyPostgres)
		require.NoError(t, err)
		require.True(t, first.IsPresent())

		// Wait for the async cache admission, then verify no extra List.
		require.Eventually(t, func() bool {
			port, ok := o.cached(ctx, "db1", store.FamilyPostgres)
			return ok && port == 40001
		}, time.Second, 10*time.Millisecond)

		calls := rt.listCalls
		second, err := o.ResolvePort(ctx, "db1", store.FamilyPostgres)
		require.NoError(t, err)
		assert.Equal(t, uint16(40001), second.MustGet())
		assert.Equal(t, calls, rt.listCalls)
	})

	t.Run("forget invalidates the cached resolution", func(t *testing.T) {
		rt := &fakeRuntime{
			containers: []runtime.Container{{ID: "c1", Name: "db1", State: "running"}},
			bindings:   map[string]uint16{"c1": 40001},
		}
		o := newCachedOracle(t, rt)

		_, err := o.ResolvePort(ctx, "db1", store.FamilyPostgres)
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			_, ok := o.cached(ctx, "db1", store.FamilyPostgres)
			return ok
		}, time.Second, 10*time.Millisecond)

		o.Forget(ctx, "db1", store.FamilyPostgres)
		_, ok := o.cached(ctx, "db1", store.FamilyPostgres)
		assert.False(t, ok)
	})

	t.Run("misses are never cached", func(t *testing.T) {
		rt := &fakeRuntime{}
		o := newCachedOracle(t, rt)

		port, err := o.ResolvePort(ctx, "db1", store.FamilyPostgres)
		require.NoError(t, err)
		require.False(t, port.IsPresent())

		_, ok := o.cached(ctx, "db1", store.FamilyPostgres)
		assert.False(t, ok)
	})
}
