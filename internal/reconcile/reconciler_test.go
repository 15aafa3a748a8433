package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dockgate/dockgate/internal/oracle"
	"github.com/dockgate/dockgate/internal/runtime"
	"github.com/dockgate/dockgate/internal/store"
)

type fakeRuntime struct {
	containers []runtime.Container
	bindings   map[string]uint16
	listErr    error
}

func (f *fakeRuntime) List(_ context.Context) ([]runtime.Container, error) {
	return f.containers, f.listErr
}

func (f *fakeRuntime) PortBinding(_ context.Context, containerID string, _ uint16) (uint16, error) {
	port, ok := f.bindings[containerID]
	if !ok {
		return 0, runtime.ErrNoBinding
	}
	return port, nil
}

func (f *fakeRuntime) Restart(_ context.Context, _ string) error { return nil }

func newTestStore(t *testing.T, entries ...store.Entry) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "backends.json"), "")
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, s.Upsert(e))
	}
	return s
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("corrects drifted port", func(t *testing.T) {
		s := newTestStore(t, store.Entry{
			Instance:     "db1",
			Domain:       "db1.acme.io",
			InternalPort: 9000,
			Family:       store.FamilyPostgres,
		})
		rt := &fakeRuntime{
			containers: []runtime.Container{{ID: "c1", Name: "db1", State: "running"}},
			bindings:   map[string]uint16{"c1": 9100},
		}

		result := New(s, oracle.New(rt), zerolog.Nop()).Run(ctx)

		assert.Equal(t, 1, result.Fixed)
		assert.Equal(t, 0, result.Errors)
		require.Len(t, result.Fixes, 1)
		assert.Equal(t, Fix{Instance: "db1", Domain: "db1.acme.io", OldPort: 9000, NewPort: 9100}, result.Fixes[0])

		e, ok := s.Get("db1")
		require.True(t, ok)
		assert.Equal(t, uint16(9100), e.InternalPort)
	})

	t.Run("matching port is untouched", func(t *testing.T) {
		s := newTestStore(t, store.Entry{
			Instance:     "db1",
			Domain:       "db1.acme.io",
			InternalPort: 9100,
			Family:       store.FamilyPostgres,
		})
		rt := &fakeRuntime{
			containers: []runtime.Container{{ID: "c1", Name: "db1", State: "running"}},
			bindings:   map[string]uint16{"c1": 9100},
		}

		result := New(s, oracle.New(rt), zerolog.Nop()).Run(ctx)

		assert.Equal(t, 0, result.Fixed)
		assert.Empty(t, result.Fixes)
	})

	t.Run("missing container counts as error and keeps entry", func(t *testing.T) {
		s := newTestStore(t, store.Entry{
			Instance:     "ghost",
			Domain:       "ghost.acme.io",
			InternalPort: 9000,
			Family:       store.FamilyPostgres,
		})
		rt := &fakeRuntime{}

		result := New(s, oracle.New(rt), zerolog.Nop()).Run(ctx)

		assert.Equal(t, 0, result.Fixed)
		assert.Equal(t, 1, result.Errors)
		assert.Equal(t, 1, s.Len(), "missing entries are reported, never deleted")
	})

	t.Run("one failure does not block other entries", func(t *testing.T) {
		s := newTestStore(t,
			store.Entry{Instance: "ghost", Domain: "ghost.acme.io", InternalPort: 9000, Family: store.FamilyPostgres},
			store.Entry{Instance: "db2", Domain: "db2.acme.io", InternalPort: 9000, Family: store.FamilyMySQL},
		)
		rt := &fakeRuntime{
			containers: []runtime.Container{{ID: "c2", Name: "db2", State: "running"}},
			bindings:   map[string]uint16{"c2": 9300},
		}

		result := New(s, oracle.New(rt), zerolog.Nop()).Run(ctx)

		assert.Equal(t, 1, result.Fixed)
		assert.Equal(t, 1, result.Errors)

		e, _ := s.Get("db2")
		assert.Equal(t, uint16(9300), e.InternalPort)
	})

	t.Run("runtime outage counts every entry as error", func(t *testing.T) {
		s := newTestStore(t,
			store.Entry{Instance: "db1", Domain: "db1.acme.io", InternalPort: 9000, Family: store.FamilyPostgres},
			store.Entry{Instance: "db2", Domain: "db2.acme.io", InternalPort: 9001, Family: store.FamilyPostgres},
		)
		rt := &fakeRuntime{listErr: errors.New("daemon unreachable")}

		result := New(s, oracle.New(rt), zerolog.Nop()).Run(ctx)

		assert.Equal(t, 2, result.Errors)
		assert.Equal(t, 0, result.Fixed)
	})
}
