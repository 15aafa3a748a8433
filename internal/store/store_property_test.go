package store_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/dockgate/dockgate/internal/store"
)

// Property-based tests for the store invariants: no sequence of validated
// adds may ever leave two entries sharing a domain, or two entries of the
// same family sharing an internal port.

type addAttempt struct {
	instance int
	domain   int
	port     int
	family   int
}

func genAddAttempts() gopter.Gen {
	return gen.SliceOf(gopter.CombineGens(
		gen.IntRange(0, 9),  // instance
		gen.IntRange(0, 5),  // domain - small range to force collisions
		gen.IntRange(0, 5),  // port offset - small range to force collisions
		gen.IntRange(0, 2),  // family
	).Map(func(values []interface{}) addAttempt {
		return addAttempt{
			instance: values[0].(int),
			domain:   values[1].(int),
			port:     values[2].(int),
			family:   values[3].(int),
		}
	}))
}

func applyAttempts(t *testing.T, attempts []addAttempt) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "backends.json"), "")
	require.NoError(t, err)

	for _, a := range attempts {
		candidate := store.Entry{
			Instance:     fmt.Sprintf("inst%d", a.instance),
			Domain:       fmt.Sprintf("d%d.acme.io", a.domain),
			InternalPort: uint16(40000 + a.port),
			Family:       store.Families[a.family],
		}
		if store.Validate(candidate, s.All()) != nil {
			continue // rejected adds must leave the store untouched
		}
		require.NoError(t, s.Upsert(candidate))
	}

	return s
}

func TestStoreUniquenessProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("no two entries share a domain", prop.ForAll(
		func(attempts []addAttempt) bool {
			s := applyAttempts(t, attempts)

			seen := make(map[string]bool)
			for _, e := range s.All() {
				if seen[e.Domain] {
					return false
				}
				seen[e.Domain] = true
			}
			return true
		},
		genAddAttempts(),
	))

	properties.Property("no two same-family entries share a port", prop.ForAll(
		func(attempts []addAttempt) bool {
			s := applyAttempts(t, attempts)

			seen := make(map[string]bool)
			for _, e := range s.All() {
				key := fmt.Sprintf("%s:%d", e.Family, e.InternalPort)
				if seen[key] {
					return false
				}
				seen[key] = true
			}
			return true
		},
		genAddAttempts(),
	))

	properties.TestingRun(t)
}
