// Package store holds the authoritative backend registry: the mapping from
// tenant instance to public domain and internal loopback port that the
// HAProxy compiler consumes on every regeneration.
//
// The store is the single owner of routing entries. It persists them as one
// JSON document written atomically (temp file + rename), and can rebuild a
// lost document from the marker comments embedded in the last generated
// proxy configuration.
package store

import (
	"errors"
	"fmt"
)

// Family identifies the database wire protocol of a backend. It determines
// the shared public port the tenant is reachable on and the standard port
// the database listens on inside its container.
type Family string

// Supported protocol families.
const (
	FamilyPostgres Family = "postgres"
	FamilyMySQL    Family = "mysql"
	FamilyMongo    Family = "mongodb"
)

// Families lists all supported families in the fixed order used by the
// compiler. Iteration over this slice keeps generated output deterministic.
var Families = []Family{FamilyPostgres, FamilyMySQL, FamilyMongo}

// ErrUnknownFamily is returned when a family string is not one of the
// supported protocol families.
var ErrUnknownFamily = errors.New("store: unknown protocol family")

// ParseFamily converts a string into a Family.
func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case FamilyPostgres, FamilyMySQL, FamilyMongo:
		return Family(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFamily, s)
	}
}

// Valid reports whether the family is one of the supported protocols.
func (f Family) Valid() bool {
	switch f {
	case FamilyPostgres, FamilyMySQL, FamilyMongo:
		return true
	default:
		return false
	}
}

// PublicPort returns the family's standard public port, shared by all
// tenants of that family through SNI routing.
func (f Family) PublicPort() uint16 {
	switch f {
	case FamilyPostgres:
		return 5432
	case FamilyMySQL:
		return 3306
	case FamilyMongo:
		return 27017
	default:
		return 0
	}
}

// ContainerPort returns the standard port the database listens on inside
// its container. For all supported families this matches the public port.
func (f Family) ContainerPort() uint16 {
	return f.PublicPort()
}

// Entry is one routing rule: a tenant instance, the public domain it
// presents via SNI, and the loopback port its container is bound to.
type Entry struct {
	// Instance is the stable identifier of the tenant database instance
	// and the primary key of the store.
	Instance string `json:"instance"`

	// Domain is the fully qualified public domain, unique across all
	// entries regardless of family.
	Domain string `json:"domain"`

	// InternalPort is the host-side loopback port the container actually
	// listens on. Unique within a family.
	InternalPort uint16 `json:"internal_port"`

	// Family selects the frontend bucket and the shared public port.
	Family Family `json:"family"`

	// ExternalPort is a dedicated fallback port assigned only when
	// several entries of the same family coexist without full TLS
	// coverage. Zero means the entry uses the family's standard port.
	ExternalPort uint16 `json:"external_port,omitempty"`
}
