package haproxy

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dockgate/dockgate/internal/store"
)

var testOpts = Options{CertDir: "/var/lib/dockgate/certs/", StatsPort: 8404}

func pgEntry(instance, domain string, port uint16) store.Entry {
	return store.Entry{
		Instance:     instance,
		Domain:       domain,
		InternalPort: port,
		Family:       store.FamilyPostgres,
	}
}

func TestCompileIdempotence(t *testing.T) {
	entries := []store.Entry{
		pgEntry("db1", "a.example.com", 40001),
		pgEntry("db2", "b.example.com", 40002),
		{Instance: "shop", Domain: "shop.example.com", InternalPort: 36001, Family: store.FamilyMySQL},
	}
	certs := CertIndex{"a.example.com": true, "b.example.com": true}

	first := Compile(entries, certs, testOpts)
	second := Compile(entries, certs, testOpts)

	assert.Equal(t, first, second, "identical input must produce byte-identical output")
}

func TestCompileEmptyStore(t *testing.T) {
	out := Compile(nil, CertIndex{}, testOpts)

	assert.NotContains(t, out, "frontend postgres_in")
	assert.NotContains(t, out, "frontend mysql_in")
	assert.NotContains(t, out, "frontend mongodb_in")
	assert.Contains(t, out, "listen stats", "stats listener is emitted regardless of backend count")
	assert.Contains(t, out, "bind *:8404")
}

func TestCompileSingleEntry(t *testing.T) {
	out := Compile([]store.Entry{pgEntry("db1", "db1.acme.io", 35001)}, CertIndex{}, testOpts)

	assert.Contains(t, out, "frontend postgres_in\n    bind *:5432\n")
	assert.Contains(t, out, "default_backend postgres_db1")
	assert.Contains(t, out, "server postgres_db1 127.0.0.1:35001 check")
	assert.NotContains(t, out, "ssl_fc_sni", "single entry needs no SNI inspection")
	assert.NotContains(t, out, "ssl crt")
}

func TestCompileMultiEntryTLS(t *testing.T) {
	entries := []store.Entry{
		pgEntry("db1", "a.example.com", 40001),
		pgEntry("db2", "b.example.com", 40002),
	}
	certs := CertIndex{"a.example.com": true, "b.example.com": true}

	out := Compile(entries, certs, testOpts)

	assert.Contains(t, out, "bind *:5432 ssl crt /var/lib/dockgate/certs/")
	assert.Contains(t, out, "use_backend postgres_db1 if { ssl_fc_sni -i a.example.com }")
	assert.Contains(t, out, "use_backend postgres_db2 if { ssl_fc_sni -i b.example.com }")
	assert.NotContains(t, out, "default_backend", "unmatched SNI is rejected, not defaulted")

	// No cross-wiring: each SNI rule must select the backend holding its
	// own domain's port.
	assert.Contains(t, out, "server postgres_db1 127.0.0.1:40001 check")
	assert.Contains(t, out, "server postgres_db2 127.0.0.1:40002 check")

	frontendIdx := strings.Index(out, "frontend postgres_in")
	db1Rule := strings.Index(out, "use_backend postgres_db1 if { ssl_fc_sni -i a.example.com }")
	require.Greater(t, db1Rule, frontendIdx)
}

func TestCompileMultiEntryFallback(t *testing.T) {
	entries := []store.Entry{
		pgEntry("db1", "a.example.com", 40001),
		pgEntry("db2", "b.example.com", 40002),
	}
	entries[1].ExternalPort = 15433
	certs := CertIndex{"a.example.com": true} // b has no cert

	out := Compile(entries, certs, testOpts)

	assert.Contains(t, out, "# WARNING: TLS certificates are missing for one or more postgres domains.")
	assert.Contains(t, out, "frontend postgres_in\n    bind *:5432\n    mode tcp\n    default_backend postgres_db1")
	assert.NotContains(t, out, "ssl crt")

	// The entry with an assigned external port gets a dedicated frontend.
	assert.Contains(t, out, "frontend postgres_db2_fallback\n    bind *:15433\n    mode tcp\n    default_backend postgres_db2")
}

func TestCompileFamiliesAreIndependent(t *testing.T) {
	entries := []store.Entry{
		pgEntry("db1", "a.example.com", 40001),
		{Instance: "shop", Domain: "shop.example.com", InternalPort: 36001, Family: store.FamilyMySQL},
		{Instance: "events", Domain: "events.example.com", InternalPort: 37001, Family: store.FamilyMongo},
	}

	out := Compile(entries, CertIndex{}, testOpts)

	assert.Contains(t, out, "frontend postgres_in\n    bind *:5432")
	assert.Contains(t, out, "frontend mysql_in\n    bind *:3306")
	assert.Contains(t, out, "frontend mongodb_in\n    bind *:27017")
}

func TestCompileEmitsMarkers(t *testing.T) {
	entries := []store.Entry{pgEntry("db1", "db1.acme.io", 35001)}

	out := Compile(entries, CertIndex{}, testOpts)

	assert.Contains(t, out, store.Marker(entries[0]))
}

func TestCompileDefaultStatsPort(t *testing.T) {
	out := Compile(nil, CertIndex{}, Options{CertDir: "/certs/"})
	assert.Contains(t, out, fmt.Sprintf("bind *:%d", DefaultStatsPort))
}

func TestBackendName(t *testing.T) {
	t.Run("sanitizes to lowercase alphanumerics", func(t *testing.T) {
		e := store.Entry{Instance: "My-App_DB.2", Family: store.FamilyPostgres}
		assert.Equal(t, "postgres_myappdb2", BackendName(e))
	})

	t.Run("distinct instances should not collide after sanitization", func(t *testing.T) {
		a := BackendName(store.Entry{Instance: "db-1", Family: store.FamilyPostgres})
		b := BackendName(store.Entry{Instance: "db-2", Family: store.FamilyPostgres})
		assert.NotEqual(t, a, b)
	})
}
