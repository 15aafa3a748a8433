// Package haproxy compiles the backend registry into an HAProxy
// configuration and applies it to the external proxy process.
//
// Compilation is a pure function of its inputs: the same entries and
// certificate index always produce byte-identical output. All routing state
// is re-derived from the full store snapshot on every run; the generated
// file is never patched incrementally.
package haproxy

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/dockgate/dockgate/internal/store"
)

// Options holds the fixed compilation inputs that are not per-entry state.
type Options struct {
	// CertDir is the directory of per-instance certificate bundles loaded
	// by TLS-terminating frontends.
	CertDir string

	// StatsPort is the management port for the stats listener.
	StatsPort uint16
}

// DefaultStatsPort is used when Options.StatsPort is zero.
const DefaultStatsPort = 8404

// CertIndex records which domains have a certificate bundle on disk.
type CertIndex map[string]bool

// Has reports whether a bundle exists for domain.
func (ci CertIndex) Has(domain string) bool {
	return ci[domain]
}

const banner = `# Generated by dockgate. Do not edit: this file is rewritten in full on
# every backend change.`

// Compile renders the proxy configuration for the given entries. Entries
// must be in store insertion order; families are emitted in the fixed
// store.Families order so output stays deterministic.
func Compile(entries []store.Entry, certs CertIndex, opts Options) string {
	var b strings.Builder

	b.WriteString(banner)
	b.WriteString("\n\n")
	writePreamble(&b)

	for _, family := range store.Families {
		group := lo.Filter(entries, func(e store.Entry, _ int) bool {
			return e.Family == family
		})
		writeFamily(&b, family, group, certs, opts)
	}

	writeStats(&b, opts)

	return b.String()
}

func writePreamble(b *strings.Builder) {
	b.WriteString("global\n")
	b.WriteString("    maxconn 4096\n")
	b.WriteString("    log stdout format raw local0\n")
	b.WriteString("\n")
	b.WriteString("defaults\n")
	b.WriteString("    mode tcp\n")
	b.WriteString("    log global\n")
	b.WriteString("    timeout connect 5s\n")
	b.WriteString("    timeout client 1h\n")
	b.WriteString("    timeout server 1h\n")
	b.WriteString("\n")
}

// writeFamily emits the frontend(s) and backends for one protocol family.
// The routing strategy depends on cardinality and TLS coverage:
//
//   - one entry: plain TCP frontend, unconditional default backend, no SNI
//   - several entries, certs for every domain: one TLS-terminating
//     frontend with an SNI match rule per entry and no default backend
//   - several entries, any cert missing: plain frontend defaulting to the
//     first entry, with dedicated fallback frontends for entries that were
//     assigned an external port
func writeFamily(b *strings.Builder, family store.Family, group []store.Entry, certs CertIndex, opts Options) {
	if len(group) == 0 {
		return
	}

	frontend := fmt.Sprintf("%s_in", family)

	switch {
	case len(group) == 1:
		fmt.Fprintf(b, "frontend %s\n", frontend)
		fmt.Fprintf(b, "    bind *:%d\n", family.PublicPort())
		b.WriteString("    mode tcp\n")
		fmt.Fprintf(b, "    default_backend %s\n\n", BackendName(group[0]))

	case lo.EveryBy(group, func(e store.Entry) bool { return certs.Has(e.Domain) }):
		fmt.Fprintf(b, "frontend %s\n", frontend)
		fmt.Fprintf(b, "    bind *:%d ssl crt %s\n", family.PublicPort(), opts.CertDir)
		b.WriteString("    mode tcp\n")
		for _, e := range group {
			fmt.Fprintf(b, "    use_backend %s if { ssl_fc_sni -i %s }\n", BackendName(e), e.Domain)
		}
		// No default backend: unmatched SNI is rejected by HAProxy's
		// own default-deny.
		b.WriteString("\n")

	default:
		first := group[0]
		fmt.Fprintf(b, "# WARNING: TLS certificates are missing for one or more %s domains.\n", family)
		fmt.Fprintf(b, "# Plain TCP connections on port %d all route to the first backend\n", family.PublicPort())
		fmt.Fprintf(b, "# (%q); the other tenants in this family are not routable through the\n", first.Instance)
		b.WriteString("# shared port and must use their dedicated fallback port or enable TLS.\n")
		fmt.Fprintf(b, "frontend %s\n", frontend)
		fmt.Fprintf(b, "    bind *:%d\n", family.PublicPort())
		b.WriteString("    mode tcp\n")
		fmt.Fprintf(b, "    default_backend %s\n\n", BackendName(first))

		for _, e := range group {
			if e.ExternalPort == 0 {
				continue
			}
			fmt.Fprintf(b, "frontend %s_fallback\n", BackendName(e))
			fmt.Fprintf(b, "    bind *:%d\n", e.ExternalPort)
			b.WriteString("    mode tcp\n")
			fmt.Fprintf(b, "    default_backend %s\n\n", BackendName(e))
		}
	}

	for _, e := range group {
		b.WriteString(store.Marker(e))
		b.WriteString("\n")
		fmt.Fprintf(b, "backend %s\n", BackendName(e))
		b.WriteString("    mode tcp\n")
		fmt.Fprintf(b, "    server %s 127.0.0.1:%d check\n\n", BackendName(e), e.InternalPort)
	}
}

// writeStats appends the fixed management listener, independent of backend
// count.
func writeStats(b *strings.Builder, opts Options) {
	port := opts.StatsPort
	if port == 0 {
		port = DefaultStatsPort
	}

	b.WriteString("listen stats\n")
	fmt.Fprintf(b, "    bind *:%d\n", port)
	b.WriteString("    mode http\n")
	b.WriteString("    stats enable\n")
	b.WriteString("    stats uri /\n")
	b.WriteString("    stats refresh 10s\n")
}

// BackendName derives the proxy backend identifier for an entry: the
// family prefix plus the instance name case-folded and stripped to
// [a-z0-9]. Post-sanitization collisions between distinct instances are
// not handled; tests assert against them.
func BackendName(e store.Entry) string {
	return string(e.Family) + "_" + sanitize(e.Instance)
}

func sanitize(instance string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(instance) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
