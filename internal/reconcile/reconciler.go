// Package reconcile compares the ports recorded in the backend store
// against the ports tenant containers are actually bound to, and corrects
// the store wherever the two disagree. The live container always wins: the
// store is a cache of observed reality, never the reverse.
package reconcile

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dockgate/dockgate/internal/oracle"
	"github.com/dockgate/dockgate/internal/store"
)

// Fix records one corrected entry.
type Fix struct {
	Instance string `json:"instance"`
	Domain   string `json:"domain"`
	OldPort  uint16 `json:"old_port"`
	NewPort  uint16 `json:"new_port"`
}

// Result summarizes a reconciliation sweep. Fixed > 0 means the proxy
// configuration must be regenerated.
type Result struct {
	Fixed  int
	Errors int
	Fixes  []Fix
}

// Reconciler sweeps the store against the port oracle.
type Reconciler struct {
	store  *store.Store
	oracle *oracle.Oracle
	log    zerolog.Logger
}

// New creates a Reconciler.
func New(st *store.Store, o *oracle.Oracle, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: st, oracle: o, log: log}
}

// Run resolves the live port of every stored entry and overwrites any
// stored port that differs. The sweep is best-effort, not transactional:
// an entry whose container cannot be resolved is counted as an error (and
// reported as missing, never deleted) while the remaining entries continue.
func (r *Reconciler) Run(ctx context.Context) Result {
	var result Result

	for _, entry := range r.store.All() {
		live, err := r.oracle.ResolvePort(ctx, entry.Instance, entry.Family)
		if err != nil {
			result.Errors++
			r.log.Warn().Err(err).
				Str("instance", entry.Instance).
				Msg("port resolution failed, skipping entry")
			continue
		}
		if !live.IsPresent() {
			result.Errors++
			r.log.Warn().
				Str("instance", entry.Instance).
				Str("domain", entry.Domain).
				Msg("backend entry has no live container (missing)")
			continue
		}

		port := live.MustGet()
		if port == entry.InternalPort {
			continue
		}

		fix := Fix{
			Instance: entry.Instance,
			Domain:   entry.Domain,
			OldPort:  entry.InternalPort,
			NewPort:  port,
		}
		entry.InternalPort = port
		if err := r.store.Upsert(entry); err != nil {
			result.Errors++
			r.log.Error().Err(err).
				Str("instance", entry.Instance).
				Msg("failed to persist port correction")
			continue
		}

		result.Fixed++
		result.Fixes = append(result.Fixes, fix)
		r.log.Info().
			Str("instance", fix.Instance).
			Str("domain", fix.Domain).
			Uint16("old_port", fix.OldPort).
			Uint16("new_port", fix.NewPort).
			Msg("corrected drifted backend port")
	}

	return result
}
