// Package engine ties the backend store, port oracle, reconciler, config
// compiler, proxy applier, and certificate scheduler together behind the
// operations the control surface calls. All mutating operations run under
// one mutex so config compilation always reads a consistent store snapshot.
package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/dockgate/dockgate/internal/certsync"
	"github.com/dockgate/dockgate/internal/haproxy"
	"github.com/dockgate/dockgate/internal/oracle"
	"github.com/dockgate/dockgate/internal/reconcile"
	"github.com/dockgate/dockgate/internal/store"
)

// DefaultFallbackPortOffset is added to a family's public port when
// assigning dedicated external ports to entries stranded behind a non-TLS
// shared frontend.
const DefaultFallbackPortOffset = 10000

// Engine owns the routing state and the collaborators that project it onto
// the proxy. Construct once at process start; hand the same instance to
// every caller.
type Engine struct {
	mu sync.Mutex

	st      *store.Store
	ora     *oracle.Oracle
	rec     *reconcile.Reconciler
	applier *haproxy.Applier
	sched   *certsync.Scheduler

	certDir        string
	statsPort      uint16
	fallbackOffset uint16
	log            zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithStatsPort sets the management stats listener port.
func WithStatsPort(port uint16) Option {
	return func(e *Engine) {
		if port != 0 {
			e.statsPort = port
		}
	}
}

// WithFallbackPortOffset sets the offset above a family's public port used
// for dedicated fallback ports.
func WithFallbackPortOffset(offset uint16) Option {
	return func(e *Engine) {
		if offset != 0 {
			e.fallbackOffset = offset
		}
	}
}

// WithScheduler attaches the certificate sync scheduler. Without one,
// cert-sync triggers are no-ops and TriggerCertSync always returns None.
func WithScheduler(s *certsync.Scheduler) Option {
	return func(e *Engine) {
		e.sched = s
	}
}

// WithLogger sets the engine's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New creates an Engine. certDir is the directory holding
// <instance>.pem bundles, consulted at compile time to decide per-family
// routing strategy.
func New(st *store.Store, ora *oracle.Oracle, rec *reconcile.Reconciler, applier *haproxy.Applier, certDir string, opts ...Option) *Engine {
	e := &Engine{
		st:             st,
		ora:            ora,
		rec:            rec,
		applier:        applier,
		certDir:        certDir,
		statsPort:      haproxy.DefaultStatsPort,
		fallbackOffset: DefaultFallbackPortOffset,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddBackend registers a routing entry and pushes the regenerated config
// to the proxy. Conflicts reject the mutation before any state changes.
// The declared port is a hint: when the live container reports a different
// host binding, the live port wins.
func (e *Engine) AddBackend(ctx context.Context, instance, domain string, declaredPort uint16, family store.Family) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !family.Valid() {
		return store.ErrUnknownFamily
	}

	entry := store.Entry{
		Instance:     instance,
		Domain:       domain,
		InternalPort: declaredPort,
		Family:       family,
	}
	if err := store.Validate(entry, e.st.All()); err != nil {
		return err
	}

	// Best effort: the caller's declared port may already be stale.
	if port, err := e.ora.ResolvePort(ctx, instance, family); err == nil && port.IsPresent() {
		if live := port.MustGet(); live != declaredPort {
			e.log.Info().
				Str("instance", instance).
				Uint16("declared", declaredPort).
				Uint16("live", live).
				Msg("declared port differs from live binding, using live")
			entry.InternalPort = live
			// The live port may collide with a stale stored entry even
			// when the declared port did not.
			if err := store.Validate(entry, e.st.All()); err != nil {
				return err
			}
		}
	}

	if err := e.st.Upsert(entry); err != nil {
		return err
	}

	if err := e.regenerateLocked(ctx); err != nil {
		return err
	}

	if e.sched != nil {
		e.sched.TriggerSoon()
	}

	e.log.Info().
		Str("instance", instance).
		Str("domain", domain).
		Str("family", string(family)).
		Uint16("port", entry.InternalPort).
		Msg("backend added")
	return nil
}

// RemoveBackend deletes an instance's routing entry and pushes the
// regenerated config. Removing an absent instance, or naming the wrong
// family for an existing one, is a no-op.
func (e *Engine) RemoveBackend(ctx context.Context, instance string, family store.Family) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.st.Get(instance)
	if !ok {
		return nil
	}
	if entry.Family != family {
		e.log.Warn().
			Str("instance", instance).
			Str("requested", string(family)).
			Str("actual", string(entry.Family)).
			Msg("remove refused, family mismatch")
		return nil
	}

	if err := e.st.Remove(instance); err != nil {
		return err
	}
	e.ora.Forget(ctx, instance, family)

	if err := e.regenerateLocked(ctx); err != nil {
		return err
	}

	e.log.Info().Str("instance", instance).Msg("backend removed")
	return nil
}

// RegenerateAll reconciles stored ports against live containers, then
// recompiles and reapplies the proxy config unconditionally.
func (e *Engine) RegenerateAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := e.rec.Run(ctx)
	if result.Fixed > 0 || result.Errors > 0 {
		e.log.Info().
			Int("fixed", result.Fixed).
			Int("errors", result.Errors).
			Msg("port reconciliation swept")
	}

	return e.regenerateLocked(ctx)
}

// Backends returns a snapshot of all routing entries in insertion order.
func (e *Engine) Backends() []store.Entry {
	return e.st.All()
}

// BackendPort reports the public port clients of an instance should dial:
// the family's shared standard port, or the dedicated fallback port when
// one was assigned. None for unknown instances.
func (e *Engine) BackendPort(instance string) mo.Option[uint16] {
	entry, ok := e.st.Get(instance)
	if !ok {
		return mo.None[uint16]()
	}
	if entry.ExternalPort != 0 {
		return mo.Some(entry.ExternalPort)
	}
	return mo.Some(entry.Family.PublicPort())
}

// TriggerCertSync runs a certificate sync pass immediately. Returns None
// when no scheduler is attached or a pass is already in flight.
func (e *Engine) TriggerCertSync(ctx context.Context) mo.Option[certsync.Stats] {
	if e.sched == nil {
		return mo.None[certsync.Stats]()
	}
	return e.sched.TriggerNow(ctx)
}

// regenerateLocked assigns fallback ports, compiles the full config, and
// applies it. Callers hold e.mu.
func (e *Engine) regenerateLocked(ctx context.Context) error {
	if err := e.assignExternalPortsLocked(); err != nil {
		return err
	}

	entries := e.st.All()
	certs := e.scanCerts(entries)
	text := haproxy.Compile(entries, certs, haproxy.Options{
		CertDir:   e.certDir,
		StatsPort: e.statsPort,
	})
	return e.applier.Apply(ctx, text)
}

// assignExternalPortsLocked keeps fallback port assignments in step with
// each family's routing strategy: sequential ports above the family's
// public port for every entry after the first when the family is stuck in
// non-TLS shared mode, cleared otherwise.
func (e *Engine) assignExternalPortsLocked() error {
	entries := e.st.All()
	certs := e.scanCerts(entries)

	for _, family := range store.Families {
		group := lo.Filter(entries, func(entry store.Entry, _ int) bool {
			return entry.Family == family
		})
		fallback := len(group) >= 2 && !lo.EveryBy(group, func(entry store.Entry) bool {
			return certs.Has(entry.Domain)
		})

		for i, entry := range group {
			want := uint16(0)
			if fallback && i > 0 {
				want = family.PublicPort() + e.fallbackOffset + uint16(i)
			}
			if entry.ExternalPort == want {
				continue
			}
			entry.ExternalPort = want
			if err := e.st.Upsert(entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// scanCerts reports which domains have a usable bundle on disk. The
// bundle file is named after the owning instance; when two entries
// transiently share a domain, the first-seen instance's bundle decides,
// matching how sync passes canonicalize duplicates.
func (e *Engine) scanCerts(entries []store.Entry) haproxy.CertIndex {
	certs := make(haproxy.CertIndex, len(entries))
	for _, entry := range entries {
		if _, seen := certs[entry.Domain]; seen {
			continue
		}
		info, err := os.Stat(filepath.Join(e.certDir, entry.Instance+".pem"))
		certs[entry.Domain] = err == nil && info.Size() > 0
	}
	return certs
}
