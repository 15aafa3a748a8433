package certsync

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/time/rate"

	"github.com/dockgate/dockgate/internal/haproxy"
	"github.com/dockgate/dockgate/internal/runtime"
	"github.com/dockgate/dockgate/internal/store"
)

// Scheduler defaults.
const (
	DefaultInterval    = time.Hour
	DefaultWarmup      = 10 * time.Second
	DefaultDebounce    = 5 * time.Second
	DefaultRestartRate = 1.0 // container restarts per second during a pass
)

// Stats summarizes one sync pass.
type Stats struct {
	// Domains is the number of unique domains processed.
	Domains int

	// Updated lists the domains whose certificate changed on disk.
	Updated []string

	// Failures counts domains whose certificate could not be fetched.
	Failures int

	// Restarted counts containers restarted after a certificate update.
	Restarted int

	// RestartFailures counts restart attempts that failed. A certificate
	// is still written even when its dependent restart fails.
	RestartFailures int

	// Reloaded reports whether the proxy was reloaded at the end of the
	// pass. At most one reload happens per pass.
	Reloaded bool
}

// Scheduler drives certificate synchronization: a fixed-interval timer
// with a short warm-up run, plus a debounced immediate trigger fired when a
// backend is added. Passes are mutually exclusive through an advisory
// atomic guard; a trigger arriving mid-pass is dropped, not queued — the
// next tick picks up whatever was missed.
type Scheduler struct {
	store    *store.Store
	source   Source
	rt       runtime.ContainerRuntime
	proc     haproxy.Process
	dir      string
	interval time.Duration
	warmup   time.Duration
	debounce time.Duration
	limiter  *rate.Limiter
	clock    Clock
	log      zerolog.Logger

	syncing atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending Timer
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the periodic sync interval.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithWarmup sets the delay before the initial sync after Start.
func WithWarmup(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.warmup = d
		}
	}
}

// WithDebounce sets the delay used by TriggerSoon to collapse rapid
// successive backend additions into a single pass.
func WithDebounce(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithRestartRate caps container restarts per second during a pass.
func WithRestartRate(perSecond float64) SchedulerOption {
	return func(s *Scheduler) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithClock injects the clock. Tests use a fake; production uses
// RealClock.
func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(log zerolog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.log = log
	}
}

// NewScheduler creates a Scheduler writing bundles into dir.
func NewScheduler(st *store.Store, source Source, rt runtime.ContainerRuntime, proc haproxy.Process, dir string, opts ...SchedulerOption) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		store:    st,
		source:   source,
		rt:       rt,
		proc:     proc,
		dir:      dir,
		interval: DefaultInterval,
		warmup:   DefaultWarmup,
		debounce: DefaultDebounce,
		limiter:  rate.NewLimiter(rate.Limit(DefaultRestartRate), 1),
		clock:    RealClock{},
		log:      zerolog.Nop(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background loop: one warm-up run shortly after
// startup, then one run per interval tick. Start is called once per daemon
// process.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		warm := s.clock.AfterFunc(s.warmup, func() {
			s.runScheduled("warmup")
		})
		defer warm.Stop()

		ticker := s.clock.NewTicker(s.interval)
		defer ticker.Stop()

		s.log.Info().
			Dur("interval", s.interval).
			Dur("warmup", s.warmup).
			Msg("certificate sync scheduler started")

		for {
			select {
			case <-s.ctx.Done():
				s.log.Info().Msg("certificate sync scheduler stopped")
				return
			case <-ticker.Chan():
				s.runScheduled("interval")
			}
		}
	}()
}

// Stop cancels the background loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.mu.Lock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// TriggerSoon schedules a sync after the debounce delay. Rapid successive
// calls collapse into a single pass: an already-pending trigger has its
// timer reset instead of a second one being armed.
func (s *Scheduler) TriggerSoon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.pending.Reset(s.debounce)
		return
	}
	s.pending = s.clock.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
		s.runScheduled("debounce")
	})
}

// TriggerNow runs a sync pass on the caller's context. Returns None when a
// pass is already in flight: the caller is not blocked, the in-flight pass
// covers the work.
func (s *Scheduler) TriggerNow(ctx context.Context) mo.Option[Stats] {
	if !s.syncing.CompareAndSwap(false, true) {
		return mo.None[Stats]()
	}
	defer s.syncing.Store(false)

	return mo.Some(s.pass(ctx))
}

// runScheduled is the guard-protected entry used by the timer sources.
func (s *Scheduler) runScheduled(trigger string) {
	if !s.syncing.CompareAndSwap(false, true) {
		s.log.Debug().Str("trigger", trigger).Msg("sync already in flight, skipping")
		return
	}
	defer s.syncing.Store(false)

	stats := s.pass(s.ctx)
	s.log.Info().
		Str("trigger", trigger).
		Int("domains", stats.Domains).
		Int("updated", len(stats.Updated)).
		Int("failures", stats.Failures).
		Msg("scheduled certificate sync finished")
}

// pass synchronizes every unique domain once. Per-domain failures are
// counted and never abort the rest of the pass; the proxy is reloaded at
// most once at the end, and only when something actually changed.
func (s *Scheduler) pass(ctx context.Context) Stats {
	log := s.log.With().Str("sync_id", uuid.NewString()[:8]).Logger()
	start := s.clock.Now()

	// First-seen entry wins for a domain; duplicates only exist
	// transiently during conflict windows.
	unique := lo.UniqBy(s.store.All(), func(e store.Entry) string {
		return e.Domain
	})

	stats := Stats{Domains: len(unique)}
	var updated []store.Entry

	for _, e := range unique {
		material, err := s.source.Fetch(ctx, e.Instance, e.Domain)
		if err != nil {
			stats.Failures++
			log.Warn().Err(err).Str("domain", e.Domain).Msg("certificate fetch failed")
			continue
		}
		if !material.External {
			continue
		}

		changed, err := s.writeBundle(e.Instance, material)
		if err != nil {
			stats.Failures++
			log.Error().Err(err).Str("domain", e.Domain).Msg("certificate bundle write failed")
			continue
		}
		if !changed {
			continue
		}

		stats.Updated = append(stats.Updated, e.Domain)
		updated = append(updated, e)
		log.Info().Str("domain", e.Domain).Str("instance", e.Instance).Msg("certificate updated")
	}

	// Restart each updated tenant container so database-side TLS picks
	// up the new material. Restarts are rate limited and best-effort.
	for _, e := range updated {
		if err := s.limiter.Wait(ctx); err != nil {
			stats.RestartFailures++
			continue
		}
		if err := s.rt.Restart(ctx, e.Instance); err != nil {
			stats.RestartFailures++
			log.Warn().Err(err).Str("instance", e.Instance).Msg("container restart after cert update failed")
			continue
		}
		stats.Restarted++
	}

	if len(stats.Updated) > 0 {
		if err := s.proc.Reload(ctx); err != nil {
			log.Error().Err(err).Msg("proxy reload after certificate updates failed")
		} else {
			stats.Reloaded = true
		}
	}

	log.Debug().
		Dur("elapsed", s.clock.Now().Sub(start)).
		Int("domains", stats.Domains).
		Msg("certificate sync pass complete")

	return stats
}

// writeBundle writes the cert+key bundle for an instance and reports
// whether the on-disk content changed.
func (s *Scheduler) writeBundle(instance string, material Material) (bool, error) {
	bundle := make([]byte, 0, len(material.CertPEM)+len(material.KeyPEM)+1)
	bundle = append(bundle, material.CertPEM...)
	if len(bundle) > 0 && bundle[len(bundle)-1] != '\n' {
		bundle = append(bundle, '\n')
	}
	bundle = append(bundle, material.KeyPEM...)

	path := filepath.Join(s.dir, instance+".pem")
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, bundle) {
		return false, nil
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, bundle, 0o600); err != nil {
		return false, err
	}
	return true, nil
}
