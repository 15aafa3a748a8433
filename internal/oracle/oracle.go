// Package oracle resolves a tenant instance name to the host port its
// database container is actually bound to. The live container is always
// authoritative; the backend store only caches what the oracle reports.
package oracle

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/dockgate/dockgate/internal/cache"
	"github.com/dockgate/dockgate/internal/runtime"
	"github.com/dockgate/dockgate/internal/store"
)

// Oracle looks up live port bindings through the container runtime,
// optionally memoizing results for a short TTL so a regeneration sweep does
// not inspect the same container twice.
type Oracle struct {
	rt    runtime.ContainerRuntime
	cache cache.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithCache enables read-through caching of resolutions. The TTL should be
// a few seconds at most; a long TTL would mask port drift from the
// reconciler.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *Oracle) {
		o.cache = c
		o.ttl = ttl
	}
}

// WithLogger sets the oracle's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Oracle) {
		o.log = log
	}
}

// New creates an Oracle over the given runtime.
func New(rt runtime.ContainerRuntime, opts ...Option) *Oracle {
	o := &Oracle{
		rt:  rt,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ResolvePort returns the live host port for the instance's database, or
// None when no matching container exists or the container publishes no
// binding for the family's standard port. None means "unknown" and must
// never be read as port zero. The error is non-nil only for runtime
// failures (daemon unreachable, circuit open); absent containers are an
// answer, not an error.
func (o *Oracle) ResolvePort(ctx context.Context, instance string, family store.Family) (mo.Option[uint16], error) {
	if port, ok := o.cached(ctx, instance, family); ok {
		return mo.Some(port), nil
	}

	containers, err := o.rt.List(ctx)
	if err != nil {
		return mo.None[uint16](), err
	}

	container, ok := runtime.MatchByName(containers, instance)
	if !ok {
		o.log.Debug().Str("instance", instance).Msg("no container matches instance")
		return mo.None[uint16](), nil
	}

	port, err := o.rt.PortBinding(ctx, container.ID, family.ContainerPort())
	switch {
	case errors.Is(err, runtime.ErrNoBinding):
		o.log.Debug().
			Str("instance", instance).
			Str("container", container.Name).
			Uint16("container_port", family.ContainerPort()).
			Msg("container has no binding for family port")
		return mo.None[uint16](), nil
	case err != nil:
		return mo.None[uint16](), err
	}

	o.remember(ctx, instance, family, port)
	return mo.Some(port), nil
}

func cacheKey(instance string, family store.Family) string {
	return "port:" + string(family) + ":" + instance
}

func (o *Oracle) cached(ctx context.Context, instance string, family store.Family) (uint16, bool) {
	if o.cache == nil {
		return 0, false
	}

	value, err := o.cache.Get(ctx, cacheKey(instance, family))
	if err != nil {
		return 0, false
	}
	port, err := strconv.ParseUint(string(value), 10, 16)
	if err != nil || port == 0 {
		return 0, false
	}
	return uint16(port), true
}

func (o *Oracle) remember(ctx context.Context, instance string, family store.Family, port uint16) {
	if o.cache == nil {
		return
	}

	key := cacheKey(instance, family)
	value := []byte(strconv.FormatUint(uint64(port), 10))
	if err := o.cache.SetWithTTL(ctx, key, value, o.ttl); err != nil {
		o.log.Debug().Err(err).Str("key", key).Msg("port cache write failed")
	}
}

// Forget drops any cached resolution for the instance, forcing the next
// lookup to hit the runtime. Called after container restarts.
func (o *Oracle) Forget(ctx context.Context, instance string, family store.Family) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Delete(ctx, cacheKey(instance, family)); err != nil {
		o.log.Debug().Err(err).Str("instance", instance).Msg("port cache invalidation failed")
	}
}
