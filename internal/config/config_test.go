package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/dockgate/dockgate/internal/cache"
)

func TestDefaults(t *testing.T) {
	var cfg Config

	t.Run("store", func(t *testing.T) {
		assert.Equal(t, "/var/lib/dockgate/backends.json", cfg.Store.GetPath())
	})

	t.Run("proxy", func(t *testing.T) {
		assert.Equal(t, "/var/lib/dockgate/haproxy.staging.cfg", cfg.Proxy.GetStagingPath())
		assert.Equal(t, "/etc/haproxy/haproxy.cfg", cfg.Proxy.GetLivePath())
		assert.Equal(t, "/var/lib/dockgate/certs", cfg.Proxy.GetCertDir())
		assert.Equal(t, uint16(8404), cfg.Proxy.GetStatsPort())
		assert.Equal(t, uint16(10000), cfg.Proxy.GetFallbackPortOffset())
		assert.False(t, cfg.Proxy.GetTimeoutOption().IsPresent())
	})

	t.Run("cert sync", func(t *testing.T) {
		assert.Equal(t, "http://127.0.0.1:7801", cfg.CertSync.GetAgentURL())
		assert.Equal(t, time.Hour, cfg.CertSync.GetInterval())
		assert.Equal(t, 10*time.Second, cfg.CertSync.GetWarmup())
		assert.Equal(t, 5*time.Second, cfg.CertSync.GetDebounce())
		assert.InDelta(t, 1.0, cfg.CertSync.GetRestartRate(), 0.001)
	})

	t.Run("cache defaults to disabled", func(t *testing.T) {
		effective := cfg.GetEffectiveCacheConfig()
		assert.Equal(t, cache.ModeDisabled, effective.Mode)
	})
}

func TestExplicitValuesWin(t *testing.T) {
	cfg := Config{
		Proxy: ProxyConfig{
			StatsPort: 9000,
			TimeoutMS: 2500,
		},
		CertSync: CertSyncConfig{IntervalSeconds: 120},
		Cache:    cache.Config{Mode: cache.ModeSingle},
	}

	assert.Equal(t, uint16(9000), cfg.Proxy.GetStatsPort())
	assert.Equal(t, 2500*time.Millisecond, cfg.Proxy.GetTimeoutOption().MustGet())
	assert.Equal(t, 2*time.Minute, cfg.CertSync.GetInterval())

	effective := cfg.GetEffectiveCacheConfig()
	assert.Equal(t, cache.ModeSingle, effective.Mode)
	assert.Equal(t, cache.DefaultRistrettoConfig(), effective.Ristretto, "empty ristretto section gets defaults")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		l := LoggingConfig{Level: tt.level}
		assert.Equal(t, tt.want, l.ParseLevel(), "level %q", tt.level)
	}
}

func TestRuntimeSwap(t *testing.T) {
	first := &Config{Logging: LoggingConfig{Level: "info"}}
	second := &Config{Logging: LoggingConfig{Level: "debug"}}

	rt := NewRuntime(first)
	assert.Same(t, first, rt.Get())

	rt.Store(second)
	assert.Same(t, second, rt.Get())
}
