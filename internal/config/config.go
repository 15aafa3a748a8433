// Package config provides configuration loading and parsing for dockgate.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/dockgate/dockgate/internal/cache"
	"github.com/dockgate/dockgate/internal/runtime"
)

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// RuntimeConfig is the read interface over a hot-reloadable configuration.
// Components that need to observe config changes should use this instead of
// holding a direct *Config pointer, which would go stale after a reload.
type RuntimeConfig interface {
	Get() *Config
}

// Config is the complete dockgate configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" toml:"store"`
	Proxy    ProxyConfig    `yaml:"proxy" toml:"proxy"`
	Docker   DockerConfig   `yaml:"docker" toml:"docker"`
	CertSync CertSyncConfig `yaml:"cert_sync" toml:"cert_sync"`
	Cache    cache.Config   `yaml:"cache" toml:"cache"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// StoreConfig locates the backend store document.
type StoreConfig struct {
	// Path is the JSON document holding all routing entries.
	Path string `yaml:"path" toml:"path"`
}

// GetPath returns the store path with default fallback.
func (s *StoreConfig) GetPath() string {
	if s.Path == "" {
		return "/var/lib/dockgate/backends.json"
	}
	return s.Path
}

// ProxyConfig defines where the generated HAProxy configuration lives and
// how the proxy process is driven.
type ProxyConfig struct {
	// StagingPath is where candidate configs are written for syntax
	// checking before installation.
	StagingPath string `yaml:"staging_path" toml:"staging_path"`

	// LivePath is the config file the proxy process actually loads.
	LivePath string `yaml:"live_path" toml:"live_path"`

	// CertDir holds the per-instance PEM bundles referenced by TLS
	// frontends.
	CertDir string `yaml:"cert_dir" toml:"cert_dir"`

	// Binary is the haproxy executable used for syntax checks.
	Binary string `yaml:"binary" toml:"binary"`

	// ReloadCommand and RestartCommand drive the proxy process.
	// Defaults use systemctl.
	ReloadCommand  []string `yaml:"reload_command" toml:"reload_command"`
	RestartCommand []string `yaml:"restart_command" toml:"restart_command"`

	// StatsPort is the management stats listener port.
	StatsPort int `yaml:"stats_port" toml:"stats_port"`

	// FallbackPortOffset is added to a family's public port when
	// assigning dedicated ports to tenants stranded behind a non-TLS
	// shared frontend.
	FallbackPortOffset int `yaml:"fallback_port_offset" toml:"fallback_port_offset"`

	// TimeoutMS bounds each proxy process invocation.
	TimeoutMS int `yaml:"timeout_ms" toml:"timeout_ms"`
}

// GetStagingPath returns the staging config path with default fallback.
func (p *ProxyConfig) GetStagingPath() string {
	if p.StagingPath == "" {
		return "/var/lib/dockgate/haproxy.staging.cfg"
	}
	return p.StagingPath
}

// GetLivePath returns the live config path with default fallback.
func (p *ProxyConfig) GetLivePath() string {
	if p.LivePath == "" {
		return "/etc/haproxy/haproxy.cfg"
	}
	return p.LivePath
}

// GetCertDir returns the certificate bundle directory with default
// fallback.
func (p *ProxyConfig) GetCertDir() string {
	if p.CertDir == "" {
		return "/var/lib/dockgate/certs"
	}
	return p.CertDir
}

// GetStatsPort returns the stats port with default fallback.
func (p *ProxyConfig) GetStatsPort() uint16 {
	if p.StatsPort <= 0 || p.StatsPort > 65535 {
		return 8404
	}
	return uint16(p.StatsPort)
}

// GetFallbackPortOffset returns the fallback port offset with default
// fallback.
func (p *ProxyConfig) GetFallbackPortOffset() uint16 {
	if p.FallbackPortOffset <= 0 || p.FallbackPortOffset > 65535 {
		return 10000
	}
	return uint16(p.FallbackPortOffset)
}

// GetTimeoutOption returns the process timeout as an Option.
// Returns None if TimeoutMS is zero (use default).
func (p *ProxyConfig) GetTimeoutOption() mo.Option[time.Duration] {
	if p.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(p.TimeoutMS) * time.Millisecond)
}

// DockerConfig drives the container runtime adapter.
type DockerConfig struct {
	// Binary is the docker executable.
	Binary string `yaml:"binary" toml:"binary"`

	// TimeoutMS bounds each docker invocation.
	TimeoutMS int `yaml:"timeout_ms" toml:"timeout_ms"`

	// Breaker configures the circuit breaker around the docker CLI.
	Breaker runtime.BreakerConfig `yaml:"breaker" toml:"breaker"`
}

// GetTimeoutOption returns the docker timeout as an Option.
// Returns None if TimeoutMS is zero (use default).
func (d *DockerConfig) GetTimeoutOption() mo.Option[time.Duration] {
	if d.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(d.TimeoutMS) * time.Millisecond)
}

// CertSyncConfig drives the certificate sync scheduler.
type CertSyncConfig struct {
	// AgentURL is the base URL of the local certificate agent.
	AgentURL string `yaml:"agent_url" toml:"agent_url"`

	// IntervalSeconds is the period between scheduled sync passes.
	IntervalSeconds int `yaml:"interval_seconds" toml:"interval_seconds"`

	// WarmupSeconds delays the initial pass after daemon startup.
	WarmupSeconds int `yaml:"warmup_seconds" toml:"warmup_seconds"`

	// DebounceSeconds collapses rapid backend additions into one pass.
	DebounceSeconds int `yaml:"debounce_seconds" toml:"debounce_seconds"`

	// RestartRate caps container restarts per second during a pass.
	RestartRate float64 `yaml:"restart_rate" toml:"restart_rate"`
}

// GetAgentURL returns the certificate agent URL with default fallback.
func (c *CertSyncConfig) GetAgentURL() string {
	if c.AgentURL == "" {
		return "http://127.0.0.1:7801"
	}
	return c.AgentURL
}

// GetInterval returns the sync interval with default fallback.
func (c *CertSyncConfig) GetInterval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// GetWarmup returns the warm-up delay with default fallback.
func (c *CertSyncConfig) GetWarmup() time.Duration {
	if c.WarmupSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.WarmupSeconds) * time.Second
}

// GetDebounce returns the debounce delay with default fallback.
func (c *CertSyncConfig) GetDebounce() time.Duration {
	if c.DebounceSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.DebounceSeconds) * time.Second
}

// GetRestartRate returns the restart rate with default fallback.
func (c *CertSyncConfig) GetRestartRate() float64 {
	if c.RestartRate <= 0 {
		return 1.0
	}
	return c.RestartRate
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"` // enable colored console output
}

// ParseLevel converts a string log level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// GetEffectiveCacheConfig returns the cache section with the mode
// defaulted to disabled when unset.
func (c *Config) GetEffectiveCacheConfig() cache.Config {
	out := c.Cache
	if out.Mode == "" {
		out.Mode = cache.ModeDisabled
	}
	if out.Mode == cache.ModeSingle && out.Ristretto == (cache.RistrettoConfig{}) {
		out.Ristretto = cache.DefaultRistrettoConfig()
	}
	return out
}
