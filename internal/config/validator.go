package config

import (
	"net/url"
)

// Valid logging levels.
var validLogLevels = map[string]bool{
	"":      true, // Empty defaults to info
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid logging formats.
var validLogFormats = map[string]bool{
	"":        true, // Empty defaults to json
	"json":    true,
	"console": true,
	"text":    true, // Alias for console
	"pretty":  true,
}

// Validate checks the configuration for errors. It validates value ranges
// and cross-field constraints and returns a ValidationError containing all
// errors found, or nil if valid.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateProxy(c, errs)
	validateDocker(c, errs)
	validateCertSync(c, errs)
	validateCache(c, errs)
	validateLogging(c, errs)

	return errs.ToError()
}

func validateProxy(c *Config, errs *ValidationError) {
	if c.Proxy.StatsPort < 0 || c.Proxy.StatsPort > 65535 {
		errs.Addf("proxy.stats_port must be 0-65535 (got %d)", c.Proxy.StatsPort)
	}
	if c.Proxy.FallbackPortOffset < 0 || c.Proxy.FallbackPortOffset > 65535 {
		errs.Addf("proxy.fallback_port_offset must be 0-65535 (got %d)", c.Proxy.FallbackPortOffset)
	}
	if c.Proxy.TimeoutMS < 0 {
		errs.Add("proxy.timeout_ms must be >= 0")
	}

	// The staging file is renamed over the live file, which only works
	// within a filesystem; identical paths would self-clobber.
	if c.Proxy.StagingPath != "" && c.Proxy.StagingPath == c.Proxy.LivePath {
		errs.Add("proxy.staging_path and proxy.live_path must differ")
	}
}

func validateDocker(c *Config, errs *ValidationError) {
	if c.Docker.TimeoutMS < 0 {
		errs.Add("docker.timeout_ms must be >= 0")
	}
	if c.Docker.Breaker.FailureThreshold < 0 {
		errs.Add("docker.breaker.failure_threshold must be >= 0")
	}
	if c.Docker.Breaker.OpenSeconds < 0 {
		errs.Add("docker.breaker.open_seconds must be >= 0")
	}
}

func validateCertSync(c *Config, errs *ValidationError) {
	if c.CertSync.AgentURL != "" {
		u, err := url.Parse(c.CertSync.AgentURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs.Addf("cert_sync.agent_url must be an absolute URL (got %q)", c.CertSync.AgentURL)
		}
	}
	if c.CertSync.IntervalSeconds < 0 {
		errs.Add("cert_sync.interval_seconds must be >= 0")
	}
	if c.CertSync.WarmupSeconds < 0 {
		errs.Add("cert_sync.warmup_seconds must be >= 0")
	}
	if c.CertSync.DebounceSeconds < 0 {
		errs.Add("cert_sync.debounce_seconds must be >= 0")
	}
	if c.CertSync.RestartRate < 0 {
		errs.Add("cert_sync.restart_rate must be >= 0")
	}
}

func validateCache(c *Config, errs *ValidationError) {
	effective := c.GetEffectiveCacheConfig()
	if err := effective.Validate(); err != nil {
		errs.Add(err.Error())
	}
}

func validateLogging(c *Config, errs *ValidationError) {
	if !validLogLevels[c.Logging.Level] {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)",
			c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, text, pretty)",
			c.Logging.Format)
	}
}
