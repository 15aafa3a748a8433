package haproxy

import "fmt"

// ConfigInvalidError means the staged configuration failed HAProxy's own
// syntax check. The live configuration is left untouched; the validator's
// output is surfaced verbatim.
type ConfigInvalidError struct {
	Output string
	Err    error
}

func (e *ConfigInvalidError) Error() string {
	return fmt.Sprintf("haproxy: staged config rejected by syntax check: %s", e.Output)
}

func (e *ConfigInvalidError) Unwrap() error {
	return e.Err
}

// ReloadFailedError means a valid configuration was installed but the proxy
// could be neither reloaded nor restarted. Live routing is stale relative
// to the store; this is the one applier failure that must reach the caller.
type ReloadFailedError struct {
	ReloadErr  error
	RestartErr error
}

func (e *ReloadFailedError) Error() string {
	return fmt.Sprintf("haproxy: reload failed (%v) and restart fallback failed (%v); live routing is stale",
		e.ReloadErr, e.RestartErr)
}
