package haproxy

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const liveConfigMode fs.FileMode = 0o644

// Applier installs a compiled configuration: stage, validate, install,
// reload. Each step gates the next, so an invalid configuration can never
// replace a working live one.
type Applier struct {
	staging string
	live    string
	proc    Process
	log     zerolog.Logger
}

// NewApplier creates an Applier writing to the given staging and live
// paths.
func NewApplier(staging, live string, proc Process, log zerolog.Logger) *Applier {
	return &Applier{
		staging: staging,
		live:    live,
		proc:    proc,
		log:     log,
	}
}

// LivePath returns the live configuration path.
func (a *Applier) LivePath() string {
	return a.live
}

// Apply deploys configText. Applying the configuration that is already
// live is a no-op: nothing is written and the proxy is not poked.
//
// On a syntax-check failure the live path is untouched and the
// *ConfigInvalidError carries the validator's output verbatim. On a reload
// failure the applier falls back to a full restart; when that also fails it
// returns *ReloadFailedError, the one applier error that must not be
// swallowed by callers.
func (a *Applier) Apply(ctx context.Context, configText string) error {
	if current, err := os.ReadFile(a.live); err == nil && bytes.Equal(current, []byte(configText)) {
		a.log.Debug().Str("path", a.live).Msg("proxy config unchanged, skipping apply")
		return nil
	}

	if err := a.stage(configText); err != nil {
		return err
	}

	if err := a.proc.CheckSyntax(ctx, a.staging); err != nil {
		a.log.Error().Err(err).Str("staging", a.staging).Msg("staged proxy config failed validation")
		return err
	}

	if err := a.install(configText); err != nil {
		return err
	}
	a.log.Info().Str("path", a.live).Int("bytes", len(configText)).Msg("installed proxy config")

	if err := a.proc.Reload(ctx); err != nil {
		a.log.Warn().Err(err).Msg("graceful proxy reload failed, attempting restart")
		if restartErr := a.proc.Restart(ctx); restartErr != nil {
			return &ReloadFailedError{ReloadErr: err, RestartErr: restartErr}
		}
	}

	return nil
}

func (a *Applier) stage(configText string) error {
	if err := os.MkdirAll(filepath.Dir(a.staging), 0o755); err != nil {
		return fmt.Errorf("haproxy: create staging directory: %w", err)
	}
	if err := os.WriteFile(a.staging, []byte(configText), liveConfigMode); err != nil {
		return fmt.Errorf("haproxy: write staging config: %w", err)
	}
	return nil
}

// install copies the validated staging content over the live path via
// temp-and-rename, preserving the live file's mode when one exists.
func (a *Applier) install(configText string) error {
	mode := liveConfigMode
	if info, err := os.Stat(a.live); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(a.live)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("haproxy: create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(a.live)+".tmp-*")
	if err != nil {
		return fmt.Errorf("haproxy: create temp config: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write([]byte(configText)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("haproxy: write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("haproxy: close temp config: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("haproxy: chmod temp config: %w", err)
	}
	if err := os.Rename(tmpPath, a.live); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("haproxy: install config: %w", err)
	}

	return nil
}
