package haproxy

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Process is the collaborator interface over the external proxy process.
// The engine never manages the process itself; it only asks it to validate
// a staged file and to pick up an installed one.
type Process interface {
	// CheckSyntax runs the proxy's own syntax check against the file at
	// path. Returns *ConfigInvalidError when the file is rejected.
	CheckSyntax(ctx context.Context, path string) error

	// Reload asks the running proxy to reload its configuration
	// gracefully.
	Reload(ctx context.Context) error

	// Restart fully restarts the proxy process.
	Restart(ctx context.Context) error
}

// ExecProcess drives HAProxy through its binary and the service manager.
// Every invocation carries its own timeout so a hung command fails that
// operation without wedging the caller's whole pass.
type ExecProcess struct {
	bin        string
	reloadCmd  []string
	restartCmd []string
	timeout    time.Duration
	log        zerolog.Logger
}

var _ Process = (*ExecProcess)(nil)

// ProcessOption configures an ExecProcess.
type ProcessOption func(*ExecProcess)

// WithHAProxyBinary overrides the haproxy binary path (default "haproxy").
func WithHAProxyBinary(bin string) ProcessOption {
	return func(p *ExecProcess) {
		p.bin = bin
	}
}

// WithReloadCommand overrides the graceful reload command.
func WithReloadCommand(cmd []string) ProcessOption {
	return func(p *ExecProcess) {
		if len(cmd) > 0 {
			p.reloadCmd = cmd
		}
	}
}

// WithRestartCommand overrides the full restart command.
func WithRestartCommand(cmd []string) ProcessOption {
	return func(p *ExecProcess) {
		if len(cmd) > 0 {
			p.restartCmd = cmd
		}
	}
}

// WithProcessTimeout overrides the per-invocation timeout (default 30s).
func WithProcessTimeout(timeout time.Duration) ProcessOption {
	return func(p *ExecProcess) {
		p.timeout = timeout
	}
}

// WithProcessLogger sets the logger for process invocations.
func WithProcessLogger(log zerolog.Logger) ProcessOption {
	return func(p *ExecProcess) {
		p.log = log
	}
}

// NewExecProcess creates the production Process implementation.
func NewExecProcess(opts ...ProcessOption) *ExecProcess {
	p := &ExecProcess{
		bin:        "haproxy",
		reloadCmd:  []string{"systemctl", "reload", "haproxy"},
		restartCmd: []string{"systemctl", "restart", "haproxy"},
		timeout:    30 * time.Second,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckSyntax implements Process.
func (p *ExecProcess) CheckSyntax(ctx context.Context, path string) error {
	output, err := p.run(ctx, p.bin, "-c", "-f", path)
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ConfigInvalidError{Output: output, Err: err}
	}
	return err
}

// Reload implements Process.
func (p *ExecProcess) Reload(ctx context.Context) error {
	p.log.Debug().Strs("cmd", p.reloadCmd).Msg("reloading proxy")
	_, err := p.run(ctx, p.reloadCmd[0], p.reloadCmd[1:]...)
	return err
}

// Restart implements Process.
func (p *ExecProcess) Restart(ctx context.Context) error {
	p.log.Debug().Strs("cmd", p.restartCmd).Msg("restarting proxy")
	_, err := p.run(ctx, p.restartCmd[0], p.restartCmd[1:]...)
	return err
}

func (p *ExecProcess) run(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	return strings.TrimSpace(combined.String()), err
}
