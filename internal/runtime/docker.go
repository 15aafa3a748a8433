package runtime

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// DockerCLI drives the local docker daemon through its CLI. Every
// invocation carries its own timeout; a hung daemon fails that one call,
// not the whole sweep the call belongs to.
type DockerCLI struct {
	bin     string
	timeout time.Duration
	log     zerolog.Logger
}

var _ ContainerRuntime = (*DockerCLI)(nil)

// DockerOption configures a DockerCLI.
type DockerOption func(*DockerCLI)

// WithBinary overrides the docker binary path (default "docker").
func WithBinary(bin string) DockerOption {
	return func(d *DockerCLI) {
		d.bin = bin
	}
}

// WithTimeout overrides the per-invocation timeout (default 10s).
func WithTimeout(timeout time.Duration) DockerOption {
	return func(d *DockerCLI) {
		d.timeout = timeout
	}
}

// WithDockerLogger sets the logger for CLI invocations.
func WithDockerLogger(log zerolog.Logger) DockerOption {
	return func(d *DockerCLI) {
		d.log = log
	}
}

// NewDockerCLI creates a docker CLI adapter.
func NewDockerCLI(opts ...DockerOption) *DockerCLI {
	d := &DockerCLI{
		bin:     "docker",
		timeout: 10 * time.Second,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// List returns all containers, running or not.
func (d *DockerCLI) List(ctx context.Context) ([]Container, error) {
	out, err := d.run(ctx, "ps", "--all", "--no-trunc", "--format", "{{json .}}")
	if err != nil {
		return nil, err
	}
	return parseContainerList(out), nil
}

// parseContainerList decodes the line-per-container JSON emitted by
// `docker ps --format '{{json .}}'`.
func parseContainerList(out []byte) []Container {
	var containers []Container
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		row := gjson.Parse(line)
		c := Container{
			ID:    row.Get("ID").String(),
			Name:  row.Get("Names").String(),
			State: row.Get("State").String(),
		}
		if c.ID == "" || c.Name == "" {
			continue
		}
		containers = append(containers, c)
	}
	return containers
}

// PortBinding inspects the container and returns the host port bound to
// containerPort/tcp.
func (d *DockerCLI) PortBinding(ctx context.Context, containerID string, containerPort uint16) (uint16, error) {
	out, err := d.run(ctx, "inspect", containerID)
	if err != nil {
		return 0, err
	}
	return parsePortBinding(out, containerPort)
}

// parsePortBinding extracts the first host port for containerPort/tcp from
// `docker inspect` output.
func parsePortBinding(inspectJSON []byte, containerPort uint16) (uint16, error) {
	path := fmt.Sprintf("0.NetworkSettings.Ports.%d/tcp.0.HostPort", containerPort)
	host := gjson.GetBytes(inspectJSON, path)
	if !host.Exists() || host.String() == "" {
		return 0, ErrNoBinding
	}

	port, err := strconv.ParseUint(host.String(), 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("%w: unparsable host port %q", ErrNoBinding, host.String())
	}
	return uint16(port), nil
}

// Restart restarts the container matching the instance name. The match is
// by exact name first, then substring, mirroring how tenant containers are
// named after their instance.
func (d *DockerCLI) Restart(ctx context.Context, instance string) error {
	containers, err := d.List(ctx)
	if err != nil {
		return err
	}

	target, ok := MatchByName(containers, instance)
	if !ok {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, instance)
	}

	d.log.Debug().
		Str("instance", instance).
		Str("container", target.Name).
		Msg("restarting container")

	_, err = d.run(ctx, "restart", target.ID)
	return err
}

// MatchByName finds the container owned by an instance: an exact name match
// wins, otherwise the first container whose name contains the instance name.
func MatchByName(containers []Container, instance string) (Container, bool) {
	for _, c := range containers {
		if c.Name == instance {
			return c, true
		}
	}
	for _, c := range containers {
		if strings.Contains(c.Name, instance) {
			return c, true
		}
	}
	return Container{}, false
}

// run executes the docker binary with a per-call timeout and returns stdout.
func (d *DockerCLI) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	d.log.Trace().
		Strs("args", args).
		Dur("elapsed", time.Since(start)).
		Msg("docker invocation")

	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &CommandError{
			Args:     append([]string{d.bin}, args...),
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}

	return stdout.Bytes(), nil
}
