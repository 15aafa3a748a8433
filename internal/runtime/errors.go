package runtime

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by ContainerRuntime implementations.
var (
	// ErrContainerNotFound means no container matched the requested name.
	ErrContainerNotFound = errors.New("runtime: container not found")

	// ErrNoBinding means the container publishes no binding for the
	// requested container port. Callers must treat this as "unknown",
	// never as port zero.
	ErrNoBinding = errors.New("runtime: no port binding")

	// ErrCircuitOpen means the runtime breaker is open and the call was
	// rejected without reaching the runtime.
	ErrCircuitOpen = errors.New("runtime: circuit open")
)

// CommandError wraps a failed runtime CLI invocation with its exit code and
// captured stderr. Callers branch on the sentinel errors above, never on
// stderr substrings.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("runtime: %v exited %d: %s", e.Args, e.ExitCode, e.Stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
