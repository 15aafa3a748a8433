// Package runtime abstracts the container runtime dockgate observes and
// pokes: listing containers, inspecting published port bindings, and
// restarting a tenant container after its TLS material changes.
//
// The engine only ever talks to the ContainerRuntime interface. The
// production implementation shells out to the docker CLI; tests substitute
// an in-memory fake.
package runtime

import "context"

// Container is one live container as reported by the runtime.
type Container struct {
	ID    string
	Name  string
	State string
}

// ContainerRuntime is the narrow collaborator interface consumed by the
// port oracle and the certificate sync scheduler.
type ContainerRuntime interface {
	// List returns all containers known to the runtime, running or not.
	List(ctx context.Context) ([]Container, error)

	// PortBinding returns the host-side port bound to containerPort/tcp
	// inside the given container. Returns ErrNoBinding when the container
	// publishes no such port.
	PortBinding(ctx context.Context, containerID string, containerPort uint16) (uint16, error)

	// Restart restarts the container whose name matches or contains the
	// given instance name. Returns ErrContainerNotFound when no container
	// matches.
	Restart(ctx context.Context, instance string) error
}
