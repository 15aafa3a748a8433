package di

import (
	"github.com/samber/do/v2"

	"github.com/dockgate/dockgate/internal/runtime"
)

// RuntimeService wraps the container runtime: the docker CLI adapter
// behind a circuit breaker.
type RuntimeService struct {
	Runtime runtime.ContainerRuntime
}

// NewRuntime creates the container runtime from configuration.
func NewRuntime(i do.Injector) (*RuntimeService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	logSvc := do.MustInvoke[*LoggerService](i)

	opts := []runtime.DockerOption{
		runtime.WithDockerLogger(*logSvc.Logger),
	}
	if bin := cfgSvc.Config.Docker.Binary; bin != "" {
		opts = append(opts, runtime.WithBinary(bin))
	}
	if timeout, ok := cfgSvc.Config.Docker.GetTimeoutOption().Get(); ok {
		opts = append(opts, runtime.WithTimeout(timeout))
	}

	docker := runtime.NewDockerCLI(opts...)
	breaker := runtime.NewBreaker(docker, cfgSvc.Config.Docker.Breaker, *logSvc.Logger)

	return &RuntimeService{Runtime: breaker}, nil
}
