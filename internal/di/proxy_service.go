package di

import (
	"github.com/samber/do/v2"

	"github.com/dockgate/dockgate/internal/haproxy"
)

// ProxyService bundles proxy process control and the config applier.
type ProxyService struct {
	Process haproxy.Process
	Applier *haproxy.Applier
}

// NewProxy creates the proxy process adapter and applier from
// configuration.
func NewProxy(i do.Injector) (*ProxyService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	logSvc := do.MustInvoke[*LoggerService](i)

	opts := []haproxy.ProcessOption{
		haproxy.WithProcessLogger(*logSvc.Logger),
	}
	proxyCfg := cfgSvc.Config.Proxy
	if proxyCfg.Binary != "" {
		opts = append(opts, haproxy.WithHAProxyBinary(proxyCfg.Binary))
	}
	if len(proxyCfg.ReloadCommand) > 0 {
		opts = append(opts, haproxy.WithReloadCommand(proxyCfg.ReloadCommand))
	}
	if len(proxyCfg.RestartCommand) > 0 {
		opts = append(opts, haproxy.WithRestartCommand(proxyCfg.RestartCommand))
	}
	if timeout, ok := proxyCfg.GetTimeoutOption().Get(); ok {
		opts = append(opts, haproxy.WithProcessTimeout(timeout))
	}

	proc := haproxy.NewExecProcess(opts...)
	applier := haproxy.NewApplier(
		proxyCfg.GetStagingPath(),
		proxyCfg.GetLivePath(),
		proc,
		*logSvc.Logger,
	)

	return &ProxyService{Process: proc, Applier: applier}, nil
}
