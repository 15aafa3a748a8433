package di

import (
	"github.com/samber/do/v2"

	"github.com/dockgate/dockgate/internal/certsync"
)

// CertSyncService wraps the certificate sync scheduler.
type CertSyncService struct {
	Scheduler *certsync.Scheduler
}

// NewCertSync creates the certificate source and scheduler from
// configuration. The scheduler is created stopped; the serve command
// calls Start once the daemon is up.
func NewCertSync(i do.Injector) (*CertSyncService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	storeSvc := do.MustInvoke[*StoreService](i)
	rtSvc := do.MustInvoke[*RuntimeService](i)
	proxySvc := do.MustInvoke[*ProxyService](i)
	logSvc := do.MustInvoke[*LoggerService](i)

	syncCfg := cfgSvc.Config.CertSync
	source := certsync.NewHTTPSource(syncCfg.GetAgentURL(), nil)

	sched := certsync.NewScheduler(
		storeSvc.Store,
		source,
		rtSvc.Runtime,
		proxySvc.Process,
		cfgSvc.Config.Proxy.GetCertDir(),
		certsync.WithInterval(syncCfg.GetInterval()),
		certsync.WithWarmup(syncCfg.GetWarmup()),
		certsync.WithDebounce(syncCfg.GetDebounce()),
		certsync.WithRestartRate(syncCfg.GetRestartRate()),
		certsync.WithSchedulerLogger(*logSvc.Logger),
	)

	return &CertSyncService{Scheduler: sched}, nil
}

// Shutdown implements do.Shutdowner, stopping the scheduler loop.
func (c *CertSyncService) Shutdown() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	return nil
}
