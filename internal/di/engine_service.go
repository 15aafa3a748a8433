package di

import (
	"github.com/samber/do/v2"

	"github.com/dockgate/dockgate/internal/engine"
)

// EngineService wraps the orchestrating engine.
type EngineService struct {
	Engine *engine.Engine
}

// NewEngine assembles the engine from its collaborators.
func NewEngine(i do.Injector) (*EngineService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	storeSvc := do.MustInvoke[*StoreService](i)
	oracleSvc := do.MustInvoke[*OracleService](i)
	recSvc := do.MustInvoke[*ReconcilerService](i)
	proxySvc := do.MustInvoke[*ProxyService](i)
	syncSvc := do.MustInvoke[*CertSyncService](i)
	logSvc := do.MustInvoke[*LoggerService](i)

	proxyCfg := cfgSvc.Config.Proxy
	eng := engine.New(
		storeSvc.Store,
		oracleSvc.Oracle,
		recSvc.Reconciler,
		proxySvc.Applier,
		proxyCfg.GetCertDir(),
		engine.WithStatsPort(proxyCfg.GetStatsPort()),
		engine.WithFallbackPortOffset(proxyCfg.GetFallbackPortOffset()),
		engine.WithScheduler(syncSvc.Scheduler),
		engine.WithLogger(*logSvc.Logger),
	)

	return &EngineService{Engine: eng}, nil
}
