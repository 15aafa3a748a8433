package di

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/dockgate/dockgate/internal/oracle"
)

// Port lookups are cached just long enough to dedupe lookups inside one
// sweep without masking container restarts from the reconciler.
const oracleCacheTTL = 5 * time.Second

// OracleService wraps the container port oracle.
type OracleService struct {
	Oracle *oracle.Oracle
}

// NewOracle creates the port oracle over the container runtime.
func NewOracle(i do.Injector) (*OracleService, error) {
	rtSvc := do.MustInvoke[*RuntimeService](i)
	cacheSvc := do.MustInvoke[*CacheService](i)
	logSvc := do.MustInvoke[*LoggerService](i)

	o := oracle.New(rtSvc.Runtime,
		oracle.WithCache(cacheSvc.Cache, oracleCacheTTL),
		oracle.WithLogger(*logSvc.Logger),
	)

	return &OracleService{Oracle: o}, nil
}
