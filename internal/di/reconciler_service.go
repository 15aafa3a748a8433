package di

import (
	"github.com/samber/do/v2"

	"github.com/dockgate/dockgate/internal/reconcile"
)

// ReconcilerService wraps the port reconciler.
type ReconcilerService struct {
	Reconciler *reconcile.Reconciler
}

// NewReconciler creates the reconciler over the store and oracle.
func NewReconciler(i do.Injector) (*ReconcilerService, error) {
	storeSvc := do.MustInvoke[*StoreService](i)
	oracleSvc := do.MustInvoke[*OracleService](i)
	logSvc := do.MustInvoke[*LoggerService](i)

	r := reconcile.New(storeSvc.Store, oracleSvc.Oracle, *logSvc.Logger)
	return &ReconcilerService{Reconciler: r}, nil
}
