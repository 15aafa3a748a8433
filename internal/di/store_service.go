package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/dockgate/dockgate/internal/store"
)

// StoreService wraps the backend store.
type StoreService struct {
	Store *store.Store
}

// NewStore opens the backend store document. A missing or corrupt
// document is rebuilt from the live proxy config's marker comments.
func NewStore(i do.Injector) (*StoreService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	logSvc := do.MustInvoke[*LoggerService](i)

	st, err := store.Open(
		cfgSvc.Config.Store.GetPath(),
		cfgSvc.Config.Proxy.GetLivePath(),
		store.WithLogger(*logSvc.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open backend store: %w", err)
	}

	return &StoreService{Store: st}, nil
}
