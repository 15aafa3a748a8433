// Package di provides the service providers wired through samber/do v2.
package di

import "github.com/samber/do/v2"

// ConfigPathKey is the named key for the config path string.
const ConfigPathKey = "config.path"

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
//  1. Config (no dependencies)
//  2. Logger (depends on Config)
//  3. Cache (depends on Config, Logger)
//  4. Runtime (depends on Config, Logger) - docker CLI behind a breaker
//  5. Store (depends on Config, Logger)
//  6. Oracle (depends on Runtime, Cache, Logger)
//  7. Reconciler (depends on Store, Oracle, Logger)
//  8. Proxy (depends on Config, Logger) - process control + applier
//  9. CertSync (depends on Config, Store, Runtime, Proxy, Logger)
//  10. Engine (depends on all above services).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewCache)
	do.Provide(i, NewRuntime)
	do.Provide(i, NewStore)
	do.Provide(i, NewOracle)
	do.Provide(i, NewReconciler)
	do.Provide(i, NewProxy)
	do.Provide(i, NewCertSync)
	do.Provide(i, NewEngine)
}
