// Package di provides dependency injection configuration for the Scanlytics server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/scanlytics/scanlytics-server/internal/api"
	"github.com/scanlytics/scanlytics-server/internal/auth"
	"github.com/scanlytics/scanlytics-server/internal/config"
	"github.com/scanlytics/scanlytics-server/internal/di/providers"
	"github.com/scanlytics/scanlytics-server/internal/logger"
	"github.com/scanlytics/scanlytics-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()
	Register(injector)
	return injector
}

// Register adds every provider to injector. Tests register into their own
// scope and override the config.
func Register(injector do.Injector) {
	// Core
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage and live feed
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Workers
	do.Provide(injector, providers.ProvideGeoIP)
	do.Provide(injector, providers.ProvideScanLimiter)

	// Business services
	do.Provide(injector, providers.ProvideQRCodeService)
	do.Provide(injector, providers.ProvideAnalyticsService)
	do.Provide(injector, providers.ProvideScanTracker)

	// Server
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)
}

// Bootstrap builds every service eagerly, failing on the first provider
// error, and returns once the HTTP server is listening in the background.
func Bootstrap(injector do.Injector) error {
	steps := []func(do.Injector) error{
		invoke[*config.Config],
		invoke[*logger.Logger],
		invoke[providers.AuthKey],
		invoke[*providers.SSEManagerHandle],
		invoke[*providers.StoreHandle],
		invoke[*providers.SearchIndexHandle],
		invoke[*service.SearchService],
		invoke[*auth.TokenService],
		invoke[*providers.GeoIPHandle],
		invoke[*providers.ScanLimiterHandle],
		invoke[*service.QRCodeService],
		invoke[*service.AnalyticsService],
		invoke[*service.ScanTracker],
		invoke[*api.Server],
		invoke[*providers.HTTPServerHandle],
	}
	for _, step := range steps {
		if err := step(injector); err != nil {
			return err
		}
	}

	providers.TriggerSearchReindexIfNeeded(injector)
	return nil
}

func invoke[T any](i do.Injector) error {
	_, err := do.Invoke[T](i)
	return err
}
