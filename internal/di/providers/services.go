package providers

import (
	"github.com/samber/do/v2"

	"github.com/scanlytics/scanlytics-server/internal/config"
	"github.com/scanlytics/scanlytics-server/internal/logger"
	"github.com/scanlytics/scanlytics-server/internal/qrimage"
	"github.com/scanlytics/scanlytics-server/internal/service"
	"github.com/scanlytics/scanlytics-server/internal/validation"
)

// ProvideQRCodeService provides the QR code catalog service.
func ProvideQRCodeService(i do.Injector) (*service.QRCodeService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewQRCodeService(
		storeHandle.Store,
		qrimage.NewRenderer(),
		validation.New(),
		sseHandle.Manager,
		cfg.Server.PublicURL,
		log.Component("qrcodes"),
	), nil
}

// ProvideAnalyticsService provides the analytics aggregation service.
func ProvideAnalyticsService(i do.Injector) (*service.AnalyticsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAnalyticsService(storeHandle.Store, storeHandle.Store, log.Component("analytics")), nil
}

// ProvideScanTracker provides the scan tracking service.
func ProvideScanTracker(i do.Injector) (*service.ScanTracker, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	geo := do.MustInvoke[*GeoIPHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewScanTracker(
		storeHandle.Store,
		storeHandle.Store,
		geo.Resolver,
		sseHandle.Manager,
		log.Component("tracker"),
	), nil
}
