package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/scanlytics/scanlytics-server/internal/config"
	"github.com/scanlytics/scanlytics-server/internal/geoip"
	"github.com/scanlytics/scanlytics-server/internal/logger"
	"github.com/scanlytics/scanlytics-server/internal/ratelimit"
)

// geoipSettle debounces bursts of writes while a database update is copied in.
const geoipSettle = 2 * time.Second

// GeoIPHandle holds the scan origin resolver and its file watcher.
type GeoIPHandle struct {
	geoip.Resolver
	maxmind *geoip.MaxMind
	cancel  context.CancelFunc
	// watching is closed when the file watcher has returned; nil without one.
	watching chan struct{}
}

// Shutdown stops the watcher, waits for a reload in flight and then closes
// the database.
func (h *GeoIPHandle) Shutdown() error {
	h.cancel()
	if h.watching != nil {
		<-h.watching
	}
	if h.maxmind != nil {
		return h.maxmind.Close()
	}
	return nil
}

// ProvideGeoIP opens the MaxMind database when one is configured. Without
// one every scan is recorded with an empty location.
func ProvideGeoIP(i do.Injector) (*GeoIPHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	if cfg.GeoIP.DatabasePath == "" {
		log.Info("GeoIP disabled, scan locations will be empty")
		return &GeoIPHandle{Resolver: geoip.Noop{}, cancel: cancel}, nil
	}

	db, err := geoip.OpenMaxMind(cfg.GeoIP.DatabasePath, log.Component("geoip"))
	if err != nil {
		cancel()
		return nil, err
	}

	var watching chan struct{}
	if cfg.GeoIP.Watch {
		watching = make(chan struct{})
		go func() {
			defer close(watching)
			if err := db.Watch(ctx, geoipSettle); err != nil {
				log.Warn("GeoIP watcher stopped", "error", err)
			}
		}()
	}

	log.Info("GeoIP database loaded", "path", cfg.GeoIP.DatabasePath, "watch", cfg.GeoIP.Watch)

	return &GeoIPHandle{Resolver: db, maxmind: db, cancel: cancel, watching: watching}, nil
}

// ScanLimiterHandle wraps the per-IP limiter of the public scan routes.
// Limiter is nil when rate limiting is disabled.
type ScanLimiterHandle struct {
	Limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *ScanLimiterHandle) Shutdown() error {
	if h.Limiter != nil {
		h.Limiter.Stop()
	}
	return nil
}

// ProvideScanLimiter provides the scan endpoint rate limiter. A zero rate
// disables limiting.
func ProvideScanLimiter(i do.Injector) (*ScanLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.RateLimit.ScanRPS == 0 {
		log.Info("Scan rate limiting disabled")
		return &ScanLimiterHandle{}, nil
	}

	log.Info("Scan rate limiting enabled",
		"rps", cfg.RateLimit.ScanRPS,
		"burst", cfg.RateLimit.ScanBurst,
	)
	return &ScanLimiterHandle{Limiter: ratelimit.New(cfg.RateLimit.ScanRPS, cfg.RateLimit.ScanBurst)}, nil
}
