package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	"github.com/scanlytics/scanlytics-server/internal/errors"
	"github.com/scanlytics/scanlytics-server/internal/geoip"
	"github.com/scanlytics/scanlytics-server/internal/id"
	"github.com/scanlytics/scanlytics-server/internal/metrics"
	"github.com/scanlytics/scanlytics-server/internal/sse"
	"github.com/scanlytics/scanlytics-server/internal/store"
	"github.com/scanlytics/scanlytics-server/internal/useragent"
)

// ScanSource describes the client that scanned a code.
type ScanSource struct {
	IP        string
	UserAgent string
}

// ScanTracker records scan events. It is used by public, unauthenticated routes.
type ScanTracker struct {
	catalog  store.Catalog
	events   store.EventLog
	resolver geoip.Resolver
	emitter  sse.Emitter
	logger   *slog.Logger
	now      func() time.Time
}

// NewScanTracker creates a new scan tracker.
func NewScanTracker(
	catalog store.Catalog,
	events store.EventLog,
	resolver geoip.Resolver,
	emitter sse.Emitter,
	logger *slog.Logger,
) *ScanTracker {
	if resolver == nil {
		resolver = geoip.Noop{}
	}
	if emitter == nil {
		emitter = sse.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ScanTracker{
		catalog:  catalog,
		events:   events,
		resolver: resolver,
		emitter:  emitter,
		logger:   logger,
		now:      time.Now,
	}
}

// Track records one scan of codeID.
//
// The event insert and the counter increment are separate writes. A failure
// between them leaves scanCount one short of the event log, which readers
// tolerate. Repeated calls record repeated scans.
func (t *ScanTracker) Track(ctx context.Context, codeID string, src ScanSource) (*domain.ScanEvent, error) {
	code, err := t.catalog.GetQRCode(ctx, codeID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, errors.NotFound("QR Code not found")
		}
		return nil, storeErr("get qr code", err)
	}
	return t.record(ctx, code, src)
}

// TrackShortLink records a scan of the dynamic code behind token and returns
// the URL to redirect to. Inactive codes are reported as not found.
func (t *ScanTracker) TrackShortLink(ctx context.Context, token string, src ScanSource) (string, error) {
	code, err := t.catalog.GetQRCodeByShortURL(ctx, token)
	if err != nil {
		if store.IsNotFound(err) {
			return "", errors.NotFound("Link not found")
		}
		return "", storeErr("get qr code", err)
	}
	if !code.IsActive {
		return "", errors.NotFound("Link not found")
	}

	target := domain.ContentTarget(code.Content)
	if target == "" {
		return "", errors.NotFound("Link has no destination")
	}

	if _, err := t.record(ctx, code, src); err != nil {
		return "", err
	}
	return target, nil
}

func (t *ScanTracker) record(ctx context.Context, code *domain.QRCode, src ScanSource) (*domain.ScanEvent, error) {
	eventID, err := id.EventID()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate event id")
	}

	ua := useragent.Parse(src.UserAgent)
	event := &domain.ScanEvent{
		ID:        eventID,
		QRCodeID:  code.ID,
		IPAddress: src.IP,
		UserAgent: src.UserAgent,
		Location:  t.resolver.Lookup(src.IP),
		Device:    ua.Device,
		Browser:   ua.Browser,
		OS:        ua.OS,
		CreatedAt: t.now().UTC(),
	}

	if err := t.events.CreateScanEvent(ctx, event); err != nil {
		if store.IsNotFound(err) {
			return nil, errors.NotFound("QR Code not found")
		}
		return nil, storeErr("create scan event", err)
	}

	if err := t.catalog.IncrementScanCount(ctx, code.ID); err != nil {
		return nil, storeErr("increment scan count", err)
	}
	code.ScanCount++

	metrics.ScansTracked.WithLabelValues(string(event.Device)).Inc()
	t.emitter.Emit(sse.NewScanRecordedEvent(code, event))

	t.logger.Debug("scan tracked",
		"qr_code_id", code.ID,
		"device", string(event.Device),
		"browser", event.Browser,
		"country", event.Location.Country)

	return event, nil
}
