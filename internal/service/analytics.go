package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	"github.com/scanlytics/scanlytics-server/internal/errors"
	"github.com/scanlytics/scanlytics-server/internal/metrics"
	"github.com/scanlytics/scanlytics-server/internal/store"
)

// Ranking limits for the analytics breakdowns.
const (
	TopLocations = 10
	TopQRCodes   = 5
	// DetailScanLimit caps the raw events returned by the detail view.
	DetailScanLimit = 100
)

// AnalyticsService turns the scan event log into dashboard and analytics views.
type AnalyticsService struct {
	catalog store.Catalog
	events  store.EventLog
	logger  *slog.Logger
	now     func() time.Time
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(catalog store.Catalog, events store.EventLog, logger *slog.Logger) *AnalyticsService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AnalyticsService{
		catalog: catalog,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

// Dashboard returns the four headline counts for userID's catalog.
// recentScans always covers the last 30 days.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID string) (*domain.DashboardStats, error) {
	defer metrics.ObserveAggregation("dashboard", time.Now())

	owned := store.QRCodeFilter{UserID: userID}

	totalCodes, err := s.catalog.CountQRCodes(ctx, owned)
	if err != nil {
		return nil, storeErr("count qr codes", err)
	}

	ids, err := s.catalog.QRCodeIDs(ctx, owned)
	if err != nil {
		return nil, storeErr("list qr code ids", err)
	}

	totalScans, err := s.events.CountScans(ctx, store.ScanFilter{QRCodeIDs: ids})
	if err != nil {
		return nil, storeErr("count scans", err)
	}

	active := true
	activeCodes, err := s.catalog.CountQRCodes(ctx, store.QRCodeFilter{UserID: userID, Active: &active})
	if err != nil {
		return nil, storeErr("count active qr codes", err)
	}

	recentScans, err := s.events.CountScans(ctx, store.ScanFilter{
		QRCodeIDs: ids,
		Since:     domain.DaysAgo(s.now(), domain.RecentWindowDays),
	})
	if err != nil {
		return nil, storeErr("count recent scans", err)
	}

	return &domain.DashboardStats{
		TotalQRCodes:  totalCodes,
		TotalScans:    totalScans,
		ActiveQRCodes: activeCodes,
		RecentScans:   recentScans,
	}, nil
}

// ScanAnalytics aggregates userID's scans over period. A non-empty qrCodeID
// narrows the scope to that code; a code the user does not own yields empty
// results rather than an error. Unknown periods behave as 30d.
func (s *AnalyticsService) ScanAnalytics(ctx context.Context, userID, period, qrCodeID string) (*domain.ScanAnalytics, error) {
	defer metrics.ObserveAggregation("scans", time.Now())

	filter := store.QRCodeFilter{UserID: userID}
	if qrCodeID != "" {
		filter.IDs = []string{qrCodeID}
	}

	ids, err := s.catalog.QRCodeIDs(ctx, filter)
	if err != nil {
		return nil, storeErr("list qr code ids", err)
	}

	return s.Aggregate(ctx, ids, domain.ParsePeriod(period))
}

// Aggregate computes the five analytics result sets over events of ids
// created within period. The sub-queries are independent and run
// concurrently; any failure fails the whole result.
func (s *AnalyticsService) Aggregate(ctx context.Context, ids []string, period domain.Period) (*domain.ScanAnalytics, error) {
	result := domain.EmptyScanAnalytics()
	if len(ids) == 0 {
		return result, nil
	}

	filter := store.ScanFilter{QRCodeIDs: ids, Since: period.Since(s.now())}

	var topBuckets []domain.Bucket
	g, gctx := errgroup.WithContext(ctx)

	group := func(dst *[]domain.Bucket, q store.GroupQuery, what string) {
		g.Go(func() error {
			buckets, err := s.events.GroupScans(gctx, q)
			if err != nil {
				return fmt.Errorf("%s: %w", what, err)
			}
			*dst = buckets
			return nil
		})
	}

	group(&result.ScansOverTime, store.GroupQuery{Filter: filter, By: store.ByDay, Order: store.OrderByKey}, "scans over time")
	group(&result.DeviceBreakdown, store.GroupQuery{Filter: filter, By: store.ByDevice}, "device breakdown")
	group(&result.LocationBreakdown, store.GroupQuery{
		Filter: filter, By: store.ByCountry, Order: store.OrderByCountDesc, Limit: TopLocations,
	}, "location breakdown")
	group(&result.BrowserBreakdown, store.GroupQuery{Filter: filter, By: store.ByBrowser}, "browser breakdown")
	group(&topBuckets, store.GroupQuery{
		Filter: filter, By: store.ByQRCode, Order: store.OrderByCountDesc, Limit: TopQRCodes,
	}, "top qr codes")

	if err := g.Wait(); err != nil {
		return nil, storeErr("aggregate scans", err)
	}

	top, err := s.enrichTopCodes(ctx, topBuckets)
	if err != nil {
		return nil, err
	}
	result.TopQRCodes = top

	s.logger.Debug("aggregated scans",
		"qr_codes", len(ids),
		"period", string(period),
		"days", len(result.ScansOverTime),
		"scans", domain.Sum(result.ScansOverTime))

	return result, nil
}

// enrichTopCodes joins ranked buckets with the catalog in one batch lookup.
// Codes deleted since their events were recorded keep their rank with nil
// title and type.
func (s *AnalyticsService) enrichTopCodes(ctx context.Context, buckets []domain.Bucket) ([]domain.TopCode, error) {
	top := make([]domain.TopCode, 0, len(buckets))
	if len(buckets) == 0 {
		return top, nil
	}

	ids := make([]string, 0, len(buckets))
	for _, b := range buckets {
		ids = append(ids, b.KeyString())
	}

	codes, err := s.catalog.GetQRCodesByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr("look up top qr codes", err)
	}

	for _, b := range buckets {
		entry := domain.TopCode{ID: b.KeyString(), Count: b.Count}
		if code, ok := codes[entry.ID]; ok {
			title, typ := code.Title, code.Type
			entry.Title = &title
			entry.Type = &typ
		}
		top = append(top, entry)
	}
	return top, nil
}

// Detail returns one code with its newest events and its 30-day series.
func (s *AnalyticsService) Detail(ctx context.Context, userID, codeID string) (*domain.QRCodeDetail, error) {
	defer metrics.ObserveAggregation("detail", time.Now())

	code, err := s.ownedCode(ctx, userID, codeID)
	if err != nil {
		return nil, err
	}

	scans, err := s.events.FindScans(ctx, store.ScanQuery{
		Filter: store.ScanFilter{QRCodeIDs: []string{code.ID}},
		Limit:  DetailScanLimit,
	})
	if err != nil {
		return nil, storeErr("find scans", err)
	}

	series, err := s.events.GroupScans(ctx, store.GroupQuery{
		Filter: store.ScanFilter{
			QRCodeIDs: []string{code.ID},
			Since:     domain.DaysAgo(s.now(), domain.RecentWindowDays),
		},
		By:    store.ByDay,
		Order: store.OrderByKey,
	})
	if err != nil {
		return nil, storeErr("scans over time", err)
	}

	if scans == nil {
		scans = []*domain.ScanEvent{}
	}
	if series == nil {
		series = []domain.Bucket{}
	}

	return &domain.QRCodeDetail{QRCode: code, Scans: scans, ScansOverTime: series}, nil
}

// ownedCode loads a code and checks that userID owns it.
// Missing codes are reported before ownership.
func (s *AnalyticsService) ownedCode(ctx context.Context, userID, codeID string) (*domain.QRCode, error) {
	return loadOwnedCode(ctx, s.catalog, userID, codeID)
}

func loadOwnedCode(ctx context.Context, catalog store.Catalog, userID, codeID string) (*domain.QRCode, error) {
	code, err := catalog.GetQRCode(ctx, codeID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, errors.NotFound("QR Code not found")
		}
		return nil, storeErr("get qr code", err)
	}
	if !code.OwnedBy(userID) {
		return nil, errors.Forbidden("Access denied")
	}
	return code, nil
}

// storeErr wraps an unexpected store failure.
func storeErr(op string, err error) error {
	return errors.Wrap(err, errors.CodeInternal, op)
}
