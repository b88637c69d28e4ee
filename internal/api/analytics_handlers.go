package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scanlytics/scanlytics-server/internal/domain"
)

func (s *Server) registerAnalyticsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getDashboard",
		Method:      http.MethodGet,
		Path:        "/api/analytics/dashboard",
		Summary:     "Dashboard summary",
		Description: "Returns code and scan totals for the caller",
		Tags:        []string{"Analytics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetDashboard)

	huma.Register(s.api, huma.Operation{
		OperationID: "getScanAnalytics",
		Method:      http.MethodGet,
		Path:        "/api/analytics/scans",
		Summary:     "Scan analytics",
		Description: "Returns the daily series, breakdowns and top codes for the caller's scans in a period",
		Tags:        []string{"Analytics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetScanAnalytics)

	huma.Register(s.api, huma.Operation{
		OperationID: "getQRCodeAnalytics",
		Method:      http.MethodGet,
		Path:        "/api/analytics/qr/{id}",
		Summary:     "QR code analytics",
		Description: "Returns one code with its latest scans and 30-day series",
		Tags:        []string{"Analytics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetQRCodeAnalytics)
}

// === DTOs ===

type DashboardInput struct {
	Authorization string `header:"Authorization"`
}

type DashboardResponse struct {
	Stats *domain.DashboardStats `json:"stats"`
}

type DashboardOutput struct {
	Body DashboardResponse
}

type ScanAnalyticsInput struct {
	Authorization string `header:"Authorization"`
	Period        string `query:"period" doc:"7d, 30d or 90d; anything else means 30d"`
	QRCodeID      string `query:"qrCodeId" doc:"Restrict to one of the caller's codes"`
}

type ScanAnalyticsResponse struct {
	Analytics *domain.ScanAnalytics `json:"analytics"`
}

type ScanAnalyticsOutput struct {
	Body ScanAnalyticsResponse
}

type QRCodeAnalyticsOutput struct {
	Body *domain.QRCodeDetail
}

// === Handlers ===

func (s *Server) handleGetDashboard(ctx context.Context, input *DashboardInput) (*DashboardOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	stats, err := s.services.Analytics.Dashboard(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &DashboardOutput{Body: DashboardResponse{Stats: stats}}, nil
}

func (s *Server) handleGetScanAnalytics(ctx context.Context, input *ScanAnalyticsInput) (*ScanAnalyticsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	analytics, err := s.services.Analytics.ScanAnalytics(ctx, userID, input.Period, input.QRCodeID)
	if err != nil {
		return nil, err
	}
	return &ScanAnalyticsOutput{Body: ScanAnalyticsResponse{Analytics: analytics}}, nil
}

func (s *Server) handleGetQRCodeAnalytics(ctx context.Context, input *QRCodeIDInput) (*QRCodeAnalyticsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	detail, err := s.services.Analytics.Detail(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &QRCodeAnalyticsOutput{Body: detail}, nil
}
