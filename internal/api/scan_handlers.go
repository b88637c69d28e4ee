package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scanlytics/scanlytics-server/internal/service"
)

func (s *Server) registerScanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "trackScan",
		Method:      http.MethodPost,
		Path:        "/api/qr/{id}/scan",
		Summary:     "Track scan",
		Description: "Records a scan of a QR code. Public and rate limited per client IP.",
		Tags:        []string{"Scans"},
		Middlewares: huma.Middlewares{s.rateLimitScans},
	}, s.handleTrackScan)

	huma.Register(s.api, huma.Operation{
		OperationID:   "followShortLink",
		Method:        http.MethodGet,
		Path:          service.ShortLinkPath + "{token}",
		Summary:       "Follow short link",
		Description:   "Records a scan of a dynamic QR code and redirects to its URL",
		Tags:          []string{"Scans"},
		DefaultStatus: http.StatusFound,
		Middlewares:   huma.Middlewares{s.rateLimitScans},
	}, s.handleFollowShortLink)
}

type TrackScanInput struct {
	ID        string `path:"id" doc:"QR code ID"`
	UserAgent string `header:"User-Agent"`
	ip        string
}

// Resolve implements huma.Resolver to pick up the client address.
func (i *TrackScanInput) Resolve(ctx huma.Context) []error {
	i.ip = clientIP(ctx.RemoteAddr())
	return nil
}

type FollowShortLinkInput struct {
	Token     string `path:"token" doc:"Short link token"`
	UserAgent string `header:"User-Agent"`
	ip        string
}

// Resolve implements huma.Resolver to pick up the client address.
func (i *FollowShortLinkInput) Resolve(ctx huma.Context) []error {
	i.ip = clientIP(ctx.RemoteAddr())
	return nil
}

type RedirectOutput struct {
	Location     string `header:"Location"`
	CacheControl string `header:"Cache-Control"`
}

func (s *Server) handleTrackScan(ctx context.Context, input *TrackScanInput) (*MessageOutput, error) {
	if _, err := s.services.Tracker.Track(ctx, input.ID, service.ScanSource{IP: input.ip, UserAgent: input.UserAgent}); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Scan tracked"}}, nil
}

func (s *Server) handleFollowShortLink(ctx context.Context, input *FollowShortLinkInput) (*RedirectOutput, error) {
	target, err := s.services.Tracker.TrackShortLink(ctx, input.Token, service.ScanSource{IP: input.ip, UserAgent: input.UserAgent})
	if err != nil {
		return nil, err
	}
	// Every visit must reach the server to be counted.
	return &RedirectOutput{Location: target, CacheControl: "no-store"}, nil
}
