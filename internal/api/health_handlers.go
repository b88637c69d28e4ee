package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/sync/errgroup"
)

// healthTimeout bounds each component probe.
const healthTimeout = 2 * time.Second

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Probes the database, the search index and the live feed",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// Component status values, in increasing severity.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func severity(status string) int {
	switch status {
	case statusUnhealthy:
		return 2
	case statusDegraded:
		return 1
	default:
		return 0
	}
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Worst component status"`
	Version    string                     `json:"version" doc:"API version"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

type probe func(ctx context.Context) ComponentHealth

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	probes := map[string]probe{
		"database": s.checkDatabase,
		"search":   s.checkSearchIndex,
		"sse":      s.checkSSEManager,
	}

	var (
		mu         sync.Mutex
		components = make(map[string]ComponentHealth, len(probes))
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, check := range probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, healthTimeout)
			defer cancel()
			result := check(pctx)

			mu.Lock()
			components[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall := statusHealthy
	for _, c := range components {
		if severity(c.Status) > severity(overall) {
			overall = c.Status
		}
	}

	return &HealthOutput{Body: HealthResponse{
		Status:     overall,
		Version:    APIVersion,
		Components: components,
	}}, nil
}

// timed runs fn and stamps the result with its latency.
func timed(fn func() ComponentHealth) ComponentHealth {
	start := time.Now()
	c := fn()
	c.Latency = time.Since(start).String()
	return c
}

func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: statusDegraded, Message: "database not configured"}
	}
	return timed(func() ComponentHealth {
		if err := s.store.Ping(ctx); err != nil {
			return ComponentHealth{Status: statusUnhealthy, Message: "database ping failed"}
		}
		return ComponentHealth{Status: statusHealthy}
	})
}

// checkSearchIndex reports the document count. Zero documents is healthy.
func (s *Server) checkSearchIndex(context.Context) ComponentHealth {
	if s.services == nil || s.services.Search == nil {
		return ComponentHealth{Status: statusDegraded, Message: "search service not configured"}
	}
	return timed(func() ComponentHealth {
		n, err := s.services.Search.DocumentCount()
		if err != nil {
			return ComponentHealth{Status: statusUnhealthy, Message: "search index unreachable"}
		}
		return ComponentHealth{Status: statusHealthy, Message: strconv.FormatUint(n, 10) + " documents"}
	})
}

func (s *Server) checkSSEManager(context.Context) ComponentHealth {
	if s.sseManager == nil {
		return ComponentHealth{Status: statusDegraded, Message: "SSE manager not configured"}
	}
	return ComponentHealth{Status: statusHealthy, Message: formatSSEStatus(s.sseManager.ClientCount())}
}

func formatSSEStatus(count int) string {
	switch count {
	case 0:
		return "no connected clients"
	case 1:
		return "1 connected client"
	default:
		return strconv.Itoa(count) + " connected clients"
	}
}
