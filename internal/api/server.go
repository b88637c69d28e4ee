// Package api provides the HTTP API server and handlers for the Scanlytics service.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/scanlytics/scanlytics-server/internal/auth"
	"github.com/scanlytics/scanlytics-server/internal/metrics"
	"github.com/scanlytics/scanlytics-server/internal/ratelimit"
	"github.com/scanlytics/scanlytics-server/internal/service"
	"github.com/scanlytics/scanlytics-server/internal/sse"
	"github.com/scanlytics/scanlytics-server/internal/store"
)

// APIVersion is reported in the OpenAPI document.
const APIVersion = "1.0.0"

// Services groups the business services used by the handlers.
type Services struct {
	QRCodes   *service.QRCodeService
	Analytics *service.AnalyticsService
	Tracker   *service.ScanTracker
	Search    *service.SearchService
}

// Options configures the router.
type Options struct {
	CORSOrigins []string
	// ScanLimiter throttles the public scan routes per client IP. Nil disables limiting.
	ScanLimiter *ratelimit.KeyedRateLimiter
	// Metrics mounts /metrics and records request metrics.
	Metrics bool
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       store.Store
	services    *Services
	tokens      *auth.TokenService
	sseManager  *sse.Manager
	router      *chi.Mux
	api         huma.API
	scanLimiter *ratelimit.KeyedRateLimiter
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	st store.Store,
	services *Services,
	tokens *auth.TokenService,
	sseManager *sse.Manager,
	opts Options,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	router := chi.NewRouter()

	s := &Server{
		store:       st,
		services:    services,
		tokens:      tokens,
		sseManager:  sseManager,
		router:      router,
		scanLimiter: opts.ScanLimiter,
		logger:      logger,
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Scanlytics API", APIVersion)
	humaConfig.Info.Description = "QR code generation and scan analytics"
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler(logger)

	s.setupRoutes(opts)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	if opts.Metrics {
		s.router.Use(metrics.Middleware)
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}))
}

func (s *Server) setupRoutes(opts Options) {
	s.registerHealthRoutes()
	s.registerQRCodeRoutes()
	s.registerScanRoutes()
	s.registerAnalyticsRoutes()
	s.registerSearchRoutes()

	if s.sseManager != nil {
		stream := sse.NewHandler(s.sseManager, s.authenticateStream, s.logger.With("component", "sse"))
		s.router.Get("/api/analytics/stream", countStreamClients(stream).ServeHTTP)
	}

	if opts.Metrics {
		s.router.Handle("/metrics", metrics.Handler())
	}
}

// countStreamClients keeps the connected-clients gauge in step with open streams.
func countStreamClients(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.SSEClients.Inc()
		defer metrics.SSEClients.Dec()
		next.ServeHTTP(w, r)
	})
}
