package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/yuanmu/fundtrack/internal/database"
	"github.com/yuanmu/fundtrack/internal/modules/allocation"
	"github.com/yuanmu/fundtrack/internal/modules/calendar"
	"github.com/yuanmu/fundtrack/internal/modules/dca"
	"github.com/yuanmu/fundtrack/internal/modules/funds"
	"github.com/yuanmu/fundtrack/internal/modules/navs"
	"github.com/yuanmu/fundtrack/internal/modules/portfolio"
	"github.com/yuanmu/fundtrack/internal/modules/trading"
)

// Handlers collects the per-module HTTP handlers mounted by the server
type Handlers struct {
	Calendar   *calendar.Handler
	Navs       *navs.Handler
	Funds      *funds.Handler
	Trading    *trading.Handler
	Dca        *dca.Handler
	Allocation *allocation.Handler
	Portfolio  *portfolio.Handler
}

// Config holds server configuration
type Config struct {
	Port     int
	Log      zerolog.Logger
	DB       *database.DB
	Handlers Handlers
	DevMode  bool
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	db       *database.DB
	handlers Handlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		db:       cfg.DB,
		handlers: cfg.Handlers,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes mounts every module under /api
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	h := s.handlers
	s.router.Route("/api", func(r chi.Router) {
		r.Route("/trades", func(r chi.Router) {
			r.Post("/", h.Trading.HandleCreate)
			r.Get("/", h.Trading.HandleList)
			r.Post("/import", h.Trading.HandleImport)
			r.Post("/run-confirm", h.Trading.HandleRunConfirm)
			r.Get("/positions", h.Trading.HandlePositions)
			r.Get("/{id}", h.Trading.HandleGet)
			r.Post("/{id}/confirm", h.Trading.HandleManualConfirm)
			r.Post("/{id}/cancel", h.Trading.HandleCancel)
		})

		r.Route("/navs", func(r chi.Router) {
			r.Post("/", h.Navs.HandleUpsert)
			r.Get("/{fund}", h.Navs.HandleGet)
		})

		r.Route("/calendar", func(r chi.Router) {
			r.Post("/{market}/patch", h.Calendar.HandlePatch)
			r.Get("/{market}/coverage", h.Calendar.HandleCoverage)
			r.Get("/{market}/is-open", h.Calendar.HandleIsOpen)
		})

		r.Route("/dca", func(r chi.Router) {
			r.Put("/plans", h.Dca.HandleUpsertPlan)
			r.Get("/plans", h.Dca.HandleListPlans)
			r.Delete("/plans/{key}", h.Dca.HandleDeletePlan)
			r.Post("/plans/{key}/status", h.Dca.HandleSetStatus)
			r.Post("/plans/{key}/backfill", h.Dca.HandleBackfill)
			r.Post("/skip", h.Dca.HandleSkip)
			r.Post("/run", h.Dca.HandleRun)
		})

		r.Route("/funds", func(r chi.Router) {
			r.Put("/", h.Funds.HandleUpsert)
			r.Get("/", h.Funds.HandleList)
			r.Get("/{code}", h.Funds.HandleGet)
			r.Delete("/{code}", h.Funds.HandleDelete)
		})

		r.Route("/allocation", func(r chi.Router) {
			r.Put("/targets", h.Allocation.HandleUpsert)
			r.Get("/targets", h.Allocation.HandleList)
			r.Delete("/targets/{class}", h.Allocation.HandleDelete)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/valuation", h.Portfolio.HandleValuation)
			r.Get("/rebalance", h.Portfolio.HandleRebalance)
			r.Post("/report", h.Portfolio.HandleReport)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
