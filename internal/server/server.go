// Package server provides the HTTP server and routing for AgriSage.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/agrisage/agrisage/internal/config"
	"github.com/agrisage/agrisage/internal/di"
	advisorieshandlers "github.com/agrisage/agrisage/internal/modules/advisories/handlers"
	farmershandlers "github.com/agrisage/agrisage/internal/modules/farmers/handlers"
	markethandlers "github.com/agrisage/agrisage/internal/modules/market/handlers"
	notificationshandlers "github.com/agrisage/agrisage/internal/modules/notifications/handlers"
	weatherhandlers "github.com/agrisage/agrisage/internal/modules/weather/handlers"
	cropshandlers "github.com/agrisage/agrisage/internal/refdata/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Port      int
	DevMode   bool
	Container *di.Container // DI container with all repositories and services
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
	priceStream    *PriceStream
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	systemHandlers := NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		cfg.Container.Databases(),
		cfg.Container.RunRepo,
		cfg.Container.Scheduler,
		cfg.Container.Jobs.Named(),
		cfg.Container.BackupService,
		cfg.Container.RestoreService,
	)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		container:      cfg.Container,
		systemHandlers: systemHandlers,
		priceStream:    NewPriceStream(cfg.Log),
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

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		c := s.container

		// Live price stream (WebSocket)
		r.Get("/prices/stream", s.priceStream.ServeHTTP)

		cropHandlers := cropshandlers.NewHandler(c.Catalog, s.log)
		farmerHandlers := farmershandlers.NewHandler(c.FarmerRepo, s.log)
		weatherHandlers := weatherhandlers.NewHandler(c.WeatherRepo, s.log)
		marketHandlers := markethandlers.NewHandler(c.MarketRepo, c.TrendService, s.log)
		advisoryHandlers := advisorieshandlers.NewHandler(c.AdvisoryService, c.ReportRepo, c.SnapshotRepo, s.log)
		notificationHandlers := notificationshandlers.NewHandler(c.NotificationRepo, s.log)

		// Recorded prices feed the stream hub
		marketHandlers.SetBroadcaster(s.priceStream)

		cropHandlers.RegisterRoutes(r)
		farmerHandlers.RegisterRoutes(r)
		weatherHandlers.RegisterRoutes(r)
		marketHandlers.RegisterRoutes(r)
		advisoryHandlers.RegisterRoutes(r)
		notificationHandlers.RegisterRoutes(r)

		// System monitoring and operations
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
			r.Post("/jobs/{name}/run", s.systemHandlers.HandleTriggerJob)

			r.Post("/backup", s.systemHandlers.HandleTriggerBackup)
			r.Get("/backups", s.systemHandlers.HandleListBackups)
			r.Post("/backups/{filename}/stage", s.systemHandlers.HandleStageRestore)
		})
	})
}

// handleHealth reports service health, pinging every database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	databases := make(map[string]string)
	healthy := true

	for name, db := range s.container.Databases() {
		if db == nil {
			databases[name] = "missing"
			healthy = false
			continue
		}
		if err := db.HealthCheck(r.Context()); err != nil {
			s.log.Error().Err(err).Str("database", name).Msg("Database health check failed")
			databases[name] = "unreachable"
			healthy = false
			continue
		}
		databases[name] = "ok"
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "agrisage",
		"version":   "1.0.0",
		"databases": databases,
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
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
