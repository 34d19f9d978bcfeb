package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alertcache/internal/banner"
	"alertcache/internal/config"
)

// Server represents the HTTP server with all configured routes and middleware.
type Server struct {
	app    *fiber.App
	config *config.ServerConfig
	logger *slog.Logger

	sessionHandler *SessionHandler
	refreshHandler *RefreshHandler
	catalogHandler *CatalogHandler
}

// ServerDeps contains all dependencies required to create a new Server.
type ServerDeps struct {
	Config         *config.ServerConfig
	Logger         *slog.Logger
	SessionHandler *SessionHandler
	RefreshHandler *RefreshHandler
	CatalogHandler *CatalogHandler

	// DisableRequestLog turns off the per-request access log.
	DisableRequestLog bool
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(deps ServerDeps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           deps.Config.ReadTimeout,
		WriteTimeout:          deps.Config.WriteTimeout,
		IdleTimeout:           deps.Config.IdleTimeout,
		ErrorHandler:          customErrorHandler,
	})

	s := &Server{
		app:            app,
		config:         deps.Config,
		logger:         deps.Logger,
		sessionHandler: deps.SessionHandler,
		refreshHandler: deps.RefreshHandler,
		catalogHandler: deps.CatalogHandler,
	}

	s.registerMiddleware(!deps.DisableRequestLog)
	s.registerRoutes()

	return s
}

// registerMiddleware sets up all middleware for the server.
func (s *Server) registerMiddleware(requestLog bool) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(requestid.New())

	if requestLog {
		s.app.Use(logger.New(logger.Config{
			Format:     "${time} | ${status} | ${latency} | ${method} | ${path} | ${error}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}
}

// registerRoutes sets up all API routes.
func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.healthCheck)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := s.app.Group("/v1")

	// Sessions and their stores
	v1.Post("/sessions", s.sessionHandler.Create)
	v1.Delete("/sessions/:sid", s.sessionHandler.Delete)

	sessions := v1.Group("/sessions/:sid")
	sessions.Get("/alerts", s.sessionHandler.Alerts)
	sessions.Get("/alerts/:id", s.sessionHandler.Alert)
	sessions.Get("/totals", s.sessionHandler.Totals)
	sessions.Get("/page-info", s.sessionHandler.PageInfo)
	sessions.Get("/data-entities/:eid/alerts", s.sessionHandler.DataEntityAlerts)
	sessions.Get("/integrity", s.sessionHandler.Integrity)
	sessions.Get("/snapshot", s.sessionHandler.Snapshot)

	// Fetches, applied asynchronously
	sessions.Post("/refresh", s.refreshHandler.Refresh)
	sessions.Post("/data-entities/:eid/refresh", s.refreshHandler.RefreshDataEntity)
	sessions.Put("/alerts/:id/status", s.refreshHandler.UpdateStatus)

	// Authoritative catalog
	v1.Get("/alerts", s.catalogHandler.List)
	v1.Get("/alerts/:id", s.catalogHandler.GetByID)
	v1.Put("/alerts/:id", s.catalogHandler.UpsertAlert)
	v1.Get("/owners/:owner/data-entities", s.catalogHandler.Entities)
	v1.Put("/owners/:owner/data-entities/:eid", s.catalogHandler.Assign)
	v1.Delete("/owners/:owner/data-entities/:eid", s.catalogHandler.Unassign)
}

// healthCheck returns the health status of the service.
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return Success(c, map[string]string{
		"status":  "healthy",
		"version": banner.Version,
	})
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.logger.Info("starting HTTP server", "address", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler handles errors returned from handlers.
func customErrorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		code := ErrCodeInternalError
		if e.Code == fiber.StatusNotFound {
			code = ErrCodeNotFound
		}
		return Error(c, e.Code, code, e.Message)
	}

	return InternalError(c, fmt.Sprintf("unexpected error: %v", err))
}
