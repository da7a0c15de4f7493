package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	aigateway "github.com/smartsite-dev/api/internal/ai"
	aiapi "github.com/smartsite-dev/api/internal/api/ai"
	cloneapi "github.com/smartsite-dev/api/internal/api/clone"
	exportapi "github.com/smartsite-dev/api/internal/api/export"
	"github.com/smartsite-dev/api/internal/api/modulestatus"
	supportapi "github.com/smartsite-dev/api/internal/api/support"
	templateapi "github.com/smartsite-dev/api/internal/api/template"
	userapi "github.com/smartsite-dev/api/internal/api/user"
	"github.com/smartsite-dev/api/internal/blueprint"
	cloneengine "github.com/smartsite-dev/api/internal/clone"
	"github.com/smartsite-dev/api/internal/middleware"
	"github.com/smartsite-dev/api/internal/modules"
	"github.com/smartsite-dev/api/internal/store"
	supportengine "github.com/smartsite-dev/api/internal/support"
	"github.com/smartsite-dev/api/pkg/cache"
	"github.com/smartsite-dev/api/pkg/config"
	"github.com/smartsite-dev/api/pkg/logging"
)

// Version is the API version reported on /api/v1/version and in the
// X-SmartSite-API-Version header. Overridden at build time via ldflags.
var Version = "dev"

// VersionInfo contains build version information
type VersionInfo struct {
	Version string `json:"version"`
	APIID   string `json:"apiId"`
}

// Server represents the API server
type Server struct {
	echo         *echo.Echo
	config       *config.Config
	store        store.Store
	orchestrator *cloneengine.Orchestrator
	instanceID   string
}

// New creates a new API server instance and registers all routes
func New(
	e *echo.Echo,
	cfg *config.Config,
	st store.Store,
	c cache.Cache,
	instanceID string,
) *Server {
	extractor := blueprint.NewExtractor(st)
	provisioner := cloneengine.NewStoreProvisioner(st)
	orchestrator := cloneengine.NewOrchestrator(st, extractor, provisioner)
	registry := modules.NewRegistry(st, &cfg.Blueprint, c)
	tickets := supportengine.NewEngine(st)
	gateway := aigateway.NewGateway(cfg.AI)

	srv := &Server{
		echo:         e,
		config:       cfg,
		store:        st,
		orchestrator: orchestrator,
		instanceID:   instanceID,
	}

	// Create handlers with dependencies
	templateHandler := templateapi.NewHandler(st)
	cloneHandler := cloneapi.NewHandler(orchestrator)
	exportHandler := exportapi.NewHandler(st, extractor, registry, c)
	moduleHandler := modulestatus.NewHandler(registry)
	supportHandler := supportapi.NewHandler(tickets)
	aiHandler := aiapi.NewHandler(gateway)
	userHandler := userapi.NewHandler()

	// API routes with authentication
	api := e.Group("/api/v1")
	api.Use(middleware.APIKeyMiddleware(cfg.APIKeys))
	// Version header only on authenticated requests
	api.Use(middleware.VersionMiddleware(Version))

	// Register resource routes
	templateapi.RegisterRoutes(api.Group("/blueprint/templates"), templateHandler)
	cloneapi.RegisterRoutes(api.Group("/blueprint"), cloneHandler)
	exportapi.RegisterRoutes(api.Group("/blueprint"), exportHandler)
	modulestatus.RegisterRoutes(api.Group("/modules"), moduleHandler)
	supportapi.RegisterRoutes(api.Group("/support"), supportHandler)
	aiapi.RegisterRoutes(api.Group(""), aiHandler)
	userapi.RegisterRoutes(api.Group("/user"), userHandler)

	// Version endpoint (requires auth)
	api.GET("/version", srv.handleVersion)

	// Health check (no auth required, for probes)
	// Supports ?info=true to return the instance identity
	e.GET("/health", srv.handleHealth)

	// Prometheus scrape endpoint (no auth, expected to be firewalled)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return srv
}

// Orchestrator exposes the clone orchestrator so main can manage its
// worker lifecycle.
func (s *Server) Orchestrator() *cloneengine.Orchestrator {
	return s.orchestrator
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c echo.Context) error {
	if c.QueryParam("info") == "true" {
		info := map[string]string{
			"public_url": s.config.Server.PublicURL,
			"api_id":     s.instanceID,
		}
		return c.JSON(200, info)
	}
	return c.NoContent(200)
}

// handleVersion handles the version endpoint
func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, VersionInfo{Version: Version, APIID: s.instanceID})
}

// Start starts the API server
func (s *Server) Start() error {
	port := ":" + s.config.Server.Port
	logging.Logger.Info("Starting server", zap.String("port", port))
	return s.echo.Start(port)
}
