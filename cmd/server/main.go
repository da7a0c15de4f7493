package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	internalMiddleware "github.com/smartsite-dev/api/internal/middleware"
	"github.com/smartsite-dev/api/internal/server"
	"github.com/smartsite-dev/api/internal/store"
	"github.com/smartsite-dev/api/pkg/cache"
	"github.com/smartsite-dev/api/pkg/config"
	"github.com/smartsite-dev/api/pkg/logging"
)

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the struct
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config-path", "config.local.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Configuration loaded from %s", configPath)

	// Initialize structured logging
	if err := logging.InitLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	logging.Logger.Info("Structured logging initialized",
		zap.String("level", cfg.Logging.Level),
		zap.String("format", cfg.Logging.Format))

	// Open the backing store. An empty DSN selects the in-memory store,
	// which is only suitable for local development.
	var st store.Store
	if cfg.Database.DSN != "" {
		gs, err := store.Open(cfg.Database.DSN)
		if err != nil {
			logging.Logger.Fatal("Failed to open database", zap.Error(err))
		}
		st = gs
		logging.Logger.Info("Database connection initialized")
	} else {
		st = store.NewMemoryStore()
		logging.Logger.Warn("No database DSN configured, using in-memory store")
	}

	// Cache backend (redis when configured, memory otherwise)
	c := cache.New(cfg.Redis)

	if len(cfg.APIKeys) == 0 {
		logging.Logger.Fatal("No API keys configured")
	}
	logging.Logger.Info("API keys loaded", zap.Int("count", len(cfg.APIKeys)))

	// Get or create the API instance ID
	ctx := context.Background()
	instanceID, err := st.GetSetting(ctx, store.SettingInstanceID)
	if errors.Is(err, store.ErrNotFound) {
		instanceID = uuid.New().String()
		if err := st.SetSetting(ctx, store.SettingInstanceID, instanceID); err != nil {
			logging.Logger.Fatal("Failed to persist instance ID", zap.Error(err))
		}
	} else if err != nil {
		logging.Logger.Fatal("Failed to read instance ID", zap.Error(err))
	}
	logging.Logger.Info("API instance ID initialized", zap.String("id", instanceID))

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Add global middleware (including API ID header)
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(internalMiddleware.APIIDMiddleware(instanceID))
	e.Use(internalMiddleware.MetricsMiddleware())

	// Initialize and start server
	srv := server.New(e, cfg, st, c, instanceID)
	logging.Logger.Info("Server initialized")

	// Start the clone worker
	srv.Orchestrator().Start()
	defer srv.Orchestrator().Stop()

	if err := srv.Start(); err != nil {
		logging.Logger.Fatal("Server error", zap.Error(err))
	}
}
