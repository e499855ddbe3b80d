// TaskDeck - Task Management API
//
// This is the main entry point for the TaskDeck server. TaskDeck is a
// self-hosted task management service exposing a JSON REST API with:
//   - JWT authentication (access + rotating refresh tokens)
//   - Per-user task ownership with admin oversight
//   - SQLite storage with embedded migrations
//   - An async audit trail of account and task activity
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mwilding/taskdeck/migrations"

	"github.com/mwilding/taskdeck/internal/api"
	"github.com/mwilding/taskdeck/internal/audit"
	"github.com/mwilding/taskdeck/internal/auth"
	"github.com/mwilding/taskdeck/internal/infrastructure/config"
	"github.com/mwilding/taskdeck/internal/infrastructure/database"
	"github.com/mwilding/taskdeck/internal/infrastructure/logging"
	"github.com/mwilding/taskdeck/internal/task"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting TaskDeck",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Wire up repositories
	userRepo := auth.NewUserRepository(db.DB)
	taskRepo := task.NewSQLiteRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Seed the initial admin account on first run
	if _, seedErr := auth.SeedAdmin(ctx, userRepo, log); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	authService := auth.NewService(userRepo, cfg.Security.JWT, log)
	authService.SetPasswordParams(auth.Argon2Params{
		Time:      cfg.Security.Password.Time,
		MemoryKiB: cfg.Security.Password.MemoryKiB,
		Threads:   cfg.Security.Password.Threads,
	})

	// Start the API server
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		Auth:      authService,
		UserRepo:  userRepo,
		TaskRepo:  taskRepo,
		AuditRepo: auditRepo,
		Logger:    log,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("TaskDeck stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TASKDECK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TASKDECK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
