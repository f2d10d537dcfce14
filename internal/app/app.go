// Package app assembles the stores, scheduler and services from configuration
// and owns their lifecycle.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/phrazzld/scry-srs/internal/api"
	"github.com/phrazzld/scry-srs/internal/config"
	"github.com/phrazzld/scry-srs/internal/domain/srs"
	"github.com/phrazzld/scry-srs/internal/mcptools"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/platform/migrations"
	"github.com/phrazzld/scry-srs/internal/platform/postgres"
	"github.com/phrazzld/scry-srs/internal/platform/sqlite"
	"github.com/phrazzld/scry-srs/internal/service/analytics"
	"github.com/phrazzld/scry-srs/internal/service/auth"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
	"github.com/phrazzld/scry-srs/internal/store"
)

// ShutdownTimeout bounds how long Serve waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// App holds the shared dependencies of every entry point.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *sql.DB

	Cards     store.CardStore
	Logs      store.ReviewLogStore
	Scheduler *srs.Scheduler

	CardReview card_review.CardReviewService
	Analytics  analytics.Service
	// JWT is nil when auth is disabled.
	JWT auth.JWTService

	// Clock supplies "now" to the services. Tests replace it.
	Clock func() time.Time
	// Version is reported by /health and the MCP handshake.
	Version string
}

// New opens the configured database, applies pending migrations when
// auto_migrate is set, and wires the services.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	ctx = logger.WithLogger(ctx, log)

	params, err := cfg.Scheduler.Params()
	if err != nil {
		return nil, fmt.Errorf("loading scheduler parameters: %w", err)
	}
	scheduler, err := srs.NewScheduler(params)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	loc, err := cfg.Analytics.Location()
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := Migrate(ctx, db, cfg.Database.Driver, migrations.CommandUp); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	a := &App{
		Config:    cfg,
		Logger:    log,
		DB:        db,
		Scheduler: scheduler,
		Clock:     time.Now,
		Version:   "dev",
	}
	a.Cards, a.Logs = newStores(cfg.Database.Driver, db, log)

	limits := card_review.QueueLimits{Default: cfg.Queue.DefaultLimit, Max: cfg.Queue.MaxLimit}
	a.CardReview = card_review.NewCardReviewService(db, a.Cards, a.Logs, scheduler, limits, log)
	a.Analytics = analytics.NewService(a.Cards, a.Logs, loc, log)

	if cfg.Auth.Enabled {
		a.JWT, err = auth.NewJWTService(cfg.Auth)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating token service: %w", err)
		}
	}

	log.Debug("application initialized",
		slog.String("driver", cfg.Database.Driver),
		slog.Bool("auth_enabled", cfg.Auth.Enabled),
		slog.String("timezone", loc.String()))
	return a, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(ctx, cfg.URL, cfg.MaxOpenConns)
	case "postgres":
		return postgres.Open(ctx, cfg.URL, cfg.MaxOpenConns)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func newStores(driver string, db *sql.DB, log *slog.Logger) (store.CardStore, store.ReviewLogStore) {
	if driver == "postgres" {
		return postgres.NewPostgresCardStore(db, log), postgres.NewPostgresReviewLogStore(db, log)
	}
	return sqlite.NewCardStore(db, log), sqlite.NewReviewLogStore(db, log)
}

// Migrate runs a migration command with the backend matching driver.
func Migrate(ctx context.Context, db *sql.DB, driver, command string) error {
	switch driver {
	case "sqlite":
		return sqlite.Migrate(ctx, db, command)
	case "postgres":
		return postgres.Migrate(ctx, db, command)
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Router returns the HTTP API handler.
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		CardReview: a.CardReview,
		Analytics:  a.Analytics,
		JWTService: a.JWT,
		DB:         a.DB,
		Clock:      a.Clock,
		Logger:     a.Logger,
		Version:    a.Version,
	})
}

// MCPServer returns the MCP tool server backed by the same services.
func (a *App) MCPServer() *server.MCPServer {
	return mcptools.NewServer(a.Version, a.CardReview, a.Analytics, mcptools.Clock(a.Clock))
}

// Serve runs the HTTP API on the configured port until ctx is canceled or the
// listener fails, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a.serve(ctx, srv, srv.ListenAndServe)
}

func (a *App) serve(ctx context.Context, srv *http.Server, listen func() error) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("starting server", slog.String("addr", srv.Addr))
		if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			a.Logger.Error("server failed", slog.Any("error", err))
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.Logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("server shutdown failed", slog.Any("error", err))
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.Logger.Info("server shutdown completed")
	return nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
