// Package migrations runs the embedded goose migrations shipped by each
// storage backend.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/pressly/goose/v3"
)

// Supported commands.
const (
	CommandUp      = "up"
	CommandDown    = "down"
	CommandStatus  = "status"
	CommandVersion = "version"
)

// ErrUnknownCommand is returned for commands other than the ones above.
var ErrUnknownCommand = errors.New("unknown migration command")

// Source is a backend's migration set.
type Source struct {
	Dialect goose.Dialect
	FS      fs.FS
}

// Run executes command against db. Results are logged through the context
// logger; status and version report at info level.
func Run(ctx context.Context, db *sql.DB, src Source, command string) error {
	log := logger.FromContext(ctx).With(
		slog.String("component", "migrations"),
		slog.String("dialect", string(src.Dialect)),
		slog.String("command", command),
	)
	start := time.Now()

	provider, err := goose.NewProvider(src.Dialect, db, src.FS)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	switch strings.ToLower(command) {
	case CommandUp:
		results, err := provider.Up(ctx)
		for _, r := range results {
			logResult(log, "applied migration", r)
		}
		if err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
	case CommandDown:
		result, err := provider.Down(ctx)
		if result != nil {
			logResult(log, "rolled back migration", result)
		}
		if err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
	case CommandStatus:
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("reading migration status: %w", err)
		}
		for _, st := range statuses {
			log.Info("migration status",
				slog.Int64("version", st.Source.Version),
				slog.String("path", st.Source.Path),
				slog.String("state", string(st.State)))
		}
	case CommandVersion:
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		log.Info("schema version", slog.Int64("version", version))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}

	log.Debug("migration command finished", slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

func logResult(log *slog.Logger, msg string, r *goose.MigrationResult) {
	attrs := []any{
		slog.Duration("duration", r.Duration),
		slog.Bool("empty", r.Empty),
	}
	if r.Source != nil {
		attrs = append(attrs,
			slog.Int64("version", r.Source.Version),
			slog.String("path", r.Source.Path))
	}
	log.Info(msg, attrs...)
}

// Version returns the current schema version.
func Version(ctx context.Context, db *sql.DB, src Source) (int64, error) {
	provider, err := goose.NewProvider(src.Dialect, db, src.FS)
	if err != nil {
		return 0, fmt.Errorf("creating migration provider: %w", err)
	}
	return provider.GetDBVersion(ctx)
}
