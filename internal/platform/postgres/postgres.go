package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/platform/migrations"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

// Migrations returns the embedded PostgreSQL migration set.
func Migrations() migrations.Source {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		// ALLOW-PANIC: the embedded directory is fixed at build time
		panic(err)
	}
	return migrations.Source{Dialect: goose.DialectPostgres, FS: sub}
}

// Migrate runs a migration command against db.
func Migrate(ctx context.Context, db *sql.DB, command string) error {
	return migrations.Run(ctx, db, Migrations(), command)
}

// Open opens a connection pool and verifies it with a ping.
func Open(ctx context.Context, url string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open(DriverName, url)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(max(1, maxOpenConns/2))
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	logger.FromContext(ctx).Debug("connected to postgres",
		slog.Int("max_open_conns", maxOpenConns))
	return db, nil
}

// filter accumulates WHERE clauses, numbering $n placeholders as it goes.
// Clauses use %s where the placeholder belongs.
type filter struct {
	clauses []string
	args    []any
}

func (f *filter) add(clause string, arg any) {
	f.args = append(f.args, arg)
	f.clauses = append(f.clauses, fmt.Sprintf(clause, f.next(0)))
}

// next returns the placeholder offset positions past the current argument count.
func (f *filter) next(offset int) string {
	return fmt.Sprintf("$%d", len(f.args)+offset)
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}
