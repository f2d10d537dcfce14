// Package sqlite provides embedded SQLite implementations of the store
// interfaces, backed by the pure-Go modernc.org/sqlite driver. It serves the
// single-user local mode and the module's store and service tests.
//
// Timestamps are stored as INTEGER microseconds since the Unix epoch in UTC,
// which keeps range comparisons and ordering exact.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/phrazzld/scry-srs/internal/platform/migrations"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

// Migrations returns the embedded SQLite migration set.
func Migrations() migrations.Source {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		// ALLOW-PANIC: the embedded directory is fixed at build time
		panic(err)
	}
	return migrations.Source{Dialect: goose.DialectSQLite3, FS: sub}
}

// Migrate runs a migration command against db.
func Migrate(ctx context.Context, db *sql.DB, command string) error {
	return migrations.Run(ctx, db, Migrations(), command)
}

// DSN builds a connection string for a database file with the pragmas every
// connection needs. A path that already has query parameters is extended.
func DSN(path string) string {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + pragmas + "&_pragma=journal_mode(WAL)"
}

// Open opens a database file and verifies the connection.
func Open(ctx context.Context, path string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open(DriverName, DSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}
	return db, nil
}

// OpenInMemory opens a private in-memory database and applies all migrations.
// The pool is limited to one connection because every SQLite connection to
// :memory: is a separate database.
func OpenInMemory(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(DriverName, "file::memory:?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	if err := Migrate(ctx, db, migrations.CommandUp); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

// filter accumulates WHERE clauses with positional ? arguments.
type filter struct {
	clauses []string
	args    []any
}

func (f *filter) add(clause string, args ...any) {
	f.clauses = append(f.clauses, clause)
	f.args = append(f.args, args...)
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}
