// Package postgres provides PostgreSQL implementations of the store
// interfaces, using the pgx driver through database/sql. It owns the
// PostgreSQL schema as embedded goose migrations.
package postgres
