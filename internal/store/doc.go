// Package store defines the persistence contracts for cards and review logs.
// Implementations live under internal/platform; the services depend only on
// these interfaces.
package store
