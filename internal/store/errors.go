package store

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-srs/internal/domain"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert collides with an existing row.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a transaction cannot begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrCardNotFound matches both ErrNotFound and domain.ErrCardNotFound.
	ErrCardNotFound = fmt.Errorf("%w: %w", ErrNotFound, domain.ErrCardNotFound)

	// ErrConflict is returned by a versioned write whose expected version no
	// longer matches the stored row. It matches domain.ErrConflict.
	ErrConflict = fmt.Errorf("store: %w", domain.ErrConflict)
)

// IsNotFoundError reports whether err is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError adds the entity and operation to a persistence failure.
type StoreError struct {
	Entity    string // e.g. "card", "review_log"
	Operation string // e.g. "upsert", "list_due"
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s operation on %s failed: %v", e.Operation, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err with its entity and operation. A nil err stays nil.
func NewStoreError(entity, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Entity: entity, Operation: operation, Err: err}
}
