package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-srs/internal/store"
)

// SQLSTATE codes the card and review log tables can raise.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	// class 23 covers check and not-null failures from the schema
	classIntegrityConstraint = "23"
)

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// MapError maps a driver error onto the store error kinds the scheduling
// services match on.
//
// A duplicate card id only happens when two writers create the same card, so
// it is reported as a version conflict. The only foreign key is
// review_logs.card_id, so a violation means the card is gone.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrCardNotFound, err)
	}
	code := sqlState(err)
	switch {
	case code == codeUniqueViolation, code == codeSerializationFailure:
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	case code == codeForeignKeyViolation:
		return fmt.Errorf("%w: %v", store.ErrCardNotFound, err)
	case len(code) == 5 && code[:2] == classIntegrityConstraint:
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	return err
}
