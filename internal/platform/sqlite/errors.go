package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/phrazzld/scry-srs/internal/store"
	moderncsqlite "modernc.org/sqlite"
)

// Extended result codes from the SQLite C API.
const (
	sqliteConstraintCheck      = 275
	sqliteConstraintForeignKey = 787
	sqliteConstraintNotNull    = 1299
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

func errorCode(err error) int {
	var sqlErr *moderncsqlite.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code()
	}
	return 0
}

// MapError maps a driver error onto the store error kinds.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	switch errorCode(err) {
	case sqliteConstraintPrimaryKey, sqliteConstraintUnique:
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case sqliteConstraintForeignKey, sqliteConstraintCheck, sqliteConstraintNotNull:
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	return err
}

// IsForeignKeyViolation reports whether err is a foreign key constraint failure.
func IsForeignKeyViolation(err error) bool {
	return errorCode(err) == sqliteConstraintForeignKey
}

// IsUniqueViolation reports whether err is a primary key or unique constraint failure.
func IsUniqueViolation(err error) bool {
	code := errorCode(err)
	return code == sqliteConstraintPrimaryKey || code == sqliteConstraintUnique
}
