package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/phrazzld/scry-srs/internal/platform/sqlite"
	"github.com/phrazzld/scry-srs/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.OpenInMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countCards(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM cards`).Scan(&n))
	return n
}

const insertCard = `INSERT INTO cards (id, deck_id, state, difficulty, stability, due, created_at, updated_at)
	VALUES (?, ?, 0, 5, 1, 0, 0, 0)`

func TestRunInTransaction_Commit(t *testing.T) {
	t.Parallel()
	db := openDB(t)

	err := store.RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, insertCard, uuid.New(), uuid.New())
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countCards(t, db))
}

func TestRunInTransaction_RollbackOnError(t *testing.T) {
	t.Parallel()
	db := openDB(t)
	ctx, _, buf := logger.Capture(context.Background())

	fnErr := errors.New("scheduling failed")
	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertCard, uuid.New(), uuid.New()); err != nil {
			return err
		}
		return fnErr
	})
	assert.Same(t, fnErr, err)
	assert.Equal(t, 0, countCards(t, db))
	assert.Contains(t, buf.String(), "rolled back transaction")
}

func TestRunInTransaction_RollbackOnPanic(t *testing.T) {
	t.Parallel()
	db := openDB(t)

	assert.PanicsWithValue(t, "boom", func() {
		_ = store.RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, insertCard, uuid.New(), uuid.New()); err != nil {
				return err
			}
			panic("boom")
		})
	})
	assert.Equal(t, 0, countCards(t, db))
}

func TestRunInTransaction_BeginFails(t *testing.T) {
	t.Parallel()
	db := openDB(t)
	require.NoError(t, db.Close())

	err := store.RunInTransaction(context.Background(), db, func(context.Context, *sql.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, store.ErrTransactionFailed)
}
