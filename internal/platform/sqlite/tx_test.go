package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTable(t *testing.T) *TestDB {
	t.Helper()

	tdb := NewTestDBInMemory(t, 0)
	tdb.Exec(t, "CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)")
	return tdb
}

func TestTxRunner_WithinTx_Commit(t *testing.T) {
	tdb := setupTable(t)
	ctx := context.Background()

	err := tdb.TxRunner.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES (?)", "a")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tdb.CountRows(t, "items"))
}

func TestTxRunner_WithinTx_RollbackOnError(t *testing.T) {
	tdb := setupTable(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tdb.TxRunner.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES (?)", "a"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, tdb.CountRows(t, "items"))
}

func TestTxRunner_WithinTx_RollbackOnStatementError(t *testing.T) {
	tdb := setupTable(t)
	ctx := context.Background()

	err := tdb.TxRunner.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES (?)", "a"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES (?)", "a")
		return err
	})
	require.Error(t, err)
	assert.Equal(t, 0, tdb.CountRows(t, "items"), "first insert must be rolled back")
}

func TestTxRunner_WithinReadTx(t *testing.T) {
	tdb := setupTable(t)
	tdb.MustSeedData(t, "INSERT INTO items (name) VALUES ('a'), ('b')")
	ctx := context.Background()

	var n int
	err := tdb.TxRunner.WithinReadTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, "SELECT count(*) FROM items").Scan(&n)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTxRunner_CancelledContext(t *testing.T) {
	tdb := setupTable(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := tdb.TxRunner.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
