package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDBOptions(t *testing.T) {
	opts := DefaultDBOptions()

	assert.Equal(t, time.Hour, opts.ConnMaxLifetime)
	assert.Equal(t, 2, opts.MaxOpenConns)
	assert.Equal(t, 1, opts.MaxIdleConns)
	assert.Equal(t, 5*time.Second, opts.PingTimeout)
	assert.True(t, opts.WALMode)
	assert.True(t, opts.ForeignKeys)
	assert.Equal(t, 5*time.Second, opts.BusyTimeout)
	assert.Equal(t, TxLockImmediate, opts.TxLockMode)
	assert.Equal(t, AccessModeReadWrite, opts.AccessMode)
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		dbPath   string
		opts     DBOptions
		expected string
	}{
		{
			name:     "default options",
			dbPath:   "/tmp/test.db",
			opts:     DefaultDBOptions(),
			expected: "/tmp/test.db?_pragma=busy_timeout%285000%29&_pragma=foreign_keys%281%29&_txlock=immediate",
		},
		{
			name:     "no options",
			dbPath:   MemoryPath,
			opts:     DBOptions{},
			expected: ":memory:",
		},
		{
			name:     "deferred lock is the driver default",
			dbPath:   "test.db",
			opts:     DBOptions{BusyTimeout: 10 * time.Second, TxLockMode: TxLockDeferred},
			expected: "test.db?_pragma=busy_timeout%2810000%29",
		},
		{
			name:     "read only uses uri form",
			dbPath:   "jobs.sqlite",
			opts:     DBOptions{AccessMode: AccessModeReadOnly},
			expected: "file:jobs.sqlite?mode=ro",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildDSN(tt.dbPath, tt.opts))
		})
	}
}

func TestNewDB_CreatesFileAndDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "jobs.sqlite")

	db, err := NewDB(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, "CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestNewDB_PragmasApplyToEveryConnection(t *testing.T) {
	ctx := context.Background()
	db, err := NewDB(ctx, filepath.Join(t.TempDir(), "jobs.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	// Две одновременно занятые транзакции гарантируют два разных соединения.
	tx1, err := db.BeginTx(ctx, &ReadOptions)
	require.NoError(t, err)
	defer tx1.Rollback()
	tx2, err := db.BeginTx(ctx, &ReadOptions)
	require.NoError(t, err)
	defer tx2.Rollback()

	var fk1, fk2 int
	require.NoError(t, tx1.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk1))
	require.NoError(t, tx2.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk2))
	assert.Equal(t, 1, fk1)
	assert.Equal(t, 1, fk2)
}

func TestNewReadOnlyDB(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jobs.sqlite")

	t.Run("missing file", func(t *testing.T) {
		_, err := NewReadOnlyDB(ctx, path)
		assert.Error(t, err)
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "read-only open must not create the file")
	})

	t.Run("rejects writes", func(t *testing.T) {
		rw, err := NewDB(ctx, path)
		require.NoError(t, err)
		_, err = rw.ExecContext(ctx, "CREATE TABLE t (id INTEGER)")
		require.NoError(t, err)
		require.NoError(t, rw.Close())

		ro, err := NewReadOnlyDB(ctx, path)
		require.NoError(t, err)
		defer ro.Close()

		var n int
		require.NoError(t, ro.QueryRowContext(ctx, "SELECT count(*) FROM t").Scan(&n))
		_, err = ro.ExecContext(ctx, "INSERT INTO t (id) VALUES (1)")
		assert.Error(t, err)
	})
}

func TestNewInMemoryDB(t *testing.T) {
	ctx := context.Background()
	db, err := NewInMemoryDB(ctx)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	_, err = db.ExecContext(ctx, "CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO t (id) VALUES (1)")
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT count(*) FROM t").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestNewDBWithOptions_PingTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDBWithOptions(ctx, MemoryPath, DefaultDBOptions())
	assert.Error(t, err)
}
