package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

// TestDB представляет тестовое локальное хранилище с удобными хелперами.
type TestDB struct {
	DB       *sql.DB
	Path     string // Путь к файлу БД (":memory:" для in-memory)
	TxRunner *TxRunner
}

// NewTestDBInMemory создает in-memory хранилище и применяет миграции до
// версии version (LatestVersion - полная схема).
// БД автоматически закрывается после завершения теста.
func NewTestDBInMemory(t *testing.T, version uint) *TestDB {
	t.Helper()

	db, err := NewInMemoryDB(context.Background())
	if err != nil {
		t.Fatalf("Failed to create in-memory test DB: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return newTestDB(t, db, MemoryPath, version)
}

// NewTestDBFile создает файловое хранилище во временной директории теста.
func NewTestDBFile(t *testing.T, version uint) *TestDB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pgagent.sqlite")
	db, err := NewDB(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to create file test DB: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return newTestDB(t, db, path, version)
}

func newTestDB(t *testing.T, db *sql.DB, path string, version uint) *TestDB {
	t.Helper()

	if version > 0 {
		if err := MigrateTo(db, version); err != nil {
			t.Fatalf("Failed to apply test migrations: %v", err)
		}
	}
	return &TestDB{DB: db, Path: path, TxRunner: NewTxRunner(db)}
}

// Exec выполняет SQL команду и проверяет отсутствие ошибок.
func (tdb *TestDB) Exec(t *testing.T, query string, args ...any) sql.Result {
	t.Helper()

	result, err := tdb.DB.ExecContext(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("Failed to execute query: %v", err)
	}
	return result
}

// QueryRow выполняет SQL запрос и возвращает одну строку.
func (tdb *TestDB) QueryRow(t *testing.T, query string, args ...any) *sql.Row {
	t.Helper()
	return tdb.DB.QueryRowContext(context.Background(), query, args...)
}

// MustSeedData вставляет тестовые данные и падает при ошибке.
func (tdb *TestDB) MustSeedData(t *testing.T, queries ...string) {
	t.Helper()

	for _, query := range queries {
		tdb.Exec(t, query)
	}
}

// CountRows возвращает количество строк в таблице.
func (tdb *TestDB) CountRows(t *testing.T, tableName string) int {
	t.Helper()

	var count int
	row := tdb.QueryRow(t, "SELECT COUNT(*) FROM "+tableName)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to count rows in table %s: %v", tableName, err)
	}
	return count
}

// TableExists проверяет существование таблицы.
func (tdb *TestDB) TableExists(t *testing.T, tableName string) bool {
	t.Helper()

	var count int
	row := tdb.QueryRow(t, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", tableName)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to check table existence: %v", err)
	}
	return count > 0
}

// ColumnExists проверяет наличие колонки в таблице.
func (tdb *TestDB) ColumnExists(t *testing.T, tableName, column string) bool {
	t.Helper()

	var count int
	row := tdb.QueryRow(t, "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", tableName, column)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to inspect table %s: %v", tableName, err)
	}
	return count > 0
}
