package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite драйвер
)

// MemoryPath - путь in-memory базы данных.
const MemoryPath = ":memory:"

// TxLockMode определяет режим блокировки транзакций записи SQLite
type TxLockMode string

const (
	// TxLockDeferred - откладывает блокировку до первого чтения/записи (по умолчанию SQLite)
	TxLockDeferred TxLockMode = "deferred"
	// TxLockImmediate - немедленно захватывает RESERVED блокировку, чтобы
	// синхронизация не получила SQLITE_BUSY посреди пакета операций
	TxLockImmediate TxLockMode = "immediate"
)

// AccessMode определяет режим доступа к SQLite базе данных
type AccessMode string

const (
	// AccessModeReadWrite - режим чтения и записи (по умолчанию)
	AccessModeReadWrite AccessMode = "rw"
	// AccessModeReadOnly - режим только для чтения (export)
	AccessModeReadOnly AccessMode = "ro"
)

// DBOptions содержит настройки для локального хранилища SQLite.
type DBOptions struct {
	// ConnMaxLifetime - максимальное время жизни соединения
	ConnMaxLifetime time.Duration
	// MaxOpenConns - максимальное количество открытых соединений
	MaxOpenConns int
	// MaxIdleConns - максимальное количество idle соединений
	MaxIdleConns int
	// PingTimeout - таймаут для проверки соединения при открытии
	PingTimeout time.Duration
	// WALMode - использовать ли WAL режим
	WALMode bool
	// ForeignKeys - включить ли проверку внешних ключей
	ForeignKeys bool
	// BusyTimeout - таймаут ожидания при SQLITE_BUSY
	BusyTimeout time.Duration
	// TxLockMode - режим блокировки для транзакций записи
	TxLockMode TxLockMode
	// AccessMode - режим доступа к базе данных
	AccessMode AccessMode
}

// DefaultDBOptions возвращает настройки по умолчанию для утилиты командной строки.
func DefaultDBOptions() DBOptions {
	return DBOptions{
		ConnMaxLifetime: time.Hour,
		MaxOpenConns:    2, // одно чтение и одна транзакция записи за запуск
		MaxIdleConns:    1,
		PingTimeout:     5 * time.Second,
		WALMode:         true,
		ForeignKeys:     true,
		BusyTimeout:     5 * time.Second,
		TxLockMode:      TxLockImmediate,
		AccessMode:      AccessModeReadWrite,
	}
}

// NewDB открывает локальное хранилище с настройками по умолчанию.
// Файл и его директория создаются при необходимости.
func NewDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	return NewDBWithOptions(ctx, dbPath, DefaultDBOptions())
}

// NewReadOnlyDB открывает существующее хранилище только для чтения.
// Отсутствующий файл - ошибка, а не пустая база.
func NewReadOnlyDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	opts := DefaultDBOptions()
	opts.AccessMode = AccessModeReadOnly
	opts.WALMode = false // смена journal_mode требует записи
	return NewDBWithOptions(ctx, dbPath, opts)
}

// NewInMemoryDB создает in-memory SQLite базу данных для тестов.
// Ограничивает пул соединений до 1: у каждого соединения своя in-memory база.
func NewInMemoryDB(ctx context.Context) (*sql.DB, error) {
	opts := DefaultDBOptions()
	opts.WALMode = false // WAL не поддерживается для in-memory БД
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	opts.ConnMaxLifetime = 0 // соединение нельзя пересоздавать, иначе пропадет схема
	return NewDBWithOptions(ctx, MemoryPath, opts)
}

// NewDBWithOptions открывает SQLite с заданными параметрами.
func NewDBWithOptions(ctx context.Context, dbPath string, opts DBOptions) (*sql.DB, error) {
	if dbPath != MemoryPath && opts.AccessMode != AccessModeReadOnly {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", buildDSN(dbPath, opts))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	if opts.WALMode {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	return db, nil
}

// buildDSN строит DSN для modernc.org/sqlite. PRAGMA передаются через
// параметр _pragma: драйвер применяет их к каждому новому соединению пула,
// а не только к первому.
func buildDSN(dbPath string, opts DBOptions) string {
	params := url.Values{}

	if opts.BusyTimeout > 0 {
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	}
	if opts.ForeignKeys {
		params.Add("_pragma", "foreign_keys(1)")
	}
	if opts.TxLockMode != "" && opts.TxLockMode != TxLockDeferred {
		params.Set("_txlock", string(opts.TxLockMode))
	}

	name := dbPath
	if opts.AccessMode == AccessModeReadOnly {
		// mode=ro понимает только URI-форма имени файла
		name = "file:" + dbPath
		params.Set("mode", string(AccessModeReadOnly))
	}

	if len(params) == 0 {
		return name
	}
	return name + "?" + params.Encode()
}
