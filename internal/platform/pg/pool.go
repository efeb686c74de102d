package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// PoolOptions содержит настройки для пула подключений PostgreSQL.
type PoolOptions struct {
	// MaxConns - максимальное количество соединений в пуле
	MaxConns int32
	// MinConns - минимальное количество соединений в пуле
	MinConns int32
	// MaxConnLifetime - максимальное время жизни соединения
	MaxConnLifetime time.Duration
	// PingTimeout - таймаут для проверки соединения при создании пула
	PingTimeout time.Duration
}

// DefaultPoolOptions возвращает настройки по умолчанию для утилиты командной
// строки: за один запуск открывается одно чтение и не более одной транзакции
// записи, поэтому держать соединения про запас не нужно.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:        2,
		MinConns:        0,
		MaxConnLifetime: time.Hour,
		PingTimeout:     10 * time.Second,
	}
}

// NewPool создает новый пул подключений к PostgreSQL с настройками по умолчанию.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return NewPoolWithOptions(ctx, dsn, DefaultPoolOptions())
}

// NewPoolWithOptions создает новый пул подключений к PostgreSQL с заданными параметрами.
func NewPoolWithOptions(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	cfg.MaxConnLifetime = opts.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Проверяем соединение с БД с настраиваемым таймаутом
	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// OpenDB открывает пул и оборачивает его в *sql.DB, чтобы хранилище работало
// через database/sql так же, как с SQLite. Возвращаемая функция закрывает
// и *sql.DB, и сам пул.
func OpenDB(ctx context.Context, dsn string, opts PoolOptions) (*sql.DB, func(), error) {
	pool, err := NewPoolWithOptions(ctx, dsn, opts)
	if err != nil {
		return nil, nil, err
	}
	db := stdlib.OpenDBFromPool(pool)
	closer := func() {
		_ = db.Close()
		pool.Close()
	}
	return db, closer, nil
}
