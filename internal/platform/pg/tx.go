package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TxRunner выполняет код внутри транзакции по схеме "функция обратного
// вызова": коммит при успехе, откат при любой ошибке.
type TxRunner struct {
	DB *sql.DB
}

// NewTxRunner создает новый TxRunner поверх открытого подключения.
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{DB: db}
}

// ReadOptions - снимок для чтения: все запросы одной транзакции видят одно
// и то же состояние таблиц pgagent.
var ReadOptions = sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// WithinTx выполняет fn внутри транзакции записи.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return r.WithinTxWithOptions(ctx, nil, fn)
}

// WithinReadTx выполняет fn внутри read-only транзакции repeatable read.
func (r *TxRunner) WithinReadTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	opts := ReadOptions
	return r.WithinTxWithOptions(ctx, &opts, fn)
}

// WithinTxWithOptions выполняет fn внутри транзакции с заданными опциями.
// Если fn возвращает ошибку, транзакция откатывается и возвращается ошибка fn.
func (r *TxRunner) WithinTxWithOptions(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
