package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TxRunner выполняет код внутри транзакции по схеме "функция обратного
// вызова": коммит при успехе, откат при любой ошибке. Повторных попыток
// нет: ошибка транзакции синхронизации возвращается как есть.
type TxRunner struct {
	DB *sql.DB
}

// NewTxRunner создает новый TxRunner поверх открытой БД.
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{DB: db}
}

// ReadOptions - транзакция чтения. Уровень изоляции не задается: драйвер
// его игнорирует, а отложенная транзакция SQLite уже дает единый снимок.
// ReadOnly отключает _txlock=immediate для чтения.
var ReadOptions = sql.TxOptions{ReadOnly: true}

// WithinTx выполняет fn внутри транзакции записи (BEGIN IMMEDIATE при
// настройках по умолчанию).
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return r.within(ctx, nil, fn)
}

// WithinReadTx выполняет fn внутри транзакции чтения.
func (r *TxRunner) WithinReadTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	opts := ReadOptions
	return r.within(ctx, &opts, fn)
}

func (r *TxRunner) within(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx *sql.Tx) error) error {
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
