package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRunner(t *testing.T) (*TxRunner, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewTxRunner(db), mock
}

func TestWithinTx_Commit(t *testing.T) {
	t.Parallel()

	runner, mock := newMockRunner(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM pgagent.pga_job").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := runner.WithinTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM pgagent.pga_job WHERE jobid = $1", 1)
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	t.Parallel()

	runner, mock := newMockRunner(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := runner.WithinTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v, want %v", err, boom)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithinTx_BeginError(t *testing.T) {
	t.Parallel()

	runner, mock := newMockRunner(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection lost"))

	called := false
	err := runner.WithinReadTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Error("fn must not run when BEGIN fails")
	}
}

func TestWithinTx_CommitError(t *testing.T) {
	t.Parallel()

	runner, mock := newMockRunner(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := runner.WithinTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})
	if err == nil {
		t.Fatal("expected commit error")
	}
}

func TestReadOptions(t *testing.T) {
	t.Parallel()

	if !ReadOptions.ReadOnly {
		t.Error("read snapshot must be read-only")
	}
	if ReadOptions.Isolation != sql.LevelRepeatableRead {
		t.Errorf("Isolation = %v, want repeatable read", ReadOptions.Isolation)
	}
}
