// Package app wires the store, the job files and the reconciler into the
// export and sync commands.
package app

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"pgagent-yaml/internal/adapter/files"
	"pgagent-yaml/internal/adapter/pgagent"
	"pgagent-yaml/internal/config"
	"pgagent-yaml/internal/platform/pg"
	"pgagent-yaml/internal/platform/sqlite"
	"pgagent-yaml/internal/shared"
)

// App runs commands against one store per call.
type App struct {
	log   *slog.Logger
	files *files.Dir
	in    *bufio.Reader
	out   io.Writer
	now   func() time.Time
}

// Option configures an App.
type Option func(*App)

// WithFS replaces the OS filesystem used for job files.
func WithFS(fs afero.Fs) Option {
	return func(a *App) {
		a.files = files.New(fs)
	}
}

// WithStreams replaces stdin and stdout. Plans, diffs and prompts go to out;
// logs go wherever the logger writes.
func WithStreams(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.in = bufio.NewReader(in)
		a.out = out
	}
}

// WithClock replaces time.Now for schedule warnings.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// New creates an App.
func New(log *slog.Logger, opts ...Option) *App {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	a := &App{
		log:   log,
		files: files.New(nil),
		in:    bufio.NewReader(os.Stdin),
		out:   os.Stdout,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type storeMode int

const (
	readOnly storeMode = iota
	readWrite
)

// openStore connects to the configured store. The returned func closes it.
// A local store opened for writing is created with the latest schema when
// the file is new; an existing one keeps its version.
func (a *App) openStore(ctx context.Context, c config.Connection, mode storeMode, opts ...pgagent.Option) (*pgagent.Store, func(), error) {
	if c.Local() {
		return a.openLocal(ctx, c.SQLite, mode, opts...)
	}

	dsn := c.DSN()
	a.log.Debug("connecting", slog.String("dsn", pg.RedactDSN(dsn)))
	db, closeDB, err := pg.OpenDB(ctx, dsn, pg.DefaultPoolOptions())
	if err != nil {
		return nil, nil, &shared.StoreError{Op: "connect", Index: -1, Err: err}
	}
	return pgagent.New(pg.NewTxRunner(db), pgagent.Postgres, opts...), closeDB, nil
}

func (a *App) openLocal(ctx context.Context, path string, mode storeMode, opts ...pgagent.Option) (*pgagent.Store, func(), error) {
	var (
		db  *sql.DB
		err error
	)
	if mode == readOnly {
		db, err = sqlite.NewReadOnlyDB(ctx, path)
	} else {
		db, err = sqlite.NewDB(ctx, path)
	}
	if err != nil {
		return nil, nil, &shared.StoreError{Op: "open local store", Index: -1, Err: err}
	}
	closeDB := func() { _ = db.Close() }

	if mode == readWrite {
		info, err := sqlite.EnsureSchema(ctx, db)
		if err != nil {
			closeDB()
			return nil, nil, &shared.StoreError{Op: "prepare local store", Index: -1, Err: err}
		}
		a.log.Debug("local store ready", slog.String("path", path), slog.Uint64("schema", uint64(info.Version)))
	}
	return pgagent.New(sqlite.NewTxRunner(db), pgagent.SQLite, opts...), closeDB, nil
}
