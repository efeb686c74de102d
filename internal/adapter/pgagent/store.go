// Package pgagent stores jobs in pgAgent tables. The same code serves the
// pgagent extension in PostgreSQL and the SQLite local store; a Dialect
// covers the differences. Numeric row ids never leave the package.
package pgagent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pgagent-yaml/internal/compat"
	"pgagent-yaml/internal/job"
	"pgagent-yaml/internal/shared"
)

// TxRunner runs fn inside a transaction, committing when fn returns nil.
// Both platform/pg and platform/sqlite runners satisfy it.
type TxRunner interface {
	WithinReadTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error
}

// EchoFunc receives every statement Apply executes, before execution.
type EchoFunc func(query string, args []any)

// Store reads and writes jobs through a TxRunner.
type Store struct {
	runner  TxRunner
	dialect Dialect
	profile *compat.Profile
	echo    EchoFunc
}

// Option configures a Store.
type Option func(*Store)

// WithProfile fixes the schema profile instead of detecting it on first use.
func WithProfile(p compat.Profile) Option {
	return func(s *Store) {
		s.profile = &p
	}
}

// WithEcho reports every statement Apply executes.
func WithEcho(fn EchoFunc) Option {
	return func(s *Store) {
		s.echo = fn
	}
}

// New creates a Store.
func New(runner TxRunner, dialect Dialect, opts ...Option) *Store {
	s := &Store{runner: runner, dialect: dialect}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DetectVersion reads the schema version: pg_extension.extversion for
// pgagent, the pga_version table for the local store.
func (s *Store) DetectVersion(ctx context.Context) (compat.VersionInfo, error) {
	var raw string
	err := s.runner.WithinReadTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, s.dialect.SQL(s.dialect.versionQuery)).Scan(&raw)
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return compat.VersionInfo{}, &shared.StoreError{
			Op:    "detect version",
			Index: -1,
			Err:   fmt.Errorf("%s schema not found", s.dialect.Flavor),
		}
	case err != nil:
		return compat.VersionInfo{}, &shared.StoreError{Op: "detect version", Index: -1, Err: err}
	}
	return compat.ParseVersion(s.dialect.Flavor, raw), nil
}

// Profile returns the schema profile, detecting the version on first use.
func (s *Store) Profile(ctx context.Context) (compat.Profile, error) {
	if s.profile != nil {
		return *s.profile, nil
	}
	info, err := s.DetectVersion(ctx)
	if err != nil {
		return compat.Profile{}, err
	}
	p := compat.ProfileFor(info)
	s.profile = &p
	return p, nil
}

// Check verifies constraints pgAgent adds on top of the entity model.
// pgAgent runs steps in name order, so step names must sort (bytewise, as
// COLLATE "C") in sequence order or the stored order would differ.
func (s *Store) Check(jobs []job.Job) error {
	for _, j := range jobs {
		for i := 1; i < len(j.Steps); i++ {
			prev, cur := j.Steps[i-1], j.Steps[i]
			if prev.Name >= cur.Name {
				return shared.NewValidationError(
					fmt.Sprintf("job %q/step %d", j.Name, cur.Sequence), "name",
					fmt.Sprintf("%q must sort after step %d %q: pgAgent runs steps in name order",
						cur.Name, prev.Sequence, prev.Name))
			}
		}
	}
	return nil
}
