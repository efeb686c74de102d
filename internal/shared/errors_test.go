package shared_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgagent-yaml/internal/shared"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		context  string
		expected string
		isNil    bool
	}{
		{
			name:    "nil error",
			err:     nil,
			context: "some context",
			isNil:   true,
		},
		{
			name:     "simple error",
			err:      errors.New("original"),
			context:  "wrapper",
			expected: "wrapper: original",
		},
		{
			name:     "empty context",
			err:      errors.New("original"),
			context:  "",
			expected: "original",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shared.Wrap(tt.err, tt.context)
			if tt.isNil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.expected, result.Error())
			assert.True(t, errors.Is(result, tt.err))
		})
	}
}

func TestKindOf(t *testing.T) {
	validation := shared.NewValidationError(`job "a"`, "steps", "duplicate sequence 1")
	parse := &shared.ParseError{Source: "a.yaml", Line: 3, Field: "minutes", Reason: "empty set", Err: validation}
	store := &shared.StoreError{Op: `DeleteJob(job="a")`, Index: 0, Err: errors.New("boom")}
	version := &shared.UnsupportedVersionError{Flavor: "pgagent", Version: "3.0", Supported: ">= 3.4"}

	tests := []struct {
		name string
		err  error
		want shared.Kind
	}{
		{"nil", nil, shared.KindUnknown},
		{"plain", errors.New("x"), shared.KindUnknown},
		{"validation", validation, shared.KindValidation},
		{"wrapped validation", fmt.Errorf("load: %w", validation), shared.KindValidation},
		{"parse wins over wrapped validation", parse, shared.KindParse},
		{"store", store, shared.KindStore},
		{"version", version, shared.KindUnsupportedVersion},
		{"canceled", fmt.Errorf("apply: %w", context.Canceled), shared.KindCanceled},
		{"not found", shared.Wrap(shared.ErrNotFound, "source"), shared.KindNotFound},
		{"joined picks highest priority", errors.Join(store, parse), shared.KindParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shared.KindOf(tt.err))
			assert.True(t, shared.HasKind(tt.err, tt.want))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "Validation", shared.KindValidation.String())
	assert.Equal(t, "Parse", shared.KindParse.String())
	assert.Equal(t, "UnsupportedVersion", shared.KindUnsupportedVersion.String())
	assert.Equal(t, "Store", shared.KindStore.String())
	assert.Equal(t, "Usage", shared.KindUsage.String())
	assert.Equal(t, "Unknown", shared.Kind(100).String())
}

func TestMarkKind(t *testing.T) {
	base := errors.New("connection refused")

	marked := shared.MarkKind(base, shared.KindStore)
	assert.True(t, shared.IsStore(marked))
	assert.ErrorIs(t, marked, base)

	// idempotent
	assert.Same(t, marked, shared.MarkKind(marked, shared.KindStore))

	assert.Equal(t, shared.ErrParse, shared.MarkKind(nil, shared.KindParse))
	assert.Equal(t, base, shared.MarkKind(base, shared.KindUnknown))
	assert.Equal(t, base, shared.MarkKind(base, shared.KindCanceled))
}

func TestTypedErrors_Messages(t *testing.T) {
	v := shared.NewValidationError(`job "nightly"/schedule "daily"`, "minutes", "empty set, use '*' for every minute")
	assert.Equal(t, `invalid job "nightly"/schedule "daily": minutes: empty set, use '*' for every minute`, v.Error())

	p := &shared.ParseError{Source: "jobs/nightly.yaml", Line: 12, Column: 5, Field: "steps[0].kind", Reason: `unknown kind "python"`}
	assert.Equal(t, `jobs/nightly.yaml:12:5: steps[0].kind: unknown kind "python"`, p.Error())

	p = &shared.ParseError{Source: "x.yaml", Err: errors.New("yaml: bad indent")}
	assert.Equal(t, "x.yaml: yaml: bad indent", p.Error())

	s := &shared.StoreError{Op: `UpdateStep(job="nightly", sequence=1)`, Index: 2, Err: errors.New("deadlock")}
	assert.Equal(t, `store: operation #3 UpdateStep(job="nightly", sequence=1): deadlock`, s.Error())

	s = &shared.StoreError{Index: -1, Err: errors.New("connection refused")}
	assert.Equal(t, "store: connection refused", s.Error())

	s = &shared.StoreError{Op: "list jobs", Index: -1, Err: errors.New("connection reset")}
	assert.Equal(t, "store: list jobs: connection reset", s.Error())

	u := &shared.UnsupportedVersionError{Flavor: "pgagent", Version: "3.0", Supported: ">= 3.4, < 4.3"}
	assert.Contains(t, u.Error(), "pgagent version 3.0 is not supported")
}

func TestErrorsAs(t *testing.T) {
	inner := shared.NewValidationError(`job "a"`, "name", "must not be empty")
	err := shared.Wrap(&shared.ParseError{Source: "a.yaml", Line: 1, Err: inner}, "load jobs")

	var perr *shared.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.Line)

	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Field)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, shared.ExitOK},
		{errors.New("x"), shared.ExitFailure},
		{shared.NewValidationError("job", "", "x"), shared.ExitValidation},
		{&shared.ParseError{Source: "a", Reason: "x"}, shared.ExitParse},
		{&shared.UnsupportedVersionError{}, shared.ExitUnsupportedVersion},
		{&shared.StoreError{Err: errors.New("x")}, shared.ExitStore},
		{shared.MarkKind(errors.New("unknown flag: --foo"), shared.KindUsage), shared.ExitUsage},
		{shared.Wrap(shared.ErrNotFound, "source"), shared.ExitFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shared.ExitCode(tt.err), "%v", tt.err)
	}
}
