package shared

import (
	"fmt"
	"strings"
)

// ValidationError reports an entity invariant violation. Entity names the
// offending job, step or schedule (for example `job "nightly"/step 2`).
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError.
func NewValidationError(entity, field, reason string) *ValidationError {
	return &ValidationError{Entity: entity, Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid ")
	b.WriteString(e.Entity)
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ParseError reports a structurally invalid job definition.
// Line and Column are 1-based; zero means unknown.
type ParseError struct {
	Source string
	Line   int
	Column int
	Field  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ":%d", e.Column)
		}
	}
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	if e.Reason != "" {
		b.WriteString(e.Reason)
	} else if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is makes errors.Is(err, ErrParse) true.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnsupportedVersionError reports a store schema outside the supported set.
type UnsupportedVersionError struct {
	Flavor    string
	Version   string
	Supported string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("%s version %s is not supported (supported: %s), use --ignore-version to continue anyway",
		e.Flavor, e.Version, e.Supported)
}

// Is makes errors.Is(err, ErrUnsupportedVersion) true.
func (e *UnsupportedVersionError) Is(target error) bool {
	return target == ErrUnsupportedVersion
}

// StoreError reports a failed store transaction. Op describes the failed
// operation and Index is its position in the applied batch (-1 when the
// failure is not tied to an operation).
type StoreError struct {
	Op    string
	Index int
	Err   error
}

func (e *StoreError) Error() string {
	switch {
	case e.Op == "":
		return "store: " + e.Err.Error()
	case e.Index < 0:
		return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("store: operation #%d %s: %v", e.Index+1, e.Op, e.Err)
	}
}

// Is makes errors.Is(err, ErrStore) true.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
