// Package shared contains the error taxonomy used across the application.
package shared

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for every failure category a caller can tell apart.
var (
	// ErrValidation indicates that an entity invariant was violated
	ErrValidation = errors.New("validation failed")

	// ErrParse indicates that a job definition file is malformed
	ErrParse = errors.New("parse failed")

	// ErrUnsupportedVersion indicates that the store schema is outside the supported set
	ErrUnsupportedVersion = errors.New("unsupported store version")

	// ErrStore indicates a store transaction or connectivity failure
	ErrStore = errors.New("store failure")

	// ErrUsage indicates invalid command line arguments or options
	ErrUsage = errors.New("usage error")

	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInternal indicates a programming error
	ErrInternal = errors.New("internal error")
)

// Kind represents a category of error for easier classification and handling.
type Kind int

const (
	// KindUnknown represents an unclassified error
	KindUnknown Kind = iota
	// KindValidation represents entity invariant violations
	KindValidation
	// KindParse represents malformed job definition files
	KindParse
	// KindUnsupportedVersion represents an unsupported store schema
	KindUnsupportedVersion
	// KindStore represents store transaction and connectivity failures
	KindStore
	// KindUsage represents invalid command line input
	KindUsage
	// KindNotFound represents missing resources (files, directories)
	KindNotFound
	// KindInternal represents programming errors
	KindInternal
	// KindCanceled represents context cancellation
	KindCanceled
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindParse:
		return "Parse"
	case KindUnsupportedVersion:
		return "UnsupportedVersion"
	case KindStore:
		return "Store"
	case KindUsage:
		return "Usage"
	case KindNotFound:
		return "NotFound"
	case KindInternal:
		return "Internal"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// kindToSentinel maps error kinds to their corresponding sentinel errors.
var kindToSentinel = map[Kind]error{
	KindValidation:         ErrValidation,
	KindParse:              ErrParse,
	KindUnsupportedVersion: ErrUnsupportedVersion,
	KindStore:              ErrStore,
	KindUsage:              ErrUsage,
	KindNotFound:           ErrNotFound,
	KindInternal:           ErrInternal,
}

// kindPriorities defines the deterministic order for error classification.
// A ParseError wrapping a ValidationError is reported as a parse failure
// because the location is what the user needs to fix the file.
var kindPriorities = []struct {
	kind Kind
	err  error
}{
	{KindCanceled, nil},
	{KindParse, ErrParse},
	{KindValidation, ErrValidation},
	{KindUnsupportedVersion, ErrUnsupportedVersion},
	{KindStore, ErrStore},
	{KindUsage, ErrUsage},
	{KindNotFound, ErrNotFound},
	{KindInternal, ErrInternal},
}

// KindOf returns the Kind of the given error by checking against known sentinel errors.
// It traverses the error chain using a deterministic priority order.
// Returns KindUnknown for unrecognized errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	for _, priority := range kindPriorities {
		if priority.kind == KindCanceled {
			if IsCanceled(err) {
				return KindCanceled
			}
			continue
		}
		if errors.Is(err, priority.err) {
			return priority.kind
		}
	}

	return KindUnknown
}

// HasKind reports whether the given error has the specified kind.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// SentinelOf returns the sentinel error for the given Kind.
// For KindUnknown and KindCanceled, it returns nil.
func SentinelOf(kind Kind) error {
	if sentinel, exists := kindToSentinel[kind]; exists {
		return sentinel
	}
	return nil
}

// MarkKind wraps an error with the sentinel error for the given kind,
// preserving the original error through error wrapping.
// Marking an error with a kind it already has returns the error unchanged.
func MarkKind(err error, kind Kind) error {
	if err == nil {
		return SentinelOf(kind)
	}

	sentinel := SentinelOf(kind)
	if sentinel == nil {
		return err
	}

	if KindOf(err) == kind {
		return err
	}

	return fmt.Errorf("%w: %w", sentinel, err)
}

// Wrap wraps an error with additional context.
// It returns a new error that formats as "context: err".
// If err is nil, Wrap returns nil.
// If context is empty, returns the original error.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// IsCanceled reports whether the error indicates a canceled context.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled)
}

// IsValidation reports whether the error indicates an entity invariant violation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsParse reports whether the error indicates a malformed definition file.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsUnsupportedVersion reports whether the error indicates an unsupported store schema.
func IsUnsupportedVersion(err error) bool {
	return errors.Is(err, ErrUnsupportedVersion)
}

// IsStore reports whether the error indicates a store failure.
func IsStore(err error) bool {
	return errors.Is(err, ErrStore)
}

// IsUsage reports whether the error indicates invalid command line input.
func IsUsage(err error) bool {
	return errors.Is(err, ErrUsage)
}

// IsNotFound reports whether the error indicates a resource not found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
