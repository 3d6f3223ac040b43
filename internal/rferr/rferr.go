// Package rferr defines the error kinds raised by the core training and
// prediction engine.
package rferr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error so callers can branch with errors.Is
// without string matching.
type Kind string

const (
	// NotInitialized is raised when a PredBlock is queried while dormant.
	NotInitialized Kind = "NOT_INITIALIZED"
	// AlreadyInitialized is raised on a double install of immutables.
	AlreadyInitialized Kind = "ALREADY_INITIALIZED"
	// SignatureMismatch is raised when predict-time factor predictors
	// differ in identity from train-time ones.
	SignatureMismatch Kind = "SIGNATURE_MISMATCH"
	// LevelNotObserved is a non-fatal warning: a factor level seen at
	// predict time was never observed during training.
	LevelNotObserved Kind = "LEVEL_NOT_OBSERVED"
	// ArityError is raised for degenerate inputs: zero rows, zero
	// predictors, or nTree == 0.
	ArityError Kind = "ARITY_ERROR"
	// BudgetExceeded is raised when a tree's node count overshoots its
	// pre-allocated arena; recoverable by growing the arena and retrying.
	BudgetExceeded Kind = "BUDGET_EXCEEDED"
	// Internal marks an invariant violation. Always fatal.
	Internal Kind = "INTERNAL"
)

// Error is the engine's error type. It wraps an optional cause and carries
// a Kind so callers can use errors.Is/errors.As instead of string matching.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps cause in an Error of the given kind.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Of reports whether err's Kind matches kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Sentinels matched with errors.Is for conditions that aren't parameterized
// by a message. The prediction driver does not return ErrAllTreesBagged: a
// row with no contributing tree keeps a zero prediction.
var (
	// ErrAllTreesBagged indicates every tree bagged a row, so no
	// regression score can be computed for it.
	ErrAllTreesBagged = New(Internal, "all trees bagged this row")
)
