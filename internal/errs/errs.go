// Package errs defines the closed set of error kinds raised by the authorization core.
//
// Every error leaving the store, the resolver or the decision engine is tagged with a Kind so the
// HTTP boundary can map it to a status code with a lookup table instead of inspecting messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind uint8

const (
	// Internal is an unexpected failure (database down, bug).
	Internal Kind = iota
	// InvalidArgument is a malformed id, code or pagination input.
	InvalidArgument
	// NotFound is a referenced row that does not exist or is soft-deleted at mutation time.
	NotFound
	// Conflict is a unique constraint violation.
	Conflict
	// Constraint is a delete or update blocked by live dependents or a broken hierarchy.
	Constraint
	// ProtectedEntity is a mutation of a system entity by a principal lacking the elevated role.
	ProtectedEntity
	// Cache is an invalidation or rebuild failure of the authorization cache.
	Cache
)

var kindNames = map[Kind]string{
	Internal:        "internal",
	InvalidArgument: "invalid_argument",
	NotFound:        "not_found",
	Conflict:        "conflict",
	Constraint:      "constraint",
	ProtectedEntity: "protected_entity",
	Cache:           "cache",
}

// String returns the snake case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

var (
	// ErrInvalidArgument matches every InvalidArgument error with errors.Is.
	ErrInvalidArgument = &Error{Kind: InvalidArgument}
	// ErrNotFound matches every NotFound error with errors.Is.
	ErrNotFound = &Error{Kind: NotFound}
	// ErrConflict matches every Conflict error with errors.Is.
	ErrConflict = &Error{Kind: Conflict}
	// ErrConstraint matches every Constraint error with errors.Is.
	ErrConstraint = &Error{Kind: Constraint}
	// ErrProtectedEntity matches every ProtectedEntity error with errors.Is.
	ErrProtectedEntity = &Error{Kind: ProtectedEntity}
	// ErrCache matches every Cache error with errors.Is.
	ErrCache = &Error{Kind: Cache}
)

// Error is a tagged error.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "role.Delete".
	Op string
	// Err is the underlying cause, may be nil.
	Err error
}

// E builds a tagged error. The cause may be an error or a message string.
func E(kind Kind, op string, cause any) error {
	e := &Error{Kind: kind, Op: op}

	switch c := cause.(type) {
	case nil:
	case error:
		e.Err = c
	case string:
		e.Err = errors.New(c)
	default:
		e.Err = fmt.Errorf("%v", c)
	}

	return e
}

// Errorf builds a tagged error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Error implements error.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op + ": " + e.Kind.String()
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the outermost tagged error in the chain, Internal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
