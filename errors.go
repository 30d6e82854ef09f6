package entgen

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("entgen: entity not found")
	// ErrConstraint is matched by every ConstraintError.
	ErrConstraint = errors.New("entgen: constraint violation")
)

// NotFoundError reports a missing entity. Generated repositories return
// nil for missing rows; error mappers use it to turn them into errors.
type NotFoundError struct {
	label string
	id    any
}

func (e *NotFoundError) Error() string {
	if e.id == nil {
		return fmt.Sprintf("entgen: %s not found", e.label)
	}
	return fmt.Sprintf("entgen: %s not found (id=%v)", e.label, e.id)
}

func (e *NotFoundError) Is(err error) bool { return err == ErrNotFound }

// Label returns the entity label.
func (e *NotFoundError) Label() string { return e.label }

// ID returns the looked up id, or nil.
func (e *NotFoundError) ID() any { return e.id }

func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// ConstraintKind classifies constraint violations.
type ConstraintKind string

// Constraint kinds, after the PostgreSQL integrity violation codes.
const (
	ConstraintOther      ConstraintKind = "other"
	ConstraintNotNull    ConstraintKind = "not_null"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintCheck      ConstraintKind = "check"
	ConstraintExclusion  ConstraintKind = "exclusion"
)

var constraintCodes = map[pq.ErrorCode]ConstraintKind{
	"23502": ConstraintNotNull,
	"23503": ConstraintForeignKey,
	"23505": ConstraintUnique,
	"23514": ConstraintCheck,
	"23P01": ConstraintExclusion,
}

// ConstraintError is a write rejected by a table constraint.
type ConstraintError struct {
	Kind ConstraintKind
	// Constraint and Column are set when the database reports them.
	Constraint string
	Column     string
	msg        string
	wrap       error
}

func (e *ConstraintError) Error() string {
	return "entgen: constraint failed: " + e.msg
}

func (e *ConstraintError) Unwrap() error { return e.wrap }

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraint }

// NewConstraintError returns a ConstraintError of kind other.
func NewConstraintError(msg string, wrap error) error {
	return &ConstraintError{Kind: ConstraintOther, msg: msg, wrap: wrap}
}

// constraintError translates integrity violations (class 23) into a
// ConstraintError. Other errors are returned as is.
func constraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code.Class() != "23" {
		return err
	}
	kind, ok := constraintCodes[pqErr.Code]
	if !ok {
		kind = ConstraintOther
	}
	return &ConstraintError{
		Kind:       kind,
		Constraint: pqErr.Constraint,
		Column:     pqErr.Column,
		msg:        pqErr.Message,
		wrap:       err,
	}
}

// IsConstraintError reports whether err is or wraps ErrConstraint.
func IsConstraintError(err error) bool {
	return err != nil && errors.Is(err, ErrConstraint)
}

// IsUniqueViolation reports whether err holds a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e) && e.Kind == ConstraintUnique
}

// QueryError is a failed read of a generated repository.
type QueryError struct {
	Entity string
	// Op is the repository operation: find_by_id, list, query, ...
	Op  string
	Err error
}

func (e *QueryError) Error() string { return opError("query", e.Op, e.Entity, e.Err) }

func (e *QueryError) Unwrap() error { return e.Err }

// NewQueryError returns a QueryError, or nil when err is nil.
func NewQueryError(entity, op string, err error) error {
	if err == nil {
		return nil
	}
	return &QueryError{Entity: entity, Op: op, Err: err}
}

func IsQueryError(err error) bool {
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError is a failed write of a generated repository. Integrity
// violations reported by PostgreSQL are wrapped in a ConstraintError.
type MutationError struct {
	Entity string
	Op     string
	Err    error
}

func (e *MutationError) Error() string { return opError("mutation", e.Op, e.Entity, e.Err) }

func (e *MutationError) Unwrap() error { return e.Err }

// NewMutationError returns a MutationError, or nil when err is nil.
func NewMutationError(entity, op string, err error) error {
	if err == nil {
		return nil
	}
	return &MutationError{Entity: entity, Op: op, Err: constraintError(err)}
}

func IsMutationError(err error) bool {
	var e *MutationError
	return errors.As(err, &e)
}

func opError(kind, op, entity string, err error) string {
	s := "entgen: " + kind + " " + op + " on " + entity
	if err != nil {
		s += ": " + err.Error()
	}
	return s
}
