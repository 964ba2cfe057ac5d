// Package sqldialect abstracts the SQL dialect differences of relational
// database engines for building parameterized queries: bind-marker
// spelling, row-limiting clauses, native value types and array columns.
//
// The capability model lives in package dialect, marker generation in
// dialect/bind and the query-building consumers in dialect/sql. This package
// holds the errors shared by all of them.
package sqldialect

import (
	"errors"
	"fmt"
	"reflect"
)

// Standard sentinel errors.
var (
	// ErrUnknownDialect is returned when a dialect or driver name cannot be resolved.
	ErrUnknownDialect = errors.New("sqldialect: unknown dialect")

	// ErrInvalidArgument is returned for deterministic argument failures,
	// such as a negative row limit.
	ErrInvalidArgument = errors.New("sqldialect: invalid argument")

	// ErrArrayUnsupported is returned when a collection value is bound
	// against an engine without array column support.
	ErrArrayUnsupported = errors.New("sqldialect: array columns not supported")

	// ErrUnsupportedType is returned when a value type can be neither bound
	// directly nor converted by the dialect.
	ErrUnsupportedType = errors.New("sqldialect: unsupported value type")
)

// UnknownDialectError represents an unresolvable dialect name.
type UnknownDialectError struct {
	Name string
}

// Error returns the error string.
func (e *UnknownDialectError) Error() string {
	return fmt.Sprintf("sqldialect: unknown dialect %q", e.Name)
}

// Is reports whether the target error matches UnknownDialectError.
func (e *UnknownDialectError) Is(err error) bool {
	return err == ErrUnknownDialect
}

// NewUnknownDialectError returns a new UnknownDialectError.
func NewUnknownDialectError(name string) *UnknownDialectError {
	return &UnknownDialectError{Name: name}
}

// IsUnknownDialect returns true if the error is an UnknownDialectError.
func IsUnknownDialect(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownDialectError
	return errors.As(err, &e) || errors.Is(err, ErrUnknownDialect)
}

// InvalidArgumentError represents an argument rejected by an operation.
type InvalidArgumentError struct {
	Op    string // Operation (e.g., "limit", "offset")
	Value any    // Rejected value
	Msg   string
}

// Error returns the error string.
func (e *InvalidArgumentError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("sqldialect: invalid %s argument %v: %s", e.Op, e.Value, e.Msg)
	}
	return fmt.Sprintf("sqldialect: invalid %s argument %v", e.Op, e.Value)
}

// Is reports whether the target error matches InvalidArgumentError.
func (e *InvalidArgumentError) Is(err error) bool {
	return err == ErrInvalidArgument
}

// NewInvalidArgumentError returns a new InvalidArgumentError.
func NewInvalidArgumentError(op string, value any, msg string) *InvalidArgumentError {
	return &InvalidArgumentError{Op: op, Value: value, Msg: msg}
}

// IsInvalidArgument returns true if the error is an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidArgumentError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidArgument)
}

// ArrayUnsupportedError is returned by the mapping layer when a collection
// value meets a dialect that cannot store it.
type ArrayUnsupportedError struct {
	Dialect string
	Type    reflect.Type // Collection type being bound
}

// Error returns the error string.
func (e *ArrayUnsupportedError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("sqldialect: %s does not support array columns (binding %s)", e.Dialect, e.Type)
	}
	return fmt.Sprintf("sqldialect: %s does not support array columns", e.Dialect)
}

// Is reports whether the target error matches ArrayUnsupportedError.
func (e *ArrayUnsupportedError) Is(err error) bool {
	return err == ErrArrayUnsupported
}

// NewArrayUnsupportedError returns a new ArrayUnsupportedError.
func NewArrayUnsupportedError(dialect string, t reflect.Type) *ArrayUnsupportedError {
	return &ArrayUnsupportedError{Dialect: dialect, Type: t}
}

// IsArrayUnsupported returns true if the error is an ArrayUnsupportedError.
func IsArrayUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var e *ArrayUnsupportedError
	return errors.As(err, &e) || errors.Is(err, ErrArrayUnsupported)
}

// UnsupportedTypeError represents a value type the dialect cannot bind.
type UnsupportedTypeError struct {
	Dialect string
	Type    reflect.Type
}

// Error returns the error string.
func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("sqldialect: %s cannot bind values of type %v", e.Dialect, e.Type)
}

// Is reports whether the target error matches UnsupportedTypeError.
func (e *UnsupportedTypeError) Is(err error) bool {
	return err == ErrUnsupportedType
}

// NewUnsupportedTypeError returns a new UnsupportedTypeError.
func NewUnsupportedTypeError(dialect string, t reflect.Type) *UnsupportedTypeError {
	return &UnsupportedTypeError{Dialect: dialect, Type: t}
}

// AggregateError represents multiple errors collected while building a query.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "sqldialect: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "sqldialect: multiple errors:"
	for i, err := range e.Errors {
		msg += fmt.Sprintf("\n  [%d] %v", i+1, err)
	}
	return msg
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
