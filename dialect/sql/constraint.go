package sql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// ConstraintKind is the kind of a violated integrity constraint.
type ConstraintKind int

// Constraint kinds.
const (
	UniqueConstraint ConstraintKind = iota + 1
	ForeignKeyConstraint
	CheckConstraint
	NotNullConstraint
)

// String returns the constraint kind name.
func (k ConstraintKind) String() string {
	switch k {
	case UniqueConstraint:
		return "unique"
	case ForeignKeyConstraint:
		return "foreign key"
	case CheckConstraint:
		return "check"
	case NotNullConstraint:
		return "not null"
	default:
		return fmt.Sprintf("ConstraintKind(%d)", int(k))
	}
}

// ConstraintError is returned by Exec and Query when the database rejected
// a statement for violating a constraint. It wraps the driver error.
type ConstraintError struct {
	Kind ConstraintKind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("dialect/sql: %s: %s constraint violation: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the driver error.
func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// PostgreSQL SQLSTATE codes (class 23).
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// MySQL error numbers.
var mysqlConstraints = map[uint16]ConstraintKind{
	1048: NotNullConstraint,    // Column cannot be null
	1062: UniqueConstraint,     // Duplicate entry
	1451: ForeignKeyConstraint, // Cannot delete or update a parent row
	1452: ForeignKeyConstraint, // Cannot add or update a child row
	3819: CheckConstraint,      // Check constraint is violated
}

// SQLite extended result codes.
var sqliteConstraints = map[int]ConstraintKind{
	275:  CheckConstraint,      // SQLITE_CONSTRAINT_CHECK
	787:  ForeignKeyConstraint, // SQLITE_CONSTRAINT_FOREIGNKEY
	1299: NotNullConstraint,    // SQLITE_CONSTRAINT_NOTNULL
	1555: UniqueConstraint,     // SQLITE_CONSTRAINT_PRIMARYKEY
	2067: UniqueConstraint,     // SQLITE_CONSTRAINT_UNIQUE
}

// sqlStateKind maps SQLSTATE codes, shared by PostgreSQL drivers.
func sqlStateKind(code string) (ConstraintKind, bool) {
	switch code {
	case pgUniqueViolation:
		return UniqueConstraint, true
	case pgForeignKeyViolation:
		return ForeignKeyConstraint, true
	case pgCheckViolation:
		return CheckConstraint, true
	case pgNotNullViolation:
		return NotNullConstraint, true
	}
	return 0, false
}

// Constraint reports the kind of constraint err violated, if any.
func Constraint(err error) (ConstraintKind, bool) {
	if err == nil {
		return 0, false
	}
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return sqlStateKind(string(pqErr.Code))
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		kind, ok := mysqlConstraints[myErr.Number]
		return kind, ok
	}
	// pgconn.PgError (pgx) and other drivers expose SQLSTATE codes.
	var stateErr interface{ SQLState() string }
	if errors.As(err, &stateErr) {
		if kind, ok := sqlStateKind(stateErr.SQLState()); ok {
			return kind, true
		}
	}
	// modernc.org/sqlite reports extended result codes.
	var codeErr interface{ Code() int }
	if errors.As(err, &codeErr) {
		if kind, ok := sqliteConstraints[codeErr.Code()]; ok {
			return kind, true
		}
	}
	return constraintFromMessage(err.Error())
}

var constraintMessages = []struct {
	kind ConstraintKind
	subs []string
}{
	{UniqueConstraint, []string{"UNIQUE constraint failed", "violates unique constraint", "Error 1062"}},
	{ForeignKeyConstraint, []string{"FOREIGN KEY constraint failed", "violates foreign key constraint", "Error 1451", "Error 1452"}},
	{CheckConstraint, []string{"CHECK constraint failed", "violates check constraint", "Error 3819"}},
	{NotNullConstraint, []string{"NOT NULL constraint failed", "violates not-null constraint", "Error 1048"}},
}

// constraintFromMessage is the fallback for drivers without typed errors.
func constraintFromMessage(msg string) (ConstraintKind, bool) {
	for _, m := range constraintMessages {
		for _, sub := range m.subs {
			if strings.Contains(msg, sub) {
				return m.kind, true
			}
		}
	}
	return 0, false
}

// wrapError wraps a driver error of op, classifying constraint violations.
func wrapError(op string, err error) error {
	if kind, ok := Constraint(err); ok {
		return &ConstraintError{Kind: kind, Op: op, Err: err}
	}
	return fmt.Errorf("dialect/sql: %s: %w", op, err)
}

// IsConstraintError returns true if the error resulted from a constraint violation.
func IsConstraintError(err error) bool {
	_, ok := Constraint(err)
	return ok
}

// IsUniqueConstraintError reports if the error resulted from a uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool {
	kind, ok := Constraint(err)
	return ok && kind == UniqueConstraint
}

// IsForeignKeyConstraintError reports if the error resulted from a foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	kind, ok := Constraint(err)
	return ok && kind == ForeignKeyConstraint
}

// IsCheckConstraintError reports if the error resulted from a check constraint violation.
func IsCheckConstraintError(err error) bool {
	kind, ok := Constraint(err)
	return ok && kind == CheckConstraint
}
