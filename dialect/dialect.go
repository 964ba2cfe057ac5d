package dialect

import (
	"context"
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/syssam/sqldialect"
	"github.com/syssam/sqldialect/dialect/bind"
)

// Dialect names.
const (
	Postgres  = "postgres"
	MySQL     = "mysql"
	SQLite    = "sqlite"
	SQLServer = "sqlserver"
	H2        = "h2"
)

// ExecQuerier wraps the two query methods of a driver.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for executing
// statements rendered for a dialect.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Dialect describes the SQL syntax and capabilities of one database engine.
//
// Implementations are immutable and safe for concurrent use. Capabilities an
// engine lacks are still reported, through a well-defined fallback such as
// an empty type list or Unsupported.
type Dialect interface {
	// Name returns the dialect name, e.g. "postgres".
	Name() string
	// BindMarkersFactory returns the factory of the bind markers of the engine.
	BindMarkersFactory() bind.Factory
	// SimpleTypes returns the types natively supported by the engine.
	SimpleTypes() []reflect.Type
	// SimpleTypeHolder returns the union of SimpleTypes and the baseline types.
	SimpleTypeHolder() *SimpleTypeHolder
	// Limit returns the row-limiting clause of the engine.
	Limit() LimitClause
	// ArraySupport describes the array columns of the engine.
	ArraySupport() ArrayColumns
}

// Engine is a Dialect assembled from its parts.
type Engine struct {
	name    string
	markers bind.Factory
	limit   LimitClause
	simple  []reflect.Type
	arrays  ArrayColumns
}

// Option configures an Engine.
type Option func(*Engine)

// WithSimpleTypes sets the types natively supported by the engine.
func WithSimpleTypes(types ...reflect.Type) Option {
	return func(e *Engine) {
		e.simple = slices.Clone(types)
	}
}

// WithArraySupport sets the array columns support of the engine.
// The default is Unsupported.
func WithArraySupport(a ArrayColumns) Option {
	return func(e *Engine) {
		if a != nil {
			e.arrays = a
		}
	}
}

// New returns an Engine with the given markers and limit clause.
func New(name string, markers bind.Factory, limit LimitClause, opts ...Option) *Engine {
	e := &Engine{
		name:    name,
		markers: markers,
		limit:   limit,
		arrays:  Unsupported,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements Dialect.
func (e *Engine) Name() string { return e.name }

// BindMarkersFactory implements Dialect.
func (e *Engine) BindMarkersFactory() bind.Factory { return e.markers }

// SimpleTypes implements Dialect.
func (e *Engine) SimpleTypes() []reflect.Type { return slices.Clone(e.simple) }

// SimpleTypeHolder implements Dialect. The holder is rebuilt on every call.
func (e *Engine) SimpleTypeHolder() *SimpleTypeHolder { return NewSimpleTypeHolder(e.simple...) }

// Limit implements Dialect.
func (e *Engine) Limit() LimitClause { return e.limit }

// ArraySupport implements Dialect.
func (e *Engine) ArraySupport() ArrayColumns { return e.arrays }

// String returns the dialect name.
func (e *Engine) String() string { return e.name }

var (
	// PostgresDialect uses $1, $2, ... markers, LIMIT/OFFSET and lib/pq arrays.
	PostgresDialect Dialect = New(Postgres, bind.Indexed("$", 1), LimitOffset,
		WithSimpleTypes(reflect.TypeFor[uuid.UUID](), reflect.TypeFor[decimal.Decimal]()),
		WithArraySupport(PostgresArrays),
	)

	// MySQLDialect uses ? markers and LIMIT offset, count.
	MySQLDialect Dialect = New(MySQL, bind.Anonymous("?"), LimitComma,
		WithSimpleTypes(reflect.TypeFor[decimal.Decimal]()),
	)

	// SQLiteDialect uses ? markers and LIMIT/OFFSET.
	SQLiteDialect Dialect = New(SQLite, bind.Anonymous("?"), LimitOffset)

	// SQLServerDialect uses @P1, @P2_hint, ... markers and OFFSET/FETCH.
	SQLServerDialect Dialect = New(SQLServer, bind.Named("@", "P", 32, bind.FoldASCII), OffsetFetch,
		WithSimpleTypes(reflect.TypeFor[uuid.UUID]()),
	)

	// H2Dialect uses $1, $2, ... markers and LIMIT/OFFSET.
	H2Dialect Dialect = New(H2, bind.Indexed("$", 1), LimitOffset,
		WithSimpleTypes(reflect.TypeFor[uuid.UUID]()),
	)
)

// aliases maps name prefixes of dialects and database/sql drivers to dialects.
var aliases = []struct {
	prefix  string
	dialect Dialect
}{
	{Postgres, PostgresDialect},
	{"pgx", PostgresDialect},
	{"cockroach", PostgresDialect},
	{MySQL, MySQLDialect},
	{"mariadb", MySQLDialect},
	{SQLite, SQLiteDialect},
	{SQLServer, SQLServerDialect},
	{"mssql", SQLServerDialect},
	{"azuresql", SQLServerDialect},
	{H2, H2Dialect},
}

// ByName returns the dialect for a dialect or driver name, e.g. "postgres",
// "pgx", "sqlite3" or "mssql". Matching is case-insensitive on the prefix,
// so wrapped driver names such as "postgres-otel" resolve too.
func ByName(name string) (Dialect, error) {
	lower := strings.ToLower(name)
	for _, a := range aliases {
		if strings.HasPrefix(lower, a.prefix) {
			return a.dialect, nil
		}
	}
	return nil, sqldialect.NewUnknownDialectError(name)
}

// Dialects returns the built-in dialects.
func Dialects() []Dialect {
	return []Dialect{PostgresDialect, MySQLDialect, SQLiteDialect, SQLServerDialect, H2Dialect}
}
