// Package dialect describes the SQL dialects of the supported database
// engines for building parameterized queries.
//
// # Supported Dialects
//
// Each dialect is identified by a constant string and has a process-wide,
// immutable Dialect value:
//
//	dialect.Postgres  = "postgres"   // PostgresDialect
//	dialect.MySQL     = "mysql"      // MySQLDialect
//	dialect.SQLite    = "sqlite"     // SQLiteDialect
//	dialect.SQLServer = "sqlserver"  // SQLServerDialect
//	dialect.H2        = "h2"         // H2Dialect
//
// ByName resolves a dialect from a dialect or database/sql driver name.
//
// # Dialect Interface
//
//	type Dialect interface {
//	    Name() string
//	    BindMarkersFactory() bind.Factory
//	    SimpleTypes() []reflect.Type
//	    SimpleTypeHolder() *SimpleTypeHolder
//	    Limit() LimitClause
//	    ArraySupport() ArrayColumns
//	}
//
// # Bind Markers
//
// A query builder creates one marker sequence per statement and takes one
// marker per parameter, in the order the parameters are written:
//
//	markers := dialect.SQLServerDialect.BindMarkersFactory().Create()
//	m := markers.NextHint("name") // @P1_name
//
// # Limit Clauses
//
// The LimitClause renders the limiting text and reports where it goes:
//
//	l := dialect.SQLServerDialect.Limit()
//	l.ClauseOffset(10, 5) // OFFSET 5 ROWS FETCH NEXT 10 ROWS ONLY
//	l.Position()          // dialect.PositionEnd
//
// # Simple Types and Arrays
//
// SimpleTypeHolder tells the mapping layer which value types bind without
// conversion. ArraySupport reports whether, and as which driver types,
// collection values can be stored.
//
// # Driver Interface
//
// The package also defines the execution contract implemented by dialect/sql:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/bind: bind marker factories, sequences and the bindings container
//   - dialect/sql: driver, query builders, value mapping, statistics and caching
package dialect
