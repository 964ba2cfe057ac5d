// Package sql renders and executes SQL statements for a dialect.
//
// Statements are built on the capability model of package dialect: every
// bound value takes the next marker of the statement's marker sequence, values
// are converted by the dialect's simple types and array columns, and the
// row-limiting clause is spliced where the dialect expects it.
//
// # Builders
//
//   - Builder: low-level writer owning the marker sequence of one statement
//   - Selector: SELECT with predicates, ordering and pagination
//   - InsertBuilder: multi-row INSERT with markers hinted by column name
//
// # Dialect Support
//
//	import "github.com/syssam/sqldialect/dialect"
//
//	// PostgreSQL
//	sql.Dialect(dialect.Postgres).Select("id", "name").From("users").
//	    Where(sql.EQ("status", "active")).Limit(10).Offset(20)
//	// SELECT id, name FROM users WHERE status = $1 LIMIT 10 OFFSET 20
//
//	// SQL Server
//	sql.Dialect(dialect.SQLServer).Select("id").From("users").
//	    Where(sql.EQ("user_name", "bob")).Limit(10)
//	// SELECT id FROM users WHERE user_name = @P1_username
//	//   ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY
//
// # Predicates
//
//	sql.EQ("name", "john")           // name = ?
//	sql.GT("age", 18)                // age > ?
//	sql.HasPrefix("email", "admin")  // email LIKE ? ESCAPE '\'
//	sql.IsNull("deleted_at")         // deleted_at IS NULL
//	sql.In("status", "a", "b")       // status IN (?, ?)
//	sql.Field[int]("age").LTE(65)    // age <= ?
//
// # Execution
//
// Driver wraps a database/sql.DB together with its dialect. StatsDriver and
// DebugDriver decorate it with statistics and logging, and QueryCache keeps
// the results of rendered statements in a Cache.
package sql
