package dialect

import "strconv"

// Position tells where a limit clause is spliced into a SELECT statement.
type Position int

const (
	// PositionStart places the clause right after SELECT, before the column list.
	PositionStart Position = iota + 1
	// PositionEnd places the clause after the last clause of the statement.
	PositionEnd
)

// String returns the string representation of the position.
func (p Position) String() string {
	switch p {
	case PositionStart:
		return "START"
	case PositionEnd:
		return "END"
	default:
		return "Position(" + strconv.Itoa(int(p)) + ")"
	}
}

// LimitClause renders row-limiting SQL for a dialect.
type LimitClause interface {
	// Clause returns the text limiting the result to limit rows.
	Clause(limit int64) string
	// ClauseOffset returns the text limiting the result to limit rows
	// after skipping offset rows.
	ClauseOffset(limit, offset int64) string
	// Position returns where the text belongs in the statement.
	Position() Position
}

// LimitFunc is a LimitClause made of two rendering functions.
//
// Negative arguments are clamped to zero before the functions are called,
// so a LimitFunc never renders a negative row count. Query builders reject
// negative values with an error before reaching this point.
type LimitFunc struct {
	Limit  func(limit int64) string
	Offset func(limit, offset int64) string
	At     Position
}

// Clause implements LimitClause.
func (f LimitFunc) Clause(limit int64) string {
	return f.Limit(max(limit, 0))
}

// ClauseOffset implements LimitClause.
func (f LimitFunc) ClauseOffset(limit, offset int64) string {
	return f.Offset(max(limit, 0), max(offset, 0))
}

// Position implements LimitClause.
func (f LimitFunc) Position() Position {
	return f.At
}

var (
	// LimitOffset renders "LIMIT n" and "LIMIT n OFFSET m".
	// Used by PostgreSQL, SQLite and H2.
	LimitOffset LimitClause = LimitFunc{
		Limit: func(limit int64) string {
			return "LIMIT " + strconv.FormatInt(limit, 10)
		},
		Offset: func(limit, offset int64) string {
			return "LIMIT " + strconv.FormatInt(limit, 10) + " OFFSET " + strconv.FormatInt(offset, 10)
		},
		At: PositionEnd,
	}

	// LimitComma renders "LIMIT n" and "LIMIT m, n". Used by MySQL.
	LimitComma LimitClause = LimitFunc{
		Limit: func(limit int64) string {
			return "LIMIT " + strconv.FormatInt(limit, 10)
		},
		Offset: func(limit, offset int64) string {
			return "LIMIT " + strconv.FormatInt(offset, 10) + ", " + strconv.FormatInt(limit, 10)
		},
		At: PositionEnd,
	}

	// OffsetFetch renders the SQL:2008 "OFFSET m ROWS FETCH NEXT n ROWS ONLY".
	// Used by SQL Server; the statement must have an ORDER BY clause.
	OffsetFetch LimitClause = LimitFunc{
		Limit: func(limit int64) string {
			return "OFFSET 0 ROWS FETCH NEXT " + strconv.FormatInt(limit, 10) + " ROWS ONLY"
		},
		Offset: func(limit, offset int64) string {
			return "OFFSET " + strconv.FormatInt(offset, 10) + " ROWS FETCH NEXT " + strconv.FormatInt(limit, 10) + " ROWS ONLY"
		},
		At: PositionEnd,
	}

	// FirstSkip renders the leading "FIRST n" and "FIRST n SKIP m" modifiers
	// of Firebird and Informix.
	FirstSkip LimitClause = LimitFunc{
		Limit: func(limit int64) string {
			return "FIRST " + strconv.FormatInt(limit, 10)
		},
		Offset: func(limit, offset int64) string {
			return "FIRST " + strconv.FormatInt(limit, 10) + " SKIP " + strconv.FormatInt(offset, 10)
		},
		At: PositionStart,
	}
)
