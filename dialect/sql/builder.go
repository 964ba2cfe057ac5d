package sql

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/sqldialect"
	"github.com/syssam/sqldialect/dialect"
	"github.com/syssam/sqldialect/dialect/bind"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// Builder is the low-level statement writer shared by the query builders.
// It owns the marker sequence of exactly one statement, so markers are taken
// in the order their placeholders are written.
type Builder struct {
	sb       strings.Builder
	dialect  dialect.Dialect
	markers  bind.Markers
	bindings *bind.Bindings
	mapper   *Mapper
	errs     []error
}

// NewBuilder returns a Builder with a fresh marker sequence of d.
func NewBuilder(d dialect.Dialect) *Builder {
	return &Builder{
		dialect:  d,
		markers:  d.BindMarkersFactory().Create(),
		bindings: bind.NewBindings(),
		mapper:   NewMapper(d),
	}
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() dialect.Dialect {
	return b.dialect
}

// WriteString appends s to the statement.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Pad appends a space.
func (b *Builder) Pad() *Builder {
	b.sb.WriteByte(' ')
	return b
}

// Ident appends an identifier, recording an error if it is not valid.
func (b *Builder) Ident(s string) *Builder {
	if !isValidIdentifier(s) {
		b.AddError(sqldialect.NewInvalidArgumentError("identifier", strconv.Quote(s), "not a valid SQL identifier"))
	}
	b.sb.WriteString(s)
	return b
}

// IdentComma appends the identifiers separated by commas.
func (b *Builder) IdentComma(idents ...string) *Builder {
	for i, s := range idents {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Ident(s)
	}
	return b
}

// Arg appends the placeholder of a new marker named after hint and binds v
// to it. v is converted by the dialect mapping first.
func (b *Builder) Arg(hint string, v any) *Builder {
	cv, err := b.mapper.Convert(v)
	if err != nil {
		b.AddError(err)
	}
	m := b.markers.NextHint(hint)
	m.Bind(b.bindings, cv)
	b.sb.WriteString(m.Placeholder())
	return b
}

// Args appends the placeholders of the values separated by commas.
func (b *Builder) Args(hint string, vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Arg(hint, v)
	}
	return b
}

// AddError records an error of the statement.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// String returns the statement text.
func (b *Builder) String() string {
	return b.sb.String()
}

// Bindings returns the values bound so far.
func (b *Builder) Bindings() *bind.Bindings {
	return b.bindings
}

// Err returns the errors recorded while building.
func (b *Builder) Err() error {
	return sqldialect.NewAggregateError(b.errs...)
}

// Query returns the statement text and its arguments.
func (b *Builder) Query() (string, []any) {
	return b.String(), b.bindings.Args()
}

// DialectBuilder prefixes all root builders with the Dialect value.
type DialectBuilder struct {
	dialect dialect.Dialect
	err     error
}

// Dialect creates a new DialectBuilder for the given dialect or driver name.
//
//	sql.Dialect(dialect.Postgres).Select("id").From("users").Limit(10)
func Dialect(name string) *DialectBuilder {
	d, err := dialect.ByName(name)
	return &DialectBuilder{dialect: d, err: err}
}

// For creates a new DialectBuilder for d.
func For(d dialect.Dialect) *DialectBuilder {
	return &DialectBuilder{dialect: d}
}

// Select creates a Selector for the dialect.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	return &Selector{dialect: d.dialect, err: d.err, columns: columns}
}

// Insert creates an InsertBuilder for the dialect.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	return &InsertBuilder{dialect: d.dialect, err: d.err, table: table}
}

// Selector is a builder for the SELECT statement.
type Selector struct {
	dialect dialect.Dialect
	err     error
	columns []string
	table   string
	where   []*Predicate
	order   []string
	limit   *int64
	offset  *int64
	errs    error
}

// From sets the source table of the SELECT statement.
func (s *Selector) From(table string) *Selector {
	s.table = table
	return s
}

// Where appends predicates to the WHERE clause. Multiple predicates are
// joined with AND.
func (s *Selector) Where(ps ...*Predicate) *Selector {
	for _, p := range ps {
		if p != nil {
			s.where = append(s.where, p)
		}
	}
	return s
}

// OrderBy appends ordering terms, e.g. "name" or Desc("created_at").
func (s *Selector) OrderBy(terms ...string) *Selector {
	s.order = append(s.order, terms...)
	return s
}

// Limit limits the result to n rows.
func (s *Selector) Limit(n int64) *Selector {
	s.limit = &n
	return s
}

// Offset skips the first n rows. It requires Limit.
func (s *Selector) Offset(n int64) *Selector {
	s.offset = &n
	return s
}

// Query renders the statement and returns it with its arguments. Rendering
// errors are reported by Err.
func (s *Selector) Query() (string, []any) {
	if s.err != nil {
		s.errs = s.err
		return "", nil
	}
	b := NewBuilder(s.dialect)
	limit := s.limitClause(b)
	b.WriteString("SELECT ")
	if limit != "" && s.dialect.Limit().Position() == dialect.PositionStart {
		b.WriteString(limit).Pad()
	}
	switch {
	case len(s.columns) == 0, len(s.columns) == 1 && s.columns[0] == "*":
		b.WriteString("*")
	default:
		b.IdentComma(s.columns...)
	}
	b.WriteString(" FROM ").Ident(s.table)
	if len(s.where) > 0 {
		b.WriteString(" WHERE ")
		for i, p := range s.where {
			if i > 0 {
				b.WriteString(" AND ")
			}
			p.render(b)
		}
	}
	switch {
	case len(s.order) > 0:
		b.WriteString(" ORDER BY ")
		for i, term := range s.order {
			if i > 0 {
				b.WriteString(", ")
			}
			writeOrderTerm(b, term)
		}
	case limit != "" && s.dialect.Name() == dialect.SQLServer:
		// OFFSET/FETCH is only valid after an ORDER BY clause.
		b.WriteString(" ORDER BY (SELECT NULL)")
	}
	if limit != "" && s.dialect.Limit().Position() == dialect.PositionEnd {
		b.Pad().WriteString(limit)
	}
	s.errs = b.Err()
	return b.Query()
}

// limitClause validates the limit and offset and renders them.
func (s *Selector) limitClause(b *Builder) string {
	switch {
	case s.limit == nil && s.offset == nil:
		return ""
	case s.limit == nil:
		b.AddError(sqldialect.NewInvalidArgumentError("offset", *s.offset, "offset requires a limit"))
		return ""
	case *s.limit < 0:
		b.AddError(sqldialect.NewInvalidArgumentError("limit", *s.limit, "must not be negative"))
		return ""
	case s.offset == nil:
		return s.dialect.Limit().Clause(*s.limit)
	case *s.offset < 0:
		b.AddError(sqldialect.NewInvalidArgumentError("offset", *s.offset, "must not be negative"))
		return ""
	default:
		return s.dialect.Limit().ClauseOffset(*s.limit, *s.offset)
	}
}

// Err returns the errors of the last Query call.
func (s *Selector) Err() error {
	return s.errs
}

// Asc returns an ascending ordering term.
func Asc(column string) string { return column + " ASC" }

// Desc returns a descending ordering term.
func Desc(column string) string { return column + " DESC" }

func writeOrderTerm(b *Builder, term string) {
	fields := strings.Fields(term)
	switch {
	case len(fields) == 1:
		b.Ident(fields[0])
	case len(fields) == 2 && (strings.EqualFold(fields[1], "ASC") || strings.EqualFold(fields[1], "DESC")):
		b.Ident(fields[0]).Pad().WriteString(strings.ToUpper(fields[1]))
	default:
		b.AddError(sqldialect.NewInvalidArgumentError("order", strconv.Quote(term), "expect column [ASC|DESC]"))
	}
}

// InsertBuilder is a builder for the INSERT statement.
type InsertBuilder struct {
	dialect dialect.Dialect
	err     error
	table   string
	columns []string
	values  [][]any
	errs    error
}

// Columns sets the columns of the insert statement.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = append(i.columns, columns...)
	return i
}

// Values appends a row of values. Each call adds one row.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append(i.values, values)
	return i
}

// Query renders the statement and returns it with its arguments. Each value
// gets a marker hinted with its column name.
func (i *InsertBuilder) Query() (string, []any) {
	if i.err != nil {
		i.errs = i.err
		return "", nil
	}
	b := NewBuilder(i.dialect)
	b.WriteString("INSERT INTO ").Ident(i.table)
	switch {
	case len(i.columns) == 0:
		b.AddError(sqldialect.NewInvalidArgumentError("columns", 0, "insert requires at least one column"))
	case len(i.values) == 0:
		b.AddError(sqldialect.NewInvalidArgumentError("values", 0, "insert requires at least one row"))
	}
	b.WriteString(" (").IdentComma(i.columns...).WriteString(") VALUES ")
	for j, row := range i.values {
		if j > 0 {
			b.WriteString(", ")
		}
		if len(row) != len(i.columns) {
			b.AddError(sqldialect.NewInvalidArgumentError("values", len(row),
				"row "+strconv.Itoa(j+1)+" expects "+strconv.Itoa(len(i.columns))+" values"))
		}
		b.WriteString("(")
		for k, v := range row {
			if k > 0 {
				b.WriteString(", ")
			}
			hint := ""
			if k < len(i.columns) {
				hint = i.columns[k]
			}
			b.Arg(hint, v)
		}
		b.WriteString(")")
	}
	i.errs = b.Err()
	return b.Query()
}

// Err returns the errors of the last Query call.
func (i *InsertBuilder) Err() error {
	return i.errs
}
