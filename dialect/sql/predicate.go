package sql

import (
	"strings"

	"github.com/syssam/sqldialect/dialect"
)

// Predicate is a boolean expression of a WHERE clause. Predicates render
// against the Builder of the statement they end up in, so their markers are
// numbered by that statement and not at construction time.
type Predicate struct {
	fn func(*Builder)
}

// P creates a Predicate from a render function.
func P(fn func(*Builder)) *Predicate {
	return &Predicate{fn: fn}
}

func (p *Predicate) render(b *Builder) {
	p.fn(b)
}

// binary renders "col op marker" with the column as the marker hint.
func binary(col, op string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(op).Arg(col, v)
	})
}

// EQ returns a "=" predicate.
func EQ(col string, v any) *Predicate { return binary(col, " = ", v) }

// NEQ returns a "<>" predicate.
func NEQ(col string, v any) *Predicate { return binary(col, " <> ", v) }

// GT returns a ">" predicate.
func GT(col string, v any) *Predicate { return binary(col, " > ", v) }

// GTE returns a ">=" predicate.
func GTE(col string, v any) *Predicate { return binary(col, " >= ", v) }

// LT returns a "<" predicate.
func LT(col string, v any) *Predicate { return binary(col, " < ", v) }

// LTE returns a "<=" predicate.
func LTE(col string, v any) *Predicate { return binary(col, " <= ", v) }

// In returns an "IN" predicate. An empty list matches no rows.
func In(col string, vs ...any) *Predicate {
	return P(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("1 = 0")
			return
		}
		b.Ident(col).WriteString(" IN (").Args(col, vs...).WriteString(")")
	})
}

// NotIn returns a "NOT IN" predicate. An empty list matches all rows.
func NotIn(col string, vs ...any) *Predicate {
	return P(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("1 = 1")
			return
		}
		b.Ident(col).WriteString(" NOT IN (").Args(col, vs...).WriteString(")")
	})
}

// IsNull returns an "IS NULL" predicate.
func IsNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IS NULL")
	})
}

// NotNull returns an "IS NOT NULL" predicate.
func NotNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IS NOT NULL")
	})
}

// Like returns a "LIKE" predicate with the pattern used as is.
func Like(col, pattern string) *Predicate {
	return binary(col, " LIKE ", pattern)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// like renders a LIKE predicate on an escaped pattern.
func like(col, prefix, v, suffix string, fold bool) *Predicate {
	return P(func(b *Builder) {
		pattern := prefix + likeEscaper.Replace(v) + suffix
		if fold {
			b.WriteString("LOWER(").Ident(col).WriteString(")")
			pattern = strings.ToLower(pattern)
		} else {
			b.Ident(col)
		}
		b.WriteString(" LIKE ").Arg(col, pattern)
		// Backslash is already the default escape character of MySQL and
		// a literal '\' would not parse there.
		if b.Dialect().Name() != dialect.MySQL {
			b.WriteString(` ESCAPE '\'`)
		}
	})
}

// Contains returns a predicate matching values containing substr.
func Contains(col, substr string) *Predicate { return like(col, "%", substr, "%", false) }

// ContainsFold returns a case-insensitive Contains.
func ContainsFold(col, substr string) *Predicate { return like(col, "%", substr, "%", true) }

// HasPrefix returns a predicate matching values starting with prefix.
func HasPrefix(col, prefix string) *Predicate { return like(col, "", prefix, "%", false) }

// HasSuffix returns a predicate matching values ending with suffix.
func HasSuffix(col, suffix string) *Predicate { return like(col, "%", suffix, "", false) }

// join renders the predicates separated by op, skipping nil ones.
func join(op string, ps []*Predicate) *Predicate {
	var nonNil []*Predicate
	for _, p := range ps {
		if p != nil {
			nonNil = append(nonNil, p)
		}
	}
	return P(func(b *Builder) {
		switch len(nonNil) {
		case 0:
			if op == " AND " {
				b.WriteString("1 = 1")
			} else {
				b.WriteString("1 = 0")
			}
		case 1:
			nonNil[0].render(b)
		default:
			b.WriteString("(")
			for i, p := range nonNil {
				if i > 0 {
					b.WriteString(op)
				}
				p.render(b)
			}
			b.WriteString(")")
		}
	})
}

// And joins the predicates with AND.
func And(ps ...*Predicate) *Predicate { return join(" AND ", ps) }

// Or joins the predicates with OR.
func Or(ps ...*Predicate) *Predicate { return join(" OR ", ps) }

// Not negates the predicate. Not(nil) is nil, so it is dropped like other
// nil predicates.
func Not(p *Predicate) *Predicate {
	if p == nil {
		return nil
	}
	return P(func(b *Builder) {
		b.WriteString("NOT (")
		p.render(b)
		b.WriteString(")")
	})
}

// Field is a typed column that provides type-safe predicate methods.
//
// Usage:
//
//	var Age = sql.Field[int]("age")
//	sql.Dialect(dialect.Postgres).Select().From("users").Where(Age.GT(30))
type Field[T any] string

// Name returns the field name.
func (f Field[T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f Field[T]) EQ(v T) *Predicate { return EQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f Field[T]) NEQ(v T) *Predicate { return NEQ(string(f), v) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Field[T]) GT(v T) *Predicate { return GT(string(f), v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f Field[T]) GTE(v T) *Predicate { return GTE(string(f), v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f Field[T]) LT(v T) *Predicate { return LT(string(f), v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f Field[T]) LTE(v T) *Predicate { return LTE(string(f), v) }

// In returns a predicate that checks if the field value is in the given list.
func (f Field[T]) In(vs ...T) *Predicate { return In(string(f), anySlice(vs)...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f Field[T]) NotIn(vs ...T) *Predicate { return NotIn(string(f), anySlice(vs)...) }

// IsNull returns a predicate that checks if the field is NULL.
func (f Field[T]) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f Field[T]) NotNull() *Predicate { return NotNull(string(f)) }

// StringField is a string column with the pattern predicates on top of Field.
type StringField string

// Name returns the field name.
func (f StringField) Name() string { return string(f) }

// Field returns the generic form of the field.
func (f StringField) Field() Field[string] { return Field[string](f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f StringField) EQ(v string) *Predicate { return EQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f StringField) NEQ(v string) *Predicate { return NEQ(string(f), v) }

// In returns a predicate that checks if the field value is in the given list.
func (f StringField) In(vs ...string) *Predicate { return In(string(f), anySlice(vs)...) }

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField) Contains(v string) *Predicate { return Contains(string(f), v) }

// ContainsFold returns a predicate that checks if the field contains the given substring (case-insensitive).
func (f StringField) ContainsFold(v string) *Predicate { return ContainsFold(string(f), v) }

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f StringField) HasPrefix(v string) *Predicate { return HasPrefix(string(f), v) }

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f StringField) HasSuffix(v string) *Predicate { return HasSuffix(string(f), v) }

// IsNull returns a predicate that checks if the field is NULL.
func (f StringField) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f StringField) NotNull() *Predicate { return NotNull(string(f)) }

func anySlice[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
