package sql

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqldialect"
	"github.com/syssam/sqldialect/dialect"
	"github.com/syssam/sqldialect/dialect/bind"
)

func TestSelector_Dialects(t *testing.T) {
	tests := []struct {
		dialect   string
		wantQuery string
		wantArgs  []any
	}{
		{
			dialect:   dialect.Postgres,
			wantQuery: "SELECT id, name FROM users WHERE status = $1 AND age > $2 ORDER BY created_at DESC LIMIT 10 OFFSET 20",
			wantArgs:  []any{"active", 18},
		},
		{
			dialect:   dialect.MySQL,
			wantQuery: "SELECT id, name FROM users WHERE status = ? AND age > ? ORDER BY created_at DESC LIMIT 20, 10",
			wantArgs:  []any{"active", 18},
		},
		{
			dialect:   dialect.SQLite,
			wantQuery: "SELECT id, name FROM users WHERE status = ? AND age > ? ORDER BY created_at DESC LIMIT 10 OFFSET 20",
			wantArgs:  []any{"active", 18},
		},
		{
			dialect:   dialect.SQLServer,
			wantQuery: "SELECT id, name FROM users WHERE status = @P1_status AND age > @P2_age ORDER BY created_at DESC OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY",
			wantArgs:  []any{sql.Named("P1_status", "active"), sql.Named("P2_age", 18)},
		},
		{
			dialect:   dialect.H2,
			wantQuery: "SELECT id, name FROM users WHERE status = $1 AND age > $2 ORDER BY created_at DESC LIMIT 10 OFFSET 20",
			wantArgs:  []any{"active", 18},
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			s := Dialect(tt.dialect).Select("id", "name").
				From("users").
				Where(EQ("status", "active"), GT("age", 18)).
				OrderBy(Desc("created_at")).
				Limit(10).
				Offset(20)
			query, args := s.Query()
			require.NoError(t, s.Err())
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSelector_Deterministic(t *testing.T) {
	s := Dialect(dialect.SQLServer).Select("id").From("users").
		Where(EQ("user_name", "bob"), In("id", 1, 2))
	q1, a1 := s.Query()
	q2, a2 := s.Query()
	assert.Equal(t, "SELECT id FROM users WHERE user_name = @P1_username AND id IN (@P2_id, @P3_id)", q1)
	assert.Equal(t, q1, q2)
	assert.Equal(t, a1, a2)
}

func TestSelector_NoLimit(t *testing.T) {
	query, args := Dialect(dialect.Postgres).Select().From("users").Query()
	assert.Equal(t, "SELECT * FROM users", query)
	assert.Empty(t, args)
}

func TestSelector_SQLServerImplicitOrder(t *testing.T) {
	query, _ := Dialect(dialect.SQLServer).Select("id").From("users").Limit(5).Query()
	assert.Equal(t, "SELECT id FROM users ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 5 ROWS ONLY", query)

	query, _ = Dialect(dialect.SQLServer).Select("id").From("users").OrderBy("id").Limit(5).Query()
	assert.Equal(t, "SELECT id FROM users ORDER BY id OFFSET 0 ROWS FETCH NEXT 5 ROWS ONLY", query)
}

func TestSelector_LimitAtStart(t *testing.T) {
	firebird := dialect.New("firebird", bind.Anonymous("?"), dialect.FirstSkip)
	s := For(firebird).Select("id").From("users").Where(EQ("id", 1)).Limit(10).Offset(5)
	query, args := s.Query()
	require.NoError(t, s.Err())
	assert.Equal(t, "SELECT FIRST 10 SKIP 5 id FROM users WHERE id = ?", query)
	assert.Equal(t, []any{1}, args)

	query, _ = For(firebird).Select("id").From("users").Limit(3).Query()
	assert.Equal(t, "SELECT FIRST 3 id FROM users", query)
}

func TestSelector_ZeroLimit(t *testing.T) {
	s := Dialect(dialect.Postgres).Select("id").From("users").Limit(0)
	query, _ := s.Query()
	require.NoError(t, s.Err())
	assert.Equal(t, "SELECT id FROM users LIMIT 0", query)
}

func TestSelector_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Selector
		check func(error) bool
	}{
		{
			name:  "negative_limit",
			build: func() *Selector { return Dialect(dialect.Postgres).Select("id").From("users").Limit(-1) },
			check: sqldialect.IsInvalidArgument,
		},
		{
			name:  "negative_offset",
			build: func() *Selector { return Dialect(dialect.Postgres).Select("id").From("users").Limit(1).Offset(-1) },
			check: sqldialect.IsInvalidArgument,
		},
		{
			name:  "offset_without_limit",
			build: func() *Selector { return Dialect(dialect.MySQL).Select("id").From("users").Offset(5) },
			check: sqldialect.IsInvalidArgument,
		},
		{
			name:  "invalid_table",
			build: func() *Selector { return Dialect(dialect.MySQL).Select("id").From("users; DROP TABLE users") },
			check: sqldialect.IsInvalidArgument,
		},
		{
			name:  "invalid_order",
			build: func() *Selector { return Dialect(dialect.MySQL).Select("id").From("users").OrderBy("id sideways") },
			check: sqldialect.IsInvalidArgument,
		},
		{
			name:  "array_unsupported",
			build: func() *Selector { return Dialect(dialect.MySQL).Select("id").From("users").Where(EQ("tags", []string{"a"})) },
			check: sqldialect.IsArrayUnsupported,
		},
		{
			name: "unsupported_type",
			build: func() *Selector {
				return Dialect(dialect.SQLite).Select("id").From("users").Where(EQ("meta", struct{ A int }{1}))
			},
			check: func(err error) bool { return errors.Is(err, sqldialect.ErrUnsupportedType) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.build()
			s.Query()
			require.Error(t, s.Err())
			assert.True(t, tt.check(s.Err()), s.Err().Error())
		})
	}
}

func TestSelector_UnknownDialect(t *testing.T) {
	s := Dialect("oracle").Select("id").From("users")
	query, args := s.Query()
	assert.Empty(t, query)
	assert.Nil(t, args)
	assert.True(t, sqldialect.IsUnknownDialect(s.Err()))
}

func TestSelector_Arrays(t *testing.T) {
	s := Dialect(dialect.Postgres).Select("id").From("posts").Where(EQ("tags", []string{"go", "sql"}))
	query, args := s.Query()
	require.NoError(t, s.Err())
	assert.Equal(t, "SELECT id FROM posts WHERE tags = $1", query)
	assert.Equal(t, []any{pq.StringArray{"go", "sql"}}, args)
}

func TestInsertBuilder(t *testing.T) {
	tests := []struct {
		dialect   string
		wantQuery string
		wantArgs  []any
	}{
		{
			dialect:   dialect.Postgres,
			wantQuery: "INSERT INTO users (user_name, age) VALUES ($1, $2), ($3, $4)",
			wantArgs:  []any{"a8m", 30, "nati", 28},
		},
		{
			dialect:   dialect.MySQL,
			wantQuery: "INSERT INTO users (user_name, age) VALUES (?, ?), (?, ?)",
			wantArgs:  []any{"a8m", 30, "nati", 28},
		},
		{
			dialect:   dialect.SQLServer,
			wantQuery: "INSERT INTO users (user_name, age) VALUES (@P1_username, @P2_age), (@P3_username, @P4_age)",
			wantArgs: []any{
				sql.Named("P1_username", "a8m"), sql.Named("P2_age", 30),
				sql.Named("P3_username", "nati"), sql.Named("P4_age", 28),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			i := Dialect(tt.dialect).Insert("users").
				Columns("user_name", "age").
				Values("a8m", 30).
				Values("nati", 28)
			query, args := i.Query()
			require.NoError(t, i.Err())
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestInsertBuilder_Errors(t *testing.T) {
	i := Dialect(dialect.Postgres).Insert("users").Columns("name", "age").Values("a8m")
	i.Query()
	assert.True(t, sqldialect.IsInvalidArgument(i.Err()))

	i = Dialect(dialect.Postgres).Insert("users").Values("a8m")
	i.Query()
	assert.True(t, sqldialect.IsInvalidArgument(i.Err()))

	i = Dialect(dialect.Postgres).Insert("users").Columns("name")
	i.Query()
	assert.True(t, sqldialect.IsInvalidArgument(i.Err()))

	i = Dialect("oracle").Insert("users").Columns("name").Values("a8m")
	query, _ := i.Query()
	assert.Empty(t, query)
	assert.True(t, sqldialect.IsUnknownDialect(i.Err()))
}

func TestBuilder_NullArg(t *testing.T) {
	b := NewBuilder(dialect.PostgresDialect)
	b.WriteString("UPDATE users SET deleted_at = ").Arg("deleted_at", nil)
	query, args := b.Query()
	require.NoError(t, b.Err())
	assert.Equal(t, "UPDATE users SET deleted_at = $1", query)
	assert.Equal(t, []any{nil}, args)
}
