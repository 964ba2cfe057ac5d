package dialect

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqldialect"
	"github.com/syssam/sqldialect/dialect/bind"
)

func render(d Dialect, hints ...string) []string {
	m := d.BindMarkersFactory().Create()
	out := make([]string, len(hints))
	for i, h := range hints {
		out[i] = m.NextHint(h).Placeholder()
	}
	return out
}

func TestBuiltinDialects(t *testing.T) {
	tests := []struct {
		d        Dialect
		name     string
		markers  []string
		limit    string
		offset   string
		arrays   bool
		native   []reflect.Type
		position Position
	}{
		{
			d: PostgresDialect, name: Postgres,
			markers: []string{"$1", "$2", "$3"},
			limit:   "LIMIT 10", offset: "LIMIT 10 OFFSET 5",
			arrays:   true,
			native:   []reflect.Type{reflect.TypeFor[uuid.UUID](), reflect.TypeFor[decimal.Decimal]()},
			position: PositionEnd,
		},
		{
			d: MySQLDialect, name: MySQL,
			markers: []string{"?", "?", "?"},
			limit:   "LIMIT 10", offset: "LIMIT 5, 10",
			native:   []reflect.Type{reflect.TypeFor[decimal.Decimal]()},
			position: PositionEnd,
		},
		{
			d: SQLiteDialect, name: SQLite,
			markers: []string{"?", "?", "?"},
			limit:   "LIMIT 10", offset: "LIMIT 10 OFFSET 5",
			position: PositionEnd,
		},
		{
			d: SQLServerDialect, name: SQLServer,
			markers: []string{"@P1_username", "@P2_id", "@P3"},
			limit:   "OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY", offset: "OFFSET 5 ROWS FETCH NEXT 10 ROWS ONLY",
			native:   []reflect.Type{reflect.TypeFor[uuid.UUID]()},
			position: PositionEnd,
		},
		{
			d: H2Dialect, name: H2,
			markers: []string{"$1", "$2", "$3"},
			limit:   "LIMIT 10", offset: "LIMIT 10 OFFSET 5",
			native:   []reflect.Type{reflect.TypeFor[uuid.UUID]()},
			position: PositionEnd,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.d.Name())
			assert.Equal(t, tt.markers, render(tt.d, "user-name!", "id", "###"))
			assert.Equal(t, tt.limit, tt.d.Limit().Clause(10))
			assert.Equal(t, tt.offset, tt.d.Limit().ClauseOffset(10, 5))
			assert.Equal(t, tt.position, tt.d.Limit().Position())
			assert.Equal(t, tt.arrays, tt.d.ArraySupport().Supported())
			assert.ElementsMatch(t, tt.native, tt.d.SimpleTypes())
			h := tt.d.SimpleTypeHolder()
			assert.Equal(t, len(BaselineSimpleTypes())+len(tt.native), h.Len())
		})
	}
}

func TestEngine_Defaults(t *testing.T) {
	e := New("custom", bind.Anonymous("?"), FirstSkip)
	assert.Empty(t, e.SimpleTypes())
	assert.Equal(t, Unsupported, e.ArraySupport())
	assert.Equal(t, len(BaselineSimpleTypes()), e.SimpleTypeHolder().Len())
	assert.Equal(t, PositionStart, e.Limit().Position())
	assert.Equal(t, "custom", e.String())

	e = New("custom", bind.Anonymous("?"), FirstSkip, WithArraySupport(nil))
	assert.Equal(t, Unsupported, e.ArraySupport(), "nil keeps the default")
}

func TestEngine_Immutable(t *testing.T) {
	types := []reflect.Type{reflect.TypeFor[uuid.UUID]()}
	e := New("custom", bind.Anonymous("?"), LimitOffset, WithSimpleTypes(types...))
	types[0] = reflect.TypeFor[decimal.Decimal]()
	assert.Equal(t, []reflect.Type{reflect.TypeFor[uuid.UUID]()}, e.SimpleTypes())

	got := e.SimpleTypes()
	got[0] = nil
	assert.Equal(t, []reflect.Type{reflect.TypeFor[uuid.UUID]()}, e.SimpleTypes())

	// A fresh holder is built on every call.
	assert.NotSame(t, e.SimpleTypeHolder(), e.SimpleTypeHolder())
	assert.Equal(t, e.SimpleTypeHolder().Types(), e.SimpleTypeHolder().Types())
}

func TestByName(t *testing.T) {
	tests := []struct {
		name string
		want Dialect
	}{
		{"postgres", PostgresDialect},
		{"pgx", PostgresDialect},
		{"Postgres-otel", PostgresDialect},
		{"mysql", MySQLDialect},
		{"mariadb", MySQLDialect},
		{"sqlite", SQLiteDialect},
		{"sqlite3", SQLiteDialect},
		{"sqlserver", SQLServerDialect},
		{"mssql", SQLServerDialect},
		{"azuresql", SQLServerDialect},
		{"h2", H2Dialect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ByName(tt.name)
			require.NoError(t, err)
			assert.Same(t, tt.want, d)
		})
	}

	_, err := ByName("oracle")
	require.Error(t, err)
	assert.True(t, sqldialect.IsUnknownDialect(err))
	assert.EqualError(t, err, `sqldialect: unknown dialect "oracle"`)
}

func TestDialects(t *testing.T) {
	names := make([]string, 0)
	for _, d := range Dialects() {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{Postgres, MySQL, SQLite, SQLServer, H2}, names)
}
