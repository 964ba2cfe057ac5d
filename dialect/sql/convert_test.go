package sql

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqldialect"
	"github.com/syssam/sqldialect/dialect"
)

func TestConvertValue_PassThrough(t *testing.T) {
	name := "a8m"
	now := time.Now()
	id := uuid.New()
	values := []any{
		nil,
		1,
		int64(2),
		"a8m",
		&name,
		[]byte("raw"),
		now,
		id,
		decimal.RequireFromString("1.5"),
		sql.NullString{String: "x", Valid: true},
	}
	for _, d := range dialect.Dialects() {
		t.Run(d.Name(), func(t *testing.T) {
			for _, v := range values {
				got, err := ConvertValue(d, v)
				require.NoError(t, err, "%T", v)
				assert.Equal(t, v, got)
			}
		})
	}
}

func TestConvertValue_Arrays(t *testing.T) {
	type label string
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"strings", []string{"a", "b"}, pq.StringArray{"a", "b"}},
		{"named_strings", []label{"a"}, pq.StringArray{"a"}},
		{"ints", []int{1, 2}, pq.Int64Array{1, 2}},
		{"int32s", []int32{3}, pq.Int32Array{3}},
		{"bools", []bool{true}, pq.BoolArray{true}},
		{"fixed_array", [2]string{"x", "y"}, pq.StringArray{"x", "y"}},
		{"nil_slice", []string(nil), pq.StringArray(nil)},
		{"bytes_slices", [][]byte{[]byte("a")}, pq.ByteaArray{[]byte("a")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertValue(dialect.PostgresDialect, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertValue_Errors(t *testing.T) {
	_, err := ConvertValue(dialect.MySQLDialect, []string{"a"})
	require.Error(t, err)
	assert.True(t, sqldialect.IsArrayUnsupported(err))
	var arrErr *sqldialect.ArrayUnsupportedError
	require.True(t, errors.As(err, &arrErr))
	assert.Equal(t, dialect.MySQL, arrErr.Dialect)

	_, err = ConvertValue(dialect.PostgresDialect, []uint16{1})
	assert.True(t, errors.Is(err, sqldialect.ErrUnsupportedType))

	_, err = ConvertValue(dialect.SQLiteDialect, map[string]int{"a": 1})
	assert.True(t, errors.Is(err, sqldialect.ErrUnsupportedType))

	_, err = ConvertValue(dialect.SQLiteDialect, struct{}{})
	assert.True(t, errors.Is(err, sqldialect.ErrUnsupportedType))

	// Not a native type of MySQL.
	_, err = ConvertValue(dialect.MySQLDialect, uuid.New())
	assert.NoError(t, err, "driver.Valuer values are always accepted")
}
