package sql

import (
	"database/sql/driver"
	"reflect"

	"github.com/syssam/sqldialect"
	"github.com/syssam/sqldialect/dialect"
)

// Mapper converts Go values into values the driver of a dialect can bind.
// It snapshots the simple type set of the dialect once, so a single Mapper
// serves all the values of a statement.
type Mapper struct {
	dialect dialect.Dialect
	simple  *dialect.SimpleTypeHolder
}

// NewMapper returns a Mapper for d.
func NewMapper(d dialect.Dialect) *Mapper {
	return &Mapper{dialect: d, simple: d.SimpleTypeHolder()}
}

// Convert returns v in a bindable form:
//
//   - nil, driver.Valuer implementations and simple types pass through.
//   - Slices and arrays become the array type of the dialect, or fail with
//     an ArrayUnsupportedError when the dialect has no array columns.
//   - Anything else fails with an UnsupportedTypeError.
func (m *Mapper) Convert(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(driver.Valuer); ok {
		return v, nil
	}
	t := reflect.TypeOf(v)
	if m.simple.IsSimple(t) {
		return v, nil
	}
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return nil, sqldialect.NewUnsupportedTypeError(m.dialect.Name(), t)
	}
	arrays := m.dialect.ArraySupport()
	if !arrays.Supported() {
		return nil, sqldialect.NewArrayUnsupportedError(m.dialect.Name(), t)
	}
	at, ok := arrays.ArrayType(t.Elem())
	if !ok || at.Kind() != reflect.Slice || !t.Elem().ConvertibleTo(at.Elem()) {
		return nil, sqldialect.NewUnsupportedTypeError(m.dialect.Name(), t)
	}
	rv := reflect.ValueOf(v)
	if t.Kind() == reflect.Slice && rv.IsNil() {
		return reflect.Zero(at).Interface(), nil
	}
	out := reflect.MakeSlice(at, rv.Len(), rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out.Index(i).Set(rv.Index(i).Convert(at.Elem()))
	}
	return out.Interface(), nil
}

// ConvertValue converts a single value for d. See Mapper.Convert.
func ConvertValue(d dialect.Dialect, v any) (any, error) {
	return NewMapper(d).Convert(v)
}
