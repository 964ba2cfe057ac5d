package dialect

import (
	"reflect"

	"github.com/lib/pq"
)

// ArrayColumns describes how a dialect stores array-typed columns.
//
// It only reports capability. Rejecting a collection value for a dialect
// without array support is left to the mapping layer.
type ArrayColumns interface {
	// Supported reports whether array columns are available.
	Supported() bool
	// ArrayType returns the driver array type for the scalar element type.
	ArrayType(elem reflect.Type) (reflect.Type, bool)
}

// Unsupported is the ArrayColumns of dialects without array columns.
var Unsupported ArrayColumns = unsupported{}

type unsupported struct{}

func (unsupported) Supported() bool { return false }

func (unsupported) ArrayType(reflect.Type) (reflect.Type, bool) { return nil, false }

// NewArrayColumns returns an ArrayColumns backed by a copy of the given
// element type to array type mapping. Element types absent from the mapping
// resolve through the basic type of their kind, so a named string type maps
// like string.
func NewArrayColumns(mapping map[reflect.Type]reflect.Type) ArrayColumns {
	m := make(map[reflect.Type]reflect.Type, len(mapping))
	for k, v := range mapping {
		m[k] = v
	}
	return arrayMapping(m)
}

type arrayMapping map[reflect.Type]reflect.Type

func (arrayMapping) Supported() bool { return true }

func (m arrayMapping) ArrayType(elem reflect.Type) (reflect.Type, bool) {
	if elem == nil {
		return nil, false
	}
	if t, ok := m[elem]; ok {
		return t, true
	}
	if basic, ok := basicKinds[elem.Kind()]; ok {
		t, ok := m[basic]
		return t, ok
	}
	return nil, false
}

// basicKinds maps a kind to its predeclared type.
var basicKinds = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeFor[bool](),
	reflect.Int:     reflect.TypeFor[int](),
	reflect.Int8:    reflect.TypeFor[int8](),
	reflect.Int16:   reflect.TypeFor[int16](),
	reflect.Int32:   reflect.TypeFor[int32](),
	reflect.Int64:   reflect.TypeFor[int64](),
	reflect.Uint:    reflect.TypeFor[uint](),
	reflect.Uint8:   reflect.TypeFor[uint8](),
	reflect.Uint16:  reflect.TypeFor[uint16](),
	reflect.Uint32:  reflect.TypeFor[uint32](),
	reflect.Uint64:  reflect.TypeFor[uint64](),
	reflect.Float32: reflect.TypeFor[float32](),
	reflect.Float64: reflect.TypeFor[float64](),
	reflect.String:  reflect.TypeFor[string](),
}

// PostgresArrays maps scalar element types to the lib/pq array types.
var PostgresArrays = NewArrayColumns(map[reflect.Type]reflect.Type{
	reflect.TypeFor[string]():  reflect.TypeFor[pq.StringArray](),
	reflect.TypeFor[int]():     reflect.TypeFor[pq.Int64Array](),
	reflect.TypeFor[int64]():   reflect.TypeFor[pq.Int64Array](),
	reflect.TypeFor[int32]():   reflect.TypeFor[pq.Int32Array](),
	reflect.TypeFor[float64](): reflect.TypeFor[pq.Float64Array](),
	reflect.TypeFor[float32](): reflect.TypeFor[pq.Float32Array](),
	reflect.TypeFor[bool]():    reflect.TypeFor[pq.BoolArray](),
	reflect.TypeFor[[]byte]():  reflect.TypeFor[pq.ByteaArray](),
})
