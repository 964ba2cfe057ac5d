package dialect

import (
	"database/sql"
	"encoding/json"
	"reflect"
	"slices"
	"strings"
	"time"
)

// baseline is the set of types every engine binds without conversion.
var baseline = []reflect.Type{
	reflect.TypeFor[bool](),
	reflect.TypeFor[int](),
	reflect.TypeFor[int8](),
	reflect.TypeFor[int16](),
	reflect.TypeFor[int32](),
	reflect.TypeFor[int64](),
	reflect.TypeFor[uint](),
	reflect.TypeFor[uint8](),
	reflect.TypeFor[uint16](),
	reflect.TypeFor[uint32](),
	reflect.TypeFor[uint64](),
	reflect.TypeFor[float32](),
	reflect.TypeFor[float64](),
	reflect.TypeFor[string](),
	reflect.TypeFor[[]byte](),
	reflect.TypeFor[json.RawMessage](),
	reflect.TypeFor[time.Time](),
	reflect.TypeFor[time.Duration](),
	reflect.TypeFor[sql.NullBool](),
	reflect.TypeFor[sql.NullByte](),
	reflect.TypeFor[sql.NullInt16](),
	reflect.TypeFor[sql.NullInt32](),
	reflect.TypeFor[sql.NullInt64](),
	reflect.TypeFor[sql.NullFloat64](),
	reflect.TypeFor[sql.NullString](),
	reflect.TypeFor[sql.NullTime](),
}

// BaselineSimpleTypes returns the cross-engine simple types: primitives,
// strings, byte slices, temporal types and the database/sql null wrappers.
func BaselineSimpleTypes() []reflect.Type {
	return slices.Clone(baseline)
}

// SimpleTypeHolder classifies the value types a dialect binds directly.
type SimpleTypeHolder struct {
	types map[reflect.Type]struct{}
}

// NewSimpleTypeHolder returns a holder for the union of the baseline types
// and the given native types.
func NewSimpleTypeHolder(native ...reflect.Type) *SimpleTypeHolder {
	h := &SimpleTypeHolder{types: make(map[reflect.Type]struct{}, len(baseline)+len(native))}
	for _, t := range baseline {
		h.types[t] = struct{}{}
	}
	for _, t := range native {
		if t != nil {
			h.types[t] = struct{}{}
		}
	}
	return h
}

// Contains reports whether t is a member of the set.
func (h *SimpleTypeHolder) Contains(t reflect.Type) bool {
	_, ok := h.types[t]
	return ok
}

// IsSimple reports whether values of type t can be bound without custom
// conversion. Pointers are dereferenced, and named types whose underlying
// kind is a boolean, number or string count as simple.
func (h *SimpleTypeHolder) IsSimple(t reflect.Type) bool {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return false
	}
	if h.Contains(t) {
		return true
	}
	_, ok := basicKinds[t.Kind()]
	return ok
}

// Types returns the members of the set ordered by type name.
func (h *SimpleTypeHolder) Types() []reflect.Type {
	types := make([]reflect.Type, 0, len(h.types))
	for t := range h.types {
		types = append(types, t)
	}
	slices.SortFunc(types, func(a, b reflect.Type) int {
		return strings.Compare(typeKey(a), typeKey(b))
	})
	return types
}

// Len returns the number of member types.
func (h *SimpleTypeHolder) Len() int {
	return len(h.types)
}

// typeKey orders types with equal names, e.g. two packages named "types".
func typeKey(t reflect.Type) string {
	return t.String() + "\x00" + t.PkgPath()
}
