package bind

import (
	"database/sql"
	"maps"
	"reflect"
	"slices"
)

// Bindings collects the values bound to the markers of one statement. It is
// keyed by marker identity (position or name), never by rendered text, so
// engines where every marker renders as "?" work the same way as named ones.
//
// The zero value is ready to use.
type Bindings struct {
	indexed map[int]any
	names   []string       // bind order
	named   map[string]any // name => value
}

// NewBindings returns an empty container.
func NewBindings() *Bindings {
	return &Bindings{}
}

// BindIndex binds v to the zero-based position i.
func (b *Bindings) BindIndex(i int, v any) {
	if b.indexed == nil {
		b.indexed = make(map[int]any)
	}
	b.indexed[i] = v
}

// BindName binds v to name. Rebinding a name replaces its value and keeps
// its original position.
func (b *Bindings) BindName(name string, v any) {
	if b.named == nil {
		b.named = make(map[string]any)
	}
	if _, ok := b.named[name]; !ok {
		b.names = append(b.names, name)
	}
	b.named[name] = v
}

// BindNullIndex binds a NULL of type t to position i.
func (b *Bindings) BindNullIndex(i int, t reflect.Type) {
	b.BindIndex(i, null(t))
}

// BindNullName binds a NULL of type t to name.
func (b *Bindings) BindNullName(name string, t reflect.Type) {
	b.BindName(name, null(t))
}

// Index returns the value bound to position i.
func (b *Bindings) Index(i int) (any, bool) {
	v, ok := b.indexed[i]
	return v, ok
}

// Name returns the value bound to name.
func (b *Bindings) Name(name string) (any, bool) {
	v, ok := b.named[name]
	return v, ok
}

// Len returns the number of arguments Args returns, which counts the NULL
// gaps between bound positions.
func (b *Bindings) Len() int {
	n := len(b.named)
	if len(b.indexed) > 0 {
		n += slices.Max(slices.Collect(maps.Keys(b.indexed))) + 1
	}
	return n
}

// Args returns the bindings as database/sql arguments: positional values
// ordered by index, with unbound gaps left NULL, followed by named values as
// sql.NamedArg in bind order.
func (b *Bindings) Args() []any {
	var args []any
	if len(b.indexed) > 0 {
		keys := make([]int, 0, len(b.indexed))
		for k := range b.indexed {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		args = make([]any, keys[len(keys)-1]+1, keys[len(keys)-1]+1+len(b.names))
		for _, k := range keys {
			args[k] = b.indexed[k]
		}
	}
	for _, name := range b.names {
		args = append(args, sql.Named(name, b.named[name]))
	}
	return args
}

// null returns a typed nil for t, which database/sql sends as NULL.
func null(t reflect.Type) any {
	if t == nil {
		return nil
	}
	return reflect.Zero(reflect.PointerTo(t)).Interface()
}
