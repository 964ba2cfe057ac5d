// Package bind generates dialect-legal bind markers for parameterized SQL.
//
// A Factory is immutable and shared by all queries of a dialect. Each query
// under construction calls Create once to obtain its own Markers sequence and
// asks it for one Marker per bound parameter, in the order the parameters
// appear in the statement text:
//
//	markers := bind.Named("@", "P", 32, bind.FoldASCII).Create()
//	m := markers.NextHint("user-name") // @P1_username
//	m.Bind(bindings, "a8m")
//
// Three naming strategies are provided:
//
//   - Anonymous: every marker renders the same text, e.g. "?".
//   - Indexed: "$1", "$2", ... with a configurable first index.
//   - Named: "@P1", "@P2_name", ... where the hint is a debugging aid and the
//     counter is always part of the name.
//
// Rendered names depend only on the order of calls on a sequence, so the same
// sequence of calls always yields the same SQL text.
package bind

import (
	"fmt"
	"reflect"
	"strconv"
	"unicode/utf8"
)

// Marker is a single placeholder of a parameterized statement.
type Marker interface {
	// Placeholder returns the SQL text of the marker.
	Placeholder() string
	// Bind binds v to the marker in b.
	Bind(b *Bindings, v any)
	// BindNull binds a NULL of type t to the marker in b.
	BindNull(b *Bindings, t reflect.Type)
}

// Markers is a stateful marker sequence scoped to the construction of one
// statement. It must not be shared between goroutines.
type Markers interface {
	// Next returns a new marker.
	Next() Marker
	// NextHint returns a new marker, using hint to derive a more readable
	// name where the strategy supports it.
	NextHint(hint string) Marker
}

// Factory creates marker sequences. Implementations are immutable and safe
// for concurrent use.
type Factory interface {
	// Create returns a fresh sequence with its counter reset.
	Create() Markers
	// Identifiable reports whether distinct markers render distinct text.
	Identifiable() bool
}

// indexedMarker binds by position.
type indexedMarker struct {
	placeholder string
	index       int
}

func (m indexedMarker) Placeholder() string { return m.placeholder }

func (m indexedMarker) Bind(b *Bindings, v any) { b.BindIndex(m.index, v) }

func (m indexedMarker) BindNull(b *Bindings, t reflect.Type) { b.BindNullIndex(m.index, t) }

// Index returns the zero-based bind position of the marker.
func (m indexedMarker) Index() int { return m.index }

// namedMarker binds by name. The name excludes the prefix.
type namedMarker struct {
	placeholder string
	name        string
}

func (m namedMarker) Placeholder() string { return m.placeholder }

func (m namedMarker) Bind(b *Bindings, v any) { b.BindName(m.name, v) }

func (m namedMarker) BindNull(b *Bindings, t reflect.Type) { b.BindNullName(m.name, t) }

// Name returns the bind name of the marker.
func (m namedMarker) Name() string { return m.name }

// Anonymous returns a Factory whose markers all render placeholder, as
// MySQL and SQLite use "?". Values are bound by position.
func Anonymous(placeholder string) Factory {
	return anonymous{placeholder: placeholder}
}

type anonymous struct {
	placeholder string
}

func (f anonymous) Create() Markers { return &anonymousMarkers{placeholder: f.placeholder} }

func (anonymous) Identifiable() bool { return false }

type anonymousMarkers struct {
	placeholder string
	index       int
}

func (m *anonymousMarkers) Next() Marker {
	mk := indexedMarker{placeholder: m.placeholder, index: m.index}
	m.index++
	return mk
}

// NextHint ignores the hint; anonymous markers have no name.
func (m *anonymousMarkers) NextHint(string) Marker { return m.Next() }

// Indexed returns a Factory rendering prefix followed by a number starting
// at begin, e.g. Indexed("$", 1) produces $1, $2, ...
// It panics if begin is negative.
func Indexed(prefix string, begin int) Factory {
	if begin < 0 {
		panic(fmt.Sprintf("bind: negative begin %d for indexed markers %q", begin, prefix))
	}
	return indexed{prefix: prefix, begin: begin}
}

type indexed struct {
	prefix string
	begin  int
}

func (f indexed) Create() Markers { return &indexedMarkers{indexed: f} }

func (indexed) Identifiable() bool { return true }

type indexedMarkers struct {
	indexed
	index int
}

func (m *indexedMarkers) Next() Marker {
	mk := indexedMarker{
		placeholder: m.prefix + strconv.Itoa(m.begin+m.index),
		index:       m.index,
	}
	m.index++
	return mk
}

// NextHint ignores the hint; positional names carry no suffix.
func (m *indexedMarkers) NextHint(string) Marker { return m.Next() }

// Named returns a Factory rendering prefix, name and a counter starting at 1,
// e.g. Named("@", "P", 32, ASCIIAlnum) produces @P1, @P2, ...
//
// NextHint appends "_" and a suffix derived from the hint: the hint is cut to
// maxHint characters, passed through filter and capped again at maxHint.
// filter must keep only characters legal in identifiers of the engine. An
// empty suffix, or a maxHint below 1, falls back to the plain name.
func Named(prefix, name string, maxHint int, filter func(string) string) Factory {
	if filter == nil {
		filter = ASCIIAlnum
	}
	return named{prefix: prefix, name: name, maxHint: maxHint, filter: filter}
}

type named struct {
	prefix  string
	name    string
	maxHint int
	filter  func(string) string
}

func (f named) Create() Markers { return &namedMarkers{named: f, counter: 1} }

func (named) Identifiable() bool { return true }

// suffix derives the sanitized hint suffix.
func (f named) suffix(hint string) string {
	if f.maxHint < 1 || hint == "" {
		return ""
	}
	return truncate(f.filter(truncate(hint, f.maxHint)), f.maxHint)
}

type namedMarkers struct {
	named
	counter int
}

func (m *namedMarkers) nextName() string {
	name := m.name + strconv.Itoa(m.counter)
	m.counter++
	return name
}

func (m *namedMarkers) Next() Marker {
	name := m.nextName()
	return namedMarker{placeholder: m.prefix + name, name: name}
}

func (m *namedMarkers) NextHint(hint string) Marker {
	name := m.nextName()
	if s := m.suffix(hint); s != "" {
		name += "_" + s
	}
	return namedMarker{placeholder: m.prefix + name, name: name}
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Style is the binding strategy of a Factory.
type Style int

// Binding styles.
const (
	StyleAnonymous Style = iota // same text, bound by position
	StyleIndexed                // distinct text, bound by position
	StyleNamed                  // distinct text, bound by name
)

// String returns the style name.
func (s Style) String() string {
	switch s {
	case StyleAnonymous:
		return "anonymous"
	case StyleIndexed:
		return "indexed"
	case StyleNamed:
		return "named"
	default:
		return "Style(" + strconv.Itoa(int(s)) + ")"
	}
}

// StyleOf reports how the markers of f bind their values.
func StyleOf(f Factory) Style {
	if _, ok := f.Create().Next().(interface{ Name() string }); ok {
		return StyleNamed
	}
	if f.Identifiable() {
		return StyleIndexed
	}
	return StyleAnonymous
}
