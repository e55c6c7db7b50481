// Package kicadsexp provides a streaming S-expression parser and a mutable
// node tree for KiCad schematic and symbol-library files. Unlike
// general-purpose sexp libraries, it keeps quoted strings distinct from bare
// symbols so serialized output round-trips KiCad's quoting exactly.
package kicadsexp

import (
	"io"
	"strings"
)

// Sexp represents an S-expression node: either an atom (Symbol, Str) or a
// *List. Atoms are immutable values; lists are mutable in place.
type Sexp interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// String returns the serialized single-line representation
	String() string
}

// Symbol represents an unquoted atom (identifier, keyword, number)
type Symbol string

func (s Symbol) IsLeaf() bool   { return true }
func (s Symbol) String() string { return string(s) }

// Str represents a quoted string atom. Its String form carries the quotes
// and escapes, so emitting a tree reproduces valid KiCad syntax.
type Str string

func (s Str) IsLeaf() bool { return true }

func (s Str) String() string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range string(s) {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// List represents a parenthesized list of S-expressions
type List struct {
	elements []Sexp
}

// NewList creates a list from the given elements
func NewList(elements ...Sexp) *List {
	return &List{elements: elements}
}

func (l *List) IsLeaf() bool { return false }

// Len returns the number of elements in the list
func (l *List) Len() int { return len(l.elements) }

// At returns the element at the given index, or nil if out of bounds
func (l *List) At(index int) Sexp {
	if index < 0 || index >= len(l.elements) {
		return nil
	}
	return l.elements[index]
}

// Items returns the underlying element slice. Callers must not reorder it
// directly; use the mutation methods so structural guarantees hold.
func (l *List) Items() []Sexp { return l.elements }

// Append adds elements to the end of the list
func (l *List) Append(elements ...Sexp) {
	l.elements = append(l.elements, elements...)
}

// InsertAt inserts an element at the given index. Out-of-range indices
// clamp to the ends of the list.
func (l *List) InsertAt(index int, e Sexp) {
	if index < 0 {
		index = 0
	}
	if index > len(l.elements) {
		index = len(l.elements)
	}
	l.elements = append(l.elements, nil)
	copy(l.elements[index+1:], l.elements[index:])
	l.elements[index] = e
}

// RemoveAt removes the element at the given index and reports whether an
// element was removed. Only whole elements can be removed, so the tree
// stays balanced by construction.
func (l *List) RemoveAt(index int) bool {
	if index < 0 || index >= len(l.elements) {
		return false
	}
	l.elements = append(l.elements[:index], l.elements[index+1:]...)
	return true
}

// ReplaceAt swaps the element at the given index for e
func (l *List) ReplaceAt(index int, e Sexp) bool {
	if index < 0 || index >= len(l.elements) {
		return false
	}
	l.elements[index] = e
	return true
}

// Clone returns a deep copy of the list. Atoms are shared (they are
// immutable values), sub-lists are copied recursively.
func (l *List) Clone() *List {
	out := &List{elements: make([]Sexp, len(l.elements))}
	for i, e := range l.elements {
		if sub, ok := e.(*List); ok {
			out.elements[i] = sub.Clone()
		} else {
			out.elements[i] = e
		}
	}
	return out
}

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, elem := range l.elements {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(elem.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Parse parses all top-level S-expressions from an io.Reader
func Parse(r io.Reader) ([]Sexp, error) {
	return NewParser(r).ParseAll()
}

// ParseString parses S-expressions from a string
func ParseString(s string) ([]Sexp, error) {
	return Parse(strings.NewReader(s))
}

// ParseOne parses input that must contain exactly one top-level expression
func ParseOne(s string) (Sexp, error) {
	exprs, err := ParseString(s)
	if err != nil {
		return nil, err
	}
	if len(exprs) != 1 {
		return nil, &ParseError{Msg: "expected exactly one top-level expression"}
	}
	return exprs[0], nil
}
