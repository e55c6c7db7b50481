package kicadsexp

import (
	"strings"
)

// Lists whose single-line form fits within this width render inline,
// matching the compact style KiCad uses for (at ...), (xy ...) and friends.
const inlineWidth = 72

// Format renders a tree with tab indentation in the layout eeschema writes:
// short leaf-only lists stay on one line, everything else breaks with each
// child on its own line and the closing paren on the starting column.
func Format(s Sexp) string {
	var b strings.Builder
	format(&b, s, 0)
	b.WriteByte('\n')
	return b.String()
}

func format(b *strings.Builder, s Sexp, depth int) {
	list, ok := s.(*List)
	if !ok {
		b.WriteString(s.String())
		return
	}

	flat := list.String()
	if len(flat) <= inlineWidth && !containsList(list) {
		b.WriteString(flat)
		return
	}

	b.WriteByte('(')
	// Leading atoms (the node key and its immediate values) stay on the
	// opening line; the first sub-list starts the multi-line section.
	i := 0
	for ; i < list.Len(); i++ {
		elem := list.At(i)
		if !elem.IsLeaf() {
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(elem.String())
	}
	for ; i < list.Len(); i++ {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("\t", depth+1))
		format(b, list.At(i), depth+1)
	}
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("\t", depth))
	b.WriteByte(')')
}

func containsList(l *List) bool {
	for _, e := range l.Items() {
		if !e.IsLeaf() {
			return true
		}
	}
	return false
}
