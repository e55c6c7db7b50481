// Package patch provides targeted edits on serialized schematic text for
// cases where round-tripping the full document model is unnecessary or the
// input is only partially understood: excising a balanced block by anchor,
// bulk identifier renames, and the sub-definition qualifier fix. All scans
// are quote-aware, so parentheses inside string values never skew depth.
package patch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp"
)

// Span is a half-open byte range [Start, End) in a text document
type Span struct {
	Start int
	End   int
}

// Len returns the span length in bytes
func (s Span) Len() int { return s.End - s.Start }

// FindBalancedBlock returns the span of the smallest balanced block whose
// opening text matches anchor. The anchor identifies the block's opening
// token, e.g. `(symbol "Device:R"`; the span runs from that opening
// parenthesis through its matching close.
func FindBalancedBlock(text, anchor string) (Span, bool) {
	idx := strings.Index(text, anchor)
	if idx < 0 {
		return Span{}, false
	}

	// Walk back to the opening paren if the anchor does not start on it
	start := idx
	for start > 0 && text[start] != '(' {
		start--
	}
	if text[start] != '(' {
		return Span{}, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return Span{Start: start, End: i + 1}, true
			}
		}
	}

	return Span{}, false
}

// ReplaceBlock substitutes the span with replacement text
func ReplaceBlock(text string, span Span, replacement string) string {
	return text[:span.Start] + replacement + text[span.End:]
}

// DeleteBlock removes the span along with any trailing newline whitespace
// left behind on its line.
func DeleteBlock(text string, span Span) string {
	end := span.End
	for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
		end++
	}
	if end < len(text) && text[end] == '\n' {
		end++
	}
	return text[:span.Start] + text[end:]
}

// identifier-shaped token: letters, digits, underscore, colon, leading #
// for power references. Bounded so substrings of longer identifiers never
// match.
const identBody = `[#A-Za-z0-9_:]`

// RenameIdentifier replaces every occurrence of old as a whole
// identifier-shaped token (quoted or bare) with new. Substrings of longer
// identifiers are left alone: renaming R1 does not touch R10.
func RenameIdentifier(text, old, new string) string {
	re := regexp.MustCompile(`(^|` + notIdent + `)` + regexp.QuoteMeta(old) + `($|` + notIdent + `)`)
	// Two passes: adjacent matches can share a boundary character, which
	// a single pass would consume.
	for range [2]struct{}{} {
		text = re.ReplaceAllString(text, `${1}`+new+`${2}`)
	}
	return text
}

const notIdent = `[^#A-Za-z0-9_:]`

// RenamePrefix rewrites every identifier starting with oldPrefix to carry
// newPrefix instead, preserving the remainder. Used for bulk reference
// renumbering (e.g. R -> R1xx banks).
func RenamePrefix(text, oldPrefix, newPrefix string) string {
	re := regexp.MustCompile(`(^|` + notIdent + `)` + regexp.QuoteMeta(oldPrefix) + `(` + identBody + `*)`)
	return re.ReplaceAllString(text, `${1}`+newPrefix+`${2}`)
}

// subDefPattern matches quoted sub-definition names: a base identifier with
// the _<unit>_<style> suffix KiCad gives nested symbol units.
var subDefPattern = regexp.MustCompile(`\(symbol "([^"]+?)(_\d+_\d+)"`)

// StripQualifier removes a leading "qualifier:" from sub-definition
// identifiers at any nesting depth. Top-level identifiers (those without
// the _N_N unit suffix) keep their qualifier: (symbol "Device:R" stays,
// (symbol "Device:R_0_1" becomes (symbol "R_0_1". Idempotent.
func StripQualifier(text, qualifier string) string {
	prefix := qualifier + ":"
	return subDefPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := subDefPattern.FindStringSubmatch(match)
		base, suffix := groups[1], groups[2]
		if strings.HasPrefix(base, prefix) {
			return `(symbol "` + strings.TrimPrefix(base, prefix) + suffix + `"`
		}
		return match
	})
}

// InsertBeforeClose inserts a block before the document's final closing
// delimiter, keeping it inside the root node.
func InsertBeforeClose(text, block string) (string, error) {
	idx := strings.LastIndexByte(text, ')')
	if idx < 0 {
		return "", &sexp.StructuralError{Msg: "no closing delimiter to insert before"}
	}
	block = strings.TrimRight(block, "\n")
	return text[:idx] + block + "\n" + text[idx:], nil
}

// AssertBalanced verifies the text's grouping delimiters balance to depth
// zero, ignoring parentheses inside quoted strings. It must run as the
// final step of any generation or patch pipeline; the error carries the
// exact depth delta (opens minus closes).
func AssertBalanced(text string) error {
	depth := 0
	minDepth := 0
	inString := false
	escaped := false
	for _, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth < minDepth {
				minDepth = depth
			}
		}
	}
	if inString {
		return &sexp.StructuralError{Msg: "unterminated string"}
	}
	if depth != 0 {
		return &sexp.StructuralError{Delta: depth}
	}
	if minDepth < 0 {
		return &sexp.StructuralError{Delta: minDepth, Msg: fmt.Sprintf("depth dips to %d", minDepth)}
	}
	return nil
}
