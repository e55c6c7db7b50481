package patch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp"
)

const sampleDoc = `(kicad_sch
	(version 20231120)
	(lib_symbols
		(symbol "Device:R"
			(symbol "Device:R_0_1"
				(rectangle (start -1.016 -2.54) (end 1.016 2.54))
			)
			(symbol "Device:R_1_1"
				(pin passive (at 0 3.81 270) (name "~") (number "1"))
			)
		)
	)
	(symbol (lib_id "Device:R") (at 100 100 0)
		(property "Reference" "R1" (at 100 96.19 0))
	)
	(wire (pts (xy 0 0) (xy 0 1.27)))
)
`

func TestFindBalancedBlock(t *testing.T) {
	tests := map[string]struct {
		text      string
		anchor    string
		wantFound bool
		wantText  string
	}{
		"whole document": {
			text:      "(a (b c))",
			anchor:    "(a",
			wantFound: true,
			wantText:  "(a (b c))",
		},
		"inner block": {
			text:      "(a (b c) (d e))",
			anchor:    "(d",
			wantFound: true,
			wantText:  "(d e)",
		},
		"anchor mid-token backs up to paren": {
			text:      `(symbol "Device:R" (pin))`,
			anchor:    `"Device:R"`,
			wantFound: true,
			wantText:  `(symbol "Device:R" (pin))`,
		},
		"parens inside strings ignored": {
			text:      `(a (b ":)") (c))`,
			anchor:    "(b",
			wantFound: true,
			wantText:  `(b ":)")`,
		},
		"anchor absent": {
			text:      "(a b)",
			anchor:    "(missing",
			wantFound: false,
		},
		"unclosed block": {
			text:      "(a (b c",
			anchor:    "(b",
			wantFound: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			span, found := FindBalancedBlock(tc.text, tc.anchor)
			require.Equal(t, tc.wantFound, found)
			if found {
				assert.Equal(t, tc.wantText, tc.text[span.Start:span.End])
			}
		})
	}
}

func TestReplaceAndDeleteBlock(t *testing.T) {
	text := "(a\n\t(b c)\n\t(d e)\n)"

	span, found := FindBalancedBlock(text, "(b")
	require.True(t, found)

	replaced := ReplaceBlock(text, span, "(x y)")
	assert.Equal(t, "(a\n\t(x y)\n\t(d e)\n)", replaced)
	assert.NoError(t, AssertBalanced(replaced))

	deleted := DeleteBlock(text, span)
	assert.NotContains(t, deleted, "(b c)")
	assert.NoError(t, AssertBalanced(deleted))
}

func TestRenameIdentifier(t *testing.T) {
	tests := map[string]struct {
		text string
		old  string
		new  string
		want string
	}{
		"quoted reference": {
			text: `(property "Reference" "R1")`,
			old:  "R1", new: "R7",
			want: `(property "Reference" "R7")`,
		},
		"substring of longer identifier untouched": {
			text: `("R1" "R10" "R1")`,
			old:  "R1", new: "R7",
			want: `("R7" "R10" "R7")`,
		},
		"adjacent occurrences share a boundary": {
			text: `R1 R1 R1`,
			old:  "R1", new: "R7",
			want: `R7 R7 R7`,
		},
		"power reference": {
			text: `(reference "#PWR001")`,
			old:  "#PWR001", new: "#PWR002",
			want: `(reference "#PWR002")`,
		},
		"colon-qualified name not split": {
			text: `(lib_id "Device:R1")`,
			old:  "R1", new: "R7",
			want: `(lib_id "Device:R1")`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, RenameIdentifier(tc.text, tc.old, tc.new))
		})
	}
}

func TestRenamePrefix(t *testing.T) {
	text := `("OLD_A" "OLD_B" "KEEP_OLD_C")`
	got := RenamePrefix(text, "OLD_", "NEW_")
	assert.Equal(t, `("NEW_A" "NEW_B" "KEEP_OLD_C")`, got)
}

func TestStripQualifier(t *testing.T) {
	got := StripQualifier(sampleDoc, "Device")

	assert.Contains(t, got, `(symbol "Device:R"`, "top-level name keeps its qualifier")
	assert.Contains(t, got, `(symbol "R_0_1"`)
	assert.Contains(t, got, `(symbol "R_1_1"`)
	assert.NotContains(t, got, `"Device:R_0_1"`)
	assert.NotContains(t, got, `"Device:R_1_1"`)
	// lib_id values are not sub-definitions
	assert.Contains(t, got, `(lib_id "Device:R")`)

	assert.Equal(t, got, StripQualifier(got, "Device"), "idempotent")
	assert.NoError(t, AssertBalanced(got))
}

func TestInsertBeforeClose(t *testing.T) {
	got, err := InsertBeforeClose(sampleDoc, "(no_connect (at 100 103.81) (uuid \"x\"))\n")
	require.NoError(t, err)
	assert.NoError(t, AssertBalanced(got))
	assert.True(t, strings.Index(got, "no_connect") < strings.LastIndexByte(got, ')'),
		"inserted block stays inside the root node")

	_, err = InsertBeforeClose("no parens here", "(x)")
	assert.Error(t, err)
}

func TestAssertBalanced(t *testing.T) {
	tests := map[string]struct {
		text      string
		wantDelta int
		wantErr   bool
	}{
		"balanced":              {text: "(a (b c) (d))", wantErr: false},
		"empty":                 {text: "", wantErr: false},
		"missing close":         {text: "(a (b c)", wantDelta: 1, wantErr: true},
		"two missing closes":    {text: "(a (b (c", wantDelta: 3, wantErr: true},
		"extra close":           {text: "(a b))", wantDelta: -1, wantErr: true},
		"paren inside string":   {text: `(a "(((")`, wantErr: false},
		"unterminated string":   {text: `(a "b)`, wantErr: true},
		"close before open dip": {text: ")(", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := AssertBalanced(tc.text)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var serr *sexp.StructuralError
			require.ErrorAs(t, err, &serr)
			if tc.wantDelta != 0 {
				assert.Equal(t, tc.wantDelta, serr.Delta)
			}
		})
	}
}
