package erc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Text-format checker reports (--format report) are line oriented:
//
//	ERC report (2026-01-05T10:00:00+0000, Eeschema 8.0.4)
//
//	***** Sheet /
//	[pin_not_driven]: Input Power pin not driven by any Output Power pins
//	    ; Severity: error
//	    @(302.26 mm, 174.63 mm): Symbol U1 Pin 4
//
//	 ** ERC messages: 1  Errors 1  Warnings 0
//
// The lexer tokenizes whole lines by their leading shape; fields inside a
// line are pulled out afterwards.
var reportLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "SheetHeader", Pattern: `\*\*\*\*\* Sheet[^\n]*`},
	{Name: "Summary", Pattern: `\*\* ERC messages:[^\n]*`},
	{Name: "Rule", Pattern: `\[[A-Za-z0-9_]+\]:[^\n]*`},
	{Name: "SeverityLine", Pattern: `; Severity: [a-z]+`},
	{Name: "ItemLine", Pattern: `@\([^\n]*`},
	{Name: "Preamble", Pattern: `[A-Za-z][^\n]*`},
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},
})

type textReport struct {
	Preamble []string    `parser:"@Preamble*"`
	Sheets   []textSheet `parser:"@@*"`
	Summary  *string     `parser:"@Summary?"`
}

type textSheet struct {
	Header     string          `parser:"@SheetHeader"`
	Violations []textViolation `parser:"@@*"`
}

type textViolation struct {
	Rule     string   `parser:"@Rule"`
	Severity string   `parser:"@SeverityLine"`
	Items    []string `parser:"@ItemLine*"`
}

var textParser = participle.MustBuild[textReport](
	participle.Lexer(reportLexer),
	participle.Elide("Whitespace"),
)

var (
	rulePattern = regexp.MustCompile(`^\[([A-Za-z0-9_]+)\]:\s*(.*)$`)
	itemPattern = regexp.MustCompile(`^@\((-?[0-9.]+) mm, (-?[0-9.]+) mm\):\s*(.*)$`)
)

// DecodeText parses a plain-text checker report into the same Report shape
// the JSON decoder produces (sheet-grouped).
func DecodeText(input string) (*Report, error) {
	parsed, err := textParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text report: %w", err)
	}

	r := &Report{}
	for _, line := range parsed.Preamble {
		if strings.HasPrefix(line, "ERC report (") {
			r.Date = strings.TrimSuffix(strings.TrimPrefix(line, "ERC report ("), ")")
		}
	}

	for _, ts := range parsed.Sheets {
		sheet := Sheet{
			Path: strings.TrimSpace(strings.TrimPrefix(ts.Header, "***** Sheet")),
		}
		for _, tv := range ts.Violations {
			v, err := textViolationToRecord(tv)
			if err != nil {
				return nil, err
			}
			sheet.Violations = append(sheet.Violations, v)
		}
		r.Sheets = append(r.Sheets, sheet)
	}

	return r, nil
}

func textViolationToRecord(tv textViolation) (Violation, error) {
	groups := rulePattern.FindStringSubmatch(tv.Rule)
	if groups == nil {
		return Violation{}, fmt.Errorf("malformed rule line %q", tv.Rule)
	}
	v := Violation{
		Type:        groups[1],
		Description: groups[2],
		Severity:    Severity(strings.TrimPrefix(tv.Severity, "; Severity: ")),
	}

	for _, line := range tv.Items {
		m := itemPattern.FindStringSubmatch(line)
		if m == nil {
			return Violation{}, fmt.Errorf("malformed item line %q", line)
		}
		x, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Violation{}, fmt.Errorf("bad item X coordinate: %w", err)
		}
		y, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return Violation{}, fmt.Errorf("bad item Y coordinate: %w", err)
		}
		v.Items = append(v.Items, Item{
			Description: m[3],
			Pos:         Pos{X: x, Y: y},
		})
	}

	return v, nil
}
