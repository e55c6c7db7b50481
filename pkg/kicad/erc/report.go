// Package erc runs KiCad's electrical rules checker over a schematic file,
// normalizes its reports, and drives an iterative check-and-repair loop.
package erc

import (
	"encoding/json"
	"fmt"
)

// Severity of a violation as reported by the checker
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Pos is a violation coordinate in schematic millimeters
type Pos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Item is one schematic node implicated in a violation
type Item struct {
	UUID        string `json:"uuid"`
	Description string `json:"description"`
	Pos         Pos    `json:"pos"`
}

// Violation is a single rule violation record
type Violation struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Items       []Item   `json:"items"`
}

// Sheet groups the violations reported for one schematic sheet
type Sheet struct {
	Path       string      `json:"path"`
	UUIDPath   string      `json:"uuid_path"`
	Violations []Violation `json:"violations"`
}

// Report is a decoded checker report. Exactly one of the two layouts is
// populated depending on the report variant: sheet-grouped (current
// kicad-cli) or a flat violations list (older builds).
type Report struct {
	Date         string  `json:"date"`
	KicadVersion string  `json:"kicad_version"`
	Sheets       []Sheet `json:"sheets"`
	Violations   []Violation
}

// Decode parses a JSON checker report, selecting the layout variant by a
// structural probe: a top-level "sheets" array means the grouped form, a
// top-level "violations" array the flat form. Anything else is rejected.
func Decode(data []byte) (*Report, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode checker report: %w", err)
	}

	switch {
	case probe["sheets"] != nil:
		var r Report
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode sheet-grouped report: %w", err)
		}
		return &r, nil

	case probe["violations"] != nil:
		var flat struct {
			Date         string      `json:"date"`
			KicadVersion string      `json:"kicad_version"`
			Violations   []Violation `json:"violations"`
		}
		if err := json.Unmarshal(data, &flat); err != nil {
			return nil, fmt.Errorf("failed to decode flat report: %w", err)
		}
		return &Report{
			Date:         flat.Date,
			KicadVersion: flat.KicadVersion,
			Violations:   flat.Violations,
		}, nil

	default:
		return nil, fmt.Errorf("unrecognized checker report: no sheets or violations key")
	}
}

// DecodeAny decodes a checker report in either JSON or plain-text layout.
// JSON is detected by the leading byte; everything else goes through the
// text-report grammar.
func DecodeAny(data []byte) (*Report, error) {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return Decode(data)
		default:
			return DecodeText(string(data))
		}
	}
	return nil, fmt.Errorf("empty checker report")
}
