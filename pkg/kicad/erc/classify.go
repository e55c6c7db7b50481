package erc

// Diagnostic is a flattened, order-stable view of one checker violation
type Diagnostic struct {
	Kind        string
	Severity    Severity
	Sheet       string
	Pos         Pos
	Description string
	// Raw is the original violation record for handlers that need the
	// implicated item UUIDs.
	Raw *Violation
}

// Classify flattens a report into diagnostics in report order. Grouped and
// flat reports carrying the same violations produce the same sequence. The
// position is taken from the violation's first implicated item.
func Classify(r *Report) []Diagnostic {
	var out []Diagnostic
	for i := range r.Sheets {
		sheet := &r.Sheets[i]
		for j := range sheet.Violations {
			out = append(out, toDiagnostic(&sheet.Violations[j], sheet.Path))
		}
	}
	for i := range r.Violations {
		out = append(out, toDiagnostic(&r.Violations[i], ""))
	}
	return out
}

func toDiagnostic(v *Violation, sheet string) Diagnostic {
	d := Diagnostic{
		Kind:        v.Type,
		Severity:    v.Severity,
		Sheet:       sheet,
		Description: v.Description,
		Raw:         v,
	}
	if len(v.Items) > 0 {
		d.Pos = v.Items[0].Pos
	}
	return d
}

// CountErrors returns the number of error-severity diagnostics. Warnings
// never block convergence.
func CountErrors(diags []Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Kinds returns the distinct diagnostic kinds in first-seen order
func Kinds(diags []Diagnostic) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range diags {
		if !seen[d.Kind] {
			seen[d.Kind] = true
			out = append(out, d.Kind)
		}
	}
	return out
}
