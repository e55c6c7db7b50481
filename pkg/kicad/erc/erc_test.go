package erc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groupedReport = `{
	"$schema": "https://schemas.kicad.org/erc.v1.json",
	"date": "2026-01-05T10:00:00+0000",
	"kicad_version": "8.0.4",
	"sheets": [
		{
			"path": "/",
			"uuid_path": "/6f9c1510-27b4-4b5d-8e70-000000000001",
			"violations": [
				{
					"type": "pin_not_driven",
					"severity": "error",
					"description": "Input Power pin not driven by any Output Power pins",
					"items": [
						{
							"uuid": "aaaa",
							"description": "Symbol U1 Pin 4",
							"pos": {"x": 302.26, "y": 174.63}
						}
					]
				},
				{
					"type": "label_dangling",
					"severity": "warning",
					"description": "Label not connected to anything",
					"items": [
						{"uuid": "bbbb", "description": "Label VCC", "pos": {"x": 100, "y": 50}}
					]
				}
			]
		}
	]
}`

const flatReport = `{
	"date": "2026-01-05T10:00:00+0000",
	"violations": [
		{
			"type": "pin_not_driven",
			"severity": "error",
			"description": "Input Power pin not driven by any Output Power pins",
			"items": [
				{"uuid": "aaaa", "description": "Symbol U1 Pin 4", "pos": {"x": 302.26, "y": 174.63}}
			]
		},
		{
			"type": "label_dangling",
			"severity": "warning",
			"description": "Label not connected to anything",
			"items": [
				{"uuid": "bbbb", "description": "Label VCC", "pos": {"x": 100, "y": 50}}
			]
		}
	]
}`

const textReportSample = `ERC report (2026-01-05T10:00:00+0000, Eeschema 8.0.4)

***** Sheet /
[pin_not_driven]: Input Power pin not driven by any Output Power pins
    ; Severity: error
    @(302.26 mm, 174.63 mm): Symbol U1 Pin 4
[label_dangling]: Label not connected to anything
    ; Severity: warning
    @(100.00 mm, 50.00 mm): Label VCC

 ** ERC messages: 2  Errors 1  Warnings 1
`

func TestDecodeGrouped(t *testing.T) {
	r, err := Decode([]byte(groupedReport))
	require.NoError(t, err)

	require.Len(t, r.Sheets, 1)
	assert.Equal(t, "/", r.Sheets[0].Path)
	require.Len(t, r.Sheets[0].Violations, 2)

	v := r.Sheets[0].Violations[0]
	assert.Equal(t, "pin_not_driven", v.Type)
	assert.Equal(t, SeverityError, v.Severity)
	require.Len(t, v.Items, 1)
	assert.InDelta(t, 302.26, v.Items[0].Pos.X, 1e-9)
}

func TestDecodeFlat(t *testing.T) {
	r, err := Decode([]byte(flatReport))
	require.NoError(t, err)
	assert.Empty(t, r.Sheets)
	require.Len(t, r.Violations, 2)
	assert.Equal(t, "pin_not_driven", r.Violations[0].Type)
}

func TestDecodeRejectsUnknownShape(t *testing.T) {
	tests := map[string]string{
		"neither key":  `{"messages": []}`,
		"not an object": `[1, 2, 3]`,
		"not json":     `***** Sheet /`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestClassifyGroupedAndFlatAgree(t *testing.T) {
	grouped, err := Decode([]byte(groupedReport))
	require.NoError(t, err)
	flat, err := Decode([]byte(flatReport))
	require.NoError(t, err)

	dg := Classify(grouped)
	df := Classify(flat)
	require.Len(t, dg, 2)
	require.Len(t, df, 2)

	for i := range dg {
		assert.Equal(t, dg[i].Kind, df[i].Kind)
		assert.Equal(t, dg[i].Severity, df[i].Severity)
		assert.Equal(t, dg[i].Pos, df[i].Pos)
		assert.Equal(t, dg[i].Description, df[i].Description)
	}
	assert.Equal(t, "/", dg[0].Sheet)
	assert.Equal(t, "", df[0].Sheet, "flat reports carry no sheet path")
}

func TestClassifyDeterministic(t *testing.T) {
	r, err := Decode([]byte(groupedReport))
	require.NoError(t, err)
	first := Classify(r)
	second := Classify(r)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Kind, second[i].Kind)
	}
}

func TestCountErrorsAndKinds(t *testing.T) {
	r, err := Decode([]byte(groupedReport))
	require.NoError(t, err)
	diags := Classify(r)

	assert.Equal(t, 1, CountErrors(diags))
	assert.Equal(t, []string{"pin_not_driven", "label_dangling"}, Kinds(diags))
}

func TestDecodeText(t *testing.T) {
	r, err := DecodeText(textReportSample)
	require.NoError(t, err)

	require.Len(t, r.Sheets, 1)
	assert.Equal(t, "/", r.Sheets[0].Path)
	require.Len(t, r.Sheets[0].Violations, 2)

	v := r.Sheets[0].Violations[0]
	assert.Equal(t, "pin_not_driven", v.Type)
	assert.Equal(t, SeverityError, v.Severity)
	assert.Equal(t, "Input Power pin not driven by any Output Power pins", v.Description)
	require.Len(t, v.Items, 1)
	assert.InDelta(t, 302.26, v.Items[0].Pos.X, 1e-9)
	assert.InDelta(t, 174.63, v.Items[0].Pos.Y, 1e-9)
	assert.Equal(t, "Symbol U1 Pin 4", v.Items[0].Description)
}

func TestTextAndJSONDecodersAgree(t *testing.T) {
	fromJSON, err := Decode([]byte(groupedReport))
	require.NoError(t, err)
	fromText, err := DecodeText(textReportSample)
	require.NoError(t, err)

	dj := Classify(fromJSON)
	dt := Classify(fromText)
	require.Equal(t, len(dj), len(dt))
	assert.Equal(t, CountErrors(dj), CountErrors(dt))
	for i := range dj {
		assert.Equal(t, dj[i].Kind, dt[i].Kind)
		assert.Equal(t, dj[i].Severity, dt[i].Severity)
	}
}

func TestDecodeAny(t *testing.T) {
	fromJSON, err := DecodeAny([]byte(groupedReport))
	require.NoError(t, err)
	assert.Len(t, fromJSON.Sheets, 1)

	fromText, err := DecodeAny([]byte(textReportSample))
	require.NoError(t, err)
	assert.Len(t, fromText.Sheets, 1)

	_, err = DecodeAny([]byte("   \n"))
	assert.Error(t, err)
}

// fakeChecker serves a scripted sequence of reports or errors
type fakeChecker struct {
	reports []*Report
	errs    []error
	calls   int
}

func (f *fakeChecker) Run(ctx context.Context, schPath string) (*Report, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.reports[i], nil
}

func errorReport() *Report {
	r, err := Decode([]byte(groupedReport))
	if err != nil {
		panic(err)
	}
	return r
}

func cleanReport() *Report {
	return &Report{Sheets: []Sheet{{Path: "/"}}}
}

func warningOnlyReport() *Report {
	return &Report{Sheets: []Sheet{{
		Path: "/",
		Violations: []Violation{
			{Type: "label_dangling", Severity: SeverityWarning},
		},
	}}}
}

func writeSchematic(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.kicad_sch")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestLoopConvergesImmediately(t *testing.T) {
	path := writeSchematic(t, "(kicad_sch)")
	checker := &fakeChecker{reports: []*Report{cleanReport()}}
	loop := NewLoop(checker, func(diags []Diagnostic, iteration int) bool {
		t.Fatal("fix must not run on a clean report")
		return false
	})

	result, err := loop.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Converged, result.State)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, 1, checker.calls)
}

func TestLoopWarningsDoNotBlockConvergence(t *testing.T) {
	path := writeSchematic(t, "(kicad_sch)")
	checker := &fakeChecker{reports: []*Report{warningOnlyReport()}}
	loop := NewLoop(checker, func(diags []Diagnostic, iteration int) bool { return false })

	result, err := loop.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Converged, result.State)
	assert.Len(t, result.Diagnostics, 1)
}

func TestLoopExhaustsWhenNoFixApplied(t *testing.T) {
	path := writeSchematic(t, "(kicad_sch)")
	checker := &fakeChecker{reports: []*Report{errorReport()}}
	fixCalls := 0
	loop := NewLoop(checker, func(diags []Diagnostic, iteration int) bool {
		fixCalls++
		assert.Equal(t, 1, iteration)
		return false
	})

	result, err := loop.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Exhausted, result.State)
	assert.Equal(t, 1, result.Iterations, "no-fix-applied ends the loop after one iteration")
	assert.Equal(t, 1, fixCalls)
}

func TestLoopRepairsUntilConverged(t *testing.T) {
	path := writeSchematic(t, "(kicad_sch)")
	checker := &fakeChecker{reports: []*Report{errorReport(), errorReport(), cleanReport()}}
	loop := NewLoop(checker, func(diags []Diagnostic, iteration int) bool { return true })

	result, err := loop.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Converged, result.State)
	assert.Equal(t, 3, result.Iterations)
}

func TestLoopExhaustsAtMaxIterations(t *testing.T) {
	path := writeSchematic(t, "(kicad_sch)")
	checker := &fakeChecker{reports: []*Report{
		errorReport(), errorReport(), errorReport(), errorReport(), errorReport(),
	}}
	loop := NewLoop(checker, func(diags []Diagnostic, iteration int) bool { return true })

	result, err := loop.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Exhausted, result.State)
	assert.Equal(t, DefaultMaxIterations, result.Iterations)
}

func TestLoopFailsOnCheckerError(t *testing.T) {
	path := writeSchematic(t, "(kicad_sch)")
	checker := &fakeChecker{errs: []error{&ProcessError{Err: errors.New("spawn failed")}}}
	loop := NewLoop(checker, func(diags []Diagnostic, iteration int) bool { return true })

	result, err := loop.Run(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, Failed, result.State)
	var perr *ProcessError
	assert.ErrorAs(t, err, &perr)
}

func TestLoopFailsOnTimeout(t *testing.T) {
	path := writeSchematic(t, "(kicad_sch)")
	checker := &fakeChecker{errs: []error{&TimeoutError{}}}
	loop := NewLoop(checker, func(diags []Diagnostic, iteration int) bool { return true })

	result, err := loop.Run(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, Failed, result.State)
	var terr *TimeoutError
	assert.ErrorAs(t, err, &terr, "timeout must stay distinguishable from a process error")
}

func TestLoopFailsWhenRepairCorrupts(t *testing.T) {
	path := writeSchematic(t, "(kicad_sch)")
	checker := &fakeChecker{reports: []*Report{errorReport(), errorReport()}}
	loop := NewLoop(checker, func(diags []Diagnostic, iteration int) bool {
		// A repair that breaks delimiter balance
		require.NoError(t, os.WriteFile(path, []byte("(kicad_sch (broken"), 0644))
		return true
	})

	result, err := loop.Run(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, Failed, result.State, "corruption after repair is Failed, not Exhausted")
	assert.Equal(t, 1, checker.calls, "corruption is caught before the next check round")
}

func TestLoopHonorsCancellation(t *testing.T) {
	path := writeSchematic(t, "(kicad_sch)")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checker := &fakeChecker{reports: []*Report{cleanReport()}}
	loop := NewLoop(checker, func(diags []Diagnostic, iteration int) bool { return false })

	result, err := loop.Run(ctx, path)
	require.Error(t, err)
	assert.Equal(t, Failed, result.State)
	assert.Equal(t, 0, checker.calls, "cancellation observed before the first check")
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		Idle: "idle", Checking: "checking", Classifying: "classifying",
		Repairing: "repairing", Converged: "converged", Exhausted: "exhausted",
		Failed: "failed", State(99): "unknown",
	} {
		assert.Equal(t, want, state.String())
	}
}
