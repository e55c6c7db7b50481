package erc

import (
	"context"
	"log/slog"
	"os"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/patch"
)

// DefaultMaxIterations bounds the number of check/repair rounds
const DefaultMaxIterations = 5

// State of the repair loop state machine
type State int

const (
	Idle State = iota
	Checking
	Classifying
	Repairing
	Converged
	Exhausted
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Checking:
		return "checking"
	case Classifying:
		return "classifying"
	case Repairing:
		return "repairing"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Checker runs the rules checker over a schematic file. *Runner is the
// production implementation; tests substitute their own.
type Checker interface {
	Run(ctx context.Context, schPath string) (*Report, error)
}

// FixFunc is the caller-supplied repair handler. It receives the full
// classified diagnostic set and the 1-based iteration number, applies
// whatever structural fixes it can to the schematic file, and reports
// whether it applied at least one. Returning false ends the loop: another
// round with the same handler cannot make progress.
type FixFunc func(diags []Diagnostic, iteration int) bool

// Result is the terminal outcome of a loop run
type Result struct {
	State      State
	Iterations int
	// Diagnostics is the classified set from the final check
	Diagnostics []Diagnostic
}

// Loop drives check → classify → repair rounds over a schematic file until
// it converges, exhausts its iteration budget, or fails. A Loop instance
// owns its schematic file exclusively for the duration of Run.
type Loop struct {
	Checker       Checker
	Fix           FixFunc
	MaxIterations int
	Logger        *slog.Logger

	state State
}

// NewLoop creates a loop with the default iteration budget
func NewLoop(checker Checker, fix FixFunc) *Loop {
	return &Loop{
		Checker:       checker,
		Fix:           fix,
		MaxIterations: DefaultMaxIterations,
		Logger:        slog.Default(),
	}
}

// State returns the loop's current state
func (l *Loop) State() State {
	return l.state
}

// Run executes the loop on the schematic at schPath. Convergence means
// zero error-severity diagnostics; warnings are tolerated. Cancellation is
// observed at iteration boundaries only, so it has at most one iteration
// of latency. After every repair round the schematic file is re-checked
// for delimiter balance: a repair that corrupts the file is Failed, not
// Exhausted.
func (l *Loop) Run(ctx context.Context, schPath string) (*Result, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxIter := l.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	l.state = Idle
	result := &Result{}

	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			l.state = Failed
			result.State = Failed
			return result, err
		}

		l.state = Checking
		result.Iterations = iteration
		report, err := l.Checker.Run(ctx, schPath)
		if err != nil {
			l.state = Failed
			result.State = Failed
			return result, err
		}

		l.state = Classifying
		diags := Classify(report)
		result.Diagnostics = diags
		errCount := CountErrors(diags)
		logger.Info("check complete",
			"iteration", iteration,
			"errors", errCount,
			"warnings", len(diags)-errCount)

		if errCount == 0 {
			l.state = Converged
			result.State = Converged
			return result, nil
		}
		if iteration >= maxIter {
			l.state = Exhausted
			result.State = Exhausted
			return result, nil
		}

		l.state = Repairing
		if !l.Fix(diags, iteration) {
			logger.Info("no fix applied, stopping", "iteration", iteration)
			l.state = Exhausted
			result.State = Exhausted
			return result, nil
		}

		data, err := os.ReadFile(schPath)
		if err != nil {
			l.state = Failed
			result.State = Failed
			return result, err
		}
		if err := patch.AssertBalanced(string(data)); err != nil {
			logger.Error("repair corrupted schematic", "iteration", iteration, "error", err)
			l.state = Failed
			result.State = Failed
			return result, err
		}

		l.state = Idle
	}
}
