package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/erc"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/patch"
)

var applyFixes bool

var checkCmd = &cobra.Command{
	Use:   "check <schematic_file>",
	Short: "Run the electrical rules checker",
	Long: `Run kicad-cli's ERC over a schematic and report violations.

With --fix, the check-and-repair loop re-runs after each repair round
until the schematic converges or the iteration budget is spent. The
built-in repair marks unconnected pins with no-connect markers.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&applyFixes, "fix", false, "apply built-in repairs between check rounds")
}

func runCheck(cmd *cobra.Command, args []string) error {
	schPath := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner := erc.NewRunner(cfg.KicadCLI)
	runner.Timeout = time.Duration(cfg.TimeoutSecs) * time.Second

	fix := func(diags []erc.Diagnostic, iteration int) bool { return false }
	if applyFixes {
		fix = func(diags []erc.Diagnostic, iteration int) bool {
			return fixUnconnectedPins(schPath, diags)
		}
	}

	loop := erc.NewLoop(runner, fix)
	loop.MaxIterations = cfg.MaxIterations

	var spin *spinner.Spinner
	if cfg.ShowProgress {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		spin.Writer = os.Stderr
		spin.Suffix = " running ERC on " + schPath
		spin.Start()
	}

	result, err := loop.Run(context.Background(), schPath)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}

	for _, d := range result.Diagnostics {
		fmt.Printf("%-8s [%s] %s @(%.2f, %.2f)\n", d.Severity, d.Kind, d.Description, d.Pos.X, d.Pos.Y)
	}
	fmt.Printf("\n%s after %d iteration(s): %d error(s), %d warning(s)\n",
		result.State,
		result.Iterations,
		erc.CountErrors(result.Diagnostics),
		len(result.Diagnostics)-erc.CountErrors(result.Diagnostics))

	if result.State != erc.Converged {
		os.Exit(1)
	}
	return nil
}

// fixUnconnectedPins inserts a no-connect marker at every unconnected-pin
// violation, patching the schematic file in place.
func fixUnconnectedPins(schPath string, diags []erc.Diagnostic) bool {
	data, err := os.ReadFile(schPath)
	if err != nil {
		return false
	}
	text := string(data)

	applied := false
	for _, d := range diags {
		if d.Kind != "pin_not_connected" || d.Severity != erc.SeverityError {
			continue
		}
		block := fmt.Sprintf("(no_connect\n\t(at %.2f %.2f)\n\t(uuid %q)\n)\n", d.Pos.X, d.Pos.Y, uuid.NewString())
		patched, err := patch.InsertBeforeClose(text, block)
		if err != nil {
			return false
		}
		text = patched
		applied = true
	}
	if !applied {
		return false
	}

	if err := patch.AssertBalanced(text); err != nil {
		return false
	}
	return os.WriteFile(schPath, []byte(text), 0644) == nil
}
