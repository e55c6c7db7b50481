package erc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// DefaultTimeout bounds a single checker invocation
const DefaultTimeout = 60 * time.Second

// kicadCLIPaths are the install locations probed when kicad-cli is not on
// PATH.
var kicadCLIPaths = []string{
	"/usr/bin/kicad-cli",
	"/usr/local/bin/kicad-cli",
	"/opt/homebrew/bin/kicad-cli",
	"/Applications/KiCad/KiCad.app/Contents/MacOS/kicad-cli",
	`C:\Program Files\KiCad\8.0\bin\kicad-cli.exe`,
}

// FindKicadCLI locates the kicad-cli executable: PATH first, then common
// install locations.
func FindKicadCLI() (string, error) {
	if path, err := exec.LookPath("kicad-cli"); err == nil {
		return path, nil
	}
	for _, candidate := range kicadCLIPaths {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", errors.New("kicad-cli not found on PATH or in known install locations")
}

// Runner invokes the external electrical rules checker on a schematic file
// and decodes its report.
type Runner struct {
	// CLI is the kicad-cli executable path. Empty means discover it on
	// first use.
	CLI     string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewRunner creates a runner with the default timeout
func NewRunner(cli string) *Runner {
	return &Runner{CLI: cli, Timeout: DefaultTimeout, Logger: slog.Default()}
}

// Run checks the schematic at schPath and returns the decoded report. The
// checker writes its report to a scratch file which is removed before
// returning. A zero exit status means the checker ran; whether the
// schematic is clean is decided purely from the report contents.
func (r *Runner) Run(ctx context.Context, schPath string) (*Report, error) {
	cli := r.CLI
	if cli == "" {
		found, err := FindKicadCLI()
		if err != nil {
			return nil, &ProcessError{Err: err}
		}
		cli = found
		r.CLI = found
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := os.CreateTemp("", "erc-*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, cli,
		"sch", "erc",
		"--output", outPath,
		"--format", "json",
		"--severity-all",
		schPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("running checker", "cli", cli, "schematic", filepath.Base(schPath))

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, &TimeoutError{Timeout: timeout}
	}
	if err != nil {
		return nil, &ProcessError{Stderr: stderr.String(), Err: err}
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &ProcessError{Err: fmt.Errorf("checker produced no report: %w", err)}
	}

	report, err := DecodeAny(data)
	if err != nil {
		return nil, err
	}

	logger.Debug("checker finished", "elapsed", elapsed, "sheets", len(report.Sheets))
	return report, nil
}
