package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kenchangh/kicad-schematic/internal/config"
)

var (
	// Global flags
	verbose    bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "kicadsch",
	Short: "KiCad schematic generation and repair tools",
	Long: `kicadsch works with KiCad schematic files (.kicad_sch):

Examples:
  kicadsch info design.kicad_sch      # Show schematic summary
  kicadsch check design.kicad_sch     # Run ERC and repair violations
  kicadsch fmt design.kicad_sch       # Parse and re-serialize`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
}

func loadConfig() (*config.Configuration, error) {
	return config.Load(configFile)
}
