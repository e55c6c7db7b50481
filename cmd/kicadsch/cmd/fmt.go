package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/schematic"
)

var fmtWrite bool

var fmtCmd = &cobra.Command{
	Use:   "fmt <schematic_file>",
	Short: "Parse and re-serialize a schematic",
	Long: `Round-trip a schematic through the parser and serializer.

By default the formatted output goes to stdout; --write rewrites the
file in place. A parse failure or structural violation aborts without
touching the file.`,
	Args: cobra.ExactArgs(1),
	RunE: runFmt,
}

func init() {
	rootCmd.AddCommand(fmtCmd)
	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "rewrite the file in place")
}

func runFmt(cmd *cobra.Command, args []string) error {
	doc, err := schematic.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("error parsing schematic: %w", err)
	}

	text, err := doc.Serialize()
	if err != nil {
		return err
	}

	if fmtWrite {
		return os.WriteFile(args[0], []byte(text), 0644)
	}
	fmt.Print(text)
	return nil
}
