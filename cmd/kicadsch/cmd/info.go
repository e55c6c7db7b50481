package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/schematic"
)

var infoCmd = &cobra.Command{
	Use:   "info <schematic_file> [reference]",
	Short: "Show schematic information",
	Long: `Display information about a KiCad schematic file.

Without reference argument: shows schematic summary
With reference argument: shows details for that placed symbol`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]
	doc, err := schematic.ParseFile(filename)
	if err != nil {
		return fmt.Errorf("error parsing schematic: %w", err)
	}

	if len(args) >= 2 {
		return showPlacementDetails(doc, args[1])
	}

	showSummary(doc, filename)
	return nil
}

func showSummary(doc *schematic.Document, filename string) {
	fmt.Printf("Schematic: %s\n", filename)
	fmt.Printf("Version: %d\n", doc.Version)
	fmt.Printf("Generator: %s", doc.Generator)
	if doc.GeneratorVersion != "" {
		fmt.Printf(" v%s", doc.GeneratorVersion)
	}
	fmt.Println()
	fmt.Printf("Paper: %s\n", doc.Paper)
	fmt.Println()

	if doc.Title.Title != "" || doc.Title.Revision != "" {
		fmt.Println("Title Block:")
		if doc.Title.Title != "" {
			fmt.Printf("  Title: %s\n", doc.Title.Title)
		}
		if doc.Title.Date != "" {
			fmt.Printf("  Date: %s\n", doc.Title.Date)
		}
		if doc.Title.Revision != "" {
			fmt.Printf("  Revision: %s\n", doc.Title.Revision)
		}
		fmt.Println()
	}

	placements := doc.Placements()
	fmt.Printf("Symbols: %d\n", len(placements))

	refs := make([]string, 0, len(placements))
	for _, p := range placements {
		refs = append(refs, p.Reference)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		p, _ := doc.Placement(ref)
		fmt.Printf("  %-8s %-24s %s\n", p.Reference, p.LibID, p.Value)
	}
	fmt.Println()

	fmt.Printf("Wires: %d\n", len(doc.Wires()))
	fmt.Printf("Labels: %d\n", len(doc.Labels()))
	fmt.Printf("No-connects: %d\n", len(doc.NoConnects()))
	fmt.Printf("Embedded symbols: %d\n", len(doc.LibSymbols))
}

func showPlacementDetails(doc *schematic.Document, reference string) error {
	p, ok := doc.Placement(reference)
	if !ok {
		return fmt.Errorf("no symbol with reference %q", reference)
	}

	fmt.Printf("Reference: %s\n", p.Reference)
	fmt.Printf("Symbol: %s\n", p.LibID)
	fmt.Printf("Value: %s\n", p.Value)
	fmt.Printf("Position: (%.2f, %.2f) rotation %d\n", p.Position.X, p.Position.Y, int(p.Rotation))
	if p.MirrorY {
		fmt.Println("Mirror: y")
	}
	if p.Footprint != "" {
		fmt.Printf("Footprint: %s\n", p.Footprint)
	}
	for _, prop := range p.Props {
		fmt.Printf("Property %s: %s\n", prop.Key, prop.Value)
	}
	return nil
}
