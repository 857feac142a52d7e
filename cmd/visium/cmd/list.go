package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/st-atlas/visium-datasets/catalog"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configurations",
	Long:  "Lists every loadable configuration with species, tissue, sample count, and spot count.",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Embedded("")
	if err != nil {
		return err
	}

	names := cat.Names()
	fmt.Printf("%s%d configurations%s\n", colorBold, len(names), colorReset)
	fmt.Printf("  %-28s %-8s %-20s %7s %12s\n", "NAME", "SPECIES", "TISSUE", "SAMPLES", "SPOTS")
	for _, name := range names {
		agg, err := cat.Resolve(name)
		if err != nil {
			return err
		}
		species, entity := agg.Species, agg.Entity
		if species == "" {
			species = "-"
		}
		if entity == "" {
			entity = "-"
		}
		fmt.Printf("  %s%-28s%s %-8s %-20s %7d %12s\n",
			colorCyan, agg.Name, colorReset,
			species, entity, len(agg.Samples), formatCount(agg.Info.SpotsUnderTissue))
	}
	return nil
}
