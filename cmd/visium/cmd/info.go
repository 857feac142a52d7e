package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/st-atlas/visium-datasets/catalog"
)

var infoCmd = &cobra.Command{
	Use:   "info <config>",
	Short: "Show configuration details",
	Long:  "Shows aggregate spot and gene counts plus every member sample and its data files.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Embedded("")
	if err != nil {
		return err
	}
	agg, err := cat.Resolve(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s%s%s\n", colorBold, agg.Name, colorReset)
	fmt.Printf("  Samples:  %d\n", len(agg.Samples))
	fmt.Printf("  Spots:    %s under tissue\n", formatCount(agg.Info.SpotsUnderTissue))
	fmt.Printf("  Genes:    %s detected\n", formatCount(agg.Info.GenesDetected))

	for _, s := range agg.Samples {
		fmt.Printf("\n  %s%s%s  %s/%s\n", colorCyan, s.Name, colorReset, s.Species, s.AnatomicalEntity)
		if s.Title != "" {
			fmt.Printf("    %s%s%s\n", colorGray, s.Title, colorReset)
		}
		fmt.Printf("    spots %s, genes %s\n",
			formatCount(s.SpotsUnderTissue), formatCount(s.GenesDetected))
		files := s.Files()
		for _, role := range []string{"image_tiff", "matrix_hdf5", "spatial_data"} {
			f := files[role]
			fmt.Printf("    %-13s %8s  %s\n", role, formatBytes(f.Bytes), f.URL)
		}
	}
	return nil
}
