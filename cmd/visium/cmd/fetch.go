package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	visium "github.com/st-atlas/visium-datasets"
)

var (
	fetchForceDownload bool
	fetchForceExtract  bool
	fetchWorkers       int
	fetchNoProgress    bool
	fetchStreaming     bool
	fetchSpotDiameter  int
	fetchDataDir       string
	fetchSpotCrops     bool
	fetchOverview      int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [config]",
	Short: "Download and prepare a configuration",
	Long: "Downloads every data file of the configuration, verifies checksums, extracts\n" +
		"spatial archives, and materializes per-sample dataset directories.\n" +
		"No argument fetches \"" + visium.DefaultConfig + "\".",
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.BoolVar(&fetchForceDownload, "force-download", false, "Re-download files even when cached")
	f.BoolVar(&fetchForceExtract, "force-extract", false, "Re-extract archives even when extracted")
	f.IntVar(&fetchWorkers, "workers", 0, "Concurrent downloads (0 = auto)")
	f.BoolVar(&fetchNoProgress, "no-progress", false, "Suppress progress output")
	f.BoolVar(&fetchStreaming, "streaming", false, "Skip materialization, reference extracted files")
	f.IntVar(&fetchSpotDiameter, "spot-diameter", 0, "Spot diameter in full-res pixels (0 = auto)")
	f.StringVar(&fetchDataDir, "data-dir", "", "Materialize datasets under this directory")
	f.BoolVar(&fetchSpotCrops, "spot-crops", false, "Write one PNG crop per in-tissue spot")
	f.IntVar(&fetchOverview, "overview-longest", 0, "Overview longest edge in pixels (0 = default, negative = full size)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) == 1 {
		name = args[0]
	}

	opts := []visium.Option{
		visium.WithCacheDir(flagCacheDir),
		visium.WithDataDir(fetchDataDir),
		visium.WithForceDownload(fetchForceDownload),
		visium.WithForceExtract(fetchForceExtract),
		visium.WithWorkers(fetchWorkers),
		visium.WithStreaming(fetchStreaming),
		visium.WithSpotDiameter(fetchSpotDiameter),
		visium.WithSpotCrops(fetchSpotCrops),
		visium.WithOverviewLongest(fetchOverview),
	}
	if !fetchNoProgress {
		opts = append(opts, visium.WithProgress(newConsoleSink()))
	}

	ds, err := visium.Load(cmd.Context(), name, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("%s%s%s  %d samples, %s spots under tissue\n",
		colorBold, ds.Name, colorReset,
		len(ds.Samples), formatCount(ds.Info.SpotsUnderTissue))
	for _, s := range ds.Samples {
		dir := s.Dir
		if dir == "" {
			dir = s.SpatialDir + " (streaming)"
		}
		fmt.Printf("  %s%s%s  %d spots, diameter %dpx\n    %s\n",
			colorCyan, s.Config.Name, colorReset, len(s.Spots), s.Diameter, dir)
	}
	for _, w := range ds.Warnings {
		fmt.Printf("  %swarning:%s %s\n", colorYellow, colorReset, w)
	}
	return nil
}
