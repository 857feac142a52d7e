package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/st-atlas/visium-datasets/internal/app"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved settings",
	Long:  "Shows the resolved settings (defaults, config file, environment) and cache paths.",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	paths := app.NewPaths(settings.CacheDir)

	configFile := settings.ConfigPath
	if configFile == "" {
		configFile = fmt.Sprintf("%s(none)%s", colorGray, colorReset)
	} else if _, err := os.Stat(configFile); err != nil {
		configFile = fmt.Sprintf("%s%s (not present)%s", colorGray, configFile, colorReset)
	}

	fmt.Printf("%svisium config%s\n", colorBold, colorReset)
	fmt.Printf("  Config file:        %s\n", configFile)
	fmt.Printf("  Env prefix:         %s_*\n", app.EnvPrefix)
	fmt.Printf("  Cache dir:          %s\n", paths.Root)
	fmt.Printf("  Downloads:          %s\n", paths.DownloadsDir)
	fmt.Printf("  Extracted:          %s\n", paths.ExtractedDir)
	fmt.Printf("  Datasets:           %s\n", paths.DatasetsDir)
	fmt.Printf("  Ledger:             %s\n", paths.LedgerDB)
	fmt.Printf("  Download policy:    %s\n", settings.DownloadPolicy)
	fmt.Printf("  Extract policy:     %s\n", settings.ExtractPolicy)
	fmt.Printf("  Validate checksums: %t\n", settings.ValidateChecksums)
	fmt.Printf("  Download retries:   %d\n", settings.DownloadRetries)
	fmt.Printf("  Workers:            %d\n", settings.Workers())
	return nil
}
