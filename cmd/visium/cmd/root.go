package cmd

import (
	"github.com/spf13/cobra"

	"github.com/st-atlas/visium-datasets/internal/app"
)

var (
	flagCacheDir   string
	flagConfigFile string
)

var rootCmd = &cobra.Command{
	Use:   "visium",
	Short: "visium — st-visium-datasets fetcher",
	Long: "Downloads, verifies, and prepares configurations of the st-visium-datasets\n" +
		"atlas: published 10x Genomics Visium samples addressable by organism and tissue.",
	SilenceUsage: true,
}

// loadSettings resolves settings and applies the global flag overrides.
func loadSettings() (*app.Settings, error) {
	s, err := app.LoadSettings(flagConfigFile)
	if err != nil {
		return nil, err
	}
	if flagCacheDir != "" {
		s.CacheDir = flagCacheDir
	}
	return s, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagCacheDir, "cache-dir", "", "Cache directory (default ~/.cache/st-visium-datasets)")
	pf.StringVar(&flagConfigFile, "config", "", "Config file (default ~/.config/st-visium-datasets/config.yml)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(wipeCmd)
	rootCmd.AddCommand(configCmd)
}
