package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/st-atlas/visium-datasets/internal/app"
)

var wipeForce bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all cached data",
	Long:  "Deletes downloads, extracted archives, materialized datasets, and the ledger.",
	Args:  cobra.NoArgs,
	RunE:  runWipe,
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeForce, "force", false, "Skip confirmation prompt")
}

func runWipe(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	paths := app.NewPaths(settings.CacheDir)

	if _, err := os.Stat(paths.Root); os.IsNotExist(err) {
		fmt.Println("cache is empty")
		return nil
	}

	if !wipeForce {
		fmt.Printf("This will delete %s/ entirely. Continue? [y/N] ", paths.Root)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("cancelled")
			return nil
		}
	}

	for _, dir := range []string{paths.DownloadsDir, paths.ExtractedDir, paths.DatasetsDir} {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	if err := os.Remove(paths.LedgerDB); err != nil && !os.IsNotExist(err) {
		return err
	}

	fmt.Printf("%s✓ wiped%s %s\n", colorGreen, colorReset, paths.Root)
	return nil
}
