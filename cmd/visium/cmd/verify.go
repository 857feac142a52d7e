package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/st-atlas/visium-datasets/catalog"
	"github.com/st-atlas/visium-datasets/internal/adapters/archive"
	"github.com/st-atlas/visium-datasets/internal/adapters/bbolt"
	"github.com/st-atlas/visium-datasets/internal/adapters/httpfetch"
	"github.com/st-atlas/visium-datasets/internal/app"
	"github.com/st-atlas/visium-datasets/spots"
)

var verifyPrune bool

var verifyCmd = &cobra.Command{
	Use:   "verify [config]",
	Short: "Re-verify cached files",
	Long: "Re-hashes every cached download of the configuration against the catalog\n" +
		"checksums, checks extracted archives against their manifests, and compares\n" +
		"materialized spot tables against the catalog counts. No argument verifies \"all\".",
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyPrune, "prune", false, "Drop ledger records for missing or corrupt files")
}

func runVerify(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) == 1 {
		name = args[0]
	}

	cat, err := catalog.Embedded("")
	if err != nil {
		return err
	}
	agg, err := cat.Resolve(name)
	if err != nil {
		return err
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	paths := app.NewPaths(settings.CacheDir)

	ledger, err := bbolt.NewStore(paths.LedgerDB)
	if err != nil {
		return err
	}
	defer ledger.Close()

	fmt.Printf("%sverify %s%s  (%d samples)\n", colorBold, agg.Name, colorReset, len(agg.Samples))
	var bad int
	for _, sample := range agg.Samples {
		files := sample.Files()
		for _, role := range []string{"image_tiff", "matrix_hdf5", "spatial_data"} {
			ok, err := verifyFile(ledger, files[role], settings.BufferSize)
			if err != nil {
				return err
			}
			status := fmt.Sprintf("%s✓ ok%s", colorGreen, colorReset)
			if ok != "" {
				status = fmt.Sprintf("%s✗ %s%s", colorRed, ok, colorReset)
				bad++
			}
			fmt.Printf("  %s%s%s %s: %s\n", colorCyan, sample.Name, colorReset, role, status)
		}

		if ok := verifySpots(paths, sample); ok != "" {
			fmt.Printf("  %s%s%s spots: %s%s%s\n", colorCyan, sample.Name, colorReset, colorYellow, ok, colorReset)
		}
	}

	if bad > 0 {
		return fmt.Errorf("%d file(s) failed verification", bad)
	}
	fmt.Printf("%s✓ all cached files verified%s\n", colorGreen, colorReset)
	return nil
}

// verifyFile re-checks one cached download. Returns "" when healthy, a short
// failure reason otherwise. Files never fetched are skipped, not failures.
func verifyFile(ledger *bbolt.Store, file catalog.DataFile, bufferSize int) (string, error) {
	rec, err := ledger.Get(file.URL)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", nil // never fetched
	}

	reason := ""
	if _, err := os.Stat(rec.LocalPath); err != nil {
		reason = "file missing"
	} else if err := httpfetch.VerifyFile(rec.LocalPath, file.MD5Sum, bufferSize); err != nil {
		if !errors.Is(err, httpfetch.ErrChecksum) {
			return "", err
		}
		reason = "checksum mismatch"
	} else if rec.Extracted {
		if r := verifyExtraction(rec.ExtractDir); r != "" {
			reason = r
		}
	}

	if reason != "" && verifyPrune {
		if err := ledger.Delete(file.URL); err != nil {
			return "", err
		}
		reason += " (pruned)"
	}
	return reason, nil
}

// verifyExtraction checks every manifest member still exists.
func verifyExtraction(dir string) string {
	man, err := archive.ReadManifest(dir)
	if err != nil {
		return "extraction manifest missing"
	}
	for _, f := range man.Files {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return fmt.Sprintf("extracted file missing: %s", f)
		}
	}
	return ""
}

// verifySpots compares a materialized spot table against the catalog count.
// Returns "" when absent or matching.
func verifySpots(paths *app.Paths, sample *catalog.Config) string {
	f, err := os.Open(filepath.Join(paths.DatasetDir(sample.Name), "spots.csv"))
	if err != nil {
		return "" // not materialized
	}
	defer f.Close()

	table, err := spots.ReadTissuePositions(f, false)
	if err != nil {
		return fmt.Sprintf("unreadable spot table: %v", err)
	}
	if got := table.InTissue(); got != sample.SpotsUnderTissue {
		return fmt.Sprintf("spot count drift: %d under tissue, catalog says %d", got, sample.SpotsUnderTissue)
	}
	return ""
}
