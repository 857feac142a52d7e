// visium-catalog scaffolds catalog config skeletons from 10x Genomics dataset
// homepages. It scrapes the page's JSON props for the title, description,
// publication date, and the download URLs and checksums of the tissue image,
// filtered feature-barcode matrix, and spatial imaging archive, then emits a
// config JSON ready for curation: species, anatomical entity, and count
// fields are left for a human to fill in before the file lands in configs/.
//
//	visium-catalog scaffold https://www.10xgenomics.com/datasets/<slug> \
//	    --species human --entity skin -o configs/v1/human/skin/
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/st-atlas/visium-datasets/catalog"
	"github.com/st-atlas/visium-datasets/internal/adapters/scrape"
)

var rootCmd = &cobra.Command{
	Use:   "visium-catalog",
	Short: "visium-catalog — config scaffolding for st-visium-datasets",
	Long:  "Companion tool: scrapes 10x Genomics dataset homepages into catalog config skeletons.",
}

var (
	scaffoldSpecies string
	scaffoldEntity  string
	scaffoldOut     string
	scaffoldTimeout time.Duration
)

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold <homepage-url>",
	Short: "Scrape a dataset homepage into a config skeleton",
	Long: "Downloads the homepage, extracts the dataset props, and writes a config JSON\n" +
		"with the data file URLs and checksums filled in. Curation fields (counts,\n" +
		"disease state, preservation method) are emitted empty for manual completion.",
	Args: cobra.ExactArgs(1),
	RunE: runScaffold,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <homepage-url>",
	Short: "Print every file listed on a dataset homepage",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	f := scaffoldCmd.Flags()
	f.StringVar(&scaffoldSpecies, "species", "", "Species (e.g. human, mouse) (required)")
	f.StringVar(&scaffoldEntity, "entity", "", "Anatomical entity (e.g. skin, olfactory-bulb) (required)")
	f.StringVarP(&scaffoldOut, "out", "o", "", "Output directory (default: stdout)")
	scaffoldCmd.MarkFlagRequired("species")
	scaffoldCmd.MarkFlagRequired("entity")

	rootCmd.PersistentFlags().DurationVar(&scaffoldTimeout, "timeout", 30*time.Second, "HTTP timeout")

	rootCmd.AddCommand(scaffoldCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// outputPatterns maps config file roles to homepage output titles. The titles
// vary slightly across Space Ranger releases; these substrings hold for the
// 1.x through 2.x pages.
var outputPatterns = map[string]string{
	"image_tiff":   "image",
	"matrix_hdf5":  "filtered-feature-barcode-matrix-hdf5",
	"spatial_data": "spatial-imaging-data",
}

func runScaffold(cmd *cobra.Command, args []string) error {
	page, err := scrape.FetchPage(&http.Client{Timeout: scaffoldTimeout}, args[0])
	if err != nil {
		return err
	}

	cfg, err := skeleton(page, args[0], scaffoldSpecies, scaffoldEntity)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if scaffoldOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(scaffoldOut, 0755); err != nil {
		return err
	}
	path := filepath.Join(scaffoldOut, cfg.Name+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (fill in the curation fields before committing)\n", path)
	return nil
}

// skeleton assembles a config from the scraped page. Count and curation
// fields stay zero; they come from the dataset summary, not the homepage.
func skeleton(page *scrape.Page, homepage, species, entity string) (*catalog.Config, error) {
	cfg := &catalog.Config{
		Name:              scrape.Sanitize(species + "-" + entity + "-" + page.Slug),
		Homepage:          homepage,
		VisiumDatasetName: page.Slug,
		Title:             page.Title,
		Description:       strings.TrimSpace(page.Description),
		Species:           strings.ToLower(species),
		AnatomicalEntity:  scrape.Sanitize(entity),
	}
	if t, err := time.Parse(time.RFC3339, page.PublishedAt); err == nil {
		cfg.PublishedAt = &t
	}

	for role, pattern := range outputPatterns {
		entry, ok := page.Output(pattern)
		if !ok {
			return nil, fmt.Errorf("homepage lists no %q output (looked for %q)", role, pattern)
		}
		df := catalog.DataFile{URL: entry.URL, MD5Sum: entry.MD5Sum, Bytes: entry.Bytes}
		switch role {
		case "image_tiff":
			cfg.ImageTiff = df
		case "matrix_hdf5":
			cfg.FeatureMatrixHDF5 = df
		case "spatial_data":
			cfg.SpatialImagingData = df
		}
	}
	return cfg, nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	page, err := scrape.FetchPage(&http.Client{Timeout: scaffoldTimeout}, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", page.Title, page.Slug)
	if page.Pipeline != "" {
		fmt.Printf("pipeline: %s\n", page.Pipeline)
	}
	fmt.Println("inputs:")
	for _, f := range page.Inputs {
		fmt.Printf("  %-45s %s\n", scrape.Sanitize(f.Title), f.URL)
	}
	fmt.Println("outputs:")
	for _, f := range page.Outputs {
		fmt.Printf("  %-45s %s\n", scrape.Sanitize(f.Title), f.URL)
	}
	return nil
}
