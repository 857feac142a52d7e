//go:build ignore

// gen-readme-table regenerates the configuration table in README.md from the
// embedded catalog. The table sits between the BEGIN/END markers; everything
// outside them is left untouched.
//
// Usage: go run scripts/gen-readme-table.go [--readme README.md]
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/st-atlas/visium-datasets/catalog"
)

const (
	beginMarker = "<!-- BEGIN CONFIG TABLE (generated by scripts/gen-readme-table.go) -->"
	endMarker   = "<!-- END CONFIG TABLE -->"
)

func main() {
	readme := flag.String("readme", "README.md", "README file to rewrite")
	flag.Parse()

	cat, err := catalog.Embedded("")
	if err != nil {
		fatal(err)
	}

	var sb strings.Builder
	sb.WriteString(beginMarker + "\n")
	sb.WriteString("| Configuration | Species | Tissue | Samples | Spots under tissue | Genes detected |\n")
	sb.WriteString("|---|---|---|---:|---:|---:|\n")
	for _, name := range cat.Names() {
		agg, err := cat.Resolve(name)
		if err != nil {
			fatal(err)
		}
		species, entity := agg.Species, agg.Entity
		if species == "" {
			species = "—"
		}
		if entity == "" {
			entity = "—"
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %d | %d | %d |\n",
			agg.Name, species, entity, len(agg.Samples),
			agg.Info.SpotsUnderTissue, agg.Info.GenesDetected)
	}
	sb.WriteString(endMarker)

	data, err := os.ReadFile(*readme)
	if err != nil {
		fatal(err)
	}
	text := string(data)

	begin := strings.Index(text, beginMarker)
	end := strings.Index(text, endMarker)
	if begin < 0 || end < 0 || end < begin {
		fatal(fmt.Errorf("%s: config table markers not found", *readme))
	}
	text = text[:begin] + sb.String() + text[end+len(endMarker):]

	if err := os.WriteFile(*readme, []byte(text), 0644); err != nil {
		fatal(err)
	}
	fmt.Printf("rewrote config table in %s (%d configurations)\n", *readme, len(cat.Names()))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
