// visium fetches and prepares the st-visium-datasets atlas.
// Pick a configuration, download its samples, get spot tables and images.
package main

import (
	"os"

	"github.com/st-atlas/visium-datasets/cmd/visium/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
