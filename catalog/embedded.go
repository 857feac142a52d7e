package catalog

import (
	"sync"

	"github.com/st-atlas/visium-datasets/configs"
)

// DefaultRevision is the embedded catalog version used when no revision pin
// is given.
const DefaultRevision = "v1"

var (
	embeddedMu    sync.Mutex
	embeddedCache = map[string]*Catalog{}
)

// Embedded loads the compiled-in catalog for a revision ("" means
// DefaultRevision). Catalogs are parsed once and cached per revision.
func Embedded(revision string) (*Catalog, error) {
	if revision == "" {
		revision = DefaultRevision
	}

	embeddedMu.Lock()
	defer embeddedMu.Unlock()

	if c, ok := embeddedCache[revision]; ok {
		return c, nil
	}
	c, err := Load(configs.FS, revision)
	if err != nil {
		return nil, err
	}
	embeddedCache[revision] = c
	return c, nil
}
