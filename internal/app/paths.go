package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths under the cache directory.
// All fields are pre-computed strings.
type Paths struct {
	Root     string // <cache-dir>/
	LedgerDB string // <cache-dir>/ledger.db

	DownloadsDir string // <cache-dir>/downloads/
	ExtractedDir string // <cache-dir>/extracted/
	DatasetsDir  string // <cache-dir>/datasets/
}

// NewPaths constructs all resolved paths from the cache directory.
func NewPaths(cacheDir string) *Paths {
	return &Paths{
		Root:     cacheDir,
		LedgerDB: filepath.Join(cacheDir, "ledger.db"),

		DownloadsDir: filepath.Join(cacheDir, "downloads"),
		ExtractedDir: filepath.Join(cacheDir, "extracted"),
		DatasetsDir:  filepath.Join(cacheDir, "datasets"),
	}
}

// ExtractDir returns the extraction directory for a downloaded archive:
// extracted/<stem of the archive file name>/.
func (p *Paths) ExtractDir(archivePath string) string {
	stem := filepath.Base(archivePath)
	for {
		ext := filepath.Ext(stem)
		if ext == "" {
			break
		}
		stem = stem[:len(stem)-len(ext)]
	}
	return filepath.Join(p.ExtractedDir, stem)
}

// DatasetDir returns the prepared dataset directory for a sample.
func (p *Paths) DatasetDir(sampleName string) string {
	return filepath.Join(p.DatasetsDir, sampleName)
}

// EnsureDirs creates all subdirectories under the cache dir. Idempotent.
func (p *Paths) EnsureDirs() error {
	dirs := []string{
		p.Root,
		p.DownloadsDir,
		p.ExtractedDir,
		p.DatasetsDir,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}
