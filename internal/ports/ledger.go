package ports

// FileRecord is the ledger's view of one cached download, keyed by URL.
// It replaces per-file checksum sidecar files: once a download has been
// verified, later runs under the "missing" policy trust the record instead
// of re-hashing multi-gigabyte files.
type FileRecord struct {
	URL        string `json:"url"`
	MD5Sum     string `json:"md5sum"`
	Bytes      int64  `json:"bytes"`
	LocalPath  string `json:"local_path"`
	VerifiedAt int64  `json:"verified_at"` // unix seconds
	RunID      string `json:"run_id"`      // fetch run that last touched this record

	Extracted  bool   `json:"extracted"`
	ExtractDir string `json:"extract_dir,omitempty"`
}

// Ledger persists cache state across fetch runs.
//
// Crash safety: Put must be transactional — a crash mid-write must not
// corrupt previously committed records.
type Ledger interface {
	// Get retrieves the record for a URL. Returns nil, nil when absent.
	Get(url string) (*FileRecord, error)

	// Put stores (or overwrites) the record for rec.URL.
	Put(rec *FileRecord) error

	// Delete removes the record for a URL. Idempotent.
	Delete(url string) error

	// DeleteByPath removes any records whose LocalPath matches path.
	// Used by the cache watcher when files vanish under a running fetch.
	DeleteByPath(path string) error

	// Wipe removes all records.
	Wipe() error

	// Close releases the underlying store.
	Close() error
}
