// Package bbolt implements the ports.Ledger interface using bbolt (embedded
// B+ tree). Records are JSON-serialized under a single "files" bucket keyed by
// URL, with a "paths" bucket mapping local path back to URL for watcher
// invalidation. Writes are transactional — a crash mid-write cannot corrupt
// previously committed records.
package bbolt

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/st-atlas/visium-datasets/internal/ports"
)

// Bucket keys
var (
	bucketFiles = []byte("files")
	bucketPaths = []byte("paths")
)

// Store implements ports.Ledger backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves the record for a URL. Returns nil, nil when absent.
func (s *Store) Get(url string) (*ports.FileRecord, error) {
	var data []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFiles)
		if b == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := b.Get([]byte(url)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if data == nil {
		return nil, nil
	}

	var rec ports.FileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal file record: %w", err)
	}
	return &rec, nil
}

// Put stores (or overwrites) the record for rec.URL.
func (s *Store) Put(rec *ports.FileRecord) error {
	if rec == nil || rec.URL == "" {
		return fmt.Errorf("nil or unkeyed file record")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal file record: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		fb, err := tx.CreateBucketIfNotExists(bucketFiles)
		if err != nil {
			return err
		}
		pb, err := tx.CreateBucketIfNotExists(bucketPaths)
		if err != nil {
			return err
		}
		if err := fb.Put([]byte(rec.URL), data); err != nil {
			return err
		}
		if rec.LocalPath != "" {
			return pb.Put([]byte(rec.LocalPath), []byte(rec.URL))
		}
		return nil
	})
}

// Delete removes the record for a URL. Idempotent.
func (s *Store) Delete(url string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return deleteURL(tx, url)
	})
}

// DeleteByPath removes any record whose LocalPath matches path. Idempotent.
func (s *Store) DeleteByPath(path string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		pb := tx.Bucket(bucketPaths)
		if pb == nil {
			return nil
		}
		url := pb.Get([]byte(path))
		if url == nil {
			return nil
		}
		return deleteURL(tx, string(url))
	})
}

func deleteURL(tx *bolt.Tx, url string) error {
	fb := tx.Bucket(bucketFiles)
	if fb == nil {
		return nil
	}
	if data := fb.Get([]byte(url)); data != nil {
		var rec ports.FileRecord
		if err := json.Unmarshal(data, &rec); err == nil && rec.LocalPath != "" {
			if pb := tx.Bucket(bucketPaths); pb != nil {
				if err := pb.Delete([]byte(rec.LocalPath)); err != nil {
					return err
				}
			}
		}
	}
	return fb.Delete([]byte(url))
}

// Wipe removes all records. Idempotent.
func (s *Store) Wipe() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketFiles, bucketPaths} {
			if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
		}
		return nil
	})
}
