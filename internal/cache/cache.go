// Package cache tracks which translation units are stale between builds.
//
// Each source file gets one entry keyed by its absolute path, holding the
// content fingerprint of the source, the fingerprints of every header in its
// transitive include closure, and the object artifact path. A unit is stale
// when any of those changed or the object disappeared. Metadata lives in
// BoltDB; entries are committed only after a successful compile, inside a
// single transaction, so a failed compile leaves the previous entry intact.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.etcd.io/bbolt"

	"github.com/cmpile/cmpile/internal/depgraph"
)

const (
	// DefaultCacheDir is the default cache directory name
	DefaultCacheDir = ".cmpile-cache"

	// bucketName is the BoltDB bucket name for cache entries
	bucketName = "builds"
)

// Cache manages build staleness metadata using BoltDB.
type Cache struct {
	db   *bbolt.DB
	root string
}

// New creates a cache instance rooted at cacheDir, or DefaultCacheDir in the
// working directory when cacheDir is empty.
func New(cacheDir string) (*Cache, error) {
	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}

		cacheDir = filepath.Join(cwd, DefaultCacheDir)
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(cacheDir, "cache.db")
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &Cache{
		db:   db,
		root: cacheDir,
	}, nil
}

// Close closes the cache database
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}

// Get retrieves the entry for a source path. Returns nil on cache miss; read
// errors degrade to a miss so a corrupt store costs a rebuild, not the build.
func (c *Cache) Get(sourcePath string) *Entry {
	var entry Entry

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		data := b.Get([]byte(sourcePath))
		if data == nil {
			return nil
		}

		return json.Unmarshal(data, &entry)
	})
	if err != nil || entry.SourcePath == "" {
		return nil
	}

	return &entry
}

// IsStale reports whether a unit must be recompiled: no entry, changed source
// fingerprint, any changed/new/removed header fingerprint, different compiler
// flags, or a missing object artifact.
func (c *Cache) IsStale(unit *depgraph.Unit, object string, flags []string) bool {
	entry := c.Get(unit.Path)
	if entry == nil {
		return true
	}

	if entry.Hash != unit.Hash {
		return true
	}

	if !slices.Equal(entry.Flags, flags) {
		return true
	}

	if len(entry.Headers) != len(unit.Headers) {
		return true
	}

	for path, hash := range unit.Headers {
		if entry.Headers[path] != hash {
			return true
		}
	}

	if entry.Object != object {
		return true
	}

	if _, err := os.Stat(entry.Object); err != nil {
		return true
	}

	return false
}

// Commit atomically writes the entry for a unit after a successful compile.
// The old entry remains valid until the transaction replaces it.
func (c *Cache) Commit(unit *depgraph.Unit, object string, flags []string) error {
	entry := Entry{
		SourcePath: unit.Path,
		Hash:       unit.Hash,
		Headers:    unit.Headers,
		Object:     object,
		Flags:      flags,
		Timestamp:  time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(unit.Path), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	return nil
}

// Stats returns the number of entries in the store.
func (c *Cache) Stats() (int, error) {
	var count int

	err := c.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}
