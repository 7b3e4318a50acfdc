// Package cache provides file-based caching of content-prefix hashes.
package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ivoronin/dirdiff/internal/types"
)

const (
	bucketName = "prefixes"
	hashSize   = 8
)

// Cache provides persistent caching of prefix hashes using BoltDB.
// Implements self-cleaning: each run creates a new database, only used entries survive.
type Cache struct {
	readDB  *bolt.DB // Existing cache (read-only)
	writeDB *bolt.DB // New cache (write) - BoltDB locks this file
	path    string   // Final path (for atomic swap)
	enabled bool
}

// Open opens existing cache for reading and creates new cache for writing.
// BoltDB's built-in file locking on .new file prevents concurrent instances.
// Returns disabled cache if path is empty.
func Open(path string) (*Cache, error) {
	if path == "" {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{path: path, enabled: true}
	var err error

	// Open existing cache for reading (if exists)
	if _, statErr := os.Stat(path); statErr == nil {
		c.readDB, err = bolt.Open(path, 0o600, &bolt.Options{
			ReadOnly: true,
			Timeout:  1 * time.Second,
		})
		if err != nil {
			// Can't open existing - continue without read cache
			c.readDB = nil
		}
	}

	newPath := path + ".new"
	c.writeDB, err = bolt.Open(newPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create new cache (locked by another instance?): %w", err)
	}

	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes both databases and atomically replaces old with new.
// Only replaces if write database closed successfully to avoid data loss.
func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		if err := c.readDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			errs = append(errs, err)
		} else if err := os.Rename(c.path+".new", c.path); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

const keyVersion byte = 1 // Increment when key format changes

// makeKey builds deterministic byte key for BoltDB lookup.
// Key = ver(1) + path + NUL + size(8) + ino(8) + mtime(8) + prefixLen(8)
func makeKey(e *types.Entry, prefixLen int64) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(keyVersion)
	buf.WriteString(e.Path())
	buf.WriteByte(0)
	_ = binary.Write(buf, binary.BigEndian, e.Size)
	_ = binary.Write(buf, binary.BigEndian, e.Ino)
	_ = binary.Write(buf, binary.BigEndian, e.ModTime.UnixNano())
	_ = binary.Write(buf, binary.BigEndian, prefixLen)
	return buf.Bytes()
}

// Lookup retrieves a cached prefix hash.
// Any change of path, size, inode or mtime is a miss.
// On hit the entry is copied to the new database (self-cleaning).
func (c *Cache) Lookup(e *types.Entry, prefixLen int64) (uint64, bool) {
	if c == nil || !c.enabled || c.readDB == nil {
		return 0, false
	}

	key := makeKey(e, prefixLen)
	var (
		hash  uint64
		found bool
	)
	_ = c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		if data := b.Get(key); len(data) == hashSize {
			hash = binary.BigEndian.Uint64(data)
			found = true
		}
		return nil
	})
	if !found {
		return 0, false
	}

	_ = c.Store(e, prefixLen, hash)
	return hash, true
}

// Store saves a prefix hash to the new database.
func (c *Cache) Store(e *types.Entry, prefixLen int64, hash uint64) error {
	if c == nil || !c.enabled || c.writeDB == nil {
		return nil
	}

	value := make([]byte, hashSize)
	binary.BigEndian.PutUint64(value, hash)
	err := c.writeDB.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put(makeKey(e, prefixLen), value)
	})
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}
