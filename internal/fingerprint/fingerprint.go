// Package fingerprint computes the equivalence keys files are grouped by.
//
// # Fingerprint Variants
//
//	┌─────────┬──────────────────────────────┬──────────────────────────────┐
//	│ Mode    │ Fingerprint                  │ Equivalence                  │
//	├─────────┼──────────────────────────────┼──────────────────────────────┤
//	│ name    │ basename (case-folded where  │ fingerprint equality         │
//	│         │ paths are case-insensitive)  │                              │
//	│ size    │ decimal byte count           │ fingerprint equality         │
//	│ content │ "<size>|<xxhash64(prefix)>"  │ candidates only, confirmed   │
//	│         │ prefix = first 4096 bytes    │ by the identity index        │
//	└─────────┴──────────────────────────────┴──────────────────────────────┘
//
// Embedding the size in content fingerprints means files of different sizes
// never collide; the hash only has to tell apart files of the same size.
//
// An empty fingerprint means the file could not be read. The caller drops the
// entry; the failure is reported on the error channel and never aborts a run.
package fingerprint

import (
	"fmt"
	"hash"
	"io"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/ivoronin/dirdiff/internal/cache"
	"github.com/ivoronin/dirdiff/internal/types"
)

// PrefixSize is the number of leading bytes hashed in content mode.
const PrefixSize = 4096

// Calculator computes fingerprints for entries.
type Calculator struct {
	cache   *cache.Cache       // Optional prefix hash cache (nil = disabled)
	errCh   chan error         // Non-fatal errors (permission denied, etc.)
	newHash func() hash.Hash64 // Streaming 64-bit hash constructor
}

// New creates a Calculator. Pass nil for hashCache to disable caching.
func New(hashCache *cache.Cache, errCh chan error) *Calculator {
	return &Calculator{
		cache:   hashCache,
		errCh:   errCh,
		newHash: func() hash.Hash64 { return xxhash.New() },
	}
}

// SetHashFunc replaces the prefix hash constructor.
func (c *Calculator) SetHashFunc(newHash func() hash.Hash64) {
	c.newHash = newHash
}

// Fingerprint returns the fingerprint of e under mode, or "" if e can't be read.
func (c *Calculator) Fingerprint(e *types.Entry, mode types.Mode) string {
	switch mode {
	case types.ModeName:
		return types.FoldPath(e.Name)
	case types.ModeSize:
		return strconv.FormatUint(uint64(e.Size), 10)
	case types.ModeContent:
		return c.content(e)
	}
	return ""
}

// content hashes the prefix of e and formats "<size>|<hash>".
// Refreshes e.Size and e.ModTime from the opened file.
func (c *Calculator) content(e *types.Entry) string {
	f, err := os.Open(e.Path())
	if err != nil {
		c.sendError(err)
		return ""
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		c.sendError(fmt.Errorf("%s: %w", e.Path(), err))
		return ""
	}
	e.Size = info.Size()
	e.ModTime = info.ModTime()

	prefixLen := min(e.Size, PrefixSize)
	sum, ok := c.cache.Lookup(e, prefixLen)
	if !ok {
		sum, err = c.hashPrefix(f, prefixLen)
		if err != nil {
			c.sendError(fmt.Errorf("%s: %w", e.Path(), err))
			return ""
		}
		if err := c.cache.Store(e, prefixLen, sum); err != nil {
			c.sendError(err)
		}
	}

	return strconv.FormatUint(uint64(e.Size), 10) + "|" + strconv.FormatUint(sum, 10)
}

// hashPrefix streams the first n bytes of r through the hash.
func (c *Calculator) hashPrefix(r io.Reader, n int64) (uint64, error) {
	h := c.newHash()
	if _, err := io.CopyN(h, r, n); err != nil && err != io.EOF {
		return 0, err
	}
	return h.Sum64(), nil
}

// sendError sends an error to the errors channel if it's not nil.
func (c *Calculator) sendError(err error) {
	if c.errCh != nil {
		c.errCh <- err
	}
}
