// Package scanner lists the candidate files under a compared root.
//
// # Traversal Order
//
// Entries of every directory are sorted by name before they are visited, and
// subdirectories are descended into where they sort (pre-order). The order of
// the result therefore depends only on the filesystem state, which makes id
// allocation downstream reproducible.
//
//	root/
//	├── a.txt        → 1
//	├── b/
//	│   ├── c.txt    → 2
//	│   └── d/
//	│       └── e    → 3
//	└── f.txt        → 4
//
// # Filtering
//
//   - Directories are traversed, never listed
//   - Symlinks are neither listed nor followed (no cycles)
//   - Devices, sockets and pipes are skipped
//   - Dot-files and dot-directories are skipped unless requested
//   - Glob excludes apply to base names of files and directories
//   - Files smaller than MinSize are skipped
//
// Unreadable subdirectories are reported on the error channel and skipped;
// an unreadable root is an error.
package scanner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ivoronin/dirdiff/internal/progress"
	"github.com/ivoronin/dirdiff/internal/types"
)

// Options controls which files are listed.
type Options struct {
	IncludeDotFiles bool     // List files and directories starting with "."
	Excludes        []string // Glob patterns matched against base names
	MinSize         int64    // Skip files smaller than this (bytes)
}

// Scanner discovers files under one root.
//
// The scanner is designed for single-use: create with New(), call Run() once.
type Scanner struct {
	// Config (immutable, set by New)
	root     string            // Root to scan
	opts     Options           // Filters
	reporter progress.Reporter // Progress display
	errCh    chan error        // Non-fatal errors (permission denied, etc.)

	// Runtime (initialized in Run)
	stats   *stats
	results []*types.Entry
}

// New creates a Scanner for root. A nil reporter disables progress.
func New(root string, opts Options, reporter progress.Reporter, errCh chan error) *Scanner {
	if reporter == nil {
		reporter = progress.Nop
	}
	return &Scanner{
		root:     root,
		opts:     opts,
		reporter: reporter,
		errCh:    errCh,
	}
}

// stats tracks scanning progress.
type stats struct {
	scannedFiles int64
	matchedFiles int64
	scannedBytes int64
	matchedBytes int64
	startTime    time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Scanned %d (%s), matched %d files (%s) in %.1fs",
		s.scannedFiles, humanize.IBytes(uint64(s.scannedBytes)),
		s.matchedFiles, humanize.IBytes(uint64(s.matchedBytes)),
		time.Since(s.startTime).Seconds())
}

// Run lists the root and returns its files in pre-order.
//
// The context is checked once per directory; on cancellation the files found
// so far are returned together with the context error.
func (s *Scanner) Run(ctx context.Context) ([]*types.Entry, error) {
	s.stats = &stats{startTime: time.Now()}
	s.results = nil

	root, err := filepath.Abs(s.root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	if err := s.walkDirectory(ctx, root, root); err != nil {
		return s.results, err
	}
	return s.results, nil
}

// walkDirectory appends the files of dir and recurses into its subdirectories.
func (s *Scanner) walkDirectory(ctx context.Context, root, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := listDirectory(dir)
	if err != nil {
		if dir == root {
			return err
		}
		s.sendError(err)
		return nil
	}

	for _, entry := range entries {
		fullPath := filepath.Join(dir, entry.Name())
		if s.shouldExclude(entry.Name()) {
			continue
		}

		if entry.IsDir() {
			if err := s.walkDirectory(ctx, root, fullPath); err != nil {
				return err
			}
			continue
		}

		// Skip non-regular files (symlinks, devices, sockets, etc.)
		if !entry.Type().IsRegular() {
			continue
		}

		// Info() may trigger additional stat call (platform-dependent)
		info, err := entry.Info()
		if err != nil {
			continue // Skip files we can't stat (race condition, permissions)
		}

		s.stats.scannedFiles++
		s.stats.scannedBytes += info.Size()
		if info.Size() < s.opts.MinSize {
			continue
		}
		s.results = append(s.results, newEntry(root, dir, info))
		s.stats.matchedFiles++
		s.stats.matchedBytes += info.Size()
	}

	s.reporter.Report(s.stats.String(), -1)
	return nil
}

// listDirectory reads a single directory and returns its entries sorted by name.
//
// Uses batched ReadDir (1000 entries per batch) to bound memory per call.
func listDirectory(dirPath string) ([]os.DirEntry, error) {
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dir.Close() }()

	const batchSize = 1000
	var all []os.DirEntry
	for {
		entries, err := dir.ReadDir(batchSize)
		all = append(all, entries...)
		if len(entries) == 0 {
			if err != nil && err != io.EOF {
				return nil, err
			}
			break
		}
	}

	slices.SortFunc(all, func(a, b os.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return all, nil
}

// shouldExclude checks dot-file policy and glob exclude patterns against a base name.
func (s *Scanner) shouldExclude(name string) bool {
	if !s.opts.IncludeDotFiles && strings.HasPrefix(name, ".") {
		return true
	}
	for _, pattern := range s.opts.Excludes {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// sendError sends an error to the errors channel if it's not nil.
func (s *Scanner) sendError(err error) {
	if s.errCh != nil {
		s.errCh <- err
	}
}
