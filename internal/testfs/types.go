// Package testfs provides test infrastructure for directory tree comparisons.
//
// It supports two modes:
//   - Integration tests: Harness creates trees in t.TempDir()
//   - E2E tests: Harness runs the dirdiff binary in a Docker container where
//     every tree is a separate tmpfs mount
//
// # Unified FileTree Specification
//
// Tests use a single FileTree type for both setup and verification:
//
//	given := testfs.FileTree{
//	    Trees: []testfs.Tree{
//	        {Root: "/left", Files: []testfs.File{
//	            {Path: "a.txt", Chunks: []testfs.Chunk{{Pattern: 'A', Size: "1KiB"}}},
//	        }},
//	        {Root: "/right"},
//	    },
//	}
//	then := testfs.FileTree{
//	    Trees: []testfs.Tree{
//	        {Root: "/right", Files: []testfs.File{
//	            {Path: "a.txt", Chunks: []testfs.Chunk{{Pattern: 'A', Size: "1KiB"}}},
//	        }},
//	    },
//	}
//
//	h := testfs.New(t, given)
//	// ... run a sync of h.Path("/left") into h.Path("/right")
//	h.Assert(then)
//
// Subdirectories are created automatically from file paths (mkdir -p semantics).
// File paths are relative to the tree root.
//
// # Context-Dependent Field Usage
//
//	| Field          | Setup              | Verification                      |
//	|----------------|--------------------|-----------------------------------|
//	| Trees          | Creates roots      | Scope for assertions              |
//	| File.Path      | Create file        | Assert exists, no unlisted files  |
//	| File.Chunks    | Generate content   | Assert content (if set)           |
//	| Symlink.Path   | Create symlink     | Assert is symlink                 |
//	| Symlink.Target | Symlink target     | Assert symlink target             |
//	| ExitCode       | Ignored            | Assert matches (E2E only)         |
package testfs

import (
	"bytes"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
)

// -----------------------------------------------------------------------------
// FileTree Specification Types
// -----------------------------------------------------------------------------

// FileTree describes the state of one or more directory trees.
type FileTree struct {
	// Trees to create or verify.
	Trees []Tree `json:"trees"`

	// ExitCode expected from dirdiff (verification only, default 0).
	ExitCode int `json:"-"` // Not serialized - harness-only field
}

// Tree is one compared root.
//
// In E2E tests each tree is a separate tmpfs mount, so copies between trees
// cross filesystem boundaries.
type Tree struct {
	// Root is the absolute logical path of the tree, e.g. "/left".
	Root string `json:"root"`

	// Files in this tree.
	Files []File `json:"files,omitempty"`

	// Symlinks in this tree.
	Symlinks []Symlink `json:"symlinks,omitempty"`
}

// File defines a regular file.
//
// Content is specified via Chunks - each chunk fills a region with its pattern byte.
// Same chunks = same content = equivalent files.
type File struct {
	// Path relative to the tree root, e.g. "docs/a.txt".
	Path string `json:"path"`

	// Chunks specifies file content as a sequence of filled regions.
	// Use IEC units for sizes: "1KiB", "1MiB".
	Chunks []Chunk `json:"chunks,omitempty"`
}

// Chunk defines a region of file content filled with a pattern byte.
type Chunk struct {
	// Pattern is the fill byte for this chunk region.
	Pattern rune `json:"pattern"`

	// Size parsed via go-humanize: "100", "4KiB", "1MiB".
	Size string `json:"size"`
}

// TotalSize calculates the sum of all chunk sizes in bytes.
func (f *File) TotalSize() int64 {
	var total int64
	for _, c := range f.Chunks {
		size, _ := humanize.ParseBytes(c.Size)
		total += int64(size)
	}
	return total
}

// Digest returns the xxhash64 of the content described by Chunks.
func (f *File) Digest() (uint64, error) {
	r, err := newChunkReader(f.Chunks)
	if err != nil {
		return 0, err
	}
	d := xxhash.New()
	if _, err := io.Copy(d, r); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}

// Symlink defines a symbolic link.
type Symlink struct {
	// Path is relative to the tree root.
	Path string `json:"path"`

	// Target is the path the symlink points to.
	Target string `json:"target"`
}

// patternReader yields an endless stream of one byte.
type patternReader byte

func (p patternReader) Read(buf []byte) (int, error) {
	for i := range buf {
		buf[i] = byte(p)
	}
	return len(buf), nil
}

// newChunkReader streams the content described by chunks.
func newChunkReader(chunks []Chunk) (io.Reader, error) {
	readers := make([]io.Reader, 0, len(chunks))
	for _, c := range chunks {
		size, err := humanize.ParseBytes(c.Size)
		if err != nil {
			return nil, err
		}
		readers = append(readers, io.LimitReader(patternReader(c.Pattern), int64(size)))
	}
	if len(readers) == 0 {
		return bytes.NewReader(nil), nil
	}
	return io.MultiReader(readers...), nil
}

// -----------------------------------------------------------------------------
// Execution Result Types
// -----------------------------------------------------------------------------

// RunResult captures the results of a command executed by the harness.
type RunResult struct {
	ExitCode int    // Process exit code
	Stdout   string // Standard output
	Stderr   string // Standard error
}

// -----------------------------------------------------------------------------
// Reap Types (filesystem state captured for verification)
// -----------------------------------------------------------------------------

// ReapResult is the output format from the testfs-helper reap command.
type ReapResult struct {
	Trees []ReapTree `json:"trees"`
}

// ReapTree contains the scanned state of a single tree.
type ReapTree struct {
	Root     string        `json:"root"`               // Logical root path (e.g., "/left")
	Files    []ReapFile    `json:"files,omitempty"`    // Regular files in walk order
	Symlinks []ReapSymlink `json:"symlinks,omitempty"` // Symbolic links
}

// ReapFile contains file metadata and a content digest.
type ReapFile struct {
	Path   string `json:"path"`   // Relative to the tree root
	Size   int64  `json:"size"`   // File size in bytes
	Digest uint64 `json:"digest"` // xxhash64 of the whole content
}

// ReapSymlink contains symlink metadata.
type ReapSymlink struct {
	Path   string `json:"path"`   // Symlink path (relative to tree root)
	Target string `json:"target"` // Symlink target
}
