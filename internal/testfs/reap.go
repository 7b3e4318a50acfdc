package testfs

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// -----------------------------------------------------------------------------
// Reap Operations - Capture tree state
// -----------------------------------------------------------------------------

// ReapPaths captures the state of the given tree roots.
//
// The root parameter specifies the base directory the logical roots live under.
// For E2E tests, root is "" or "/" so paths are used as-is.
// For integration tests, root is t.TempDir().
func ReapPaths(root string, treeRoots []string) (*ReapResult, error) {
	result := &ReapResult{}

	for _, treeRoot := range treeRoots {
		tree, err := reapTree(resolveTreePath(root, treeRoot), treeRoot)
		if err != nil {
			return nil, fmt.Errorf("reap %s: %w", treeRoot, err)
		}
		result.Trees = append(result.Trees, tree)
	}

	return result, nil
}

// ReapToWriter captures tree state and writes JSON to the writer.
// Used by testfs-helper CLI tool to write to stdout.
func ReapToWriter(w io.Writer, treeRoots []string) error {
	result, err := ReapPaths("", treeRoots)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// reapTree walks actualPath and reports it under logicalRoot.
func reapTree(actualPath, logicalRoot string) (ReapTree, error) {
	tree := ReapTree{Root: logicalRoot}

	err := filepath.WalkDir(actualPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == actualPath || d.IsDir() {
			return nil
		}

		relPath, _ := filepath.Rel(actualPath, path)

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("readlink %s: %w", path, err)
			}
			tree.Symlinks = append(tree.Symlinks, ReapSymlink{Path: relPath, Target: target})
			return nil
		}

		size, digest, err := digestFile(path)
		if err != nil {
			return err
		}
		tree.Files = append(tree.Files, ReapFile{Path: relPath, Size: size, Digest: digest})
		return nil
	})

	return tree, err
}

// digestFile returns the size and xxhash64 of a file's content.
func digestFile(path string) (int64, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	d := xxhash.New()
	n, err := io.Copy(d, f)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", path, err)
	}
	return n, d.Sum64(), nil
}
