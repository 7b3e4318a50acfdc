package testfs

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// -----------------------------------------------------------------------------
// Sow Operations - Create trees from spec
// -----------------------------------------------------------------------------

// SowFileTree creates directory trees from a FileTree specification.
//
// For E2E tests, root is "/" and tree roots are actual tmpfs mounts.
// For integration tests, root is t.TempDir() and tree roots become subdirs.
func SowFileTree(root string, spec FileTree) error {
	for _, tree := range spec.Trees {
		if err := sowTree(root, tree); err != nil {
			return fmt.Errorf("sow tree %s: %w", tree.Root, err)
		}
	}
	return nil
}

// SowFromReader reads a FileTree JSON from the reader and creates the trees.
// Used by testfs-helper CLI tool to read from stdin.
func SowFromReader(r io.Reader, root string) error {
	var spec FileTree
	if err := json.NewDecoder(r).Decode(&spec); err != nil {
		return fmt.Errorf("decode spec: %w", err)
	}
	return SowFileTree(root, spec)
}

func sowTree(root string, tree Tree) error {
	treePath := resolveTreePath(root, tree.Root)

	if err := os.MkdirAll(treePath, 0o755); err != nil {
		return fmt.Errorf("create tree dir: %w", err)
	}

	for _, f := range tree.Files {
		path := filepath.Join(treePath, f.Path)
		if err := writeChunkedFile(path, f.Chunks); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
	}

	for _, sym := range tree.Symlinks {
		path := filepath.Join(treePath, sym.Path)
		if err := createSymlink(sym.Target, path); err != nil {
			return fmt.Errorf("symlink %s -> %s: %w", path, sym.Target, err)
		}
	}
	return nil
}

// resolveTreePath determines the actual filesystem path for a tree root.
func resolveTreePath(root, treeRoot string) string {
	if root == "" || root == "/" {
		return treeRoot
	}
	return filepath.Join(root, treeRoot)
}

// writeChunkedFile streams chunk content directly to disk.
func writeChunkedFile(path string, chunks []Chunk) (err error) {
	r, err := newChunkReader(chunks)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(f, r)
	return err
}

// createSymlink creates a symlink, creating parent dirs.
func createSymlink(target, link string) error {
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return err
	}
	return os.Symlink(target, link)
}
