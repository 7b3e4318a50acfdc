//go:build unix && !e2e

package testfs

import (
	"path/filepath"
	"testing"
)

// -----------------------------------------------------------------------------
// Harness - Integration Test API
// -----------------------------------------------------------------------------

// Harness creates trees in a temporary directory on the local filesystem.
//
// All trees share one filesystem; use the E2E Harness for copies across
// filesystem boundaries.
//
// Usage:
//
//	h := testfs.New(t, given)
//	res, err := compare.Run(ctx, compare.Options{Left: h.Path("/left"), Right: h.Path("/right")}, nil, nil)
//	// ... resolve rows
//	h.Assert(then)
type Harness struct {
	t     *testing.T
	root  string   // Temporary directory root
	given FileTree // Trees as sown
}

// New creates the trees described by given under t.TempDir().
func New(t *testing.T, given FileTree) *Harness {
	t.Helper()

	h := &Harness{
		t:     t,
		root:  t.TempDir(),
		given: given,
	}

	if err := SowFileTree(h.root, given); err != nil {
		t.Fatalf("failed to setup files: %v", err)
	}

	return h
}

// Root returns the temporary directory root path.
func (h *Harness) Root() string {
	return h.root
}

// Path returns the filesystem path of a logical tree root such as "/left".
func (h *Harness) Path(treeRoot string) string {
	return filepath.Join(h.root, treeRoot)
}

// Assert verifies every tree of expected against the filesystem.
func (h *Harness) Assert(expected FileTree) {
	h.t.Helper()

	for _, tree := range expected.Trees {
		actual, err := ReapPaths(h.root, []string{tree.Root})
		if err != nil {
			h.t.Fatalf("reap %s: %v", tree.Root, err)
		}
		AssertTree(h.t, tree, actual.Trees[0])
	}
}
