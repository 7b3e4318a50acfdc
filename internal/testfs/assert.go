package testfs

import "testing"

// -----------------------------------------------------------------------------
// Assertion Functions - Shared between the integration and E2E Harness
// -----------------------------------------------------------------------------

// AssertTree verifies the actual tree state matches expected.
//
// Checks:
//   - Files exist at all specified paths
//   - Files with Chunks have exactly that content
//   - No files exist besides the specified ones
//   - Symlinks point to the expected targets
func AssertTree(t *testing.T, expected Tree, actual ReapTree) {
	t.Helper()
	AssertFiles(t, expected.Files, actual.Files)
	AssertSymlinks(t, expected.Symlinks, actual.Symlinks)
}

// AssertFiles verifies the set of files and their content.
func AssertFiles(t *testing.T, expected []File, actual []ReapFile) {
	t.Helper()

	byPath := make(map[string]ReapFile, len(actual))
	for _, rf := range actual {
		byPath[rf.Path] = rf
	}

	for _, ef := range expected {
		rf, ok := byPath[ef.Path]
		if !ok {
			t.Errorf("expected file not found: %s", ef.Path)
			continue
		}
		delete(byPath, ef.Path)

		if ef.Chunks == nil {
			continue
		}
		if size := ef.TotalSize(); rf.Size != size {
			t.Errorf("%s: got size %d, want %d", ef.Path, rf.Size, size)
			continue
		}
		digest, err := ef.Digest()
		if err != nil {
			t.Errorf("%s: %v", ef.Path, err)
			continue
		}
		if rf.Digest != digest {
			t.Errorf("%s: content differs from expected chunks", ef.Path)
		}
	}

	for path := range byPath {
		t.Errorf("unexpected file: %s", path)
	}
}

// AssertSymlinks verifies expected symlinks exist with correct targets.
func AssertSymlinks(t *testing.T, expected []Symlink, actual []ReapSymlink) {
	t.Helper()

	pathToTarget := make(map[string]string)
	for _, rs := range actual {
		pathToTarget[rs.Path] = rs.Target
	}

	for _, es := range expected {
		target, ok := pathToTarget[es.Path]
		if !ok {
			t.Errorf("expected symlink not found: %s", es.Path)
			continue
		}
		if target != es.Target {
			t.Errorf("symlink %s: got target %q, want %q", es.Path, target, es.Target)
		}
	}
}
