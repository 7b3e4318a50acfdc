package index

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivoronin/dirdiff/internal/types"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// =============================================================================
// Id Allocation
// =============================================================================

func TestLookupOrRegisterNewFingerprint(t *testing.T) {
	x := New()

	id, isNew := x.LookupOrRegister("fp1", "", types.ModeSize, true)
	if id != 1 || !isNew {
		t.Errorf("first registration = (%d, %v), want (1, true)", id, isNew)
	}

	id, isNew = x.LookupOrRegister("fp2", "", types.ModeSize, true)
	if id != 2 || !isNew {
		t.Errorf("second registration = (%d, %v), want (2, true)", id, isNew)
	}

	if x.Groups() != 2 || x.Len() != 2 {
		t.Errorf("Groups() = %d, Len() = %d, want 2, 2", x.Groups(), x.Len())
	}
}

func TestLookupOrRegisterSeenFingerprint(t *testing.T) {
	for _, mode := range []types.Mode{types.ModeName, types.ModeSize} {
		t.Run(mode.String(), func(t *testing.T) {
			x := New()
			first, _ := x.LookupOrRegister("key", "/a", mode, true)
			id, isNew := x.LookupOrRegister("key", "/b", mode, true)
			if id != first || isNew {
				t.Errorf("seen fingerprint = (%d, %v), want (%d, false)", id, isNew, first)
			}
		})
	}
}

// TestLookupWithoutRegister tests the dups-only second pass behavior.
func TestLookupWithoutRegister(t *testing.T) {
	x := New()
	x.LookupOrRegister("known", "", types.ModeSize, true)

	if id, isNew := x.LookupOrRegister("unknown", "", types.ModeSize, false); id != types.NoID || isNew {
		t.Errorf("unregistered lookup = (%d, %v), want (%d, false)", id, isNew, types.NoID)
	}
	if id, _ := x.LookupOrRegister("known", "", types.ModeSize, false); id != 1 {
		t.Errorf("known lookup = %d, want 1", id)
	}
	if x.Groups() != 1 {
		t.Errorf("lookup without register allocated ids: Groups() = %d", x.Groups())
	}
}

// TestInstancesIndependent tests that counters are per instance.
func TestInstancesIndependent(t *testing.T) {
	a, b := New(), New()
	a.LookupOrRegister("x", "", types.ModeSize, true)
	a.LookupOrRegister("y", "", types.ModeSize, true)

	if id, _ := b.LookupOrRegister("z", "", types.ModeSize, true); id != 1 {
		t.Errorf("fresh index allocated id %d, want 1", id)
	}
}

func TestResetKeepsCounter(t *testing.T) {
	x := New()
	x.LookupOrRegister("x", "", types.ModeSize, true)
	x.Reset()

	if x.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", x.Len())
	}
	if id, _ := x.LookupOrRegister("x", "", types.ModeSize, true); id != 2 {
		t.Errorf("id after Reset = %d, want 2", id)
	}
}

// =============================================================================
// Content Mode Collision Chains
// =============================================================================

func TestContentModeIdenticalFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("hello"))
	b := writeFile(t, dir, "b", []byte("hello"))

	x := New()
	idA, _ := x.LookupOrRegister("5|1", a, types.ModeContent, true)
	idB, isNew := x.LookupOrRegister("5|1", b, types.ModeContent, true)
	if idA != idB || isNew {
		t.Errorf("identical files got ids %d, %d (new=%v)", idA, idB, isNew)
	}
}

// TestContentModeCollision tests that distinct files sharing a fingerprint get distinct ids.
func TestContentModeCollision(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("AAAA"))
	b := writeFile(t, dir, "b", []byte("BBBB"))
	c := writeFile(t, dir, "c", []byte("BBBB"))

	x := New()
	idA, _ := x.LookupOrRegister("4|7", a, types.ModeContent, true)
	idB, isNewB := x.LookupOrRegister("4|7", b, types.ModeContent, true)
	idC, isNewC := x.LookupOrRegister("4|7", c, types.ModeContent, true)

	if idA == idB {
		t.Errorf("colliding distinct files share id %d", idA)
	}
	if !isNewB {
		t.Error("collision should allocate a fresh id")
	}
	if idC != idB || isNewC {
		t.Errorf("c should join b's group: got %d (new=%v), want %d", idC, isNewC, idB)
	}
	if x.Len() != 1 {
		t.Errorf("Len() = %d, want 1 fingerprint", x.Len())
	}
}

// TestContentModeCollisionWithoutRegister tests collisions in the dups-only pass.
func TestContentModeCollisionWithoutRegister(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("AAAA"))
	b := writeFile(t, dir, "b", []byte("BBBB"))

	x := New()
	x.LookupOrRegister("4|7", a, types.ModeContent, true)
	if id, _ := x.LookupOrRegister("4|7", b, types.ModeContent, false); id != types.NoID {
		t.Errorf("unconfirmed collision = %d, want NoID", id)
	}
}

// TestContentModeVanishedRecord tests that a vanished registered file never matches.
func TestContentModeVanishedRecord(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("same"))
	b := writeFile(t, dir, "b", []byte("same"))

	x := New()
	idA, _ := x.LookupOrRegister("4|1", a, types.ModeContent, true)
	if err := os.Remove(a); err != nil {
		t.Fatal(err)
	}
	idB, isNew := x.LookupOrRegister("4|1", b, types.ModeContent, true)
	if idB == idA || !isNew {
		t.Errorf("vanished record matched: idA=%d idB=%d new=%v", idA, idB, isNew)
	}
}

// TestContentModeMembersKept tests that a group survives losing its first member.
func TestContentModeMembersKept(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("same"))
	b := writeFile(t, dir, "b", []byte("same"))
	c := writeFile(t, dir, "c", []byte("same"))

	x := New()
	idA, _ := x.LookupOrRegister("4|1", a, types.ModeContent, true)
	x.LookupOrRegister("4|1", b, types.ModeContent, true)

	// a is rewritten with other bytes
	writeFile(t, dir, "a", []byte("diff"))
	x.Forget(a)

	if id, isNew := x.LookupOrRegister("4|1", c, types.ModeContent, true); id != idA || isNew {
		t.Errorf("c = (%d, %v), want (%d, false)", id, isNew, idA)
	}
}

// TestForgetSwappedFiles tests ids after two files swap contents.
func TestForgetSwappedFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("XXXX"))
	b := writeFile(t, dir, "b", []byte("YYYY"))
	ra := writeFile(t, dir, "ra", []byte("YYYY"))
	rb := writeFile(t, dir, "rb", []byte("XXXX"))

	x := New()
	idX, _ := x.LookupOrRegister("4|1", a, types.ModeContent, true)
	idY, _ := x.LookupOrRegister("4|1", b, types.ModeContent, true)
	x.LookupOrRegister("4|1", ra, types.ModeContent, true)
	x.LookupOrRegister("4|1", rb, types.ModeContent, true)

	writeFile(t, dir, "a", []byte("YYYY"))
	x.Forget(a)
	if id, _ := x.LookupOrRegister("4|1", a, types.ModeContent, true); id != idY {
		t.Errorf("rewritten a = %d, want %d", id, idY)
	}

	writeFile(t, dir, "b", []byte("XXXX"))
	x.Forget(b)
	if id, _ := x.LookupOrRegister("4|1", b, types.ModeContent, true); id != idX {
		t.Errorf("rewritten b = %d, want %d", id, idX)
	}
	if x.Groups() != 2 {
		t.Errorf("Groups() = %d, want 2", x.Groups())
	}
}

func TestForgetLastMember(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("only"))

	x := New()
	x.LookupOrRegister("4|1", a, types.ModeContent, true)
	x.Forget(a)
	if x.Len() != 0 {
		t.Errorf("Len() = %d after forgetting the only member", x.Len())
	}

	x.LookupOrRegister("5", "", types.ModeSize, true)
	x.Forget("")
	if id, isNew := x.LookupOrRegister("5", "", types.ModeSize, true); isNew {
		t.Errorf("size record dropped by Forget: got fresh id %d", id)
	}
}

// =============================================================================
// Exact Comparison
// =============================================================================

func TestSameContent(t *testing.T) {
	dir := t.TempDir()
	big := bytes.Repeat([]byte("0123456789abcdef"), blockSize/8) // two blocks
	bigChanged := append([]byte{}, big...)
	bigChanged[len(bigChanged)-1] ^= 0xff

	tests := []struct {
		name string
		a, b []byte
		want bool
	}{
		{"identical small", []byte("hello"), []byte("hello"), true},
		{"different small", []byte("hello"), []byte("hellp"), false},
		{"different length", []byte("hello"), []byte("hello!"), false},
		{"both empty", nil, nil, true},
		{"identical multi-block", big, big, true},
		{"differ in last block", big, bigChanged, false},
		{"exact block size", bytes.Repeat([]byte{1}, blockSize), bytes.Repeat([]byte{1}, blockSize), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := writeFile(t, dir, tt.name+".a", tt.a)
			b := writeFile(t, dir, tt.name+".b", tt.b)
			if got := SameContent(a, b); got != tt.want {
				t.Errorf("SameContent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSameContentMissingFile(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("x"))
	if SameContent(a, filepath.Join(dir, "missing")) {
		t.Error("missing file should never compare equal")
	}
	if SameContent(filepath.Join(dir, "missing"), a) {
		t.Error("missing file should never compare equal")
	}
}
