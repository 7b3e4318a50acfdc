//go:build unix

package compare

import (
	"context"
	"errors"
	"hash"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ivoronin/dirdiff/internal/types"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// names lists relative paths, "-" for placeholders.
func names(list types.EntryList) []string {
	out := make([]string, len(list))
	for i, e := range list {
		if e.Fake {
			out[i] = "-"
		} else {
			out[i] = e.RelPath()
		}
	}
	return out
}

func present(list types.EntryList) []string {
	var out []string
	for _, e := range list {
		if !e.Fake {
			out = append(out, e.RelPath())
		}
	}
	return out
}

// =============================================================================
// Section 1: Single Tree
// =============================================================================

// TestSimpleDedup tests two identical files in one directory.
func TestSimpleDedup(t *testing.T) {
	root := writeTree(t, map[string]string{"x.txt": "hello", "y.txt": "hello"})

	dups, err := Run(context.Background(), Options{Left: root, Mode: types.ModeContent, Show: ShowDups}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names(dups.Single), []string{"x.txt", "y.txt"}) {
		t.Errorf("dups = %v", names(dups.Single))
	}
	if dups.Single[0].ID != 1 || dups.Single[1].ID != 1 {
		t.Errorf("dup group ids = %d, %d; want 1, 1", dups.Single[0].ID, dups.Single[1].ID)
	}

	unique, err := Run(context.Background(), Options{Left: root, Mode: types.ModeContent, Show: ShowUnique}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !unique.Empty() {
		t.Errorf("unique = %v, want empty", names(unique.Single))
	}
}

// TestSingleAllDiscoveryOrder tests that the ALL view keeps tree order.
func TestSingleAllDiscoveryOrder(t *testing.T) {
	root := writeTree(t, map[string]string{"b/z": "1", "a": "2", "c": "1"})

	res, err := Run(context.Background(), Options{Left: root, Mode: types.ModeContent}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.TwoSided() {
		t.Error("single-root result should not be two-sided")
	}
	want := []string{"a", filepath.Join("b", "z"), "c"}
	if !slices.Equal(names(res.Single), want) {
		t.Errorf("all = %v, want %v", names(res.Single), want)
	}
	if res.Files != 3 {
		t.Errorf("Files = %d, want 3", res.Files)
	}
}

// =============================================================================
// Section 2: Two Trees
// =============================================================================

// TestTwoTreeUnique tests the two-tree unique scenario.
func TestTwoTreeUnique(t *testing.T) {
	left := writeTree(t, map[string]string{"a.txt": "only in A", "b.txt": "shared"})
	right := writeTree(t, map[string]string{"b.txt": "shared", "c.txt": "only in B"})

	res, err := Run(context.Background(), Options{Left: left, Right: right, Mode: types.ModeContent, Show: ShowUnique}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(present(res.Left), []string{"a.txt"}) || !slices.Equal(present(res.Right), []string{"c.txt"}) {
		t.Errorf("unique = %v | %v", names(res.Left), names(res.Right))
	}
	if len(res.Left) != len(res.Right) {
		t.Error("rows not aligned")
	}
}

func TestTwoTreeDups(t *testing.T) {
	left := writeTree(t, map[string]string{"a.txt": "only in A", "b.txt": "shared"})
	right := writeTree(t, map[string]string{"copy-of-b.txt": "shared", "c.txt": "only in B"})

	res, err := Run(context.Background(), Options{Left: left, Right: right, Mode: types.ModeContent, Show: ShowDups}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names(res.Left), []string{"b.txt"}) || !slices.Equal(names(res.Right), []string{"copy-of-b.txt"}) {
		t.Errorf("dups = %v | %v", names(res.Left), names(res.Right))
	}
	if res.Left[0].ID != 1 || res.Right[0].ID != 1 {
		t.Errorf("dup ids = %d, %d; want 1, 1", res.Left[0].ID, res.Right[0].ID)
	}
}

// TestTwoTreeAll tests that every file of both trees appears exactly once.
func TestTwoTreeAll(t *testing.T) {
	left := writeTree(t, map[string]string{"a": "1", "b": "2", "c": "3"})
	right := writeTree(t, map[string]string{"a": "1", "c": "3", "d": "4"})

	res, err := Run(context.Background(), Options{Left: left, Right: right, Mode: types.ModeContent}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a|a", "b|-", "c|c", "-|d"}
	var got []string
	for i := range res.Left {
		got = append(got, names(res.Left)[i]+"|"+names(res.Right)[i])
	}
	if !slices.Equal(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

// TestGroupByPath tests that edited files line up with their counterpart.
func TestGroupByPath(t *testing.T) {
	left := writeTree(t, map[string]string{"a": "1", "edited": "before", "z": "9"})
	right := writeTree(t, map[string]string{"a": "1", "edited": "after!", "z": "9"})

	opts := Options{Left: left, Right: right, Mode: types.ModeContent}
	res, err := Run(context.Background(), opts, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Left) != 4 {
		t.Errorf("without grouping expected 4 rows, got %d", len(res.Left))
	}

	opts.GroupByPath = true
	res, err = Run(context.Background(), opts, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names(res.Left), []string{"a", "edited", "z"}) || !slices.Equal(names(res.Right), []string{"a", "edited", "z"}) {
		t.Errorf("grouped rows = %v | %v", names(res.Left), names(res.Right))
	}
}

// TestHashCollision tests that distinct files with colliding fingerprints get different ids.
func TestHashCollision(t *testing.T) {
	root := writeTree(t, map[string]string{"p": "AAAA", "q": "BBBB", "r": "AAAA"})

	c := New(Options{Left: root, Mode: types.ModeContent, Show: ShowDups}, nil, nil)
	defer c.Close()
	c.Calculator().SetHashFunc(func() hash.Hash64 { return constHash{} })

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names(res.Single), []string{"p", "r"}) {
		t.Errorf("dups = %v, want [p r]", names(res.Single))
	}
	if c.Index().Groups() != 2 {
		t.Errorf("Groups() = %d, want 2 distinct contents", c.Index().Groups())
	}
}

// =============================================================================
// Section 3: Failures
// =============================================================================

func TestCancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Options{Left: root, Mode: types.ModeContent}, nil, nil)
	res, err := c.Run(ctx)
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
	if res != nil {
		t.Error("partial results should be discarded")
	}
	if c.Index().Len() != 0 {
		t.Error("index should be torn down after cancellation")
	}
}

func TestMissingRoot(t *testing.T) {
	_, err := Run(context.Background(), Options{Left: filepath.Join(t.TempDir(), "missing")}, nil, nil)
	if err == nil || errors.Is(err, ErrCancelled) {
		t.Errorf("expected a plain error, got %v", err)
	}
}

// TestSkipped tests that unreadable files are counted and dropped.
func TestSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks are bypassed for root")
	}
	root := writeTree(t, map[string]string{"ok": "1", "locked": "2"})
	if err := os.Chmod(filepath.Join(root, "locked"), 0o000); err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 10)
	res, err := Run(context.Background(), Options{Left: root, Mode: types.ModeContent}, nil, errCh)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 || !slices.Equal(names(res.Single), []string{"ok"}) {
		t.Errorf("Skipped = %d, single = %v", res.Skipped, names(res.Single))
	}
	if len(errCh) != 1 {
		t.Errorf("expected 1 reported error, got %d", len(errCh))
	}
}

func TestParseShow(t *testing.T) {
	for _, s := range []Show{ShowAll, ShowUnique, ShowDups} {
		got, err := ParseShow(s.String())
		if err != nil || got != s {
			t.Errorf("ParseShow(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseShow("some"); err == nil {
		t.Error("expected error for unknown view")
	}
}

// constHash is a hash.Hash64 that always sums to 7.
type constHash struct{}

func (constHash) Write(p []byte) (int, error) { return len(p), nil }
func (constHash) Sum(b []byte) []byte         { return append(b, 7) }
func (constHash) Reset()                      {}
func (constHash) Size() int                   { return 8 }
func (constHash) BlockSize() int              { return 1 }
func (constHash) Sum64() uint64               { return 7 }
