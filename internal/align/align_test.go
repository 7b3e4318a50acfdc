package align

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/ivoronin/dirdiff/internal/types"
)

// entries builds a list with the given ids, named prefix+position.
func entries(prefix string, ids ...int) types.EntryList {
	out := make(types.EntryList, len(ids))
	for i, id := range ids {
		out[i] = &types.Entry{Name: fmt.Sprintf("%s%d", prefix, i), Origin: "/r", Root: "/r", ID: id, Tag: i}
	}
	return out
}

// rows renders aligned output as "left|right" strings, "-" for placeholders.
func rows(left, right types.EntryList) []string {
	name := func(e *types.Entry) string {
		if e.Fake {
			return "-"
		}
		return e.Name
	}
	out := make([]string, len(left))
	for i := range left {
		out[i] = name(left[i]) + "|" + name(right[i])
	}
	return out
}

func assertRows(t *testing.T, left, right types.EntryList, want ...string) {
	t.Helper()
	got := rows(left, right)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

// =============================================================================
// Section 1: Scenarios
// =============================================================================

// TestAlignInsertion tests that an unmatched entry in B gets a blank on the left.
func TestAlignInsertion(t *testing.T) {
	left, right, err := Align(entries("a", 1, 2), entries("b", 1, 3, 2), false)
	if err != nil {
		t.Fatal(err)
	}
	assertRows(t, left, right, "a0|b0", "-|b1", "a1|b2")
}

func TestAlignEmpty(t *testing.T) {
	tests := []struct {
		name string
		a, b types.EntryList
		want []string
	}{
		{"both empty", nil, nil, []string{}},
		{"left empty", nil, entries("b", 1, 2), []string{"-|b0", "-|b1"}},
		{"right empty", entries("a", 1, 2), nil, []string{"a0|-", "a1|-"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right, err := Align(tt.a, tt.b, false)
			if err != nil {
				t.Fatal(err)
			}
			assertRows(t, left, right, tt.want...)
		})
	}
}

func TestAlignIdentical(t *testing.T) {
	left, right, err := Align(entries("a", 1, 2, 3), entries("b", 1, 2, 3), false)
	if err != nil {
		t.Fatal(err)
	}
	assertRows(t, left, right, "a0|b0", "a1|b1", "a2|b2")
}

// =============================================================================
// Section 2: Tie-Break
// =============================================================================

// TestAlignTieBreakDeleteFirst tests that a lone pair of unmatched rows is
// resolved with the A entry consumed first during backtrace.
func TestAlignTieBreakDeleteFirst(t *testing.T) {
	left, right, err := Align(entries("a", 1), entries("b", 2), false)
	if err != nil {
		t.Fatal(err)
	}
	// Backtrace runs bottom-up, so the preferred DELETE row ends up last
	assertRows(t, left, right, "-|b0", "a0|-")
}

// TestAlignTieBreakDeleteOverDiag tests that DIAG loses a tie against DELETE.
func TestAlignTieBreakDeleteOverDiag(t *testing.T) {
	left, right, err := Align(entries("a", 1, 1), entries("b", 1), false)
	if err != nil {
		t.Fatal(err)
	}
	assertRows(t, left, right, "a0|b0", "a1|-")
}

// TestAlignDeterministic tests that identical inputs give identical rows.
func TestAlignDeterministic(t *testing.T) {
	a := []int{1, 4, 2, 9, 3, 3, 7}
	b := []int{4, 1, 3, 8, 2, 7, 7}

	l0, r0, _ := Align(entries("a", a...), entries("b", b...), false)
	first := fmt.Sprint(rows(l0, r0))
	for i := 0; i < 10; i++ {
		l, r, _ := Align(entries("a", a...), entries("b", b...), false)
		if got := fmt.Sprint(rows(l, r)); got != first {
			t.Fatalf("run %d: %s, want %s", i, got, first)
		}
	}
}

// =============================================================================
// Section 3: Invariants
// =============================================================================

// TestAlignInvariants checks length and match invariants on random inputs.
func TestAlignInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 200; iter++ {
		m, n := rng.Intn(12), rng.Intn(12)
		aIDs := make([]int, m)
		bIDs := make([]int, n)
		for i := range aIDs {
			aIDs[i] = rng.Intn(8) + 1
		}
		for i := range bIDs {
			bIDs[i] = rng.Intn(8) + 1
		}
		groupByPath := iter%2 == 1

		left, right, err := Align(entries("a", aIDs...), entries("b", bIDs...), groupByPath)
		if err != nil {
			t.Fatal(err)
		}

		if len(left) != len(right) {
			t.Fatalf("a=%v b=%v: lengths %d != %d", aIDs, bIDs, len(left), len(right))
		}
		if l := len(left); l < max(m, n) || l > m+n {
			t.Fatalf("a=%v b=%v: length %d outside [%d, %d]", aIDs, bIDs, l, max(m, n), m+n)
		}

		var realLeft, realRight int
		for i := range left {
			if left[i].Fake && right[i].Fake {
				t.Fatalf("a=%v b=%v: row %d is blank on both sides", aIDs, bIDs, i)
			}
			if !left[i].Fake {
				realLeft++
			}
			if !right[i].Fake {
				realRight++
			}
			if !left[i].Fake && !right[i].Fake && !Equal(left[i], right[i], groupByPath) {
				t.Fatalf("a=%v b=%v: row %d pairs unequal entries", aIDs, bIDs, i)
			}
		}
		if realLeft != m || realRight != n {
			t.Fatalf("a=%v b=%v: entries lost (%d/%d, %d/%d)", aIDs, bIDs, realLeft, m, realRight, n)
		}
	}
}

// =============================================================================
// Section 4: Path Grouping
// =============================================================================

func TestAlignGroupByPath(t *testing.T) {
	a := types.EntryList{
		{Name: "same.txt", Origin: "/left", Root: "/left", ID: 1},
	}
	b := types.EntryList{
		{Name: "same.txt", Origin: "/right", Root: "/right", ID: 2},
	}

	l, r, _ := Align(a, b, false)
	if len(l) != 2 {
		t.Errorf("without grouping expected 2 rows, got %d", len(l))
	}

	l, r, _ = Align(a, b, true)
	if len(l) != 1 || l[0] != a[0] || r[0] != b[0] {
		t.Errorf("with grouping expected one matched row, got %v", rows(l, r))
	}
}

func TestEqual(t *testing.T) {
	x := &types.Entry{Name: "f", Origin: "/l/d", Root: "/l", ID: 3}
	tests := []struct {
		name        string
		y           *types.Entry
		groupByPath bool
		want        bool
	}{
		{"same id", &types.Entry{Name: "g", Root: "/r", Origin: "/r", ID: 3}, false, true},
		{"different id", &types.Entry{Name: "g", Root: "/r", Origin: "/r", ID: 4}, false, false},
		{"same path without grouping", &types.Entry{Name: "f", Root: "/r", Origin: "/r/d", ID: 4}, false, false},
		{"same path with grouping", &types.Entry{Name: "f", Root: "/r", Origin: "/r/d", ID: 4}, true, true},
		{"different path with grouping", &types.Entry{Name: "f", Root: "/r", Origin: "/r/e", ID: 4}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(x, tt.y, tt.groupByPath); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}

	// Excluded entries never match on id alone
	if Equal(&types.Entry{ID: types.NoID, Name: "a"}, &types.Entry{ID: types.NoID, Name: "b"}, false) {
		t.Error("NoID entries should not match")
	}
}

func TestAlignTooLarge(t *testing.T) {
	a := make(types.EntryList, 9000)
	b := make(types.EntryList, 9000)
	if _, _, err := Align(a, b, false); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}
