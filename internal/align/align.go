// Package align lines up two id-tagged lists row by row.
//
// # Algorithm
//
// Align computes an edit-distance alignment of the two lists, where two
// entries match (cost 0) when they share an id, or, with groupByPath, when
// their relative paths are equal under the OS path rules. Deleting from A or
// inserting from B costs 1.
//
//	cost[0][j] = j
//	cost[i][0] = i
//	cost[i][j] = min(cost[i-1][j] + 1,            UP   (A[i-1] alone)
//	                 cost[i][j-1] + 1,            LEFT (B[j-1] alone)
//	                 cost[i-1][j-1] if match)     DIAG (A[i-1] with B[j-1])
//
// Ties prefer UP over LEFT over DIAG, so equal inputs always give the same
// output.
//
// # Output
//
// The backtrace emits one row per move; an unmatched entry is paired with a
// fake placeholder entry on the other side:
//
//	A: p1 p2        left:  p1  --  p2
//	B: p1 x  p2     right: p1  x   p2
//
// The table takes (len(A)+1)*(len(B)+1) cells, so inputs are bounded by
// MaxCells.
package align

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ivoronin/dirdiff/internal/types"
)

// MaxCells bounds the size of the alignment table (about 512MB).
const MaxCells = 64 * 1024 * 1024

// ErrTooLarge is returned when the inputs would exceed MaxCells.
var ErrTooLarge = errors.New("too many files to align")

type move uint8

const (
	moveUp   move = iota // Consume from A, blank on the right
	moveLeft             // Consume from B, blank on the left
	moveDiag             // Consume from both
)

type cell struct {
	cost uint32
	move move
}

// table is a row-major (m+1) x (n+1) grid.
type table struct {
	cells []cell
	cols  int
}

func (t *table) at(i, j int) *cell {
	return &t.cells[i*t.cols+j]
}

// Equal reports whether a and b belong on the same row.
func Equal(a, b *types.Entry, groupByPath bool) bool {
	if a.ID != types.NoID && a.ID == b.ID {
		return true
	}
	return groupByPath && types.PathsEqual(a.RelPath(), b.RelPath())
}

// Align returns two row-synchronized lists of equal length.
//
// Both inputs should be sorted with types.SortByID. Ownership of the input
// entries moves to the output; unmatched rows get new fake entries.
func Align(a, b types.EntryList, groupByPath bool) (left, right types.EntryList, err error) {
	m, n := len(a), len(b)
	if (m+1)*(n+1) > MaxCells {
		return nil, nil, fmt.Errorf("%w: %d x %d", ErrTooLarge, m, n)
	}

	t := &table{cells: make([]cell, (m+1)*(n+1)), cols: n + 1}
	for i := 1; i <= m; i++ {
		*t.at(i, 0) = cell{cost: uint32(i), move: moveUp}
	}
	for j := 1; j <= n; j++ {
		*t.at(0, j) = cell{cost: uint32(j), move: moveLeft}
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			best := cell{cost: t.at(i-1, j).cost + 1, move: moveUp}
			if c := t.at(i, j-1).cost + 1; c < best.cost {
				best = cell{cost: c, move: moveLeft}
			}
			if c := t.at(i-1, j-1).cost; c < best.cost && Equal(a[i-1], b[j-1], groupByPath) {
				best = cell{cost: c, move: moveDiag}
			}
			*t.at(i, j) = best
		}
	}

	// k matched rows leave m+n-2k unmatched ones
	rows := (m + n + int(t.at(m, n).cost)) / 2
	left = make(types.EntryList, 0, rows)
	right = make(types.EntryList, 0, rows)

	for i, j := m, n; i > 0 || j > 0; {
		switch t.at(i, j).move {
		case moveDiag:
			left = append(left, a[i-1])
			right = append(right, b[j-1])
			i, j = i-1, j-1
		case moveUp:
			left = append(left, a[i-1])
			right = append(right, types.NewFake())
			i--
		case moveLeft:
			left = append(left, types.NewFake())
			right = append(right, b[j-1])
			j--
		}
	}

	slices.Reverse(left)
	slices.Reverse(right)
	return left, right, nil
}
