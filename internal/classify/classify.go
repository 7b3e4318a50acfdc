// Package classify derives the UNIQUE and DUPS views of id-tagged lists.
//
// # Input Contract
//
// Every input list must be sorted with types.SortByID, so entries sharing an
// id form one contiguous run in discovery order. ALL is the identity and has
// no function here.
//
// # Two-List Views
//
//	left  ids: 1 1 2 4        right ids: 2 3 4 4
//	           └─┤ │ │                   │ │ └─┤
//	Unique:    1 1 . .                   . 3 . .
//	Dups:      . . 1 2                   1 . 2 2   (renumbered)
//
// Every input entry lands in exactly one of the two views.
//
// # Single-List Views
//
// A run of length 1 is unique, a run of length 2 or more is a duplicate group.
//
// # Ownership
//
// The functions return new slices holding the surviving entries and never
// revisit an input position. Callers must not reuse the input lists: kept
// entries may be renumbered, dropped entries get types.NoID.
package classify

import "github.com/ivoronin/dirdiff/internal/types"

// runEnd returns the index just past the run of entries sharing list[i].ID.
func runEnd(list types.EntryList, i int) int {
	j := i + 1
	for j < len(list) && list[j].ID == list[i].ID {
		j++
	}
	return j
}

// drop marks a run as excluded from the view.
func drop(run types.EntryList) {
	for _, e := range run {
		e.ID = types.NoID
	}
}

// renumber assigns id to every entry of a run.
func renumber(run types.EntryList, id int) {
	for _, e := range run {
		e.ID = id
	}
}

// Unique keeps the entries whose id appears on one side only.
// Any cross-side match excludes the whole id from both sides, whatever the
// run lengths.
func Unique(a, b types.EntryList) (left, right types.EntryList) {
	left, right = types.EntryList{}, types.EntryList{}
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i].ID < b[j].ID):
			end := runEnd(a, i)
			left = append(left, a[i:end]...)
			i = end
		case i == len(a) || b[j].ID < a[i].ID:
			end := runEnd(b, j)
			right = append(right, b[j:end]...)
			j = end
		default:
			endA, endB := runEnd(a, i), runEnd(b, j)
			drop(a[i:endA])
			drop(b[j:endB])
			i, j = endA, endB
		}
	}
	return left, right
}

// Dups keeps the entries whose id appears on both sides.
// Surviving ids are renumbered from 1 with one counter shared by both sides,
// so matching runs keep matching ids.
func Dups(a, b types.EntryList) (left, right types.EntryList) {
	left, right = types.EntryList{}, types.EntryList{}
	next := 1
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].ID < b[j].ID:
			end := runEnd(a, i)
			drop(a[i:end])
			i = end
		case b[j].ID < a[i].ID:
			end := runEnd(b, j)
			drop(b[j:end])
			j = end
		default:
			endA, endB := runEnd(a, i), runEnd(b, j)
			renumber(a[i:endA], next)
			renumber(b[j:endB], next)
			next++
			left = append(left, a[i:endA]...)
			right = append(right, b[j:endB]...)
			i, j = endA, endB
		}
	}
	drop(a[i:])
	drop(b[j:])
	return left, right
}

// DupsSingle keeps the runs of two or more entries sharing an id,
// renumbered from 1.
func DupsSingle(list types.EntryList) types.EntryList {
	result := types.EntryList{}
	next := 1
	for i := 0; i < len(list); {
		end := runEnd(list, i)
		if end-i >= 2 {
			renumber(list[i:end], next)
			next++
			result = append(result, list[i:end]...)
		} else {
			drop(list[i:end])
		}
		i = end
	}
	return result
}

// UniqueSingle keeps the entries whose id no other entry shares.
// Kept entries retain their ids.
func UniqueSingle(list types.EntryList) types.EntryList {
	result := types.EntryList{}
	for i := 0; i < len(list); {
		end := runEnd(list, i)
		if end-i == 1 {
			result = append(result, list[i])
		} else {
			drop(list[i:end])
		}
		i = end
	}
	return result
}
