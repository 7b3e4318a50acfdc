// Package index assigns equivalence-group ids to fingerprinted files.
//
// # Overview
//
// The index maps a fingerprint to the records of every distinct file seen
// with it. In name and size modes the fingerprint is the equivalence key, so
// one record per fingerprint is enough. In content mode the fingerprint only
// covers a prefix, so several distinct files may share it; each new file is
// compared byte-for-byte against the stored records before it is given an id.
//
//	LookupOrRegister(fp, path)
//	    │
//	    ├──► fp unseen ──► register? ──► yes: new record, fresh id
//	    │                            └──► no:  NoID
//	    │
//	    ├──► name/size mode ──► id of the single record
//	    │
//	    └──► content mode ──► SameContent(path, record.paths[0]) for each record
//	                              ├──► first match: its id, path joins the record
//	                              └──► none: register? new record : NoID
//
// In content mode a record keeps the path of every member it has seen.
// Forget drops a path whose content changed or vanished; a record stays
// usable as long as one of its paths is left.
//
// One Index serves one comparison run and spans both trees, so equivalence
// is shared across sides. Ids come from a counter owned by the instance.
// An Index is not safe for concurrent use.
package index

import (
	"bytes"
	"io"
	"os"
	"slices"

	"github.com/ivoronin/dirdiff/internal/types"
)

// blockSize is the read buffer size for exact comparison (32KB).
const blockSize = 32 * 1024

// record is one distinct content registered under a fingerprint.
// paths are only kept in content mode; all of them hold the same bytes.
type record struct {
	paths []string
	id    int
}

// Index maps fingerprints to equivalence-group ids.
type Index struct {
	records map[string][]record
	owners  map[string]string // content-mode path -> fingerprint
	nextID  int
}

// New creates an empty Index. The first allocated id is 1.
func New() *Index {
	return &Index{records: make(map[string][]record), owners: make(map[string]string), nextID: 1}
}

// LookupOrRegister returns the id of the group fp/path belongs to.
//
// isNew reports that a fresh id was allocated. When register is false, files
// that match nothing already registered get (types.NoID, false).
func (x *Index) LookupOrRegister(fp, path string, mode types.Mode, register bool) (id int, isNew bool) {
	chain, seen := x.records[fp]
	if seen && mode != types.ModeContent {
		return chain[0].id, false
	}

	for i := range chain {
		r := &chain[i]
		if SameContent(path, r.paths[0]) {
			if !slices.Contains(r.paths, path) {
				r.paths = append(r.paths, path)
				x.owners[path] = fp
			}
			return r.id, false
		}
	}

	if !register {
		return types.NoID, false
	}

	r := record{id: x.allocID()}
	if mode == types.ModeContent {
		r.paths = []string{path}
		x.owners[path] = fp
	}
	x.records[fp] = append(chain, r)
	return r.id, true
}

// Forget drops path from the records, for a file that was rewritten or
// removed. A record left without paths is dropped with it.
func (x *Index) Forget(path string) {
	fp, ok := x.owners[path]
	if !ok {
		return
	}
	delete(x.owners, path)

	chain := x.records[fp]
	kept := chain[:0]
	for _, r := range chain {
		r.paths = slices.DeleteFunc(r.paths, func(p string) bool { return p == path })
		if len(r.paths) > 0 {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		delete(x.records, fp)
		return
	}
	x.records[fp] = kept
}

// Len returns the number of distinct fingerprints registered.
func (x *Index) Len() int { return len(x.records) }

// Groups returns the number of ids allocated so far.
func (x *Index) Groups() int { return x.nextID - 1 }

// Reset drops every record. Ids keep increasing after a Reset.
func (x *Index) Reset() {
	x.records = make(map[string][]record)
	x.owners = make(map[string]string)
}

func (x *Index) allocID() int {
	id := x.nextID
	x.nextID++
	return id
}

// SameContent reports whether the files at a and b hold identical bytes.
//
// Any I/O error makes the files count as different: a missed duplicate is
// preferable to merging files that might differ.
func SameContent(a, b string) bool {
	fa, err := os.Open(a)
	if err != nil {
		return false
	}
	defer func() { _ = fa.Close() }()

	fb, err := os.Open(b)
	if err != nil {
		return false
	}
	defer func() { _ = fb.Close() }()

	ia, err := fa.Stat()
	if err != nil {
		return false
	}
	ib, err := fb.Stat()
	if err != nil {
		return false
	}
	if ia.Size() != ib.Size() {
		return false
	}

	bufA := make([]byte, blockSize)
	bufB := make([]byte, blockSize)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)

		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false
		}

		doneA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		doneB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if doneA || doneB {
			return doneA && doneB
		}
		if errA != nil || errB != nil {
			return false
		}
	}
}
