// Package types provides shared types used across the dirdiff codebase.
package types

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"time"
)

// NoID marks an entry that is not part of any equivalence group.
const NoID = -1

// Mode selects what makes two files equivalent.
type Mode int

const (
	ModeName    Mode = iota // Same basename
	ModeSize                // Same byte size
	ModeContent             // Same bytes (prefix hash + exact comparison)
)

// String returns the mode name as used by the CLI and config file.
func (m Mode) String() string {
	switch m {
	case ModeName:
		return "name"
	case ModeSize:
		return "size"
	case ModeContent:
		return "content"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "name":
		return ModeName, nil
	case "size":
		return ModeSize, nil
	case "content":
		return ModeContent, nil
	}
	return 0, fmt.Errorf("unknown comparison mode %q (use name, size or content)", s)
}

// MarshalText implements encoding.TextMarshaler (used by YAML and JSON).
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Entry is one file discovered under a compared root, or a placeholder row.
//
// Entries are passed around by pointer. A list that hands its entries to an
// output (classifier, aligner) gives up ownership of them.
type Entry struct {
	Name    string    // Basename
	Origin  string    // Absolute containing directory
	Root    string    // Compared root the entry was found under
	Size    int64     // Byte size (refreshed when content is fingerprinted)
	ModTime time.Time // Used as cache key material
	Ino     uint64    // Used as cache key material
	ID      int       // Equivalence group, NoID when not grouped
	Tag     int       // Discovery order, sort tie-breaker
	Fake    bool      // Placeholder for an alignment gap
}

// NewFake creates a placeholder entry standing for "no file here".
func NewFake() *Entry {
	return &Entry{ID: NoID, Tag: -1, Fake: true}
}

// Path returns the full path of the entry.
func (e *Entry) Path() string {
	return filepath.Join(e.Origin, e.Name)
}

// RelPath returns the entry path relative to its root.
// Falls back to the full path if the entry has no root or lies outside it.
func (e *Entry) RelPath() string {
	if e.Root == "" {
		return e.Path()
	}
	rel, err := filepath.Rel(e.Root, e.Path())
	if err != nil {
		return e.Path()
	}
	return rel
}

// EntryList is an ordered sequence of entries.
type EntryList = []*Entry

// SortByID stable-sorts entries by (ID, Tag) ascending.
func SortByID(entries EntryList) {
	slices.SortStableFunc(entries, func(a, b *Entry) int {
		if c := cmp.Compare(a.ID, b.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag, b.Tag)
	})
}

// SortByTag restores discovery order.
func SortByTag(entries EntryList) {
	slices.SortStableFunc(entries, func(a, b *Entry) int {
		return cmp.Compare(a.Tag, b.Tag)
	})
}
