// Package builder turns a list of candidate files into an id-tagged entry list.
//
// # Processing Pipeline
//
//	Source (FromRoot or FromEntries)
//	    │
//	    ├──► scanner.Run (only for a root)
//	    │
//	    ├──► for each entry, in discovery order:
//	    │       ├──► ctx cancelled?     ──► stop, return partial list + ctx error
//	    │       ├──► Tag = position
//	    │       ├──► listed entry: scanner.Stat fills size/mtime/inode
//	    │       │                      ──► failure: drop (counted as skipped)
//	    │       ├──► empty && SkipEmpty ──► drop
//	    │       ├──► Fingerprint == ""  ──► drop (read failure, counted as skipped)
//	    │       └──► LookupOrRegister == NoID ──► drop (no match, register=false)
//	    │
//	    └──► Output: types.EntryList with ID and Tag set
//
// The builder does not sort: callers sort by (ID, Tag) before classifying.
package builder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ivoronin/dirdiff/internal/fingerprint"
	"github.com/ivoronin/dirdiff/internal/index"
	"github.com/ivoronin/dirdiff/internal/progress"
	"github.com/ivoronin/dirdiff/internal/scanner"
	"github.com/ivoronin/dirdiff/internal/types"
)

// Source is what a list is built from: a root to scan, or entries already
// listed by the caller.
type Source struct {
	root    string
	entries types.EntryList
	listed  bool
}

// FromRoot builds from the regular files found under root.
func FromRoot(root string) Source { return Source{root: root} }

// FromEntries builds from entries listed by the caller, in their order.
// Only Name, Origin and Root need to be set: the metadata is read from disk.
func FromEntries(entries types.EntryList) Source { return Source{entries: entries, listed: true} }

// ErrNoRoot is returned by Build for a root source without a path.
var ErrNoRoot = errors.New("no root directory given")

// Options controls list building.
type Options struct {
	Mode      types.Mode      // Equivalence policy
	SkipEmpty bool            // Drop zero-byte files before fingerprinting
	Scan      scanner.Options // Filters for root sources
}

// Stats summarizes what happened to the candidates of one Build.
type Stats struct {
	Scanned int   // Candidates considered
	Matched int   // Entries in the output
	Empty   int   // Dropped by SkipEmpty
	Skipped int   // Dropped because they could not be read
	Bytes   int64 // Total size of matched entries

	startTime time.Time
}

func (s *Stats) String() string {
	return fmt.Sprintf("Fingerprinted %d of %d files (%s), %d skipped in %.1fs",
		s.Matched, s.Scanned, humanize.IBytes(uint64(s.Bytes)), s.Skipped,
		time.Since(s.startTime).Seconds())
}

// Builder builds id-tagged lists against one shared Index.
//
// A Builder may be used for several Build calls (one per compared tree);
// every call shares the index, so ids are comparable across the results.
type Builder struct {
	// Config (immutable, set by New)
	opts     Options
	calc     *fingerprint.Calculator
	index    *index.Index
	reporter progress.Reporter
	errCh    chan error

	// Runtime (reset by Build)
	stats Stats
}

// New creates a Builder. A nil reporter disables progress.
func New(opts Options, calc *fingerprint.Calculator, idx *index.Index, reporter progress.Reporter, errCh chan error) *Builder {
	if reporter == nil {
		reporter = progress.Nop
	}
	return &Builder{
		opts:     opts,
		calc:     calc,
		index:    idx,
		reporter: reporter,
		errCh:    errCh,
	}
}

// Stats returns the statistics of the last Build.
func (b *Builder) Stats() Stats { return b.stats }

// Build fingerprints every candidate of src and assigns it an id.
//
// With register=false, entries whose fingerprint matches nothing already in
// the index are dropped instead of being given a fresh id.
//
// The context is checked between entries. On cancellation the entries
// processed so far are returned together with the context error; every
// returned entry is fully fingerprinted and indexed.
func (b *Builder) Build(ctx context.Context, src Source, register bool) (types.EntryList, error) {
	b.stats = Stats{startTime: time.Now()}

	candidates := src.entries
	if !src.listed {
		if src.root == "" {
			return nil, ErrNoRoot
		}
		var err error
		candidates, err = scanner.New(src.root, b.opts.Scan, b.reporter, b.errCh).Run(ctx)
		if err != nil {
			return nil, err
		}
	}

	result := make(types.EntryList, 0, len(candidates))
	lastPercent := -1
	for i, e := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if percent := (i + 1) * 100 / len(candidates); percent != lastPercent {
			lastPercent = percent
			b.reporter.Report(b.stats.String(), float64(i+1)/float64(len(candidates)))
		}

		b.stats.Scanned++
		e.Tag = i
		e.ID = types.NoID

		if src.listed {
			if err := scanner.Stat(e); err != nil {
				b.stats.Skipped++
				b.sendError(err)
				continue
			}
		}

		if b.opts.SkipEmpty && e.Size == 0 {
			b.stats.Empty++
			continue
		}

		fp := b.calc.Fingerprint(e, b.opts.Mode)
		if fp == "" {
			b.stats.Skipped++
			continue
		}

		id, _ := b.index.LookupOrRegister(fp, e.Path(), b.opts.Mode, register)
		if id == types.NoID {
			continue
		}
		e.ID = id
		result = append(result, e)
		b.stats.Matched++
		b.stats.Bytes += e.Size
	}

	return result, nil
}

// sendError sends an error to the errors channel if it's not nil.
func (b *Builder) sendError(err error) {
	if b.errCh != nil {
		b.errCh <- err
	}
}
