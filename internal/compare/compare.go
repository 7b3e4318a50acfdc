// Package compare runs a whole comparison of one or two directory trees.
//
// # Processing Pipeline
//
//	one root:
//	    Build(root) ──► SortByID ──► ALL:    SortByTag (discovery order)
//	                             ├─► DUPS:   DupsSingle
//	                             └─► UNIQUE: UniqueSingle ──► SortByTag
//
//	two roots (one shared index):
//	    Build(left, register) ──┐
//	    Build(right, register*) ┴─► SortByID ──► Unique / Dups / ALL
//	                                         ──► SortByTag (group-by-path only)
//	                                         ──► Align ──► Result.Left/Right
//
//	* register is false for DUPS: right-only files can't survive the view
//
// Path grouping aligns in discovery order, which is the sorted pre-order of
// relative paths on both sides, so every common path can line up.
//
// A Comparison owns its index. Cancellation or failure tears the index down;
// after a successful Run it stays available for resolving rows until Close.
package compare

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ivoronin/dirdiff/internal/align"
	"github.com/ivoronin/dirdiff/internal/builder"
	"github.com/ivoronin/dirdiff/internal/cache"
	"github.com/ivoronin/dirdiff/internal/classify"
	"github.com/ivoronin/dirdiff/internal/fingerprint"
	"github.com/ivoronin/dirdiff/internal/index"
	"github.com/ivoronin/dirdiff/internal/progress"
	"github.com/ivoronin/dirdiff/internal/scanner"
	"github.com/ivoronin/dirdiff/internal/types"
)

// ErrCancelled is returned when the context was cancelled mid-run.
var ErrCancelled = errors.New("comparison cancelled")

// Show selects which files a comparison keeps.
type Show int

const (
	ShowAll    Show = iota // Every file
	ShowUnique             // Files without an equivalent elsewhere
	ShowDups               // Files with an equivalent elsewhere
)

func (s Show) String() string {
	switch s {
	case ShowAll:
		return "all"
	case ShowUnique:
		return "unique"
	case ShowDups:
		return "dups"
	default:
		return fmt.Sprintf("show(%d)", int(s))
	}
}

// ParseShow parses a view name produced by Show.String.
func ParseShow(s string) (Show, error) {
	switch s {
	case "all":
		return ShowAll, nil
	case "unique":
		return ShowUnique, nil
	case "dups":
		return ShowDups, nil
	}
	return 0, fmt.Errorf("unknown view %q (use all, unique or dups)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Show) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Show) UnmarshalText(text []byte) error {
	parsed, err := ParseShow(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Options describes one comparison.
type Options struct {
	Left        string          // First root (required)
	Right       string          // Second root, "" for a single-tree comparison
	Mode        types.Mode      // Equivalence policy
	Show        Show            // View to produce
	GroupByPath bool            // Also align files with equal relative paths
	SkipEmpty   bool            // Ignore zero-byte files
	Scan        scanner.Options // Listing filters
	Cache       *cache.Cache    // Prefix hash cache (nil = disabled)
}

// Result holds the output of a comparison.
//
// Single is set for one root. Left and Right are set for two roots; they have
// equal length and placeholders fill the gaps.
type Result struct {
	Mode        types.Mode
	Show        Show
	GroupByPath bool
	LeftRoot    string
	RightRoot   string

	Single types.EntryList
	Left   types.EntryList
	Right  types.EntryList

	Files   int // Files considered on all sides
	Skipped int // Files dropped because they could not be read
}

// TwoSided reports whether the result holds aligned rows.
func (r *Result) TwoSided() bool { return r.RightRoot != "" }

// Empty reports whether there is nothing to display.
func (r *Result) Empty() bool { return len(r.Single) == 0 && len(r.Left) == 0 }

// Comparison runs one comparison and owns its identity index.
//
// The comparison is designed for single-use: create with New(), call Run() once.
type Comparison struct {
	// Config (immutable, set by New)
	opts     Options
	reporter progress.Reporter
	errCh    chan error

	// Runtime
	calc  *fingerprint.Calculator
	index *index.Index
}

// New creates a Comparison. A nil reporter disables progress.
func New(opts Options, reporter progress.Reporter, errCh chan error) *Comparison {
	if reporter == nil {
		reporter = progress.Nop
	}
	return &Comparison{
		opts:     opts,
		reporter: reporter,
		errCh:    errCh,
		calc:     fingerprint.New(opts.Cache, errCh),
		index:    index.New(),
	}
}

// Run is a convenience wrapper for a comparison whose rows are not resolved.
func Run(ctx context.Context, opts Options, reporter progress.Reporter, errCh chan error) (*Result, error) {
	c := New(opts, reporter, errCh)
	defer c.Close()
	return c.Run(ctx)
}

// Calculator returns the fingerprint calculator used by the comparison.
func (c *Comparison) Calculator() *fingerprint.Calculator { return c.calc }

// Index returns the identity index filled by Run.
func (c *Comparison) Index() *index.Index { return c.index }

// Close tears down the index.
func (c *Comparison) Close() { c.index.Reset() }

// Run builds, classifies and (for two roots) aligns the trees.
//
// On cancellation partial lists are discarded and an error wrapping
// ErrCancelled is returned.
func (c *Comparison) Run(ctx context.Context) (*Result, error) {
	res, err := c.run(ctx)
	if err != nil {
		c.index.Reset()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return nil, err
	}
	return res, nil
}

func (c *Comparison) run(ctx context.Context) (*Result, error) {
	res := &Result{
		Mode:        c.opts.Mode,
		Show:        c.opts.Show,
		GroupByPath: c.opts.GroupByPath,
	}
	var err error
	if res.LeftRoot, err = filepath.Abs(c.opts.Left); err != nil {
		return nil, err
	}
	if c.opts.Right != "" {
		if res.RightRoot, err = filepath.Abs(c.opts.Right); err != nil {
			return nil, err
		}
	}

	b := builder.New(builder.Options{
		Mode:      c.opts.Mode,
		SkipEmpty: c.opts.SkipEmpty,
		Scan:      c.opts.Scan,
	}, c.calc, c.index, c.reporter, c.errCh)

	build := func(root string, register bool) (types.EntryList, error) {
		list, err := b.Build(ctx, builder.FromRoot(root), register)
		st := b.Stats()
		res.Files += st.Scanned
		res.Skipped += st.Skipped
		if err != nil {
			return nil, err
		}
		types.SortByID(list)
		return list, nil
	}

	left, err := build(res.LeftRoot, true)
	if err != nil {
		return nil, err
	}

	if !res.TwoSided() {
		switch c.opts.Show {
		case ShowDups:
			res.Single = classify.DupsSingle(left)
		case ShowUnique:
			res.Single = classify.UniqueSingle(left)
			types.SortByTag(res.Single)
		default:
			types.SortByTag(left)
			res.Single = left
		}
		return res, nil
	}

	right, err := build(res.RightRoot, c.opts.Show != ShowDups)
	if err != nil {
		return nil, err
	}

	switch c.opts.Show {
	case ShowDups:
		left, right = classify.Dups(left, right)
	case ShowUnique:
		left, right = classify.Unique(left, right)
	}

	if c.opts.GroupByPath {
		types.SortByTag(left)
		types.SortByTag(right)
	}

	res.Left, res.Right, err = align.Align(left, right, c.opts.GroupByPath)
	if err != nil {
		return nil, err
	}
	return res, nil
}
