//go:build unix

// Package resolver makes the two sides of an aligned row equivalent.
//
// # Overview
//
// The resolver works on rows produced by the aligner with path grouping
// enabled. Given a direction, one side of the row is the source and the
// other the destination:
//
//	source  dest    action
//	──────  ──────  ─────────────────────────────────────────────
//	real    real    same id: nothing; otherwise replace dest content
//	real    fake    copy source to <dest root>/<source relative path>
//	fake    real    delete dest, dest becomes a placeholder
//	fake    fake    nothing
//
// Both real sides of a row must share a relative path. The aligner may pair
// equal files found under different names; PairByPath (run by Sync) splits
// such rows into a copy row and a delete row, then joins one-sided rows that
// name the same path:
//
//	b.txt(X) │ a.txt(X)          b.txt(X) │ b.txt(Y)
//	       · │ b.txt(Y)    ──►          · │ a.txt(X)
//
// # Safety Mechanisms
//
//   - Exclusive advisory lock on an existing destination (skips if in use)
//   - Mtime verification skips destinations modified since the scan
//   - Atomic writes via the file primitives (temp file + rename)
//   - Dry-run mode for previewing changes
//
// Entries are only updated after the file operation succeeded: the
// destination is re-fingerprinted and looked up in the shared index, so it
// joins the group of the source (or a fresh one) without a new comparison.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ivoronin/dirdiff/internal/fingerprint"
	"github.com/ivoronin/dirdiff/internal/index"
	"github.com/ivoronin/dirdiff/internal/progress"
	"github.com/ivoronin/dirdiff/internal/scanner"
	"github.com/ivoronin/dirdiff/internal/types"
	"golang.org/x/sys/unix"
)

// ErrNotPaired is returned by Resolve for a row whose two files have
// different relative paths.
var ErrNotPaired = errors.New("row pairs files with different paths")

// FileOps performs the file operations a resolution needs.
type FileOps interface {
	Copy(source, target string) error
	Replace(source, target string) error
	Delete(target string) error
}

// Options configures a Resolver.
type Options struct {
	Mode      types.Mode // Mode the rows were compared with
	LeftRoot  string     // Destination root for copies into the left side
	RightRoot string     // Destination root for copies into the right side
	DryRun    bool       // Preview mode (don't modify files)
	Verbose   bool       // Print each action to stdout during Sync
}

// Resolver resolves mismatched rows against one comparison's index.
type Resolver struct {
	// Config (immutable, set by New)
	opts     Options
	ops      FileOps
	calc     *fingerprint.Calculator
	index    *index.Index
	reporter progress.Reporter
	errCh    chan error
}

// New creates a Resolver. The index must be the one the rows were built with.
// A nil reporter disables progress.
func New(opts Options, ops FileOps, calc *fingerprint.Calculator, idx *index.Index, reporter progress.Reporter, errCh chan error) *Resolver {
	if reporter == nil {
		reporter = progress.Nop
	}
	return &Resolver{
		opts:     opts,
		ops:      ops,
		calc:     calc,
		index:    idx,
		reporter: reporter,
		errCh:    errCh,
	}
}

// Stats tracks synchronization progress.
type Stats struct {
	Rows      int
	Resolved  int
	Unchanged int
	Failed    int
	Bytes     int64

	startTime time.Time
}

func (s *Stats) String() string {
	return fmt.Sprintf("Resolved %d/%d rows, %d unchanged, %d failed, copied %s in %.1fs",
		s.Resolved, s.Rows, s.Unchanged, s.Failed,
		humanize.IBytes(uint64(s.Bytes)),
		time.Since(s.startTime).Seconds())
}

// Sync resolves every row of an aligned pair of lists in direction dir.
// The rows are first re-paired with PairByPath; entries are updated in place.
//
// Failed rows are reported on the error channel and do not stop the run.
// The context is checked between rows.
func (r *Resolver) Sync(ctx context.Context, left, right types.EntryList, dir Direction) (Stats, error) {
	st := Stats{startTime: time.Now()}
	if len(left) != len(right) {
		return st, fmt.Errorf("rows are not aligned: %d left, %d right", len(left), len(right))
	}
	left, right = PairByPath(left, right)
	st.Rows = len(left)

	for i := range left {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		result, err := r.Resolve(left[i], right[i], dir)
		switch {
		case err != nil:
			st.Failed++
			r.sendError(err)
		case result.Action == ActionNone:
			st.Unchanged++
		default:
			st.Resolved++
			st.Bytes += result.Bytes
			if r.opts.Verbose {
				fmt.Fprintf(os.Stderr, "\r\033[K") // Clear progress line
				_, _ = fmt.Fprintln(os.Stdout, result)
			}
		}
		r.reporter.Report(st.String(), float64(i+1)/float64(len(left)))
	}

	return st, nil
}

// PairByPath re-pairs aligned rows so that both real sides of every row have
// the same relative path. Rows holding files with different paths are split
// into two one-sided rows; a left-only and a right-only row naming the same
// path are then joined at the position of the left-only row. Rows that are
// already paired keep their order. The inputs must have equal length.
func PairByPath(left, right types.EntryList) (types.EntryList, types.EntryList) {
	l := make(types.EntryList, 0, len(left))
	r := make(types.EntryList, 0, len(right))
	for i := range left {
		a, b := left[i], right[i]
		if !a.Fake && !b.Fake && !types.PathsEqual(a.RelPath(), b.RelPath()) {
			l = append(l, a, types.NewFake())
			r = append(r, types.NewFake(), b)
			continue
		}
		l = append(l, a)
		r = append(r, b)
	}

	leftOnly := make(map[string]int)
	for i := range l {
		if !l[i].Fake && r[i].Fake {
			leftOnly[types.FoldPath(l[i].RelPath())] = i
		}
	}

	joined := make([]bool, len(l))
	for i := range l {
		if !l[i].Fake || r[i].Fake {
			continue
		}
		key := types.FoldPath(r[i].RelPath())
		if j, ok := leftOnly[key]; ok {
			r[j] = r[i]
			joined[i] = true
			delete(leftOnly, key)
		}
	}

	outL, outR := l[:0], r[:0]
	for i := range l {
		if !joined[i] {
			outL = append(outL, l[i])
			outR = append(outR, r[i])
		}
	}
	return outL, outR
}

// Resolve makes the destination side of one row match its source side.
// Both real sides must have the same relative path (see PairByPath).
//
// On failure the entries are left unchanged and the returned Result has
// ActionSkipped and Err set to the returned error.
func (r *Resolver) Resolve(left, right *types.Entry, dir Direction) (*Result, error) {
	source, dest, destRoot := left, right, r.opts.RightRoot
	if dir == RightToLeft {
		source, dest, destRoot = right, left, r.opts.LeftRoot
	}

	switch {
	case source.Fake && dest.Fake:
		return &Result{Action: ActionNone}, nil
	case !source.Fake && !dest.Fake && !types.PathsEqual(source.RelPath(), dest.RelPath()):
		result := &Result{Source: source.Path(), Target: dest.Path(), Action: ActionSkipped, Err: ErrNotPaired}
		return result, fmt.Errorf("%s: %w", dest.Path(), ErrNotPaired)
	case !source.Fake && !dest.Fake && source.ID != types.NoID && source.ID == dest.ID:
		return &Result{Source: source.Path(), Target: dest.Path(), Action: ActionNone}, nil
	case source.Fake:
		return r.delete(dest)
	case dest.Fake:
		return r.copy(source, dest, filepath.Join(destRoot, source.RelPath()), destRoot)
	default:
		return r.replace(source, dest)
	}
}

func (r *Resolver) delete(dest *types.Entry) (*Result, error) {
	result := &Result{Target: dest.Path(), Action: ActionDeleted, DryRun: r.opts.DryRun}
	if err := r.apply(result, dest, func() error { return r.ops.Delete(result.Target) }); err != nil {
		return result, err
	}
	if !r.opts.DryRun {
		r.index.Forget(result.Target)
		*dest = *types.NewFake()
	}
	return result, nil
}

func (r *Resolver) copy(source, dest *types.Entry, target, destRoot string) (*Result, error) {
	result := &Result{Source: source.Path(), Target: target, Action: ActionCopied, DryRun: r.opts.DryRun, Bytes: source.Size}
	if err := r.apply(result, nil, func() error { return r.ops.Copy(result.Source, target) }); err != nil {
		return result, err
	}
	if r.opts.DryRun {
		return result, nil
	}

	dest.Name = filepath.Base(target)
	dest.Origin = filepath.Dir(target)
	dest.Root = destRoot
	dest.Tag = source.Tag
	dest.Fake = false
	r.refresh(dest)
	return result, nil
}

func (r *Resolver) replace(source, dest *types.Entry) (*Result, error) {
	result := &Result{Source: source.Path(), Target: dest.Path(), Action: ActionReplaced, DryRun: r.opts.DryRun, Bytes: source.Size}
	if err := r.apply(result, dest, func() error { return r.ops.Replace(result.Source, result.Target) }); err != nil {
		return result, err
	}
	if !r.opts.DryRun {
		r.refresh(dest)
	}
	return result, nil
}

// apply verifies the existing destination (if any) and runs op unless in dry-run mode.
// On failure it turns result into a skip.
func (r *Resolver) apply(result *Result, existing *types.Entry, op func() error) error {
	var err error
	if existing != nil {
		err = verifyUnchanged(existing)
	}
	if err == nil && !r.opts.DryRun {
		err = op()
	}
	if err != nil {
		result.Action = ActionSkipped
		result.Bytes = 0
		result.Err = err
		return fmt.Errorf("%s: %w", result.Target, err)
	}
	return nil
}

// verifyUnchanged checks that e is not in use and was not modified since it was scanned.
func verifyUnchanged(e *types.Entry) error {
	// Open target file to acquire advisory lock.
	// This prevents race conditions with other processes modifying the file.
	f, err := os.Open(e.Path())
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	// Try to acquire exclusive non-blocking lock.
	// If file is in use by another process, skip it rather than wait.
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return errors.New("file in use (locked by another process)")
	}

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !e.ModTime.IsZero() && !info.ModTime().Equal(e.ModTime) {
		return errors.New("file modified since scan")
	}
	return nil
}

// refresh re-reads the metadata of e and assigns it the id its new content belongs to.
// The index forgets e's path first: whatever group it stood for, the bytes are gone.
func (r *Resolver) refresh(e *types.Entry) {
	e.ID = types.NoID
	r.index.Forget(e.Path())

	if err := scanner.Stat(e); err != nil {
		r.sendError(err)
		return
	}

	fp := r.calc.Fingerprint(e, r.opts.Mode)
	if fp == "" {
		return
	}
	e.ID, _ = r.index.LookupOrRegister(fp, e.Path(), r.opts.Mode, true)
}

// sendError sends an error to the errors channel if it's not nil.
func (r *Resolver) sendError(err error) {
	if r.errCh != nil {
		r.errCh <- err
	}
}
