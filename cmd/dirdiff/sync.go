package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivoronin/dirdiff/internal/cache"
	"github.com/ivoronin/dirdiff/internal/compare"
	"github.com/ivoronin/dirdiff/internal/fileops"
	"github.com/ivoronin/dirdiff/internal/progress"
	"github.com/ivoronin/dirdiff/internal/resolver"
	"github.com/spf13/cobra"
)

// syncOptions holds CLI flags for the sync command.
type syncOptions struct {
	listing   listingOptions
	direction string
	dryRun    bool
	verbose   bool
}

// newSyncCmd creates the sync subcommand.
func newSyncCmd(configPath *string) *cobra.Command {
	opts := &syncOptions{direction: resolver.LeftToRight.String()}

	cmd := &cobra.Command{
		Use:   "sync LEFT RIGHT",
		Short: "Make one tree match the other",
		Long: `Compares both trees with files aligned by relative path, then resolves every
mismatched row in the chosen direction:

  file on source side only   copied to the same relative path on the other side
  file on target side only   deleted
  both present but differ    target content replaced

With --direction left-to-right (default) RIGHT is changed to match LEFT.
Use --dry-run to preview without making changes.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args, *configPath, opts)
		},
	}

	bindListingFlags(cmd.Flags(), &opts.listing)
	cmd.Flags().StringVar(&opts.direction, "direction", opts.direction, "left-to-right or right-to-left")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Preview changes without executing")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show individual file operations")

	return cmd
}

// runSync executes the sync pipeline: compare (all, grouped by path) → resolve.
func runSync(cmd *cobra.Command, args []string, configPath string, opts *syncOptions) error {
	dir, err := resolver.ParseDirection(opts.direction)
	if err != nil {
		return fmt.Errorf("invalid --direction: %w", err)
	}

	cfg, err := loadConfig(cmd, configPath, &opts.listing, nil)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	errs, wait := startErrorDrain()
	defer wait()

	hashCache, err := cache.Open(cfg.Cache.File)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() { _ = hashCache.Close() }()

	ctx := cmd.Context()

	// Phase 1: Compare with every file shown and paths lined up
	bar := progress.New(cfg.Output.Progress, 100)
	c := compare.New(compare.Options{
		Left:        args[0],
		Right:       args[1],
		Mode:        cfg.Mode(),
		Show:        compare.ShowAll,
		GroupByPath: true,
		SkipEmpty:   cfg.Compare.SkipEmpty,
		Scan:        scanOptions(cfg),
		Cache:       hashCache,
	}, bar, errs)
	defer c.Close()

	res, err := c.Run(ctx)
	if err != nil {
		return err
	}
	bar.Finish(summary(res))

	// Phase 2: Resolve mismatched rows (the shared index assigns new ids)
	bar = progress.New(cfg.Output.Progress, 100)
	r := resolver.New(resolver.Options{
		Mode:      cfg.Mode(),
		LeftRoot:  res.LeftRoot,
		RightRoot: res.RightRoot,
		DryRun:    opts.dryRun,
		Verbose:   opts.verbose,
	}, fileops.Local{}, c.Calculator(), c.Index(), bar, errs)

	st, err := r.Sync(ctx, res.Left, res.Right, dir)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", compare.ErrCancelled, err)
		}
		return err
	}
	bar.Finish(&st)

	if st.Failed > 0 {
		return fmt.Errorf("%d of %d rows could not be resolved", st.Failed, st.Rows)
	}
	return nil
}
