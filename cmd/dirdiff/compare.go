package main

import (
	"fmt"
	"os"

	"github.com/ivoronin/dirdiff/internal/cache"
	"github.com/ivoronin/dirdiff/internal/compare"
	"github.com/ivoronin/dirdiff/internal/config"
	"github.com/ivoronin/dirdiff/internal/progress"
	"github.com/ivoronin/dirdiff/internal/render"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// compareOptions holds CLI flags for the compare command.
type compareOptions struct {
	listing     listingOptions
	show        string
	groupByPath bool
	format      string
}

// newCompareCmd creates the compare subcommand.
func newCompareCmd(configPath *string) *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare LEFT [RIGHT]",
		Short: "List duplicate, unique or all files of one or two trees",
		Long: `With one directory, lists its files grouped by equivalence.
With two directories, prints them side by side with matching files on the same row
and placeholders where a file has no counterpart.

--show dups keeps files that have an equivalent elsewhere, --show unique keeps those
that don't. --group-by-path also lines up files that share a relative path, so
edited files appear next to their previous version.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, args, *configPath, opts)
		},
	}

	bindListingFlags(cmd.Flags(), &opts.listing)
	cmd.Flags().StringVarP(&opts.show, "show", "s", "all", "Files to show: all, unique or dups")
	cmd.Flags().BoolVar(&opts.groupByPath, "group-by-path", false, "Align files with equal relative paths")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")

	return cmd
}

// runCompare executes the comparison pipeline: scan → fingerprint → classify → align → render.
func runCompare(cmd *cobra.Command, args []string, configPath string, opts *compareOptions) error {
	flags := cmd.Flags()
	cfg, err := loadConfig(cmd, configPath, &opts.listing, func(cfg *config.Config) {
		if flags.Changed("show") {
			cfg.Compare.Show = opts.show
		}
		if flags.Changed("group-by-path") {
			cfg.Compare.GroupByPath = opts.groupByPath
		}
		if flags.Changed("format") {
			cfg.Output.Format = opts.format
		}
	})
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

	compareOpts := compare.Options{
		Left:        args[0],
		Mode:        cfg.Mode(),
		Show:        cfg.Show(),
		GroupByPath: cfg.Compare.GroupByPath,
		SkipEmpty:   cfg.Compare.SkipEmpty,
		Scan:        scanOptions(cfg),
		Cache:       hashCache,
	}
	if len(args) == 2 {
		compareOpts.Right = args[1]
	}

	bar := progress.New(cfg.Output.Progress, 100)
	res, err := compare.Run(cmd.Context(), compareOpts, bar, errs)
	if err != nil {
		return err
	}
	bar.Finish(summary(res))

	renderOpts := render.Options{}
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		renderOpts.Color = termenv.EnvColorProfile() != termenv.Ascii
		if width, _, err := term.GetSize(fd); err == nil {
			renderOpts.Width = width
		}
	}
	return render.Write(os.Stdout, res, cfg.Output.Format, renderOpts)
}
