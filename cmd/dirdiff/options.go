package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/ivoronin/dirdiff/internal/compare"
	"github.com/ivoronin/dirdiff/internal/config"
	"github.com/ivoronin/dirdiff/internal/scanner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// listingOptions holds CLI flags shared by every command that scans trees.
// Flags left unset fall back to the config file.
type listingOptions struct {
	mode            string
	skipEmpty       bool
	includeDotFiles bool
	excludes        []string
	minSizeStr      string
	cacheFile       string
	noProgress      bool
}

func bindListingFlags(flags *pflag.FlagSet, opts *listingOptions) {
	flags.StringVarP(&opts.mode, "mode", "m", "content", "Equivalence: name, size or content")
	flags.BoolVar(&opts.skipEmpty, "skip-empty", false, "Ignore zero-byte files")
	flags.BoolVar(&opts.includeDotFiles, "include-dot-files", false, "Include files and directories starting with a dot")
	flags.StringSliceVarP(&opts.excludes, "exclude", "e", nil, "Glob patterns to exclude")
	flags.StringVar(&opts.minSizeStr, "min-size", "0", "Minimum file size (e.g., 100, 1K, 10M, 1G)")
	flags.StringVar(&opts.cacheFile, "cache-file", "", "Path to hash cache file (enables caching)")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
}

// apply overrides cfg with the flags set on the command line.
func (o *listingOptions) apply(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("mode") {
		cfg.Compare.Mode = o.mode
	}
	if flags.Changed("skip-empty") {
		cfg.Compare.SkipEmpty = o.skipEmpty
	}
	if flags.Changed("include-dot-files") {
		cfg.Scan.IncludeDotFiles = o.includeDotFiles
	}
	if flags.Changed("exclude") {
		if err := validateGlobPatterns(o.excludes); err != nil {
			return fmt.Errorf("invalid --exclude: %w", err)
		}
		cfg.Scan.Exclude = o.excludes
	}
	if flags.Changed("min-size") {
		if _, err := parseSize(o.minSizeStr); err != nil {
			return fmt.Errorf("invalid --min-size: %w", err)
		}
		cfg.Scan.MinSize = o.minSizeStr
	}
	if flags.Changed("cache-file") {
		cfg.Cache.File = o.cacheFile
	}
	if o.noProgress {
		cfg.Output.Progress = false
	}
	return nil
}

// loadConfig reads the config file and layers the command's flags on top.
func loadConfig(cmd *cobra.Command, configPath string, opts *listingOptions, extra func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := opts.apply(cmd.Flags(), cfg); err != nil {
		return nil, err
	}
	if extra != nil {
		extra(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseSize parses a human-readable size string into bytes.
// Supports formats: "100", "1K", "1MB", "1GiB", etc.
func parseSize(s string) (int64, error) {
	bytes, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(bytes), nil
}

// validateGlobPatterns checks that all patterns are valid filepath.Match patterns.
func validateGlobPatterns(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func scanOptions(cfg *config.Config) scanner.Options {
	return scanner.Options{
		IncludeDotFiles: cfg.Scan.IncludeDotFiles,
		Excludes:        cfg.Scan.Exclude,
		MinSize:         cfg.MinSize(),
	}
}

// drainErrors consumes errors from a channel and writes them to stderr.
// Clears progress bar line before printing to avoid visual collision.
func drainErrors(errs <-chan error, done chan<- struct{}) {
	for err := range errs {
		fmt.Fprintf(os.Stderr, "\r\033[Kerror: %v\n", err)
	}
	close(done)
}

// startErrorDrain returns an error channel and a function that closes it
// and waits until every queued error has been printed.
func startErrorDrain() (chan error, func()) {
	errs := make(chan error, 100)
	done := make(chan struct{})
	go drainErrors(errs, done)
	return errs, func() {
		close(errs)
		<-done
	}
}

// message is a fixed progress bar completion text.
type message string

func (m message) String() string { return string(m) }

// summary describes a finished comparison for the progress bar.
func summary(res *compare.Result) message {
	s := fmt.Sprintf("Compared %d files", res.Files)
	if res.Skipped > 0 {
		s += fmt.Sprintf(", %d skipped", res.Skipped)
	}
	return message(s)
}
