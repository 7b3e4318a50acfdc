package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivoronin/dirdiff/internal/compare"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// Exit codes.
const (
	exitOK        = 0
	exitError     = 1
	exitCancelled = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var configPath string
	root := &cobra.Command{
		Use:     "dirdiff",
		Short:   "Compare directory trees and reconcile their differences",
		Version: version + " (" + commit + ")",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.config/dirdiff/config.yaml)")

	root.AddCommand(newCompareCmd(&configPath))
	root.AddCommand(newSyncCmd(&configPath))

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, compare.ErrCancelled) {
			return exitCancelled
		}
		return exitError
	}
	return exitOK
}
