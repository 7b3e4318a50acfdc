//go:build linux

// testfs-helper creates and inspects test trees inside E2E containers.
//
//	testfs-helper sow            - create trees from a FileTree JSON on stdin
//	testfs-helper reap ROOT...   - print the state of trees as JSON on stdout
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ivoronin/dirdiff/internal/testfs"
)

const usage = "usage: testfs-helper sow | testfs-helper reap ROOT [ROOT...]"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "testfs-helper: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "sow":
		// Trees are real tmpfs mounts, so the root is "/"
		return testfs.SowFromReader(os.Stdin, "/")
	case "reap":
		if len(args) < 2 {
			return errors.New(usage)
		}
		return testfs.ReapToWriter(os.Stdout, args[1:])
	default:
		return fmt.Errorf("unknown command %q; %s", args[0], usage)
	}
}
