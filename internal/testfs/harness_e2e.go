//go:build e2e

package testfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/docker/docker/api/types/container"
)

const (
	// baseImage is the Docker image used for E2E tests.
	baseImage = "alpine:3.21"

	// Binary names and paths inside container.
	binaryName       = "dirdiff"
	helperBinaryName = "testfs-helper"
	binaryPath       = "/usr/local/bin/" + binaryName
	helperBinaryPath = "/usr/local/bin/" + helperBinaryName

	// binDirEnv names the host directory holding the pre-built binaries.
	binDirEnv = "DIRDIFF_E2E_BINDIR"
)

// Harness runs the dirdiff binary against trees in a Docker container.
// Every tree is a separate tmpfs mount.
//
// Usage:
//
//	h := testfs.New(t, given)
//	h.RunDirdiff("sync", "--no-progress", "/left", "/right")
//	h.Assert(then)
type Harness struct {
	t          *testing.T
	ctx        context.Context
	given      FileTree
	container  *Container
	lastResult *RunResult
}

// New starts a container with one tmpfs per tree and creates the trees in it.
//
// Requires DIRDIFF_E2E_BINDIR (set by 'make test-e2e'). The container is
// stopped via t.Cleanup().
func New(t *testing.T, given FileTree) *Harness {
	t.Helper()

	h := &Harness{
		t:     t,
		ctx:   context.Background(),
		given: given,
	}

	cfg, hostCfg, err := h.containerConfig()
	if err != nil {
		t.Fatalf("failed to build container config: %v", err)
	}

	c, err := StartContainer(h.ctx, cfg, hostCfg)
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	h.container = c
	t.Cleanup(h.Cleanup)

	if err := h.sow(); err != nil {
		t.Fatalf("failed to setup files: %v", err)
	}

	return h
}

// Path returns treeRoot unchanged: inside the container trees live at their logical roots.
func (h *Harness) Path(treeRoot string) string {
	return treeRoot
}

// RunDirdiff executes dirdiff inside the container.
// The result is stored for the exit code check in Assert.
func (h *Harness) RunDirdiff(args ...string) *RunResult {
	h.t.Helper()

	res, err := h.container.Exec(h.ctx, ExecRequest{
		Cmd: append([]string{binaryPath}, args...),
		Env: []string{"HOME=/root"},
	})
	if err != nil {
		h.t.Fatalf("failed to run dirdiff: %v", err)
	}
	h.lastResult = res
	return res
}

// Assert verifies the exit code of the last run and every tree of expected.
func (h *Harness) Assert(expected FileTree) {
	h.t.Helper()

	if h.lastResult != nil && h.lastResult.ExitCode != expected.ExitCode {
		h.t.Errorf("exit code: got %d, want %d\nstdout: %s\nstderr: %s",
			h.lastResult.ExitCode, expected.ExitCode,
			h.lastResult.Stdout, h.lastResult.Stderr)
	}

	for _, tree := range expected.Trees {
		actual, err := h.reap(tree.Root)
		if err != nil {
			h.t.Fatalf("reap %s: %v", tree.Root, err)
		}
		AssertTree(h.t, tree, *actual)
	}
}

// Cleanup stops the container.
func (h *Harness) Cleanup() {
	if h.container != nil {
		_ = h.container.Close(h.ctx)
		h.container = nil
	}
}

func (h *Harness) containerConfig() (*container.Config, *container.HostConfig, error) {
	binDir := os.Getenv(binDirEnv)
	if binDir == "" {
		return nil, nil, fmt.Errorf("%s not set - run via 'make test-e2e'", binDirEnv)
	}

	tmpfs := make(map[string]string, len(h.given.Trees))
	for _, tree := range h.given.Trees {
		tmpfs[tree.Root] = "size=100m"
	}

	hostCfg := &container.HostConfig{
		Binds: []string{
			fmt.Sprintf("%s:%s:ro", filepath.Join(binDir, binaryName), binaryPath),
			fmt.Sprintf("%s:%s:ro", filepath.Join(binDir, helperBinaryName), helperBinaryPath),
		},
		Tmpfs:      tmpfs,
		AutoRemove: true,
	}
	cfg := &container.Config{
		Image: baseImage,
		Cmd:   []string{"sleep", "infinity"},
	}
	return cfg, hostCfg, nil
}

// sow creates the trees using testfs-helper.
func (h *Harness) sow() error {
	spec, err := json.Marshal(h.given)
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}

	res, err := h.container.Exec(h.ctx, ExecRequest{Cmd: []string{helperBinaryPath, "sow"}, Stdin: spec})
	if err != nil {
		return fmt.Errorf("run sow: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("sow failed (exit %d): %s%s", res.ExitCode, res.Stdout, res.Stderr)
	}
	return nil
}

// reap captures one tree using testfs-helper.
func (h *Harness) reap(treeRoot string) (*ReapTree, error) {
	res, err := h.container.Exec(h.ctx, ExecRequest{Cmd: []string{helperBinaryPath, "reap", treeRoot}})
	if err != nil {
		return nil, fmt.Errorf("run reap: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("reap failed (exit %d): %s%s", res.ExitCode, res.Stdout, res.Stderr)
	}

	var result ReapResult
	if err := json.Unmarshal([]byte(res.Stdout), &result); err != nil {
		return nil, fmt.Errorf("parse reap output: %w", err)
	}
	if len(result.Trees) == 0 {
		return nil, fmt.Errorf("reap returned no trees for %s", treeRoot)
	}
	return &result.Trees[0], nil
}
