//go:build e2e

package testfs

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// Container is a started Docker container that commands can be executed in.
type Container struct {
	client      *client.Client
	containerID string
}

// ExecRequest describes one command run inside the container.
type ExecRequest struct {
	Cmd   []string // Argument vector
	Env   []string // Extra KEY=VALUE variables
	Stdin []byte   // Written to stdin and then closed (nil = no stdin)
}

// StartContainer pulls the image if needed, then creates and starts a container.
//
// The caller is responsible for calling Close() when done.
func StartContainer(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig) (*Container, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	id, err := createAndStart(ctx, cli, cfg, hostCfg)
	if err != nil {
		_ = cli.Close()
		return nil, err
	}
	return &Container{client: cli, containerID: id}, nil
}

func createAndStart(ctx context.Context, cli *client.Client, cfg *container.Config, hostCfg *container.HostConfig) (string, error) {
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		return "", fmt.Errorf("pull image: %w", err)
	}
	_, _ = io.Copy(io.Discard, reader)
	_ = reader.Close()

	resp, err := cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}
	return resp.ID, nil
}

// Exec runs a command inside the container and collects its output.
func (c *Container) Exec(ctx context.Context, req ExecRequest) (*RunResult, error) {
	execResp, err := c.client.ContainerExecCreate(ctx, c.containerID, container.ExecOptions{
		Cmd:          req.Cmd,
		Env:          req.Env,
		AttachStdin:  req.Stdin != nil,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("exec create: %w", err)
	}

	hijack, err := c.client.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("exec attach: %w", err)
	}
	defer hijack.Close()

	if req.Stdin != nil {
		if _, err := hijack.Conn.Write(req.Stdin); err != nil {
			return nil, fmt.Errorf("write stdin: %w", err)
		}
		if err := hijack.CloseWrite(); err != nil {
			return nil, fmt.Errorf("close stdin: %w", err)
		}
	}

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, hijack.Reader); err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	inspect, err := c.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("exec inspect: %w", err)
	}

	return &RunResult{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// Close stops the container and releases the client.
// The container is removed by Docker when AutoRemove was set.
func (c *Container) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	defer func() { _ = c.client.Close() }()
	return c.client.ContainerStop(ctx, c.containerID, container.StopOptions{})
}
