package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	ctypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Job is one command run in a fresh container.
type Job struct {
	// Step is recorded in the LabelStep label.
	Step string

	// Input is recorded in the LabelInput label.
	Input string

	// Cmd is the command and its arguments.
	Cmd []string

	// Binds are Docker bind specifications ("host:container[:ro]").
	Binds []string

	// Stdout, when set, receives the container's standard output while it
	// runs and Result.Stdout stays empty.
	Stdout io.Writer
}

// Result is the outcome of a Job whose container ran to completion.
type Result struct {
	ExitCode int64
	Stdout   []byte // nil when Job.Stdout was set
	Stderr   []byte
}

// Runner executes jobs. DockerRunner is the production implementation;
// tests substitute canned results.
type Runner interface {
	Run(ctx context.Context, job Job) (Result, error)
}

// DockerRunner runs each job in a new container of Image.
type DockerRunner struct {
	client *Client
	image  string
	pull   bool
	runID  string
	log    zerolog.Logger
	pulled bool
}

// NewDockerRunner creates a runner. With pull set, the image is pulled
// before the first job even when it is already present.
func NewDockerRunner(c *Client, img, runID string, pull bool, log zerolog.Logger) *DockerRunner {
	if img == "" {
		img = DefaultImage
	}
	return &DockerRunner{client: c, image: img, pull: pull, runID: runID, log: log}
}

// Run creates and starts the job's container, follows its output until it
// exits, then removes it. A non-zero exit code is returned in Result, not
// as an error.
func (r *DockerRunner) Run(ctx context.Context, job Job) (Result, error) {
	if err := r.ensureImage(ctx); err != nil {
		return Result{}, err
	}

	cfg := &ctypes.Config{
		Image: r.image,
		Cmd:   job.Cmd,
		User:  hostUser(),
		Labels: BuildLabels(JobLabels{
			RunID:     r.runID,
			Step:      job.Step,
			Input:     job.Input,
			CreatedAt: time.Now(),
		}),
	}
	hostCfg := &ctypes.HostConfig{Binds: job.Binds}
	name := "rasterbatch-" + job.Step + "-" + uuid.NewString()[:8]

	r.log.Debug().Str("container", name).Str("cmd", commandString(job.Cmd)).Msg("starting container")

	created, err := r.client.Inner().ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create container %s: %w", name, err)
	}
	defer func() {
		// Use a fresh context so a cancelled run still cleans up.
		rmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.client.Inner().ContainerRemove(rmCtx, created.ID, ctypes.RemoveOptions{Force: true}); err != nil {
			r.log.Warn().Err(err).Str("container", name).Msg("failed to remove container")
		}
	}()

	if err := r.client.Inner().ContainerStart(ctx, created.ID, ctypes.StartOptions{}); err != nil {
		return Result{}, fmt.Errorf("failed to start container %s: %w", name, err)
	}

	logs, err := r.client.Inner().ContainerLogs(ctx, created.ID, ctypes.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to read output of container %s: %w", name, err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	out := job.Stdout
	if out == nil {
		out = &stdout
	}
	if _, err := stdcopy.StdCopy(out, &stderr, logs); err != nil {
		return Result{}, fmt.Errorf("failed to demultiplex output of container %s: %w", name, err)
	}

	statusCh, errCh := r.client.Inner().ContainerWait(ctx, created.ID, ctypes.WaitConditionNotRunning)
	var res Result
	select {
	case err := <-errCh:
		return Result{}, fmt.Errorf("failed waiting for container %s: %w", name, err)
	case status := <-statusCh:
		if status.Error != nil {
			return Result{}, fmt.Errorf("container %s: %s", name, status.Error.Message)
		}
		res.ExitCode = status.StatusCode
	}
	if job.Stdout == nil {
		res.Stdout = stdout.Bytes()
	}
	res.Stderr = stderr.Bytes()

	r.log.Debug().Str("container", name).Int64("exit", res.ExitCode).Msg("container finished")
	return res, nil
}

// ensureImage pulls the image when it is missing, or once per runner when
// pull is set.
func (r *DockerRunner) ensureImage(ctx context.Context) error {
	if r.pulled {
		return nil
	}
	if !r.pull {
		_, err := r.client.Inner().ImageInspect(ctx, r.image)
		if err == nil {
			r.pulled = true
			return nil
		}
		if !cerrdefs.IsNotFound(err) {
			return fmt.Errorf("failed to inspect image %s: %w", r.image, err)
		}
	}

	r.log.Info().Str("image", r.image).Msg("pulling image")
	rc, err := r.client.Inner().ImagePull(ctx, r.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", r.image, err)
	}
	defer rc.Close()
	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", r.image, err)
	}
	r.pulled = true
	return nil
}

// hostUser returns "uid:gid" of the current process so files written
// through bind mounts belong to the invoking user. Empty on Windows.
func hostUser() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	return fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
}
