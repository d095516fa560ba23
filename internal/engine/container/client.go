package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/rasterbatch/internal/model"
)

// pingTimeout bounds the connectivity check in Connect. Docker Desktop on
// macOS can be slow to answer the first request.
const pingTimeout = 5 * time.Second

// windowsPipe is the Docker Desktop named pipe on Windows.
const windowsPipe = "npipe:////./pipe/docker_engine"

// Client is a Docker SDK client known to reach a running daemon.
type Client struct {
	inner *client.Client
	host  string
}

// Connect resolves the daemon address, creates an SDK client for it and
// pings the daemon. Every failure is an ExitEngineUnavailable error; the
// client is closed again when the ping fails.
//
// The address is DOCKER_HOST when set, otherwise the first platform
// socket that exists:
//   - Linux: /var/run/docker.sock
//   - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//   - Windows: the docker_engine named pipe
func Connect(ctx context.Context) (*Client, error) {
	home, _ := os.UserHomeDir()
	host, err := resolveHost(runtime.GOOS, os.Getenv("DOCKER_HOST"), home, fileExists)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitEngineUnavailable, "Docker socket not found", err)
	}

	inner, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitEngineUnavailable,
			fmt.Sprintf("failed to create Docker client for %s", host), err)
	}
	c := &Client{inner: inner, host: host}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := inner.Ping(pingCtx); err != nil {
		c.Close()
		return nil, model.WrapCLIError(model.ExitEngineUnavailable,
			fmt.Sprintf("Docker daemon at %s is not responding; is Docker running?", host), err)
	}
	return c, nil
}

// resolveHost picks the daemon address for goos. An explicit dockerHost
// wins; otherwise the first candidate socket for which exists returns true.
func resolveHost(goos, dockerHost, home string, exists func(string) bool) (string, error) {
	if dockerHost != "" {
		return dockerHost, nil
	}

	var sockets []string
	switch goos {
	case "windows":
		// Named pipes cannot be stat'ed; the ping tells whether it answers.
		return windowsPipe, nil
	case "linux":
		sockets = []string{"/var/run/docker.sock"}
	case "darwin":
		sockets = []string{"/var/run/docker.sock"}
		if home != "" {
			sockets = append(sockets, filepath.Join(home, ".docker", "run", "docker.sock"))
		}
	default:
		return "", fmt.Errorf("no default Docker socket on %s; set DOCKER_HOST", goos)
	}

	for _, s := range sockets {
		if exists(s) {
			return "unix://" + s, nil
		}
	}
	return "", fmt.Errorf("none of %v exists; is Docker running?", sockets)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Host returns the daemon address the client is connected to.
func (c *Client) Host() string {
	return c.host
}

// Inner returns the underlying Docker SDK client.
func (c *Client) Inner() *client.Client {
	return c.inner
}

// Close releases the SDK client. It is safe to call more than once.
func (c *Client) Close() error {
	if c.inner == nil {
		return nil
	}
	err := c.inner.Close()
	c.inner = nil
	return err
}
