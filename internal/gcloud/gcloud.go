// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package gcloud is a thin, synchronous facade over the externally
// authenticated gcloud CLI. Each operation maps to exactly one subprocess
// invocation with its own hard deadline and fails closed: a missing
// executable, a timeout or a non-zero exit becomes a typed error, never a
// crash. The package holds no state and makes no policy decisions; it only
// translates tool outcomes into typed results.
package gcloud

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Default deadlines for the different call shapes. Interactive login gets
// a long window because it waits on a browser round trip.
const (
	DefaultTimeout      = 10 * time.Second
	ListProjectsTimeout = 30 * time.Second
	LoginTimeout        = 300 * time.Second
)

// Runner executes one external command and returns its output streams.
// The production implementation shells out; tests substitute a script.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// execRunner is the os/exec-backed Runner.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// Project is one row of `gcloud projects list`.
type Project struct {
	ID    string
	Name  string
	State string
}

// Client wraps the gcloud binary.
type Client struct {
	bin     string
	runner  Runner
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBinary overrides the gcloud executable path.
func WithBinary(bin string) Option {
	return func(c *Client) { c.bin = bin }
}

// WithRunner substitutes the subprocess runner (used by tests).
func WithRunner(r Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithTimeout overrides the per-call deadline for short queries.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient returns a Client with the default binary and timeouts.
func NewClient(opts ...Option) *Client {
	c := &Client{
		bin:     "gcloud",
		runner:  execRunner{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run invokes gcloud once with the given deadline and classifies the
// outcome. Success means exit code 0; stdout comes back trimmed.
func (c *Client) run(timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stdout, stderr, err := c.runner.Run(ctx, c.bin, args...)
	if err == nil {
		return strings.TrimSpace(stdout), nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return "", ErrTimeout
	}
	if errors.Is(err, exec.ErrNotFound) {
		return "", ErrUnavailable
	}
	stderr = strings.TrimSpace(stderr)
	if strings.Contains(stderr, "Reauthentication required") || strings.Contains(stderr, "Reauthentication failed") {
		return "", ErrReauthRequired
	}
	return "", &CommandError{Args: args, Stderr: stderr, Err: err}
}

// IsAvailable reports whether the gcloud CLI can be executed at all.
func (c *Client) IsAvailable() bool {
	_, err := c.run(c.timeout, "--version")
	return err == nil
}

// IsAuthenticated reports whether gcloud has an active account.
func (c *Client) IsAuthenticated() bool {
	out, err := c.run(c.timeout, "auth", "list", "--filter=status:ACTIVE", "--format=value(account)")
	return err == nil && out != ""
}

// ActiveAccount returns the e-mail of the active gcloud account, or ""
// when none is configured.
func (c *Client) ActiveAccount() (string, error) {
	return c.run(c.timeout, "config", "get-value", "account")
}

// CurrentProject returns the configured default project, or "" when unset.
// gcloud prints "(unset)" on some versions; that is normalized to "".
func (c *Client) CurrentProject() (string, error) {
	out, err := c.run(c.timeout, "config", "get-value", "project")
	if err != nil {
		return "", err
	}
	if out == "(unset)" {
		return "", nil
	}
	return out, nil
}

// SetProject makes the given project gcloud's default.
func (c *Client) SetProject(id string) error {
	_, err := c.run(c.timeout, "config", "set", "project", id)
	return err
}

// AccessToken mints an access token for the active account. The token is
// opaque; freshness is not verified beyond the call succeeding.
func (c *Client) AccessToken() (string, error) {
	out, err := c.run(c.timeout, "auth", "print-access-token")
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", &CommandError{Args: []string{"auth", "print-access-token"}, Stderr: "empty token"}
	}
	return out, nil
}

// ListActiveProjects enumerates the projects visible to the active
// account, filtered to ACTIVE lifecycle state, in the order gcloud
// reports them. The value() format yields one tab-separated row per
// project, which avoids parsing the human-readable table layout.
func (c *Client) ListActiveProjects() ([]Project, error) {
	out, err := c.run(ListProjectsTimeout, "projects", "list", "--format=value(projectId,name,lifecycleState)")
	if err != nil {
		return nil, err
	}
	var projects []Project
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		p := Project{ID: strings.TrimSpace(fields[0])}
		if len(fields) > 1 {
			p.Name = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			p.State = strings.TrimSpace(fields[2])
		}
		if p.ID == "" || p.State != "ACTIVE" {
			continue
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// Login starts gcloud's interactive authentication flow and waits for it
// to finish. The flow opens a browser on the user's side; this call only
// blocks until gcloud exits or the timeout expires. A zero timeout uses
// the default login window.
func (c *Client) Login(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = LoginTimeout
	}
	_, err := c.run(timeout, "auth", "login", "--no-launch-browser")
	return err
}
