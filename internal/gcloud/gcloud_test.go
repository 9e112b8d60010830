// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package gcloud

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"
)

type fakeResponse struct {
	stdout string
	stderr string
	err    error
}

// fakeRunner answers canned responses keyed by the joined argument list.
type fakeRunner struct {
	responses map[string]fakeResponse
	calls     []string
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) (string, string, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	r, ok := f.responses[key]
	if !ok {
		return "", "", fmt.Errorf("unexpected command: %s", key)
	}
	return r.stdout, r.stderr, r.err
}

// slowRunner blocks until the context deadline fires.
type slowRunner struct{}

func (slowRunner) Run(ctx context.Context, _ string, _ ...string) (string, string, error) {
	<-ctx.Done()
	return "", "", ctx.Err()
}

// notFoundRunner simulates a missing executable.
type notFoundRunner struct{}

func (notFoundRunner) Run(_ context.Context, _ string, _ ...string) (string, string, error) {
	return "", "", exec.ErrNotFound
}

func TestRun_ClassifiesTimeout(t *testing.T) {
	c := NewClient(WithRunner(slowRunner{}), WithTimeout(10*time.Millisecond))
	_, err := c.ActiveAccount()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestRun_ClassifiesUnavailable(t *testing.T) {
	c := NewClient(WithRunner(notFoundRunner{}))
	if c.IsAvailable() {
		t.Fatal("client with missing binary should not be available")
	}
	_, err := c.AccessToken()
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRun_ClassifiesReauthRequired(t *testing.T) {
	fr := &fakeRunner{responses: map[string]fakeResponse{
		"auth print-access-token": {stderr: "ERROR: Reauthentication required.", err: errors.New("exit status 1")},
	}}
	c := NewClient(WithRunner(fr))
	_, err := c.AccessToken()
	if !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}
}

func TestRun_WrapsOtherFailures(t *testing.T) {
	fr := &fakeRunner{responses: map[string]fakeResponse{
		"config get-value project": {stderr: "ERROR: quota exceeded", err: errors.New("exit status 1")},
	}}
	c := NewClient(WithRunner(fr))
	_, err := c.CurrentProject()
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if !strings.Contains(cmdErr.Stderr, "quota exceeded") {
		t.Fatalf("stderr not carried: %q", cmdErr.Stderr)
	}
}

func TestIsAuthenticated(t *testing.T) {
	fr := &fakeRunner{responses: map[string]fakeResponse{
		"auth list --filter=status:ACTIVE --format=value(account)": {stdout: "dev@example.com\n"},
	}}
	c := NewClient(WithRunner(fr))
	if !c.IsAuthenticated() {
		t.Fatal("expected authenticated")
	}

	fr.responses["auth list --filter=status:ACTIVE --format=value(account)"] = fakeResponse{stdout: ""}
	if c.IsAuthenticated() {
		t.Fatal("empty account list should report unauthenticated")
	}
}

func TestCurrentProject_NormalizesUnset(t *testing.T) {
	fr := &fakeRunner{responses: map[string]fakeResponse{
		"config get-value project": {stdout: "(unset)\n"},
	}}
	c := NewClient(WithRunner(fr))
	got, err := c.CurrentProject()
	if err != nil {
		t.Fatalf("CurrentProject failed: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty project, got %q", got)
	}
}

func TestAccessToken_RejectsEmptyOutput(t *testing.T) {
	fr := &fakeRunner{responses: map[string]fakeResponse{
		"auth print-access-token": {stdout: "\n"},
	}}
	c := NewClient(WithRunner(fr))
	_, err := c.AccessToken()
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError for empty token, got %v", err)
	}
}

func TestListActiveProjects_ParsesAndFilters(t *testing.T) {
	out := strings.Join([]string{
		"alpha\tAlpha Project\tACTIVE",
		"beta\t\tACTIVE",
		"gone\tGone\tDELETE_REQUESTED",
		"",
		"gamma\tGamma\tACTIVE",
	}, "\n")
	fr := &fakeRunner{responses: map[string]fakeResponse{
		"projects list --format=value(projectId,name,lifecycleState)": {stdout: out},
	}}
	c := NewClient(WithRunner(fr))
	projects, err := c.ListActiveProjects()
	if err != nil {
		t.Fatalf("ListActiveProjects failed: %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("expected 3 active projects, got %d: %+v", len(projects), projects)
	}
	if projects[0].ID != "alpha" || projects[0].Name != "Alpha Project" {
		t.Fatalf("unexpected first project: %+v", projects[0])
	}
	if projects[1].ID != "beta" || projects[1].Name != "beta" {
		t.Fatalf("name should default to id: %+v", projects[1])
	}
	if projects[2].ID != "gamma" {
		t.Fatalf("unexpected last project: %+v", projects[2])
	}
}

func TestLogin_UsesNoBrowserFlow(t *testing.T) {
	fr := &fakeRunner{responses: map[string]fakeResponse{
		"auth login --no-launch-browser": {stdout: "You are now logged in"},
	}}
	c := NewClient(WithRunner(fr))
	if err := c.Login(time.Second); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if len(fr.calls) != 1 || fr.calls[0] != "auth login --no-launch-browser" {
		t.Fatalf("unexpected calls: %v", fr.calls)
	}
}
