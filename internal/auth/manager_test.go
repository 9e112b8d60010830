// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nebulaops/nebula/internal/db"
	"github.com/nebulaops/nebula/internal/gcloud"
	"github.com/nebulaops/nebula/internal/model"
)

type fakeResponse struct {
	stdout string
	stderr string
	err    error
}

// fakeRunner answers canned gcloud responses keyed by the joined argument
// list.
type fakeRunner struct {
	responses map[string]fakeResponse
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) (string, string, error) {
	key := strings.Join(args, " ")
	r, ok := f.responses[key]
	if !ok {
		return "", "", fmt.Errorf("unexpected command: %s", key)
	}
	return r.stdout, r.stderr, r.err
}

// happyGcloudResponses covers a fully configured, authenticated gcloud.
func happyGcloudResponses() map[string]fakeResponse {
	return map[string]fakeResponse{
		"--version": {stdout: "Google Cloud SDK 512.0.0"},
		"auth list --filter=status:ACTIVE --format=value(account)": {stdout: "dev@example.com"},
		"config get-value account": {stdout: "dev@example.com"},
		"config get-value project": {stdout: "demo-project"},
		"auth print-access-token":  {stdout: "ya29.fresh-token"},
		"projects list --format=value(projectId,name,lifecycleState)": {stdout: "demo-project\tDemo\tACTIVE"},
	}
}

func newTestStore(t *testing.T) db.Store {
	t.Helper()
	dsn := "file:test_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	store, err := db.NewStoreFromDSN("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	return store
}

// newTestManager wires a Manager over an in-memory store, a canned gcloud
// and a controllable clock. Mutate *now to move time.
func newTestManager(t *testing.T, responses map[string]fakeResponse) (*Manager, db.Store, *time.Time) {
	t.Helper()
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	gc := gcloud.NewClient(gcloud.WithRunner(&fakeRunner{responses: responses}))
	m := NewManager(store, gc, WithClock(func() time.Time { return now }))
	return m, store, &now
}

func TestLoginWithAPIKey_RejectsBadInput(t *testing.T) {
	m, store, _ := newTestManager(t, nil)

	cases := []struct {
		name    string
		user    string
		project string
		key     string
	}{
		{"empty user", "", "proj", "0123456789"},
		{"empty project", "alice", "", "0123456789"},
		{"short key", "alice", "proj", "short"},
	}
	for _, tc := range cases {
		_, err := m.LoginWithAPIKey(tc.user, tc.project, tc.key)
		if !IsValidationError(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	// Rejected logins must not write anything.
	rec, err := store.GetCredential("")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if rec != nil {
		t.Fatalf("store should be empty after rejected logins, found %+v", rec)
	}
}

func TestLoginWithAPIKey_StoresCredential(t *testing.T) {
	m, store, now := newTestManager(t, nil)

	status, err := m.LoginWithAPIKey("alice", "proj-1", "0123456789abcdef")
	if err != nil {
		t.Fatalf("LoginWithAPIKey failed: %v", err)
	}
	if !status.Authenticated {
		t.Fatal("expected authenticated status after login")
	}
	if status.UserID != "alice" || status.ProjectID != "proj-1" || status.Provider != model.ProviderAPIKey {
		t.Fatalf("unexpected status: %+v", status)
	}
	wantExpiry := now.Add(30 * 24 * time.Hour)
	if status.ExpiresAt == nil || !status.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, status.ExpiresAt)
	}

	entries, err := store.GetAuditLog("alice", 0)
	if err != nil {
		t.Fatalf("GetAuditLog failed: %v", err)
	}
	if len(entries) == 0 || entries[0].Action != model.AuditActionLogin {
		t.Fatalf("expected login audit entry, got %+v", entries)
	}
}

func TestStatus_ExpiredCredentialIsNotAuthenticated(t *testing.T) {
	m, _, now := newTestManager(t, nil)

	if _, err := m.LoginWithAPIKey("alice", "proj-1", "0123456789abcdef"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	*now = now.Add(31 * 24 * time.Hour)
	status, err := m.Status("alice")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Authenticated {
		t.Fatal("expired credential must not report authenticated")
	}
	if status.UserID != "alice" {
		t.Fatalf("expired status should keep identity, got %+v", status)
	}
}

func TestAccessToken(t *testing.T) {
	m, _, now := newTestManager(t, nil)

	if _, err := m.AccessToken(""); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated before login, got %v", err)
	}

	if _, err := m.LoginWithAPIKey("alice", "proj-1", "0123456789abcdef"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	token, err := m.AccessToken("alice")
	if err != nil {
		t.Fatalf("AccessToken failed: %v", err)
	}
	if token != "0123456789abcdef" {
		t.Fatalf("unexpected token %q", token)
	}

	*now = now.Add(31 * 24 * time.Hour)
	if _, err := m.AccessToken("alice"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for expired credential, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	m, store, _ := newTestManager(t, nil)

	if err := m.Logout(""); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	if _, err := m.LoginWithAPIKey("alice", "proj-1", "0123456789abcdef"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := m.Logout(""); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	status, err := m.Status("")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Authenticated || status.UserID != "" {
		t.Fatalf("expected empty status after logout, got %+v", status)
	}

	entries, err := store.GetAuditLog("alice", 1)
	if err != nil {
		t.Fatalf("GetAuditLog failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != model.AuditActionLogout {
		t.Fatalf("expected logout as newest audit entry, got %+v", entries)
	}
}

func TestLogoutAll(t *testing.T) {
	m, _, _ := newTestManager(t, nil)

	if _, err := m.LogoutAll(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	if _, err := m.LoginWithAPIKey("alice", "proj-1", "0123456789abcdef"); err != nil {
		t.Fatalf("login alice failed: %v", err)
	}
	if _, err := m.LoginWithAPIKey("bob", "proj-2", "fedcba9876543210"); err != nil {
		t.Fatalf("login bob failed: %v", err)
	}

	n, err := m.LogoutAll()
	if err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deactivated credentials, got %d", n)
	}
}

func TestRefreshIfNeeded_APIKeyHasNoRefreshPath(t *testing.T) {
	m, _, now := newTestManager(t, nil)

	if _, err := m.RefreshIfNeeded(""); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	if _, err := m.LoginWithAPIKey("alice", "proj-1", "0123456789abcdef"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Within its lifetime the credential passes through untouched.
	status, err := m.RefreshIfNeeded("alice")
	if err != nil {
		t.Fatalf("RefreshIfNeeded failed: %v", err)
	}
	if !status.Authenticated {
		t.Fatal("expected authenticated status")
	}

	*now = now.Add(31 * 24 * time.Hour)
	if _, err := m.RefreshIfNeeded("alice"); !errors.Is(err, ErrReauthenticateRequired) {
		t.Fatalf("expected ErrReauthenticateRequired, got %v", err)
	}
}

func TestLoginWithGcloud_HappyPath(t *testing.T) {
	m, _, now := newTestManager(t, happyGcloudResponses())

	status, err := m.LoginWithGcloud("")
	if err != nil {
		t.Fatalf("LoginWithGcloud failed: %v", err)
	}
	if !status.Authenticated {
		t.Fatal("expected authenticated status")
	}
	if status.UserID != "dev@example.com" || status.ProjectID != "demo-project" || status.Provider != model.ProviderOAuth {
		t.Fatalf("unexpected status: %+v", status)
	}
	wantExpiry := now.Add(time.Hour)
	if status.ExpiresAt == nil || !status.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, status.ExpiresAt)
	}

	token, err := m.AccessToken("dev@example.com")
	if err != nil {
		t.Fatalf("AccessToken failed: %v", err)
	}
	if token != "ya29.fresh-token" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestLoginWithGcloud_ExplicitProjectWins(t *testing.T) {
	responses := happyGcloudResponses()
	responses["config set project other-project"] = fakeResponse{}
	m, _, _ := newTestManager(t, responses)

	status, err := m.LoginWithGcloud("other-project")
	if err != nil {
		t.Fatalf("LoginWithGcloud failed: %v", err)
	}
	if status.ProjectID != "other-project" {
		t.Fatalf("explicit project should win, got %q", status.ProjectID)
	}
}

func TestLoginWithGcloud_ProjectSelectionRequired(t *testing.T) {
	responses := happyGcloudResponses()
	responses["config get-value project"] = fakeResponse{stdout: "(unset)"}
	m, _, _ := newTestManager(t, responses)

	_, err := m.LoginWithGcloud("")
	if !errors.Is(err, ErrProjectSelectionRequired) {
		t.Fatalf("expected ErrProjectSelectionRequired, got %v", err)
	}
}

func TestLoginWithGcloud_NoActiveProjects(t *testing.T) {
	responses := happyGcloudResponses()
	responses["config get-value project"] = fakeResponse{stdout: "(unset)"}
	responses["projects list --format=value(projectId,name,lifecycleState)"] = fakeResponse{stdout: ""}
	m, _, _ := newTestManager(t, responses)

	_, err := m.LoginWithGcloud("")
	if !errors.Is(err, ErrNoActiveProjects) {
		t.Fatalf("expected ErrNoActiveProjects, got %v", err)
	}
}

func TestLoginWithGcloud_Unavailable(t *testing.T) {
	// An empty response table makes every call, including --version, fail.
	m, _, _ := newTestManager(t, map[string]fakeResponse{})

	_, err := m.LoginWithGcloud("")
	if !errors.Is(err, gcloud.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRefreshIfNeeded_OAuthReMints(t *testing.T) {
	responses := happyGcloudResponses()
	m, _, now := newTestManager(t, responses)

	if _, err := m.LoginWithGcloud(""); err != nil {
		t.Fatalf("LoginWithGcloud failed: %v", err)
	}

	*now = now.Add(2 * time.Hour)
	responses["auth print-access-token"] = fakeResponse{stdout: "ya29.newer-token"}

	status, err := m.RefreshIfNeeded("dev@example.com")
	if err != nil {
		t.Fatalf("RefreshIfNeeded failed: %v", err)
	}
	if !status.Authenticated {
		t.Fatal("expected authenticated status after refresh")
	}
	token, err := m.AccessToken("dev@example.com")
	if err != nil {
		t.Fatalf("AccessToken failed: %v", err)
	}
	if token != "ya29.newer-token" {
		t.Fatalf("expected re-minted token, got %q", token)
	}
}

func TestSessions(t *testing.T) {
	m, _, _ := newTestManager(t, nil)

	id, err := m.OpenSession("alice")
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty session id")
	}

	ok, err := m.CloseSession(id)
	if err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}
	if !ok {
		t.Fatal("expected CloseSession to match the open session")
	}

	ok, err = m.CloseSession(id)
	if err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}
	if ok {
		t.Fatal("closing an ended session should report no match")
	}
}
