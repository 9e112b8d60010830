// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nebulaops/nebula/internal/db"
	"github.com/nebulaops/nebula/internal/gcloud"
	"github.com/nebulaops/nebula/internal/logging"
	"github.com/nebulaops/nebula/internal/model"
)

// Status is the answer to "am I authenticated right now". An expired
// record reports Authenticated == false while still carrying its identity
// fields, so callers can tell "never logged in" from "logged in but
// stale" by checking UserID.
type Status struct {
	Authenticated bool
	UserID        string
	ProjectID     string
	Provider      model.AuthProvider
	ExpiresAt     *time.Time
	UpdatedAt     time.Time
}

// Manager owns the credential lifecycle: login, status, refresh and
// logout. It composes the store and the gcloud facade and holds no state
// of its own beyond the injected clock, so a single instance is safe for
// concurrent use.
type Manager struct {
	store     db.Store
	gcloud    *gcloud.Client
	now       func() time.Time
	providers map[model.AuthProvider]Provider
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock substitutes the time source (used by tests).
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager over the given store and gcloud client.
func NewManager(store db.Store, gc *gcloud.Client, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		gcloud:    gc,
		now:       time.Now,
		providers: defaultProviders(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// statusFromRecord derives the Status view of a stored record.
func (m *Manager) statusFromRecord(rec *model.CredentialRecord) Status {
	if rec == nil {
		return Status{}
	}
	return Status{
		Authenticated: !rec.Expired(m.now()),
		UserID:        rec.UserID,
		ProjectID:     rec.ProjectID,
		Provider:      rec.AuthProvider,
		ExpiresAt:     rec.ExpiresAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

// Status reports the authentication state for userID, or for the most
// recently updated active record when userID is empty. A missing record
// is not an error; it is simply "not authenticated".
func (m *Manager) Status(userID string) (Status, error) {
	rec, err := m.store.GetCredential(userID)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read credential: %w", err)
	}
	return m.statusFromRecord(rec), nil
}

// AccessToken returns the stored token for userID if it is still within
// its lifetime. Expired or absent credentials yield ErrNotAuthenticated.
func (m *Manager) AccessToken(userID string) (string, error) {
	rec, err := m.store.GetCredential(userID)
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	if rec == nil || rec.Expired(m.now()) {
		return "", ErrNotAuthenticated
	}
	return rec.AccessToken, nil
}

// LoginWithAPIKey validates and stores a long-lived API key credential.
// All validation happens before any write; a rejected call leaves the
// store untouched.
func (m *Manager) LoginWithAPIKey(userID, projectID, apiKey string) (Status, error) {
	userID = strings.TrimSpace(userID)
	projectID = strings.TrimSpace(projectID)
	if userID == "" {
		return Status{}, &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if projectID == "" {
		return Status{}, &ValidationError{Field: "project_id", Reason: "must not be empty"}
	}
	if len(apiKey) < apiKeyMinLength {
		return Status{}, &ValidationError{Field: "api_key", Reason: fmt.Sprintf("must be at least %d characters", apiKeyMinLength)}
	}

	now := m.now()
	expires := now.Add(apiKeyTTL)
	rec := model.CredentialRecord{
		UserID:       userID,
		ProjectID:    projectID,
		AuthProvider: model.ProviderAPIKey,
		AccessToken:  apiKey,
		ExpiresAt:    &expires,
		IsActive:     true,
	}
	if err := m.store.StoreCredential(rec); err != nil {
		return Status{}, fmt.Errorf("failed to store credential: %w", err)
	}
	m.audit(userID, model.AuditActionLogin, "api key authentication for project "+projectID)
	m.openSessionBestEffort(userID)
	return m.Status(userID)
}

// LoginWithGcloud authenticates through the external gcloud tool and
// stores the resulting token. When projectID is empty the tool's default
// project is used; if none is configured either, the call fails with
// ErrProjectSelectionRequired so the caller can present the choice (or
// ErrNoActiveProjects when there is nothing to choose from).
func (m *Manager) LoginWithGcloud(projectID string) (Status, error) {
	if !m.gcloud.IsAvailable() {
		return Status{}, gcloud.ErrUnavailable
	}
	if !m.gcloud.IsAuthenticated() {
		if err := m.gcloud.Login(0); err != nil {
			return Status{}, fmt.Errorf("gcloud login failed: %w", err)
		}
	}
	rec, err := m.resolveGcloudCredential(projectID)
	if errors.Is(err, gcloud.ErrReauthRequired) {
		// The tool's own credentials lapsed between the auth check and
		// the resolution calls; run the interactive flow once and retry.
		if loginErr := m.gcloud.Login(0); loginErr != nil {
			return Status{}, fmt.Errorf("gcloud login failed: %w", loginErr)
		}
		rec, err = m.resolveGcloudCredential(projectID)
	}
	if err != nil {
		return Status{}, err
	}
	if err := m.store.StoreCredential(rec); err != nil {
		return Status{}, fmt.Errorf("failed to store credential: %w", err)
	}
	m.audit(rec.UserID, model.AuditActionLogin, "gcloud authentication for project "+rec.ProjectID)
	m.openSessionBestEffort(rec.UserID)
	return m.Status(rec.UserID)
}

// resolveGcloudCredential queries the external tool for the active
// account, the effective project and a fresh token, and assembles the
// record to store. It performs no writes itself.
func (m *Manager) resolveGcloudCredential(projectID string) (model.CredentialRecord, error) {
	account, err := m.gcloud.ActiveAccount()
	if err != nil {
		return model.CredentialRecord{}, fmt.Errorf("failed to determine active account: %w", err)
	}
	if account == "" {
		return model.CredentialRecord{}, fmt.Errorf("no active gcloud account: %w", gcloud.ErrReauthRequired)
	}

	if projectID != "" {
		// Keep the tool's default in step with the explicit choice so
		// later refreshes resolve the same project. Failure here is not
		// fatal; the record carries the project regardless.
		if err := m.gcloud.SetProject(projectID); err != nil {
			logging.Warnf("could not set gcloud default project %s: %v", projectID, err)
		}
	} else {
		projectID, err = m.gcloud.CurrentProject()
		if err != nil {
			return model.CredentialRecord{}, fmt.Errorf("failed to read default project: %w", err)
		}
		if projectID == "" {
			projects, err := m.gcloud.ListActiveProjects()
			if err != nil {
				return model.CredentialRecord{}, fmt.Errorf("failed to list projects: %w", err)
			}
			if len(projects) == 0 {
				return model.CredentialRecord{}, ErrNoActiveProjects
			}
			return model.CredentialRecord{}, ErrProjectSelectionRequired
		}
	}

	token, err := m.gcloud.AccessToken()
	if err != nil {
		return model.CredentialRecord{}, fmt.Errorf("failed to mint access token: %w", err)
	}

	expires := m.now().Add(oauthTTL)
	return model.CredentialRecord{
		UserID:       account,
		ProjectID:    projectID,
		AuthProvider: model.ProviderOAuth,
		AccessToken:  token,
		ExpiresAt:    &expires,
		IsActive:     true,
	}, nil
}

// ListProjects enumerates the ACTIVE projects visible to the external
// tool's account.
func (m *Manager) ListProjects() ([]gcloud.Project, error) {
	if !m.gcloud.IsAvailable() {
		return nil, gcloud.ErrUnavailable
	}
	return m.gcloud.ListActiveProjects()
}

// Logout deactivates the credential for userID, or the current session's
// credential when userID is empty. The record stays in the store for the
// audit trail; only is_active flips.
func (m *Manager) Logout(userID string) error {
	rec, err := m.store.GetCredential(userID)
	if err != nil {
		return fmt.Errorf("failed to read credential: %w", err)
	}
	if rec == nil {
		return ErrNotAuthenticated
	}
	m.audit(rec.UserID, model.AuditActionLogout, "user logged out")
	if _, err := m.store.Deactivate(rec.UserID); err != nil {
		return fmt.Errorf("failed to deactivate credential: %w", err)
	}
	return nil
}

// LogoutAll deactivates every active credential.
func (m *Manager) LogoutAll() (int, error) {
	rec, err := m.store.GetCredential("")
	if err != nil {
		return 0, fmt.Errorf("failed to read credential: %w", err)
	}
	if rec == nil {
		return 0, ErrNotAuthenticated
	}
	m.audit(rec.UserID, model.AuditActionLogout, "all users logged out")
	n, err := m.store.Deactivate("")
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate credentials: %w", err)
	}
	return n, nil
}

// RefreshIfNeeded returns the current status, renewing the stored
// credential first when it has expired. API key credentials cannot be
// renewed and yield ErrReauthenticateRequired; gcloud credentials are
// re-minted through the external tool.
func (m *Manager) RefreshIfNeeded(userID string) (Status, error) {
	rec, err := m.store.GetCredential(userID)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read credential: %w", err)
	}
	if rec == nil {
		return Status{}, ErrNotAuthenticated
	}
	if !rec.Expired(m.now()) {
		return m.statusFromRecord(rec), nil
	}

	provider, err := m.providerFor(rec.AuthProvider)
	if err != nil {
		return Status{}, err
	}
	fresh, err := provider.Refresh(m, *rec)
	if err != nil {
		return Status{}, err
	}
	if err := m.store.StoreCredential(fresh); err != nil {
		return Status{}, fmt.Errorf("failed to store refreshed credential: %w", err)
	}
	m.audit(fresh.UserID, model.AuditActionLogin, "token refresh for project "+fresh.ProjectID)
	return m.Status(fresh.UserID)
}

// audit appends one trail entry. The trail is best-effort: a failed
// append is logged and swallowed so it never blocks the auth operation
// that triggered it.
func (m *Manager) audit(userID, action, details string) {
	if err := m.store.LogAction(userID, action, details); err != nil {
		logging.Warnf("audit append failed for %s/%s: %v", userID, action, err)
	}
}

// openSessionBestEffort records process liveness for a fresh login.
// Session bookkeeping is advisory and never fails a login.
func (m *Manager) openSessionBestEffort(userID string) {
	if _, err := m.store.CreateSession(userID); err != nil {
		logging.Warnf("session open failed for %s: %v", userID, err)
	}
}

// OpenSession starts a tracked session for userID and returns its id.
func (m *Manager) OpenSession(userID string) (string, error) {
	return m.store.CreateSession(userID)
}

// CloseSession ends a tracked session. The bool reports whether the id
// matched an active session.
func (m *Manager) CloseSession(sessionID string) (bool, error) {
	return m.store.EndSession(sessionID)
}

// CleanupSessions deactivates sessions idle longer than maxAge and
// returns how many were affected.
func (m *Manager) CleanupSessions(maxAge time.Duration) (int, error) {
	return m.store.CleanupStaleSessions(maxAge)
}

// AuditLog returns recent audit entries, newest first. An empty userID
// spans all users; limit <= 0 means no limit.
func (m *Manager) AuditLog(userID string, limit int) ([]model.AuditLogEntry, error) {
	return m.store.GetAuditLog(userID, limit)
}

// SetConfig stores a runtime configuration value.
func (m *Manager) SetConfig(key string, value any, description string) error {
	return m.store.SetConfig(key, value, description)
}

// GetConfig retrieves a runtime configuration value, or def when absent.
func (m *Manager) GetConfig(key string, def any) (any, error) {
	return m.store.GetConfig(key, def)
}

// GetAllConfig retrieves all runtime configuration entries ordered by key.
func (m *Manager) GetAllConfig() ([]model.ConfigEntry, error) {
	return m.store.GetAllConfig()
}
