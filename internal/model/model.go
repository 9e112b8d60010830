// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import "time"

// AuthProvider identifies the mechanism that produced a credential.
type AuthProvider string

const (
	// ProviderAPIKey is a locally validated, long-lived API key.
	ProviderAPIKey AuthProvider = "api_key"
	// ProviderOAuth is an access token minted by the external gcloud tool.
	ProviderOAuth AuthProvider = "oauth"
)

// Valid reports whether p is one of the known providers.
func (p AuthProvider) Valid() bool {
	return p == ProviderAPIKey || p == ProviderOAuth
}

// CredentialRecord is the durable authentication state for one user.
// At most one record exists per UserID; a new login for the same user
// replaces the previous record. Logout deactivates a record, it never
// deletes it.
type CredentialRecord struct {
	ID           int
	UserID       string
	ProjectID    string
	AuthProvider AuthProvider
	AccessToken  string
	// RefreshToken is carried for forward compatibility; neither current
	// provider populates it.
	RefreshToken string
	// ExpiresAt is nil for credentials without a tracked lifetime.
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	IsActive  bool
}

// Expired reports whether the credential's tracked lifetime has passed at
// the given instant. Records without an expiry never expire.
func (c CredentialRecord) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// ConfigEntry is one key/value row of the configuration table. Value holds
// the decoded form: a string for plain values, or the structure a stored
// JSON document decodes to.
type ConfigEntry struct {
	Key         string
	Value       any
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AuditLogEntry is one append-only audit trail row. Entries are never
// updated or deleted.
type AuditLogEntry struct {
	ID        int
	UserID    string
	Action    string
	Details   string
	CreatedAt time.Time
}

// Audit actions recorded by the credential lifecycle manager.
const (
	AuditActionLogin  = "login"
	AuditActionLogout = "logout"
)

// SessionRecord tracks coarse process liveness for a user. It is
// independent of CredentialRecord and plays no part in the auth decision.
type SessionRecord struct {
	ID           int
	SessionID    string
	UserID       string
	CreatedAt    time.Time
	LastAccessed time.Time
	IsActive     bool
}
