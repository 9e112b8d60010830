// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package auth

import (
	"fmt"
	"time"

	"github.com/nebulaops/nebula/internal/model"
)

// Credential lifetimes. The API key window is a coarse local policy. The
// OAuth hour is local bookkeeping independent of the token's real external
// lifetime; the external tool remains the source of truth and the record
// is simply re-minted on refresh.
const (
	apiKeyTTL = 30 * 24 * time.Hour
	oauthTTL  = time.Hour
)

// apiKeyMinLength is a placeholder strength check, not cryptographic
// validation.
const apiKeyMinLength = 10

// Provider is the per-mechanism refresh capability. RefreshIfNeeded
// dispatches on the stored auth_provider field, so adding a mechanism
// means adding an implementation here rather than branching in the
// manager.
type Provider interface {
	Name() model.AuthProvider
	// Refresh mints a replacement for an expired record, or reports that
	// the mechanism has no refresh path.
	Refresh(m *Manager, rec model.CredentialRecord) (model.CredentialRecord, error)
}

// apiKeyProvider implements Provider for locally validated API keys.
type apiKeyProvider struct{}

func (apiKeyProvider) Name() model.AuthProvider { return model.ProviderAPIKey }

// Refresh always fails: an expired API key cannot be renewed locally, the
// caller must re-authenticate with a fresh key.
func (apiKeyProvider) Refresh(_ *Manager, _ model.CredentialRecord) (model.CredentialRecord, error) {
	return model.CredentialRecord{}, ErrReauthenticateRequired
}

// oauthProvider implements Provider for gcloud-minted tokens.
type oauthProvider struct{}

func (oauthProvider) Name() model.AuthProvider { return model.ProviderOAuth }

// Refresh re-runs the external resolution path for the record's user and
// project, producing a fresh token under the same one-hour window.
func (oauthProvider) Refresh(m *Manager, rec model.CredentialRecord) (model.CredentialRecord, error) {
	return m.resolveGcloudCredential(rec.ProjectID)
}

// defaultProviders returns the provider set keyed by stored provider name.
func defaultProviders() map[model.AuthProvider]Provider {
	providers := map[model.AuthProvider]Provider{}
	for _, p := range []Provider{apiKeyProvider{}, oauthProvider{}} {
		providers[p.Name()] = p
	}
	return providers
}

// providerFor looks up the Provider for a stored record.
func (m *Manager) providerFor(name model.AuthProvider) (Provider, error) {
	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown auth provider %q", name)
	}
	return p, nil
}
