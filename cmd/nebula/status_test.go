// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/nebulaops/nebula/internal/auth"
	"github.com/nebulaops/nebula/internal/i18n"
	"github.com/nebulaops/nebula/internal/model"
)

func TestRenderStatus_NotAuthenticated(t *testing.T) {
	i18n.Init("en")
	out := renderStatus(auth.Status{})
	if !strings.Contains(out, "Not authenticated") {
		t.Fatalf("missing not-authenticated marker:\n%s", out)
	}
	if strings.Contains(out, "User") {
		t.Fatalf("empty status should not show identity fields:\n%s", out)
	}
}

func TestRenderStatus_Authenticated(t *testing.T) {
	i18n.Init("en")
	expires := time.Date(2026, 3, 1, 11, 0, 0, 0, time.Local)
	out := renderStatus(auth.Status{
		Authenticated: true,
		UserID:        "dev@example.com",
		ProjectID:     "demo-project",
		Provider:      model.ProviderOAuth,
		ExpiresAt:     &expires,
	})
	for _, want := range []string{"Authenticated", "dev@example.com", "demo-project", "oauth", "2026-03-01 11:00:00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in rendered status:\n%s", want, out)
		}
	}
}

func TestRenderStatus_Expired(t *testing.T) {
	i18n.Init("en")
	expires := time.Now().Add(-time.Hour)
	out := renderStatus(auth.Status{
		Authenticated: false,
		UserID:        "dev@example.com",
		ProjectID:     "demo-project",
		Provider:      model.ProviderAPIKey,
		ExpiresAt:     &expires,
	})
	if !strings.Contains(out, "Not authenticated") {
		t.Fatalf("expired status must not report authenticated:\n%s", out)
	}
	if !strings.Contains(out, "dev@example.com") {
		t.Fatalf("expired status should keep identity:\n%s", out)
	}
}
