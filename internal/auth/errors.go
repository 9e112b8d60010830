// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package auth

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by operations that require an existing
// active credential record when none is present.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrProjectSelectionRequired is returned by the gcloud login flow when no
// default project is configured and none was passed in. The caller lists
// projects and retries with an explicit choice; the manager never blocks
// waiting for interactive input.
var ErrProjectSelectionRequired = errors.New("project selection required")

// ErrNoActiveProjects is returned when project selection is needed but the
// external tool reports zero ACTIVE projects. The flow fails rather than
// guessing a project.
var ErrNoActiveProjects = errors.New("no active projects available")

// ErrReauthenticateRequired is returned when a credential cannot be
// refreshed in place (API keys have no refresh path) and the user must log
// in again.
var ErrReauthenticateRequired = errors.New("credential cannot be refreshed, re-authentication required")

// ValidationError reports bad or missing caller input. It is always
// detected before any store write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
