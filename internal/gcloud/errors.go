// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package gcloud

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the gcloud executable cannot be found or
// started at all.
var ErrUnavailable = errors.New("gcloud CLI is not available")

// ErrTimeout is returned when a gcloud invocation exceeded its deadline.
// The call is abandoned; no retry happens automatically.
var ErrTimeout = errors.New("gcloud call timed out")

// ErrReauthRequired is returned when gcloud ran but reported that its own
// authentication has lapsed. The user must run `gcloud auth login` (or
// switch accounts) before Nebula can mint tokens again.
var ErrReauthRequired = errors.New("gcloud reauthentication required")

// CommandError is returned when gcloud exited non-zero for any other
// reason. Stderr is carried as the error detail.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("gcloud %v failed: %s", e.Args, e.Stderr)
	}
	return fmt.Sprintf("gcloud %v failed: %v", e.Args, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
