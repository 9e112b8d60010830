// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model contains the plain data structures shared between the
// store, the credential lifecycle manager and the CLI. It has no
// dependencies on persistence or provider packages.
package model
