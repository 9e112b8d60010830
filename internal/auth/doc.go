// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package auth implements the credential lifecycle: logging in with an
// API key or through the external gcloud tool, answering status queries,
// refreshing expired credentials and logging out. All durable state lives
// in the store; the manager only composes the store with the gcloud
// facade and applies expiry policy on top.
package auth
