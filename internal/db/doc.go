// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db implements the persistent store for Nebula: credential
// records, configuration entries, session bookkeeping and the append-only
// audit log. Storage is backed by SQLite by default, with PostgreSQL and
// MySQL selectable via DSN, all through the Bun ORM. Every operation is a
// single short-lived transaction; callers must not assume atomicity across
// two calls.
package db
