// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the data access layer for Nebula.
// This file contains the PostgreSQL implementation of the database store.
package db // import "github.com/nebulaops/nebula/internal/db"

import (
	"time"

	"github.com/uptrace/bun"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/nebulaops/nebula/internal/model"
)

// PostgresStore is the PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	bun *bun.DB
}

// StoreCredential atomically replaces any existing record for the same user.
func (s *PostgresStore) StoreCredential(rec model.CredentialRecord) error {
	return StoreCredentialBun(s.bun, rec)
}

// GetCredential retrieves the active record for a user, or the most
// recently updated active record when userID is empty.
func (s *PostgresStore) GetCredential(userID string) (*model.CredentialRecord, error) {
	return GetCredentialBun(s.bun, userID)
}

// GetAllCredentials retrieves every credential record, newest first.
func (s *PostgresStore) GetAllCredentials() ([]model.CredentialRecord, error) {
	return GetAllCredentialsBun(s.bun)
}

// Deactivate marks credential records inactive and reports rows affected.
func (s *PostgresStore) Deactivate(userID string) (int, error) {
	return DeactivateBun(s.bun, userID)
}

// SetConfig upserts a configuration value by key.
func (s *PostgresStore) SetConfig(key string, value any, description string) error {
	return SetConfigBun(s.bun, key, value, description)
}

// GetConfig retrieves a configuration value, or def when the key is absent.
func (s *PostgresStore) GetConfig(key string, def any) (any, error) {
	return GetConfigBun(s.bun, key, def)
}

// GetAllConfig retrieves all configuration entries ordered by key.
func (s *PostgresStore) GetAllConfig() ([]model.ConfigEntry, error) {
	return GetAllConfigBun(s.bun)
}

// LogAction records an audit trail event.
func (s *PostgresStore) LogAction(userID, action, details string) error {
	return LogActionBun(s.bun, userID, action, details)
}

// GetAuditLog retrieves audit entries, newest first.
func (s *PostgresStore) GetAuditLog(userID string, limit int) ([]model.AuditLogEntry, error) {
	return GetAuditLogBun(s.bun, userID, limit)
}

// CreateSession creates a session bookkeeping row and returns its ID.
func (s *PostgresStore) CreateSession(userID string) (string, error) {
	return CreateSessionBun(s.bun, userID)
}

// TouchSession refreshes last_accessed for an active session.
func (s *PostgresStore) TouchSession(sessionID string) (bool, error) {
	return TouchSessionBun(s.bun, sessionID)
}

// EndSession deactivates a session.
func (s *PostgresStore) EndSession(sessionID string) (bool, error) {
	return EndSessionBun(s.bun, sessionID)
}

// CleanupStaleSessions deactivates sessions not touched within maxAge.
func (s *PostgresStore) CleanupStaleSessions(maxAge time.Duration) (int, error) {
	return CleanupStaleSessionsBun(s.bun, maxAge)
}

// ExportDataForBackup retrieves all data from the database for a backup.
// It uses a transaction to ensure a consistent snapshot of the data.
func (s *PostgresStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportDataForBackupBun(s.bun)
}

// ImportDataFromBackup restores the database from a backup data structure.
// It performs a full wipe-and-replace within a single transaction to ensure atomicity.
func (s *PostgresStore) ImportDataFromBackup(backup *model.BackupData) error {
	return ImportDataFromBackupBun(s.bun, backup)
}
