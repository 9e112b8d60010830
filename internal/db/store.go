// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"time"

	"github.com/nebulaops/nebula/internal/model"
)

// Store defines the interface for all database operations in Nebula.
// This allows for multiple database backends to be implemented.
type Store interface {
	// Credential methods. GetCredential and Deactivate accept an empty
	// userID to mean "the current session": the most recently updated
	// active record for GetCredential, every active record for Deactivate.
	StoreCredential(rec model.CredentialRecord) error
	GetCredential(userID string) (*model.CredentialRecord, error)
	GetAllCredentials() ([]model.CredentialRecord, error)
	Deactivate(userID string) (int, error)

	// Configuration methods. Values survive a round trip through JSON:
	// non-string values are encoded on write, and every stored value is
	// tentatively decoded on read (see GetConfigValue for the policy).
	SetConfig(key string, value any, description string) error
	GetConfig(key string, def any) (any, error)
	GetAllConfig() ([]model.ConfigEntry, error)

	// Audit log methods. The log is append-only; userID == "" retrieves
	// entries for all users.
	LogAction(userID, action, details string) error
	GetAuditLog(userID string, limit int) ([]model.AuditLogEntry, error)

	// Session bookkeeping methods.
	CreateSession(userID string) (string, error)
	TouchSession(sessionID string) (bool, error)
	EndSession(sessionID string) (bool, error)
	CleanupStaleSessions(maxAge time.Duration) (int, error)

	// Backup helpers
	ExportDataForBackup() (*model.BackupData, error)
	ImportDataFromBackup(*model.BackupData) error
}
