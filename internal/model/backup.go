// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package model

// BackupData is a container for all data exported from the store.
type BackupData struct {
	// SchemaVersion helps in handling migrations during restore.
	SchemaVersion int `json:"schema_version"`

	Credentials     []CredentialRecord `json:"credentials"`
	ConfigEntries   []ConfigEntry      `json:"config_entries"`
	Sessions        []SessionRecord    `json:"sessions"`
	AuditLogEntries []AuditLogEntry    `json:"audit_log_entries"`
}
