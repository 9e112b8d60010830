package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/nebulaops/nebula/internal/model"
)

// timeLayout is the on-disk timestamp format: ISO-8601, local-naive, with
// fractional seconds so that rapid successive writes still order correctly.
// Expiry comparisons happen against the local clock, so no timezone is
// stored.
const timeLayout = "2006-01-02 15:04:05.000000"

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// parseTime reads a stored timestamp. It tolerates values without
// fractional seconds (rows written by older versions or by hand).
func parseTime(s string) time.Time {
	if t, err := time.ParseInLocation(timeLayout, s, time.Local); err == nil {
		return t
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nowString() string {
	return formatTime(time.Now())
}

// CredentialModel maps the `credentials` table for Bun queries.
type CredentialModel struct {
	bun.BaseModel  `bun:"table:credentials"`
	ID             int            `bun:"id,pk,autoincrement"`
	UserID         string         `bun:"user_id"`
	ProjectID      sql.NullString `bun:"project_id"`
	AuthProvider   string         `bun:"auth_provider"`
	AccessToken    string         `bun:"access_token"`
	RefreshToken   sql.NullString `bun:"refresh_token"`
	TokenExpiresAt sql.NullString `bun:"token_expires_at"`
	CreatedAt      string         `bun:"created_at"`
	UpdatedAt      string         `bun:"updated_at"`
	IsActive       bool           `bun:"is_active"`
}

// ConfigModel maps the `configuration` table.
type ConfigModel struct {
	bun.BaseModel `bun:"table:configuration"`
	ID            int            `bun:"id,pk,autoincrement"`
	Key           string         `bun:"key"`
	Value         string         `bun:"value"`
	Description   sql.NullString `bun:"description"`
	CreatedAt     string         `bun:"created_at"`
	UpdatedAt     string         `bun:"updated_at"`
}

// SessionModel maps the `user_sessions` table.
type SessionModel struct {
	bun.BaseModel `bun:"table:user_sessions"`
	ID            int    `bun:"id,pk,autoincrement"`
	SessionID     string `bun:"session_id"`
	UserID        string `bun:"user_id"`
	CreatedAt     string `bun:"created_at"`
	LastAccessed  string `bun:"last_accessed"`
	IsActive      bool   `bun:"is_active"`
}

// AuditLogModel maps the `audit_log` table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int            `bun:"id,pk,autoincrement"`
	UserID        sql.NullString `bun:"user_id"`
	Action        string         `bun:"action"`
	Details       sql.NullString `bun:"details"`
	CreatedAt     string         `bun:"created_at"`
}

// --- Mapping helpers (centralized conversions) ---

func credentialModelToModel(cm CredentialModel) model.CredentialRecord {
	rec := model.CredentialRecord{
		ID:           cm.ID,
		UserID:       cm.UserID,
		AuthProvider: model.AuthProvider(cm.AuthProvider),
		AccessToken:  cm.AccessToken,
		CreatedAt:    parseTime(cm.CreatedAt),
		UpdatedAt:    parseTime(cm.UpdatedAt),
		IsActive:     cm.IsActive,
	}
	if cm.ProjectID.Valid {
		rec.ProjectID = cm.ProjectID.String
	}
	if cm.RefreshToken.Valid {
		rec.RefreshToken = cm.RefreshToken.String
	}
	if cm.TokenExpiresAt.Valid && cm.TokenExpiresAt.String != "" {
		t := parseTime(cm.TokenExpiresAt.String)
		rec.ExpiresAt = &t
	}
	return rec
}

func credentialRecordToModel(rec model.CredentialRecord) CredentialModel {
	cm := CredentialModel{
		ID:           rec.ID,
		UserID:       rec.UserID,
		ProjectID:    sql.NullString{String: rec.ProjectID, Valid: rec.ProjectID != ""},
		AuthProvider: string(rec.AuthProvider),
		AccessToken:  rec.AccessToken,
		RefreshToken: sql.NullString{String: rec.RefreshToken, Valid: rec.RefreshToken != ""},
		CreatedAt:    formatTime(rec.CreatedAt),
		UpdatedAt:    formatTime(rec.UpdatedAt),
		IsActive:     rec.IsActive,
	}
	if rec.ExpiresAt != nil {
		cm.TokenExpiresAt = sql.NullString{String: formatTime(*rec.ExpiresAt), Valid: true}
	}
	return cm
}

func auditLogModelToModel(am AuditLogModel) model.AuditLogEntry {
	e := model.AuditLogEntry{
		ID:        am.ID,
		Action:    am.Action,
		CreatedAt: parseTime(am.CreatedAt),
	}
	if am.UserID.Valid {
		e.UserID = am.UserID.String
	}
	if am.Details.Valid {
		e.Details = am.Details.String
	}
	return e
}

func sessionModelToModel(sm SessionModel) model.SessionRecord {
	return model.SessionRecord{
		ID:           sm.ID,
		SessionID:    sm.SessionID,
		UserID:       sm.UserID,
		CreatedAt:    parseTime(sm.CreatedAt),
		LastAccessed: parseTime(sm.LastAccessed),
		IsActive:     sm.IsActive,
	}
}

func configModelToEntry(cm ConfigModel) model.ConfigEntry {
	e := model.ConfigEntry{
		Key:       cm.Key,
		Value:     decodeConfigValue(cm.Value),
		CreatedAt: parseTime(cm.CreatedAt),
		UpdatedAt: parseTime(cm.UpdatedAt),
	}
	if cm.Description.Valid {
		e.Description = cm.Description.String
	}
	return e
}

// encodeConfigValue serializes a config value for storage. Strings are
// stored verbatim; everything else goes through JSON.
func encodeConfigValue(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode config value: %w", err)
	}
	return string(data), nil
}

// decodeConfigValue is the read-side of the config value policy: every
// stored value is tentatively decoded as JSON and returned decoded when
// that succeeds, otherwise returned as the raw string. A stored "5" is
// therefore returned as a number even if it was written as a string.
func decodeConfigValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// --- Credential operations ---

// StoreCredentialBun atomically replaces any record sharing the user_id.
// The update-else-insert pair runs in one transaction, so concurrent
// writers cannot produce duplicate rows for a user. created_at survives a
// replace; updated_at is always set to now, and the record comes back
// active.
func StoreCredentialBun(bdb *bun.DB, rec model.CredentialRecord) error {
	ctx := context.Background()
	now := nowString()
	cm := credentialRecordToModel(rec)
	return WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		res, err := ExecRaw(ctx, tx,
			`UPDATE credentials SET project_id = ?, auth_provider = ?, access_token = ?, refresh_token = ?, token_expires_at = ?, updated_at = ?, is_active = ? WHERE user_id = ?`,
			cm.ProjectID, cm.AuthProvider, cm.AccessToken, cm.RefreshToken, cm.TokenExpiresAt, now, true, cm.UserID)
		if err != nil {
			return MapDBError(err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
		_, err = ExecRaw(ctx, tx,
			`INSERT INTO credentials (user_id, project_id, auth_provider, access_token, refresh_token, token_expires_at, created_at, updated_at, is_active) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cm.UserID, cm.ProjectID, cm.AuthProvider, cm.AccessToken, cm.RefreshToken, cm.TokenExpiresAt, now, now, true)
		return MapDBError(err)
	})
}

// GetCredentialBun returns the active record for userID, or the most
// recently updated active record across all users when userID is empty.
// Absence is a state, not an error.
func GetCredentialBun(bdb *bun.DB, userID string) (*model.CredentialRecord, error) {
	ctx := context.Background()
	var cm CredentialModel
	q := bdb.NewSelect().Model(&cm).Where("is_active = ?", true)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	err := q.OrderExpr("updated_at DESC, id DESC").Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rec := credentialModelToModel(cm)
	return &rec, nil
}

// GetAllCredentialsBun returns every credential row, newest first,
// regardless of active state.
func GetAllCredentialsBun(bdb *bun.DB) ([]model.CredentialRecord, error) {
	ctx := context.Background()
	var cms []CredentialModel
	if err := bdb.NewSelect().Model(&cms).OrderExpr("updated_at DESC, id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.CredentialRecord, 0, len(cms))
	for _, cm := range cms {
		out = append(out, credentialModelToModel(cm))
	}
	return out, nil
}

// DeactivateBun marks the user's record inactive, or all active records
// when userID is empty. Deactivating an already-inactive record is a no-op.
func DeactivateBun(bdb *bun.DB, userID string) (int, error) {
	ctx := context.Background()
	now := nowString()
	var (
		res sql.Result
		err error
	)
	if userID != "" {
		res, err = ExecRaw(ctx, bdb,
			`UPDATE credentials SET is_active = ?, updated_at = ? WHERE user_id = ? AND is_active = ?`,
			false, now, userID, true)
	} else {
		res, err = ExecRaw(ctx, bdb,
			`UPDATE credentials SET is_active = ?, updated_at = ? WHERE is_active = ?`,
			false, now, true)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// --- Configuration operations ---

// SetConfigBun upserts a configuration entry by key.
func SetConfigBun(bdb *bun.DB, key string, value any, description string) error {
	encoded, err := encodeConfigValue(value)
	if err != nil {
		return err
	}
	ctx := context.Background()
	now := nowString()
	desc := sql.NullString{String: description, Valid: description != ""}
	return WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		res, err := ExecRaw(ctx, tx,
			`UPDATE configuration SET value = ?, description = ?, updated_at = ? WHERE ? = ?`,
			encoded, desc, now, bun.Ident("key"), key)
		if err != nil {
			return MapDBError(err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
		_, err = ExecRaw(ctx, tx,
			`INSERT INTO configuration (?, value, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			bun.Ident("key"), key, encoded, desc, now, now)
		return MapDBError(err)
	})
}

// GetConfigBun returns the decoded value for key, or def when absent.
func GetConfigBun(bdb *bun.DB, key string, def any) (any, error) {
	ctx := context.Background()
	var cm ConfigModel
	err := bdb.NewSelect().Model(&cm).Where("? = ?", bun.Ident("key"), key).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return def, nil
		}
		return def, err
	}
	return decodeConfigValue(cm.Value), nil
}

// GetAllConfigBun returns all configuration entries ordered by key.
func GetAllConfigBun(bdb *bun.DB) ([]model.ConfigEntry, error) {
	ctx := context.Background()
	var cms []ConfigModel
	if err := bdb.NewSelect().Model(&cms).OrderExpr("? ASC", bun.Ident("key")).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.ConfigEntry, 0, len(cms))
	for _, cm := range cms {
		out = append(out, configModelToEntry(cm))
	}
	return out, nil
}

// --- Audit log operations ---

// LogActionBun appends an audit log entry. The log has no update or
// delete path.
func LogActionBun(bdb *bun.DB, userID, action, details string) error {
	ctx := context.Background()
	_, err := ExecRaw(ctx, bdb,
		`INSERT INTO audit_log (user_id, action, details, created_at) VALUES (?, ?, ?, ?)`,
		sql.NullString{String: userID, Valid: userID != ""},
		action,
		sql.NullString{String: details, Valid: details != ""},
		nowString())
	return MapDBError(err)
}

// GetAuditLogBun retrieves audit entries newest first, optionally filtered
// by user.
func GetAuditLogBun(bdb *bun.DB, userID string, limit int) ([]model.AuditLogEntry, error) {
	ctx := context.Background()
	var ams []AuditLogModel
	q := bdb.NewSelect().Model(&ams)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.OrderExpr("created_at DESC, id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(ams))
	for _, am := range ams {
		out = append(out, auditLogModelToModel(am))
	}
	return out, nil
}

// --- Session operations ---

// CreateSessionBun inserts a session row with a fresh UUID and returns it.
func CreateSessionBun(bdb *bun.DB, userID string) (string, error) {
	ctx := context.Background()
	sessionID := uuid.NewString()
	now := nowString()
	_, err := ExecRaw(ctx, bdb,
		`INSERT INTO user_sessions (session_id, user_id, created_at, last_accessed, is_active) VALUES (?, ?, ?, ?, ?)`,
		sessionID, userID, now, now, true)
	if err != nil {
		return "", MapDBError(err)
	}
	return sessionID, nil
}

// TouchSessionBun refreshes last_accessed for an active session. It
// reports whether a row was updated.
func TouchSessionBun(bdb *bun.DB, sessionID string) (bool, error) {
	ctx := context.Background()
	res, err := ExecRaw(ctx, bdb,
		`UPDATE user_sessions SET last_accessed = ? WHERE session_id = ? AND is_active = ?`,
		nowString(), sessionID, true)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EndSessionBun deactivates a session. It reports whether a row was updated.
func EndSessionBun(bdb *bun.DB, sessionID string) (bool, error) {
	ctx := context.Background()
	res, err := ExecRaw(ctx, bdb,
		`UPDATE user_sessions SET is_active = ? WHERE session_id = ? AND is_active = ?`,
		false, sessionID, true)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CleanupStaleSessionsBun deactivates active sessions whose last_accessed
// is older than maxAge. It returns the number of sessions cleaned up.
func CleanupStaleSessionsBun(bdb *bun.DB, maxAge time.Duration) (int, error) {
	ctx := context.Background()
	cutoff := formatTime(time.Now().Add(-maxAge))
	res, err := ExecRaw(ctx, bdb,
		`UPDATE user_sessions SET is_active = ? WHERE is_active = ? AND last_accessed < ?`,
		false, true, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// --- Backup operations ---

// ExportDataForBackupBun exports all tables' data into a model.BackupData
// using a Bun transaction for a consistent snapshot.
func ExportDataForBackupBun(bdb *bun.DB) (*model.BackupData, error) {
	ctx := context.Background()
	var backup *model.BackupData
	err := WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		backup = &model.BackupData{SchemaVersion: 1}

		var creds []CredentialModel
		if err := tx.NewSelect().Model(&creds).OrderExpr("id ASC").Scan(ctx); err != nil {
			return err
		}
		for _, cm := range creds {
			backup.Credentials = append(backup.Credentials, credentialModelToModel(cm))
		}

		var cfgs []ConfigModel
		if err := tx.NewSelect().Model(&cfgs).OrderExpr("? ASC", bun.Ident("key")).Scan(ctx); err != nil {
			return err
		}
		for _, cm := range cfgs {
			backup.ConfigEntries = append(backup.ConfigEntries, configModelToEntry(cm))
		}

		var sessions []SessionModel
		if err := tx.NewSelect().Model(&sessions).OrderExpr("id ASC").Scan(ctx); err != nil {
			return err
		}
		for _, sm := range sessions {
			backup.Sessions = append(backup.Sessions, sessionModelToModel(sm))
		}

		var audits []AuditLogModel
		if err := tx.NewSelect().Model(&audits).OrderExpr("id ASC").Scan(ctx); err != nil {
			return err
		}
		for _, am := range audits {
			backup.AuditLogEntries = append(backup.AuditLogEntries, auditLogModelToModel(am))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return backup, nil
}

// ImportDataFromBackupBun restores the database from a backup. It performs
// a full wipe-and-replace within a single transaction.
func ImportDataFromBackupBun(bdb *bun.DB, backup *model.BackupData) error {
	ctx := context.Background()
	return WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		for _, table := range []string{"credentials", "configuration", "user_sessions", "audit_log"} {
			if _, err := ExecRaw(ctx, tx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
		}
		for _, rec := range backup.Credentials {
			cm := credentialRecordToModel(rec)
			if _, err := ExecRaw(ctx, tx,
				`INSERT INTO credentials (user_id, project_id, auth_provider, access_token, refresh_token, token_expires_at, created_at, updated_at, is_active) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				cm.UserID, cm.ProjectID, cm.AuthProvider, cm.AccessToken, cm.RefreshToken, cm.TokenExpiresAt, cm.CreatedAt, cm.UpdatedAt, cm.IsActive); err != nil {
				return err
			}
		}
		for _, e := range backup.ConfigEntries {
			encoded, err := encodeConfigValue(e.Value)
			if err != nil {
				return err
			}
			if _, err := ExecRaw(ctx, tx,
				`INSERT INTO configuration (?, value, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
				bun.Ident("key"), e.Key, encoded,
				sql.NullString{String: e.Description, Valid: e.Description != ""},
				formatTime(e.CreatedAt), formatTime(e.UpdatedAt)); err != nil {
				return err
			}
		}
		for _, s := range backup.Sessions {
			if _, err := ExecRaw(ctx, tx,
				`INSERT INTO user_sessions (session_id, user_id, created_at, last_accessed, is_active) VALUES (?, ?, ?, ?, ?)`,
				s.SessionID, s.UserID, formatTime(s.CreatedAt), formatTime(s.LastAccessed), s.IsActive); err != nil {
				return err
			}
		}
		for _, a := range backup.AuditLogEntries {
			if _, err := ExecRaw(ctx, tx,
				`INSERT INTO audit_log (user_id, action, details, created_at) VALUES (?, ?, ?, ?)`,
				sql.NullString{String: a.UserID, Valid: a.UserID != ""},
				a.Action,
				sql.NullString{String: a.Details, Valid: a.Details != ""},
				formatTime(a.CreatedAt)); err != nil {
				return err
			}
		}
		return nil
	})
}
