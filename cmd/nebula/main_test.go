// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"testing"

	"github.com/nebulaops/nebula/internal/config"
)

// TestApplyFlagOverrides verifies that explicitly set CLI flags replace
// the corresponding loaded configuration values.
func TestApplyFlagOverrides(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--db-type", "postgres", "--db-dsn", "postgres://cfg", "--lang", "de"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	var c config.Config
	c.Database.Type = "sqlite"
	c.Database.Dsn = "./nebula.db"
	c.Language = "en"
	applyFlagOverrides(cmd, &c)

	if c.Database.Type != "postgres" {
		t.Errorf("Database.Type = %q, want %q", c.Database.Type, "postgres")
	}
	if c.Database.Dsn != "postgres://cfg" {
		t.Errorf("Database.Dsn = %q, want %q", c.Database.Dsn, "postgres://cfg")
	}
	if c.Language != "de" {
		t.Errorf("Language = %q, want %q", c.Language, "de")
	}
}

// TestApplyFlagOverrides_LeavesConfigAloneWithoutFlags verifies loaded
// values survive when no flag was set, even though the flags carry
// defaults of their own.
func TestApplyFlagOverrides_LeavesConfigAloneWithoutFlags(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	var c config.Config
	c.Database.Type = "mysql"
	c.Database.Dsn = "user@tcp(db)/nebula"
	c.Language = "de"
	applyFlagOverrides(cmd, &c)

	if c.Database.Type != "mysql" || c.Database.Dsn != "user@tcp(db)/nebula" || c.Language != "de" {
		t.Errorf("config changed without flags: %+v", c)
	}
}
