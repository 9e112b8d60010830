// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for Nebula using the
// Cobra library. It defines the root command, subcommands (like login,
// status, token), flags, and the main entry point for execution.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nebulaops/nebula/buildvars"
	"github.com/nebulaops/nebula/internal/auth"
	"github.com/nebulaops/nebula/internal/config"
	"github.com/nebulaops/nebula/internal/db"
	"github.com/nebulaops/nebula/internal/gcloud"
	"github.com/nebulaops/nebula/internal/i18n"
	"github.com/nebulaops/nebula/internal/logging"
)

var cfgFile string

// appConfig is the effective file-backed configuration, assembled by
// setupServices before any subcommand runs.
var appConfig config.Config

// manager is the shared credential lifecycle manager, wired up in
// setupServices once configuration and the database are ready.
var manager *auth.Manager

// configDefaults are the lowest-precedence configuration values; the
// config file, NEBULA_* environment variables and flags layer on top.
var configDefaults = map[string]any{
	"database.type":          "sqlite",
	"database.dsn":           "./nebula.db",
	"language":               "en",
	"gcloud.binary":          "gcloud",
	"gcloud.timeout_seconds": 10,
}

// main is the entry point of the application.
func main() {
	if err := rootCmd.Execute(); err != nil {
		// The error is already printed by Cobra on failure.
		os.Exit(1)
	}
}

var rootCmd *cobra.Command

func init() {
	rootCmd = newRootCmd()
}

// setupServices loads the effective configuration and wires i18n, the
// database and the credential manager. It runs before every subcommand.
func setupServices(cmd *cobra.Command, args []string) error {
	var explicitConfig *string
	if cfgFile != "" {
		explicitConfig = &cfgFile
	}

	var err error
	appConfig, err = config.LoadConfig[config.Config](cmd, configDefaults, explicitConfig)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	applyFlagOverrides(cmd, &appConfig)
	writeDefaultConfigIfMissing()

	i18n.Init(appConfig.Language)
	debug, _ := cmd.Flags().GetBool("debug")
	logging.SetDebug(debug)

	// Tests and alternative bootstraps may have opened the store already.
	if !db.IsInitialized() {
		if err := db.InitDB(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
			return fmt.Errorf("%s", i18n.T("config.error_init_db", err))
		}
	}

	gc := gcloud.NewClient(
		gcloud.WithBinary(appConfig.Gcloud.Binary),
		gcloud.WithTimeout(time.Duration(appConfig.Gcloud.TimeoutSeconds)*time.Second),
	)
	manager = auth.NewManager(db.DefaultStore(), gc)
	return nil
}

// applyFlagOverrides layers explicitly set CLI flags over the loaded
// configuration. The flags carry their own names, so viper's flag
// binding cannot map them onto the nested config keys.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("db-type") {
		c.Database.Type, _ = cmd.Flags().GetString("db-type")
	}
	if cmd.Flags().Changed("db-dsn") {
		c.Database.Dsn, _ = cmd.Flags().GetString("db-dsn")
	}
	if cmd.Flags().Changed("lang") {
		c.Language, _ = cmd.Flags().GetString("lang")
	}
}

// writeDefaultConfigIfMissing persists the effective configuration to the
// user config path on first run, so later runs have a file to edit. Best
// effort; the app runs fine on defaults.
func writeDefaultConfigIfMissing() {
	if cfgFile != "" {
		return
	}
	if _, err := os.Stat("nebula.yaml"); err == nil {
		return
	}
	path, err := config.GetConfigPath(false)
	if err != nil {
		return
	}
	if _, err := os.Stat(path); err == nil {
		return
	}
	if err := config.WriteConfigFile(&appConfig, false); err != nil {
		logging.Warnf("could not write default config file: %v", err)
	}
}

// newRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nebula",
		Short: "Nebula manages cloud credentials and sessions from the terminal.",
		Long: `Nebula keeps authentication state out of your shell history.
It stores credentials, per-user configuration and an audit trail in a
local database, and talks to the externally authenticated gcloud CLI
for OAuth-style logins. A database becomes the source of truth.

Running without a subcommand prints the authentication status.`,
		PersistentPreRunE: setupServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The database is already initialized by setupServices.
			return runStatus(cmd)
		},
	}

	cmd.AddCommand(statusCmd)
	cmd.AddCommand(loginCmd)
	cmd.AddCommand(logoutCmd)
	cmd.AddCommand(tokenCmd)
	cmd.AddCommand(projectsCmd)
	cmd.AddCommand(configCmd)
	cmd.AddCommand(auditCmd)
	cmd.AddCommand(sessionsCmd)
	cmd.AddCommand(backupCmd)
	cmd.AddCommand(restoreCmd)

	cmd.Version = buildvars.VersionOrDefault("dev")

	// Define flags
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is nebula.yaml in the user config dir or the current directory)")
	cmd.PersistentFlags().String("db-type", "sqlite", "Database type (e.g., sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("db-dsn", "./nebula.db", "Database connection string (DSN)")
	cmd.PersistentFlags().String("lang", "en", `CLI language ("en", "de")`)
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	return cmd
}
