// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/nebulaops/nebula/internal/db"
	"github.com/nebulaops/nebula/internal/i18n"
	"github.com/nebulaops/nebula/internal/model"
)

// auditCmd represents the 'audit' command. It prints the audit trail,
// newest entries first.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the authentication audit trail",
	Run: func(cmd *cobra.Command, args []string) {
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := manager.AuditLog(user, limit)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if len(entries) == 0 {
			fmt.Println(i18n.T("audit.none"))
			return
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s %-20s %s\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.UserID, e.Details)
		}
	},
}

// sessionsCmd groups session bookkeeping subcommands.
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage session bookkeeping records",
}

var sessionsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Deactivate sessions that have been idle too long",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		n, err := manager.CleanupSessions(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return err
		}
		fmt.Println(i18n.T("sessions.cleaned", n))
		return nil
	},
}

// backupCmd represents the 'backup' command.
// It dumps all data from the database into a single compressed JSON file.
var backupCmd = &cobra.Command{
	Use:   "backup [output-file]",
	Short: "Create a compressed (zstd) JSON backup of the database",
	Long: `Dumps the entire contents of the Nebula database (credentials,
configuration, sessions and the audit log) into a single,
Zstandard-compressed JSON file.

If an output file is specified, '.zst' will be appended to the name if
it's not already present. If no output file is specified, a default
filename 'nebula-backup-YYYY-MM-DD.json.zst' is used.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var outputFile string
		if len(args) == 0 {
			outputFile = fmt.Sprintf("nebula-backup-%s.json.zst", time.Now().Format("2006-01-02"))
		} else {
			outputFile = args[0]
			if !strings.HasSuffix(outputFile, ".zst") {
				outputFile += ".zst"
			}
		}
		data, err := db.ExportDataForBackup()
		if err != nil {
			log.Fatalf("%v", err)
		}
		if err := writeCompressedBackup(outputFile, data); err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println(i18n.T("backup.success", outputFile))
	},
}

// restoreCmd represents the 'restore' command. It wipes the current data
// and replaces it with the contents of a backup file.
var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Restore the database from a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			fmt.Print(i18n.T("restore.confirm"))
			reader := bufio.NewReader(cmd.InOrStdin())
			answer, _ := reader.ReadString('\n')
			if !strings.EqualFold(strings.TrimSpace(answer), "y") {
				fmt.Println(i18n.T("restore.aborted"))
				return nil
			}
		}
		data, err := readCompressedBackup(args[0])
		if err != nil {
			return err
		}
		if err := db.ImportDataFromBackup(data); err != nil {
			return err
		}
		fmt.Println(i18n.T("restore.success", args[0]))
		return nil
	},
}

// writeCompressedBackup streams the JSON encoding of the backup straight
// into a zstd writer for memory efficiency.
func writeCompressedBackup(filename string, data *model.BackupData) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zstdWriter, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	defer func() { _ = zstdWriter.Close() }()

	encoder := json.NewEncoder(zstdWriter)
	encoder.SetIndent("", "  ") // Pretty-print the JSON inside the compressed file

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}

	return nil
}

// readCompressedBackup handles reading and decoding a zstd-compressed
// JSON backup file.
func readCompressedBackup(filename string) (*model.BackupData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zstdReader, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zstdReader.Close()

	var backupData model.BackupData
	if err := json.NewDecoder(zstdReader).Decode(&backupData); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}

	return &backupData, nil
}

func init() {
	auditCmd.Flags().String("user", "", "Only show entries for this user")
	auditCmd.Flags().Int("limit", 50, "Maximum number of entries (0 for all)")
	sessionsCleanupCmd.Flags().Int("days", 30, "Idle age in days before a session is considered stale")
	restoreCmd.Flags().Bool("force", false, "Skip the confirmation prompt")
	sessionsCmd.AddCommand(sessionsCleanupCmd)
}
