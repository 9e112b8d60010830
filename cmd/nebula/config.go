// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/nebulaops/nebula/internal/i18n"
)

// configCmd groups the runtime configuration subcommands. These operate
// on the key/value table in the database, not on the nebula.yaml file.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get, set and list runtime configuration values",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := manager.GetConfig(args[0], nil)
		if err != nil {
			return err
		}
		if value == nil {
			fmt.Println(i18n.T("config.not_set"))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatConfigValue(value))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store one configuration value",
	Long: `Stores a configuration value in the database. The value is parsed as
JSON first, so numbers, booleans, lists and objects keep their type:

  nebula config set retries 5
  nebula config set endpoints '["a.example.com","b.example.com"]'

Anything that does not parse as JSON is stored as a plain string.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		if err := manager.SetConfig(args[0], parseConfigArg(args[1]), description); err != nil {
			return err
		}
		fmt.Println(i18n.T("config.set_success", args[0]))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values",
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := manager.GetAllConfig()
		if err != nil {
			log.Fatalf("%v", err)
		}
		for _, e := range entries {
			line := fmt.Sprintf("%s = %s", e.Key, formatConfigValue(e.Value))
			if e.Description != "" {
				line += "  # " + e.Description
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	},
}

// parseConfigArg decides how a CLI argument is stored: JSON-parseable
// input keeps its decoded type, everything else stays a plain string.
func parseConfigArg(raw string) any {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		if _, isString := decoded.(string); !isString {
			return decoded
		}
	}
	return raw
}

// formatConfigValue renders a decoded config value for display. Structured
// values go back through JSON so lists and objects print unambiguously.
func formatConfigValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func init() {
	configSetCmd.Flags().String("description", "", "Human-readable note stored with the value")
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
}
