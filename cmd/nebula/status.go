// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nebulaops/nebula/internal/auth"
	"github.com/nebulaops/nebula/internal/i18n"
)

var (
	statusPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 2)
	statusTitleStyle = lipgloss.NewStyle().Bold(true)
	statusOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusBadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusLabelStyle = lipgloss.NewStyle().Faint(true)
)

// statusCmd prints the current authentication state.
var statusCmd = &cobra.Command{
	Use:   "status [user-id]",
	Short: "Show the current authentication status",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd, args...)
	},
}

func runStatus(cmd *cobra.Command, args ...string) error {
	userID := ""
	if len(args) > 0 {
		userID = args[0]
	}
	status, err := manager.Status(userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status))
	return nil
}

// renderStatus draws the status panel. Identity details only appear when
// a credential record exists; an expired one is shown with a hint to log
// in again.
func renderStatus(status auth.Status) string {
	var b strings.Builder
	b.WriteString(statusTitleStyle.Render(i18n.T("status.title")))
	b.WriteString("\n\n")

	switch {
	case status.Authenticated:
		b.WriteString(statusOKStyle.Render("● " + i18n.T("status.authenticated")))
	case status.UserID != "":
		b.WriteString(statusBadStyle.Render("● " + i18n.T("status.not_authenticated")))
		b.WriteString("\n" + i18n.T("status.expired"))
	default:
		b.WriteString(statusBadStyle.Render("● " + i18n.T("status.not_authenticated")))
	}

	if status.UserID != "" {
		b.WriteString("\n\n")
		rows := []struct{ label, value string }{
			{i18n.T("status.user"), status.UserID},
			{i18n.T("status.project"), status.ProjectID},
			{i18n.T("status.provider"), string(status.Provider)},
		}
		for _, row := range rows {
			b.WriteString(fmt.Sprintf("%s %s\n", statusLabelStyle.Render(row.label+":"), row.value))
		}
		if status.ExpiresAt != nil {
			b.WriteString(fmt.Sprintf("%s %s\n", statusLabelStyle.Render(i18n.T("status.expires")+":"), status.ExpiresAt.Format("2006-01-02 15:04:05")))
		}
	}

	return statusPanelStyle.Render(b.String())
}
