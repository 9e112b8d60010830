// Copyright (c) 2026 Nebula Team
// Nebula - local credential and session manager
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nebulaops/nebula/internal/auth"
	"github.com/nebulaops/nebula/internal/i18n"
	"github.com/nebulaops/nebula/internal/security"
)

// loginCmd represents the 'login' command. Without --api-key it runs the
// gcloud flow; with it (or with an empty value, which prompts) it stores
// an API key credential.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and store a credential",
	Long: `Authenticates either through the externally authenticated gcloud CLI
(the default) or with an API key, and stores the resulting credential in
the database.

Examples:
  # OAuth-style login via gcloud, using its default project
  nebula login

  # gcloud login with an explicit project
  nebula login --project my-project

  # API key login; the key is prompted for without echo
  nebula login --user alice --project my-project --api-key ""`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		project, _ := cmd.Flags().GetString("project")
		useGcloud, _ := cmd.Flags().GetBool("gcloud")

		if useGcloud && cmd.Flags().Changed("api-key") {
			return fmt.Errorf("--gcloud and --api-key are mutually exclusive")
		}
		if cmd.Flags().Changed("api-key") {
			flagKey, _ := cmd.Flags().GetString("api-key")
			apiKey := security.FromString(flagKey)
			if flagKey == "" {
				var err error
				apiKey, err = promptSecret(i18n.T("login.prompt_api_key"))
				if err != nil {
					return err
				}
			}
			defer apiKey.Zero()
			status, err := manager.LoginWithAPIKey(user, project, apiKey.Reveal())
			if err != nil {
				return fmt.Errorf("%s", i18n.T("login.error", err))
			}
			fmt.Println(i18n.T("login.success", status.UserID, status.ProjectID))
			return nil
		}

		status, err := manager.LoginWithGcloud(project)
		if errors.Is(err, auth.ErrProjectSelectionRequired) {
			chosen, selErr := selectProject(cmd)
			if selErr != nil {
				return selErr
			}
			status, err = manager.LoginWithGcloud(chosen)
		}
		if err != nil {
			if errors.Is(err, auth.ErrNoActiveProjects) {
				return fmt.Errorf("%s", i18n.T("login.no_projects"))
			}
			return fmt.Errorf("%s", i18n.T("login.error", err))
		}
		fmt.Println(i18n.T("login.success", status.UserID, status.ProjectID))
		return nil
	},
}

// selectProject lists the ACTIVE projects and reads a numeric choice from
// stdin.
func selectProject(cmd *cobra.Command) (string, error) {
	projects, err := manager.ListProjects()
	if err != nil {
		return "", err
	}
	if len(projects) == 0 {
		return "", fmt.Errorf("%s", i18n.T("login.no_projects"))
	}

	fmt.Println(i18n.T("login.select_project"))
	for i, p := range projects {
		fmt.Printf("  %d) %s (%s)\n", i+1, p.Name, p.ID)
	}
	fmt.Print(i18n.T("login.project_choice"))

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(projects) {
		return "", fmt.Errorf("%s", i18n.T("login.invalid_choice", line))
	}
	return projects[n-1].ID, nil
}

// promptSecret reads a line from the terminal without echoing it. The
// raw buffer is zeroed once it has been copied into the Secret.
func promptSecret(prompt string) (security.Secret, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return security.Secret{}, fmt.Errorf("could not read input: %w", err)
	}
	secret := security.FromBytes(raw)
	for i := range raw {
		raw[i] = 0
	}
	return secret, nil
}

// logoutCmd represents the 'logout' command.
var logoutCmd = &cobra.Command{
	Use:   "logout [user-id]",
	Short: "Deactivate the stored credential",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all {
			n, err := manager.LogoutAll()
			if errors.Is(err, auth.ErrNotAuthenticated) {
				fmt.Println(i18n.T("logout.not_authenticated"))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(i18n.T("logout.all_success", n))
			return nil
		}

		userID := ""
		if len(args) > 0 {
			userID = args[0]
		}
		err := manager.Logout(userID)
		if errors.Is(err, auth.ErrNotAuthenticated) {
			fmt.Println(i18n.T("logout.not_authenticated"))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println(i18n.T("logout.success"))
		return nil
	},
}

// tokenCmd represents the 'token' command. It prints the stored access
// token for scripting, or copies it to the clipboard with --copy.
var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Print the current access token",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := ""
		if len(args) > 0 {
			userID = args[0]
		}
		status, err := manager.RefreshIfNeeded(userID)
		if err != nil {
			return fmt.Errorf("%s", i18n.T("token.error", err))
		}
		token, err := manager.AccessToken(status.UserID)
		if err != nil {
			return fmt.Errorf("%s", i18n.T("token.error", err))
		}

		copyFlag, _ := cmd.Flags().GetBool("copy")
		if copyFlag {
			if err := clipboard.WriteAll(token); err != nil {
				return fmt.Errorf("%s", i18n.T("token.error", err))
			}
			fmt.Println(i18n.T("token.copied"))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

// projectsCmd represents the 'projects' command.
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List ACTIVE projects visible to the gcloud account",
	Run: func(cmd *cobra.Command, args []string) {
		projects, err := manager.ListProjects()
		if err != nil {
			log.Fatalf("%s", i18n.T("login.error", err))
		}
		if len(projects) == 0 {
			fmt.Println(i18n.T("projects.none"))
			return
		}
		fmt.Println(i18n.T("projects.header"))
		for _, p := range projects {
			fmt.Printf("  %s\t%s\n", p.ID, p.Name)
		}
	},
}

func init() {
	loginCmd.Flags().Bool("gcloud", false, "Authenticate through the gcloud CLI (the default)")
	loginCmd.Flags().String("api-key", "", "Authenticate with an API key instead of gcloud (empty value prompts)")
	loginCmd.Flags().String("user", "", "User id for API key logins")
	loginCmd.Flags().String("project", "", "Project id (overrides the gcloud default)")
	logoutCmd.Flags().Bool("all", false, "Deactivate every active credential")
	tokenCmd.Flags().Bool("copy", false, "Copy the token to the clipboard instead of printing it")
}
