package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"docvault/internal/auth"
)

type loginFlags struct {
	Username string
	Password string
}

func newLoginCmd(a *app) *cobra.Command {
	flags := &loginFlags{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the vault",
		Long: `Log in to the Document Vault. Missing credentials are prompted for.

Examples:
  # Interactive login
  vaultctl login

  # Non-interactive login
  vaultctl login --username admin --password admin123`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runLogin(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&flags.Password, "password", "p", "", "password")

	return cmd
}

func (a *app) runLogin(cmd *cobra.Command, flags *loginFlags) error {
	g := a.gate(a.deps.Config.Auth.LoginDelay)
	if s, ok := g.Session(); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Already logged in as %s\n", s.Username)
		return nil
	}

	username, password := flags.Username, flags.Password
	if username == "" || password == "" {
		if err := a.deps.Prompter.Credentials(&username, &password); err != nil {
			return fmt.Errorf("failed to read credentials: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Signing in...")
	s, err := g.Submit(contextOf(cmd), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return err
		}
		return fmt.Errorf("login failed: %w", err)
	}

	a.deps.Logger.Debug("session saved", "path", a.deps.SessionPath)
	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Logged in as %s (%s)", s.Username, s.Email))
	return nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := a.gate(0)
			if g.State() != auth.Authenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			if err := g.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "User:      %s\n", s.Username)
			if s.Email != "" {
				fmt.Fprintf(w, "Email:     %s\n", s.Email)
			}
			fmt.Fprintf(w, "Logged in: %s\n", s.LoginTime.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}
