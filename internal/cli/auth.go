package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/ghitriage/internal/render"
	"github.com/spf13/cobra"
)

var (
	loginUser     string
	loginPassword string
	logoutServer  bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Sign in with username and password. The token is persisted in the
configured session store and reused by later commands until it expires.

The password is read from --password, then GHI_PASSWORD, then stdin.

Example:
  ghitriage login -u analyst@ghi.gov
  echo "$PASS" | ghitriage login -u analyst@ghi.gov`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), false, func(a *app) error {
			password := loginPassword
			if password == "" {
				password = os.Getenv("GHI_PASSWORD")
			}
			if password == "" {
				var err error
				if password, err = readLine(cmd, "Password: "); err != nil {
					return err
				}
			}

			user, err := a.session.Login(cmd.Context(), a.client, loginUser, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			render.Success(cmd.OutOrStdout(), "logged in as %s (%s)", user.DisplayName(), user.Role)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), false, func(a *app) error {
			if logoutServer {
				if token := a.session.Token(); token != "" {
					// The local session is cleared regardless
					if err := a.client.Logout(cmd.Context(), token); err != nil {
						a.logger.Warn("server logout failed", "error", err)
					}
				}
			}
			if err := a.session.Logout(); err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "logged out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			user := a.session.User()
			return emit(user, func() { render.User(cmd.OutOrStdout(), user) })
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the session token for a fresh one",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(a *app) error {
			if err := a.session.Refresh(cmd.Context(), a.client); err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}
			render.Success(cmd.OutOrStdout(), "session refreshed")
			return nil
		})
	},
}

func readLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, refreshCmd)

	loginCmd.Flags().StringVarP(&loginUser, "username", "u", "", "username (email)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prefer GHI_PASSWORD or stdin)")
	_ = loginCmd.MarkFlagRequired("username")

	logoutCmd.Flags().BoolVar(&logoutServer, "server", false, "also notify the backend")
}
