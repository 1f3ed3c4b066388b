package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const passwordEnv = "RETREAT_ADMIN_PASSWORD"

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage staff accounts",
	}
	cmd.AddCommand(newAdminCreateCmd())
	return cmd
}

func newAdminCreateCmd() *cobra.Command {
	var (
		firstName     string
		lastName      string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create a staff account",
		Long: `Creates a staff account for the admin portal.

The password is read from ` + passwordEnv + `, or from the first line of stdin
with --password-stdin.

Example:
  printf '%s\n' "$PW" | retreatctl admin create staff@example.org --password-stdin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv(passwordEnv)
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password is required: set " + passwordEnv + " or use --password-stdin")
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.Admin.CreateUser(cmd.Context(), args[0], password, firstName, lastName)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name (derived from the email when empty)")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}
