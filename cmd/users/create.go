package users

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/campusapi/cmd/cmdutil"
	"github.com/terraconstructs/campusapi/internal/auth"
	"github.com/terraconstructs/campusapi/internal/services/iam"
)

var (
	emailFlag    string
	nameFlag     string
	passwordFlag string
	roleFlag     string
	stdinFlag    bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a local principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		if nameFlag == "" {
			return fmt.Errorf("--name flag is required")
		}

		var role auth.Role
		if roleFlag != "" {
			parsed, err := auth.ParseRole(roleFlag)
			if err != nil {
				return fmt.Errorf("invalid role %q: valid roles are admin, staff, student", roleFlag)
			}
			role = parsed
		}

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
			if scanner.Scan() {
				password = strings.TrimRight(scanner.Text(), "\r\n")
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		return withService(cmd.Context(), func(b *cmdutil.IAMServiceBundle) error {
			principal, err := b.Service.CreateUser(cmd.Context(), iam.CreateUserInput{
				Email:    emailFlag,
				Password: password,
				Name:     nameFlag,
				Role:     role,
			})
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}

			logger := cmdutil.Logger("users create")
			logger.Info().
				Str("user_id", principal.ID).
				Str("role", string(principal.Role)).
				Msg("principal created")

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "User created successfully!")
			fmt.Fprintln(out, "----------------------------------------")
			fmt.Fprintf(out, "User ID: %s\n", principal.ID)
			fmt.Fprintf(out, "Email: %s\n", principal.Email)
			fmt.Fprintf(out, "Name: %s\n", principal.Name)
			fmt.Fprintf(out, "Role: %s\n", principal.Role)
			fmt.Fprintln(out, "----------------------------------------")
			return nil
		})
	},
}
