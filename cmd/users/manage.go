package users

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/campusapi/cmd/cmdutil"
	"github.com/terraconstructs/campusapi/internal/auth"
)

var setRoleCmd = &cobra.Command{
	Use:   "set-role <email> <role>",
	Short: "Change the role of a principal",
	Long: `Changes the stored role of a principal. Tokens already issued keep the
previous role until they expire; revoke them to apply the change immediately.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := auth.ParseRole(args[1])
		if err != nil {
			return fmt.Errorf("invalid role %q: valid roles are admin, staff, student", args[1])
		}

		return withService(cmd.Context(), func(b *cmdutil.IAMServiceBundle) error {
			principal, err := b.Service.SetRole(cmd.Context(), args[0], role)
			if err != nil {
				return fmt.Errorf("failed to set role: %w", err)
			}
			logger := cmdutil.Logger("users set-role")
			logger.Info().
				Str("user_id", principal.ID).
				Str("role", string(principal.Role)).
				Msg("role changed")
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", principal.Email, principal.Role)
			return nil
		})
	},
}

func statusCommand(use, short string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(b *cmdutil.IAMServiceBundle) error {
				if err := b.Service.SetDisabled(cmd.Context(), args[0], disabled); err != nil {
					return fmt.Errorf("failed to %s user: %w", use, err)
				}
				logger := cmdutil.Logger("users " + use)
				logger.Info().Str("email", args[0]).Msg("status changed")
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %sd\n", args[0], use)
				return nil
			})
		},
	}
}

var (
	disableCmd = statusCommand("disable", "Disable a principal (sign-in is refused)", true)
	enableCmd  = statusCommand("enable", "Re-enable a disabled principal", false)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List principals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(b *cmdutil.IAMServiceBundle) error {
			principals, err := b.Service.ListUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tPROVIDER")
			for _, p := range principals {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Email, p.Name, p.Role, p.Provider)
			}
			fmt.Fprintf(w, "\n%d principal(s) as of %s\n", len(principals), time.Now().UTC().Format(time.RFC3339))
			return w.Flush()
		})
	},
}
