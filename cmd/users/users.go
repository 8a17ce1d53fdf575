package users

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/campusapi/cmd/cmdutil"
	"github.com/terraconstructs/campusapi/internal/config"
)

// UsersCmd is the parent command for principal management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage principals",
	Long:  `Commands for creating principals and changing their role or status directly from the server.`,
}

// withService loads configuration, builds the IAM service and runs fn with it.
func withService(ctx context.Context, fn func(b *cmdutil.IAMServiceBundle) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	bundle, err := cmdutil.NewIAMServiceBundle(ctx, cfg, cmdutil.IAMServiceOptions{})
	if err != nil {
		return err
	}
	defer bundle.Close()

	return fn(bundle)
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user")
	createCmd.Flags().StringVar(&nameFlag, "name", "", "Display name of the user")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for the user (use --stdin to avoid shell history)")
	createCmd.Flags().StringVar(&roleFlag, "role", "", "Role to assign (admin, staff, student). Derived from the email when omitted")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")

	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(setRoleCmd)
	UsersCmd.AddCommand(disableCmd)
	UsersCmd.AddCommand(enableCmd)
	UsersCmd.AddCommand(listCmd)
}
