package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/accessd/accessd/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the system permissions, menus, roles and the super admin account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := daemon.Open(cmd.Context(), &cfg)
		if err != nil {
			return err
		}

		defer func() {
			_ = d.Close()
		}()

		res, err := daemon.Seed(cmd.Context(), d.DB, d.Authz, &cfg)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"created %d permissions, %d menus, %d authorizations; super admin role %d, user %d\n",
			res.Permissions, res.Menus, res.Authorizations, res.SuperAdminRoleID, res.UserID)

		return nil
	},
}
