package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/accessd/accessd/internal/authz"
	"github.com/accessd/accessd/internal/daemon"
)

func init() { //nolint: gochecknoinits
	cacheInvalidateCmd.Flags().Uint64Var(&invalidateUserID, "user", 0, "Only drop the view of this user id")

	cacheCmd.AddCommand(cacheRebuildCmd, cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}

var (
	invalidateUserID uint64

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Operate the shared authorization cache",
	}

	cacheRebuildCmd = &cobra.Command{
		Use:   "rebuild",
		Short: "Flush the authorization cache and leave bypass mode",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := daemon.Open(cmd.Context(), &cfg)
			if err != nil {
				return err
			}

			defer func() {
				_ = d.Close()
			}()

			if err = d.Authz.RebuildCache(cmd.Context(), authz.SystemActor); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "authorization cache rebuilt")

			return nil
		},
	}

	cacheInvalidateCmd = &cobra.Command{
		Use:   "invalidate",
		Short: "Drop cached authorization views",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := daemon.Open(cmd.Context(), &cfg)
			if err != nil {
				return err
			}

			defer func() {
				_ = d.Close()
			}()

			in := authz.InvalidateInput{Scope: authz.ScopeAll}
			if invalidateUserID != 0 {
				in = authz.InvalidateInput{Scope: authz.ScopeUser, UserID: invalidateUserID}
			}

			if err = d.Authz.InvalidateCache(cmd.Context(), authz.SystemActor, in); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "authorization cache invalidated (%s)\n", in.Scope)

			return nil
		},
	}
)
