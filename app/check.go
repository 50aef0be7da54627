package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/accessd/accessd/internal/config"
	"github.com/accessd/accessd/internal/daemon"
)

func init() { //nolint: gochecknoinits
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the configuration as JSON")
	checkCmd.Flags().BoolVar(&checkConnect, "connect", false, "Also connect to the database and the cache backend")

	rootCmd.AddCommand(checkCmd)
}

var (
	checkJSON    bool
	checkConnect bool

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Validate and print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dump := config.DumpConfig
			if checkJSON {
				dump = config.DumpConfigJSON
			}

			out, err := dump(&cfg)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), out)

			if !checkConnect {
				return nil
			}

			d, err := daemon.Open(cmd.Context(), &cfg)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "database %s and cache %s reachable\n", cfg.DB.GormEngine, cfg.Cache.Backend)

			return d.Close()
		},
	}
)
