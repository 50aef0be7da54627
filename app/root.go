// Package app implements the main application commands.
package app

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/accessd/accessd/internal/config"
	"github.com/accessd/accessd/internal/logger"
)

const (
	envPrefix     = "ACCESSD"
	flagConfigDir = "config"
	flagDev       = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "accessd",
	Short: "accessd is a role based authorization service",
	Long: `accessd resolves users into roles, permissions and menus and answers
access decisions over HTTP for the services in front of it.`,
	Args:              cobra.OnlyValidArgs,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().String(flagConfigDir, "./etc/", "directory holding main.toml")
	rootCmd.PersistentFlags().Bool(flagDev, false, "Enable dev mode")

	_ = viper.BindPFlag(flagConfigDir, rootCmd.PersistentFlags().Lookup(flagConfigDir))
	_ = viper.BindPFlag(flagDev, rootCmd.PersistentFlags().Lookup(flagDev))

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

var cfg config.Config

// loadConfig reads main.toml from the directory given by --config or ACCESSD_CONFIG.
func loadConfig(_ *cobra.Command, _ []string) error {
	dir := viper.GetString(flagConfigDir)
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}

	var err error
	if cfg, err = config.ReadConfig(dir); err != nil {
		return err
	}

	if viper.GetBool(flagDev) {
		cfg.DevMode = true
	}

	return logger.Init(cfg.Log)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
