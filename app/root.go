// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scopeguard/scopeguard/internal/config"
	"github.com/scopeguard/scopeguard/internal/logger"
)

// EnvConfigDir names the env variable that replaces the --config default.
const EnvConfigDir = "SCOPEGUARD_CONFIG_DIR"

const configKey = "config"

var (
	cfg     config.Config
	devMode bool

	rootCmd = &cobra.Command{
		Use:   "scopeguard",
		Short: "ScopeGuard decides who may see which records and fields",
		Long: `ScopeGuard is a multi-tenant permission decision engine. It keeps role
assignments with full history, resolves data scopes and field level access
and masks sensitive values.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().String(configKey, "./etc/", "directory holding main.toml")

	_ = viper.BindPFlag(configKey, rootCmd.PersistentFlags().Lookup(configKey))
	_ = viper.BindEnv(configKey, EnvConfigDir)
}

// loadConfig reads the configuration and initializes the global logger.
func loadConfig() error {
	var err error

	if cfg, err = config.ReadConfig(viper.GetString(configKey)); err != nil {
		return err //nolint:wrapcheck
	}

	if devMode {
		cfg.DevMode = true
	}

	return logger.Init(cfg.Log) //nolint:wrapcheck
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute() //nolint:wrapcheck
}
