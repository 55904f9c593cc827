package app

import (
	"github.com/spf13/cobra"

	"github.com/scopeguard/scopeguard/internal/daemon"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ScopeGuard web service and expiry sweeper",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfig()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err //nolint:wrapcheck
		}

		return d.Start() //nolint:wrapcheck
	},
}
