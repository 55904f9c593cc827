package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scopeguard/scopeguard/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(expireCmd)
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Deactivate every assignment whose validity has ended",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfig()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err //nolint:wrapcheck
		}
		defer d.Close()

		n, err := d.Expire(cmd.Context())
		if err != nil {
			return err //nolint:wrapcheck
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "expired assignments: %d\n", n)

		return err //nolint:wrapcheck
	},
}
