package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scopeguard/scopeguard/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Migrate the database and load the role catalog file",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfig()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err //nolint:wrapcheck
		}
		defer d.Close()

		s, err := d.Seed(cmd.Context())
		if err != nil {
			return err //nolint:wrapcheck
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(),
			"modules: %d, tenants: %d, users: %d, roles: %d, incompatibilities: %d\n",
			s.Modules, s.Tenants, s.Users, s.Roles, s.Incompatibilities)

		return err //nolint:wrapcheck
	},
}
