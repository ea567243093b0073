package commands

import (
	"github.com/spf13/cobra"
)

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the profile against both APIs",
		Long: `Validate the selected profile without changing anything:
  - the CDN key can list services
  - the service ID resolves to a service
  - the corp is visible to the security credentials

Exits with status 2 when a check fails.`,
		Example: `  edgebind check --profile acme-www`,
		Args:    positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.dispatcher.Preflight(cmd.Context()); err != nil {
				return err
			}
			s.console.Success("profile " + s.profile.Name + " is ready for " + s.target().String())
			return nil
		},
	}
}
