package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/edgebind/edgebind/pkg/provider"
	"github.com/edgebind/edgebind/pkg/workflow"
)

var operationHelp = map[workflow.Operation]struct {
	short   string
	long    string
	example string
}{
	workflow.OpCreate: {
		short: "Create the edge deployment of the site",
		long: `Create the edge deployment container of the site on the security
authority. This is the first step before a CDN service can be bound.`,
		example: `  edgebind create --profile acme-www`,
	},
	workflow.OpInspect: {
		short: "Show the edge deployment of the site",
		long:  `Print the edge deployment of the site, including the attached services.`,
		example: `  edgebind inspect
  edgebind inspect --profile acme-www --skip-preflight`,
	},
	workflow.OpBind: {
		short: "Bind the edge deployment to the CDN service",
		long: `Map the edge deployment to the CDN service of the profile.

The security authority provisions the deployment asynchronously, so the bind
call is retried with a fixed delay (3s, set a positive delay in the retry
policy file to change it) until it is acknowledged. By default there is
no attempt limit: interrupt with Ctrl-C, or set max_attempts / max_elapsed in
the retry policy file. Statuses listed in fatal_statuses stop the retries.`,
		example: `  # Bind and wait for convergence
  edgebind bind --yes

  # Bind without activating the new service version
  edgebind bind --activate-version=false

  # Route half of the traffic through the WAF
  edgebind bind --percent-enabled 50`,
	},
	workflow.OpRebindBackends: {
		short:   "Resync the origins of the bound service",
		long:    `Refresh the backends of an already bound CDN service after its origins changed.`,
		example: `  edgebind rebind-backends --yes`,
	},
	workflow.OpDetach: {
		short:   "Detach the CDN service from the site",
		long:    `Remove the delivery integration between the site and the CDN service.`,
		example: `  edgebind detach`,
	},
	workflow.OpRemove: {
		short:   "Remove the edge deployment of the site",
		long:    `Delete the edge deployment of the site. Detach the service first.`,
		example: `  edgebind remove --yes`,
	},
}

func newOperationCommands(opts *options) []*cobra.Command {
	ops := workflow.Operations()
	cmds := make([]*cobra.Command, 0, len(ops))
	for _, op := range ops {
		cmds = append(cmds, newOperationCommand(opts, op))
	}
	return cmds
}

func newOperationCommand(opts *options, op workflow.Operation) *cobra.Command {
	help := operationHelp[op]
	var (
		activateVersion bool
		percentEnabled  int
	)

	cmd := &cobra.Command{
		Use:     op.String(),
		Short:   help.short,
		Long:    help.long,
		Example: help.example,
		Args:    positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			runOpts := *opts
			if op == workflow.OpBind {
				bindOpts, err := bindOptions(cmd, activateVersion, percentEnabled)
				if err != nil {
					return err
				}
				runOpts.bind = bindOpts
			}

			s, err := openSession(cmd, &runOpts)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.preflight(cmd.Context()); err != nil {
				return err
			}

			_, err = s.dispatcher.Run(cmd.Context(), op)
			if errors.Is(err, workflow.ErrDeclined) {
				s.console.Warn("aborted")
				return nil
			}
			return err
		},
	}

	if op == workflow.OpBind {
		cmd.Flags().BoolVar(&activateVersion, "activate-version", true, "activate the new service version")
		cmd.Flags().IntVar(&percentEnabled, "percent-enabled", 100, "percentage of traffic sent through the WAF (0-100)")
	}
	return cmd
}

// bindOptions sends only the flags the operator set explicitly.
func bindOptions(cmd *cobra.Command, activateVersion bool, percentEnabled int) (provider.BindOptions, error) {
	var o provider.BindOptions
	if cmd.Flags().Changed("activate-version") {
		o.ActivateVersion = &activateVersion
	}
	if cmd.Flags().Changed("percent-enabled") {
		if percentEnabled < 0 || percentEnabled > 100 {
			return o, NewExitError(ExitPrecondition, "--percent-enabled must be between 0 and 100")
		}
		o.PercentEnabled = &percentEnabled
	}
	return o, nil
}
