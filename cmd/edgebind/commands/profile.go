package commands

import (
	"errors"
	"sort"

	"github.com/spf13/cobra"

	"github.com/edgebind/edgebind/pkg/config"
	"github.com/edgebind/edgebind/pkg/ui"
)

func newProfileCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage credential profiles",
		Long: `Manage the credential profiles stored in the profile directory.

A profile is a dotenv file holding SIGSCI_EMAIL, SIGSCI_TOKEN, FASTLY_KEY,
corpName, siteShortName and fastlySID. The default profile is .env, a named
profile x is x.env.`,
	}

	cmd.AddCommand(newProfileInitCommand(opts))
	cmd.AddCommand(newProfileListCommand(opts))
	cmd.AddCommand(newProfileShowCommand(opts))

	return cmd
}

func newProfileInitCommand(opts *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [name]",
		Short: "Create a profile interactively",
		Example: `  # Create the default profile, optionally named <corp>-<site>
  edgebind profile init

  # Create a named profile
  edgebind profile init staging`,
		Args: positional(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			console := ui.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())

			name := opts.profile
			if len(args) == 1 {
				name = args[0]
			}
			if store.Exists(name) && !force {
				return NewExitError(ExitPrecondition, "profile already exists at "+store.Path(name)+", use --force to replace it")
			}

			console.Info("Please provide the following values:")
			p, path, err := config.Bootstrap(cmd.Context(), console, store, name)
			if err != nil {
				return err
			}
			console.Success("profile " + p.Name + " created at " + path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing profile")
	return cmd
}

func newProfileListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available profiles",
		Args:  positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			console := ui.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())

			names, err := store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				console.Info("No profiles found in " + store.Dir())
				return nil
			}
			fields := make([]ui.Field, 0, len(names))
			for _, n := range names {
				fields = append(fields, ui.Field{Label: n, Value: store.Path(n)})
			}
			console.Fields("Profiles", fields)
			return nil
		},
	}
}

func newProfileShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show a profile with secrets masked",
		Args:  positional(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			console := ui.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())

			name := opts.profile
			if len(args) == 1 {
				name = args[0]
			}
			p, err := store.Load(name)
			if errors.Is(err, config.ErrProfileNotFound) {
				return WrapExitError(ExitPrecondition, "cannot show profile", err)
			}
			if err != nil {
				return err
			}

			values := p.Redacted()
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fields := make([]ui.Field, 0, len(keys))
			for _, k := range keys {
				fields = append(fields, ui.Field{Label: k, Value: values[k]})
			}
			console.Fields("Profile "+p.Name+" ("+store.Path(p.Name)+")", fields)
			return nil
		},
	}
}
