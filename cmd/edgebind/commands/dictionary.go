package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/edgebind/edgebind/pkg/provider"
	"github.com/edgebind/edgebind/pkg/ui"
)

func newDictionaryCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dictionary",
		Short: "Read and update the edge security dictionary",
		Long: `Inspect the edge dictionary the deployment installs on the CDN service
(Edge_Security by default) and update its items. Dictionary items are
versionless: changes are live without activating a new service version.`,
	}

	cmd.AddCommand(newDictionaryGetCommand(opts))
	cmd.AddCommand(newDictionarySetCommand(opts))

	return cmd
}

func newDictionaryGetCommand(opts *options) *cobra.Command {
	var (
		name    string
		version int
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a dictionary of the service",
		Example: `  # Show Edge_Security on the latest service version
  edgebind dictionary get

  # Show another dictionary on version 12
  edgebind dictionary get --name my_dict --version 12`,
		Args: positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			dict, err := s.dictionary(cmd, name, version)
			if err != nil {
				return err
			}
			s.console.Fields("Dictionary "+dict.Name, []ui.Field{
				{Label: "id", Value: dict.ID},
				{Label: "service", Value: dict.ServiceID},
				{Label: "version", Value: strconv.Itoa(dict.Version)},
				{Label: "write_only", Value: strconv.FormatBool(dict.WriteOnly)},
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", provider.EdgeSecurityDictionary, "dictionary name")
	cmd.Flags().IntVar(&version, "version", 0, "service version (default latest)")
	return cmd
}

func newDictionarySetCommand(opts *options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:     "set KEY VALUE",
		Short:   "Create or update a dictionary item",
		Example: `  edgebind dictionary set Enabled 100 --yes`,
		Args:    positional(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			dict, err := s.dictionary(cmd, name, 0)
			if err != nil {
				return err
			}

			if !opts.assumeYes {
				ok, err := s.console.Confirm(cmd.Context(),
					fmt.Sprintf("You are about to set %s=%q in dictionary %s of service %s. Continue?", args[0], args[1], dict.Name, dict.ServiceID))
				if err != nil {
					return err
				}
				if !ok {
					s.console.Warn("aborted")
					return nil
				}
			}

			item, err := s.cdn.UpdateDictionaryItem(cmd.Context(), s.target().ServiceID, dict.ID, args[0], args[1])
			if err != nil {
				return err
			}
			s.console.Success(fmt.Sprintf("%s=%q set in dictionary %s", item.Key, item.Value, dict.Name))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", provider.EdgeSecurityDictionary, "dictionary name")
	return cmd
}

// dictionary resolves a dictionary on the given or latest service version.
func (s *session) dictionary(cmd *cobra.Command, name string, version int) (*provider.Dictionary, error) {
	sid := s.target().ServiceID
	if version <= 0 {
		v, err := s.cdn.LatestVersion(cmd.Context(), sid)
		if err != nil {
			return nil, err
		}
		version = v
	}
	return s.cdn.GetDictionary(cmd.Context(), sid, version, name)
}
