package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgebind/edgebind/pkg/provider"
)

func newProductCommand(opts *options) *cobra.Command {
	var product string

	cmd := &cobra.Command{
		Use:   "product",
		Short: "Query or enable a CDN add-on product on the service",
	}
	cmd.PersistentFlags().StringVar(&product, "product", provider.EdgeSecurityProduct, "product identifier")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether the product is enabled",
		Args:  positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			sid := s.target().ServiceID
			enabled, err := s.cdn.ProductStatus(cmd.Context(), product, sid)
			if err != nil {
				return err
			}
			if enabled {
				s.console.Success(fmt.Sprintf("%s is enabled on service %s", product, sid))
			} else {
				s.console.Warn(fmt.Sprintf("%s is not enabled on service %s", product, sid))
			}
			return nil
		},
	}

	enable := &cobra.Command{
		Use:     "enable",
		Short:   "Enable the product on the service",
		Example: `  edgebind product enable --product ngwaf --yes`,
		Args:    positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			sid := s.target().ServiceID
			if !opts.assumeYes {
				ok, err := s.console.Confirm(cmd.Context(),
					fmt.Sprintf("You are about to enable %s on service %s. Continue?", product, sid))
				if err != nil {
					return err
				}
				if !ok {
					s.console.Warn("aborted")
					return nil
				}
			}

			resp, err := s.cdn.EnableProduct(cmd.Context(), product, sid)
			if err != nil {
				return err
			}
			s.console.Success(fmt.Sprintf("%s enabled on service %s", product, sid))
			s.console.Payload(resp.Body)
			return nil
		},
	}

	cmd.AddCommand(status, enable)
	return cmd
}
