package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgebind/edgebind/pkg/provider"
	"github.com/edgebind/edgebind/pkg/ui"
)

// Environment variables read by the CLI. Nothing below cmd reads the environment.
const (
	EnvHome    = "EDGEBIND_HOME"
	EnvProfile = "EDGEBIND_PROFILE"
	EnvLevel   = "LOG_LEVEL"
)

// options holds the persistent flag values of one invocation.
type options struct {
	version string

	profile       string
	home          string
	policyPath    string
	assumeYes     bool
	skipPreflight bool

	logLevel      string
	logFormat     string
	metricsAddr   string
	traceExporter string
	traceEndpoint string
	noColor       bool

	securityURL string
	cdnURL      string
	rateLimit   float64

	// bind is set by the bind command only.
	bind provider.BindOptions
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &options{version: version}

	rootCmd := &cobra.Command{
		Use:   "edgebind",
		Short: "edgebind - WAF edge deployment operator",
		Long: `edgebind binds a WAF edge deployment to a CDN service.

Run without a subcommand to open the interactive menu, or call an operation
directly for scripted use:
  - create           create the edge deployment of the site
  - inspect          show the edge deployment
  - bind             map the deployment to the CDN service, retrying until it converges
  - rebind-backends  resync the service origins
  - detach           remove the delivery integration
  - remove           delete the edge deployment

Credentials and identifiers are read from a profile in ~/.edgebind.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          positional(cobra.NoArgs),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.SetNoColor(opts.noColor)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd, opts)
		},
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return WrapExitError(ExitPrecondition, "invalid arguments", err)
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.profile, "profile", "p", envOr(EnvProfile, ""), "profile name (default profile is ~/.edgebind/.env)")
	flags.StringVar(&opts.home, "home", os.Getenv(EnvHome), "profile directory (default ~/.edgebind)")
	flags.StringVar(&opts.policyPath, "policy", "", "retry policy file (default <home>/policy.yaml)")
	flags.BoolVarP(&opts.assumeYes, "yes", "y", false, "do not ask for confirmation")
	flags.BoolVar(&opts.skipPreflight, "skip-preflight", false, "skip the credential check against both APIs")
	flags.StringVar(&opts.logLevel, "log-level", envOr(EnvLevel, "info"), "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "console", "log format (console, json)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.StringVar(&opts.traceExporter, "trace-exporter", "none", "trace exporter (otlp, stdout, none)")
	flags.StringVar(&opts.traceEndpoint, "trace-endpoint", "localhost:4317", "OTLP gRPC endpoint")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&opts.securityURL, "security-url", "", "security API base URL")
	flags.StringVar(&opts.cdnURL, "cdn-url", "", "CDN API base URL")
	flags.Float64Var(&opts.rateLimit, "rate-limit", 0, "maximum API requests per second (default 5)")
	_ = flags.MarkHidden("security-url")
	_ = flags.MarkHidden("cdn-url")

	rootCmd.AddCommand(newOperationCommands(opts)...)
	rootCmd.AddCommand(newCheckCommand(opts))
	rootCmd.AddCommand(newProfileCommand(opts))
	rootCmd.AddCommand(newDictionaryCommand(opts))
	rootCmd.AddCommand(newProductCommand(opts))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runMenu(cmd *cobra.Command, opts *options) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.close()

	s.console.Banner(opts.version)
	if err := s.preflight(cmd.Context()); err != nil {
		return err
	}
	return s.dispatcher.Menu(cmd.Context())
}
