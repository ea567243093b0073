package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgebind/edgebind/pkg/config"
	"github.com/edgebind/edgebind/pkg/engine"
	"github.com/edgebind/edgebind/pkg/provider"
	"github.com/edgebind/edgebind/pkg/telemetry"
	"github.com/edgebind/edgebind/pkg/ui"
	"github.com/edgebind/edgebind/pkg/workflow"
)

// session wires the collaborators of one command invocation.
type session struct {
	opts       *options
	console    *ui.Console
	tel        *telemetry.Telemetry
	store      *config.Store
	profile    *config.Profile
	security   *provider.SecurityClient
	cdn        *provider.CDNClient
	dispatcher *workflow.Dispatcher
}

// newTelemetry builds the logger, tracer and metrics from the persistent flags.
func newTelemetry(cmd *cobra.Command, opts *options) (*telemetry.Telemetry, error) {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = opts.version
	cfg.Logging.Level = strings.ToLower(opts.logLevel)
	cfg.Logging.Format = opts.logFormat
	cfg.Logging.NoColor = opts.noColor
	cfg.Metrics.ListenAddress = opts.metricsAddr
	if opts.traceExporter != "" && opts.traceExporter != "none" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = opts.traceExporter
		cfg.Tracing.Endpoint = opts.traceEndpoint
	}

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return nil, WrapExitError(ExitPrecondition, "invalid telemetry flags", err)
	}
	tel.Logger = telemetry.NewLoggerWithWriter(cfg.Logging, cmd.ErrOrStderr())

	if err := tel.StartMetricsServer(); err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}
	return tel, nil
}

// homeDir resolves the profile directory.
func homeDir(opts *options) (string, error) {
	if opts.home != "" {
		return opts.home, nil
	}
	return config.DefaultDir()
}

// openStore opens the profile store without loading a profile.
func openStore(opts *options) (*config.Store, error) {
	dir, err := homeDir(opts)
	if err != nil {
		return nil, WrapExitError(ExitPrecondition, "cannot locate profile directory", err)
	}
	return config.NewStore(dir), nil
}

// openSession loads the profile and policy and builds the provider clients
// and the dispatcher.
func openSession(cmd *cobra.Command, opts *options) (*session, error) {
	console := ui.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())

	tel, err := newTelemetry(cmd, opts)
	if err != nil {
		return nil, err
	}
	s := &session{opts: opts, console: console, tel: tel}

	if err := s.load(cmd.Context()); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) load(ctx context.Context) error {
	store, err := openStore(s.opts)
	if err != nil {
		return err
	}
	s.store = store

	profile, err := s.loadProfile(ctx)
	if err != nil {
		return err
	}
	s.profile = profile

	policyPath := s.opts.policyPath
	if policyPath == "" {
		policyPath = config.PolicyPath(store.Dir())
	}
	policy, err := config.LoadPolicy(policyPath, s.opts.policyPath != "")
	if err != nil {
		return WrapExitError(ExitPrecondition, "cannot load retry policy", err)
	}

	logger := s.tel.Logger.WithField("profile", profile.Name)
	logger.WithFields(map[string]interface{}{
		"delay":        policy.Delay.String(),
		"max_attempts": policy.MaxAttempts,
		"max_elapsed":  policy.MaxElapsed.String(),
		"unbounded":    policy.Unbounded(),
	}).Debug("retry policy loaded")

	clientOpts := []provider.Option{
		provider.WithMetrics(s.tel.Metrics),
		provider.WithTracer(s.tel.Tracer),
		provider.WithLogger(s.tel.Logger),
		provider.WithUserAgent("edgebind/" + s.opts.version),
	}
	if s.opts.rateLimit > 0 {
		clientOpts = append(clientOpts, provider.WithRateLimit(s.opts.rateLimit, provider.DefaultBurst))
	}

	securityOpts := clientOpts
	if s.opts.securityURL != "" {
		securityOpts = append(append([]provider.Option(nil), clientOpts...), provider.WithBaseURL(s.opts.securityURL))
	}
	cdnOpts := clientOpts
	if s.opts.cdnURL != "" {
		cdnOpts = append(append([]provider.Option(nil), clientOpts...), provider.WithBaseURL(s.opts.cdnURL))
	}
	s.security = provider.NewSecurityClient(profile.Email, profile.Token, profile.CDNKey, securityOpts...)
	s.cdn = provider.NewCDNClient(profile.CDNKey, cdnOpts...)

	d, err := workflow.NewDispatcher(workflow.Config{
		Target:      profile.Target(),
		Security:    s.security,
		CDN:         s.cdn,
		Converger:   workflow.NewConverger(policy, s.tel, s.console),
		Console:     s.console,
		Telemetry:   s.tel,
		AssumeYes:   s.opts.assumeYes,
		BindOptions: s.opts.bind,
	})
	if err != nil {
		return err
	}
	s.dispatcher = d
	return nil
}

// loadProfile reads the selected profile. A missing profile is created
// interactively when input is a terminal.
func (s *session) loadProfile(ctx context.Context) (*config.Profile, error) {
	p, err := s.store.Load(s.opts.profile)
	if err == nil {
		s.console.Fields("Profile "+p.Name+" loaded", []ui.Field{
			{Label: config.KeyEmail, Value: p.Email},
			{Label: config.KeyCorp, Value: p.Corp},
			{Label: config.KeySite, Value: p.Site},
			{Label: config.KeyServiceID, Value: p.ServiceID},
		})
		return p, nil
	}
	if !errors.Is(err, config.ErrProfileNotFound) {
		return nil, err
	}

	s.console.Error(err.Error())
	s.showProfiles()

	if !s.console.Interactive() {
		return nil, WrapExitError(ExitPrecondition, "no usable profile, run 'edgebind profile init'", err)
	}
	create, cerr := s.console.Confirm(ctx, "Would you like to continue and create a new profile?")
	if cerr != nil {
		return nil, cerr
	}
	if !create {
		return nil, WrapExitError(ExitPrecondition, "aborting", config.ErrBootstrapDeclined)
	}

	p, path, err := config.Bootstrap(ctx, s.console, s.store, s.opts.profile)
	if err != nil {
		return nil, err
	}
	s.console.Success("profile created at " + path)
	return p, nil
}

// showProfiles lists the profiles available for --profile.
func (s *session) showProfiles() {
	names, err := s.store.List()
	if err != nil || len(names) == 0 {
		s.console.Info("No profiles found in " + s.store.Dir())
		return
	}
	s.console.Info("Available profiles (select one with --profile):")
	for _, n := range names {
		s.console.Info("  - " + n)
	}
}

// preflight validates the profile against both APIs unless disabled.
func (s *session) preflight(ctx context.Context) error {
	if s.opts.skipPreflight {
		s.tel.Logger.Debug("preflight skipped")
		return nil
	}
	return s.dispatcher.Preflight(ctx)
}

func (s *session) target() engine.Target {
	return s.profile.Target()
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tel.Shutdown(ctx); err != nil {
		s.tel.Logger.WithError(err).Warn("telemetry shutdown failed")
	}
}
