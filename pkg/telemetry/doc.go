// Package telemetry provides logging, tracing and metrics for edgebind.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry) and metrics (Prometheus) behind a single Telemetry value
// created once per CLI invocation.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = version
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("workflow")
//	logger = logger.WithRunID(runID).WithTarget(corp, site, serviceID)
//	logger.Info("binding site to service")
//
// Credentials never appear in log fields.
//
// # Tracing
//
// Each dispatched operation opens a workflow span; the convergence engine
// opens bind.converge and bind.attempt spans under it, and every remote call
// is a client span named after the authority and operation. Exporters: otlp
// (gRPC), stdout (pretty JSON on stderr) and none.
//
// # Metrics
//
// Metrics live in a private registry. They are only served over HTTP when
// MetricsConfig.ListenAddress is set (the --metrics-addr flag):
//
//   - edgebind_workflows_started_total, edgebind_workflows_completed_total
//   - edgebind_workflow_duration_seconds, edgebind_active_workflows
//   - edgebind_bind_attempts_total, edgebind_bind_backoff_wait_seconds
//   - edgebind_bind_attempts_per_run
//   - edgebind_provider_calls_total, edgebind_provider_call_duration_seconds
//   - edgebind_provider_errors_total
//   - edgebind_errors_by_class_total, edgebind_errors_by_code_total
package telemetry
