package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "missing name", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: "service name"},
		{name: "missing version", mutate: func(c *Config) { c.ServiceVersion = "" }, wantErr: "service version"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "invalid log level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "invalid log format"},
		{
			name: "bad exporter",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "jaeger"
			},
			wantErr: "invalid trace exporter",
		},
		{
			name: "otlp without endpoint",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "otlp"
			},
			wantErr: "trace endpoint",
		},
		{name: "bad sampling", mutate: func(c *Config) { c.Tracing.SamplingRate = 2 }, wantErr: "sampling rate"},
		{
			name: "address without path",
			mutate: func(c *Config) {
				c.Metrics.ListenAddress = ":0"
				c.Metrics.Path = ""
			},
			wantErr: "metrics path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LoggingConfig{Level: "debug", Format: "json"}, &buf)

	logger.NewComponentLogger("engine").
		WithRunID("run-1").
		WithTarget("acme", "www", "SID123").
		WithOperation("bind").
		WithProvider("security").
		WithError(errors.New("boom")).
		Warn("attempt failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "acme", entry["corp"])
	assert.Equal(t, "www", entry["site"])
	assert.Equal(t, "SID123", entry["service_id"])
	assert.Equal(t, "bind", entry["operation"])
	assert.Equal(t, "security", entry["provider"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "attempt failed", entry["message"])
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Error("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_Context(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LoggingConfig{Level: "info", Format: "json"}, &buf)

	ctx := logger.WithRunID("run-9").WithContext(context.Background())
	FromContext(ctx).Info("from context")

	assert.Contains(t, buf.String(), `"run_id":"run-9"`)
	assert.NotNil(t, FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", ParseLevel("debug").String())
	assert.Equal(t, "error", ParseLevel("error").String())
	assert.Equal(t, "info", ParseLevel("nonsense").String())
}

func TestMetrics_Disabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.RecordWorkflowStarted("bind")
		m.RecordWorkflowCompleted("bind", "succeeded", time.Second)
		m.RecordBindAttempt("retryable", "not_ready", time.Second)
		m.RecordBindRun("succeeded", 3)
		m.RecordProviderCall("security", "bind", 200, time.Millisecond)
		m.RecordProviderError("security", "bind")
		m.RecordError("transient", "NOT_READY")
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.StartMetricsServer(NewNopLogger()))
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestMetrics_Record(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	require.NoError(t, err)

	m.RecordWorkflowStarted("bind")
	m.RecordBindAttempt("retryable", "not_ready", 0)
	m.RecordBindAttempt("retryable", "not_ready", 3*time.Second)
	m.RecordBindAttempt("succeeded", "success", 3*time.Second)
	m.RecordBindRun("succeeded", 3)
	m.RecordProviderCall("security", "bind", 503, 10*time.Millisecond)
	m.RecordProviderCall("security", "bind", 200, 10*time.Millisecond)
	m.RecordProviderError("security", "bind")
	m.RecordError("transient", "NOT_READY")
	m.RecordWorkflowCompleted("bind", "succeeded", 6*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.workflowsStarted.WithLabelValues("bind")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.workflowsCompleted.WithLabelValues("bind", "succeeded")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeWorkflows))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.bindAttempts.WithLabelValues("retryable", "not_ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bindAttempts.WithLabelValues("succeeded", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerCalls.WithLabelValues("security", "bind", "503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerErrors.WithLabelValues("security", "bind")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsByCode.WithLabelValues("NOT_READY")))

	assert.Equal(t, 1, testutil.CollectAndCount(m.bindWaits))
}

func TestMetrics_Handler(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	require.NoError(t, err)
	m.RecordBindAttempt("retryable", "transport", 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "edgebind_bind_attempts_total"))
}

func TestTracer_Disabled(t *testing.T) {
	tr, err := NewTracer(TracingConfig{Enabled: false}, "edgebind", "test", "test")
	require.NoError(t, err)

	ctx, span := tr.StartWorkflowSpan(context.Background(), "bind", "acme", "www", "SID123")
	RecordError(span, errors.New("boom"))
	RecordSuccess(span)
	span.End()

	assert.Empty(t, TraceID(ctx))
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestTracer_NoneExporter(t *testing.T) {
	cfg := DefaultConfig().Tracing
	cfg.Enabled = true
	cfg.Exporter = "none"

	tr, err := NewTracer(cfg, "edgebind", "test", "test")
	require.NoError(t, err)
	defer tr.Shutdown(context.Background())

	ctx, span := tr.StartProviderSpan(context.Background(), "security", "bind")
	defer span.End()

	assert.NotEmpty(t, TraceID(ctx))
}

func TestNewTelemetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Output = "stderr"

	tel, err := NewTelemetry(cfg)
	require.NoError(t, err)

	ctx := tel.WithContext(context.Background())
	assert.Same(t, tel, FromTelemetryContext(ctx))
	assert.Nil(t, FromTelemetryContext(context.Background()))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestStartOperation_WithoutTelemetry(t *testing.T) {
	op := StartOperation(context.Background(), "workflow.inspect")

	assert.Nil(t, op.Span)
	assert.NotNil(t, op.Logger)
	assert.NotPanics(t, func() { op.End(errors.New("boom")) })
}
