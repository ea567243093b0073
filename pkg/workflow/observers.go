package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/edgebind/edgebind/pkg/engine"
	"github.com/edgebind/edgebind/pkg/provider"
	"github.com/edgebind/edgebind/pkg/telemetry"
	"github.com/edgebind/edgebind/pkg/ui"
)

// consoleObserver shows the operator each attempt that did not converge.
type consoleObserver struct {
	console *ui.Console
	delay   time.Duration
}

func (o consoleObserver) OnStateChange(context.Context, engine.State, engine.State) {}

func (o consoleObserver) OnAttempt(_ context.Context, a engine.Attempt) {
	if a.Outcome != engine.OutcomeRetryable {
		return
	}
	o.console.Attempt(a.Number, a.StatusCode, a.Status, a.Reason, attemptDetail(a), o.delay)
}

// attemptDetail returns the cause of an attempt that received no status.
func attemptDetail(a engine.Attempt) string {
	if a.StatusCode != 0 || a.Err == nil {
		return ""
	}
	var se *provider.StatusError
	if errors.As(a.Err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	var ee *engine.EngineError
	if errors.As(a.Err, &ee) && ee.Err != nil {
		return ee.Err.Error()
	}
	return a.Err.Error()
}

// logObserver writes every transition and attempt to the structured log.
type logObserver struct {
	logger *telemetry.Logger
}

func (o logObserver) OnStateChange(_ context.Context, from, to engine.State) {
	o.logger.WithFields(map[string]interface{}{
		"from": string(from),
		"to":   string(to),
	}).Trace("bind state changed")
}

func (o logObserver) OnAttempt(_ context.Context, a engine.Attempt) {
	l := o.logger.WithFields(map[string]interface{}{
		"attempt":     a.Number,
		"outcome":     string(a.Outcome),
		"reason":      a.Reason,
		"status_code": a.StatusCode,
		"duration":    a.Duration.String(),
	})
	if a.Err != nil {
		l = l.WithError(a.Err)
	}

	switch a.Outcome {
	case engine.OutcomeSucceeded:
		l.Info("bind attempt succeeded")
	case engine.OutcomeRetryable:
		l.Warn("bind attempt not ready, retrying")
	default:
		l.Error("bind attempt failed")
	}
}

// metricsObserver counts attempts and backoff waits.
type metricsObserver struct {
	metrics *telemetry.Metrics
}

func (o metricsObserver) OnStateChange(context.Context, engine.State, engine.State) {}

func (o metricsObserver) OnAttempt(_ context.Context, a engine.Attempt) {
	o.metrics.RecordBindAttempt(string(a.Outcome), a.Reason, a.Waited)
}

// NewConverger builds a converger for policy that reports to the console,
// the log and the metrics of tel. Extra options are applied last.
func NewConverger(policy engine.Policy, tel *telemetry.Telemetry, console *ui.Console, opts ...engine.Option) *engine.Converger {
	if tel == nil {
		tel = telemetry.NewNop()
	}
	base := []engine.Option{
		engine.WithTracer(tel.Tracer.Tracer()),
		engine.WithObserver(logObserver{logger: tel.Logger.NewComponentLogger("converger")}),
		engine.WithObserver(metricsObserver{metrics: tel.Metrics}),
	}
	if console != nil {
		base = append(base, engine.WithObserver(consoleObserver{console: console, delay: policy.Delay}))
	}
	return engine.NewConverger(policy, append(base, opts...)...)
}
