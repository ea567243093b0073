package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Converger drives the bind operation until the provider acknowledges it.
//
// One Converger can serve many sequential runs; it holds no per-run state.
type Converger struct {
	policy     Policy
	classifier Classifier
	clock      Clock
	observer   Observer
	tracer     trace.Tracer
	newBackOff func() backoff.BackOff
	newRunID   func() string
}

// Option configures a Converger.
type Option func(*Converger)

// WithClassifier replaces the policy-derived classifier.
func WithClassifier(c Classifier) Option {
	return func(cv *Converger) {
		cv.classifier = c
	}
}

// WithClock sets the clock used for timestamps and backoff waits.
func WithClock(c Clock) Option {
	return func(cv *Converger) {
		cv.clock = c
	}
}

// WithObserver registers an observer. Multiple calls accumulate.
func WithObserver(o Observer) Option {
	return func(cv *Converger) {
		if existing, ok := cv.observer.(Observers); ok {
			cv.observer = append(existing, o)
			return
		}
		cv.observer = Observers{o}
	}
}

// WithTracer sets the tracer for converge and attempt spans.
func WithTracer(t trace.Tracer) Option {
	return func(cv *Converger) {
		cv.tracer = t
	}
}

// WithBackOff overrides the delay source. The default is a constant backoff of Policy.Delay.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(cv *Converger) {
		cv.newBackOff = f
	}
}

// WithRunIDs sets the run ID generator.
func WithRunIDs(f func() string) Option {
	return func(cv *Converger) {
		cv.newRunID = f
	}
}

// NewConverger creates a converger for the given policy.
func NewConverger(p Policy, opts ...Option) *Converger {
	p = p.normalize()
	cv := &Converger{
		policy:     p,
		classifier: NewPolicyClassifier(p),
		clock:      SystemClock{},
		observer:   NoopObserver{},
		tracer:     noop.NewTracerProvider().Tracer("edgebind/engine"),
		newBackOff: p.BackOff,
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(cv)
	}
	return cv
}

// Policy returns the effective policy.
func (c *Converger) Policy() Policy {
	return c.policy
}

// run tracks the state machine of a single Converge call.
type run struct {
	state State
}

// Converge repeatedly invokes bind for target until the provider reports
// success or a failure is classified fatal.
//
// It always returns a non-nil Result. The error is nil exactly when
// Result.State is StateSucceeded; otherwise it is the *EngineError stored in
// Result.Err.
func (c *Converger) Converge(ctx context.Context, target Target, bind BindFunc) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "bind.converge", trace.WithAttributes(
		attribute.String("target.corp", target.Corp),
		attribute.String("target.site", target.Site),
		attribute.String("target.service_id", target.ServiceID),
	))
	defer span.End()

	r := &run{state: StateIdle}
	res := &Result{
		RunID:     c.newRunID(),
		Target:    target,
		StartedAt: c.clock.Now(),
	}
	span.SetAttributes(attribute.String("run.id", res.RunID))

	if err := target.Validate(); err != nil {
		var ee *EngineError
		if !errors.As(err, &ee) {
			ee = NewValidationError(err.Error())
		}
		return c.fail(ctx, span, r, res, ee)
	}
	if bind == nil {
		return c.fail(ctx, span, r, res, NewValidationError("no bind call configured"))
	}

	b := c.newBackOff()
	b.Reset()

	var waited time.Duration
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return c.fail(ctx, span, r, res, NewCancelledError(err))
		}

		c.transition(ctx, r, StateAttempting)
		att, cls := c.attempt(ctx, target, bind, n, waited)
		res.Attempts = n
		res.StatusCode = att.StatusCode
		c.observer.OnAttempt(ctx, att)

		switch cls.Kind {
		case OutcomeSucceeded:
			c.transition(ctx, r, StateSucceeded)
			res.State = StateSucceeded
			res.Payload = cls.payload
			res.CompletedAt = c.clock.Now()
			span.SetAttributes(attribute.Int("bind.attempts", n))
			span.SetStatus(codes.Ok, "")
			return res, nil
		case OutcomeFatal:
			return c.fail(ctx, span, r, res, cls.Err)
		}

		if err := c.checkCeiling(n, res.StartedAt, cls.Err); err != nil {
			return c.fail(ctx, span, r, res, err)
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return c.fail(ctx, span, r, res, exhausted("backoff stopped", cls.Err))
		}

		c.transition(ctx, r, StateRetrying)
		before := c.clock.Now()
		if err := c.clock.Sleep(ctx, delay); err != nil {
			return c.fail(ctx, span, r, res, NewCancelledError(err))
		}
		waited = c.clock.Now().Sub(before)
	}
}

// classified pairs a Classification with the reply payload it came from.
type classified struct {
	Classification
	payload []byte
}

func (c *Converger) attempt(ctx context.Context, target Target, bind BindFunc, n int, waited time.Duration) (Attempt, classified) {
	ctx, span := c.tracer.Start(ctx, "bind.attempt", trace.WithAttributes(
		attribute.Int("attempt.number", n),
	))
	defer span.End()

	started := c.clock.Now()
	reply, err := bind(ctx, target)

	var cls Classification
	if err != nil {
		cls = c.classifier.Classify(nil, err)
	} else {
		cls = c.classifier.Classify(&reply, nil)
	}
	if cls.StatusCode == 0 && err == nil {
		cls.StatusCode = reply.StatusCode
	}

	att := Attempt{
		Number:     n,
		Outcome:    cls.Kind,
		Reason:     cls.Reason,
		StatusCode: cls.StatusCode,
		Status:     cls.Status,
		Waited:     waited,
		StartedAt:  started,
		Duration:   c.clock.Now().Sub(started),
	}
	if cls.Err != nil {
		att.Err = cls.Err
	}

	span.SetAttributes(
		attribute.String("attempt.outcome", string(cls.Kind)),
		attribute.String("attempt.reason", cls.Reason),
		attribute.Int("http.status_code", cls.StatusCode),
	)
	if cls.Kind != OutcomeSucceeded && cls.Err != nil {
		span.RecordError(cls.Err)
	}

	out := classified{Classification: cls}
	if cls.Kind == OutcomeSucceeded {
		out.payload = reply.Body
	}
	return att, out
}

func (c *Converger) checkCeiling(n int, started time.Time, last *EngineError) *EngineError {
	if c.policy.MaxAttempts > 0 && n >= c.policy.MaxAttempts {
		return exhausted(fmt.Sprintf("gave up after %d attempts", n), last).
			WithDetail("max_attempts", c.policy.MaxAttempts)
	}
	if c.policy.MaxElapsed > 0 {
		elapsed := c.clock.Now().Sub(started)
		if elapsed+c.policy.Delay > c.policy.MaxElapsed {
			return exhausted(fmt.Sprintf("gave up after %s", elapsed.Round(time.Millisecond)), last).
				WithDetail("max_elapsed", c.policy.MaxElapsed.String())
		}
	}
	return nil
}

func exhausted(message string, last *EngineError) *EngineError {
	var cause error
	status := 0
	if last != nil {
		cause = last
		status = last.StatusCode
	}
	return NewPermanentError(message, cause).
		WithCode(ErrCodeRetryExhausted).
		WithStatus(status)
}

func (c *Converger) fail(ctx context.Context, span trace.Span, r *run, res *Result, err *EngineError) (*Result, error) {
	c.transition(ctx, r, StateFatalFailed)
	if err == nil {
		err = NewPermanentError("bind failed", nil).WithCode(ErrCodeProviderFailed)
	}
	if err.Operation == "" {
		err.WithOperation("bind")
	}
	res.State = StateFatalFailed
	res.Err = err
	res.CompletedAt = c.clock.Now()

	span.SetAttributes(
		attribute.Int("bind.attempts", res.Attempts),
		attribute.String("error.class", string(err.Class)),
		attribute.String("error.code", err.Code),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return res, err
}

// transition moves the run to next and notifies observers.
// An illegal transition is a programming error.
func (c *Converger) transition(ctx context.Context, r *run, next State) {
	if !r.state.CanTransition(next) {
		panic(fmt.Sprintf("engine: illegal transition %s -> %s", r.state, next))
	}
	prev := r.state
	r.state = next
	c.observer.OnStateChange(ctx, prev, next)
}
