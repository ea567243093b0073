package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edgebind/edgebind/pkg/engine"
	"github.com/edgebind/edgebind/pkg/provider"
	"github.com/edgebind/edgebind/pkg/telemetry"
	"github.com/edgebind/edgebind/pkg/ui"
)

var (
	// ErrDeclined is returned when the operator does not confirm a mutating operation.
	ErrDeclined = errors.New("operation declined")

	// ErrInvalidChoice is wrapped by the error returned for an unknown menu entry.
	ErrInvalidChoice = errors.New("invalid choice")
)

// bindNotice is shown before the first bind attempt.
const bindNotice = "This can take up to 3 minutes, so do not panic; that's normal."

// SecurityAPI is the part of the security authority the dispatcher uses.
type SecurityAPI interface {
	ListCorps(ctx context.Context) ([]provider.Corp, error)
	CreateEdgeDeployment(ctx context.Context, corp, site string) (*provider.Response, error)
	GetEdgeDeployment(ctx context.Context, corp, site string) (*provider.Response, error)
	BindService(ctx context.Context, corp, site, serviceID string, opts provider.BindOptions) (*provider.Response, error)
	ResyncBackends(ctx context.Context, corp, site, serviceID string) (*provider.Response, error)
	DetachService(ctx context.Context, corp, site, serviceID string) (*provider.Response, error)
	RemoveEdgeDeployment(ctx context.Context, corp, site string) (*provider.Response, error)
}

// CDNAPI is the part of the CDN authority the dispatcher uses.
type CDNAPI interface {
	ListServices(ctx context.Context, in provider.ListServicesInput) ([]provider.Service, error)
	ServiceDetails(ctx context.Context, serviceID string) (*provider.ServiceDetails, error)
}

// Config holds the collaborators of a Dispatcher.
type Config struct {
	Target    engine.Target
	Security  SecurityAPI
	CDN       CDNAPI
	Converger *engine.Converger
	Console   *ui.Console
	Telemetry *telemetry.Telemetry

	// AssumeYes skips confirmation of mutating operations.
	AssumeYes bool

	// BindOptions are sent with every bind attempt.
	BindOptions provider.BindOptions
}

// Outcome is the result of one dispatched operation.
type Outcome struct {
	Operation Operation

	// StatusCode is the status of the last provider reply.
	StatusCode int

	// Payload is the body to show the operator.
	Payload []byte

	// Result is the convergence result, set for OpBind only.
	Result *engine.Result
}

// Dispatcher runs operator operations against one binding target.
type Dispatcher struct {
	target    engine.Target
	security  SecurityAPI
	cdn       CDNAPI
	converger *engine.Converger
	console   *ui.Console
	tel       *telemetry.Telemetry
	assumeYes bool
	bindOpts  provider.BindOptions
}

// NewDispatcher validates cfg and creates a dispatcher.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if err := cfg.Target.Validate(); err != nil {
		return nil, err
	}
	if cfg.Security == nil || cfg.CDN == nil {
		return nil, engine.NewValidationError("both provider clients are required")
	}
	if cfg.Console == nil {
		return nil, engine.NewValidationError("a console is required")
	}

	tel := cfg.Telemetry
	if tel == nil {
		tel = telemetry.NewNop()
	}
	cv := cfg.Converger
	if cv == nil {
		cv = NewConverger(engine.DefaultPolicy(), tel, cfg.Console)
	}

	return &Dispatcher{
		target:    cfg.Target,
		security:  cfg.Security,
		cdn:       cfg.CDN,
		converger: cv,
		console:   cfg.Console,
		tel:       tel,
		assumeYes: cfg.AssumeYes,
		bindOpts:  cfg.BindOptions,
	}, nil
}

// Target returns the binding target.
func (d *Dispatcher) Target() engine.Target {
	return d.target
}

// Run executes op, asking for confirmation first when it mutates provider state.
//
// A declined confirmation returns ErrDeclined. Provider failures are returned
// as *engine.EngineError.
func (d *Dispatcher) Run(ctx context.Context, op Operation) (out *Outcome, err error) {
	if !op.Valid() {
		return nil, engine.NewValidationError("unknown operation " + op.String())
	}

	t := d.target
	ctx, span := d.tel.Tracer.StartWorkflowSpan(ctx, op.String(), t.Corp, t.Site, t.ServiceID)
	defer span.End()

	logger := d.tel.Logger.WithOperation(op.String()).WithTarget(t.Corp, t.Site, t.ServiceID)
	timer := telemetry.NewTimer()
	d.tel.Metrics.RecordWorkflowStarted(op.String())

	defer func() {
		status := "succeeded"
		switch {
		case errors.Is(err, ErrDeclined):
			status = "declined"
			telemetry.RecordSuccess(span)
		case err != nil:
			status = "failed"
			telemetry.RecordError(span, err)
			var ee *engine.EngineError
			if errors.As(err, &ee) {
				d.tel.Metrics.RecordError(string(ee.Class), ee.Code)
			}
			logger.WithError(err).Error("operation failed")
		default:
			telemetry.RecordSuccess(span)
			logger.Infof("operation completed in %s", timer.Duration())
		}
		d.tel.Metrics.RecordWorkflowCompleted(op.String(), status, timer.Duration())
	}()

	if op.Mutating() && !d.assumeYes {
		ok, cerr := d.console.Confirm(ctx, op.Confirmation(t))
		if cerr != nil {
			if engine.IsCancelled(cerr) {
				return nil, engine.NewCancelledError(cerr).WithOperation(op.String())
			}
			return nil, fmt.Errorf("failed to read confirmation: %w", cerr)
		}
		if !ok {
			logger.Info("operation declined by operator")
			return nil, ErrDeclined
		}
	}

	if op == OpBind {
		return d.bind(ctx, logger)
	}
	return d.oneShot(ctx, op)
}

func (d *Dispatcher) bind(ctx context.Context, logger *telemetry.Logger) (*Outcome, error) {
	d.console.Notice(bindNotice)

	bind := func(ctx context.Context, t engine.Target) (engine.Reply, error) {
		resp, err := d.security.BindService(ctx, t.Corp, t.Site, t.ServiceID, d.bindOpts)
		if err != nil {
			return engine.Reply{}, err
		}
		return resp.Reply(), nil
	}

	res, err := d.converger.Converge(ctx, d.target, bind)
	d.tel.Metrics.RecordBindRun(string(res.State), res.Attempts)
	logger.WithRunID(res.RunID).
		WithField("attempts", res.Attempts).
		WithField("state", string(res.State)).
		Debugf("convergence finished in %s", res.Duration())

	out := &Outcome{Operation: OpBind, StatusCode: res.StatusCode, Result: res}
	if err != nil {
		return out, err
	}

	out.Payload = res.Payload
	d.console.Success(fmt.Sprintf("%s worked after %d attempt(s) in %s",
		OpBind.Title(), res.Attempts, res.Duration().Round(time.Millisecond)))
	d.console.Payload(out.Payload)
	return out, nil
}

func (d *Dispatcher) oneShot(ctx context.Context, op Operation) (*Outcome, error) {
	t := d.target

	var (
		resp *provider.Response
		err  error
	)
	switch op {
	case OpCreate:
		resp, err = d.security.CreateEdgeDeployment(ctx, t.Corp, t.Site)
	case OpInspect:
		resp, err = d.security.GetEdgeDeployment(ctx, t.Corp, t.Site)
	case OpDetach:
		resp, err = d.security.DetachService(ctx, t.Corp, t.Site, t.ServiceID)
	case OpRemove:
		resp, err = d.security.RemoveEdgeDeployment(ctx, t.Corp, t.Site)
	case OpRebindBackends:
		resp, err = d.security.ResyncBackends(ctx, t.Corp, t.Site, t.ServiceID)
	default:
		return nil, engine.NewValidationError("operation " + op.String() + " has no direct call")
	}
	if err != nil {
		return nil, providerFailure(op, err)
	}

	if op == OpRemove && resp.StatusCode != 200 && resp.StatusCode != 204 {
		return nil, engine.NewPermanentError(
			fmt.Sprintf("%s returned unexpected status %s", strings.ToLower(op.Title()), resp.Status), nil).
			WithCode(engine.ErrCodeProviderFailed).
			WithOperation(op.String()).
			WithStatus(resp.StatusCode)
	}

	d.console.Success(op.Title() + " worked")
	d.console.Payload(resp.Body)
	return &Outcome{Operation: op, StatusCode: resp.StatusCode, Payload: resp.Body}, nil
}

// providerFailure converts a client error into an EngineError for op.
func providerFailure(op Operation, err error) error {
	if engine.IsCancelled(err) {
		return engine.NewCancelledError(err).WithOperation(op.String())
	}

	msg := strings.ToLower(op.Title()) + " failed"
	var se *provider.StatusError
	if errors.As(err, &se) {
		if m := se.Message(); m != "" {
			msg += ": " + m
		}
	}
	return engine.NewPermanentError(msg, err).
		WithCode(engine.ErrCodeProviderFailed).
		WithOperation(op.String()).
		WithStatus(provider.StatusCode(err))
}
