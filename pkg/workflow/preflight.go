package workflow

import (
	"context"
	"fmt"

	"github.com/edgebind/edgebind/pkg/engine"
	"github.com/edgebind/edgebind/pkg/provider"
	"github.com/edgebind/edgebind/pkg/telemetry"
)

// Preflight checks the credentials and identifiers of the target against both
// authorities before any operation runs. Every failure is a precondition error.
func (d *Dispatcher) Preflight(ctx context.Context) (err error) {
	t := d.target
	ic := telemetry.StartOperation(d.tel.WithContext(ctx), "preflight",
		telemetry.AttrCorp.String(t.Corp),
		telemetry.AttrSite.String(t.Site),
		telemetry.AttrServiceID.String(t.ServiceID),
	)
	defer func() { ic.End(err) }()
	ctx = ic.Ctx

	d.console.Info("Checking the profile against the CDN and security APIs...")

	if _, err := d.cdn.ListServices(ctx, provider.ListServicesInput{}); err != nil {
		return preconditionFailure(fmt.Sprintf("the CDN key was rejected, services could not be listed (%s)", statusText(err)), err)
	}
	d.console.Info("CDN key is valid")

	svc, err := d.cdn.ServiceDetails(ctx, t.ServiceID)
	if err != nil {
		return preconditionFailure(fmt.Sprintf("service %s could not be found (%s)", t.ServiceID, statusText(err)), err)
	}
	d.console.Info(fmt.Sprintf("Service %s is %q", svc.ID, svc.Name))

	corps, err := d.security.ListCorps(ctx)
	if err != nil {
		return preconditionFailure(fmt.Sprintf("the security credentials were rejected, corps could not be listed (%s)", statusText(err)), err)
	}
	names := make([]string, 0, len(corps))
	for _, c := range corps {
		if c.Name == t.Corp {
			d.console.Info(fmt.Sprintf("Corp %s is accessible", t.Corp))
			ic.Logger.Debugf("preflight passed in %s", ic.Timer.Duration())
			return nil
		}
		names = append(names, c.Name)
	}
	return engine.NewPermanentError(fmt.Sprintf("corp %s is not accessible with these credentials", t.Corp), nil).
		WithCode(engine.ErrCodePrecondition).
		WithOperation("preflight").
		WithDetail("corps", names)
}

func preconditionFailure(msg string, err error) error {
	if engine.IsCancelled(err) {
		return engine.NewCancelledError(err).WithOperation("preflight")
	}
	return engine.NewPermanentError(msg, err).
		WithCode(engine.ErrCodePrecondition).
		WithOperation("preflight").
		WithStatus(provider.StatusCode(err))
}

func statusText(err error) string {
	if code := provider.StatusCode(err); code != 0 {
		return fmt.Sprintf("status %d", code)
	}
	return "no response"
}
