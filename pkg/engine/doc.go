// Package engine implements the convergence loop that binds a security site
// to a CDN service.
//
// # Overview
//
// Provisioning a virtual WAF edge deployment is asynchronous on the provider
// side. Right after the deployment container is created, the bind call is
// rejected with non-success statuses until provisioning completes, which
// usually takes up to three minutes. The engine therefore issues the bind call
// repeatedly, waiting a fixed delay between attempts, until the provider
// acknowledges it.
//
// # State Machine
//
// Every run walks a small state machine:
//
//	idle -> attempting -> succeeded
//	                   -> retrying -> attempting
//	                   -> fatal_failed
//
// Success and fatal failure are terminal. Observers are notified of every
// transition and of every attempt, in order, exactly once.
//
// # Classification
//
// Each attempt is classified by a Classifier. The default PolicyClassifier
// treats the statuses in Policy.SuccessStatuses as convergence and everything
// else as retryable, except:
//
//   - validation errors raised by the bind call (permanent EngineErrors)
//   - statuses listed in Policy.FatalStatuses
//   - cancellation of the context
//
// Transport failures with no response are retryable.
//
// # Ceilings
//
// By default the loop has no ceiling: it stops only on success, a fatal
// classification or cancellation. Policy.MaxAttempts and Policy.MaxElapsed
// are opt-in ceilings that end the run with ErrCodeRetryExhausted.
//
// # Usage
//
//	cv := engine.NewConverger(engine.DefaultPolicy(),
//	    engine.WithObserver(progress),
//	    engine.WithTracer(tracer),
//	)
//	res, err := cv.Converge(ctx, target, func(ctx context.Context, t engine.Target) (engine.Reply, error) {
//	    return client.BindService(ctx, t.Corp, t.Site, t.ServiceID)
//	})
package engine
