package engine

import "context"

// Observer receives convergence progress. Implementations must not block for
// long; they run on the engine goroutine between attempts.
type Observer interface {
	// OnStateChange is called for every state machine transition.
	OnStateChange(ctx context.Context, from, to State)

	// OnAttempt is called exactly once per attempt, before any backoff wait.
	OnAttempt(ctx context.Context, attempt Attempt)
}

// NoopObserver ignores all notifications.
type NoopObserver struct{}

// OnStateChange implements Observer.
func (NoopObserver) OnStateChange(context.Context, State, State) {}

// OnAttempt implements Observer.
func (NoopObserver) OnAttempt(context.Context, Attempt) {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

// OnStateChange implements Observer.
func (o Observers) OnStateChange(ctx context.Context, from, to State) {
	for _, obs := range o {
		obs.OnStateChange(ctx, from, to)
	}
}

// OnAttempt implements Observer.
func (o Observers) OnAttempt(ctx context.Context, attempt Attempt) {
	for _, obs := range o {
		obs.OnAttempt(ctx, attempt)
	}
}

// AttemptFunc adapts a function to an Observer that only watches attempts.
type AttemptFunc func(ctx context.Context, attempt Attempt)

// OnStateChange implements Observer.
func (AttemptFunc) OnStateChange(context.Context, State, State) {}

// OnAttempt implements Observer.
func (f AttemptFunc) OnAttempt(ctx context.Context, attempt Attempt) {
	f(ctx, attempt)
}
