package engine

import "fmt"

// State is a position in the convergence state machine.
//
//	idle -> attempting -> succeeded
//	                   -> retrying -> attempting
//	                   -> fatal_failed
type State string

const (
	// StateIdle is the initial state before the first attempt.
	StateIdle State = "idle"

	// StateAttempting indicates a bind call is in flight.
	StateAttempting State = "attempting"

	// StateRetrying indicates the engine is waiting out the backoff delay.
	StateRetrying State = "retrying"

	// StateSucceeded indicates the provider acknowledged the binding.
	StateSucceeded State = "succeeded"

	// StateFatalFailed indicates the loop stopped on a failure that retrying cannot fix.
	StateFatalFailed State = "fatal_failed"
)

var stateTransitions = map[State][]State{
	StateIdle:       {StateAttempting, StateFatalFailed},
	StateAttempting: {StateSucceeded, StateRetrying, StateFatalFailed},
	StateRetrying:   {StateAttempting, StateFatalFailed},
}

// IsTerminal returns true if no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFatalFailed
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, allowed := range stateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Validate checks if the state is valid.
func (s State) Validate() error {
	switch s {
	case StateIdle, StateAttempting, StateRetrying, StateSucceeded, StateFatalFailed:
		return nil
	default:
		return fmt.Errorf("invalid state: %s", s)
	}
}

// OutcomeKind describes the classification of a single attempt.
type OutcomeKind string

const (
	// OutcomeSucceeded means the provider returned a success status.
	OutcomeSucceeded OutcomeKind = "succeeded"

	// OutcomeRetryable means the attempt failed but may succeed later.
	OutcomeRetryable OutcomeKind = "retryable"

	// OutcomeFatal means the attempt failed and must not be repeated.
	OutcomeFatal OutcomeKind = "fatal"
)

// Validate checks if the outcome kind is valid.
func (k OutcomeKind) Validate() error {
	switch k {
	case OutcomeSucceeded, OutcomeRetryable, OutcomeFatal:
		return nil
	default:
		return fmt.Errorf("invalid outcome: %s", k)
	}
}
