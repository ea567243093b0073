package engine

import (
	"context"
	"time"
)

// Target identifies the subject of a binding workflow.
// It is immutable for the duration of one invocation.
type Target struct {
	// Corp is the security authority corporation identifier.
	Corp string `json:"corp"`

	// Site is the short name of the site inside the corporation.
	Site string `json:"site"`

	// ServiceID is the CDN service the site is bound to.
	ServiceID string `json:"service_id"`
}

// Validate rejects targets with missing identifiers.
func (t Target) Validate() error {
	var missing []string
	if t.Corp == "" {
		missing = append(missing, "corp")
	}
	if t.Site == "" {
		missing = append(missing, "site")
	}
	if t.ServiceID == "" {
		missing = append(missing, "service_id")
	}
	if len(missing) > 0 {
		return NewValidationError("binding target is incomplete").
			WithDetail("missing", missing)
	}
	return nil
}

// String renders the target as corp/site -> service.
func (t Target) String() string {
	return t.Corp + "/" + t.Site + " -> " + t.ServiceID
}

// Reply is the response of a single bind call that reached the provider.
type Reply struct {
	// StatusCode is the HTTP status returned by the provider.
	StatusCode int `json:"status_code"`

	// Status is the status line reason (e.g. "503 Service Unavailable").
	Status string `json:"status,omitempty"`

	// Body is the raw response payload.
	Body []byte `json:"body,omitempty"`
}

// BindFunc performs one bind call against the provider.
//
// Implementations return a Reply when the provider answered with a status the
// caller treats as a response, and an error otherwise. Errors that carry a
// provider status should implement StatusError.
type BindFunc func(ctx context.Context, target Target) (Reply, error)

// StatusError is implemented by provider errors that carry an HTTP response.
// A status code of 0 means no response was received.
type StatusError interface {
	error
	HTTPStatusCode() int
	HTTPStatus() string
	ResponseBody() []byte
}

// Attempt records one invocation of the bind call.
type Attempt struct {
	// Number is the 1-based attempt sequence number.
	Number int `json:"number"`

	// Outcome is the classification of this attempt.
	Outcome OutcomeKind `json:"outcome"`

	// Reason is a short machine-friendly classification reason.
	Reason string `json:"reason"`

	// StatusCode is the provider status, 0 when unavailable.
	StatusCode int `json:"status_code,omitempty"`

	// Status is the provider status text, surfaced verbatim.
	Status string `json:"status,omitempty"`

	// Waited is the backoff elapsed before this attempt started.
	Waited time.Duration `json:"waited"`

	// StartedAt is when the bind call was issued.
	StartedAt time.Time `json:"started_at"`

	// Duration is how long the bind call took.
	Duration time.Duration `json:"duration"`

	// Err is the failure cause, nil on success.
	Err error `json:"-"`
}

// Result is the terminal outcome of one convergence run.
type Result struct {
	// RunID uniquely identifies the workflow invocation.
	RunID string `json:"run_id"`

	// Target is the binding subject.
	Target Target `json:"target"`

	// State is StateSucceeded or StateFatalFailed.
	State State `json:"state"`

	// Attempts is the number of bind calls issued.
	Attempts int `json:"attempts"`

	// StatusCode is the status of the last reply, 0 if none.
	StatusCode int `json:"status_code,omitempty"`

	// Payload is the success response body.
	Payload []byte `json:"payload,omitempty"`

	// Err is the fatal error when State is StateFatalFailed.
	Err *EngineError `json:"error,omitempty"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run reached a terminal state.
	CompletedAt time.Time `json:"completed_at"`
}

// Succeeded reports whether the run converged.
func (r *Result) Succeeded() bool {
	return r != nil && r.State == StateSucceeded
}

// Duration returns the wall-clock time of the run.
func (r *Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
