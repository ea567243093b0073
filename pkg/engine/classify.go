package engine

import (
	"errors"
	"strconv"
)

// Classification is the decision about one attempt.
type Classification struct {
	// Kind is the outcome of the attempt.
	Kind OutcomeKind

	// Reason is a short label such as "success", "not_ready" or "transport".
	Reason string

	// StatusCode is the provider status, 0 if no response was received.
	StatusCode int

	// Status is the provider status text.
	Status string

	// Err is the classified failure, nil on success.
	Err *EngineError
}

// Classifier decides whether a bind attempt succeeded, may be retried, or is fatal.
type Classifier interface {
	Classify(reply *Reply, err error) Classification
}

// PolicyClassifier classifies attempts using the status sets of a Policy.
//
// Replies with a success status succeed. Any other reply, structured provider
// errors and transport errors are retryable. Validation errors, statuses listed
// in Policy.FatalStatuses and cancellation are fatal.
type PolicyClassifier struct {
	Policy Policy
}

// NewPolicyClassifier creates a classifier bound to the given policy.
func NewPolicyClassifier(p Policy) *PolicyClassifier {
	return &PolicyClassifier{Policy: p.normalize()}
}

// Classify implements Classifier.
func (c *PolicyClassifier) Classify(reply *Reply, err error) Classification {
	if err == nil {
		if reply == nil {
			return Classification{
				Kind:   OutcomeRetryable,
				Reason: "empty_reply",
				Err:    NewTransientError("provider returned no reply", nil).WithCode(ErrCodeNotReady),
			}
		}
		return c.classifyReply(*reply)
	}

	if IsCancelled(err) {
		var ee *EngineError
		if errors.As(err, &ee) && ee.Class == ErrorClassCancelled {
			return Classification{Kind: OutcomeFatal, Reason: "cancelled", Err: ee}
		}
		return Classification{Kind: OutcomeFatal, Reason: "cancelled", Err: NewCancelledError(err)}
	}

	var ee *EngineError
	if errors.As(err, &ee) {
		switch ee.Class {
		case ErrorClassPermanent:
			return Classification{Kind: OutcomeFatal, Reason: "permanent", StatusCode: ee.StatusCode, Err: ee}
		case ErrorClassTransient:
			return Classification{Kind: OutcomeRetryable, Reason: "transient", StatusCode: ee.StatusCode, Err: ee}
		}
	}

	var se StatusError
	if errors.As(err, &se) && se.HTTPStatusCode() != 0 {
		return c.classifyStatus(se.HTTPStatusCode(), se.HTTPStatus(), err)
	}

	return Classification{
		Kind:   OutcomeRetryable,
		Reason: "transport",
		Err:    NewTransientError("no response from provider", err).WithCode(ErrCodeTransport),
	}
}

func (c *PolicyClassifier) classifyReply(reply Reply) Classification {
	if c.Policy.IsSuccess(reply.StatusCode) {
		return Classification{
			Kind:       OutcomeSucceeded,
			Reason:     "success",
			StatusCode: reply.StatusCode,
			Status:     reply.Status,
		}
	}
	return c.classifyStatus(reply.StatusCode, reply.Status, nil)
}

func (c *PolicyClassifier) classifyStatus(status int, text string, cause error) Classification {
	if text == "" {
		text = strconv.Itoa(status)
	}
	if c.Policy.IsFatal(status) {
		return Classification{
			Kind:       OutcomeFatal,
			Reason:     "http_" + strconv.Itoa(status),
			StatusCode: status,
			Status:     text,
			Err: NewPermanentError("provider permanently rejected the binding", cause).
				WithCode(ErrCodePermanentlyRejected).
				WithStatus(status).
				WithDetail("status", text),
		}
	}
	return Classification{
		Kind:       OutcomeRetryable,
		Reason:     "not_ready",
		StatusCode: status,
		Status:     text,
		Err: NewTransientError("provider not ready: "+text, cause).
			WithCode(ErrCodeNotReady).
			WithStatus(status),
	}
}
