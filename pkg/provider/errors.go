package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is a remote call that did not return a 2xx status.
//
// Code is 0 when no response was received (DNS failure, refused connection,
// timeout); Err then holds the transport error.
type StatusError struct {
	Authority string
	Operation string
	Method    string
	URL       string
	Code      int
	Status    string
	Body      []byte
	Err       error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	prefix := fmt.Sprintf("%s %s: %s %s", e.Authority, e.Operation, e.Method, e.URL)
	if e.Code == 0 {
		if e.Err != nil {
			return prefix + ": no response received: " + e.Err.Error()
		}
		return prefix + ": no response received"
	}
	msg := prefix + ": " + e.HTTPStatus()
	if m := e.Message(); m != "" {
		msg += ": " + m
	}
	return msg
}

// Unwrap returns the transport error, if any.
func (e *StatusError) Unwrap() error { return e.Err }

// HTTPStatusCode returns the response status, 0 if none.
func (e *StatusError) HTTPStatusCode() int { return e.Code }

// HTTPStatus returns the status line, synthesized from the code when empty.
func (e *StatusError) HTTPStatus() string {
	if e.Status != "" {
		return e.Status
	}
	if e.Code == 0 {
		return ""
	}
	return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
}

// ResponseBody returns the raw error body.
func (e *StatusError) ResponseBody() []byte { return e.Body }

// Message extracts the human-readable message from a JSON error body.
// The security authority uses "message", the CDN uses "msg" and "detail".
func (e *StatusError) Message() string {
	if len(e.Body) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		s := strings.TrimSpace(string(e.Body))
		if len(s) > 200 {
			s = s[:200] + "..."
		}
		return s
	}
	switch {
	case body.Message != "":
		return body.Message
	case body.Msg != "" && body.Detail != "":
		return body.Msg + ": " + body.Detail
	default:
		return body.Msg
	}
}

// StatusCode returns the HTTP status carried by err, 0 if none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// IsNotFound reports whether err is a 404 from either authority.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 or 403.
func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
