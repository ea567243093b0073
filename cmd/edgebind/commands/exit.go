package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgebind/edgebind/pkg/engine"
	"github.com/edgebind/edgebind/pkg/workflow"
)

// Exit codes of the edgebind binary.
const (
	ExitSuccess      = 0 // success, including a declined confirmation
	ExitFailure      = 1 // fatal convergence failure or failed provider call
	ExitPrecondition = 2 // bad profile, failed preflight or invalid arguments
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, workflow.ErrDeclined) {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if engine.IsPrecondition(err) {
		return ExitPrecondition
	}
	return ExitFailure
}

// positional turns argument validation failures into precondition exits.
func positional(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return WrapExitError(ExitPrecondition, "invalid arguments", err)
		}
		return nil
	}
}
