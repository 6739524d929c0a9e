// internal/command/errors.go
package command

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CommandError reports a command that ran and exited nonzero. The message
// carries the raw stderr so callers can classify the failure.
type CommandError struct {
	Argv       []string
	ExitCode   int
	Stderr     string
	Underlying error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command '%s' failed with exit code %d", strings.Join(e.Argv, " "), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, stderr)
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s (underlying error: %v)", msg, e.Underlying)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Underlying
}

// SpawnError reports a command that could not be started at all, e.g. the
// docker binary is missing from PATH.
type SpawnError struct {
	Argv []string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start command '%s': %v", strings.Join(e.Argv, " "), e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a command that exceeded its bounded wait. Callers
// pattern-match on the "timed out" substring, so the wording is load-bearing.
type TimeoutError struct {
	Argv    []string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %d seconds: %s", int(e.Timeout.Seconds()), strings.Join(e.Argv, " "))
}

// IsTimeout reports whether err represents a command timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	return strings.Contains(err.Error(), "timed out")
}
