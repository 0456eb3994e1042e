package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures and local anomalies.
type ErrorKind string

const (
	// Run-terminating kinds.
	KindConnectionOpenFailure ErrorKind = "connection_open_failure"
	KindConnectionLost        ErrorKind = "connection_lost"
	KindSubmissionFailure     ErrorKind = "submission_failure"
	KindRemoteStepFailure     ErrorKind = "remote_step_failure"

	// Locally recovered kinds; recorded as diagnostics only.
	KindMalformedMessage   ErrorKind = "malformed_message"
	KindUnknownStep        ErrorKind = "unknown_step"
	KindRejectedTransition ErrorKind = "rejected_transition"
	KindLateMessage        ErrorKind = "late_message"
	KindProgressRegression ErrorKind = "progress_regression"
)

var (
	// ErrRunActive is returned by Start while a run is connecting,
	// uploading or running.
	ErrRunActive = errors.New("a job run is already in progress")
	// ErrRunReset is returned when the run was discarded by Reset or a
	// newer Start before it finished.
	ErrRunReset = errors.New("job run was reset")
	// ErrNoRun is returned by Wait when the engine is idle.
	ErrNoRun = errors.New("no job run")
	// ErrNoSubmitter is returned by Start when no submitter is configured.
	ErrNoSubmitter = errors.New("no submitter configured")
)

// RunError is the cause of a failed run.
type RunError struct {
	Kind ErrorKind
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// KindOf returns the ErrorKind of a *RunError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var re *RunError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
