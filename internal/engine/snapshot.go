package engine

import (
	"time"

	"vidtrack/internal/channel"
	"vidtrack/internal/progress"
)

// Phase is the engine's position in the run state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseUploading  Phase = "uploading"
	PhaseRunning    Phase = "running"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// Active reports whether a run in this phase still expects events.
func (p Phase) Active() bool {
	return p == PhaseConnecting || p == PhaseUploading || p == PhaseRunning
}

// Terminal is the final result of a run.
type Terminal string

const (
	TerminalNone    Terminal = "none"
	TerminalSuccess Terminal = "success"
	TerminalFailure Terminal = "failure"
)

// Snapshot is the consolidated state observed by presentation layers.
type Snapshot struct {
	// Seq increases with every published snapshot of an engine.
	Seq uint64 `json:"-"`

	RunID             string          `json:"run_id,omitempty"`
	File              string          `json:"file,omitempty"`
	Phase             Phase           `json:"phase"`
	ConnectionState   channel.State   `json:"connection_state"`
	Steps             []progress.Step `json:"steps"`
	AggregateProgress float64         `json:"aggregate_progress"`
	ETA               *progress.ETA   `json:"eta"`
	Terminal          Terminal        `json:"terminal"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	Feedback          string          `json:"feedback,omitempty"`
	FailureKind       ErrorKind       `json:"failure_kind,omitempty"`
	StartedAt         time.Time       `json:"started_at"`
}

// DisplayMessage returns the single line to show the user. An error
// message always wins over feedback.
func (s Snapshot) DisplayMessage() (text string, isError bool) {
	if s.ErrorMessage != "" {
		return s.ErrorMessage, true
	}
	return s.Feedback, false
}

// Done reports whether the run reached a terminal result.
func (s Snapshot) Done() bool {
	return s.Terminal != TerminalNone
}

// Diagnostic is a locally recovered anomaly recorded for a run.
type Diagnostic struct {
	Kind   ErrorKind
	Detail string
	At     time.Time
}

// Observer receives snapshots in publication order. Observe must not call
// Start or Reset synchronously.
type Observer interface {
	Observe(s Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) Observe(s Snapshot) { f(s) }
