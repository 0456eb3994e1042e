package progress

import (
	"errors"
	"fmt"
)

// ErrUnknownStep is returned by Apply for ids outside the catalog.
var ErrUnknownStep = errors.New("unknown step")

// TransitionError reports a status change that would move a step backwards
// or out of a terminal status.
type TransitionError struct {
	StepID string
	From   Status
	To     Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("step %s: illegal transition %s -> %s", e.StepID, e.From, e.To)
}

// Ledger is the ordered set of steps for one job run.
// It is not safe for concurrent use; the engine serializes access.
type Ledger struct {
	steps []Step
	index map[string]int
}

// NewLedger builds a ledger with every catalog step pending.
func NewLedger(catalog []StepDef) *Ledger {
	l := &Ledger{
		steps: make([]Step, 0, len(catalog)),
		index: make(map[string]int, len(catalog)),
	}
	for _, def := range catalog {
		if _, dup := l.index[def.ID]; dup {
			continue
		}
		l.index[def.ID] = len(l.steps)
		l.steps = append(l.steps, Step{ID: def.ID, Name: def.Name, Status: StatusPending})
	}
	return l
}

// Apply records a status for stepID. It returns updated=false with
// ErrUnknownStep when the id is not in the catalog, and with a
// *TransitionError when the change is not forward. Repeating in_progress
// only refreshes the message. An empty message keeps the previous one.
func (l *Ledger) Apply(stepID string, status Status, message string) (bool, error) {
	i, ok := l.index[stepID]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownStep, stepID)
	}
	st := &l.steps[i]
	if st.Status.Terminal() || status.rank() < st.Status.rank() ||
		(status == st.Status && status != StatusInProgress) {
		return false, &TransitionError{StepID: stepID, From: st.Status, To: status}
	}
	if status == st.Status && (message == "" || message == st.Message) {
		return false, nil
	}
	st.Status = status
	if message != "" {
		st.Message = message
	}
	return true, nil
}

// FailInProgress marks every in-progress step failed and returns their ids.
func (l *Ledger) FailInProgress(message string) []string {
	var failed []string
	for i := range l.steps {
		if l.steps[i].Status != StatusInProgress {
			continue
		}
		l.steps[i].Status = StatusFailed
		if message != "" {
			l.steps[i].Message = message
		}
		failed = append(failed, l.steps[i].ID)
	}
	return failed
}

// AggregateProgress is the percentage of steps completed, in [0,100].
// In-progress and failed steps contribute nothing.
func (l *Ledger) AggregateProgress() float64 {
	if len(l.steps) == 0 {
		return 0
	}
	completed, _, _ := l.Counts()
	return float64(100*completed) / float64(len(l.steps))
}

// Counts returns the number of completed, in-progress and failed steps.
func (l *Ledger) Counts() (completed, inProgress, failed int) {
	for _, s := range l.steps {
		switch s.Status {
		case StatusCompleted:
			completed++
		case StatusInProgress:
			inProgress++
		case StatusFailed:
			failed++
		}
	}
	return completed, inProgress, failed
}

// HasFailure reports whether any step failed.
func (l *Ledger) HasFailure() bool {
	_, _, failed := l.Counts()
	return failed > 0
}

// IsFullyComplete reports whether every step completed.
func (l *Ledger) IsFullyComplete() bool {
	completed, _, _ := l.Counts()
	return len(l.steps) > 0 && completed == len(l.steps)
}

// Step returns the step with the given id.
func (l *Ledger) Step(id string) (Step, bool) {
	i, ok := l.index[id]
	if !ok {
		return Step{}, false
	}
	return l.steps[i], true
}

// Steps returns a copy of the steps in catalog order.
func (l *Ledger) Steps() []Step {
	out := make([]Step, len(l.steps))
	copy(out, l.steps)
	return out
}
