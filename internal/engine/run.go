package engine

import (
	"context"
	"sync"
	"time"

	"vidtrack/internal/channel"
	"vidtrack/internal/model"
	"vidtrack/internal/progress"
)

// run is one job run. Every field past conn is guarded by Engine.mu.
type run struct {
	id        string
	input     model.VideoInput
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	conn      *channel.Conn

	ledger       *progress.Ledger
	phase        Phase
	connState    channel.State
	terminal     Terminal
	failure      *RunError
	errorMessage string
	feedback     string
	eta          *progress.ETA
	lastProgress float64
	diagnostics  []Diagnostic

	done     chan struct{}
	doneOnce sync.Once
	stop     chan struct{}
	stopOnce sync.Once
	ticker   sync.WaitGroup
}

func newRun(ctx context.Context, id string, in model.VideoInput, catalog []progress.StepDef, now time.Time) *run {
	ctx, cancel := context.WithCancel(ctx)
	return &run{
		id:        id,
		input:     in,
		startedAt: now,
		ctx:       ctx,
		cancel:    cancel,
		ledger:    progress.NewLedger(catalog),
		phase:     PhaseConnecting,
		connState: channel.StateNotConnected,
		terminal:  TerminalNone,
		feedback:  "Connecting to processing service...",
		done:      make(chan struct{}),
		stop:      make(chan struct{}),
	}
}

// finish releases Wait callers and signals the refresh ticker. It does not
// wait for the ticker, which may itself be blocked on Engine.mu.
func (r *run) finish() {
	r.doneOnce.Do(func() { close(r.done) })
	r.stopOnce.Do(func() { close(r.stop) })
}

// abortSubmission cancels an upload still in flight when the run ends
// before the submitter returns. Must be called before phase changes.
func (r *run) abortSubmission() {
	if r.phase == PhaseUploading {
		r.cancel()
	}
}

// err returns the run failure as an error, or nil.
func (r *run) err() error {
	if r.failure == nil {
		return nil
	}
	return r.failure
}
