// Package engine synchronizes the progress of one remote video job: it
// opens the push channel, submits the input, folds inbound step messages
// into a ledger and publishes consolidated snapshots to observers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidtrack/internal/channel"
	"vidtrack/internal/logger"
	"vidtrack/internal/model"
	"vidtrack/internal/progress"
)

const (
	feedbackConnected = "Connected. Starting upload..."
	feedbackSucceeded = "Video processing completed successfully!"
	feedbackFailed    = "Video processing failed."
	defaultUploadText = "Processing initiated."
)

// Submitter uploads the input and returns the backend's optional message.
type Submitter interface {
	Submit(ctx context.Context, in model.VideoInput) (string, error)
}

// Engine owns at most one job run and its push channel.
type Engine struct {
	channelURL string
	dialer     channel.Dialer
	submitter  Submitter
	catalog    []progress.StepDef
	now        func() time.Time
	refresh    time.Duration
	logger     *slog.Logger
	observers  []Observer

	mu  sync.Mutex
	run *run
	seq uint64

	// pubMu serializes observer calls; published is the last Seq delivered.
	pubMu     sync.Mutex
	published uint64
}

// New creates an idle Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		dialer:  channel.WebSocketDialer{},
		catalog: progress.DefaultCatalog(),
		now:     time.Now,
		refresh: time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Logger()
	}
	e.logger = e.logger.With("component", "engine")
	return e
}

// Start begins a new run for in. It blocks while the channel opens and the
// input is submitted, and returns once the run is running or terminal. A
// failed run is reported as a *RunError.
func (e *Engine) Start(ctx context.Context, in model.VideoInput) error {
	if e.submitter == nil {
		return ErrNoSubmitter
	}

	e.mu.Lock()
	prev := e.run
	if prev != nil && prev.phase.Active() {
		e.mu.Unlock()
		return ErrRunActive
	}
	r := newRun(ctx, uuid.NewString(), in, e.catalog, e.now())
	r.conn = channel.NewConn(e.channelURL, e.dialer, &runListener{e: e, r: r}, e.logger)
	e.run = r
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if prev != nil {
		e.discard(prev)
	}
	e.publish(snap)
	e.logger.Info("job run started", "run_id", r.id, "file", in.Name, "url", e.channelURL)

	if err := r.conn.Open(r.ctx); err != nil {
		e.mu.Lock()
		if e.run != r {
			e.mu.Unlock()
			return ErrRunReset
		}
		e.failLocked(r, KindConnectionOpenFailure, err, fmt.Sprintf(
			"WebSocket connection failed. Please ensure your backend is running and accessible at %s.", e.channelURL))
		snap, runErr := e.snapshotLocked(), r.err()
		e.mu.Unlock()
		e.publish(snap)
		return runErr
	}

	e.mu.Lock()
	if e.run != r {
		e.mu.Unlock()
		return ErrRunReset
	}
	if r.terminal != TerminalNone {
		runErr := r.err()
		e.mu.Unlock()
		return runErr
	}
	r.phase = PhaseUploading
	r.feedback = feedbackConnected
	eta := progress.Estimate(0, 0)
	r.eta = &eta
	e.startTicker(r)
	snap = e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)

	msg, err := e.submitter.Submit(r.ctx, in)

	e.mu.Lock()
	if e.run != r {
		e.mu.Unlock()
		return ErrRunReset
	}
	if r.terminal != TerminalNone {
		e.logger.Debug("submission result ignored, run already finished", "run_id", r.id, "error", err)
		runErr := r.err()
		e.mu.Unlock()
		return runErr
	}
	if err != nil {
		cause := err.Error()
		if _, aerr := r.ledger.Apply(progress.StepUploadVideo, progress.StatusFailed, cause); aerr != nil {
			e.logger.Debug("upload step not marked failed", "run_id", r.id, "error", aerr)
		}
		e.failLocked(r, KindSubmissionFailure, err, "Upload Error: "+cause)
	} else {
		r.phase = PhaseRunning
		if msg == "" {
			msg = defaultUploadText
		}
		r.feedback = "Upload successful: " + msg
		e.logger.Info("upload accepted", "run_id", r.id, "message", msg)
	}
	snap, runErr := e.snapshotLocked(), r.err()
	e.mu.Unlock()
	e.publish(snap)
	return runErr
}

// Wait blocks until the current run is terminal or ctx is done.
func (e *Engine) Wait(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	r := e.run
	e.mu.Unlock()
	if r == nil {
		return e.Snapshot(), ErrNoRun
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return e.Snapshot(), ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.snapshotLocked()
	if e.run != r {
		return snap, ErrRunReset
	}
	return snap, r.err()
}

// Reset discards the current run from any state: it cancels a pending open
// or submission, stops the ETA ticker, closes the channel and returns the
// engine to idle.
func (e *Engine) Reset() {
	e.mu.Lock()
	r := e.run
	e.run = nil
	e.mu.Unlock()

	if r != nil {
		e.discard(r)
		e.logger.Info("job run reset", "run_id", r.id)
	}

	e.mu.Lock()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// Snapshot returns the current consolidated state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Diagnostics returns the anomalies recorded for the current run.
func (e *Engine) Diagnostics() []Diagnostic {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		return nil
	}
	out := make([]Diagnostic, len(e.run.diagnostics))
	copy(out, e.run.diagnostics)
	return out
}

// discard tears down a run that is no longer current. Must be called
// without e.mu held.
func (e *Engine) discard(r *run) {
	r.cancel()
	r.finish()
	if err := r.conn.Close(); err != nil {
		e.logger.Debug("close channel", "run_id", r.id, "error", err)
	}
	r.ticker.Wait()
}

func (e *Engine) snapshotLocked() Snapshot {
	e.seq++
	s := Snapshot{
		Seq:             e.seq,
		Phase:           PhaseIdle,
		ConnectionState: channel.StateNotConnected,
		Terminal:        TerminalNone,
	}
	r := e.run
	if r == nil {
		s.Steps = progress.NewLedger(e.catalog).Steps()
		return s
	}
	s.RunID = r.id
	s.File = r.input.Name
	s.Phase = r.phase
	s.ConnectionState = r.connState
	s.Steps = r.ledger.Steps()
	s.AggregateProgress = r.ledger.AggregateProgress()
	if r.eta != nil {
		eta := *r.eta
		s.ETA = &eta
	}
	s.Terminal = r.terminal
	s.ErrorMessage = r.errorMessage
	s.Feedback = r.feedback
	if r.failure != nil {
		s.FailureKind = r.failure.Kind
	}
	s.StartedAt = r.startedAt
	return s
}

// publish delivers s to observers unless a newer snapshot already went out.
func (e *Engine) publish(s Snapshot) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	if s.Seq <= e.published {
		return
	}
	e.published = s.Seq
	for _, o := range e.observers {
		o.Observe(s)
	}
}

func (e *Engine) failLocked(r *run, kind ErrorKind, err error, display string) {
	if r.terminal != TerminalNone {
		return
	}
	r.abortSubmission()
	r.terminal = TerminalFailure
	r.phase = PhaseFailed
	r.failure = &RunError{Kind: kind, Err: err}
	r.errorMessage = display
	r.feedback = feedbackFailed
	eta := progress.Failed()
	r.eta = &eta
	r.finish()
	e.logger.Error("job run failed", "run_id", r.id, "kind", kind, "error", err)
}

func (e *Engine) succeedLocked(r *run) {
	r.abortSubmission()
	r.terminal = TerminalSuccess
	r.phase = PhaseSucceeded
	r.feedback = feedbackSucceeded
	eta := progress.ETA{Kind: progress.ETAComplete}
	r.eta = &eta
	r.finish()
	e.logger.Info("job run succeeded", "run_id", r.id, "elapsed", e.now().Sub(r.startedAt))
}

func (e *Engine) diagLocked(r *run, kind ErrorKind, detail string) {
	r.diagnostics = append(r.diagnostics, Diagnostic{Kind: kind, Detail: detail, At: e.now()})
	e.logger.Warn("message ignored", "run_id", r.id, "kind", kind, "detail", detail)
}

func (e *Engine) startTicker(r *run) {
	if e.refresh <= 0 {
		return
	}
	r.ticker.Add(1)
	go func() {
		defer r.ticker.Done()
		t := time.NewTicker(e.refresh)
		defer t.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-t.C:
				e.refreshETA(r)
			}
		}
	}()
}

func (e *Engine) refreshETA(r *run) {
	e.mu.Lock()
	if e.run != r || r.terminal != TerminalNone {
		e.mu.Unlock()
		return
	}
	eta := progress.Estimate(e.now().Sub(r.startedAt), r.ledger.AggregateProgress())
	r.eta = &eta
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// runListener binds channel events to the run that opened the channel.
type runListener struct {
	e *Engine
	r *run
}

func (l *runListener) Message(m channel.Message) {
	e, r := l.e, l.r
	e.mu.Lock()
	if e.run != r {
		e.mu.Unlock()
		return
	}
	if r.terminal != TerminalNone {
		e.diagLocked(r, KindLateMessage, fmt.Sprintf("%s after run finished", m.Type))
		e.mu.Unlock()
		return
	}

	switch m.Type {
	case channel.TypeProgressUpdate:
		if !e.applyUpdateLocked(r, m) {
			e.mu.Unlock()
			return
		}
	case channel.TypeError:
		if m.Message == "" {
			e.diagLocked(r, KindMalformedMessage, "error message without text")
			e.mu.Unlock()
			return
		}
		failed := r.ledger.FailInProgress(m.Message)
		e.failLocked(r, KindRemoteStepFailure,
			fmt.Errorf("remote error: %s (steps failed: %v)", m.Message, failed),
			"Processing Error: "+m.Message)
	case channel.TypeConnectionStatus:
		e.logger.Debug("connection status", "run_id", r.id, "message", m.Message)
		e.mu.Unlock()
		return
	default:
		e.diagLocked(r, KindMalformedMessage, fmt.Sprintf("unrecognized message type %q", m.Type))
		e.mu.Unlock()
		return
	}

	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// applyUpdateLocked folds one progress_update into the run and reports
// whether observable state changed.
func (e *Engine) applyUpdateLocked(r *run, m channel.Message) bool {
	status, ok := progress.ParseStatus(m.Status)
	if m.Step == "" || !ok || status == progress.StatusPending {
		e.diagLocked(r, KindMalformedMessage, fmt.Sprintf("progress_update with step %q status %q", m.Step, m.Status))
		return false
	}

	changed, err := r.ledger.Apply(m.Step, status, m.Message)
	var te *progress.TransitionError
	switch {
	case errors.Is(err, progress.ErrUnknownStep):
		e.diagLocked(r, KindUnknownStep, m.Step)
		return false
	case errors.As(err, &te):
		e.diagLocked(r, KindRejectedTransition, te.Error())
		return false
	case err != nil:
		e.diagLocked(r, KindMalformedMessage, err.Error())
		return false
	case !changed:
		return false
	}

	pct := r.ledger.AggregateProgress()
	if pct < r.lastProgress {
		e.logger.Error("aggregate progress regressed", "run_id", r.id, "from", r.lastProgress, "to", pct)
		r.diagnostics = append(r.diagnostics, Diagnostic{
			Kind:   KindProgressRegression,
			Detail: fmt.Sprintf("%.0f%% -> %.0f%%", r.lastProgress, pct),
			At:     e.now(),
		})
	}
	r.lastProgress = pct
	eta := progress.Estimate(e.now().Sub(r.startedAt), pct)
	r.eta = &eta

	switch {
	case status == progress.StatusFailed:
		text := m.Message
		if text == "" {
			text = m.Step + " failed"
		}
		e.failLocked(r, KindRemoteStepFailure, fmt.Errorf("step %s failed: %s", m.Step, text), "Processing Error: "+text)
	case r.ledger.IsFullyComplete():
		e.succeedLocked(r)
	}
	return true
}

func (l *runListener) Malformed(raw []byte, err error) {
	e, r := l.e, l.r
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run != r {
		return
	}
	e.diagLocked(r, KindMalformedMessage, fmt.Sprintf("%v: %.64q", err, raw))
}

func (l *runListener) StateChanged(s channel.State, err error) {
	e, r := l.e, l.r
	e.mu.Lock()
	if e.run != r {
		e.mu.Unlock()
		return
	}
	wasConnected := r.connState == channel.StateConnected
	r.connState = s
	switch {
	case s == channel.StateConnected && r.phase == PhaseConnecting:
		r.feedback = "Connected to processing service."
	case wasConnected && (s == channel.StateDisconnected || s == channel.StateError):
		if err == nil {
			err = errors.New("connection closed")
		}
		text := "Disconnected from processing service: " + err.Error()
		var ce *channel.CloseError
		if errors.As(err, &ce) {
			text = fmt.Sprintf("Disconnected from processing service. Code: %d, Reason: %s", ce.Code, ce.Reason)
		}
		if r.terminal == TerminalNone {
			e.failLocked(r, KindConnectionLost, err, text)
		} else {
			e.logger.Info("channel closed after run finished", "run_id", r.id, "error", err)
		}
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}
