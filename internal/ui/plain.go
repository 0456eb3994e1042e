package ui

import (
	"fmt"
	"io"
	"sync"

	"vidtrack/internal/engine"
	"vidtrack/internal/progress"
)

// Plain writes one line per observable change. It is used when stdout is
// not a terminal.
type Plain struct {
	mu   sync.Mutex
	w    io.Writer
	last engine.Snapshot
}

// NewPlain returns a Plain renderer writing to w.
func NewPlain(w io.Writer) *Plain {
	return &Plain{w: w}
}

// Observe implements engine.Observer.
func (p *Plain) Observe(s engine.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.Seq <= p.last.Seq {
		return
	}
	prev := p.last
	p.last = s
	if s.Phase == engine.PhaseIdle {
		return
	}
	if prev.RunID != s.RunID {
		prev = engine.Snapshot{}
	}

	if s.ConnectionState != prev.ConnectionState && prev.ConnectionState != "" {
		fmt.Fprintf(p.w, "channel: %s\n", s.ConnectionState)
	}
	for i, st := range s.Steps {
		var before progress.Step
		if i < len(prev.Steps) {
			before = prev.Steps[i]
		}
		if st.Status == before.Status && st.Message == before.Message {
			continue
		}
		if st.Status == progress.StatusPending {
			continue
		}
		line := fmt.Sprintf("[%3.0f%%] %s: %s", s.AggregateProgress, st.Name, st.Status)
		if st.Message != "" {
			line += " (" + st.Message + ")"
		}
		if s.ETA != nil && !s.Done() {
			line += " - ETA " + s.ETA.String()
		}
		fmt.Fprintln(p.w, line)
	}
	text, isErr := s.DisplayMessage()
	ptext, _ := prev.DisplayMessage()
	if text != "" && text != ptext {
		if isErr {
			fmt.Fprintf(p.w, "error: %s\n", text)
		} else {
			fmt.Fprintln(p.w, text)
		}
	}
}
