package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"vidtrack/internal/engine"
)

// Feed is an engine.Observer that hands snapshots to the TUI. It holds at
// most one pending snapshot and replaces it when the TUI falls behind, so
// the engine never blocks on rendering and the newest state always wins.
type Feed struct {
	ch chan tea.Msg
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{ch: make(chan tea.Msg, 1)}
}

// Observe implements engine.Observer. The engine calls it from one
// goroutine at a time.
func (f *Feed) Observe(s engine.Snapshot) {
	msg := snapshotMsg{S: s}
	for {
		select {
		case f.ch <- msg:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}
