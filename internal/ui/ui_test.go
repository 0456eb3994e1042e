package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"vidtrack/internal/channel"
	"vidtrack/internal/engine"
	"vidtrack/internal/model"
	"vidtrack/internal/progress"
)

func steps(statuses ...progress.Status) []progress.Step {
	var out []progress.Step
	for i, def := range progress.DefaultCatalog() {
		st := progress.StatusPending
		if i < len(statuses) {
			st = statuses[i]
		}
		out = append(out, progress.Step{ID: def.ID, Name: def.Name, Status: st})
	}
	return out
}

func TestFeedKeepsNewest(t *testing.T) {
	f := NewFeed()
	for seq := uint64(1); seq <= 5; seq++ {
		f.Observe(engine.Snapshot{Seq: seq})
	}
	select {
	case msg := <-f.ch:
		if got := msg.(snapshotMsg).S.Seq; got != 5 {
			t.Fatalf("got seq %d, want 5", got)
		}
	case <-time.After(time.Second):
		t.Fatal("feed empty")
	}
	select {
	case msg := <-f.ch:
		t.Fatalf("unexpected extra message %v", msg)
	default:
	}
}

func TestPlainRenderer(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf)
	eta := progress.ETA{Kind: progress.ETARemaining, Remaining: 40 * time.Second}
	done := progress.ETA{Kind: progress.ETAComplete}

	seq := []engine.Snapshot{
		{Seq: 1, RunID: "r1", Phase: engine.PhaseConnecting, ConnectionState: channel.StateNotConnected,
			Steps: steps(), Feedback: "Connecting to processing service..."},
		{Seq: 2, RunID: "r1", Phase: engine.PhaseConnecting, ConnectionState: channel.StateConnected,
			Steps: steps(), Feedback: "Connected to processing service."},
		{Seq: 3, RunID: "r1", Phase: engine.PhaseRunning, ConnectionState: channel.StateConnected,
			Steps: steps(progress.StatusCompleted), AggregateProgress: 20, ETA: &eta,
			Feedback: "Upload successful: Processing initiated."},
		// Stale snapshot is dropped.
		{Seq: 2, RunID: "r1", Phase: engine.PhaseConnecting, Steps: steps()},
		{Seq: 4, RunID: "r1", Phase: engine.PhaseSucceeded, ConnectionState: channel.StateConnected,
			Steps: steps(progress.StatusCompleted, progress.StatusCompleted, progress.StatusCompleted,
				progress.StatusCompleted, progress.StatusCompleted),
			AggregateProgress: 100, ETA: &done, Terminal: engine.TerminalSuccess,
			Feedback: "Video processing completed successfully!"},
	}
	for _, s := range seq {
		p.Observe(s)
	}

	want := []string{
		"Connecting to processing service...",
		"channel: connected",
		"Connected to processing service.",
		"[ 20%] Upload Video: completed - ETA 40s",
		"Upload successful: Processing initiated.",
		"[100%] Extract Audio: completed",
		"[100%] Get Transcript: completed",
		"[100%] Summarize Transcript: completed",
		"[100%] Upload to S3: completed",
		"Video processing completed successfully!",
	}
	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(got) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(got), buf.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPlainRendererError(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf)
	p.Observe(engine.Snapshot{Seq: 1, RunID: "r1", Phase: engine.PhaseFailed,
		Steps:        steps(progress.StatusFailed),
		ErrorMessage: "Upload Error: disk full", Feedback: "Video processing failed.",
		Terminal: engine.TerminalFailure})
	out := buf.String()
	if !strings.Contains(out, "error: Upload Error: disk full") {
		t.Errorf("missing error line:\n%s", out)
	}
	if strings.Contains(out, "Video processing failed.") {
		t.Errorf("feedback shown alongside error:\n%s", out)
	}
}

func TestModelView(t *testing.T) {
	eng := engine.New(engine.WithRefreshInterval(0))
	in := model.VideoInput{Name: "talk.mov", Size: 3 << 20}
	m := NewModel(context.Background(), eng, NewFeed(), in)

	view := m.View()
	for _, want := range []string{"talk.mov", "3.0 MB", "Upload Video", "Upload to S3", "not connected"} {
		if !strings.Contains(view, want) {
			t.Errorf("idle view missing %q:\n%s", want, view)
		}
	}

	failed := engine.Snapshot{
		Seq: m.snap.Seq + 1, Phase: engine.PhaseFailed, ConnectionState: channel.StateDisconnected,
		Steps:        steps(progress.StatusCompleted, progress.StatusFailed),
		ErrorMessage: "Processing Error: ffmpeg crashed", Feedback: "Video processing failed.",
		Terminal: engine.TerminalFailure,
	}
	next, cmd := m.Update(snapshotMsg{S: failed})
	if cmd == nil {
		t.Fatal("terminal snapshot should quit")
	}
	view = next.(Model).View()
	if !strings.Contains(view, "Processing Error: ffmpeg crashed") {
		t.Errorf("error not shown:\n%s", view)
	}
	if strings.Contains(view, "Video processing failed.") {
		t.Errorf("feedback shown alongside error:\n%s", view)
	}
	if !strings.Contains(view, "disconnected") {
		t.Errorf("badge missing:\n%s", view)
	}
}

func TestModelIgnoresStaleSnapshot(t *testing.T) {
	eng := engine.New(engine.WithRefreshInterval(0))
	m := NewModel(context.Background(), eng, NewFeed(), model.VideoInput{Name: "a.mp4"})
	m.snap = engine.Snapshot{Seq: 10, Phase: engine.PhaseRunning, AggregateProgress: 40, Steps: steps()}

	next, _ := m.Update(snapshotMsg{S: engine.Snapshot{Seq: 9, Phase: engine.PhaseConnecting}})
	if got := next.(Model).snap.Seq; got != 10 {
		t.Fatalf("stale snapshot applied, seq = %d", got)
	}
}
