package ui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"vidtrack/internal/engine"
	"vidtrack/internal/logger"
	"vidtrack/internal/model"
)

// ErrAborted is returned when the user quits before the run finishes.
var ErrAborted = errors.New("aborted by user")

// Run launches the TUI, starts a run for in and returns once the run is
// terminal or the user quits. eng must have been built with feed as an
// observer.
func Run(ctx context.Context, eng *engine.Engine, feed *Feed, in model.VideoInput) (engine.Snapshot, error) {
	m := NewModel(ctx, eng, feed, in)
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error("tui exited", "error", err)
		return eng.Snapshot(), fmt.Errorf("tui: %w", err)
	}
	fm, ok := final.(Model)
	if !ok {
		return eng.Snapshot(), nil
	}
	if fm.startErr != nil && engine.KindOf(fm.startErr) == "" {
		return eng.Snapshot(), fm.startErr
	}
	if !fm.snap.Done() {
		eng.Reset()
		return eng.Snapshot(), ErrAborted
	}
	return eng.Wait(ctx)
}
