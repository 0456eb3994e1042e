package ui

import (
	"context"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"vidtrack/internal/engine"
	"vidtrack/internal/model"
)

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	eng   *engine.Engine
	feed  *Feed
	input model.VideoInput

	// Latest published state and the outcome of the last Start call.
	snap     engine.Snapshot
	startErr error

	width   int
	styles  Styles
	spinner spinner.Model
	bar     bubblesprogress.Model
}

func NewModel(ctx context.Context, eng *engine.Engine, feed *Feed, in model.VideoInput) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	sp := spinner.New()
	sp.Style = sty.Spinner

	return Model{
		ctx:     c,
		cancel:  cancel,
		eng:     eng,
		feed:    feed,
		input:   in,
		snap:    eng.Snapshot(),
		styles:  sty,
		spinner: sp,
		bar: bubblesprogress.New(
			bubblesprogress.WithDefaultGradient(),
			bubblesprogress.WithWidth(40),
		),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenFeedCmd(), m.startCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 12; w > 10 && w < 80 {
			m.bar.Width = w
		}

	case snapshotMsg:
		if msg.S.Seq > m.snap.Seq {
			m.snap = msg.S
		}
		if m.snap.Done() {
			return m, tea.Quit
		}
		return m, m.listenFeedCmd()

	case startResultMsg:
		m.startErr = msg.Err
		if msg.Err != nil && engine.KindOf(msg.Err) == "" {
			// Not a run failure; nothing further will be published.
			return m, tea.Quit
		}
		if s := m.eng.Snapshot(); s.Seq > m.snap.Seq {
			m.snap = s
		}
		if m.snap.Done() {
			return m, tea.Quit
		}
		return m, nil

	case feedClosedMsg:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewHeader() + "\n\n" + m.viewProgress() + "\n\n" + m.viewSteps() + "\n" + m.viewMessage() + "\n"
}

func (m Model) listenFeedCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return feedClosedMsg{}
		case msg := <-m.feed.ch:
			return msg
		}
	}
}

func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		return startResultMsg{Err: m.eng.Start(m.ctx, m.input)}
	}
}
