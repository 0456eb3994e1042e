package ui

import (
	"fmt"
	"strings"

	"vidtrack/internal/channel"
	"vidtrack/internal/engine"
	"vidtrack/internal/progress"
	"vidtrack/internal/util/format"
)

func (m Model) viewHeader() string {
	title := m.styles.Title.Render("vidtrack · video processing")
	file := m.input.Name
	if m.input.Size > 0 {
		file = fmt.Sprintf("%s (%s)", file, format.HumanizeBytes(m.input.Size))
	}
	sub := m.styles.Subtitle.Render(truncate(file, 48) + " • q: quit")
	return title + "  " + m.badge(m.snap.ConnectionState) + "\n" + sub
}

func (m Model) badge(s channel.State) string {
	switch s {
	case channel.StateConnected:
		return m.styles.Online.Render("connected")
	case channel.StateConnecting:
		return m.styles.Pending.Render("connecting")
	case channel.StateDisconnected, channel.StateError:
		return m.styles.Offline.Render(string(s))
	default:
		return m.styles.Faint.Render("not connected")
	}
}

func (m Model) viewProgress() string {
	pct := m.snap.AggregateProgress
	eta := ""
	if m.snap.ETA != nil {
		eta = "ETA: " + m.snap.ETA.String()
	}
	return m.styles.Box.Render(fmt.Sprintf("%s %5.1f%%  %s", m.bar.ViewAs(pct/100.0), pct, m.styles.Faint.Render(eta)))
}

func (m Model) viewSteps() string {
	var b strings.Builder
	for _, st := range m.snap.Steps {
		b.WriteString(m.styles.Box.Render(m.stepIcon(st.Status) + " " + m.styles.StepName.Render(st.Name)))
		if st.Message != "" {
			b.WriteString("  " + m.styles.StepMessage.Render(truncate(st.Message, 60)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) stepIcon(s progress.Status) string {
	switch s {
	case progress.StatusCompleted:
		return m.styles.Success.Render("✓")
	case progress.StatusFailed:
		return m.styles.Error.Render("✗")
	case progress.StatusInProgress:
		return m.styles.Spinner.Render(m.spinner.View())
	default:
		return m.styles.Faint.Render("·")
	}
}

func (m Model) viewMessage() string {
	text, isErr := m.snap.DisplayMessage()
	if m.startErr != nil && engine.KindOf(m.startErr) == "" {
		text, isErr = m.startErr.Error(), true
	}
	switch {
	case text == "":
		return ""
	case isErr:
		return m.styles.Box.Render(m.styles.Error.Render(text))
	case m.snap.Terminal == engine.TerminalSuccess:
		return m.styles.Box.Render(m.styles.Success.Render(text))
	default:
		return m.styles.Box.Render(m.styles.Subtitle.Render(text))
	}
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
