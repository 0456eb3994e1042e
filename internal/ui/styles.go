package ui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	StepName    lipgloss.Style
	StepMessage lipgloss.Style
	Success     lipgloss.Style
	Error       lipgloss.Style
	Warning     lipgloss.Style
	Faint       lipgloss.Style
	Box         lipgloss.Style
	Spinner     lipgloss.Style
	Online      lipgloss.Style
	Pending     lipgloss.Style
	Offline     lipgloss.Style
}

func defaultStyles() Styles {
	base := lipgloss.NewStyle()
	badge := base.Padding(0, 1).Bold(true).Foreground(lipgloss.Color("#111827"))
	return Styles{
		Title:       base.Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		Subtitle:    base.Faint(true),
		StepName:    base.Foreground(lipgloss.Color("#D1D5DB")),
		StepMessage: base.Foreground(lipgloss.Color("#A3A3A3")).Italic(true),
		Success:     base.Foreground(lipgloss.Color("#22C55E")),
		Error:       base.Foreground(lipgloss.Color("#EF4444")),
		Warning:     base.Foreground(lipgloss.Color("#F59E0B")),
		Faint:       base.Faint(true),
		Box:         base.Padding(0, 1),
		Spinner:     base.Foreground(lipgloss.Color("#22D3EE")),
		Online:      badge.Background(lipgloss.Color("#22C55E")),
		Pending:     badge.Background(lipgloss.Color("#F59E0B")),
		Offline:     badge.Background(lipgloss.Color("#EF4444")),
	}
}
