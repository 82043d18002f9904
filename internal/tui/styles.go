package tui

import "github.com/charmbracelet/lipgloss"

// Styles は画面表示に使うスタイル一式です。
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Stage    lipgloss.Style
	Info     lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Faint    lipgloss.Style
	Spinner  lipgloss.Style
	Help     lipgloss.Style
}

func defaultStyles() Styles {
	base := lipgloss.NewStyle()
	return Styles{
		Title:    base.Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		Subtitle: base.Faint(true),
		Stage:    base.Foreground(lipgloss.Color("#60A5FA")),
		Info:     base.Foreground(lipgloss.Color("#D1D5DB")),
		Success:  base.Foreground(lipgloss.Color("#22C55E")),
		Error:    base.Foreground(lipgloss.Color("#EF4444")),
		Warning:  base.Foreground(lipgloss.Color("#F59E0B")),
		Faint:    base.Faint(true),
		Spinner:  base.Foreground(lipgloss.Color("#22D3EE")),
		Help:     base.Faint(true),
	}
}
