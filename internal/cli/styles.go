package cli

import "github.com/charmbracelet/lipgloss"

const (
	colorBlue   = "#58a6ff"
	colorGreen  = "#3fb950"
	colorYellow = "#d29922"
	colorGray   = "#8b949e"
	colorText   = "#c9d1d9"
	colorBright = "#f0f6fc"
)

// chatStyles holds the lipgloss styles of the chat REPL.
type chatStyles struct {
	Title    lipgloss.Style
	Help     lipgloss.Style
	Prompt   lipgloss.Style
	Answer   lipgloss.Style
	Fallback lipgloss.Style
	Source   lipgloss.Style
}

func defaultChatStyles() *chatStyles {
	return &chatStyles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorBright)).
			MarginBottom(1),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray)).
			Italic(true),

		Prompt: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorBlue)),

		Answer: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)).
			PaddingLeft(2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color(colorGreen)),

		Fallback: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)).
			PaddingLeft(2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color(colorYellow)),

		Source: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray)).
			PaddingLeft(2),
	}
}
