package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	appNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("70"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	sentMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	recvMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	tickStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	readTickStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	typingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	recordingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	emojiCursorStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("238"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	activeInputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("70")).
				Bold(true)

	onlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	offlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	unreadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("70")).
			Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("70")).
			Padding(1, 3)

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)
)

func textWidth(s string) int {
	return lipgloss.Width(s)
}

func centerText(text string, width int) string {
	if width <= 0 {
		return text
	}
	w := textWidth(text)
	if w >= width {
		return text
	}
	pad := (width - w) / 2
	return strings.Repeat(" ", pad) + text
}

func separator(width int) string {
	w := width - 4
	if w < 1 {
		w = 1
	}
	return separatorStyle.Render("  " + strings.Repeat("─", w))
}

// modal renders a dialog box centred in the given area.
func modal(title, body, hint string, width, height int) string {
	content := modalTitleStyle.Render(title) + "\n\n" + body + "\n\n" + helpStyle.Render(hint)
	box := modalStyle.Render(content)
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
