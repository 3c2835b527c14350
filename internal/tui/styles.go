package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7EC8E3"))

	breadcrumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9B9B9B"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7EC8E3")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D4D4D4"))

	folderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7EC8E3")).
			Padding(0, 2)
)
