package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5B8DB8")).
			Padding(0, 1)
	selectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DB8")).Bold(true)
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	destructiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D9534F")).Bold(true)
	normalStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5CB85C"))

	promptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B8DB8")).
			Padding(0, 1)
	promptTitleStyle = lipgloss.NewStyle().Bold(true)
)
