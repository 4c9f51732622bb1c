package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorPeriod    = lipgloss.Color("#E74C3C")
	colorPredicted = lipgloss.Color("#FF6B6B")
	colorFertile   = lipgloss.Color("#2EC4B6")
	colorMuted     = lipgloss.Color("#666666")
	colorWarning   = lipgloss.Color("#F39C12")
	colorFg        = lipgloss.Color("#C0CAF5")
	colorSubtle    = lipgloss.Color("#414868")
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg)

	headlineStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPeriod)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg).
			MarginTop(1)

	predictedStyle = lipgloss.NewStyle().
			Foreground(colorPredicted)

	fertileStyle = lipgloss.NewStyle().
			Foreground(colorFertile)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)
