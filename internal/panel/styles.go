package panel

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("#58a6ff")
	colorText    = lipgloss.Color("#c9d1d9")
	colorMuted   = lipgloss.Color("#8b949e")
	colorSuccess = lipgloss.Color("#3fb950")
	colorWarn    = lipgloss.Color("#d29922")
	colorError   = lipgloss.Color("#f85149")
	colorBorder  = lipgloss.Color("#30363d")
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)

	sourceBadge = lipgloss.NewStyle().
			Foreground(colorAccent).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			MarginRight(1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			MarginTop(1)

	metaStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	textStyle    = lipgloss.NewStyle().Foreground(colorText)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	favStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))

	selectedDoc = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62"))

	analysisBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			MarginLeft(4)
)
