package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary = lipgloss.Color("205") // Pink/magenta
	ColorSuccess = lipgloss.Color("35")  // Green
	ColorWarning = lipgloss.Color("214") // Gold/yellow
	ColorError   = lipgloss.Color("196") // Red
	ColorDim     = lipgloss.Color("241") // Gray
	ColorAccent  = lipgloss.Color("39")  // Blue
)

const (
	SymbolCheck   = "✓"
	SymbolCross   = "✗"
	SymbolPending = "○"
	SymbolWarning = "⚠"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	AddressStyle = lipgloss.NewStyle().
			Foreground(ColorAccent)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorDim)
)

// Status renders a deployment state marker.
func Status(deployed bool) string {
	if deployed {
		return SuccessStyle.Render(SymbolCheck + " deployed")
	}
	return DimStyle.Render(SymbolPending + " undeployed")
}

// Warning renders a warning line.
func Warning(msg string) string {
	return WarningStyle.Render(SymbolWarning + " " + msg)
}
