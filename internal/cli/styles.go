// Package cli provides styled terminal output and interactive input for the
// review commands.
package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#4D96FF")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#6BCB77")
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#FFD93D")
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats errors or rejected suggestions.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// AmountStyle formats money amounts.
	AmountStyle = lipgloss.NewStyle().
			Bold(true)
)

// FormatScore renders a suggestion score as a colored percentage.
func FormatScore(score float64) string {
	style := ErrorStyle
	switch {
	case score >= 0.85:
		style = SuccessStyle
	case score >= 0.65:
		style = WarningStyle
	}
	return style.Render(fmt.Sprintf("%.0f%%", score*100))
}
