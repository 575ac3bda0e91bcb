package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/atelier/pkg/workspace/activity"
)

// Color constants using the ANSI 256-color palette.
const (
	ColorPrimary = lipgloss.Color("39")
	ColorSuccess = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorDanger  = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("245")
)

// Box styles for grouped content.
var (
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)

	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)
)

// Text styles.
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	LabelStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorDanger)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)

	FolderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	FileStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	ModifiedStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ActiveStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorSuccess)

	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorMuted)
)

// SeverityStyle returns the style used for an activity severity.
func SeverityStyle(s activity.Severity) lipgloss.Style {
	switch s {
	case activity.Success:
		return SuccessStyle
	case activity.Warning:
		return WarningStyle
	case activity.Error:
		return ErrorStyle
	}
	return ValueStyle
}
