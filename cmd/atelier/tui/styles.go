// Package tui is the interactive terminal front end of atelier: a file
// tree, tabbed editor and bottom panels for activity, logs, a shell and the
// assistant. It uses Charmbracelet's Bubble Tea, Lip Gloss and Bubbles.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for the TUI.
var (
	// Primary colors
	primaryColor = lipgloss.Color("#7D56F4")
	accentColor  = lipgloss.Color("#00D9FF")

	// Status colors
	successColor = lipgloss.Color("#28A745")
	warningColor = lipgloss.Color("#FFC107")
	dangerColor  = lipgloss.Color("#DC3545")

	// Neutral colors
	mutedColor     = lipgloss.Color("#666666")
	subtleColor    = lipgloss.Color("#444444")
	borderColor    = lipgloss.Color("#333333")
	highlightColor = lipgloss.Color("#4A2040")
	textColor      = lipgloss.Color("#CCCCCC")
	brightColor    = lipgloss.Color("#FFFFFF")
)

// Pane styles. The focused pane gets the primary border.
var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	focusedPaneStyle = paneStyle.
				BorderForeground(primaryColor)

	dividerStyle = lipgloss.NewStyle().
			Foreground(borderColor)
)

// Text styles.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedTextStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorTextStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	successTextStyle = lipgloss.NewStyle().
				Foreground(successColor)

	warningTextStyle = lipgloss.NewStyle().
				Foreground(warningColor)

	accentTextStyle = lipgloss.NewStyle().
			Foreground(accentColor)
)

// Tree rows.
var (
	treeRowHighlightStyle = lipgloss.NewStyle().
				Background(highlightColor).
				Foreground(brightColor).
				Bold(true)

	treeRowNormalStyle = lipgloss.NewStyle().
				Foreground(textColor)

	treeFolderStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	modifiedMarkStyle = lipgloss.NewStyle().
				Foreground(warningColor).
				Bold(true)
)

// Tab bar.
var (
	activeTabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Background(primaryColor).
			Foreground(brightColor).
			Bold(true)

	inactiveTabStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(subtleColor).
				Foreground(textColor)
)

// Key hint styles.
var (
	keyStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// Dialog styles.
var (
	dialogBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(warningColor).
			Padding(1, 2).
			Width(50)

	dialogTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(warningColor).
				Align(lipgloss.Center)

	dialogTextStyle = lipgloss.NewStyle().
			Foreground(brightColor).
			Align(lipgloss.Center)

	activeButtonStyle = lipgloss.NewStyle().
				Padding(0, 2).
				Margin(0, 1).
				Background(dangerColor).
				Foreground(brightColor).
				Bold(true)

	inactiveButtonStyle = lipgloss.NewStyle().
				Padding(0, 2).
				Margin(0, 1).
				Background(subtleColor).
				Foreground(textColor)
)

// renderDivider creates a horizontal divider line.
func renderDivider(width int) string {
	return dividerStyle.Render(repeatChar('─', width))
}

// repeatChar repeats a character n times.
func repeatChar(char rune, n int) string {
	if n <= 0 {
		return ""
	}
	result := make([]rune, n)
	for i := range result {
		result[i] = char
	}
	return string(result)
}

// truncate shortens s to maxLen runes, keeping the start.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:max(maxLen, 0)])
	}
	return string(r[:maxLen-3]) + "..."
}

// truncatePath shortens a path to maxLen runes, keeping the end.
func truncatePath(path string, maxLen int) string {
	r := []rune(path)
	if len(r) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return string(r[:max(maxLen, 0)])
	}
	return "..." + string(r[len(r)-(maxLen-3):])
}

// center centers a string within the given width.
func center(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	leftPad := (width - w) / 2
	rightPad := width - w - leftPad
	return repeatChar(' ', leftPad) + s + repeatChar(' ', rightPad)
}

// keyHint renders "[key] desc" pairs separated by two spaces.
func keyHint(pairs ...string) string {
	var out string
	for i := 0; i+1 < len(pairs); i += 2 {
		if out != "" {
			out += "  "
		}
		out += keyStyle.Render("["+pairs[i]+"]") + " " + keyDescStyle.Render(pairs[i+1])
	}
	return out
}

// truncateStyled cuts an already styled line to width cells.
func truncateStyled(s string, width int) string {
	return lipgloss.NewStyle().MaxWidth(max(width, 1)).Render(s)
}
