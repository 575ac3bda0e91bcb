package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/atelier/pkg/workspace/tabs"
)

// tabLabel is the text shown for one tab.
func tabLabel(t tabs.Tab) string {
	if t.IsModified {
		return t.Name + " " + iconModified
	}
	return t.Name
}

// renderTabBar renders open tabs left to right, dropping tabs from the left
// until the active one fits in width.
func renderTabBar(open []tabs.Tab, activeID string, width int) string {
	if len(open) == 0 {
		return mutedTextStyle.Render("No open files")
	}

	rendered := make([]string, len(open))
	active := 0
	for i, t := range open {
		style := inactiveTabStyle
		if t.ID == activeID {
			style = activeTabStyle
			active = i
		}
		rendered[i] = style.Render(truncate(tabLabel(t), 24))
	}

	start := 0
	for start < active && lipgloss.Width(strings.Join(rendered[start:active+1], " ")) > width {
		start++
	}
	bar := strings.Join(rendered[start:], " ")
	if start > 0 {
		bar = mutedTextStyle.Render("‹ ") + bar
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(bar)
}

// neighbourTab returns the id of the tab delta places from activeID,
// wrapping around.
func neighbourTab(open []tabs.Tab, activeID string, delta int) string {
	if len(open) == 0 {
		return ""
	}
	i := 0
	for j, t := range open {
		if t.ID == activeID {
			i = j
			break
		}
	}
	n := len(open)
	return open[((i+delta)%n+n)%n].ID
}
