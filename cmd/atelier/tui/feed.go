package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/workspace/activity"
)

// feedLine is one row of the activity or log panel. Rank orders lines from
// least (0) to most (3) severe, so one filter serves both feeds.
type feedLine struct {
	ID      string
	Time    time.Time
	Rank    int
	Tag     string
	Source  string
	Message string
}

var rankStyles = []lipgloss.Style{
	mutedTextStyle,
	accentTextStyle,
	warningTextStyle,
	errorTextStyle,
}

func rankStyle(rank int) lipgloss.Style {
	if rank < 0 || rank >= len(rankStyles) {
		return mutedTextStyle
	}
	return rankStyles[rank]
}

// severityRank places activity severities on the shared scale.
func severityRank(s activity.Severity) int {
	switch s {
	case activity.Success:
		return 1
	case activity.Warning:
		return 2
	case activity.Error:
		return 3
	default:
		return 0
	}
}

var severityTags = map[activity.Severity]string{
	activity.Info:    "I",
	activity.Success: "S",
	activity.Warning: "W",
	activity.Error:   "E",
}

// activityLines converts activity entries, oldest first.
func activityLines(entries []activity.Entry) []feedLine {
	out := make([]feedLine, len(entries))
	for i, e := range entries {
		out[i] = feedLine{
			ID:      e.ID,
			Time:    e.Time,
			Rank:    severityRank(e.Severity),
			Tag:     severityTags[e.Severity],
			Message: e.Message,
		}
	}
	return out
}

// logLines converts diagnostic log entries, oldest first.
func logLines(entries []logging.Entry) []feedLine {
	out := make([]feedLine, len(entries))
	for i, e := range entries {
		out[i] = feedLine{
			Time:    e.Time,
			Rank:    int(e.Level),
			Tag:     strings.ToUpper(e.Level.String()[:1]),
			Source:  e.Component,
			Message: e.Message,
		}
	}
	return out
}

// filterByRank returns lines at or above minRank.
func filterByRank(lines []feedLine, minRank int) []feedLine {
	result := make([]feedLine, 0, len(lines))
	for _, l := range lines {
		if l.Rank >= minRank {
			result = append(result, l)
		}
	}
	return result
}

// clampScroll ensures the scroll offset stays within valid bounds.
func clampScroll(offset, total, visibleRows int) int {
	if total <= visibleRows {
		return 0
	}
	maxOffset := total - visibleRows
	if offset < 0 {
		return 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

// FeedState holds the scroll position and filter of a feed panel. A
// follow-mode feed sticks to the newest line until scrolled up.
type FeedState struct {
	MinRank int
	Offset  int
	Follow  bool
}

// NewFeedState returns a feed that shows everything and follows new lines.
func NewFeedState() *FeedState {
	return &FeedState{Follow: true}
}

// SetFilter sets the minimum rank and resets scrolling.
func (s *FeedState) SetFilter(rank int) {
	s.MinRank = rank
	s.Offset = 0
	s.Follow = true
}

// ScrollUp scrolls up one line and stops following.
func (s *FeedState) ScrollUp() {
	s.Follow = false
	if s.Offset > 0 {
		s.Offset--
	}
}

// ScrollDown scrolls down one line, following again at the bottom.
func (s *FeedState) ScrollDown(total, visibleRows int) {
	maxOffset := max(total-visibleRows, 0)
	if s.Offset < maxOffset {
		s.Offset++
	}
	if s.Offset >= maxOffset {
		s.Follow = true
	}
}

// window returns the offset to render for total lines.
func (s *FeedState) window(total, visibleRows int) int {
	if s.Follow {
		s.Offset = max(total-visibleRows, 0)
	}
	s.Offset = clampScroll(s.Offset, total, visibleRows)
	return s.Offset
}

// Newest returns the most recent line passing the filter.
func (s *FeedState) Newest(lines []feedLine) (feedLine, bool) {
	filtered := filterByRank(lines, s.MinRank)
	if len(filtered) == 0 {
		return feedLine{}, false
	}
	return filtered[len(filtered)-1], true
}

// renderFeed renders a titled, filtered and scrolled feed panel.
func renderFeed(title string, names []string, lines []feedLine, state *FeedState, width, height int, hint string) string {
	if height < 3 {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" %s [%s] ", title, rankName(names, state.MinRank))))
	b.WriteString(mutedTextStyle.Render(hint))
	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")

	visibleRows := max(height-2, 1)
	filtered := filterByRank(lines, state.MinRank)
	offset := state.window(len(filtered), visibleRows)
	end := min(offset+visibleRows, len(filtered))

	rendered := 0
	for _, l := range filtered[offset:end] {
		b.WriteString(renderFeedLine(l, width))
		rendered++
		if rendered < visibleRows {
			b.WriteString("\n")
		}
	}
	if len(filtered) == 0 {
		b.WriteString(mutedTextStyle.Render("  nothing yet"))
	}
	return b.String()
}

var activityRankNames = []string{"info", "success", "warning", "error"}
var logRankNames = []string{"debug", "info", "warn", "error"}

func rankName(names []string, rank int) string {
	if rank < 0 || rank >= len(names) {
		return "all"
	}
	return names[rank] + "+"
}

// renderFeedLine renders "HH:MM:SS [T] source: message".
func renderFeedLine(l feedLine, width int) string {
	timeStr := l.Time.Format("15:04:05")
	tag := rankStyle(l.Rank).Render("[" + l.Tag + "]")

	prefix := timeStr + " " + "[" + l.Tag + "] "
	source := ""
	if l.Source != "" {
		source = truncate(l.Source, 10) + ": "
	}
	msgWidth := max(width-len(prefix)-len(source), 10)
	msg := truncate(strings.ReplaceAll(l.Message, "\n", " "), msgWidth)

	return mutedTextStyle.Render(timeStr) + " " + tag + " " + accentTextStyle.Render(source) + msg
}
