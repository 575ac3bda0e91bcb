package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

// Tree view icons using Unicode symbols.
const (
	iconExpanded  = "▼" // Black down-pointing triangle
	iconCollapsed = "▶" // Black right-pointing triangle
	iconFile      = "·" // Middle dot
	iconModified  = "●" // Black circle (filled)
)

// TreeView displays the visible rows of the workspace tree with a cursor
// and scrolling. Folder state lives in the tree store; the view only
// remembers where the cursor is.
type TreeView struct {
	rows   []tree.Row
	cursor int // Index in rows
	offset int // Scroll offset
}

// NewTreeView creates a TreeView over the given rows.
func NewTreeView(rows []tree.Row) *TreeView {
	tv := &TreeView{}
	tv.Refresh(rows)
	return tv
}

// Refresh replaces the rows, keeping the cursor on the same node when it
// is still visible.
func (tv *TreeView) Refresh(rows []tree.Row) {
	current := ""
	if row, ok := tv.Selected(); ok {
		current = row.Node.ID
	}
	tv.rows = rows
	if current == "" || !tv.Focus(current) {
		tv.clamp()
	}
}

func (tv *TreeView) clamp() {
	if tv.cursor >= len(tv.rows) {
		tv.cursor = len(tv.rows) - 1
	}
	if tv.cursor < 0 {
		tv.cursor = 0
	}
}

// Focus moves the cursor to the node with the given id. It reports false
// when the node is not visible.
func (tv *TreeView) Focus(id string) bool {
	for i, row := range tv.rows {
		if row.Node.ID == id {
			tv.cursor = i
			return true
		}
	}
	return false
}

// MoveUp moves the cursor up one position.
func (tv *TreeView) MoveUp() {
	if tv.cursor > 0 {
		tv.cursor--
	}
}

// MoveDown moves the cursor down one position.
func (tv *TreeView) MoveDown() {
	if tv.cursor < len(tv.rows)-1 {
		tv.cursor++
	}
}

// Top moves the cursor to the first row.
func (tv *TreeView) Top() {
	tv.cursor = 0
}

// Bottom moves the cursor to the last row.
func (tv *TreeView) Bottom() {
	tv.cursor = max(len(tv.rows)-1, 0)
}

// Selected returns the row under the cursor.
func (tv *TreeView) Selected() (tree.Row, bool) {
	if len(tv.rows) == 0 || tv.cursor < 0 || tv.cursor >= len(tv.rows) {
		return tree.Row{}, false
	}
	return tv.rows[tv.cursor], true
}

// Len returns the number of visible rows.
func (tv *TreeView) Len() int {
	return len(tv.rows)
}

// View renders the tree within the given dimensions. Files in unsaved
// carry a modified marker.
func (tv *TreeView) View(width, height int, unsaved map[string]bool) string {
	if len(tv.rows) == 0 {
		return center(mutedTextStyle.Render("Empty workspace"), width) + "\n"
	}

	visibleRows := max(height, 1)
	tv.ensureVisibleWithHeight(visibleRows)

	var b strings.Builder
	end := min(tv.offset+visibleRows, len(tv.rows))
	for i := tv.offset; i < end; i++ {
		b.WriteString(tv.renderRow(tv.rows[i], width, i == tv.cursor, unsaved[tv.rows[i].Node.ID]))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// ensureVisibleWithHeight adjusts offset with the actual visible height.
func (tv *TreeView) ensureVisibleWithHeight(visible int) {
	if tv.cursor < tv.offset {
		tv.offset = tv.cursor
	} else if tv.cursor >= tv.offset+visible {
		tv.offset = tv.cursor - visible + 1
	}
	if tv.offset < 0 {
		tv.offset = 0
	}
}

// renderRow renders a single node row.
func (tv *TreeView) renderRow(row tree.Row, width int, isCursor, isModified bool) string {
	node := row.Node
	indent := strings.Repeat("  ", row.Depth)

	icon := iconFile
	if node.IsFolder() {
		icon = iconCollapsed
		if node.IsOpen {
			icon = iconExpanded
		}
	}

	name := node.Name
	if node.IsFolder() {
		name += "/"
	}

	var detail string
	if !node.IsFolder() {
		detail = humanize.Bytes(uint64(len(node.Content)))
	}

	mark := " "
	if isModified {
		mark = iconModified
	}

	nameWidth := width - lipgloss.Width(indent) - 2 - len(detail) - 3
	name = truncate(name, max(nameWidth, 4))

	left := indent + icon + " " + name
	padding := max(width-lipgloss.Width(left)-len(detail)-2, 1)

	if isCursor {
		return treeRowHighlightStyle.Width(width).Render(left + strings.Repeat(" ", padding) + detail + " " + mark)
	}

	styledName := name
	if node.IsFolder() {
		styledName = treeFolderStyle.Render(name)
	}
	styledMark := mark
	if isModified {
		styledMark = modifiedMarkStyle.Render(mark)
	}
	line := indent + icon + " " + styledName + strings.Repeat(" ", padding) +
		mutedTextStyle.Render(detail) + " " + styledMark
	return treeRowNormalStyle.Width(width).Render(line)
}
