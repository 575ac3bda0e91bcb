package tui

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

// renderAppHeader renders the title line with tree totals and tab state.
// Parameters:
//   - root: name of the workspace root folder
//   - stats: folder, file and byte totals of the tree
//   - tabs: number of open tabs
//   - unsaved: number of tabs with unsaved edits
//   - session: whether the workspace is persisted between runs
func renderAppHeader(root string, stats tree.Stats, tabs, unsaved int, session bool) string {
	appName := titleStyle.Render("ATELIER")

	info := fmt.Sprintf("  %s  •  %d folders  •  %d files  •  %s  •  %d tabs",
		root, stats.Folders, stats.Files, humanize.Bytes(uint64(stats.Bytes)), tabs)
	header := " " + appName + mutedTextStyle.Render(info)

	if unsaved > 0 {
		header += warningTextStyle.Render(fmt.Sprintf("  ● %d unsaved", unsaved))
	}
	if session {
		header += successTextStyle.Render("  ● SESSION")
	}
	return header
}
