package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/atelier/output"
	"github.com/jamesainslie/atelier/pkg/client"
	"github.com/jamesainslie/atelier/pkg/workspace/shell"
)

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List and manage editor tabs",
	Long: `List open tabs. Tabs are named by id or by file path; the
active tab is marked.

Edits made with 'tabs edit' stay in the tab until saved and can be undone
with 'tabs undo'.`,
	Args: cobra.NoArgs,
	RunE: runTabsList,
}

var tabsOpenCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open a file in a tab and make it active",
	Args:  cobra.ExactArgs(1),
	RunE:  runTabsOpen,
}

var tabsCloseCmd = &cobra.Command{
	Use:   "close <tab>",
	Short: "Close a tab, discarding unsaved edits",
	Args:  cobra.ExactArgs(1),
	RunE:  runTabsClose,
}

var tabsActivateCmd = &cobra.Command{
	Use:   "activate <tab>",
	Short: "Make a tab active",
	Args:  cobra.ExactArgs(1),
	RunE:  runTabsActivate,
}

var tabsShowCmd = &cobra.Command{
	Use:   "show [tab]",
	Short: "Print a tab's buffer",
	Long:  `Print the buffer of a tab, or of the active tab, including unsaved edits.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTabsShow,
}

var tabsEditCmd = &cobra.Command{
	Use:   "edit <tab> [content]",
	Short: "Replace a tab's buffer",
	Long:  `Replace the buffer of a tab. Content is read from stdin when omitted or "-".`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTabsEdit,
}

var tabsDiffCmd = &cobra.Command{
	Use:   "diff [tab]",
	Short: "Show unsaved changes of a tab",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTabsDiff,
}

var tabsSaveCmd = &cobra.Command{
	Use:   "save [tab]",
	Short: "Save a tab, or every tab with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTabsSave,
}

var tabsMoveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Reorder tabs by position",
	Args:  cobra.ExactArgs(2),
	RunE:  runTabsMove,
}

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Undo the last edit or tab close",
	Args:  cobra.NoArgs,
	RunE:  runUndo,
}

var redoCmd = &cobra.Command{
	Use:   "redo",
	Short: "Redo the last undone step",
	Args:  cobra.NoArgs,
	RunE:  runRedo,
}

func init() {
	rootCmd.AddCommand(tabsCmd, undoCmd, redoCmd)
	tabsCmd.AddCommand(tabsOpenCmd, tabsCloseCmd, tabsActivateCmd, tabsShowCmd,
		tabsEditCmd, tabsDiffCmd, tabsSaveCmd, tabsMoveCmd)

	tabsSaveCmd.Flags().BoolP("all", "a", false, "save every tab")
}

// activeTab returns ref, or the active tab's id when ref is empty.
func activeTab(ctx context.Context, ws client.Workspace, ref string) (string, error) {
	if ref != "" {
		return ref, nil
	}
	resp, err := ws.ListTabs(ctx, &atelierv1.Empty{})
	if err != nil {
		return "", describe(err)
	}
	if resp.ActiveID == "" {
		return "", fmt.Errorf("no tab is open")
	}
	return resp.ActiveID, nil
}

// tabInfo finds ref among the open tabs by id or path.
func tabInfo(ctx context.Context, ws client.Workspace, ref string) (atelierv1.TabInfo, error) {
	resp, err := ws.ListTabs(ctx, &atelierv1.Empty{})
	if err != nil {
		return atelierv1.TabInfo{}, describe(err)
	}
	var path string
	if n, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: ref}); err == nil {
		path = n.Node.Path
	}
	for _, t := range resp.Tabs {
		if t.ID == ref || t.Path == path {
			return t, nil
		}
	}
	return atelierv1.TabInfo{}, fmt.Errorf("%s is not open", ref)
}

func runTabsList(_ *cobra.Command, _ []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		resp, err := ws.ListTabs(ctx, &atelierv1.Empty{})
		if err != nil {
			return describe(err)
		}
		if len(resp.Tabs) == 0 {
			printInfo("No open tabs")
			return nil
		}
		printVerbose("undo depth %d, redo depth %d", resp.UndoDepth, resp.RedoDepth)
		return render(&output.View{Tabs: resp.Tabs})
	})
}

func runTabsOpen(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		if _, err := ws.OpenTab(ctx, &atelierv1.NodeRequest{Ref: args[0]}); err != nil {
			return describe(err)
		}
		t, err := tabInfo(ctx, ws, args[0])
		if err != nil {
			return err
		}
		return render(&output.View{Message: fmt.Sprintf("opened %s (tab %s)", t.Path, t.ID)})
	})
}

func runTabsClose(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		t, err := tabInfo(ctx, ws, args[0])
		if err != nil {
			return err
		}
		if _, err := ws.CloseTab(ctx, &atelierv1.TabRequest{ID: t.ID}); err != nil {
			return describe(err)
		}
		msg := "closed " + t.Path
		if t.IsModified {
			msg += " (unsaved edits discarded, 'atelier undo' restores them)"
		}
		return render(&output.View{Message: msg})
	})
}

func runTabsActivate(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		t, err := tabInfo(ctx, ws, args[0])
		if err != nil {
			return err
		}
		if _, err := ws.SetActiveTab(ctx, &atelierv1.TabRequest{ID: t.ID}); err != nil {
			return describe(err)
		}
		return render(&output.View{Message: "active " + t.Path})
	})
}

func runTabsShow(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		ref, err := activeTab(ctx, ws, optionalArg(args))
		if err != nil {
			return err
		}
		t, err := tabInfo(ctx, ws, ref)
		if err != nil {
			return err
		}
		resp, err := ws.GetTabContent(ctx, &atelierv1.TabRequest{ID: t.ID})
		if err != nil {
			return describe(err)
		}
		return render(&output.View{Path: t.Path, Content: resp.Content})
	})
}

func runTabsEdit(cmd *cobra.Command, args []string) error {
	var content string
	if len(args) == 2 && args[1] != "-" {
		content = args[1]
	} else {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		content = string(b)
	}

	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		t, err := tabInfo(ctx, ws, args[0])
		if err != nil {
			return err
		}
		if _, err := ws.EditTab(ctx, &atelierv1.EditTabRequest{ID: t.ID, Content: content}); err != nil {
			return describe(err)
		}
		return render(&output.View{Message: "edited " + t.Path})
	})
}

func runTabsDiff(_ *cobra.Command, args []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		ref, err := activeTab(ctx, ws, optionalArg(args))
		if err != nil {
			return err
		}
		t, err := tabInfo(ctx, ws, ref)
		if err != nil {
			return err
		}
		buf, err := ws.GetTabContent(ctx, &atelierv1.TabRequest{ID: t.ID})
		if err != nil {
			return describe(err)
		}
		saved, err := ws.GetNode(ctx, &atelierv1.NodeRequest{Ref: t.Path})
		if err != nil {
			return describe(err)
		}
		diff := shell.Diff(saved.Node.Content, buf.Content)
		if diff == "" {
			printInfo("%s has no unsaved changes", t.Path)
			return nil
		}
		return render(&output.View{Path: t.Path, Content: diff})
	})
}

func runTabsSave(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		if all {
			resp, err := ws.SaveAll(ctx, &atelierv1.Empty{})
			if err != nil {
				return describe(err)
			}
			return render(&output.View{Message: fmt.Sprintf("saved %d tabs", resp.Saved)})
		}

		ref, err := activeTab(ctx, ws, optionalArg(args))
		if err != nil {
			return err
		}
		t, err := tabInfo(ctx, ws, ref)
		if err != nil {
			return err
		}
		if _, err := ws.SaveTab(ctx, &atelierv1.TabRequest{ID: t.ID}); err != nil {
			return describe(err)
		}
		return render(&output.View{Message: "saved " + t.Path})
	})
}

func runTabsMove(_ *cobra.Command, args []string) error {
	from, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid position %q", args[0])
	}
	to, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid position %q", args[1])
	}

	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		if _, err := ws.MoveTab(ctx, &atelierv1.MoveTabRequest{From: from, To: to}); err != nil {
			return describe(err)
		}
		resp, err := ws.ListTabs(ctx, &atelierv1.Empty{})
		if err != nil {
			return describe(err)
		}
		return render(&output.View{Tabs: resp.Tabs})
	})
}

func runUndo(_ *cobra.Command, _ []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		resp, err := ws.Undo(ctx, &atelierv1.Empty{})
		if err != nil {
			return describe(err)
		}
		return render(&output.View{Message: historyMessage("undid", "nothing to undo", resp)})
	})
}

func runRedo(_ *cobra.Command, _ []string) error {
	return withWorkspace(func(ctx context.Context, ws client.Workspace) error {
		resp, err := ws.Redo(ctx, &atelierv1.Empty{})
		if err != nil {
			return describe(err)
		}
		return render(&output.View{Message: historyMessage("redid", "nothing to redo", resp)})
	})
}

func historyMessage(verb, empty string, resp *atelierv1.HistoryResponse) string {
	if !resp.Applied {
		return empty
	}
	switch resp.Action {
	case "tab_close":
		return fmt.Sprintf("%s tab close (tab %s)", verb, resp.TabID)
	default:
		return fmt.Sprintf("%s edit (tab %s)", verb, resp.TabID)
	}
}
