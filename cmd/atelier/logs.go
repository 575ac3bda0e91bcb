package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/atelier/output"
	"github.com/jamesainslie/atelier/pkg/workspace/activity"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the activity log",
	Long: `Show the workspace activity log: imports, saves, warnings and errors.

Examples:
  atelier logs             # All entries, oldest first
  atelier logs -n 20       # The newest 20 entries
  atelier logs -f          # Keep printing new entries
  atelier logs --clear     # Empty the log
  atelier logs --rm <id>   # Remove one entry`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream tree and tab changes",
	Long: `Print change events as they happen until interrupted.

Event types: node_created, node_renamed, node_moved, node_deleted,
content_updated, folder_toggled, tree_reset, tab_opened, tab_closed,
tab_changed, tab_saved, active_tab_changed.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(logsCmd, watchCmd)

	logsCmd.Flags().IntP("limit", "n", 0, "show only the newest entries")
	logsCmd.Flags().BoolP("follow", "f", false, "print new entries as they are added")
	logsCmd.Flags().Bool("clear", false, "remove every entry")
	logsCmd.Flags().String("rm", "", "remove the entry with this id")

	watchCmd.Flags().String("root", "", "only report changes under this folder")
	watchCmd.Flags().StringSliceP("type", "t", nil, "only report these event types")
	watchCmd.Flags().BoolP("activity", "a", false, "include activity log entries")
}

// interruptible returns a context cancelled by SIGINT or SIGTERM.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runLogs(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	limit, _ := flags.GetInt("limit")
	follow, _ := flags.GetBool("follow")
	clearLog, _ := flags.GetBool("clear")
	rm, _ := flags.GetString("rm")

	ctx, cancel := interruptible()
	defer cancel()

	ws, _, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	switch {
	case clearLog:
		if _, err := ws.ClearActivity(ctx, &atelierv1.Empty{}); err != nil {
			return describe(err)
		}
		return render(&output.View{Message: "activity log cleared"})
	case rm != "":
		if _, err := ws.RemoveActivity(ctx, &atelierv1.RemoveActivityRequest{ID: rm}); err != nil {
			return describe(err)
		}
		return render(&output.View{Message: "removed " + rm})
	}

	resp, err := ws.ListActivity(ctx, &atelierv1.ListActivityRequest{Limit: limit})
	if err != nil {
		return describe(err)
	}
	if len(resp.Entries) > 0 {
		if err := render(&output.View{Activity: resp.Entries}); err != nil {
			return err
		}
	} else if !follow {
		printInfo("Activity log is empty")
	}
	if !follow {
		return nil
	}
	if !ws.Remote() {
		printInfo("Following an in-process workspace shows only this command's entries; start the daemon to follow other sessions.")
	}

	events, err := ws.Events(ctx, &atelierv1.WatchRequest{Activity: true, NoEvents: true})
	if err != nil {
		return describe(err)
	}
	for e := range events {
		entry := activity.Entry{Severity: e.Severity, Message: e.Message, Time: e.Time}
		if err := render(&output.View{Activity: []activity.Entry{entry}}); err != nil {
			return err
		}
	}
	return nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	root, _ := flags.GetString("root")
	types, _ := flags.GetStringSlice("type")
	withActivity, _ := flags.GetBool("activity")

	ctx, cancel := interruptible()
	defer cancel()

	ws, _, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	if !ws.Remote() {
		printInfo("No daemon is running; only changes made by this process would be reported.")
	}

	events, err := ws.Events(ctx, &atelierv1.WatchRequest{Root: root, Types: types, Activity: withActivity})
	if err != nil {
		return describe(err)
	}
	printVerbose("watching %q", root)
	for e := range events {
		if err := render(&output.View{Message: formatEvent(e)}); err != nil {
			return err
		}
	}
	return nil
}

func formatEvent(e *atelierv1.WatchEvent) string {
	at := e.Time.Format(time.TimeOnly)
	if e.Kind == atelierv1.KindActivity {
		return fmt.Sprintf("%s  %-8s %s", at, e.Severity, e.Message)
	}
	switch {
	case e.OldPath != "" && e.OldPath != e.Path:
		return fmt.Sprintf("%s  %-18s %s -> %s", at, e.Type, e.OldPath, e.Path)
	case e.Path != "":
		return fmt.Sprintf("%s  %-18s %s", at, e.Type, e.Path)
	}
	return fmt.Sprintf("%s  %-18s %s", at, e.Type, e.ID)
}

