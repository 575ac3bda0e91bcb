package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/atelier/cmd/atelier/tui"
	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/workspace/assistant"
)

func init() {
	rootCmd.Flags().String("chat-style", "dark", "markdown style of assistant replies: dark, light, notty")
}

// runTUI opens the workspace in-process and runs the interactive editor.
func runTUI(cmd *cobra.Command, _ []string) error {
	style, _ := cmd.Flags().GetString("chat-style")

	l, cfg, err := openLocalMode(true)
	if err != nil {
		return err
	}
	defer l.Close()

	ws := l.Workspace()
	responder, err := assistant.FromConfig(cfg.Assistant, ws)
	if err != nil {
		logging.Get("tui").Warn("assistant unavailable", "error", err)
		responder = nil
	}

	return tui.Run(tui.Options{
		Workspace: ws,
		Assistant: responder,
		ChatStyle: style,
	})
}
