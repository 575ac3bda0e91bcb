package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/atelier/pkg/workspace/assistant"
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask the assistant about the workspace",
	Long: `Ask questions about the workspace ("which files are unsaved?",
"find main.go", "what language is app.py?").

The built-in assistant answers from rules. Set assistant.provider to openai,
with an API key, to use an OpenAI-compatible model instead.

Without a question an interactive chat starts; 'exit' leaves.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("style", "", "markdown style: dark, light, notty (default: detect)")
	chatCmd.Flags().Duration("timeout", 2*time.Minute, "time limit for one answer")
}

func runChat(cmd *cobra.Command, args []string) error {
	style, _ := cmd.Flags().GetString("style")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	l, cfg, err := openLocal()
	if err != nil {
		return err
	}
	defer l.Close()

	responder, err := assistant.FromConfig(cfg.Assistant, l.Workspace())
	if err != nil {
		return err
	}
	conv := assistant.NewConversation(responder)
	renderer := assistant.NewRenderer(style)

	ask := func(question string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		reply, err := conv.Ask(ctx, question)
		if err != nil {
			return err
		}
		out, err := renderer.Render(reply.Text, 0)
		if err != nil {
			out = reply.Text
		}
		fmt.Println(out)
		return nil
	}

	if len(args) > 0 {
		return ask(strings.Join(args, " "))
	}

	printInfo("Ask about the workspace; 'exit' leaves")
	p := prompt.New(
		func(in string) {
			if strings.TrimSpace(in) == "" || isExit(in) {
				return
			}
			if err := ask(in); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		},
		func(prompt.Document) []prompt.Suggest { return nil },
		prompt.OptionPrefix("? "),
		prompt.OptionTitle("atelier chat"),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && isExit(in)
		}),
	)
	p.Run()
	return nil
}
