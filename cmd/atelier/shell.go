package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/atelier/pkg/workspace/shell"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run the workspace terminal",
	Long: `Start an interactive shell whose commands (ls, cd, cat, echo, mv, rm,
open, save, diff, ...) act on the workspace tree. Nothing runs on the host.

Type 'help' for the command list and 'exit' to leave. With -c a single
line is run; when stdin is not a terminal, each input line is run.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().StringP("command", "c", "", "run one command line and exit")
}

func runShell(cmd *cobra.Command, _ []string) error {
	l, _, err := openLocal()
	if err != nil {
		return err
	}
	defer l.Close()
	sh := shell.New(l.Workspace())

	if line, _ := cmd.Flags().GetString("command"); line != "" {
		return execLine(sh, line, cmd.OutOrStdout())
	}
	if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice == 0 {
		return runScript(sh, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	printInfo("atelier shell: 'help' lists commands, 'exit' leaves")
	p := prompt.New(
		func(in string) {
			if isExit(in) {
				return
			}
			if err := execLine(sh, in, os.Stdout); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		},
		func(d prompt.Document) []prompt.Suggest {
			return suggestions(sh, d.TextBeforeCursor())
		},
		prompt.OptionTitle("atelier"),
		prompt.OptionLivePrefix(func() (string, bool) { return sh.Prompt(), true }),
		prompt.OptionPrefixTextColor(prompt.Blue),
		prompt.OptionInputTextColor(prompt.DefaultColor),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && isExit(in)
		}),
	)
	p.Run()
	return nil
}

func isExit(line string) bool {
	line = strings.TrimSpace(line)
	return line == "exit" || line == "quit"
}

// execLine runs one line and prints its output. Command errors are
// returned for the caller to report.
func execLine(sh *shell.Shell, line string, w io.Writer) error {
	out, err := sh.Exec(line)
	if errors.Is(err, shell.ErrClear) {
		fmt.Fprint(w, "\033[H\033[2J")
		return nil
	}
	if out != "" {
		fmt.Fprintln(w, strings.TrimRight(out, "\n"))
	}
	return err
}

// runScript runs every line of r, stopping at the first failure.
func runScript(sh *shell.Shell, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if isExit(line) {
			return nil
		}
		if err := execLine(sh, line, w); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func suggestions(sh *shell.Shell, before string) []prompt.Suggest {
	var out []prompt.Suggest
	for _, c := range sh.Complete(before) {
		s := prompt.Suggest{Text: c}
		if _, help, ok := shell.Usage(c); ok && !strings.Contains(before, " ") {
			s.Description = help
		}
		out = append(out, s)
	}
	return out
}
