// Package shell is the IDE's terminal panel: a small line interpreter whose
// commands act on the workspace tree. Nothing is executed on the host.
package shell

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/workspace"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

// ErrClear is returned by the clear command; the caller wipes its screen.
var ErrClear = errors.New("clear screen")

// MaxHistory bounds the command history.
const MaxHistory = 500

type command struct {
	usage string
	help  string
	run   func(s *Shell, args []string) (string, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":    {"help [command]", "list commands", (*Shell).help},
		"pwd":     {"pwd", "print the current folder", (*Shell).pwd},
		"ls":      {"ls [-l] [path]", "list a folder", (*Shell).ls},
		"cd":      {"cd [path]", "change folder; no argument goes to the root", (*Shell).cd},
		"cat":     {"cat <file>...", "print files", (*Shell).cat},
		"touch":   {"touch <file>...", "create empty files", (*Shell).touch},
		"mkdir":   {"mkdir [-p] <folder>...", "create folders", (*Shell).mkdir},
		"rm":      {"rm [-r] <path>...", "delete files, or folders with -r", (*Shell).rm},
		"mv":      {"mv <src> <dst>", "rename or move", (*Shell).mv},
		"echo":    {"echo <text> [> file]", "print text or write it to a file", (*Shell).echo},
		"open":    {"open <file>", "open a file in a tab", (*Shell).open},
		"save":    {"save [file]", "save a tab, or all tabs", (*Shell).save},
		"find":    {"find <query>", "search names", (*Shell).find},
		"tree":    {"tree [path]", "draw the tree", (*Shell).tree},
		"diff":    {"diff <file>", "show unsaved changes of an open file", (*Shell).diff},
		"clear":   {"clear", "clear the terminal", (*Shell).clear},
		"history": {"history", "show previous commands", (*Shell).showHistory},
	}
}

// Commands returns the command names, sorted.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Usage returns the usage line and description of a command.
func Usage(name string) (usage, help string, ok bool) {
	c, ok := commands[name]
	return c.usage, c.help, ok
}

// Shell interprets command lines against a workspace.
type Shell struct {
	mu      sync.Mutex
	ws      *workspace.Workspace
	cwd     string
	history []string
	log     *logging.Logger
}

// New returns a shell positioned at the workspace root.
func New(ws *workspace.Workspace) *Shell {
	return &Shell{
		ws:  ws,
		cwd: ws.Tree.Root().Path,
		log: logging.Get("shell"),
	}
}

// Cwd returns the current folder. If it no longer exists the root is
// returned instead.
func (s *Shell) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwdLocked()
}

func (s *Shell) cwdLocked() string {
	if n, ok := s.ws.Tree.GetNodeByPath(s.cwd); ok && n.IsFolder() {
		return s.cwd
	}
	s.cwd = s.ws.Tree.Root().Path
	return s.cwd
}

// Prompt renders the prompt string for the current folder.
func (s *Shell) Prompt() string {
	return s.Cwd() + " $ "
}

// History returns previously executed lines, oldest first.
func (s *Shell) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

// Exec runs one command line and returns its output. Errors carry the
// message to show the user.
func (s *Shell) Exec(line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}

	s.mu.Lock()
	s.history = append(s.history, line)
	if len(s.history) > MaxHistory {
		s.history = s.history[len(s.history)-MaxHistory:]
	}
	s.mu.Unlock()

	args, err := Split(line)
	if err != nil {
		return "", err
	}
	if len(args) == 0 {
		return "", nil
	}

	c, ok := commands[args[0]]
	if !ok {
		return "", fmt.Errorf("%s: command not found", args[0])
	}
	s.log.Debug("exec", "cmd", args[0], "args", len(args)-1)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cwdLocked()
	out, err := c.run(s, args[1:])
	if err != nil && !errors.Is(err, ErrClear) {
		return out, fmt.Errorf("%s: %w", args[0], err)
	}
	return out, err
}

// Complete returns command names starting with prefix, or, once a command
// has been typed, paths in the current folder starting with the last word.
func (s *Shell) Complete(line string) []string {
	fields := strings.Fields(line)
	if len(fields) == 0 || (len(fields) == 1 && !strings.HasSuffix(line, " ")) {
		prefix := ""
		if len(fields) == 1 {
			prefix = fields[0]
		}
		var out []string
		for _, name := range Commands() {
			if strings.HasPrefix(name, prefix) {
				out = append(out, name)
			}
		}
		return out
	}

	word := ""
	if !strings.HasSuffix(line, " ") {
		word = fields[len(fields)-1]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	dir, base := s.cwdLocked(), word
	if i := strings.LastIndex(word, vpath.Sep); i >= 0 {
		dir, base = s.abs(word[:i+1]), word[i+1:]
	}
	folder, ok := s.ws.Tree.GetNodeByPath(dir)
	if !ok {
		return nil
	}
	prefix := word[:len(word)-len(base)]
	var out []string
	for _, c := range s.ws.Tree.Children(folder.ID) {
		if strings.HasPrefix(c.Name, base) {
			name := prefix + c.Name
			if c.IsFolder() {
				name += vpath.Sep
			}
			out = append(out, name)
		}
	}
	return out
}

// abs resolves p against the current folder. "~" and "/" both mean the
// workspace root.
func (s *Shell) abs(p string) string {
	root := s.ws.Tree.Root().Path
	switch {
	case p == "" || p == "~" || p == vpath.Sep:
		return root
	case strings.HasPrefix(p, "~/"):
		return vpath.Clean(root + p[1:])
	case strings.HasPrefix(p, vpath.Sep):
		c := vpath.Clean(p)
		if vpath.HasPrefix(c, root) {
			return c
		}
		return vpath.Clean(root + c)
	}
	c := vpath.Clean(s.cwd + vpath.Sep + p)
	if c == "" || !vpath.HasPrefix(c, root) {
		return root
	}
	return c
}

func (s *Shell) lookup(p string) (tree.Node, error) {
	n, ok := s.ws.Tree.GetNodeByPath(s.abs(p))
	if !ok {
		return tree.Node{}, fmt.Errorf("%s: no such file or folder", p)
	}
	return n, nil
}

func flags(args []string, known string) (set map[rune]bool, rest []string, err error) {
	set = map[rune]bool{}
	for i, a := range args {
		if a == "--" {
			return set, append(rest, args[i+1:]...), nil
		}
		if len(a) > 1 && a[0] == '-' {
			for _, r := range a[1:] {
				if !strings.ContainsRune(known, r) {
					return nil, nil, fmt.Errorf("unknown option -%c", r)
				}
				set[r] = true
			}
			continue
		}
		rest = append(rest, a)
	}
	return set, rest, nil
}
