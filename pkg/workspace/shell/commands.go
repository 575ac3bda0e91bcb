package shell

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/jamesainslie/atelier/pkg/workspace/tree"
	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

var errUsage = errors.New("missing operand")

func (s *Shell) help(args []string) (string, error) {
	if len(args) > 0 {
		c, ok := commands[args[0]]
		if !ok {
			return "", fmt.Errorf("no help for %s", args[0])
		}
		return fmt.Sprintf("usage: %s\n  %s", c.usage, c.help), nil
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	for _, name := range Commands() {
		c := commands[name]
		fmt.Fprintf(tw, "  %s\t%s\n", c.usage, c.help)
	}
	_ = tw.Flush()
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (s *Shell) pwd([]string) (string, error) {
	return s.cwd, nil
}

func (s *Shell) ls(args []string) (string, error) {
	opts, rest, err := flags(args, "la")
	if err != nil {
		return "", err
	}
	target := "."
	if len(rest) > 0 {
		target = rest[0]
	}
	n, err := s.lookup(target)
	if err != nil {
		return "", err
	}

	entries := []tree.Node{n}
	if n.IsFolder() {
		entries = s.ws.Tree.Children(n.ID)
	}

	var sb strings.Builder
	if opts['l'] {
		tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
		for _, c := range entries {
			fmt.Fprintln(tw, longLine(c))
		}
		_ = tw.Flush()
		return strings.TrimRight(sb.String(), "\n"), nil
	}

	names := make([]string, 0, len(entries))
	for _, c := range entries {
		names = append(names, displayName(c))
	}
	return strings.Join(names, "  "), nil
}

func displayName(n tree.Node) string {
	if n.IsFolder() {
		return n.Name + vpath.Sep
	}
	return n.Name
}

func longLine(n tree.Node) string {
	if n.IsFolder() {
		return fmt.Sprintf("d\t%d items\t\t%s", len(n.Children), displayName(n))
	}
	mark := ""
	if n.IsModified {
		mark = "*"
	}
	return fmt.Sprintf("-\t%s\t%s\t%s%s", humanize.Bytes(uint64(len(n.Content))), n.Language, n.Name, mark)
}

func (s *Shell) cd(args []string) (string, error) {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	n, err := s.lookup(target)
	if err != nil {
		return "", err
	}
	if !n.IsFolder() {
		return "", fmt.Errorf("%s: not a folder", target)
	}
	s.cwd = n.Path
	return "", nil
}

func (s *Shell) cat(args []string) (string, error) {
	if len(args) == 0 {
		return "", errUsage
	}
	var parts []string
	for _, a := range args {
		n, err := s.lookup(a)
		if err != nil {
			return strings.Join(parts, "\n"), err
		}
		if n.IsFolder() {
			return strings.Join(parts, "\n"), fmt.Errorf("%s: is a folder", a)
		}
		parts = append(parts, n.Content)
	}
	return strings.Join(parts, "\n"), nil
}

func (s *Shell) touch(args []string) (string, error) {
	if len(args) == 0 {
		return "", errUsage
	}
	for _, a := range args {
		p := s.abs(a)
		if _, ok := s.ws.Tree.GetNodeByPath(p); ok {
			continue
		}
		if _, err := s.ws.CreateFile(vpath.Dir(p), vpath.Base(p)); err != nil {
			return "", fmt.Errorf("cannot create %s: %w", a, err)
		}
	}
	return "", nil
}

func (s *Shell) mkdir(args []string) (string, error) {
	opts, rest, err := flags(args, "p")
	if err != nil {
		return "", err
	}
	if len(rest) == 0 {
		return "", errUsage
	}
	for _, a := range rest {
		p := s.abs(a)
		if opts['p'] {
			if _, err := s.ws.Tree.MkdirAll(p); err != nil {
				return "", err
			}
			continue
		}
		if _, err := s.ws.CreateFolder(vpath.Dir(p), vpath.Base(p)); err != nil {
			return "", fmt.Errorf("cannot create %s: %w", a, err)
		}
	}
	return "", nil
}

func (s *Shell) rm(args []string) (string, error) {
	opts, rest, err := flags(args, "rf")
	if err != nil {
		return "", err
	}
	if len(rest) == 0 {
		return "", errUsage
	}
	for _, a := range rest {
		n, err := s.lookup(a)
		if err != nil {
			if opts['f'] {
				continue
			}
			return "", err
		}
		if n.IsFolder() && !opts['r'] {
			return "", fmt.Errorf("%s: is a folder (use -r)", a)
		}
		if err := s.ws.Delete(n.ID); err != nil {
			return "", err
		}
	}
	return "", nil
}

func (s *Shell) mv(args []string) (string, error) {
	if len(args) != 2 {
		return "", errUsage
	}
	src, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}

	dst := s.abs(args[1])
	if n, ok := s.ws.Tree.GetNodeByPath(dst); ok {
		if !n.IsFolder() {
			return "", fmt.Errorf("%s: already exists", args[1])
		}
		return "", s.ws.Move(src.ID, n.ID)
	}

	parent, ok := s.ws.Tree.GetNodeByPath(vpath.Dir(dst))
	if !ok || !parent.IsFolder() {
		return "", fmt.Errorf("%s: no such folder", vpath.Dir(dst))
	}
	name := vpath.Base(dst)
	switch {
	case parent.ID == src.ParentID:
		if name == src.Name {
			return "", nil
		}
		return "", s.ws.Rename(src.ID, name)
	case name == src.Name:
		return "", s.ws.Move(src.ID, parent.ID)
	}
	if err := vpath.ValidateName(name); err != nil {
		return "", err
	}

	// dst is free, so the node can take its new name in the target folder.
	// Pick the order whose intermediate name does not collide.
	if _, taken := s.ws.Tree.GetNodeByPath(vpath.Join(parent.Path, src.Name)); !taken {
		if err := s.ws.Move(src.ID, parent.ID); err != nil {
			return "", err
		}
		return "", s.ws.Rename(src.ID, name)
	}
	if _, taken := s.ws.Tree.GetNodeByPath(vpath.Join(vpath.Dir(src.Path), name)); taken {
		return "", fmt.Errorf("%s: cannot rename and move while both names are taken", args[0])
	}
	if err := s.ws.Rename(src.ID, name); err != nil {
		return "", err
	}
	if err := s.ws.Move(src.ID, parent.ID); err != nil {
		_ = s.ws.Rename(src.ID, src.Name)
		return "", err
	}
	return "", nil
}

func (s *Shell) echo(args []string) (string, error) {
	for i, a := range args {
		if a != ">" {
			continue
		}
		if i != len(args)-2 {
			return "", errors.New("expected one file after >")
		}
		text := strings.Join(args[:i], " ") + "\n"
		if _, _, err := s.ws.Tree.WriteFile(s.abs(args[i+1]), text); err != nil {
			return "", err
		}
		return "", nil
	}
	return strings.Join(args, " "), nil
}

func (s *Shell) open(args []string) (string, error) {
	if len(args) != 1 {
		return "", errUsage
	}
	n, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	if n.IsFolder() {
		return "", fmt.Errorf("%s: is a folder", args[0])
	}
	return "", s.ws.Open(n.ID)
}

func (s *Shell) save(args []string) (string, error) {
	if len(args) == 0 {
		return fmt.Sprintf("saved %d files", s.ws.SaveAll()), nil
	}
	n, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	if err := s.ws.Save(n.ID); err != nil {
		return "", fmt.Errorf("%s: not open", args[0])
	}
	return "saved " + n.Path, nil
}

func (s *Shell) find(args []string) (string, error) {
	if len(args) == 0 {
		return "", errUsage
	}
	hits := s.ws.Search(strings.Join(args, " "))
	lines := make([]string, 0, len(hits))
	for _, n := range hits {
		lines = append(lines, n.Path)
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Shell) tree(args []string) (string, error) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	n, err := s.lookup(target)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(tree.Draw(s.ws.Tree.Nested(n.ID), nil), "\n"), nil
}

func (s *Shell) diff(args []string) (string, error) {
	if len(args) != 1 {
		return "", errUsage
	}
	n, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	buf, ok := s.ws.Tabs.GetTabContent(n.ID)
	if !ok {
		return "", fmt.Errorf("%s: not open", args[0])
	}
	return Diff(n.Content, buf), nil
}

// Diff renders a line diff from saved to buffer, prefixing removed lines
// with "-" and added lines with "+". Identical inputs give "".
func Diff(saved, buffer string) string {
	if saved == buffer {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(saved, buffer)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(strings.TrimSuffix(line, "\n"))
			sb.WriteByte('\n')
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (s *Shell) clear([]string) (string, error) {
	return "", ErrClear
}

func (s *Shell) showHistory([]string) (string, error) {
	lines := make([]string, len(s.history))
	for i, h := range s.history {
		lines[i] = fmt.Sprintf("%4d  %s", i+1, h)
	}
	return strings.Join(lines, "\n"), nil
}
