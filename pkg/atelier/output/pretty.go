package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

// PrettyFormatter renders colored output with lipgloss for terminals.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, v *View) error {
	var blocks []string

	if v.Message != "" {
		blocks = append(blocks, SuccessStyle.Render(v.Message))
	}
	if v.Tree != nil {
		blocks = append(blocks, strings.TrimRight(tree.Draw(v.Tree, prettyLabel), "\n"))
	}
	if v.Stats != nil {
		blocks = append(blocks, FooterBox.Render(formatStats(v.Stats)))
	}
	if v.Path != "" {
		blocks = append(blocks, TitleStyle.Render(v.Path)+"\n"+strings.TrimRight(v.Content, "\n"))
	}
	if len(v.Nodes) > 0 {
		blocks = append(blocks, f.formatNodes(v.Nodes))
	}
	if len(v.Tabs) > 0 {
		blocks = append(blocks, f.formatTabs(v.Tabs))
	}
	if len(v.Activity) > 0 {
		lines := make([]string, 0, len(v.Activity))
		for _, e := range v.Activity {
			lines = append(lines, fmt.Sprintf("%s  %s  %s",
				MutedStyle.Render(e.Time.Format(time.TimeOnly)),
				SeverityStyle(e.Severity).Render(padRight(string(e.Severity), 7)),
				e.Message))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	if v.Import != nil {
		blocks = append(blocks, f.formatImport(v))
	}
	if v.Status != nil {
		var sb bytes.Buffer
		writeStatus(&sb, v.Status, func(label, value string) string {
			return LabelStyle.Render(padRight(label, 12)) + " " + ValueStyle.Render(value)
		})
		blocks = append(blocks, HeaderBox.Render(strings.TrimRight(sb.String(), "\n")))
	}

	for _, b := range blocks {
		w.WriteString(b)
		w.WriteByte('\n')
	}
	return nil
}

func prettyLabel(b *tree.Branch) string {
	if b.Kind == tree.KindFolder {
		name := FolderStyle.Render(b.Name + "/")
		if !b.Open && len(b.Children) == 0 {
			name += MutedStyle.Render(" …")
		}
		return name
	}
	label := FileStyle.Render(b.Name)
	if b.Modified {
		label += ModifiedStyle.Render(" ●")
	}
	return label + " " + MutedStyle.Render(b.Language)
}

func formatStats(s *tree.Stats) string {
	return fmt.Sprintf("%s %s  %s %s  %s %s",
		LabelStyle.Render("Folders:"), ValueStyle.Render(fmt.Sprint(s.Folders)),
		LabelStyle.Render("Files:"), ValueStyle.Render(fmt.Sprint(s.Files)),
		LabelStyle.Render("Size:"), ValueStyle.Render(humanize.Bytes(uint64(s.Bytes))))
}

func (f *PrettyFormatter) formatNodes(nodes []tree.Node) string {
	var sb strings.Builder
	sb.WriteString(TableHeaderStyle.Render("  LANGUAGE    PATH"))
	for _, n := range nodes {
		sb.WriteByte('\n')
		if n.IsFolder() {
			sb.WriteString("  " + MutedStyle.Render(padRight("folder", 10)) + "  " + FolderStyle.Render(n.Path+"/"))
			continue
		}
		sb.WriteString("  " + MutedStyle.Render(padRight(n.Language, 10)) + "  " + FileStyle.Render(n.Path))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatTabs(tabs []atelierv1.TabInfo) string {
	lines := make([]string, 0, len(tabs))
	for _, t := range tabs {
		marker, name := "  ", FileStyle.Render(t.Name)
		if t.Active {
			marker, name = ActiveStyle.Render("▸ "), ActiveStyle.Render(t.Name)
		}
		if t.IsModified {
			name += ModifiedStyle.Render(" ●")
		}
		lines = append(lines, marker+name+"  "+MutedStyle.Render(t.Path))
	}
	return strings.Join(lines, "\n")
}

func (f *PrettyFormatter) formatImport(v *View) string {
	r := v.Import
	lines := []string{
		LabelStyle.Render("Source:") + " " + ValueStyle.Render(r.Source),
		LabelStyle.Render("Into:") + "   " + ValueStyle.Render(r.Dest),
		fmt.Sprintf("%s %s  %s %s  %s %s",
			LabelStyle.Render("Files:"), ValueStyle.Render(fmt.Sprint(r.Files)),
			LabelStyle.Render("Folders:"), ValueStyle.Render(fmt.Sprint(r.Folders)),
			LabelStyle.Render("Size:"), ValueStyle.Render(humanize.Bytes(uint64(r.Bytes)))),
	}
	if r.Skipped > 0 {
		lines = append(lines, WarningStyle.Render(fmt.Sprintf("%d skipped", r.Skipped)))
	}
	if r.Failed > 0 {
		lines = append(lines, ErrorStyle.Render(fmt.Sprintf("%d failed", r.Failed)))
	}
	lines = append(lines, MutedStyle.Render("took "+r.Duration.Round(time.Millisecond).String()))
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// writeStatus prints daemon status one field per line.
func writeStatus(w *bytes.Buffer, s *atelierv1.StatusResponse, line func(label, value string) string) {
	fields := [][2]string{
		{"pid:", fmt.Sprint(s.PID)},
		{"uptime:", time.Duration(s.Uptime).String()},
		{"memory:", humanize.Bytes(s.MemoryBytes)},
		{"root:", s.Root},
		{"tree:", fmt.Sprintf("%d folders, %d files, %s", s.Stats.Folders, s.Stats.Files, humanize.Bytes(uint64(s.Stats.Bytes)))},
		{"tabs:", fmt.Sprint(s.Tabs)},
		{"activity:", fmt.Sprint(s.Activity)},
		{"watchers:", fmt.Sprint(s.Subscribers)},
		{"session:", onOff(s.Session)},
	}
	if len(s.Mirrors) > 0 {
		fields = append(fields, [2]string{"mirrors:", strings.Join(s.Mirrors, ", ")})
	}
	for _, f := range fields {
		w.WriteString(line(f[0], f[1]))
		w.WriteByte('\n')
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// padRight pads s with spaces to width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
