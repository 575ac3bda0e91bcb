package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

// PlainFormatter prints unstyled, tab-aligned text suitable for scripts.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, v *View) error {
	if v.Message != "" {
		w.WriteString(v.Message)
		w.WriteByte('\n')
	}
	if v.Tree != nil {
		w.WriteString(tree.Draw(v.Tree, nil))
	}
	if v.Stats != nil {
		fmt.Fprintf(w, "%d folders, %d files, %s\n", v.Stats.Folders, v.Stats.Files, humanize.Bytes(uint64(v.Stats.Bytes)))
	}
	if v.Path != "" || v.Content != "" {
		w.WriteString(v.Content)
		if v.Content != "" && !strings.HasSuffix(v.Content, "\n") {
			w.WriteByte('\n')
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(v.Nodes) > 0 {
		fmt.Fprintln(tw, "KIND\tPATH\tLANGUAGE\tSIZE")
		for _, n := range v.Nodes {
			size := "-"
			if !n.IsFolder() {
				size = humanize.Bytes(uint64(len(n.Content)))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.Kind, n.Path, orDash(n.Language), size)
		}
	}
	if len(v.Tabs) > 0 {
		fmt.Fprintln(tw, "ACTIVE\tNAME\tPATH\tMODIFIED")
		for _, t := range v.Tabs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark(t.Active, "*"), t.Name, t.Path, mark(t.IsModified, "yes"))
		}
	}
	if len(v.Activity) > 0 {
		for _, e := range v.Activity {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Time.Format(time.TimeOnly), e.Severity, e.Message)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r := v.Import; r != nil {
		fmt.Fprintf(w, "imported %s into %s: %d files, %d folders, %d skipped, %d failed (%s in %s)\n",
			r.Source, r.Dest, r.Files, r.Folders, r.Skipped, r.Failed,
			humanize.Bytes(uint64(r.Bytes)), r.Duration.Round(time.Millisecond))
	}
	if s := v.Status; s != nil {
		writeStatus(w, s, func(label, value string) string { return label + " " + value })
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func mark(b bool, s string) string {
	if b {
		return s
	}
	return ""
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
