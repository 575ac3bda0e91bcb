package output

import (
	"bytes"
	"encoding/json"
)

// JSONFormatter writes the view as one indented JSON object. Empty
// sections are omitted.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, v *View) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter writes list sections one compact object per line, for
// piping into jq. Views without a list are written as a single line.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, v *View) error {
	var items []any
	for _, n := range v.Nodes {
		items = append(items, n)
	}
	for _, t := range v.Tabs {
		items = append(items, t)
	}
	for _, e := range v.Activity {
		items = append(items, e)
	}
	if len(items) == 0 {
		items = append(items, v)
	}

	encoder := json.NewEncoder(w)
	for _, item := range items {
		if err := encoder.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
