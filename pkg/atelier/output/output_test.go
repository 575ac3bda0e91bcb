package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/workspace/activity"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

// sampleTree is /root with src/main.go (modified) and an empty, closed docs.
func sampleTree() *tree.Branch {
	return &tree.Branch{
		ID: "r", Name: "root", Kind: tree.KindFolder, Path: "/root", Open: true,
		Children: []*tree.Branch{
			{ID: "d", Name: "docs", Kind: tree.KindFolder, Path: "/root/docs"},
			{
				ID: "s", Name: "src", Kind: tree.KindFolder, Path: "/root/src", Open: true,
				Children: []*tree.Branch{
					{ID: "m", Name: "main.go", Kind: tree.KindFile, Path: "/root/src/main.go", Language: "go", Size: 12, Modified: true},
				},
			},
		},
	}
}

func sampleActivity() []activity.Entry {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return []activity.Entry{
		{ID: "1", Severity: activity.Info, Message: "imported acme/app", Time: at},
		{ID: "2", Severity: activity.Error, Message: "fetch failed", Time: at.Add(time.Second)},
	}
}

func sampleTabs() []atelierv1.TabInfo {
	return []atelierv1.TabInfo{
		{ID: "t1", Name: "main.go", Path: "/root/src/main.go", Language: "go", IsModified: true, Active: true},
		{ID: "t2", Name: "README.md", Path: "/root/README.md", Language: "markdown"},
	}
}

type stubFormatter struct{ out string }

func (s *stubFormatter) Format(w *bytes.Buffer, _ *View) error {
	w.WriteString(s.out)
	return nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", func() Formatter { return &stubFormatter{out: "x"} })

	f, err := r.Get("stub")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, &View{}))
	assert.Equal(t, "x", buf.String())
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	r.Register("b", func() Formatter { return &stubFormatter{} })
	r.Register("a", func() Formatter { return &stubFormatter{} })

	_, err := r.Get("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "nope"`)
	assert.Contains(t, err.Error(), "[a b]")
}

func TestRegistry_NewInstancePerGet(t *testing.T) {
	f1, err := Get("template")
	require.NoError(t, err)
	f2, err := Get("template")
	require.NoError(t, err)
	assert.NotSame(t, f1, f2)
}

func TestDefaultRegistry_Available(t *testing.T) {
	assert.Equal(t, []string{"json", "jsonl", "plain", "pretty", "template", "yaml"}, Available())
}

func TestWrite(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Write(&sb, &PlainFormatter{}, &View{Message: "saved /root/a.go"}))
	assert.Equal(t, "saved /root/a.go\n", sb.String())
}
