package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/workspace/importer"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

func TestPlainFormatter_Format_Tree(t *testing.T) {
	var buf bytes.Buffer
	err := (&PlainFormatter{}).Format(&buf, &View{
		Tree:  sampleTree(),
		Stats: &tree.Stats{Folders: 3, Files: 1, Bytes: 12},
	})
	require.NoError(t, err)

	want := "root/\n" +
		"├── docs/\n" +
		"└── src/\n" +
		"    └── main.go\n" +
		"3 folders, 1 files, 12 B\n"
	assert.Equal(t, want, buf.String())
}

func TestPlainFormatter_Format_Content(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, &View{Path: "/root/a.txt", Content: "no newline"}))
	assert.Equal(t, "no newline\n", buf.String())

	buf.Reset()
	require.NoError(t, (&PlainFormatter{}).Format(&buf, &View{Path: "/root/empty.txt"}))
	assert.Empty(t, buf.String())
}

func TestPlainFormatter_Format_Nodes(t *testing.T) {
	var buf bytes.Buffer
	err := (&PlainFormatter{}).Format(&buf, &View{Nodes: []tree.Node{
		{Kind: tree.KindFolder, Path: "/root/src"},
		{Kind: tree.KindFile, Path: "/root/src/main.go", Language: "go", Content: "package main"},
	}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"KIND", "PATH", "LANGUAGE", "SIZE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"folder", "/root/src", "-", "-"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"file", "/root/src/main.go", "go", "12", "B"}, strings.Fields(lines[2]))
}

func TestPlainFormatter_Format_Tabs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, &View{Tabs: sampleTabs()}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"*", "main.go", "/root/src/main.go", "yes"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"README.md", "/root/README.md"}, strings.Fields(lines[2]))
}

func TestPlainFormatter_Format_Activity(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, &View{Activity: sampleActivity()}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"09:30:00", "info", "imported", "acme/app"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"09:30:01", "error", "fetch", "failed"}, strings.Fields(lines[1]))
}

func TestPlainFormatter_Format_ImportAndStatus(t *testing.T) {
	var buf bytes.Buffer
	err := (&PlainFormatter{}).Format(&buf, &View{
		Import: &importer.Result{
			Source: "acme/app", Dest: "/root/app", Files: 4, Folders: 2, Skipped: 1,
			Bytes: 2048, Duration: 1500 * time.Millisecond,
		},
		Status: &atelierv1.StatusResponse{
			Running: true, PID: 42, Root: "/root", Session: true,
			Stats: tree.Stats{Folders: 3, Files: 4},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "imported acme/app into /root/app: 4 files, 2 folders, 1 skipped, 0 failed (2.0 kB in 1.5s)")
	assert.Contains(t, out, "pid: 42")
	assert.Contains(t, out, "root: /root")
	assert.Contains(t, out, "session: on")
}
