package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

func TestPrettyFormatter_Format_Tree(t *testing.T) {
	var buf bytes.Buffer
	err := (&PrettyFormatter{}).Format(&buf, &View{
		Tree:  sampleTree(),
		Stats: &tree.Stats{Folders: 3, Files: 1, Bytes: 12},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "docs/")
	assert.Contains(t, out, "…", "closed empty folders are marked")
	assert.Contains(t, out, "●", "modified files are marked")
	assert.Contains(t, out, "3 folders")
}

func TestPrettyFormatter_Format_Tabs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, &View{Tabs: sampleTabs()}))

	out := buf.String()
	assert.Contains(t, out, "▸ ")
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "README.md")
}

func TestPrettyFormatter_Format_Activity(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, &View{Activity: sampleActivity()}))

	out := buf.String()
	assert.Contains(t, out, "imported acme/app")
	assert.Contains(t, out, "fetch failed")
}

func TestPrettyFormatter_Format_Status(t *testing.T) {
	var buf bytes.Buffer
	err := (&PrettyFormatter{}).Format(&buf, &View{Status: &atelierv1.StatusResponse{
		Running: true, PID: 7, Root: "/root", Mirrors: []string{"/root/app"},
	}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "/root/app")
	assert.Contains(t, out, "7")
}

func TestPrettyFormatter_Format_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, &View{}))
	assert.Empty(t, buf.String())
}
