package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

func TestTemplateFormatter_Format_Default(t *testing.T) {
	f, err := Get("template")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, &View{Nodes: []tree.Node{
		{Kind: tree.KindFolder, Path: "/root/src"},
		{Kind: tree.KindFile, Path: "/root/src/main.go"},
	}}))
	assert.Equal(t, "/root/src\n/root/src/main.go\n", buf.String())
}

func TestTemplateFormatter_Format_Funcs(t *testing.T) {
	f := NewTemplateFormatter(`{{range .Activity}}{{date .Time "15:04"}} {{upper (printf "%s" .Severity)}}{{"\n"}}{{end}}{{bytes (len .Content)}}`)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, &View{Activity: sampleActivity()[:1], Content: "hello"}))
	assert.Equal(t, "09:30 INFO\n5 B", buf.String())
}

func TestTemplateFormatter_SetTemplate(t *testing.T) {
	f := NewTemplateFormatter("{{.Message}}")

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, &View{Message: "one"}))
	f.SetTemplate("[{{.Message}}]")
	require.NoError(t, f.Format(&buf, &View{Message: "two"}))
	assert.Equal(t, "one[two]", buf.String())
}

func TestTemplateFormatter_Format_ParseError(t *testing.T) {
	f := NewTemplateFormatter("{{.Message")
	var buf bytes.Buffer
	assert.Error(t, f.Format(&buf, &View{}))
}
