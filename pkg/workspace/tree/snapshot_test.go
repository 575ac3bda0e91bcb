package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

func TestExportLoad(t *testing.T) {
	src := tree.New("project")
	_, _, err := src.WriteFile("/project/cmd/main.go", "package main")
	require.NoError(t, err)
	_, _, err = src.WriteFile("/project/README.md", "# p")
	require.NoError(t, err)

	dst := tree.New("root")
	require.NoError(t, dst.Load(src.Export()))

	assert.Equal(t, src.Export(), dst.Export())
	assert.NoError(t, dst.Verify())
	content, err := dst.ReadFile("/project/cmd/main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main", content)
}

func TestLoadRecomputesPaths(t *testing.T) {
	nodes := []tree.Node{
		{ID: tree.RootID, Name: "root", Kind: tree.KindFolder, Path: "/stale"},
		{ID: "d", Name: "docs", Kind: tree.KindFolder, ParentID: tree.RootID, Path: "/wrong"},
		{ID: "f", Name: "a.md", Kind: tree.KindFile, ParentID: "d"},
	}
	s := tree.New("root")
	require.NoError(t, s.Load(nodes))

	n, ok := s.GetNodeByID("f")
	require.True(t, ok)
	assert.Equal(t, "/root/docs/a.md", n.Path)
	assert.Equal(t, "markdown", n.Language)
	assert.NoError(t, s.Verify())
}

func TestLoadRejectsBadSnapshots(t *testing.T) {
	root := tree.Node{ID: tree.RootID, Name: "root", Kind: tree.KindFolder}
	tests := []struct {
		name  string
		nodes []tree.Node
	}{
		{"empty", nil},
		{"no root first", []tree.Node{{ID: "x", Name: "x", Kind: tree.KindFolder}}},
		{"orphan", []tree.Node{root, {ID: "a", Name: "a", ParentID: "nope"}}},
		{"file parent", []tree.Node{root, {ID: "a", Name: "a", ParentID: tree.RootID}, {ID: "b", Name: "b", ParentID: "a"}}},
		{"duplicate id", []tree.Node{root, {ID: "a", Name: "a", ParentID: tree.RootID}, {ID: "a", Name: "b", ParentID: tree.RootID}}},
		{"duplicate name", []tree.Node{root, {ID: "a", Name: "a", ParentID: tree.RootID}, {ID: "b", Name: "a", ParentID: tree.RootID}}},
		{"bad name", []tree.Node{root, {ID: "a", Name: "x/y", ParentID: tree.RootID}}},
	}

	s := tree.New("keep")
	_, _, err := s.WriteFile("/keep/file.txt", "x")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Load(tt.nodes), tree.ErrInvalidOperation)
			_, ok := s.GetNodeByPath("/keep/file.txt")
			assert.True(t, ok, "tree unchanged")
		})
	}
}
