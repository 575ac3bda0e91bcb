package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

func TestMkdirAll(t *testing.T) {
	s := tree.New("root")

	id, err := s.MkdirAll("/root/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "/root/a/b/c", pathOf(t, s, id))

	again, err := s.MkdirAll("/root/a/b/c/")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	rootID, err := s.MkdirAll("/root")
	require.NoError(t, err)
	assert.Equal(t, tree.RootID, rootID)

	_, err = s.MkdirAll("/elsewhere/x")
	assert.ErrorIs(t, err, tree.ErrInvalidOperation)
	assert.NoError(t, s.Verify())
}

func TestWriteFile(t *testing.T) {
	s := tree.New("root")

	id, created, err := s.WriteFile("/root/src/main.go", "package main")
	require.NoError(t, err)
	assert.True(t, created)

	n, _ := s.GetNodeByID(id)
	assert.Equal(t, "package main", n.Content)
	assert.Equal(t, "go", n.Language)
	assert.False(t, n.IsModified)

	same, created, err := s.WriteFile("/root/src/main.go", "package app")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, same)

	content, err := s.ReadFile("/root/src/main.go")
	require.NoError(t, err)
	assert.Equal(t, "package app", content)

	_, _, err = s.WriteFile("/root/src", "x")
	assert.ErrorIs(t, err, tree.ErrInvalidOperation)

	_, _, err = s.WriteFile("/root/src/main.go/inner.txt", "x")
	assert.ErrorIs(t, err, tree.ErrInvalidOperation)
}

func TestReadFileErrors(t *testing.T) {
	s := tree.New("root")
	_, err := s.ReadFile("/root/missing")
	assert.Error(t, err)
	_, err = s.ReadFile("/root")
	assert.Error(t, err)
}
