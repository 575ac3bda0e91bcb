package vpath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

func TestHasPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path, prefix string
		want         bool
	}{
		{"/root/src", "/root/src", true},
		{"/root/src/a.go", "/root/src", true},
		{"/root/src-backup", "/root/src", false},
		{"/root/src-backup/a.go", "/root/src", false},
		{"/root/sr", "/root/src", false},
		{"/root", "/root/src", false},
	}
	for _, tt := range tests {
		if got := vpath.HasPrefix(tt.path, tt.prefix); got != tt.want {
			t.Errorf("HasPrefix(%q, %q) = %v, want %v", tt.path, tt.prefix, got, tt.want)
		}
	}
}

func TestReplacePrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/root/source/a.go", vpath.ReplacePrefix("/root/src/a.go", "/root/src", "/root/source"))
	assert.Equal(t, "/root/source", vpath.ReplacePrefix("/root/src", "/root/src", "/root/source"))
	assert.Equal(t, "/root/src-backup/a.go", vpath.ReplacePrefix("/root/src-backup/a.go", "/root/src", "/root/source"))
}

func TestJoinBaseDir(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/root", vpath.Join("", "root"))
	assert.Equal(t, "/root/docs", vpath.Join("/root", "docs"))
	assert.Equal(t, "docs", vpath.Base("/root/docs"))
	assert.Equal(t, "/root", vpath.Dir("/root/docs"))
	assert.Equal(t, "", vpath.Dir("/root"))
	assert.Equal(t, []string{"root", "a", "b"}, vpath.Split("/root//a/b/"))
}

func TestClean(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/root/a", vpath.Clean("root/./a/"))
	assert.Equal(t, "/root", vpath.Clean("/root/a/.."))
	assert.Equal(t, "", vpath.Clean("/"))
}

func TestExt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".md", vpath.Ext("README.MD"))
	assert.Equal(t, ".gz", vpath.Ext("/root/a.tar.gz"))
	assert.Equal(t, "", vpath.Ext(".gitignore"))
	assert.Equal(t, "", vpath.Ext("Makefile"))
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "  ", ".", "..", "a/b"} {
		assert.ErrorIs(t, vpath.ValidateName(bad), vpath.ErrInvalidName, "name %q", bad)
	}
	assert.NoError(t, vpath.ValidateName("main.go"))
}

func TestNewIDUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := vpath.NewID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
