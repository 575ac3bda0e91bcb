package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"app.js", "javascript"},
		{"view.jsx", "javascript"},
		{"index.TS", "typescript"},
		{"main.go", "go"},
		{"lib.rs", "rust"},
		{"util.hpp", "cpp"},
		{"README.md", "markdown"},
		{"/root/docs/guide.markdown", "markdown"},
		{"config.yml", "yaml"},
		{"build.sh", "shell"},
		{"notes.txt", "plaintext"},
		{"Makefile", "plaintext"},
		{".gitignore", "plaintext"},
		{"archive.tar.gz", "plaintext"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tree.DetectLanguage(tt.name))
		})
	}
}

func TestLanguagesIsACopy(t *testing.T) {
	langs := tree.Languages()
	assert.Equal(t, "go", langs[".go"])

	langs[".go"] = "changed"
	assert.Equal(t, "go", tree.DetectLanguage("main.go"))
}
