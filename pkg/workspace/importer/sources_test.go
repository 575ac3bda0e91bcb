package importer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, string(e.Kind)+":"+e.Path)
	}
	sort.Strings(out)
	return out
}

func newGitHubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server

	write := func(w http.ResponseWriter, items []contentItem) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(items)
	}

	mux.HandleFunc("/repos/octo/demo/contents/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ref") != "main" {
			http.Error(w, "bad ref", http.StatusBadRequest)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "no auth", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/repos/octo/demo/contents/":
			write(w, []contentItem{
				{Type: "file", Path: "README.md", Size: 7, DownloadURL: srv.URL + "/raw/README.md"},
				{Type: "dir", Path: "src"},
				{Type: "symlink", Path: "link"},
			})
		case "/repos/octo/demo/contents/src":
			write(w, []contentItem{
				{Type: "file", Path: "src/main.go", Size: 12, DownloadURL: srv.URL + "/raw/src/main.go"},
			})
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/raw/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/raw/README.md":
			_, _ = w.Write([]byte("# demo\n"))
		case "/raw/src/main.go":
			_, _ = w.Write([]byte("package main"))
		default:
			http.NotFound(w, r)
		}
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHubSourceList(t *testing.T) {
	srv := newGitHubServer(t)
	src := &GitHubSource{Owner: "octo", Repo: "demo", Branch: "main", Token: "tok", BaseURL: srv.URL}

	entries, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"dir:src", "file:README.md", "file:src/main.go"}, paths(entries))

	for _, e := range entries {
		if e.Path == "src/main.go" {
			body, err := src.Fetch(context.Background(), e)
			require.NoError(t, err)
			assert.Equal(t, "package main", string(body))
		}
	}
	assert.Equal(t, "octo/demo@main", src.Name())
}

func TestGitHubSourceErrors(t *testing.T) {
	srv := newGitHubServer(t)

	src := &GitHubSource{Owner: "octo", Repo: "demo", Branch: "main", BaseURL: srv.URL}
	_, err := src.List(context.Background())
	assert.ErrorContains(t, err, "401")

	src = &GitHubSource{Owner: "octo", Repo: "missing", Branch: "main", Token: "tok", BaseURL: srv.URL}
	_, err = src.List(context.Background())
	assert.ErrorContains(t, err, "404")

	_, err = src.Fetch(context.Background(), Entry{Path: "d", Kind: KindDir})
	assert.ErrorIs(t, err, ErrNotFile)
	_, err = src.Fetch(context.Background(), Entry{Path: "f", Kind: KindFile})
	assert.Error(t, err)
}

func TestParseRepo(t *testing.T) {
	tests := []struct {
		in          string
		owner, repo string
		wantErr     bool
	}{
		{"octo/demo", "octo", "demo", false},
		{"https://github.com/octo/demo", "octo", "demo", false},
		{"https://github.com/octo/demo.git", "octo", "demo", false},
		{" octo/demo/ ", "octo", "demo", false},
		{"octo", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			owner, repo, err := ParseRepo(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, repo)
		})
	}
}

func TestListBilly(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "README.md", []byte("# r"), 0o644))
	require.NoError(t, util.WriteFile(fs, "pkg/a/a.go", []byte("package a"), 0o644))
	require.NoError(t, util.WriteFile(fs, ".git/HEAD", []byte("ref"), 0o644))

	entries, err := listBilly(fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"dir:pkg", "dir:pkg/a", "file:README.md", "file:pkg/a/a.go"}, paths(entries))

	body, err := readBilly(fs, Entry{Path: "pkg/a/a.go", Kind: KindFile})
	require.NoError(t, err)
	assert.Equal(t, "package a", string(body))
}

func TestLocalSource(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "deep"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "deep", "x.py"), []byte("print(1)"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("t"), 0o644))

	src := &LocalSource{Root: root}
	entries, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"dir:src", "dir:src/deep", "file:src/deep/x.py", "file:top.txt"}, paths(entries))

	body, err := src.Fetch(context.Background(), Entry{Path: "src/deep/x.py", Kind: KindFile})
	require.NoError(t, err)
	assert.Equal(t, "print(1)", string(body))

	_, err = (&LocalSource{Root: filepath.Join(root, "nope")}).List(context.Background())
	assert.Error(t, err)
}

func TestSortEntries(t *testing.T) {
	entries := []Entry{
		{Path: "b/x", Kind: KindFile},
		{Path: "b", Kind: KindDir},
		{Path: "a", Kind: KindFile},
		{Path: "a2", Kind: KindDir},
	}
	sortEntries(entries)
	assert.Equal(t, "a2", entries[0].Path)
	assert.Equal(t, "b", entries[1].Path)
	assert.Equal(t, "a", entries[2].Path)
	assert.Equal(t, "b/x", entries[3].Path)
}
