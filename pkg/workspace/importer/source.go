// Package importer copies a directory listing from an external source
// (GitHub, a git remote, the host filesystem) into the workspace tree.
package importer

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Kind distinguishes directory entries from files.
type Kind string

const (
	KindDir  Kind = "dir"
	KindFile Kind = "file"
)

// Entry is one item of a source listing. Path is slash-separated and
// relative to the source root.
type Entry struct {
	Path        string `json:"path"`
	Kind        Kind   `json:"type"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url,omitempty"`
}

// Source lists and fetches the files of something importable.
type Source interface {
	// Name describes the source in log entries.
	Name() string
	// List returns every directory and file, in any order.
	List(ctx context.Context) ([]Entry, error)
	// Fetch returns the body of a file entry.
	Fetch(ctx context.Context, e Entry) ([]byte, error)
}

// ErrNotFile is returned by Fetch for directory entries.
var ErrNotFile = errors.New("entry is not a file")

// sortEntries orders directories before files, each by path, so parents are
// created before their children.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind == KindDir
		}
		return entries[i].Path < entries[j].Path
	})
}

// matcher tests entry paths against exclude globs. A pattern matches when it
// matches the full relative path or any single segment of it.
type matcher struct {
	globs []glob.Glob
}

func newMatcher(patterns []string) (*matcher, error) {
	m := &matcher{}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

func (m *matcher) excluded(rel string) bool {
	if m == nil || len(m.globs) == 0 {
		return false
	}
	rel = strings.Trim(path.Clean("/"+rel), "/")
	segs := strings.Split(rel, "/")
	for _, g := range m.globs {
		if g.Match(rel) {
			return true
		}
		for _, s := range segs {
			if g.Match(s) {
				return true
			}
		}
	}
	return false
}
