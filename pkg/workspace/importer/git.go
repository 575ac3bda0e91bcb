package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

// GitSource shallow-clones a repository into memory and imports its
// worktree. Nothing is written to the host filesystem.
type GitSource struct {
	URL    string
	Branch string

	once sync.Once
	fs   billy.Filesystem
	err  error
}

func (s *GitSource) Name() string {
	if s.Branch == "" {
		return s.URL
	}
	return s.URL + "@" + s.Branch
}

func (s *GitSource) clone(ctx context.Context) (billy.Filesystem, error) {
	s.once.Do(func() {
		opts := &git.CloneOptions{
			URL:          s.URL,
			Depth:        1,
			SingleBranch: true,
		}
		if s.Branch != "" {
			opts.ReferenceName = plumbing.NewBranchReferenceName(s.Branch)
		}
		fs := memfs.New()
		if _, err := git.CloneContext(ctx, memory.NewStorage(), fs, opts); err != nil {
			s.err = fmt.Errorf("cloning %s: %w", s.Name(), err)
			return
		}
		s.fs = fs
	})
	return s.fs, s.err
}

func (s *GitSource) List(ctx context.Context) ([]Entry, error) {
	fs, err := s.clone(ctx)
	if err != nil {
		return nil, err
	}
	return listBilly(fs)
}

func (s *GitSource) Fetch(ctx context.Context, e Entry) ([]byte, error) {
	fs, err := s.clone(ctx)
	if err != nil {
		return nil, err
	}
	return readBilly(fs, e)
}

// listBilly walks fs from its root. The .git directory is skipped.
func listBilly(fs billy.Filesystem) ([]Entry, error) {
	var out []Entry
	err := util.Walk(fs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel := trimRoot(p)
		if rel == "" {
			return nil
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			out = append(out, Entry{Path: rel, Kind: KindDir})
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		out = append(out, Entry{Path: rel, Kind: KindFile, Size: info.Size()})
		return nil
	})
	return out, err
}

func trimRoot(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}

func readBilly(fs billy.Filesystem, e Entry) ([]byte, error) {
	if e.Kind != KindFile {
		return nil, ErrNotFile
	}
	f, err := fs.Open(e.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
