package importer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// LocalSource imports a directory on the host. Symlinks are not followed.
type LocalSource struct {
	Root string
}

func (l *LocalSource) Name() string {
	return l.Root
}

func (l *LocalSource) List(ctx context.Context) ([]Entry, error) {
	absRoot, err := filepath.Abs(l.Root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out []Entry
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, absRoot, func(p string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if walkErr != nil || p == absRoot {
			return nil //nolint:nilerr // unreadable entries are skipped
		}

		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return nil //nolint:nilerr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			mu.Lock()
			out = append(out, Entry{Path: rel, Kind: KindDir})
			mu.Unlock()
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr
		}
		mu.Lock()
		out = append(out, Entry{Path: rel, Kind: KindFile, Size: info.Size()})
		mu.Unlock()
		return nil
	})
	return out, err
}

func (l *LocalSource) Fetch(_ context.Context, e Entry) ([]byte, error) {
	if e.Kind != KindFile {
		return nil, ErrNotFile
	}
	return os.ReadFile(filepath.Join(l.Root, filepath.FromSlash(e.Path)))
}
