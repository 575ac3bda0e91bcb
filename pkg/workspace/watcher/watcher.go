// Package watcher mirrors changes in a host directory into a folder of the
// workspace tree.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

// DefaultMaxFileSize matches the import threshold.
const DefaultMaxFileSize = 500000

// Target is the part of the tree the watcher writes to.
type Target interface {
	MkdirAll(p string) (string, error)
	WriteFile(p, content string) (string, bool, error)
	GetNodeByPath(p string) (tree.Node, bool)
	DeleteNode(id string) error
}

// Watcher applies host filesystem events to a tree.
type Watcher struct {
	target      Target
	watcher     *fsnotify.Watcher
	hostRoot    string
	dest        string
	paths       map[string]bool
	mu          sync.RWMutex
	closed      bool
	maxFileSize int64
	log         *logging.Logger
}

// New creates a watcher that mirrors hostRoot into the tree folder dest.
func New(target Target, hostRoot, dest string) (*Watcher, error) {
	absRoot, err := filepath.Abs(hostRoot)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		target:      target,
		watcher:     fsw,
		hostRoot:    absRoot,
		dest:        vpath.Clean(dest),
		paths:       make(map[string]bool),
		maxFileSize: DefaultMaxFileSize,
		log:         logging.Get("watcher"),
	}, nil
}

// SetMaxFileSize changes the size above which files are ignored.
func (w *Watcher) SetMaxFileSize(n int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n > 0 {
		w.maxFileSize = n
	}
}

// Start adds watches on the host root and every directory below it.
// Symlinks are not followed.
func (w *Watcher) Start() error {
	info, err := os.Lstat(w.hostRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "watch", Path: w.hostRoot, Err: fs.ErrInvalid}
	}
	return w.addTree(w.hostRoot)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // skip unreadable entries
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return w.addWatch(p)
		}
		return nil
	})
}

func (w *Watcher) addWatch(p string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[p] {
		return nil
	}
	if err := w.watcher.Add(p); err != nil {
		w.log.Warn("failed to add watch", "path", p, "error", err)
		return err
	}
	w.paths[p] = true
	return nil
}

// Watched returns the number of watched directories.
func (w *Watcher) Watched() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.paths)
}

// Run applies events until ctx is cancelled or the watcher is closed.
// onChange, if set, is called with the tree path after each applied event.
func (w *Watcher) Run(ctx context.Context, onChange func(treePath string, op fsnotify.Op)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if p, applied := w.handleEvent(event); applied && onChange != nil {
				onChange(p, event.Op)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

// treePath maps a host path to its tree path. ok is false for paths outside
// the host root and for the root itself.
func (w *Watcher) treePath(hostPath string) (string, bool) {
	rel, err := filepath.Rel(w.hostRoot, hostPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".git" {
			return "", false
		}
	}
	return w.dest + vpath.Sep + rel, true
}

func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	p, ok := w.treePath(event.Name)
	if !ok {
		return "", false
	}
	switch {
	case event.Op&fsnotify.Create != 0:
		return p, w.handleCreate(event.Name, p)
	case event.Op&fsnotify.Write != 0:
		return p, w.handleWrite(event.Name, p)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// the new name of a rename arrives as a create
		return p, w.handleRemove(event.Name, p)
	}
	return "", false
}

func (w *Watcher) handleCreate(hostPath, p string) bool {
	info, err := os.Lstat(hostPath)
	if err != nil || info.Mode()&fs.ModeSymlink != 0 {
		return false
	}
	if !info.IsDir() {
		return w.handleWrite(hostPath, p)
	}

	if _, err := w.target.MkdirAll(p); err != nil {
		w.log.Warn("mirror folder failed", "path", p, "error", err)
		return false
	}
	_ = w.addWatch(hostPath)

	// pick up anything created inside before the watch was added
	_ = filepath.WalkDir(hostPath, func(sub string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || sub == hostPath {
			return nil //nolint:nilerr
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		sp, ok := w.treePath(sub)
		if !ok {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			_ = w.addWatch(sub)
			_, _ = w.target.MkdirAll(sp)
			return nil
		}
		w.handleWrite(sub, sp)
		return nil
	})
	return true
}

func (w *Watcher) handleWrite(hostPath, p string) bool {
	info, err := os.Stat(hostPath)
	if err != nil || info.IsDir() {
		return false
	}

	w.mu.RLock()
	limit := w.maxFileSize
	w.mu.RUnlock()
	if info.Size() > limit {
		w.log.Debug("skipping large file", "path", hostPath, "size", info.Size())
		return false
	}

	body, err := os.ReadFile(hostPath)
	if err != nil {
		return false
	}
	if _, _, err := w.target.WriteFile(p, string(body)); err != nil {
		w.log.Warn("mirror file failed", "path", p, "error", err)
		return false
	}
	return true
}

func (w *Watcher) handleRemove(hostPath, p string) bool {
	w.mu.Lock()
	for watched := range w.paths {
		if watched == hostPath || isSubPath(watched, hostPath) {
			_ = w.watcher.Remove(watched)
			delete(w.paths, watched)
		}
	}
	w.mu.Unlock()

	n, ok := w.target.GetNodeByPath(p)
	if !ok {
		return false
	}
	if err := w.target.DeleteNode(n.ID); err != nil {
		w.log.Warn("mirror delete failed", "path", p, "error", err)
		return false
	}
	return true
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
