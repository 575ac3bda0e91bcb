package workspace

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/atelier/pkg/workspace/tree"
	"github.com/jamesainslie/atelier/pkg/workspace/watcher"
)

// mirrorTarget routes watcher deletes through the workspace so open tabs
// of removed files are dropped.
type mirrorTarget struct {
	w *Workspace
}

func (m mirrorTarget) MkdirAll(p string) (string, error) { return m.w.Tree.MkdirAll(p) }

func (m mirrorTarget) WriteFile(p, content string) (string, bool, error) {
	return m.w.Tree.WriteFile(p, content)
}

func (m mirrorTarget) GetNodeByPath(p string) (tree.Node, bool) { return m.w.Tree.GetNodeByPath(p) }

func (m mirrorTarget) DeleteNode(id string) error { return m.w.Delete(id) }

// Mirror keeps the tree folder dest in step with the host directory
// hostRoot until ctx is cancelled or the returned watcher is closed. It
// does not copy existing files; import them first.
func (w *Workspace) Mirror(ctx context.Context, hostRoot, dest string) (*watcher.Watcher, error) {
	dest = w.AbsPath(dest)
	wt, err := watcher.New(mirrorTarget{w}, hostRoot, dest)
	if err != nil {
		return nil, err
	}
	wt.SetMaxFileSize(w.opts.MaxFileSize)
	if err := wt.Start(); err != nil {
		_ = wt.Close()
		return nil, err
	}

	go wt.Run(ctx, func(p string, op fsnotify.Op) {
		w.log.Debug("mirrored change", "path", p, "op", op.String())
		w.markDirty()
	})
	w.Activity.Infof("Watching %s for changes", hostRoot)
	return wt, nil
}

// HasSession reports whether the workspace persists its session.
func (w *Workspace) HasSession() bool {
	return w.persister != nil
}
