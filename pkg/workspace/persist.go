package workspace

import (
	"context"
	"time"

	"github.com/jamesainslie/atelier/pkg/workspace/tabs"
)

// Restore loads the persisted tree and tabs. Tabs whose file no longer
// exists are dropped. A corrupt session is reported as a warning and the
// workspace starts empty; it never fails the caller.
func (w *Workspace) Restore() {
	if w.persister == nil {
		return
	}

	nodes, err := w.persister.RestoreTree()
	switch {
	case err != nil:
		w.Activity.Warnf("Could not read saved workspace: %v", err)
	case nodes != nil:
		if err := w.Tree.Load(nodes); err != nil {
			w.Activity.Warnf("Saved workspace is damaged, starting empty: %v", err)
		}
	}

	saved, activeID, err := w.persister.RestoreTabs()
	if err != nil {
		w.Activity.Warnf("Could not read saved tabs: %v", err)
		return
	}

	kept := make([]tabs.Tab, 0, len(saved))
	for _, t := range saved {
		n, ok := w.Tree.GetNodeByID(t.ID)
		if !ok || n.IsFolder() {
			w.log.Debug("dropping tab for missing file", "tab", t.ID, "path", t.Path)
			continue
		}
		t.Name, t.Path, t.Language = n.Name, n.Path, n.Language
		kept = append(kept, t)
	}
	w.Tabs.Restore(kept, activeID)

	if len(kept) > 0 {
		w.Activity.Infof("Restored %d tabs", len(kept))
	}
}

// Persist writes the tree and the tabs. Failures become activity warnings
// and are also returned.
func (w *Workspace) Persist() error {
	if w.persister == nil {
		return nil
	}
	w.persistMu.Lock()
	defer w.persistMu.Unlock()

	if err := w.persister.SaveTree(w.Tree.Export()); err != nil {
		w.Activity.Warnf("Saving workspace failed: %v", err)
		return err
	}
	if err := w.persister.SaveTabs(w.Tabs.Tabs(), w.Tabs.ActiveID()); err != nil {
		w.Activity.Warnf("Saving tabs failed: %v", err)
		return err
	}
	return nil
}

// Run persists the session whenever the tab list or active tab changes and
// on every SaveInterval tick, until ctx is cancelled. A final save is made
// on the way out.
func (w *Workspace) Run(ctx context.Context) {
	if w.persister == nil {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(w.opts.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = w.Persist()
			return
		case <-w.dirty:
			_ = w.Persist()
		case <-ticker.C:
			_ = w.Persist()
		}
	}
}

// Close persists the session one last time and releases resources.
func (w *Workspace) Close() error {
	var err error
	w.closeOnce.Do(func() {
		if w.persister != nil {
			_ = w.Persist()
			err = w.persister.Close()
		}
		w.Events.Close()
	})
	return err
}
