// Package workspace ties the tree, the tabs, the activity log and session
// persistence together and offers the operations a user performs in the
// IDE. Cross-store rules live here: renames and moves refresh open tabs,
// deletes close them.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/workspace/activity"
	"github.com/jamesainslie/atelier/pkg/workspace/events"
	"github.com/jamesainslie/atelier/pkg/workspace/importer"
	"github.com/jamesainslie/atelier/pkg/workspace/session"
	"github.com/jamesainslie/atelier/pkg/workspace/tabs"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

// ErrNotFound is returned when an operation names a node or tab that does
// not exist.
var ErrNotFound = errors.New("not found")

// Workspace is one editing session. Its stores are exported for read
// access; mutations should go through Workspace methods so the cross-store
// rules hold.
type Workspace struct {
	Tree     *tree.Store
	Tabs     *tabs.Store
	Activity *activity.Log
	Events   *events.Broadcaster

	opts      Options
	persister *session.Persister
	dirty     chan struct{}
	persistMu sync.Mutex
	closeOnce sync.Once
	log       *logging.Logger
}

// New builds an empty workspace.
func New(opts Options) *Workspace {
	opts = opts.withDefaults()

	bus := events.New()
	log := activity.New(opts.ActivityCapacity)
	t := tree.New(opts.RootName, tree.WithBroadcaster(bus), tree.WithActivity(log))
	tb := tabs.New(t,
		tabs.WithHistoryLimit(opts.HistoryLimit),
		tabs.WithBroadcaster(bus),
		tabs.WithActivity(log),
	)

	w := &Workspace{
		Tree:      t,
		Tabs:      tb,
		Activity:  log,
		Events:    bus,
		opts:      opts,
		persister: opts.Persister,
		dirty:     make(chan struct{}, 1),
		log:       logging.Get("workspace"),
	}
	tb.OnChange(w.markDirty)
	return w
}

func (w *Workspace) markDirty() {
	select {
	case w.dirty <- struct{}{}:
	default:
	}
}

func (w *Workspace) node(id string) (tree.Node, error) {
	n, ok := w.Tree.GetNodeByID(id)
	if !ok {
		return tree.Node{}, fmt.Errorf("node %q: %w", id, ErrNotFound)
	}
	return n, nil
}

// Resolve finds a node by id or by path (see AbsPath).
func (w *Workspace) Resolve(ref string) (tree.Node, error) {
	if n, ok := w.Tree.GetNodeByID(ref); ok {
		return n, nil
	}
	if n, ok := w.Tree.GetNodeByPath(w.AbsPath(ref)); ok {
		return n, nil
	}
	return tree.Node{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
}

// AbsPath maps p onto the tree. Paths under the root are kept; anything
// else, relative or not, is taken relative to the root.
func (w *Workspace) AbsPath(p string) string {
	root := w.Tree.Root().Path
	c := vpath.Clean(p)
	switch {
	case c == "":
		return root
	case vpath.HasPrefix(c, root):
		return c
	}
	return vpath.Clean(root + c)
}

// CreateFile creates an empty file and opens it.
func (w *Workspace) CreateFile(parentPath, name string) (string, error) {
	id, err := w.create(parentPath, name, tree.KindFile)
	if err != nil {
		return "", err
	}
	w.Tabs.OpenTab(id)
	return id, nil
}

// CreateFolder creates an empty folder.
func (w *Workspace) CreateFolder(parentPath, name string) (string, error) {
	return w.create(parentPath, name, tree.KindFolder)
}

func (w *Workspace) create(parentPath, name string, kind tree.Kind) (string, error) {
	parentPath = vpath.Clean(parentPath)
	parent, ok := w.Tree.GetNodeByPath(parentPath)
	if !ok {
		return "", fmt.Errorf("folder %s: %w", parentPath, ErrNotFound)
	}
	if !parent.IsFolder() {
		err := fmt.Errorf("%w: %s is not a folder", tree.ErrInvalidOperation, parentPath)
		w.Activity.Warnf("%s", err)
		return "", err
	}
	id, created := w.Tree.CreateNode(parentPath, name, kind)
	if !created {
		// the tree has already reported why
		return "", fmt.Errorf("%w: cannot create %s", tree.ErrInvalidOperation, vpath.Join(parentPath, name))
	}
	w.Activity.Successf("Created %s %s", kind, vpath.Join(parentPath, name))
	return id, nil
}

// Rename renames a node and refreshes the tabs of every file beneath it.
func (w *Workspace) Rename(id, name string) error {
	n, err := w.node(id)
	if err != nil {
		return err
	}
	if err := w.Tree.RenameNode(id, name); err != nil {
		return err
	}
	w.syncTabs(id)
	w.Activity.Infof("Renamed %s to %s", n.Name, name)
	return nil
}

// Move reparents a node and refreshes the tabs of every file beneath it.
func (w *Workspace) Move(id, parentID string) error {
	n, err := w.node(id)
	if err != nil {
		return err
	}
	dest, err := w.node(parentID)
	if err != nil {
		return err
	}
	if err := w.Tree.MoveNode(id, parentID); err != nil {
		return err
	}
	w.syncTabs(id)
	w.Activity.Infof("Moved %s to %s", n.Name, dest.Path)
	return nil
}

func (w *Workspace) syncTabs(id string) {
	for _, d := range w.Tree.Descendants(id) {
		w.Tabs.SyncFromTree(d)
	}
}

// Delete removes a node and closes the tabs of every file beneath it.
func (w *Workspace) Delete(id string) error {
	n, err := w.node(id)
	if err != nil {
		return err
	}
	doomed := w.Tree.Descendants(id)
	if err := w.Tree.DeleteNode(id); err != nil {
		return err
	}
	for _, d := range doomed {
		w.Tabs.DropTab(d)
	}
	w.Activity.Infof("Deleted %s", n.Path)
	return nil
}

// Open opens a file in a tab, or toggles a folder open or closed.
func (w *Workspace) Open(id string) error {
	n, err := w.node(id)
	if err != nil {
		return err
	}
	if n.IsFolder() {
		w.Tree.ToggleFolder(id)
		return nil
	}
	w.Tabs.OpenTab(id)
	return nil
}

// CloseTab closes a tab. Unknown tabs are ignored.
func (w *Workspace) CloseTab(tabID string) {
	w.Tabs.CloseTab(tabID)
}

// Edit replaces a tab's buffer.
func (w *Workspace) Edit(tabID, content string) error {
	if _, ok := w.Tabs.GetTabContent(tabID); !ok {
		return fmt.Errorf("tab %q: %w", tabID, ErrNotFound)
	}
	w.Tabs.UpdateTabContent(tabID, content)
	return nil
}

// Save writes a tab's buffer to its file.
func (w *Workspace) Save(tabID string) error {
	if !w.Tabs.SaveTab(tabID) {
		return fmt.Errorf("tab %q: %w", tabID, ErrNotFound)
	}
	if n, ok := w.Tree.GetNodeByID(tabID); ok {
		w.Activity.Successf("Saved %s", n.Path)
	}
	return nil
}

// SaveActive saves the active tab, if any.
func (w *Workspace) SaveActive() bool {
	id := w.Tabs.ActiveID()
	if id == "" {
		return false
	}
	return w.Save(id) == nil
}

// SaveAll saves every open tab and returns how many were saved.
func (w *Workspace) SaveAll() int {
	n := w.Tabs.SaveAllFiles()
	if n > 0 {
		w.Activity.Successf("Saved %d files", n)
	}
	return n
}

// Undo reverts the most recent tab action.
func (w *Workspace) Undo() (tabs.Action, bool) {
	a, ok := w.Tabs.UndoLastAction()
	if !ok {
		w.Activity.Infof("Nothing to undo")
	}
	return a, ok
}

// Redo reapplies the most recently undone tab action.
func (w *Workspace) Redo() (tabs.Action, bool) {
	a, ok := w.Tabs.RedoLastAction()
	if !ok {
		w.Activity.Infof("Nothing to redo")
	}
	return a, ok
}

// MoveTab reorders the tab bar.
func (w *Workspace) MoveTab(from, to int) error {
	return w.Tabs.MoveTab(from, to)
}

// Import copies src under dest ("" for the root folder). Per-file outcomes
// are reported to the activity log; partial imports are kept.
func (w *Workspace) Import(ctx context.Context, src importer.Source, dest string, opts ...importer.Option) (importer.Result, error) {
	base := []importer.Option{
		importer.WithMaxFileSize(w.opts.MaxFileSize),
		importer.WithExclude(w.opts.Exclude...),
	}
	imp, err := importer.New(w.Tree, w.Activity, append(base, opts...)...)
	if err != nil {
		return importer.Result{}, err
	}
	res, err := imp.Import(ctx, src, dest)
	w.markDirty()
	return res, err
}

// Reset replaces the tree with an empty root folder and closes every tab.
// An empty rootName keeps the current name.
func (w *Workspace) Reset(rootName string) {
	if rootName == "" {
		rootName = w.Tree.Root().Name
	}
	w.Tree.ReplaceTree(rootName)
	w.Tabs.Restore(nil, "")
	w.markDirty()
}

// Search returns the nodes whose name contains query, ignoring case.
func (w *Workspace) Search(query string) []tree.Node {
	return w.Tree.SearchNodes(query)
}

// Options returns the settings the workspace was built with.
func (w *Workspace) Options() Options {
	return w.opts
}
