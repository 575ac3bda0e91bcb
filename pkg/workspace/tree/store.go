package tree

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/workspace/activity"
	"github.com/jamesainslie/atelier/pkg/workspace/events"
	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

// RootID is the reserved id of the root folder.
const RootID = "root"

// DefaultRootName names the root folder when none is given.
const DefaultRootName = "root"

// ErrInvalidOperation is returned for requests that would break the tree,
// such as deleting the root or moving a folder into itself. The store is
// left unchanged.
var ErrInvalidOperation = errors.New("invalid operation")

// Store owns the node arena. All methods are safe for concurrent use and
// each one is applied atomically.
type Store struct {
	mu       sync.RWMutex
	nodes    map[string]*Node
	selected string

	bus      *events.Broadcaster
	activity *activity.Log
	log      *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithBroadcaster publishes change events to b.
func WithBroadcaster(b *events.Broadcaster) Option {
	return func(s *Store) { s.bus = b }
}

// WithActivity reports rejected operations and resets to the activity log.
func WithActivity(l *activity.Log) Option {
	return func(s *Store) { s.activity = l }
}

// New returns a store holding a single empty, open root folder.
func New(rootName string, opts ...Option) *Store {
	s := &Store{log: logging.Get("tree")}
	for _, opt := range opts {
		opt(s)
	}
	s.nodes = freshArena(orDefault(rootName))
	return s
}

func orDefault(rootName string) string {
	if vpath.ValidateName(rootName) != nil {
		return DefaultRootName
	}
	return rootName
}

func freshArena(rootName string) map[string]*Node {
	return map[string]*Node{
		RootID: {
			ID:     RootID,
			Name:   rootName,
			Kind:   KindFolder,
			Path:   vpath.Join("", rootName),
			IsOpen: true,
		},
	}
}

func (s *Store) warn(err error) error {
	if s.activity != nil {
		s.activity.Warnf("%s", err)
	}
	s.log.Warn("rejected", "err", err)
	return err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}

// findPath must be called with s.mu held.
func (s *Store) findPath(p string) *Node {
	for _, n := range s.nodes {
		if n.Path == p {
			return n
		}
	}
	return nil
}

// childNamed must be called with s.mu held.
func (s *Store) childNamed(folder *Node, name string) *Node {
	for _, id := range folder.Children {
		if c := s.nodes[id]; c != nil && c.Name == name {
			return c
		}
	}
	return nil
}

// subtree returns id and all of its descendants in pre-order.
// Must be called with s.mu held.
func (s *Store) subtree(id string) []string {
	out := []string{id}
	if n := s.nodes[id]; n != nil {
		for _, c := range n.Children {
			out = append(out, s.subtree(c)...)
		}
	}
	return out
}

// isWithin reports whether id is ancestor or one of its descendants.
// Must be called with s.mu held.
func (s *Store) isWithin(id, ancestor string) bool {
	for cur := id; cur != ""; {
		if cur == ancestor {
			return true
		}
		n := s.nodes[cur]
		if n == nil {
			return false
		}
		cur = n.ParentID
	}
	return false
}

// repath moves the subtree rooted at n from oldPath to newPath. Only true
// path prefixes are rewritten. Must be called with s.mu held.
func (s *Store) repath(n *Node, oldPath, newPath string) {
	for _, id := range s.subtree(n.ID) {
		d := s.nodes[id]
		d.Path = vpath.ReplacePrefix(d.Path, oldPath, newPath)
	}
}

// CreateNode adds a file or folder named name to the folder at parentPath
// and returns its id. A missing or non-folder parent yields ("", false)
// without any change. New files become the selected node.
func (s *Store) CreateNode(parentPath, name string, kind Kind) (string, bool) {
	s.mu.Lock()
	parent := s.findPath(parentPath)
	if parent == nil || !parent.IsFolder() {
		s.mu.Unlock()
		return "", false
	}
	if err := vpath.ValidateName(name); err != nil {
		s.mu.Unlock()
		_ = s.warn(fmt.Errorf("%w: create in %s: %w", ErrInvalidOperation, parentPath, err))
		return "", false
	}
	if s.childNamed(parent, name) != nil {
		s.mu.Unlock()
		_ = s.warn(invalid("%s already exists", vpath.Join(parentPath, name)))
		return "", false
	}

	n := &Node{
		ID:       vpath.NewID(),
		Name:     name,
		Kind:     kind,
		Path:     vpath.Join(parent.Path, name),
		ParentID: parent.ID,
	}
	if kind == KindFile {
		n.Language = DetectLanguage(name)
	}
	s.nodes[n.ID] = n
	parent.Children = append(parent.Children, n.ID)
	if kind == KindFile {
		s.selected = n.ID
	}
	ev := events.Event{Type: events.NodeCreated, ID: n.ID, Path: n.Path}
	s.mu.Unlock()

	s.log.Debug("created", "kind", kind, "path", ev.Path)
	s.bus.Publish(ev)
	return n.ID, true
}

// RenameNode renames a node and rewrites the paths beneath it. Unknown ids
// are ignored.
func (s *Store) RenameNode(id, newName string) error {
	s.mu.Lock()
	n := s.nodes[id]
	if n == nil {
		s.mu.Unlock()
		return nil
	}
	if err := vpath.ValidateName(newName); err != nil {
		s.mu.Unlock()
		return s.warn(fmt.Errorf("%w: rename %s: %w", ErrInvalidOperation, n.Path, err))
	}
	if newName == n.Name {
		s.mu.Unlock()
		return nil
	}
	parentPath := ""
	if parent := s.nodes[n.ParentID]; parent != nil {
		if s.childNamed(parent, newName) != nil {
			s.mu.Unlock()
			return s.warn(invalid("rename %s: %s already exists", n.Path, vpath.Join(parent.Path, newName)))
		}
		parentPath = parent.Path
	}

	oldPath := n.Path
	newPath := vpath.Join(parentPath, newName)
	n.Name = newName
	s.repath(n, oldPath, newPath)
	if !n.IsFolder() {
		n.Language = DetectLanguage(newName)
	}
	ev := events.Event{Type: events.NodeRenamed, ID: id, Path: newPath, OldPath: oldPath}
	s.mu.Unlock()

	s.log.Debug("renamed", "from", oldPath, "to", newPath)
	s.bus.Publish(ev)
	return nil
}

// DeleteNode removes a node and its subtree. The root cannot be deleted;
// unknown ids are ignored.
func (s *Store) DeleteNode(id string) error {
	if id == RootID {
		return s.warn(invalid("the root folder cannot be deleted"))
	}

	s.mu.Lock()
	n := s.nodes[id]
	if n == nil {
		s.mu.Unlock()
		return nil
	}
	if parent := s.nodes[n.ParentID]; parent != nil {
		parent.Children = without(parent.Children, id)
	}
	for _, d := range s.subtree(id) {
		if d == s.selected {
			s.selected = ""
		}
		delete(s.nodes, d)
	}
	ev := events.Event{Type: events.NodeDeleted, ID: id, Path: n.Path}
	s.mu.Unlock()

	s.log.Debug("deleted", "path", ev.Path)
	s.bus.Publish(ev)
	return nil
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, c := range ids {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

// UpdateContent replaces a file's content. IsModified records whether the
// content actually changed. Folders and unknown ids are ignored.
func (s *Store) UpdateContent(id, content string) {
	s.mu.Lock()
	n := s.nodes[id]
	if n == nil || n.IsFolder() {
		s.mu.Unlock()
		return
	}
	n.IsModified = content != n.Content
	n.Content = content
	ev := events.Event{Type: events.ContentUpdated, ID: id, Path: n.Path}
	s.mu.Unlock()

	s.bus.Publish(ev)
}

// ToggleFolder flips a folder between open and closed. Files are ignored.
func (s *Store) ToggleFolder(id string) {
	s.mu.Lock()
	n := s.nodes[id]
	if n == nil || !n.IsFolder() {
		s.mu.Unlock()
		return
	}
	n.IsOpen = !n.IsOpen
	ev := events.Event{Type: events.FolderToggled, ID: id, Path: n.Path}
	s.mu.Unlock()

	s.bus.Publish(ev)
}

// MoveNode re-parents a node under newParentID, appending it to the new
// parent's children. Moving the root, moving into a file, into the node
// itself or into one of its descendants is rejected.
func (s *Store) MoveNode(id, newParentID string) error {
	s.mu.Lock()
	n := s.nodes[id]
	if n == nil {
		s.mu.Unlock()
		return nil
	}
	if id == RootID {
		s.mu.Unlock()
		return s.warn(invalid("the root folder cannot be moved"))
	}
	dest := s.nodes[newParentID]
	switch {
	case dest == nil:
		s.mu.Unlock()
		return s.warn(invalid("move %s: destination %q does not exist", n.Path, newParentID))
	case !dest.IsFolder():
		s.mu.Unlock()
		return s.warn(invalid("move %s: %s is not a folder", n.Path, dest.Path))
	case s.isWithin(newParentID, id):
		s.mu.Unlock()
		return s.warn(invalid("move %s: cannot move a folder into itself", n.Path))
	}
	if newParentID == n.ParentID {
		s.mu.Unlock()
		return nil
	}
	if s.childNamed(dest, n.Name) != nil {
		s.mu.Unlock()
		return s.warn(invalid("move %s: %s already exists", n.Path, vpath.Join(dest.Path, n.Name)))
	}

	if old := s.nodes[n.ParentID]; old != nil {
		old.Children = without(old.Children, id)
	}
	oldPath := n.Path
	newPath := vpath.Join(dest.Path, n.Name)
	n.ParentID = dest.ID
	dest.Children = append(dest.Children, id)
	s.repath(n, oldPath, newPath)
	ev := events.Event{Type: events.NodeMoved, ID: id, Path: newPath, OldPath: oldPath}
	s.mu.Unlock()

	s.log.Debug("moved", "from", oldPath, "to", newPath)
	s.bus.Publish(ev)
	return nil
}

// GetNodeByID returns a copy of the node with the given id.
func (s *Store) GetNodeByID(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.nodes[id]
	if n == nil {
		return Node{}, false
	}
	return n.Clone(), true
}

// GetNodeByPath returns a copy of the node at p.
func (s *Store) GetNodeByPath(p string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.findPath(p)
	if n == nil {
		return Node{}, false
	}
	return n.Clone(), true
}

// Root returns a copy of the root folder.
func (s *Store) Root() Node {
	n, _ := s.GetNodeByID(RootID)
	return n
}

// Children returns copies of a folder's children in order.
func (s *Store) Children(id string) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.nodes[id]
	if n == nil {
		return nil
	}
	out := make([]Node, 0, len(n.Children))
	for _, c := range n.Children {
		out = append(out, s.nodes[c].Clone())
	}
	return out
}

// Descendants returns the ids of a node and everything beneath it.
func (s *Store) Descendants(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.nodes[id] == nil {
		return nil
	}
	return s.subtree(id)
}

// Selected returns the selected node id, or "".
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Select marks id as selected. Unknown ids clear the selection.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		id = ""
	}
	s.selected = id
}

// ResetTree replaces the forest with an empty root keeping the current
// root name.
func (s *Store) ResetTree() {
	s.ReplaceTree(s.Root().Name)
}

// ReplaceTree replaces the forest with a single empty root named rootName
// and clears the selection.
func (s *Store) ReplaceTree(rootName string) {
	rootName = orDefault(rootName)

	s.mu.Lock()
	s.nodes = freshArena(rootName)
	s.selected = ""
	ev := events.Event{Type: events.TreeReset, ID: RootID, Path: s.nodes[RootID].Path}
	s.mu.Unlock()

	if s.activity != nil {
		s.activity.Infof("workspace reset to empty folder %s", rootName)
	}
	s.log.Info("tree reset", "root", rootName)
	s.bus.Publish(ev)
}

// Len returns the number of nodes, root included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}
