package tree

import (
	"fmt"

	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

// Walk calls fn for every node in pre-order with its depth below the root.
// fn receives copies; returning false skips the node's children.
func (s *Store) Walk(fn func(n Node, depth int) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.walk(RootID, 0, func(n *Node, depth int) bool {
		return fn(n.Clone(), depth)
	})
}

// Flatten returns the visible rows in display order. Closed folders hide
// their children.
func (s *Store) Flatten() []Row {
	var rows []Row
	s.Walk(func(n Node, depth int) bool {
		rows = append(rows, Row{Node: n, Depth: depth})
		return n.IsFolder() && n.IsOpen
	})
	return rows
}

// Nested returns the subtree at id as a Branch, or nil for unknown ids.
func (s *Store) Nested(id string) *Branch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.branch(id)
}

// branch must be called with s.mu held.
func (s *Store) branch(id string) *Branch {
	n := s.nodes[id]
	if n == nil {
		return nil
	}
	b := &Branch{
		ID:       n.ID,
		Name:     n.Name,
		Kind:     n.Kind,
		Path:     n.Path,
		Language: n.Language,
		Size:     len(n.Content),
		Modified: n.IsModified,
		Open:     n.IsOpen,
	}
	for _, c := range n.Children {
		if cb := s.branch(c); cb != nil {
			b.Children = append(b.Children, cb)
		}
	}
	return b
}

// Stats counts folders (root included), files and content bytes.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, n := range s.nodes {
		if n.IsFolder() {
			st.Folders++
			continue
		}
		st.Files++
		st.Bytes += len(n.Content)
	}
	return st
}

// Verify checks the structural invariants: a single root, parent and child
// links that agree, files without children, and every path equal to the
// join of its ancestors' names.
func (s *Store) Verify() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root := s.nodes[RootID]
	if root == nil {
		return fmt.Errorf("root missing")
	}
	if root.ParentID != "" {
		return fmt.Errorf("root has parent %q", root.ParentID)
	}

	seen := make(map[string]bool, len(s.nodes))
	var check func(id, parentPath, parentID string) error
	check = func(id, parentPath, parentID string) error {
		n := s.nodes[id]
		if n == nil {
			return fmt.Errorf("dangling child %q", id)
		}
		if seen[id] {
			return fmt.Errorf("node %q reachable twice", id)
		}
		seen[id] = true
		if n.ParentID != parentID {
			return fmt.Errorf("%s: parent %q, want %q", n.Path, n.ParentID, parentID)
		}
		if want := vpath.Join(parentPath, n.Name); n.Path != want {
			return fmt.Errorf("path %q, want %q", n.Path, want)
		}
		if !n.IsFolder() && len(n.Children) > 0 {
			return fmt.Errorf("file %s has children", n.Path)
		}
		for _, c := range n.Children {
			if err := check(c, n.Path, n.ID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(RootID, "", ""); err != nil {
		return err
	}
	if len(seen) != len(s.nodes) {
		return fmt.Errorf("%d nodes unreachable from root", len(s.nodes)-len(seen))
	}
	return nil
}
