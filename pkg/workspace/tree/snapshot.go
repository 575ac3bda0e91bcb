package tree

import (
	"github.com/jamesainslie/atelier/pkg/workspace/events"
	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

// Export returns copies of every node in pre-order, root first.
func (s *Store) Export() []Node {
	var out []Node
	s.Walk(func(n Node, _ int) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Load replaces the tree with nodes produced by Export. Parents must come
// before their children. Children lists and paths are rebuilt from ParentID
// and Name, so stale paths in the input are corrected. On error the current
// tree is kept.
func (s *Store) Load(nodes []Node) error {
	if len(nodes) == 0 || nodes[0].ID != RootID || nodes[0].Kind != KindFolder {
		return invalid("snapshot does not start with the root folder")
	}
	if err := vpath.ValidateName(nodes[0].Name); err != nil {
		return invalid("snapshot root: %s", err)
	}

	arena := make(map[string]*Node, len(nodes))
	for i, in := range nodes {
		n := in.Clone()
		n.Children = nil
		if _, dup := arena[n.ID]; dup || n.ID == "" {
			return invalid("snapshot node %d: duplicate or empty id %q", i, n.ID)
		}
		if i == 0 {
			n.ParentID = ""
			n.Path = vpath.Join("", n.Name)
			arena[n.ID] = &n
			continue
		}
		if err := vpath.ValidateName(n.Name); err != nil {
			return invalid("snapshot node %q: %s", n.ID, err)
		}
		parent := arena[n.ParentID]
		if parent == nil || !parent.IsFolder() {
			return invalid("snapshot node %q: parent %q missing or not a folder", n.ID, n.ParentID)
		}
		for _, sib := range parent.Children {
			if arena[sib].Name == n.Name {
				return invalid("snapshot node %q: duplicate name %s", n.ID, vpath.Join(parent.Path, n.Name))
			}
		}
		n.Path = vpath.Join(parent.Path, n.Name)
		if !n.IsFolder() {
			n.IsOpen = false
			if n.Language == "" {
				n.Language = DetectLanguage(n.Name)
			}
		} else {
			n.Content, n.Language, n.IsModified = "", "", false
		}
		parent.Children = append(parent.Children, n.ID)
		arena[n.ID] = &n
	}

	s.mu.Lock()
	s.nodes = arena
	s.selected = ""
	ev := events.Event{Type: events.TreeReset, ID: RootID, Path: arena[RootID].Path}
	s.mu.Unlock()

	s.log.Info("tree loaded", "nodes", len(arena))
	s.bus.Publish(ev)
	return nil
}
