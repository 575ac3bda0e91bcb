package tree

import (
	"strings"

	"golang.org/x/text/cases"
)

// SearchNodes returns every node whose name contains query, ignoring case,
// in depth-first pre-order starting at the root. A blank query matches
// nothing.
func (s *Store) SearchNodes(query string) []Node {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	fold := cases.Fold()
	needle := fold.String(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Node
	s.walk(RootID, 0, func(n *Node, _ int) bool {
		if strings.Contains(fold.String(n.Name), needle) {
			out = append(out, n.Clone())
		}
		return true
	})
	return out
}

// walk visits the subtree at id in pre-order. Returning false from fn skips
// the node's children. Must be called with s.mu held.
func (s *Store) walk(id string, depth int, fn func(*Node, int) bool) {
	n := s.nodes[id]
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		s.walk(c, depth+1, fn)
	}
}
