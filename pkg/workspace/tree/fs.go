package tree

import (
	"fmt"

	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

// MkdirAll ensures every folder along p exists and returns the id of the
// last one. p must start at the root folder.
func (s *Store) MkdirAll(p string) (string, error) {
	p = vpath.Clean(p)
	root := s.Root()
	if !vpath.HasPrefix(p, root.Path) {
		return "", invalid("%s is outside %s", p, root.Path)
	}

	cur := root
	for _, seg := range vpath.Split(p[len(root.Path):]) {
		next, ok := s.GetNodeByPath(vpath.Join(cur.Path, seg))
		if !ok {
			id, created := s.CreateNode(cur.Path, seg, KindFolder)
			if !created {
				return "", invalid("cannot create folder %s", vpath.Join(cur.Path, seg))
			}
			next, _ = s.GetNodeByID(id)
		}
		if !next.IsFolder() {
			return "", invalid("%s is a file", next.Path)
		}
		cur = next
	}
	return cur.ID, nil
}

// WriteFile creates the file at p (and any missing folders) or updates it
// in place. It reports whether the file was newly created. New files start
// unmodified.
func (s *Store) WriteFile(p, content string) (id string, created bool, err error) {
	p = vpath.Clean(p)
	if existing, ok := s.GetNodeByPath(p); ok {
		if existing.IsFolder() {
			return "", false, invalid("%s is a folder", p)
		}
		s.UpdateContent(existing.ID, content)
		return existing.ID, false, nil
	}

	if _, err := s.MkdirAll(vpath.Dir(p)); err != nil {
		return "", false, err
	}
	id, ok := s.CreateNode(vpath.Dir(p), vpath.Base(p), KindFile)
	if !ok {
		return "", false, invalid("cannot create file %s", p)
	}
	s.UpdateContent(id, content)
	s.clearModified(id)
	return id, true, nil
}

func (s *Store) clearModified(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.nodes[id]; n != nil {
		n.IsModified = false
	}
}

// ReadFile returns the content of the file at p.
func (s *Store) ReadFile(p string) (string, error) {
	n, ok := s.GetNodeByPath(vpath.Clean(p))
	if !ok {
		return "", fmt.Errorf("%s: no such file", p)
	}
	if n.IsFolder() {
		return "", fmt.Errorf("%s: is a folder", p)
	}
	return n.Content, nil
}
