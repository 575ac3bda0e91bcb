// Package tree is the in-memory virtual file system behind the workspace.
//
// Nodes live in an arena keyed by id; folders list their children by id in
// insertion order. A node's Path is always "/" joined with the names of its
// ancestors and itself, and every structural operation rewrites the paths of
// the affected subtree before releasing the store lock.
package tree

import (
	"fmt"
	"strings"
)

// Kind distinguishes files from folders.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

// ParseKind accepts "file", "folder" and "dir".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "file":
		return KindFile, nil
	case "folder", "dir", "directory":
		return KindFolder, nil
	}
	return KindFile, fmt.Errorf("unknown node kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Node is a file or folder. Values handed out by the Store are copies.
type Node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Path     string `json:"path"`
	ParentID string `json:"parent_id,omitempty"`

	// Files
	Content    string `json:"content,omitempty"`
	Language   string `json:"language,omitempty"`
	IsModified bool   `json:"is_modified,omitempty"`

	// Folders
	Children []string `json:"children,omitempty"`
	IsOpen   bool     `json:"is_open,omitempty"`
}

// IsFolder reports whether n is a folder.
func (n *Node) IsFolder() bool {
	return n.Kind == KindFolder
}

// Clone returns a deep copy.
func (n *Node) Clone() Node {
	c := *n
	if n.Children != nil {
		c.Children = append([]string(nil), n.Children...)
	}
	return c
}

// Row is one visible line of the tree in display order.
type Row struct {
	Node  Node
	Depth int
}

// Branch is a nested view of a subtree, used for rendering and encoding.
type Branch struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Kind     Kind      `json:"kind" yaml:"kind"`
	Path     string    `json:"path" yaml:"path"`
	Language string    `json:"language,omitempty" yaml:"language,omitempty"`
	Size     int       `json:"size,omitempty" yaml:"size,omitempty"`
	Modified bool      `json:"modified,omitempty" yaml:"modified,omitempty"`
	Open     bool      `json:"open,omitempty" yaml:"open,omitempty"`
	Children []*Branch `json:"children,omitempty" yaml:"children,omitempty"`
}

// Stats summarises the tree.
type Stats struct {
	Folders int `json:"folders"`
	Files   int `json:"files"`
	Bytes   int `json:"bytes"`
}
