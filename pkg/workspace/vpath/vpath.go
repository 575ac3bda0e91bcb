// Package vpath handles the slash-separated virtual paths and opaque ids used
// by the workspace tree. Virtual paths always start with "/" and never end
// with one.
package vpath

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Sep separates path segments.
const Sep = "/"

// ErrInvalidName is returned by ValidateName.
var ErrInvalidName = errors.New("invalid name")

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.NewString()
}

// Join appends name to a parent path.
func Join(parent, name string) string {
	if parent == "" || parent == Sep {
		return Sep + name
	}
	return parent + Sep + name
}

// Base returns the last segment of p.
func Base(p string) string {
	if i := strings.LastIndex(p, Sep); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Dir returns p without its last segment. The parent of a top-level path is "".
func Dir(p string) string {
	i := strings.LastIndex(p, Sep)
	if i <= 0 {
		return ""
	}
	return p[:i]
}

// Split breaks p into its segments, dropping empty ones.
func Split(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, Sep) {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// Clean normalises p into "/a/b" form, resolving "." and "..".
func Clean(p string) string {
	c := path.Clean(Sep + p)
	if c == Sep {
		return ""
	}
	return c
}

// HasPrefix reports whether p is prefix itself or lies beneath it.
// "/root/src-backup" does not have prefix "/root/src".
func HasPrefix(p, prefix string) bool {
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/'
}

// ReplacePrefix swaps oldPrefix for newPrefix when HasPrefix(p, oldPrefix),
// and returns p unchanged otherwise.
func ReplacePrefix(p, oldPrefix, newPrefix string) string {
	if !HasPrefix(p, oldPrefix) {
		return p
	}
	return newPrefix + p[len(oldPrefix):]
}

// Ext returns the lowercased extension of the last segment, including the dot.
// Dotfiles such as ".gitignore" have no extension.
func Ext(name string) string {
	name = Base(name)
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(name[i:])
}

// ValidateName rejects names that cannot be a single path segment.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	case strings.Contains(name, Sep):
		return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, Sep)
	}
	return nil
}
