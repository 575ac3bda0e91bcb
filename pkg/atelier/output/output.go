// Package output renders command results in the formats selectable with
// --format (pretty, plain, json, jsonl, yaml, template).
//
// Formatters are kept in a registry and looked up by name:
//
//	f, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := f.Format(&buf, view); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/workspace/activity"
	"github.com/jamesainslie/atelier/pkg/workspace/importer"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

// View is the result of a command. Only the populated sections are
// printed, in field order.
type View struct {
	// Message is a one-line outcome such as "created /root/a.go".
	Message string `json:"message,omitempty"`

	Tree  *tree.Branch `json:"tree,omitempty"`
	Stats *tree.Stats  `json:"stats,omitempty"`

	// Nodes lists search or directory results.
	Nodes []tree.Node `json:"nodes,omitempty"`

	// Path and Content hold a single file body (cat).
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`

	Tabs     []atelierv1.TabInfo      `json:"tabs,omitempty"`
	Activity []activity.Entry         `json:"activity,omitempty"`
	Import   *importer.Result         `json:"import,omitempty"`
	Status   *atelierv1.StatusResponse `json:"status,omitempty"`
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes v to w.
	Format(w *bytes.Buffer, v *View) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry, replacing any
// formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (available: %v)", name, r.availableLocked())
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.availableLocked()
}

func (r *Registry) availableLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// Write formats v with f and copies the result to w.
func Write(w io.Writer, f Formatter, v *View) error {
	var buf bytes.Buffer
	if err := f.Format(&buf, v); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
