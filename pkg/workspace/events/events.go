// Package events fans workspace change notifications out to subscribers
// such as the TUI and the daemon's watch stream.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/atelier/pkg/workspace/vpath"
)

// Type identifies what changed.
type Type int

const (
	NodeCreated Type = iota
	NodeRenamed
	NodeMoved
	NodeDeleted
	ContentUpdated
	FolderToggled
	TreeReset
	TabOpened
	TabClosed
	TabChanged
	TabSaved
	ActiveTabChanged
)

var typeNames = map[Type]string{
	NodeCreated:      "node_created",
	NodeRenamed:      "node_renamed",
	NodeMoved:        "node_moved",
	NodeDeleted:      "node_deleted",
	ContentUpdated:   "content_updated",
	FolderToggled:    "folder_toggled",
	TreeReset:        "tree_reset",
	TabOpened:        "tab_opened",
	TabClosed:        "tab_closed",
	TabChanged:       "tab_changed",
	TabSaved:         "tab_saved",
	ActiveTabChanged: "active_tab_changed",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, bool) {
	for t, name := range typeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

// Event describes one change. OldPath is set for renames and moves.
type Event struct {
	Type    Type
	ID      string
	Path    string
	OldPath string
	Time    time.Time
}

// Subscriber receives events under Root (all events when Root is empty).
type Subscriber struct {
	ID     string
	Root   string
	Types  map[Type]bool
	Events chan Event
}

// Broadcaster distributes events without blocking the publisher; a
// subscriber whose buffer is full misses events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// New returns an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]*Subscriber)}
}

// Subscribe registers a subscriber for events under root, optionally limited
// to the given types. It returns nil after Close.
func (b *Broadcaster) Subscribe(root string, types ...Type) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	sub := &Subscriber{
		ID:     uuid.NewString(),
		Root:   root,
		Events: make(chan Event, 128),
	}
	if len(types) > 0 {
		sub.Types = make(map[Type]bool, len(types))
		for _, t := range types {
			sub.Types[t] = true
		}
	}
	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe closes and removes a subscriber.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Publish delivers events to every matching subscriber. A nil receiver is
// allowed so stores can run without a broadcaster.
func (b *Broadcaster) Publish(evts ...Event) {
	if b == nil || len(evts) == 0 {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	now := time.Now()
	for _, e := range evts {
		if e.Time.IsZero() {
			e.Time = now
		}
		for _, sub := range b.subscribers {
			if !sub.matches(e) {
				continue
			}
			select {
			case sub.Events <- e:
			default:
			}
		}
	}
}

func (s *Subscriber) matches(e Event) bool {
	if s.Types != nil && !s.Types[e.Type] {
		return false
	}
	if s.Root == "" || e.Type == TreeReset {
		return true
	}
	return vpath.HasPrefix(e.Path, s.Root) || (e.OldPath != "" && vpath.HasPrefix(e.OldPath, s.Root))
}

// Close closes every subscription. Later Publish calls are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
