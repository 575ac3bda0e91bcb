// Package tabs manages open editor tabs: their order, the active tab, the
// unsaved buffers and a linear undo/redo history.
//
// A tab's buffer is authoritative while the tab is open; the tree only sees
// it when the tab is saved.
package tabs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/workspace/activity"
	"github.com/jamesainslie/atelier/pkg/workspace/events"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

// ErrIndexOutOfRange is returned by MoveTab for positions outside the list.
var ErrIndexOutOfRange = errors.New("tab index out of range")

// Files is the part of the tree the tab store reads from and saves to.
type Files interface {
	GetNodeByID(id string) (tree.Node, bool)
	UpdateContent(id, content string)
	Select(id string)
}

// Tab is an open editing session for one file. ID equals the file node id.
type Tab struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Language   string `json:"language"`
	Path       string `json:"path"`
	IsModified bool   `json:"isModified"`
	Content    string `json:"-"`
}

// Store holds the ordered tab list. Methods are safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	files  Files
	tabs   []*Tab
	active string
	hist   history

	bus      *events.Broadcaster
	activity *activity.Log
	hooks    []func()
	log      *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryLimit bounds the undo stack; n <= 0 means DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.hist.limit = n
		}
	}
}

// WithBroadcaster publishes tab events to b.
func WithBroadcaster(b *events.Broadcaster) Option {
	return func(s *Store) { s.bus = b }
}

// WithActivity reports rejected operations to l.
func WithActivity(l *activity.Log) Option {
	return func(s *Store) { s.activity = l }
}

// New returns an empty tab store backed by files.
func New(files Files, opts ...Option) *Store {
	s := &Store{
		files: files,
		hist:  history{limit: DefaultHistoryLimit},
		log:   logging.Get("tabs"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run after every change to the tab list or the
// active tab. Hooks run outside the store lock.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// finish publishes events and runs hooks. Call without s.mu held.
func (s *Store) finish(changed bool, evts ...events.Event) {
	s.bus.Publish(evts...)
	if !changed {
		return
	}
	s.mu.Lock()
	hooks := append([]func(){}, s.hooks...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// index must be called with s.mu held.
func (s *Store) index(id string) int {
	for i, t := range s.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) find(id string) *Tab {
	if i := s.index(id); i >= 0 {
		return s.tabs[i]
	}
	return nil
}

func tabEvent(typ events.Type, t *Tab) events.Event {
	return events.Event{Type: typ, ID: t.ID, Path: t.Path}
}

// OpenTab opens a tab for a file, or focuses it if already open. The tab
// becomes active and the file becomes the tree selection. Missing nodes and
// folders are ignored.
func (s *Store) OpenTab(fileID string) {
	s.mu.Lock()
	t := s.find(fileID)
	opened := false
	if t == nil {
		n, ok := s.files.GetNodeByID(fileID)
		if !ok || n.IsFolder() {
			s.mu.Unlock()
			return
		}
		t = &Tab{ID: n.ID, Name: n.Name, Language: n.Language, Path: n.Path, Content: n.Content}
		s.tabs = append(s.tabs, t)
		opened = true
	}
	s.active = t.ID
	evts := []events.Event{tabEvent(events.ActiveTabChanged, t)}
	if opened {
		evts = append([]events.Event{tabEvent(events.TabOpened, t)}, evts...)
	}
	s.mu.Unlock()

	s.files.Select(fileID)
	s.finish(true, evts...)
}

// CloseTab closes a tab and records the close so it can be undone. If the
// tab was active, the tab that takes its place in the list becomes active,
// or the one before it.
func (s *Store) CloseTab(tabID string) {
	s.mu.Lock()
	i := s.index(tabID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	t := s.tabs[i]
	s.hist.record(TabClose{Tab: *t, Index: i})
	next := s.remove(i)
	s.mu.Unlock()

	if next != "" {
		s.files.Select(next)
	}
	s.finish(true, tabEvent(events.TabClosed, t))
}

// remove drops the tab at i and fixes the active tab, returning the newly
// activated id when the active tab changed. Must be called with s.mu held.
func (s *Store) remove(i int) string {
	id := s.tabs[i].ID
	s.tabs = append(s.tabs[:i:i], s.tabs[i+1:]...)
	if s.active != id {
		return ""
	}
	s.active = ""
	switch {
	case i < len(s.tabs):
		s.active = s.tabs[i].ID
	case len(s.tabs) > 0:
		s.active = s.tabs[len(s.tabs)-1].ID
	}
	return s.active
}

// SetActiveTab focuses an open tab and selects its file in the tree.
func (s *Store) SetActiveTab(tabID string) {
	s.mu.Lock()
	t := s.find(tabID)
	if t == nil {
		s.mu.Unlock()
		return
	}
	s.active = tabID
	ev := tabEvent(events.ActiveTabChanged, t)
	s.mu.Unlock()

	s.files.Select(tabID)
	s.finish(true, ev)
}

// GetTabContent returns the buffer of an open tab.
func (s *Store) GetTabContent(tabID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t := s.find(tabID); t != nil {
		return t.Content, true
	}
	return "", false
}

// UpdateTabContent replaces a tab's buffer, records the edit and marks the
// tab modified.
func (s *Store) UpdateTabContent(tabID, content string) {
	s.mu.Lock()
	t := s.find(tabID)
	if t == nil {
		s.mu.Unlock()
		return
	}
	s.hist.record(ContentChange{TabID: tabID, Previous: t.Content, Next: content})
	t.Content = content
	t.IsModified = true
	ev := tabEvent(events.TabChanged, t)
	s.mu.Unlock()

	s.finish(false, ev)
}

// SaveTab writes a tab's buffer to its file and clears IsModified.
func (s *Store) SaveTab(tabID string) bool {
	s.mu.Lock()
	t := s.find(tabID)
	if t == nil {
		s.mu.Unlock()
		return false
	}
	id, content := t.ID, t.Content
	t.IsModified = false
	ev := tabEvent(events.TabSaved, t)
	s.mu.Unlock()

	s.files.UpdateContent(id, content)
	s.finish(true, ev)
	return true
}

// SaveActiveFile saves the active tab, if any.
func (s *Store) SaveActiveFile() bool {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	if active == "" {
		return false
	}
	return s.SaveTab(active)
}

// SaveAllFiles saves every open tab and returns how many were written.
func (s *Store) SaveAllFiles() int {
	n := 0
	for _, t := range s.Tabs() {
		if s.SaveTab(t.ID) {
			n++
		}
	}
	return n
}

// MoveTab moves the tab at from to position to. Positions outside the list
// are rejected and leave the order unchanged.
func (s *Store) MoveTab(from, to int) error {
	s.mu.Lock()
	n := len(s.tabs)
	if from < 0 || from >= n || to < 0 || to >= n {
		s.mu.Unlock()
		err := fmt.Errorf("%w: move %d to %d with %d tabs open", ErrIndexOutOfRange, from, to, n)
		if s.activity != nil {
			s.activity.Warnf("%s", err)
		}
		return err
	}
	if from == to {
		s.mu.Unlock()
		return nil
	}
	t := s.tabs[from]
	rest := append(s.tabs[:from:from], s.tabs[from+1:]...)
	s.tabs = append(rest[:to:to], append([]*Tab{t}, rest[to:]...)...)
	s.mu.Unlock()

	s.finish(true)
	return nil
}

// UndoLastAction reverts the most recent action and moves it to the redo
// stack. Content edits restore the previous buffer and leave the tab
// modified. An undone close re-appends the tab at the end of the list.
// Actions whose tab or file has gone away are discarded.
func (s *Store) UndoLastAction() (Action, bool) {
	s.mu.Lock()
	for {
		a, ok := pop(&s.hist.undo)
		if !ok {
			s.mu.Unlock()
			return nil, false
		}
		switch a := a.(type) {
		case ContentChange:
			t := s.find(a.TabID)
			if t == nil {
				continue
			}
			t.Content = a.Previous
			t.IsModified = true
			s.hist.redo = append(s.hist.redo, a)
			ev := tabEvent(events.TabChanged, t)
			s.mu.Unlock()
			s.finish(false, ev)
			return a, true

		case TabClose:
			n, ok := s.files.GetNodeByID(a.Tab.ID)
			if !ok {
				continue
			}
			// The file may have been renamed or moved while the tab was closed.
			snap := a.Tab
			snap.Name, snap.Path, snap.Language = n.Name, n.Path, n.Language
			t := s.reopen(snap)
			s.hist.redo = append(s.hist.redo, a)
			evts := []events.Event{tabEvent(events.TabOpened, t), tabEvent(events.ActiveTabChanged, t)}
			s.mu.Unlock()
			s.files.Select(t.ID)
			s.finish(true, evts...)
			return a, true
		}
	}
}

// reopen restores a closed tab snapshot at the end of the list, or onto the
// tab if the file was opened again since. Must be called with s.mu held.
func (s *Store) reopen(snap Tab) *Tab {
	t := s.find(snap.ID)
	if t == nil {
		t = &Tab{}
		s.tabs = append(s.tabs, t)
	}
	*t = snap
	s.active = t.ID
	return t
}

// RedoLastAction re-applies the most recently undone action.
func (s *Store) RedoLastAction() (Action, bool) {
	s.mu.Lock()
	for {
		a, ok := pop(&s.hist.redo)
		if !ok {
			s.mu.Unlock()
			return nil, false
		}
		switch a := a.(type) {
		case ContentChange:
			t := s.find(a.TabID)
			if t == nil {
				continue
			}
			t.Content = a.Next
			t.IsModified = true
			s.hist.undo = append(s.hist.undo, a)
			ev := tabEvent(events.TabChanged, t)
			s.mu.Unlock()
			s.finish(false, ev)
			return a, true

		case TabClose:
			i := s.index(a.Tab.ID)
			if i < 0 {
				continue
			}
			t := s.tabs[i]
			redone := TabClose{Tab: *t, Index: i}
			s.hist.undo = append(s.hist.undo, redone)
			next := s.remove(i)
			s.mu.Unlock()
			if next != "" {
				s.files.Select(next)
			}
			s.finish(true, tabEvent(events.TabClosed, t))
			return redone, true
		}
	}
}

// CanUndo reports whether UndoLastAction has anything to pop.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hist.undo) > 0
}

// CanRedo reports whether RedoLastAction has anything to pop.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hist.redo) > 0
}

// HistoryDepth returns the sizes of the undo and redo stacks.
func (s *Store) HistoryDepth() (undo, redo int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hist.undo), len(s.hist.redo)
}

// Tabs returns copies of the open tabs in order.
func (s *Store) Tabs() []Tab {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Tab, len(s.tabs))
	for i, t := range s.tabs {
		out[i] = *t
	}
	return out
}

// ActiveID returns the active tab id, or "".
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Active returns a copy of the active tab.
func (s *Store) Active() (Tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t := s.find(s.active); t != nil {
		return *t, true
	}
	return Tab{}, false
}

// SyncFromTree refreshes a tab's name, language and path from its file,
// after a rename or move. The buffer is left alone.
func (s *Store) SyncFromTree(fileID string) {
	n, ok := s.files.GetNodeByID(fileID)
	if !ok {
		return
	}

	s.mu.Lock()
	t := s.find(fileID)
	if t == nil || (t.Name == n.Name && t.Path == n.Path && t.Language == n.Language) {
		s.mu.Unlock()
		return
	}
	t.Name, t.Path, t.Language = n.Name, n.Path, n.Language
	ev := tabEvent(events.TabChanged, t)
	s.mu.Unlock()

	s.finish(true, ev)
}

// DropTab closes a tab without recording history, for files that no
// longer exist.
func (s *Store) DropTab(fileID string) {
	s.mu.Lock()
	i := s.index(fileID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	t := s.tabs[i]
	next := s.remove(i)
	s.mu.Unlock()

	if next != "" {
		s.files.Select(next)
	}
	s.log.Debug("dropped tab", "path", t.Path)
	s.finish(true, tabEvent(events.TabClosed, t))
}

// Restore replaces the open tabs with a persisted set, without touching
// history. Duplicate ids keep their first occurrence. activeID falls back
// to the first tab when it is not among them.
func (s *Store) Restore(restored []Tab, activeID string) {
	s.mu.Lock()
	s.tabs = nil
	seen := make(map[string]bool, len(restored))
	for _, t := range restored {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		cp := t
		s.tabs = append(s.tabs, &cp)
	}
	s.active = ""
	if seen[activeID] {
		s.active = activeID
	} else if len(s.tabs) > 0 {
		s.active = s.tabs[0].ID
	}
	active := s.active
	s.mu.Unlock()

	if active != "" {
		s.files.Select(active)
	}
	s.log.Debug("restored tabs", "count", len(seen))
	s.finish(true)
}
