// Package activity is the user-facing log stream shown in the IDE's log
// panel. It is separate from the diagnostic log but mirrors every entry to
// it.
package activity

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
)

// DefaultCapacity bounds the number of retained entries.
const DefaultCapacity = 500

// Severity classifies an entry.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// ParseSeverity accepts the four severity names, plus "warn".
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "info":
		return Info, true
	case "success":
		return Success, true
	case "warning", "warn":
		return Warning, true
	case "error":
		return Error, true
	}
	return "", false
}

// Entry is one log line.
type Entry struct {
	ID       string    `json:"id"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Time     time.Time `json:"timestamp"`
}

// Log is an append-only, clearable list of entries in insertion order.
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	subs     map[chan Entry]struct{}
	logger   *logging.Logger
	now      func() time.Time
}

// New returns a Log that keeps at most capacity entries, dropping the
// oldest. A non-positive capacity uses DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		subs:     make(map[chan Entry]struct{}),
		logger:   logging.Get("activity"),
		now:      time.Now,
	}
}

// Add appends an entry and returns it.
func (l *Log) Add(sev Severity, msg string) Entry {
	e := Entry{ID: uuid.NewString(), Severity: sev, Message: msg, Time: l.now()}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.capacity; over > 0 {
		l.entries = append([]Entry(nil), l.entries[over:]...)
	}
	for ch := range l.subs {
		select {
		case ch <- e:
		default:
		}
	}
	l.mu.Unlock()

	l.mirror(e)
	return e
}

func (l *Log) mirror(e Entry) {
	switch e.Severity {
	case Error:
		l.logger.Error(e.Message)
	case Warning:
		l.logger.Warn(e.Message)
	default:
		l.logger.Info(e.Message, "severity", string(e.Severity))
	}
}

// Infof records a formatted Info entry.
func (l *Log) Infof(format string, args ...any) Entry {
	return l.Add(Info, fmt.Sprintf(format, args...))
}

// Successf records a formatted Success entry.
func (l *Log) Successf(format string, args ...any) Entry {
	return l.Add(Success, fmt.Sprintf(format, args...))
}

// Warnf records a formatted Warning entry.
func (l *Log) Warnf(format string, args ...any) Entry {
	return l.Add(Warning, fmt.Sprintf(format, args...))
}

// Errorf records a formatted Error entry.
func (l *Log) Errorf(format string, args ...any) Entry {
	return l.Add(Error, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the log, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Remove deletes one entry by id and reports whether it existed.
func (l *Log) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Subscribe returns a channel receiving entries added from now on.
func (l *Log) Subscribe() <-chan Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Entry, 64)
	l.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe stops and closes a subscription.
func (l *Log) Unsubscribe(ch <-chan Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for sub := range l.subs {
		if sub == ch {
			delete(l.subs, sub)
			close(sub)
			return
		}
	}
}
