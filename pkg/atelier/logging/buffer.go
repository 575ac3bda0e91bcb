package logging

import "sync"

// DefaultBufferSize is the capacity of the TUI ring buffer.
const DefaultBufferSize = 200

// LogBuffer is a fixed-size ring of the most recent entries.
type LogBuffer struct {
	mu    sync.RWMutex
	ring  []Entry
	head  int
	count int
}

// NewLogBuffer returns a buffer holding up to size entries.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &LogBuffer{ring: make([]Entry, size)}
}

// Add appends e, overwriting the oldest entry when full.
func (b *LogBuffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ring[(b.head+b.count)%len(b.ring)] = e
	if b.count < len(b.ring) {
		b.count++
		return
	}
	b.head = (b.head + 1) % len(b.ring)
}

// Entries returns a copy of every buffered entry, oldest first.
func (b *LogBuffer) Entries() []Entry {
	return b.Last(-1)
}

// Last returns the newest n entries in chronological order. A negative n
// returns everything.
func (b *LogBuffer) Last(n int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n < 0 || n > b.count {
		n = b.count
	}
	out := make([]Entry, n)
	skip := b.count - n
	for i := range out {
		out[i] = b.ring[(b.head+skip+i)%len(b.ring)]
	}
	return out
}

func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Clear drops every entry.
func (b *LogBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head, b.count = 0, 0
}
