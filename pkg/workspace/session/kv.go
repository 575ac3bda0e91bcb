// Package session persists workspace state between runs: open tabs, their
// unsaved buffers and a snapshot of the tree.
package session

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by KV.Get for missing keys.
var ErrNotFound = errors.New("session: key not found")

// KV is the key-value collaborator sessions are written to.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	// Keys lists keys starting with prefix in lexical order.
	Keys(prefix string) ([]string, error)
	// Write applies sets and deletes as one unit.
	Write(set map[string][]byte, del []string) error
	Close() error
}

// MemoryKV is a KV held in a map, for tests and ephemeral sessions.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	return m.Write(map[string][]byte{key: value}, nil)
}

func (m *MemoryKV) Delete(key string) error {
	return m.Write(nil, []string{key})
}

func (m *MemoryKV) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryKV) Write(set map[string][]byte, del []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range del {
		delete(m.data, k)
	}
	for k, v := range set {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *MemoryKV) Close() error { return nil }
