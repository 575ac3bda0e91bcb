package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/workspace/tabs"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

// Key layout. Tab metadata and each tab's content are separate records so
// a lost content record degrades to an empty buffer instead of losing the
// whole session.
const (
	keyTabs       = "t:tabs"
	prefixContent = "c:"
	keyTree       = "w:tree"
)

type tabsRecord struct {
	Tabs   []tabs.Tab `json:"tabs"`
	Active string     `json:"active"`
}

// Persister saves and restores a workspace session through a KV.
type Persister struct {
	kv  KV
	log *logging.Logger
}

// NewPersister prepares kv for use, writing the schema version if needed.
func NewPersister(kv KV) (*Persister, error) {
	if err := ensureSchema(kv); err != nil {
		return nil, err
	}
	return &Persister{kv: kv, log: logging.Get("session")}, nil
}

// Close closes the underlying KV.
func (p *Persister) Close() error {
	return p.kv.Close()
}

func contentKey(id string) string {
	return prefixContent + id
}

// SaveTabs writes tab metadata (without content) and one content record per
// tab, and removes content records of tabs that are no longer open.
func (p *Persister) SaveTabs(open []tabs.Tab, activeID string) error {
	meta, err := json.Marshal(tabsRecord{Tabs: open, Active: activeID})
	if err != nil {
		return fmt.Errorf("encoding tab metadata: %w", err)
	}

	set := map[string][]byte{keyTabs: meta}
	for _, t := range open {
		set[contentKey(t.ID)] = []byte(t.Content)
	}

	existing, err := p.kv.Keys(prefixContent)
	if err != nil {
		return fmt.Errorf("listing content records: %w", err)
	}
	var del []string
	for _, k := range existing {
		if _, keep := set[k]; !keep {
			del = append(del, k)
		}
	}

	if err := p.kv.Write(set, del); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	p.log.Debug("saved tabs", "count", len(open), "stale", len(del))
	return nil
}

// RestoreTabs reads back the open tabs and the active id. A missing session
// yields no tabs; a missing content record yields an empty buffer.
func (p *Persister) RestoreTabs() ([]tabs.Tab, string, error) {
	raw, err := p.kv.Get(keyTabs)
	if errors.Is(err, ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading tab metadata: %w", err)
	}

	var rec tabsRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, "", fmt.Errorf("decoding tab metadata: %w", err)
	}

	for i := range rec.Tabs {
		body, err := p.kv.Get(contentKey(rec.Tabs[i].ID))
		switch {
		case err == nil:
			rec.Tabs[i].Content = string(body)
		case errors.Is(err, ErrNotFound):
			rec.Tabs[i].Content = ""
		default:
			p.log.Warn("content record unreadable", "tab", rec.Tabs[i].ID, "err", err)
			rec.Tabs[i].Content = ""
		}
	}
	return rec.Tabs, rec.Active, nil
}

// SaveTree stores a snapshot of the tree.
func (p *Persister) SaveTree(nodes []tree.Node) error {
	data, err := json.Marshal(nodes)
	if err != nil {
		return fmt.Errorf("encoding tree snapshot: %w", err)
	}
	return p.kv.Set(keyTree, data)
}

// RestoreTree returns the stored snapshot, or nil if there is none.
func (p *Persister) RestoreTree() ([]tree.Node, error) {
	raw, err := p.kv.Get(keyTree)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading tree snapshot: %w", err)
	}
	var nodes []tree.Node
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("decoding tree snapshot: %w", err)
	}
	return nodes, nil
}

// Clear deletes the stored session, keeping the schema record.
func (p *Persister) Clear() error {
	keys, err := p.kv.Keys(prefixContent)
	if err != nil {
		return err
	}
	return p.kv.Write(nil, append(keys, keyTabs, keyTree))
}
