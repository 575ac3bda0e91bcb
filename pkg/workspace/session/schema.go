package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Schema versions:
// 1 - tab metadata and per-tab content
// 2 - tree snapshot
const CurrentSchemaVersion = 2

const schemaKey = "m:schema"

// ErrSchemaTooNew means the database was written by a newer atelier.
var ErrSchemaTooNew = errors.New("session schema is newer than supported")

// Schema records which layout a database uses.
type Schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// readSchema returns nil when no schema has been written.
func readSchema(kv KV) (*Schema, error) {
	raw, err := kv.Get(schemaKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	return &s, nil
}

// ensureSchema stamps the current version, refusing databases from the
// future. Version 1 data is readable as is; it simply has no tree snapshot.
func ensureSchema(kv KV) error {
	s, err := readSchema(kv)
	if err != nil {
		return err
	}
	if s != nil && s.Version > CurrentSchemaVersion {
		return fmt.Errorf("%w: %d > %d", ErrSchemaTooNew, s.Version, CurrentSchemaVersion)
	}
	if s != nil && s.Version == CurrentSchemaVersion {
		return nil
	}
	data, err := json.Marshal(Schema{Version: CurrentSchemaVersion, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return kv.Set(schemaKey, data)
}
