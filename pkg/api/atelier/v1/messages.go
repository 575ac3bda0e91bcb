// Package atelierv1 defines the atelier.v1.Workspace gRPC service. Requests
// and responses are Go structs carried on the wire as
// google.protobuf.Struct, so no generated code is needed.
package atelierv1

import (
	"time"

	"github.com/jamesainslie/atelier/pkg/workspace/activity"
	"github.com/jamesainslie/atelier/pkg/workspace/importer"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

// Empty is used by methods without arguments or results.
type Empty struct{}

// NodeRequest names a node by id or path.
type NodeRequest struct {
	Ref string `json:"ref"`
}

type GetTreeRequest struct {
	Path string `json:"path,omitempty"`
}

type GetTreeResponse struct {
	Tree  *tree.Branch `json:"tree"`
	Stats tree.Stats   `json:"stats"`
}

type NodeResponse struct {
	Node tree.Node `json:"node"`
}

type CreateNodeRequest struct {
	Parent string    `json:"parent"`
	Name   string    `json:"name"`
	Kind   tree.Kind `json:"kind"`
	// Parents creates missing folders along Parent.
	Parents bool `json:"parents,omitempty"`
}

type CreateNodeResponse struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type RenameNodeRequest struct {
	Ref  string `json:"ref"`
	Name string `json:"name"`
}

type MoveNodeRequest struct {
	Ref  string `json:"ref"`
	Dest string `json:"dest"`
}

type WriteFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type WriteFileResponse struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	Nodes []tree.Node `json:"nodes"`
}

// TabInfo is a tab without its buffer.
type TabInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Language   string `json:"language"`
	IsModified bool   `json:"is_modified"`
	Active     bool   `json:"active"`
}

type ListTabsResponse struct {
	Tabs      []TabInfo `json:"tabs"`
	ActiveID  string    `json:"active_id,omitempty"`
	UndoDepth int       `json:"undo_depth"`
	RedoDepth int       `json:"redo_depth"`
}

type TabRequest struct {
	ID string `json:"id"`
}

type TabContentResponse struct {
	Content string `json:"content"`
}

type EditTabRequest struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type MoveTabRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type SaveAllResponse struct {
	Saved int `json:"saved"`
}

// HistoryResponse reports an undo or redo step. Action is empty when there
// was nothing to apply.
type HistoryResponse struct {
	Applied bool   `json:"applied"`
	Action  string `json:"action,omitempty"`
	TabID   string `json:"tab_id,omitempty"`
}

type ListActivityRequest struct {
	// Limit keeps only the newest entries; zero means all.
	Limit int `json:"limit,omitempty"`
}

type ListActivityResponse struct {
	Entries []activity.Entry `json:"entries"`
}

type RemoveActivityRequest struct {
	ID string `json:"id"`
}

// Import source kinds.
const (
	SourceGitHub = "github"
	SourceGit    = "git"
	SourceLocal  = "local"
)

type ImportRequest struct {
	Kind string `json:"kind"`
	// Location is owner/repo or a GitHub URL, a clone URL, or a host path.
	Location    string   `json:"location"`
	Branch      string   `json:"branch,omitempty"`
	Dest        string   `json:"dest,omitempty"`
	MaxFileSize int64    `json:"max_file_size,omitempty"`
	Exclude     []string `json:"exclude,omitempty"`
	// Watch keeps mirroring a local source after the import.
	Watch bool `json:"watch,omitempty"`
}

type ImportResponse struct {
	Result importer.Result `json:"result"`
}

type ResetRequest struct {
	RootName string `json:"root_name,omitempty"`
}

type StatusResponse struct {
	Running     bool       `json:"running"`
	PID         int        `json:"pid"`
	Uptime      Duration   `json:"uptime"`
	MemoryBytes uint64     `json:"memory_bytes"`
	Root        string     `json:"root"`
	Stats       tree.Stats `json:"stats"`
	Tabs        int        `json:"tabs"`
	Activity    int        `json:"activity"`
	Subscribers int        `json:"subscribers"`
	Session     bool       `json:"session"`
	Mirrors     []string   `json:"mirrors,omitempty"`
}

// Duration marshals as a Go duration string ("1m30s").
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Watch stream kinds.
const (
	KindEvent    = "event"
	KindActivity = "activity"
)

type WatchRequest struct {
	// Root limits tree events to a subtree.
	Root string `json:"root,omitempty"`
	// Types limits tree events by name (node_created, tab_saved, ...).
	Types []string `json:"types,omitempty"`
	// Activity includes activity log entries in the stream.
	Activity bool `json:"activity,omitempty"`
	// NoEvents drops tree and tab events, leaving only activity.
	NoEvents bool `json:"no_events,omitempty"`
}

// WatchEvent is either a change event or an activity entry.
type WatchEvent struct {
	Kind     string            `json:"kind"`
	Type     string            `json:"type,omitempty"`
	ID       string            `json:"id,omitempty"`
	Path     string            `json:"path,omitempty"`
	OldPath  string            `json:"old_path,omitempty"`
	Severity activity.Severity `json:"severity,omitempty"`
	Message  string            `json:"message,omitempty"`
	Time     time.Time         `json:"time"`
}
