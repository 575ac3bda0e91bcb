package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/atelier/logging"
	"github.com/jamesainslie/atelier/pkg/workspace"
	"github.com/jamesainslie/atelier/pkg/workspace/activity"
	"github.com/jamesainslie/atelier/pkg/workspace/events"
	"github.com/jamesainslie/atelier/pkg/workspace/importer"
	"github.com/jamesainslie/atelier/pkg/workspace/tabs"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
	"github.com/jamesainslie/atelier/pkg/workspace/watcher"
)

// errInvalidArgument marks malformed requests.
var errInvalidArgument = errors.New("invalid argument")

// GitHubOptions configures the GitHub import source.
type GitHubOptions struct {
	Token  string
	APIURL string
}

// Service implements atelierv1.WorkspaceServer over one workspace. It is
// also used in-process by the CLI when no daemon is running.
type Service struct {
	ws        *workspace.Workspace
	github    GitHubOptions
	startTime time.Time
	shutdown  func()

	// ctx bounds background work such as mirrors.
	ctx    context.Context
	cancel context.CancelFunc

	mirrorMu sync.Mutex
	mirrors  map[string]*watcher.Watcher
}

var _ atelierv1.WorkspaceServer = (*Service)(nil)

// NewService serves ws.
func NewService(ws *workspace.Workspace, gh GitHubOptions) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		ws:        ws,
		github:    gh,
		startTime: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		mirrors:   make(map[string]*watcher.Watcher),
	}
}

// OnShutdown sets the function called by the Shutdown RPC.
func (s *Service) OnShutdown(fn func()) {
	s.shutdown = fn
}

// Workspace returns the served workspace.
func (s *Service) Workspace() *workspace.Workspace {
	return s.ws
}

// Close stops every mirror.
func (s *Service) Close() error {
	s.cancel()
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()
	var errs []error
	for dest, w := range s.mirrors {
		errs = append(errs, w.Close())
		delete(s.mirrors, dest)
	}
	return errors.Join(errs...)
}

// toStatus maps workspace errors to gRPC codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := codes.Internal
	switch {
	case errors.Is(err, workspace.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, tree.ErrInvalidOperation):
		code = codes.FailedPrecondition
	case errors.Is(err, tabs.ErrIndexOutOfRange):
		code = codes.OutOfRange
	case errors.Is(err, errInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return status.Error(code, err.Error())
}

func (s *Service) resolve(ref string) (tree.Node, error) {
	return s.ws.Resolve(ref)
}

func (s *Service) GetTree(_ context.Context, req *atelierv1.GetTreeRequest) (*atelierv1.GetTreeResponse, error) {
	n, err := s.resolve(req.Path)
	if err != nil {
		return nil, toStatus(err)
	}
	return &atelierv1.GetTreeResponse{Tree: s.ws.Tree.Nested(n.ID), Stats: s.ws.Tree.Stats()}, nil
}

func (s *Service) GetNode(_ context.Context, req *atelierv1.NodeRequest) (*atelierv1.NodeResponse, error) {
	n, err := s.resolve(req.Ref)
	if err != nil {
		return nil, toStatus(err)
	}
	return &atelierv1.NodeResponse{Node: n}, nil
}

func (s *Service) CreateNode(_ context.Context, req *atelierv1.CreateNodeRequest) (*atelierv1.CreateNodeResponse, error) {
	parent := s.ws.AbsPath(req.Parent)
	if req.Parents {
		if _, err := s.ws.Tree.MkdirAll(parent); err != nil {
			return nil, toStatus(err)
		}
	}

	var (
		id  string
		err error
	)
	if req.Kind == tree.KindFolder {
		id, err = s.ws.CreateFolder(parent, req.Name)
	} else {
		id, err = s.ws.CreateFile(parent, req.Name)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	n, _ := s.ws.Tree.GetNodeByID(id)
	return &atelierv1.CreateNodeResponse{ID: id, Path: n.Path}, nil
}

func (s *Service) RenameNode(_ context.Context, req *atelierv1.RenameNodeRequest) (*atelierv1.Empty, error) {
	n, err := s.resolve(req.Ref)
	if err != nil {
		return nil, toStatus(err)
	}
	return &atelierv1.Empty{}, toStatus(s.ws.Rename(n.ID, req.Name))
}

func (s *Service) MoveNode(_ context.Context, req *atelierv1.MoveNodeRequest) (*atelierv1.Empty, error) {
	n, err := s.resolve(req.Ref)
	if err != nil {
		return nil, toStatus(err)
	}
	dest, err := s.resolve(req.Dest)
	if err != nil {
		return nil, toStatus(err)
	}
	return &atelierv1.Empty{}, toStatus(s.ws.Move(n.ID, dest.ID))
}

func (s *Service) DeleteNode(_ context.Context, req *atelierv1.NodeRequest) (*atelierv1.Empty, error) {
	n, err := s.resolve(req.Ref)
	if err != nil {
		return nil, toStatus(err)
	}
	return &atelierv1.Empty{}, toStatus(s.ws.Delete(n.ID))
}

func (s *Service) ToggleFolder(_ context.Context, req *atelierv1.NodeRequest) (*atelierv1.Empty, error) {
	n, err := s.resolve(req.Ref)
	if err != nil {
		return nil, toStatus(err)
	}
	if !n.IsFolder() {
		return nil, toStatus(fmt.Errorf("%w: %s is not a folder", tree.ErrInvalidOperation, n.Path))
	}
	s.ws.Tree.ToggleFolder(n.ID)
	return &atelierv1.Empty{}, nil
}

func (s *Service) WriteFile(_ context.Context, req *atelierv1.WriteFileRequest) (*atelierv1.WriteFileResponse, error) {
	id, created, err := s.ws.Tree.WriteFile(s.ws.AbsPath(req.Path), req.Content)
	if err != nil {
		return nil, toStatus(err)
	}
	return &atelierv1.WriteFileResponse{ID: id, Created: created}, nil
}

func (s *Service) Search(_ context.Context, req *atelierv1.SearchRequest) (*atelierv1.SearchResponse, error) {
	return &atelierv1.SearchResponse{Nodes: s.ws.Search(req.Query)}, nil
}

func (s *Service) ListTabs(_ context.Context, _ *atelierv1.Empty) (*atelierv1.ListTabsResponse, error) {
	active := s.ws.Tabs.ActiveID()
	resp := &atelierv1.ListTabsResponse{ActiveID: active, Tabs: []atelierv1.TabInfo{}}
	for _, t := range s.ws.Tabs.Tabs() {
		resp.Tabs = append(resp.Tabs, atelierv1.TabInfo{
			ID:         t.ID,
			Name:       t.Name,
			Path:       t.Path,
			Language:   t.Language,
			IsModified: t.IsModified,
			Active:     t.ID == active,
		})
	}
	resp.UndoDepth, resp.RedoDepth = s.ws.Tabs.HistoryDepth()
	return resp, nil
}

func (s *Service) OpenTab(_ context.Context, req *atelierv1.NodeRequest) (*atelierv1.Empty, error) {
	n, err := s.resolve(req.Ref)
	if err != nil {
		return nil, toStatus(err)
	}
	if n.IsFolder() {
		return nil, toStatus(fmt.Errorf("%w: %s is a folder", tree.ErrInvalidOperation, n.Path))
	}
	s.ws.Tabs.OpenTab(n.ID)
	return &atelierv1.Empty{}, nil
}

// tabID accepts a tab id or the path of an open file.
func (s *Service) tabID(ref string) (string, error) {
	if _, ok := s.ws.Tabs.GetTabContent(ref); ok {
		return ref, nil
	}
	n, err := s.resolve(ref)
	if err != nil {
		return "", err
	}
	if _, ok := s.ws.Tabs.GetTabContent(n.ID); !ok {
		return "", fmt.Errorf("%s is not open: %w", n.Path, workspace.ErrNotFound)
	}
	return n.ID, nil
}

func (s *Service) CloseTab(_ context.Context, req *atelierv1.TabRequest) (*atelierv1.Empty, error) {
	id, err := s.tabID(req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	s.ws.CloseTab(id)
	return &atelierv1.Empty{}, nil
}

func (s *Service) SetActiveTab(_ context.Context, req *atelierv1.TabRequest) (*atelierv1.Empty, error) {
	id, err := s.tabID(req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	s.ws.Tabs.SetActiveTab(id)
	return &atelierv1.Empty{}, nil
}

func (s *Service) GetTabContent(_ context.Context, req *atelierv1.TabRequest) (*atelierv1.TabContentResponse, error) {
	id, err := s.tabID(req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	content, _ := s.ws.Tabs.GetTabContent(id)
	return &atelierv1.TabContentResponse{Content: content}, nil
}

func (s *Service) EditTab(_ context.Context, req *atelierv1.EditTabRequest) (*atelierv1.Empty, error) {
	id, err := s.tabID(req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &atelierv1.Empty{}, toStatus(s.ws.Edit(id, req.Content))
}

func (s *Service) SaveTab(_ context.Context, req *atelierv1.TabRequest) (*atelierv1.Empty, error) {
	id, err := s.tabID(req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &atelierv1.Empty{}, toStatus(s.ws.Save(id))
}

func (s *Service) SaveAll(_ context.Context, _ *atelierv1.Empty) (*atelierv1.SaveAllResponse, error) {
	return &atelierv1.SaveAllResponse{Saved: s.ws.SaveAll()}, nil
}

func (s *Service) MoveTab(_ context.Context, req *atelierv1.MoveTabRequest) (*atelierv1.Empty, error) {
	return &atelierv1.Empty{}, toStatus(s.ws.MoveTab(req.From, req.To))
}

func historyResponse(a tabs.Action, ok bool) *atelierv1.HistoryResponse {
	resp := &atelierv1.HistoryResponse{Applied: ok}
	switch a := a.(type) {
	case tabs.ContentChange:
		resp.Action, resp.TabID = "content_change", a.TabID
	case tabs.TabClose:
		resp.Action, resp.TabID = "tab_close", a.Tab.ID
	}
	return resp
}

func (s *Service) Undo(_ context.Context, _ *atelierv1.Empty) (*atelierv1.HistoryResponse, error) {
	return historyResponse(s.ws.Undo()), nil
}

func (s *Service) Redo(_ context.Context, _ *atelierv1.Empty) (*atelierv1.HistoryResponse, error) {
	return historyResponse(s.ws.Redo()), nil
}

func (s *Service) ListActivity(_ context.Context, req *atelierv1.ListActivityRequest) (*atelierv1.ListActivityResponse, error) {
	entries := s.ws.Activity.Entries()
	if req.Limit > 0 && len(entries) > req.Limit {
		entries = entries[len(entries)-req.Limit:]
	}
	return &atelierv1.ListActivityResponse{Entries: entries}, nil
}

func (s *Service) RemoveActivity(_ context.Context, req *atelierv1.RemoveActivityRequest) (*atelierv1.Empty, error) {
	if !s.ws.Activity.Remove(req.ID) {
		return nil, toStatus(fmt.Errorf("activity entry %q: %w", req.ID, workspace.ErrNotFound))
	}
	return &atelierv1.Empty{}, nil
}

func (s *Service) ClearActivity(_ context.Context, _ *atelierv1.Empty) (*atelierv1.Empty, error) {
	s.ws.Activity.Clear()
	return &atelierv1.Empty{}, nil
}

func (s *Service) source(req *atelierv1.ImportRequest) (importer.Source, error) {
	if req.Location == "" {
		return nil, fmt.Errorf("%w: import location is empty", errInvalidArgument)
	}
	switch req.Kind {
	case atelierv1.SourceGitHub, "":
		owner, repo, err := importer.ParseRepo(req.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidArgument, err)
		}
		return &importer.GitHubSource{
			Owner:   owner,
			Repo:    repo,
			Branch:  req.Branch,
			Token:   s.github.Token,
			BaseURL: s.github.APIURL,
		}, nil
	case atelierv1.SourceGit:
		return &importer.GitSource{URL: req.Location, Branch: req.Branch}, nil
	case atelierv1.SourceLocal:
		return &importer.LocalSource{Root: req.Location}, nil
	}
	return nil, fmt.Errorf("%w: unknown import source %q", errInvalidArgument, req.Kind)
}

func (s *Service) Import(ctx context.Context, req *atelierv1.ImportRequest) (*atelierv1.ImportResponse, error) {
	src, err := s.source(req)
	if err != nil {
		return nil, toStatus(err)
	}
	if req.Watch && req.Kind != atelierv1.SourceLocal {
		return nil, toStatus(fmt.Errorf("%w: only local imports can be watched", errInvalidArgument))
	}

	var opts []importer.Option
	if req.MaxFileSize > 0 {
		opts = append(opts, importer.WithMaxFileSize(req.MaxFileSize))
	}
	if len(req.Exclude) > 0 {
		opts = append(opts, importer.WithExclude(req.Exclude...))
	}

	dest := s.ws.AbsPath(req.Dest)
	res, err := s.ws.Import(ctx, src, dest, opts...)
	if err != nil {
		return nil, toStatus(err)
	}

	if req.Watch {
		if err := s.mirror(req.Location, dest); err != nil {
			s.ws.Activity.Warnf("Cannot watch %s: %v", req.Location, err)
		}
	}
	return &atelierv1.ImportResponse{Result: res}, nil
}

func (s *Service) mirror(hostRoot, dest string) error {
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()

	if old, ok := s.mirrors[dest]; ok {
		_ = old.Close()
		delete(s.mirrors, dest)
	}
	w, err := s.ws.Mirror(s.ctx, hostRoot, dest)
	if err != nil {
		return err
	}
	s.mirrors[dest] = w
	return nil
}

func (s *Service) Reset(_ context.Context, req *atelierv1.ResetRequest) (*atelierv1.Empty, error) {
	s.mirrorMu.Lock()
	for dest, w := range s.mirrors {
		_ = w.Close()
		delete(s.mirrors, dest)
	}
	s.mirrorMu.Unlock()

	s.ws.Reset(req.RootName)
	return &atelierv1.Empty{}, nil
}

func (s *Service) Status(_ context.Context, _ *atelierv1.Empty) (*atelierv1.StatusResponse, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s.mirrorMu.Lock()
	mirrors := make([]string, 0, len(s.mirrors))
	for dest := range s.mirrors {
		mirrors = append(mirrors, dest)
	}
	s.mirrorMu.Unlock()
	sort.Strings(mirrors)

	return &atelierv1.StatusResponse{
		Running:     true,
		PID:         os.Getpid(),
		Uptime:      atelierv1.Duration(time.Since(s.startTime).Round(time.Second)),
		MemoryBytes: mem.Alloc,
		Root:        s.ws.Tree.Root().Path,
		Stats:       s.ws.Tree.Stats(),
		Tabs:        len(s.ws.Tabs.Tabs()),
		Activity:    s.ws.Activity.Len(),
		Subscribers: s.ws.Events.SubscriberCount(),
		Session:     s.ws.HasSession(),
		Mirrors:     mirrors,
	}, nil
}

// Shutdown asks the daemon to stop. The reply is sent before the server
// goes down.
func (s *Service) Shutdown(_ context.Context, _ *atelierv1.Empty) (*atelierv1.Empty, error) {
	logging.Get("daemon").Info("shutdown requested")
	if s.shutdown != nil {
		go s.shutdown()
	}
	return &atelierv1.Empty{}, nil
}

// CheckWatch validates a Watch request without subscribing.
func (s *Service) CheckWatch(req *atelierv1.WatchRequest) error {
	_, err := watchTypes(req)
	return toStatus(err)
}

func watchTypes(req *atelierv1.WatchRequest) ([]events.Type, error) {
	if req.NoEvents && !req.Activity {
		return nil, fmt.Errorf("%w: nothing to watch", errInvalidArgument)
	}
	var types []events.Type
	for _, name := range req.Types {
		t, ok := events.ParseType(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown event type %q", errInvalidArgument, name)
		}
		types = append(types, t)
	}
	return types, nil
}

// Watch streams events and, on request, activity entries until the client
// goes away or the workspace closes.
func (s *Service) Watch(req *atelierv1.WatchRequest, stream atelierv1.WatchServer) error {
	types, err := watchTypes(req)
	if err != nil {
		return toStatus(err)
	}

	var sub *events.Subscriber
	if !req.NoEvents {
		root := ""
		if req.Root != "" {
			root = s.ws.AbsPath(req.Root)
		}
		sub = s.ws.Events.Subscribe(root, types...)
		if sub == nil {
			return status.Error(codes.Unavailable, "workspace is closed")
		}
		defer s.ws.Events.Unsubscribe(sub.ID)
	}

	var evCh <-chan events.Event
	if sub != nil {
		evCh = sub.Events
	}

	var actCh <-chan activity.Entry
	if req.Activity {
		ch := s.ws.Activity.Subscribe()
		defer s.ws.Activity.Unsubscribe(ch)
		actCh = ch
	}

	ctx := stream.Context()
	for {
		var out *atelierv1.WatchEvent
		select {
		case <-ctx.Done():
			return nil
		case <-s.ctx.Done():
			return nil
		case e, ok := <-evCh:
			if !ok {
				return nil
			}
			out = &atelierv1.WatchEvent{
				Kind:    atelierv1.KindEvent,
				Type:    e.Type.String(),
				ID:      e.ID,
				Path:    e.Path,
				OldPath: e.OldPath,
				Time:    e.Time,
			}
		case a, ok := <-actCh:
			if !ok {
				return nil
			}
			out = &atelierv1.WatchEvent{
				Kind:     atelierv1.KindActivity,
				ID:       a.ID,
				Severity: a.Severity,
				Message:  a.Message,
				Time:     a.Time,
			}
		}
		if err := stream.Send(out); err != nil {
			return err
		}
	}
}
