package atelierv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// WorkspaceClient calls the service over a gRPC connection. It satisfies
// Workspace.
type WorkspaceClient struct {
	cc grpc.ClientConnInterface
}

// NewWorkspaceClient wraps cc.
func NewWorkspaceClient(cc grpc.ClientConnInterface) *WorkspaceClient {
	return &WorkspaceClient{cc: cc}
}

var _ Workspace = (*WorkspaceClient)(nil)

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, req *Req) (*Resp, error) {
	in, err := Encode(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, fullMethod(name), in, out); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := Decode(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *WorkspaceClient) GetTree(ctx context.Context, r *GetTreeRequest) (*GetTreeResponse, error) {
	return invoke[GetTreeRequest, GetTreeResponse](ctx, c.cc, "GetTree", r)
}

func (c *WorkspaceClient) GetNode(ctx context.Context, r *NodeRequest) (*NodeResponse, error) {
	return invoke[NodeRequest, NodeResponse](ctx, c.cc, "GetNode", r)
}

func (c *WorkspaceClient) CreateNode(ctx context.Context, r *CreateNodeRequest) (*CreateNodeResponse, error) {
	return invoke[CreateNodeRequest, CreateNodeResponse](ctx, c.cc, "CreateNode", r)
}

func (c *WorkspaceClient) RenameNode(ctx context.Context, r *RenameNodeRequest) (*Empty, error) {
	return invoke[RenameNodeRequest, Empty](ctx, c.cc, "RenameNode", r)
}

func (c *WorkspaceClient) MoveNode(ctx context.Context, r *MoveNodeRequest) (*Empty, error) {
	return invoke[MoveNodeRequest, Empty](ctx, c.cc, "MoveNode", r)
}

func (c *WorkspaceClient) DeleteNode(ctx context.Context, r *NodeRequest) (*Empty, error) {
	return invoke[NodeRequest, Empty](ctx, c.cc, "DeleteNode", r)
}

func (c *WorkspaceClient) ToggleFolder(ctx context.Context, r *NodeRequest) (*Empty, error) {
	return invoke[NodeRequest, Empty](ctx, c.cc, "ToggleFolder", r)
}

func (c *WorkspaceClient) WriteFile(ctx context.Context, r *WriteFileRequest) (*WriteFileResponse, error) {
	return invoke[WriteFileRequest, WriteFileResponse](ctx, c.cc, "WriteFile", r)
}

func (c *WorkspaceClient) Search(ctx context.Context, r *SearchRequest) (*SearchResponse, error) {
	return invoke[SearchRequest, SearchResponse](ctx, c.cc, "Search", r)
}

func (c *WorkspaceClient) ListTabs(ctx context.Context, r *Empty) (*ListTabsResponse, error) {
	return invoke[Empty, ListTabsResponse](ctx, c.cc, "ListTabs", r)
}

func (c *WorkspaceClient) OpenTab(ctx context.Context, r *NodeRequest) (*Empty, error) {
	return invoke[NodeRequest, Empty](ctx, c.cc, "OpenTab", r)
}

func (c *WorkspaceClient) CloseTab(ctx context.Context, r *TabRequest) (*Empty, error) {
	return invoke[TabRequest, Empty](ctx, c.cc, "CloseTab", r)
}

func (c *WorkspaceClient) SetActiveTab(ctx context.Context, r *TabRequest) (*Empty, error) {
	return invoke[TabRequest, Empty](ctx, c.cc, "SetActiveTab", r)
}

func (c *WorkspaceClient) GetTabContent(ctx context.Context, r *TabRequest) (*TabContentResponse, error) {
	return invoke[TabRequest, TabContentResponse](ctx, c.cc, "GetTabContent", r)
}

func (c *WorkspaceClient) EditTab(ctx context.Context, r *EditTabRequest) (*Empty, error) {
	return invoke[EditTabRequest, Empty](ctx, c.cc, "EditTab", r)
}

func (c *WorkspaceClient) SaveTab(ctx context.Context, r *TabRequest) (*Empty, error) {
	return invoke[TabRequest, Empty](ctx, c.cc, "SaveTab", r)
}

func (c *WorkspaceClient) SaveAll(ctx context.Context, r *Empty) (*SaveAllResponse, error) {
	return invoke[Empty, SaveAllResponse](ctx, c.cc, "SaveAll", r)
}

func (c *WorkspaceClient) MoveTab(ctx context.Context, r *MoveTabRequest) (*Empty, error) {
	return invoke[MoveTabRequest, Empty](ctx, c.cc, "MoveTab", r)
}

func (c *WorkspaceClient) Undo(ctx context.Context, r *Empty) (*HistoryResponse, error) {
	return invoke[Empty, HistoryResponse](ctx, c.cc, "Undo", r)
}

func (c *WorkspaceClient) Redo(ctx context.Context, r *Empty) (*HistoryResponse, error) {
	return invoke[Empty, HistoryResponse](ctx, c.cc, "Redo", r)
}

func (c *WorkspaceClient) ListActivity(ctx context.Context, r *ListActivityRequest) (*ListActivityResponse, error) {
	return invoke[ListActivityRequest, ListActivityResponse](ctx, c.cc, "ListActivity", r)
}

func (c *WorkspaceClient) RemoveActivity(ctx context.Context, r *RemoveActivityRequest) (*Empty, error) {
	return invoke[RemoveActivityRequest, Empty](ctx, c.cc, "RemoveActivity", r)
}

func (c *WorkspaceClient) ClearActivity(ctx context.Context, r *Empty) (*Empty, error) {
	return invoke[Empty, Empty](ctx, c.cc, "ClearActivity", r)
}

func (c *WorkspaceClient) Import(ctx context.Context, r *ImportRequest) (*ImportResponse, error) {
	return invoke[ImportRequest, ImportResponse](ctx, c.cc, "Import", r)
}

func (c *WorkspaceClient) Reset(ctx context.Context, r *ResetRequest) (*Empty, error) {
	return invoke[ResetRequest, Empty](ctx, c.cc, "Reset", r)
}

func (c *WorkspaceClient) Status(ctx context.Context, r *Empty) (*StatusResponse, error) {
	return invoke[Empty, StatusResponse](ctx, c.cc, "Status", r)
}

func (c *WorkspaceClient) Shutdown(ctx context.Context, r *Empty) (*Empty, error) {
	return invoke[Empty, Empty](ctx, c.cc, "Shutdown", r)
}

// WatchClient receives events from a Watch stream.
type WatchClient interface {
	Recv() (*WatchEvent, error)
	grpc.ClientStream
}

type watchClient struct {
	grpc.ClientStream
}

func (w *watchClient) Recv() (*WatchEvent, error) {
	out := new(structpb.Struct)
	if err := w.RecvMsg(out); err != nil {
		return nil, err
	}
	e := new(WatchEvent)
	if err := Decode(out, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Watch opens a server stream of events. Cancel ctx to end it.
func (c *WorkspaceClient) Watch(ctx context.Context, r *WatchRequest) (WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("Watch"))
	if err != nil {
		return nil, err
	}
	in, err := Encode(r)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &watchClient{stream}, nil
}
