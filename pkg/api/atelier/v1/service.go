package atelierv1

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "atelier.v1.Workspace"

// Workspace is the unary part of the service. The daemon implements it
// over gRPC and in-process; the remote client implements it too.
type Workspace interface {
	GetTree(context.Context, *GetTreeRequest) (*GetTreeResponse, error)
	GetNode(context.Context, *NodeRequest) (*NodeResponse, error)
	CreateNode(context.Context, *CreateNodeRequest) (*CreateNodeResponse, error)
	RenameNode(context.Context, *RenameNodeRequest) (*Empty, error)
	MoveNode(context.Context, *MoveNodeRequest) (*Empty, error)
	DeleteNode(context.Context, *NodeRequest) (*Empty, error)
	ToggleFolder(context.Context, *NodeRequest) (*Empty, error)
	WriteFile(context.Context, *WriteFileRequest) (*WriteFileResponse, error)
	Search(context.Context, *SearchRequest) (*SearchResponse, error)

	ListTabs(context.Context, *Empty) (*ListTabsResponse, error)
	OpenTab(context.Context, *NodeRequest) (*Empty, error)
	CloseTab(context.Context, *TabRequest) (*Empty, error)
	SetActiveTab(context.Context, *TabRequest) (*Empty, error)
	GetTabContent(context.Context, *TabRequest) (*TabContentResponse, error)
	EditTab(context.Context, *EditTabRequest) (*Empty, error)
	SaveTab(context.Context, *TabRequest) (*Empty, error)
	SaveAll(context.Context, *Empty) (*SaveAllResponse, error)
	MoveTab(context.Context, *MoveTabRequest) (*Empty, error)
	Undo(context.Context, *Empty) (*HistoryResponse, error)
	Redo(context.Context, *Empty) (*HistoryResponse, error)

	ListActivity(context.Context, *ListActivityRequest) (*ListActivityResponse, error)
	RemoveActivity(context.Context, *RemoveActivityRequest) (*Empty, error)
	ClearActivity(context.Context, *Empty) (*Empty, error)

	Import(context.Context, *ImportRequest) (*ImportResponse, error)
	Reset(context.Context, *ResetRequest) (*Empty, error)
	Status(context.Context, *Empty) (*StatusResponse, error)
	Shutdown(context.Context, *Empty) (*Empty, error)
}

// WatchServer is the server side of a Watch stream.
type WatchServer interface {
	Send(*WatchEvent) error
	Context() context.Context
}

// WorkspaceServer is implemented by the daemon.
type WorkspaceServer interface {
	Workspace
	Watch(*WatchRequest, WatchServer) error
}

// ServiceDesc describes the service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WorkspaceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetTree", Workspace.GetTree),
		unary("GetNode", Workspace.GetNode),
		unary("CreateNode", Workspace.CreateNode),
		unary("RenameNode", Workspace.RenameNode),
		unary("MoveNode", Workspace.MoveNode),
		unary("DeleteNode", Workspace.DeleteNode),
		unary("ToggleFolder", Workspace.ToggleFolder),
		unary("WriteFile", Workspace.WriteFile),
		unary("Search", Workspace.Search),
		unary("ListTabs", Workspace.ListTabs),
		unary("OpenTab", Workspace.OpenTab),
		unary("CloseTab", Workspace.CloseTab),
		unary("SetActiveTab", Workspace.SetActiveTab),
		unary("GetTabContent", Workspace.GetTabContent),
		unary("EditTab", Workspace.EditTab),
		unary("SaveTab", Workspace.SaveTab),
		unary("SaveAll", Workspace.SaveAll),
		unary("MoveTab", Workspace.MoveTab),
		unary("Undo", Workspace.Undo),
		unary("Redo", Workspace.Redo),
		unary("ListActivity", Workspace.ListActivity),
		unary("RemoveActivity", Workspace.RemoveActivity),
		unary("ClearActivity", Workspace.ClearActivity),
		unary("Import", Workspace.Import),
		unary("Reset", Workspace.Reset),
		unary("Status", Workspace.Status),
		unary("Shutdown", Workspace.Shutdown),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "atelier/v1/workspace",
}

// RegisterWorkspaceServer registers srv with s.
func RegisterWorkspaceServer(s grpc.ServiceRegistrar, srv WorkspaceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(Workspace, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handle := func(ctx context.Context, msg any) (any, error) {
				req := new(Req)
				if err := Decode(msg.(*structpb.Struct), req); err != nil {
					return nil, status.Error(codes.InvalidArgument, err.Error())
				}
				resp, err := call(srv.(Workspace), ctx, req)
				if err != nil {
					return nil, err
				}
				return Encode(resp)
			}
			if interceptor == nil {
				return handle(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, handle)
		},
	}
}

type watchServer struct {
	grpc.ServerStream
}

func (w *watchServer) Send(e *WatchEvent) error {
	msg, err := Encode(e)
	if err != nil {
		return err
	}
	return w.SendMsg(msg)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	req := new(WatchRequest)
	if err := Decode(in, req); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return srv.(WorkspaceServer).Watch(req, &watchServer{stream})
}

// Encode converts a message to a Struct through its JSON form.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return s, nil
}

// Decode fills v from a Struct produced by Encode.
func Decode(s *structpb.Struct, v any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
