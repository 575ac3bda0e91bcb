package daemon_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/daemon"
	"github.com/jamesainslie/atelier/pkg/workspace"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

func TestNewServer(t *testing.T) {
	svc, _ := newService(t)
	cfg := daemon.Config{
		SocketPath: filepath.Join(t.TempDir(), "atelierd.sock"),
		DataDir:    t.TempDir(),
	}

	srv, err := daemon.NewServer(cfg, svc)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer srv.Close()

	if srv == nil {
		t.Fatal("Expected non-nil server")
	}
}

// startServer serves a fresh workspace on a temporary socket and returns a
// connected client.
func startServer(t *testing.T) (*atelierv1.WorkspaceClient, *workspace.Workspace) {
	t.Helper()
	svc, ws := newService(t)
	tmpDir := t.TempDir()
	socketPath := filepath.Join(tmpDir, "test.sock")

	srv, err := daemon.NewServer(daemon.Config{
		SocketPath: socketPath,
		DataDir:    filepath.Join(tmpDir, "data"),
	}, svc)
	require.NoError(t, err)

	go func() {
		_ = srv.Serve()
	}()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return atelierv1.NewWorkspaceClient(conn), ws
}

func TestServerRoundTrip(t *testing.T) {
	client, ws := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created, err := client.CreateNode(ctx, &atelierv1.CreateNodeRequest{Name: "docs", Kind: tree.KindFolder})
	require.NoError(t, err)
	assert.Equal(t, "/root/docs", created.Path)

	w, err := client.WriteFile(ctx, &atelierv1.WriteFileRequest{Path: "docs/guide.md", Content: "# Guide\n"})
	require.NoError(t, err)
	assert.True(t, w.Created)

	n, ok := ws.Tree.GetNodeByID(w.ID)
	require.True(t, ok)
	assert.Equal(t, "markdown", n.Language)

	resp, err := client.GetTree(ctx, &atelierv1.GetTreeRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Tree.Children, 1)
	require.Len(t, resp.Tree.Children[0].Children, 1)
	assert.Equal(t, "guide.md", resp.Tree.Children[0].Children[0].Name)
	assert.Equal(t, tree.KindFolder, resp.Tree.Kind)

	node, err := client.GetNode(ctx, &atelierv1.NodeRequest{Ref: "docs/guide.md"})
	require.NoError(t, err)
	assert.Equal(t, "# Guide\n", node.Node.Content)

	st, err := client.Status(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, 1, st.Stats.Files)
}

func TestServerPreservesErrorCodes(t *testing.T) {
	client, _ := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.GetNode(ctx, &atelierv1.NodeRequest{Ref: "nope.txt"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.MoveTab(ctx, &atelierv1.MoveTabRequest{From: 1, To: 2})
	require.Error(t, err)
	assert.Equal(t, codes.OutOfRange, status.Code(err))
}

func TestServerWatchStream(t *testing.T) {
	client, ws := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.Watch(ctx, &atelierv1.WatchRequest{Types: []string{"node_created"}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return ws.Events.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = client.WriteFile(ctx, &atelierv1.WriteFileRequest{Path: "a.txt", Content: "a"})
	require.NoError(t, err)

	e, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, atelierv1.KindEvent, e.Kind)
	assert.Equal(t, "node_created", e.Type)
	assert.Equal(t, "/root/a.txt", e.Path)
	assert.False(t, e.Time.IsZero())
}
