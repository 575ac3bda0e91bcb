package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/daemon"
	"github.com/jamesainslie/atelier/pkg/workspace"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

func newService(t *testing.T) (*daemon.Service, *workspace.Workspace) {
	t.Helper()
	ws := workspace.New(workspace.Options{})
	svc := daemon.NewService(ws, daemon.GitHubOptions{})
	t.Cleanup(func() {
		_ = svc.Close()
		_ = ws.Close()
	})
	return svc, ws
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, status.Code(err), "error: %v", err)
}

func TestServiceCreateAndGetTree(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateNode(ctx, &atelierv1.CreateNodeRequest{Name: "src", Kind: tree.KindFolder})
	require.NoError(t, err)
	created, err := svc.CreateNode(ctx, &atelierv1.CreateNodeRequest{Parent: "src", Name: "main.go"})
	require.NoError(t, err)
	assert.Equal(t, "/root/src/main.go", created.Path)

	resp, err := svc.GetTree(ctx, &atelierv1.GetTreeRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Tree.Children, 1)
	assert.Equal(t, "src", resp.Tree.Children[0].Name)
	assert.Equal(t, 1, resp.Stats.Files)

	sub, err := svc.GetTree(ctx, &atelierv1.GetTreeRequest{Path: "src"})
	require.NoError(t, err)
	assert.Equal(t, "/root/src", sub.Tree.Path)

	node, err := svc.GetNode(ctx, &atelierv1.NodeRequest{Ref: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "go", node.Node.Language)
}

func TestServiceCreateWithParents(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateNode(ctx, &atelierv1.CreateNodeRequest{Parent: "a/b", Name: "c.txt"})
	assertCode(t, err, codes.NotFound)

	resp, err := svc.CreateNode(ctx, &atelierv1.CreateNodeRequest{Parent: "a/b", Name: "c.txt", Parents: true})
	require.NoError(t, err)
	assert.Equal(t, "/root/a/b/c.txt", resp.Path)
}

func TestServiceErrorCodes(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateNode(ctx, &atelierv1.CreateNodeRequest{Name: "a.txt"})
	require.NoError(t, err)

	_, err = svc.GetNode(ctx, &atelierv1.NodeRequest{Ref: "/missing"})
	assertCode(t, err, codes.NotFound)

	_, err = svc.CreateNode(ctx, &atelierv1.CreateNodeRequest{Name: "a.txt"})
	assertCode(t, err, codes.FailedPrecondition)

	_, err = svc.DeleteNode(ctx, &atelierv1.NodeRequest{Ref: "/root"})
	assertCode(t, err, codes.FailedPrecondition)

	_, err = svc.MoveTab(ctx, &atelierv1.MoveTabRequest{From: 5, To: 0})
	assertCode(t, err, codes.OutOfRange)

	_, err = svc.ToggleFolder(ctx, &atelierv1.NodeRequest{Ref: "a.txt"})
	assertCode(t, err, codes.FailedPrecondition)

	_, err = svc.Import(ctx, &atelierv1.ImportRequest{Kind: atelierv1.SourceLocal})
	assertCode(t, err, codes.InvalidArgument)

	_, err = svc.Import(ctx, &atelierv1.ImportRequest{Kind: "svn", Location: "x"})
	assertCode(t, err, codes.InvalidArgument)

	_, err = svc.Import(ctx, &atelierv1.ImportRequest{Kind: atelierv1.SourceGitHub, Location: "not-a-repo"})
	assertCode(t, err, codes.InvalidArgument)

	_, err = svc.Import(ctx, &atelierv1.ImportRequest{Kind: atelierv1.SourceGit, Location: "https://example.com/x.git", Watch: true})
	assertCode(t, err, codes.InvalidArgument)
}

func TestServiceRenameMoveDelete(t *testing.T) {
	svc, ws := newService(t)
	ctx := context.Background()

	_, err := svc.CreateNode(ctx, &atelierv1.CreateNodeRequest{Name: "docs", Kind: tree.KindFolder})
	require.NoError(t, err)
	_, err = svc.CreateNode(ctx, &atelierv1.CreateNodeRequest{Name: "notes.md"})
	require.NoError(t, err)

	_, err = svc.RenameNode(ctx, &atelierv1.RenameNodeRequest{Ref: "notes.md", Name: "readme.md"})
	require.NoError(t, err)
	_, err = svc.MoveNode(ctx, &atelierv1.MoveNodeRequest{Ref: "readme.md", Dest: "docs"})
	require.NoError(t, err)

	n, ok := ws.Tree.GetNodeByPath("/root/docs/readme.md")
	require.True(t, ok)
	tabsResp, err := svc.ListTabs(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	require.Len(t, tabsResp.Tabs, 1)
	assert.Equal(t, "/root/docs/readme.md", tabsResp.Tabs[0].Path)

	_, err = svc.DeleteNode(ctx, &atelierv1.NodeRequest{Ref: "docs"})
	require.NoError(t, err)
	_, ok = ws.Tree.GetNodeByID(n.ID)
	assert.False(t, ok)
	tabsResp, err = svc.ListTabs(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	assert.Empty(t, tabsResp.Tabs)
}

func TestServiceTabsFlow(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateNode(ctx, &atelierv1.CreateNodeRequest{Name: "main.go"})
	require.NoError(t, err)

	list, err := svc.ListTabs(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	require.Len(t, list.Tabs, 1)
	assert.True(t, list.Tabs[0].Active)
	assert.Equal(t, created.ID, list.ActiveID)

	// Tabs can be named by path.
	_, err = svc.EditTab(ctx, &atelierv1.EditTabRequest{ID: "main.go", Content: "package main"})
	require.NoError(t, err)
	list, err = svc.ListTabs(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	assert.True(t, list.Tabs[0].IsModified)
	assert.Equal(t, 1, list.UndoDepth)

	_, err = svc.SaveTab(ctx, &atelierv1.TabRequest{ID: created.ID})
	require.NoError(t, err)
	node, err := svc.GetNode(ctx, &atelierv1.NodeRequest{Ref: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "package main", node.Node.Content)

	undo, err := svc.Undo(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	assert.True(t, undo.Applied)
	assert.Equal(t, "content_change", undo.Action)
	content, err := svc.GetTabContent(ctx, &atelierv1.TabRequest{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "", content.Content)

	_, err = svc.CloseTab(ctx, &atelierv1.TabRequest{ID: created.ID})
	require.NoError(t, err)
	_, err = svc.GetTabContent(ctx, &atelierv1.TabRequest{ID: created.ID})
	assertCode(t, err, codes.NotFound)

	undo, err = svc.Undo(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "tab_close", undo.Action)
	assert.Equal(t, created.ID, undo.TabID)

	// Closing the tab cleared the redo stack, so only the close is redone.
	redo, err := svc.Redo(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	assert.True(t, redo.Applied)
	assert.Equal(t, "tab_close", redo.Action)

	redo, err = svc.Redo(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	assert.False(t, redo.Applied)
	assert.Empty(t, redo.Action)
}

func TestServiceOpenTabAndSaveAll(t *testing.T) {
	svc, ws := newService(t)
	ctx := context.Background()

	_, _, err := ws.Tree.WriteFile("/root/a.txt", "a")
	require.NoError(t, err)
	_, _, err = ws.Tree.WriteFile("/root/b.txt", "b")
	require.NoError(t, err)

	_, err = svc.OpenTab(ctx, &atelierv1.NodeRequest{Ref: "a.txt"})
	require.NoError(t, err)
	_, err = svc.OpenTab(ctx, &atelierv1.NodeRequest{Ref: "b.txt"})
	require.NoError(t, err)
	_, err = svc.OpenTab(ctx, &atelierv1.NodeRequest{Ref: "/root"})
	assertCode(t, err, codes.FailedPrecondition)

	_, err = svc.SetActiveTab(ctx, &atelierv1.TabRequest{ID: "a.txt"})
	require.NoError(t, err)
	_, err = svc.MoveTab(ctx, &atelierv1.MoveTabRequest{From: 0, To: 1})
	require.NoError(t, err)

	list, err := svc.ListTabs(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	require.Len(t, list.Tabs, 2)
	assert.Equal(t, "b.txt", list.Tabs[0].Name)
	assert.True(t, list.Tabs[1].Active)

	_, err = svc.EditTab(ctx, &atelierv1.EditTabRequest{ID: "a.txt", Content: "A"})
	require.NoError(t, err)
	saved, err := svc.SaveAll(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Saved)
}

func TestServiceWriteFileAndSearch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	w, err := svc.WriteFile(ctx, &atelierv1.WriteFileRequest{Path: "pkg/util/strings.go", Content: "package util"})
	require.NoError(t, err)
	assert.True(t, w.Created)

	w2, err := svc.WriteFile(ctx, &atelierv1.WriteFileRequest{Path: "/root/pkg/util/strings.go", Content: "package util\n"})
	require.NoError(t, err)
	assert.False(t, w2.Created)
	assert.Equal(t, w.ID, w2.ID)

	found, err := svc.Search(ctx, &atelierv1.SearchRequest{Query: "UTIL"})
	require.NoError(t, err)
	require.Len(t, found.Nodes, 1)
	assert.Equal(t, "/root/pkg/util", found.Nodes[0].Path)
}

func TestServiceActivity(t *testing.T) {
	svc, ws := newService(t)
	ctx := context.Background()

	ws.Activity.Infof("one")
	ws.Activity.Infof("two")
	ws.Activity.Warnf("three")

	all, err := svc.ListActivity(ctx, &atelierv1.ListActivityRequest{})
	require.NoError(t, err)
	require.Len(t, all.Entries, 3)

	last, err := svc.ListActivity(ctx, &atelierv1.ListActivityRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, last.Entries, 1)
	assert.Equal(t, "three", last.Entries[0].Message)

	_, err = svc.RemoveActivity(ctx, &atelierv1.RemoveActivityRequest{ID: all.Entries[0].ID})
	require.NoError(t, err)
	_, err = svc.RemoveActivity(ctx, &atelierv1.RemoveActivityRequest{ID: all.Entries[0].ID})
	assertCode(t, err, codes.NotFound)

	_, err = svc.ClearActivity(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	assert.Zero(t, ws.Activity.Len())
}

func TestServiceImportLocalAndMirror(t *testing.T) {
	svc, ws := newService(t)
	ctx := context.Background()

	host := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(host, "cmd"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(host, "go.mod"), []byte("module x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(host, "cmd", "main.go"), []byte("package main\n"), 0o644))

	resp, err := svc.Import(ctx, &atelierv1.ImportRequest{
		Kind:     atelierv1.SourceLocal,
		Location: host,
		Dest:     "proj",
		Watch:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Result.Files)
	assert.Equal(t, "/root/proj", resp.Result.Dest)

	n, ok := ws.Tree.GetNodeByPath("/root/proj/cmd/main.go")
	require.True(t, ok)
	assert.Equal(t, "package main\n", n.Content)

	st, err := svc.Status(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/root/proj"}, st.Mirrors)

	require.NoError(t, os.WriteFile(filepath.Join(host, "README.md"), []byte("# x\n"), 0o644))
	require.Eventually(t, func() bool {
		_, ok := ws.Tree.GetNodeByPath("/root/proj/README.md")
		return ok
	}, 2*time.Second, 20*time.Millisecond)

	_, err = svc.Reset(ctx, &atelierv1.ResetRequest{})
	require.NoError(t, err)
	st, err = svc.Status(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	assert.Empty(t, st.Mirrors)
	assert.Equal(t, 0, st.Stats.Files)
}

func TestServiceStatusAndShutdown(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	st, err := svc.Status(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, os.Getpid(), st.PID)
	assert.Equal(t, "/root", st.Root)
	assert.False(t, st.Session)

	called := make(chan struct{})
	svc.OnShutdown(func() { close(called) })
	_, err = svc.Shutdown(ctx, &atelierv1.Empty{})
	require.NoError(t, err)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("shutdown callback not called")
	}
}
