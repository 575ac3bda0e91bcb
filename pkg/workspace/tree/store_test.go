package tree_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/atelier/pkg/workspace/activity"
	"github.com/jamesainslie/atelier/pkg/workspace/events"
	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

func mustCreate(t *testing.T, s *tree.Store, parent, name string, kind tree.Kind) string {
	t.Helper()
	id, ok := s.CreateNode(parent, name, kind)
	require.True(t, ok, "create %s/%s", parent, name)
	return id
}

func pathOf(t *testing.T, s *tree.Store, id string) string {
	t.Helper()
	n, ok := s.GetNodeByID(id)
	require.True(t, ok, "node %s", id)
	return n.Path
}

func TestNewStoreHasOpenRoot(t *testing.T) {
	s := tree.New("")
	root := s.Root()
	assert.Equal(t, tree.RootID, root.ID)
	assert.Equal(t, "root", root.Name)
	assert.Equal(t, "/root", root.Path)
	assert.True(t, root.IsOpen)
	assert.Equal(t, 1, s.Len())
	assert.NoError(t, s.Verify())
}

func TestCreateNode(t *testing.T) {
	s := tree.New("root")

	docs := mustCreate(t, s, "/root", "docs", tree.KindFolder)
	readme := mustCreate(t, s, "/root/docs", "readme.md", tree.KindFile)

	n, ok := s.GetNodeByID(readme)
	require.True(t, ok)
	assert.Equal(t, "/root/docs/readme.md", n.Path)
	assert.Equal(t, "markdown", n.Language)
	assert.Equal(t, "", n.Content)
	assert.False(t, n.IsModified)
	assert.Equal(t, docs, n.ParentID)
	assert.Equal(t, readme, s.Selected(), "new files become selected")

	folder, _ := s.GetNodeByID(docs)
	assert.Equal(t, []string{readme}, folder.Children)
}

func TestCreateNodePreservesOrder(t *testing.T) {
	s := tree.New("root")
	var want []string
	for _, name := range []string{"zeta", "alpha", "mid"} {
		want = append(want, mustCreate(t, s, "/root", name, tree.KindFolder))
	}
	assert.Equal(t, want, s.Root().Children)
}

func TestCreateNodeRejections(t *testing.T) {
	log := activity.New(0)
	s := tree.New("root", tree.WithActivity(log))
	mustCreate(t, s, "/root", "a.txt", tree.KindFile)

	tests := []struct {
		name       string
		parent     string
		child      string
		wantLogged bool
	}{
		{"missing parent is silent", "/root/nope", "x", false},
		{"file parent is silent", "/root/a.txt", "x", false},
		{"empty name", "/root", "", true},
		{"slash in name", "/root", "a/b", true},
		{"duplicate sibling", "/root", "a.txt", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Len()
			logged := log.Len()
			id, ok := s.CreateNode(tt.parent, tt.child, tree.KindFile)
			assert.False(t, ok)
			assert.Empty(t, id)
			assert.Equal(t, before, s.Len())
			assert.Equal(t, tt.wantLogged, log.Len() > logged)
		})
	}
}

func TestRenameRewritesDescendants(t *testing.T) {
	s := tree.New("root")
	src := mustCreate(t, s, "/root", "src", tree.KindFolder)
	pkg := mustCreate(t, s, "/root/src", "pkg", tree.KindFolder)
	main := mustCreate(t, s, "/root/src/pkg", "main.go", tree.KindFile)

	require.NoError(t, s.RenameNode(src, "source"))

	assert.Equal(t, "/root/source", pathOf(t, s, src))
	assert.Equal(t, "/root/source/pkg", pathOf(t, s, pkg))
	assert.Equal(t, "/root/source/pkg/main.go", pathOf(t, s, main))
	assert.NoError(t, s.Verify())
}

func TestRenameRespectsPrefixBoundary(t *testing.T) {
	s := tree.New("root")
	src := mustCreate(t, s, "/root", "src", tree.KindFolder)
	backup := mustCreate(t, s, "/root", "src-backup", tree.KindFolder)
	inner := mustCreate(t, s, "/root/src-backup", "old.go", tree.KindFile)
	mustCreate(t, s, "/root/src", "new.go", tree.KindFile)

	require.NoError(t, s.RenameNode(src, "source"))

	assert.Equal(t, "/root/src-backup", pathOf(t, s, backup))
	assert.Equal(t, "/root/src-backup/old.go", pathOf(t, s, inner))
	_, ok := s.GetNodeByPath("/root/source/new.go")
	assert.True(t, ok)
	assert.NoError(t, s.Verify())
}

func TestRenameUpdatesLanguage(t *testing.T) {
	s := tree.New("root")
	id := mustCreate(t, s, "/root", "script.js", tree.KindFile)
	require.NoError(t, s.RenameNode(id, "script.ts"))

	n, _ := s.GetNodeByID(id)
	assert.Equal(t, "typescript", n.Language)
	assert.Equal(t, "script.ts", n.Name)
}

func TestRenameRejections(t *testing.T) {
	s := tree.New("root")
	a := mustCreate(t, s, "/root", "a", tree.KindFolder)
	mustCreate(t, s, "/root", "b", tree.KindFolder)

	assert.ErrorIs(t, s.RenameNode(a, ""), tree.ErrInvalidOperation)
	assert.ErrorIs(t, s.RenameNode(a, "x/y"), tree.ErrInvalidOperation)
	assert.ErrorIs(t, s.RenameNode(a, "b"), tree.ErrInvalidOperation)
	assert.Equal(t, "/root/a", pathOf(t, s, a))

	assert.NoError(t, s.RenameNode("missing", "z"), "unknown ids are a no-op")
	assert.NoError(t, s.RenameNode(a, "a"))
}

func TestRenameRoot(t *testing.T) {
	s := tree.New("root")
	f := mustCreate(t, s, "/root", "a.txt", tree.KindFile)
	require.NoError(t, s.RenameNode(tree.RootID, "project"))
	assert.Equal(t, "/project/a.txt", pathOf(t, s, f))
	assert.NoError(t, s.Verify())
}

func TestDeleteNode(t *testing.T) {
	s := tree.New("root")
	docs := mustCreate(t, s, "/root", "docs", tree.KindFolder)
	readme := mustCreate(t, s, "/root/docs", "readme.md", tree.KindFile)
	require.Equal(t, readme, s.Selected())

	require.NoError(t, s.DeleteNode(docs))

	_, ok := s.GetNodeByID(readme)
	assert.False(t, ok)
	assert.Empty(t, s.Selected(), "selection inside the subtree is cleared")
	assert.Empty(t, s.Root().Children)
	assert.Equal(t, 1, s.Len())
	assert.NoError(t, s.DeleteNode(docs), "second delete is a no-op")
}

func TestDeleteRootRejected(t *testing.T) {
	log := activity.New(0)
	s := tree.New("root", tree.WithActivity(log))
	mustCreate(t, s, "/root", "a.txt", tree.KindFile)

	err := s.DeleteNode(tree.RootID)
	assert.ErrorIs(t, err, tree.ErrInvalidOperation)
	assert.Equal(t, 2, s.Len())
	require.Equal(t, 1, log.Len())
	assert.Equal(t, activity.Warning, log.Entries()[0].Severity)

	b := mustCreate(t, s, "/root", "b.txt", tree.KindFile)
	assert.NotEqual(t, tree.RootID, b)
	assert.NoError(t, s.Verify())
}

func TestUpdateContent(t *testing.T) {
	s := tree.New("root")
	f := mustCreate(t, s, "/root", "a.txt", tree.KindFile)
	dir := mustCreate(t, s, "/root", "dir", tree.KindFolder)

	s.UpdateContent(f, "hello")
	n, _ := s.GetNodeByID(f)
	assert.Equal(t, "hello", n.Content)
	assert.True(t, n.IsModified)

	s.UpdateContent(f, "hello")
	n, _ = s.GetNodeByID(f)
	assert.False(t, n.IsModified, "same content is not a modification")

	s.UpdateContent(dir, "ignored")
	d, _ := s.GetNodeByID(dir)
	assert.Empty(t, d.Content)

	s.UpdateContent("missing", "x")
}

func TestToggleFolder(t *testing.T) {
	s := tree.New("root")
	dir := mustCreate(t, s, "/root", "dir", tree.KindFolder)
	f := mustCreate(t, s, "/root", "f.txt", tree.KindFile)

	s.ToggleFolder(dir)
	n, _ := s.GetNodeByID(dir)
	assert.True(t, n.IsOpen)
	s.ToggleFolder(dir)
	n, _ = s.GetNodeByID(dir)
	assert.False(t, n.IsOpen)

	s.ToggleFolder(f)
	file, _ := s.GetNodeByID(f)
	assert.False(t, file.IsOpen)
}

func TestMoveNode(t *testing.T) {
	s := tree.New("root")
	src := mustCreate(t, s, "/root", "src", tree.KindFolder)
	lib := mustCreate(t, s, "/root/src", "lib", tree.KindFolder)
	util := mustCreate(t, s, "/root/src/lib", "util.go", tree.KindFile)
	dst := mustCreate(t, s, "/root", "vendor", tree.KindFolder)
	mustCreate(t, s, "/root/vendor", "first", tree.KindFolder)

	require.NoError(t, s.MoveNode(lib, dst))

	assert.Equal(t, "/root/vendor/lib", pathOf(t, s, lib))
	assert.Equal(t, "/root/vendor/lib/util.go", pathOf(t, s, util))
	srcNode, _ := s.GetNodeByID(src)
	assert.Empty(t, srcNode.Children)
	dstNode, _ := s.GetNodeByID(dst)
	assert.Equal(t, lib, dstNode.Children[len(dstNode.Children)-1], "appended at the end")
	assert.NoError(t, s.Verify())
}

func TestMoveNodeRejections(t *testing.T) {
	s := tree.New("root")
	a := mustCreate(t, s, "/root", "a", tree.KindFolder)
	b := mustCreate(t, s, "/root/a", "b", tree.KindFolder)
	f := mustCreate(t, s, "/root", "f.txt", tree.KindFile)
	mustCreate(t, s, "/root/a/b", "f.txt", tree.KindFile)

	tests := []struct {
		name   string
		id     string
		parent string
	}{
		{"into itself", a, a},
		{"into own descendant", a, b},
		{"into a file", b, f},
		{"into missing folder", b, "missing"},
		{"root", tree.RootID, a},
		{"name collision", f, b},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.MoveNode(tt.id, tt.parent)
			assert.ErrorIs(t, err, tree.ErrInvalidOperation)
			assert.Equal(t, "/root/a/b", pathOf(t, s, b))
			assert.NoError(t, s.Verify())
		})
	}

	assert.NoError(t, s.MoveNode("missing", a))
	assert.NoError(t, s.MoveNode(b, a), "same parent is a no-op")
}

func TestResetAndReplaceTree(t *testing.T) {
	log := activity.New(0)
	s := tree.New("root", tree.WithActivity(log))
	mustCreate(t, s, "/root", "a.txt", tree.KindFile)

	s.ReplaceTree("project")
	root := s.Root()
	assert.Equal(t, "/project", root.Path)
	assert.Empty(t, root.Children)
	assert.Empty(t, s.Selected())
	assert.Equal(t, 1, log.Len())

	mustCreate(t, s, "/project", "b.txt", tree.KindFile)
	s.ResetTree()
	assert.Equal(t, "/project", s.Root().Path)
	assert.Equal(t, 1, s.Len())
}

func TestDocsScenario(t *testing.T) {
	s := tree.New("root")
	docs := mustCreate(t, s, "/root", "docs", tree.KindFolder)
	readme := mustCreate(t, s, "/root/docs", "readme.md", tree.KindFile)

	n, _ := s.GetNodeByID(readme)
	assert.Equal(t, "/root/docs/readme.md", n.Path)
	assert.Equal(t, "markdown", n.Language)

	hits := s.SearchNodes("root")
	require.NotEmpty(t, hits)
	assert.Equal(t, tree.RootID, hits[0].ID)

	require.NoError(t, s.RenameNode(docs, "documentation"))
	assert.Equal(t, "/root/documentation/readme.md", pathOf(t, s, readme))

	require.NoError(t, s.DeleteNode(docs))
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.Root().Children)
}

func TestEventsPublished(t *testing.T) {
	bus := events.New()
	defer bus.Close()
	sub := bus.Subscribe("")
	s := tree.New("root", tree.WithBroadcaster(bus))

	dir := mustCreate(t, s, "/root", "docs", tree.KindFolder)
	require.NoError(t, s.RenameNode(dir, "documentation"))

	var got []events.Event
	for len(got) < 2 {
		select {
		case e := <-sub.Events:
			got = append(got, e)
		case <-time.After(time.Second):
			t.Fatalf("only %d events", len(got))
		}
	}
	assert.Equal(t, events.NodeCreated, got[0].Type)
	assert.Equal(t, events.NodeRenamed, got[1].Type)
	assert.Equal(t, "/root/docs", got[1].OldPath)
	assert.Equal(t, "/root/documentation", got[1].Path)
}

// TestPathConsistencyUnderRandomOperations applies random creates, renames
// and moves and checks the path invariant after every step.
func TestPathConsistencyUnderRandomOperations(t *testing.T) {
	s := tree.New("root")
	rng := rand.New(rand.NewSource(42))
	folders := []string{tree.RootID}
	var all []string

	for i := 0; i < 400; i++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(all) == 0:
			parent := folders[rng.Intn(len(folders))]
			pn, _ := s.GetNodeByID(parent)
			kind := tree.Kind(rng.Intn(2))
			if id, ok := s.CreateNode(pn.Path, fmt.Sprintf("n%d", i), kind); ok {
				all = append(all, id)
				if kind == tree.KindFolder {
					folders = append(folders, id)
				}
			}
		case op == 1:
			_ = s.RenameNode(all[rng.Intn(len(all))], fmt.Sprintf("r%d", i))
		default:
			_ = s.MoveNode(all[rng.Intn(len(all))], folders[rng.Intn(len(folders))])
		}
		require.NoError(t, s.Verify(), "step %d", i)
	}
}
