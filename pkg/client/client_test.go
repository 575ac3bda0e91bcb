package client

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/atelier/config"
	"github.com/jamesainslie/atelier/pkg/daemon"
	"github.com/jamesainslie/atelier/pkg/workspace"
)

// startTestServer serves a fresh workspace on a socket under a temp dir.
func startTestServer(t *testing.T) (string, *workspace.Workspace) {
	t.Helper()
	tmpDir := t.TempDir()
	socketPath := filepath.Join(tmpDir, "test.sock")

	ws := workspace.New(workspace.Options{})
	svc := daemon.NewService(ws, daemon.GitHubOptions{})
	srv, err := daemon.NewServer(daemon.Config{SocketPath: socketPath, DataDir: tmpDir}, svc)
	require.NoError(t, err)

	go func() {
		_ = srv.Serve()
	}()
	t.Cleanup(func() {
		_ = srv.Close()
		_ = ws.Close()
	})
	return socketPath, ws
}

func TestDaemonPathsDefaults(t *testing.T) {
	p := DaemonPaths{}.withDefaults()
	assert.Equal(t, config.DefaultSocketPath(), p.Socket)
	assert.Equal(t, config.DefaultPIDPath(), p.PID)

	custom := DaemonPaths{Socket: "/tmp/x/a.sock", PID: "/tmp/x/a.pid"}.withDefaults()
	assert.Equal(t, "/tmp/x/a.sock", custom.Socket)
	assert.Equal(t, "/tmp/x/atelierd.status", custom.StatusPath())
}

func TestConnect(t *testing.T) {
	socketPath, _ := startTestServer(t)

	c, err := Connect(socketPath)
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.Remote())
	st, err := c.Status(context.Background(), &atelierv1.Empty{})
	require.NoError(t, err)
	assert.True(t, st.Running)
}

func TestConnectInvalidSocket(t *testing.T) {
	_, err := Connect(filepath.Join(t.TempDir(), "missing.sock"))
	assert.Error(t, err)
}

func TestConnectNotListening(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "stale.sock")
	require.NoError(t, os.WriteFile(socketPath, nil, 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := ConnectWithContext(ctx, socketPath)
	assert.Error(t, err)
}

func TestClientEvents(t *testing.T) {
	socketPath, ws := startTestServer(t)
	c, err := Connect(socketPath)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := c.Events(ctx, &atelierv1.WatchRequest{Types: []string{"node_created"}})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return ws.Events.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = c.WriteFile(ctx, &atelierv1.WriteFileRequest{Path: "hello.txt", Content: "hi"})
	require.NoError(t, err)

	select {
	case e := <-events:
		require.NotNil(t, e)
		assert.Equal(t, "/root/hello.txt", e.Path)
	case <-ctx.Done():
		t.Fatal("no event received")
	}

	cancel()
	for range events {
	}
}

func TestLocalWorkspace(t *testing.T) {
	l := LocalFrom(workspace.New(workspace.Options{}))
	defer l.Close()
	ctx := context.Background()

	assert.False(t, l.Remote())

	events, err := l.Events(ctx, &atelierv1.WatchRequest{Types: []string{"tab_opened"}})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return l.Workspace().Events.SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	resp, err := l.CreateNode(ctx, &atelierv1.CreateNodeRequest{Name: "main.go"})
	require.NoError(t, err)

	select {
	case e := <-events:
		assert.Equal(t, resp.ID, e.ID)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	_, err = l.Events(ctx, &atelierv1.WatchRequest{Types: []string{"bogus"}})
	assert.Error(t, err)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "Close should be idempotent")
	_, ok := <-events
	assert.False(t, ok, "events should close with the workspace")
}

func TestNewLocalPersistsSession(t *testing.T) {
	cfg := &config.Config{}
	cfg.Import.MaxFileSize = "1MB"
	cfg.Session.Enabled = true
	cfg.Session.Path = filepath.Join(t.TempDir(), "session")
	ctx := context.Background()

	l, err := NewLocal(cfg)
	require.NoError(t, err)
	_, err = l.WriteFile(ctx, &atelierv1.WriteFileRequest{Path: "notes.md", Content: "# notes"})
	require.NoError(t, err)
	_, err = l.OpenTab(ctx, &atelierv1.NodeRequest{Ref: "notes.md"})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	again, err := NewLocal(cfg)
	require.NoError(t, err)
	defer again.Close()

	tabs, err := again.ListTabs(ctx, &atelierv1.Empty{})
	require.NoError(t, err)
	require.Len(t, tabs.Tabs, 1)
	assert.Equal(t, "/root/notes.md", tabs.Tabs[0].Path)
}

func TestOpenFallsBackToLocal(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Import.MaxFileSize = "1MB"

	w, err := Open(context.Background(), cfg, DaemonPaths{
		Socket: filepath.Join(dir, "none.sock"),
		PID:    filepath.Join(dir, "none.pid"),
	}, false)
	require.NoError(t, err)
	defer w.Close()
	assert.False(t, w.Remote())
}

func TestOpenUsesRunningDaemon(t *testing.T) {
	socketPath, _ := startTestServer(t)
	pidPath := filepath.Join(filepath.Dir(socketPath), "test.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644))

	w, err := Open(context.Background(), &config.Config{}, DaemonPaths{Socket: socketPath, PID: pidPath}, false)
	require.NoError(t, err)
	defer w.Close()
	assert.True(t, w.Remote())
}

func TestIsDaemonRunning(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "atelierd.pid")
	paths := DaemonPaths{PID: pidPath}

	assert.False(t, IsDaemonRunning(paths))

	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644))
	assert.True(t, IsDaemonRunning(paths))

	require.NoError(t, os.WriteFile(pidPath, []byte("999999999"), 0o644))
	assert.False(t, IsDaemonRunning(paths))
}

func TestStopDaemonNotRunning(t *testing.T) {
	dir := t.TempDir()
	err := StopDaemon(DaemonPaths{Socket: filepath.Join(dir, "a.sock"), PID: filepath.Join(dir, "a.pid")})
	assert.NoError(t, err)
}

func TestWaitReadyReadsStatusFile(t *testing.T) {
	dir := t.TempDir()
	statusPath := filepath.Join(dir, "atelierd.status")

	require.NoError(t, daemon.WriteStatusError(statusPath, assert.AnError))
	err := waitReady(filepath.Join(dir, "a.sock"), statusPath, 3, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), assert.AnError.Error())

	require.NoError(t, daemon.WriteStatusReady(statusPath, "a.sock"))
	assert.NoError(t, waitReady(filepath.Join(dir, "a.sock"), statusPath, 3, time.Millisecond))

	assert.Error(t, waitReady(filepath.Join(dir, "a.sock"), filepath.Join(dir, "none"), 2, time.Millisecond))
}

func TestResolveBinaryConfigured(t *testing.T) {
	_, err := resolveBinary(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	bin := filepath.Join(t.TempDir(), DaemonBinary)
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	got, err := resolveBinary(bin)
	require.NoError(t, err)
	assert.Equal(t, bin, got)
}
