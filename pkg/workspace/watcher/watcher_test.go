package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/atelier/pkg/workspace/tree"
)

func setup(t *testing.T) (*Watcher, *tree.Store, string) {
	t.Helper()
	host := t.TempDir()
	s := tree.New("root")
	w, err := New(s, host, "/root/mirror")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w, s, host
}

func TestStartWatchesSubdirectories(t *testing.T) {
	w, _, host := setup(t)
	if err := os.MkdirAll(filepath.Join(host, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(host, ".git", "objects"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := w.Watched(); got != 3 {
		t.Errorf("Watched() = %d, want 3 (root, a, a/b)", got)
	}
}

func TestStartMissingRoot(t *testing.T) {
	s := tree.New("root")
	w, err := New(s, filepath.Join(t.TempDir(), "missing"), "/root")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()
	if err := w.Start(); err == nil {
		t.Error("Start() should fail for a missing directory")
	}
}

func TestTreePath(t *testing.T) {
	w, _, host := setup(t)
	tests := []struct {
		host string
		want string
		ok   bool
	}{
		{filepath.Join(host, "x.go"), "/root/mirror/x.go", true},
		{filepath.Join(host, "a", "b.txt"), "/root/mirror/a/b.txt", true},
		{host, "", false},
		{filepath.Dir(host), "", false},
		{filepath.Join(host, ".git", "HEAD"), "", false},
	}
	for _, tt := range tests {
		got, ok := w.treePath(tt.host)
		if got != tt.want || ok != tt.ok {
			t.Errorf("treePath(%q) = %q, %v; want %q, %v", tt.host, got, ok, tt.want, tt.ok)
		}
	}
}

func TestHandleEvents(t *testing.T) {
	w, s, host := setup(t)

	file := filepath.Join(host, "main.go")
	if err := os.WriteFile(file, []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := w.handleEvent(fsnotify.Event{Name: file, Op: fsnotify.Create}); !ok {
		t.Fatal("create not applied")
	}
	if got, _ := s.ReadFile("/root/mirror/main.go"); got != "package main" {
		t.Errorf("content = %q", got)
	}

	if err := os.WriteFile(file, []byte("package main // v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.handleEvent(fsnotify.Event{Name: file, Op: fsnotify.Write})
	if got, _ := s.ReadFile("/root/mirror/main.go"); got != "package main // v2" {
		t.Errorf("content after write = %q", got)
	}

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}
	w.handleEvent(fsnotify.Event{Name: file, Op: fsnotify.Remove})
	if _, ok := s.GetNodeByPath("/root/mirror/main.go"); ok {
		t.Error("file still in tree after remove")
	}
	if err := s.Verify(); err != nil {
		t.Error(err)
	}
}

func TestHandleCreateDirectoryWithContents(t *testing.T) {
	w, s, host := setup(t)

	dir := filepath.Join(host, "pkg", "util")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "util.go"), []byte("package util"), 0o644); err != nil {
		t.Fatal(err)
	}

	w.handleEvent(fsnotify.Event{Name: filepath.Join(host, "pkg"), Op: fsnotify.Create})

	if _, ok := s.GetNodeByPath("/root/mirror/pkg/util/util.go"); !ok {
		t.Error("nested file not mirrored")
	}
	w.mu.RLock()
	watched := w.paths[dir]
	w.mu.RUnlock()
	if !watched {
		t.Error("nested directory not watched")
	}

	w.handleEvent(fsnotify.Event{Name: filepath.Join(host, "pkg"), Op: fsnotify.Rename})
	if _, ok := s.GetNodeByPath("/root/mirror/pkg"); ok {
		t.Error("renamed-away folder still in tree")
	}
	if w.Watched() != 0 {
		t.Errorf("Watched() = %d after removing pkg, want 0", w.Watched())
	}
}

func TestLargeFilesIgnored(t *testing.T) {
	w, s, host := setup(t)
	w.SetMaxFileSize(4)

	file := filepath.Join(host, "big.txt")
	if err := os.WriteFile(file, []byte(strings.Repeat("x", 5)), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := w.handleEvent(fsnotify.Event{Name: file, Op: fsnotify.Create}); ok {
		t.Error("large file should not be applied")
	}
	if _, ok := s.GetNodeByPath("/root/mirror/big.txt"); ok {
		t.Error("large file mirrored")
	}
}

func TestRunMirrorsLiveChanges(t *testing.T) {
	w, s, host := setup(t)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed []string
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx, func(p string, _ fsnotify.Op) {
			mu.Lock()
			changed = append(changed, p)
			mu.Unlock()
		})
	}()

	if err := os.WriteFile(filepath.Join(host, "live.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got, err := s.ReadFile("/root/mirror/live.txt"); err == nil && got == "hello" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	if got, _ := s.ReadFile("/root/mirror/live.txt"); got != "hello" {
		t.Fatalf("live.txt = %q, want hello", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(changed) == 0 {
		t.Error("onChange never called")
	}
}

func TestCloseIdempotent(t *testing.T) {
	w, _, _ := setup(t)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := w.addWatch(t.TempDir()); err != nil {
		t.Errorf("addWatch after Close() = %v, want nil", err)
	}
}
