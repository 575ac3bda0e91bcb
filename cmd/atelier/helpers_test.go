package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/workspace"
	"github.com/jamesainslie/atelier/pkg/workspace/activity"
	"github.com/jamesainslie/atelier/pkg/workspace/shell"
)

func TestIsExit(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"exit", true},
		{"  quit ", true},
		{"exit now", false},
		{"", false},
		{"ls", false},
	}
	for _, tt := range tests {
		if got := isExit(tt.line); got != tt.want {
			t.Errorf("isExit(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestHistoryMessage(t *testing.T) {
	tests := []struct {
		name string
		resp *atelierv1.HistoryResponse
		want string
	}{
		{"nothing applied", &atelierv1.HistoryResponse{}, "nothing to undo"},
		{"edit", &atelierv1.HistoryResponse{Applied: true, Action: "content_change", TabID: "t1"}, "undid edit (tab t1)"},
		{"tab close", &atelierv1.HistoryResponse{Applied: true, Action: "tab_close", TabID: "t2"}, "undid tab close (tab t2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := historyMessage("undid", "nothing to undo", tt.resp); got != tt.want {
				t.Errorf("historyMessage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)
	tests := []struct {
		name  string
		event atelierv1.WatchEvent
		want  []string
	}{
		{
			name:  "activity",
			event: atelierv1.WatchEvent{Kind: atelierv1.KindActivity, Severity: activity.Warning, Message: "Name taken", Time: at},
			want:  []string{"14:05:09", "warning", "Name taken"},
		},
		{
			name:  "rename shows both paths",
			event: atelierv1.WatchEvent{Kind: atelierv1.KindEvent, Type: "node_renamed", Path: "/root/b", OldPath: "/root/a", Time: at},
			want:  []string{"node_renamed", "/root/a -> /root/b"},
		},
		{
			name:  "path only",
			event: atelierv1.WatchEvent{Kind: atelierv1.KindEvent, Type: "node_created", Path: "/root/a", Time: at},
			want:  []string{"node_created", "/root/a"},
		},
		{
			name:  "falls back to the id",
			event: atelierv1.WatchEvent{Kind: atelierv1.KindEvent, Type: "tab_closed", ID: "abc", Time: at},
			want:  []string{"tab_closed", "abc"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatEvent(&tt.event)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("formatEvent = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestOptionalArg(t *testing.T) {
	if got := optionalArg(nil); got != "" {
		t.Errorf("optionalArg(nil) = %q", got)
	}
	if got := optionalArg([]string{"/root/src", "x"}); got != "/root/src" {
		t.Errorf("optionalArg = %q", got)
	}
}

func TestDescribe(t *testing.T) {
	err := describe(status.Error(codes.FailedPrecondition, "cannot delete the root folder"))
	if err.Error() != "cannot delete the root folder" {
		t.Errorf("describe = %q", err)
	}

	plain := errors.New("boom")
	if got := describe(plain); got != plain {
		t.Errorf("describe changed a plain error: %v", got)
	}
}

func TestRunScript(t *testing.T) {
	ws := workspace.New(workspace.Options{})
	t.Cleanup(func() { _ = ws.Close() })
	sh := shell.New(ws)

	script := strings.Join([]string{
		"mkdir docs",
		"echo hello > docs/readme.md",
		"cat docs/readme.md",
		"exit",
		"rm -r docs",
	}, "\n")

	var out bytes.Buffer
	if err := runScript(sh, strings.NewReader(script), &out); err != nil {
		t.Fatalf("runScript: %v", err)
	}
	if !strings.Contains(out.String(), "hello") {
		t.Errorf("output = %q", out.String())
	}
	if _, ok := ws.Tree.GetNodeByPath("/root/docs/readme.md"); !ok {
		t.Error("lines after exit should not run")
	}
}

func TestRunScriptStopsOnError(t *testing.T) {
	ws := workspace.New(workspace.Options{})
	t.Cleanup(func() { _ = ws.Close() })
	sh := shell.New(ws)

	var out bytes.Buffer
	err := runScript(sh, strings.NewReader("bogus\nmkdir later\n"), &out)
	if err == nil || !strings.Contains(err.Error(), "command not found") {
		t.Fatalf("err = %v", err)
	}
	if _, ok := ws.Tree.GetNodeByPath("/root/later"); ok {
		t.Error("script kept running after a failure")
	}
}
