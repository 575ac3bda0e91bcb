package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/jamesainslie/atelier/pkg/client"
	"github.com/jamesainslie/atelier/pkg/daemon"
	"github.com/jamesainslie/atelier/pkg/workspace/session"
)

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf, "not running")
	out := buf.String()

	for _, want := range []string{
		"atelier " + version + "\n",
		fmt.Sprintf("  session: schema v%d\n", session.CurrentSchemaVersion),
		"  daemon:  not running\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printVersion(&buf, "")
	if strings.Contains(buf.String(), "daemon:") {
		t.Errorf("daemon line printed without a state:\n%s", buf.String())
	}
}

func TestDaemonState(t *testing.T) {
	dir := t.TempDir()
	paths := client.DaemonPaths{
		Socket: filepath.Join(dir, "atelierd.sock"),
		PID:    filepath.Join(dir, "atelierd.pid"),
	}

	if got := daemonState(paths); got != "not running" {
		t.Errorf("without PID file: got %q", got)
	}

	if err := os.WriteFile(paths.PID, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := daemonState(paths); got != "running" {
		t.Errorf("without status file: got %q", got)
	}

	if err := daemon.WriteStatusReady(paths.StatusPath(), paths.Socket); err != nil {
		t.Fatal(err)
	}
	want := fmt.Sprintf("running (pid %d, %s)", os.Getpid(), paths.Socket)
	if got := daemonState(paths); got != want {
		t.Errorf("ready: got %q, want %q", got, want)
	}
}
