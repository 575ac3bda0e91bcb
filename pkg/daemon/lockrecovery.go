package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/jamesainslie/atelier/pkg/atelier/logging"
)

// RecoverStale clears what a crashed atelierd left behind: its PID file,
// socket, status file and the Badger LOCK in the session directory. It
// returns the paths it removed. A missing or unreadable PID file means
// there is nothing to recover.
func (a Artifacts) RecoverStale() ([]string, error) {
	pid, err := ReadPIDFile(a.PID)
	if err != nil {
		return nil, nil //nolint:nilerr // no previous daemon
	}
	if IsProcessRunning(pid) {
		return nil, fmt.Errorf("%w (pid %d)", ErrDaemonAlreadyRunning, pid)
	}

	stale := []string{a.PID, a.Socket, a.Status}
	if a.SessionDir != "" {
		stale = append(stale, filepath.Join(a.SessionDir, "LOCK"))
	}
	var removed []string
	for _, p := range stale {
		if p != "" && os.Remove(p) == nil {
			removed = append(removed, p)
		}
	}
	logging.Get("daemon").Warn("cleaned up stale daemon files", "stale_pid", pid, "removed", removed)
	return removed, nil
}

// IsProcessRunning checks if a process with the given PID is running.
func IsProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
