package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrDaemonAlreadyRunning is returned when a live atelierd owns the PID file.
var ErrDaemonAlreadyRunning = errors.New("daemon already running")

// Artifacts are the files an atelierd process owns while it serves a
// workspace.
type Artifacts struct {
	PID    string
	Socket string
	Status string
	// SessionDir is the Badger directory; empty when sessions are off.
	SessionDir string
}

// NewArtifacts places the status file beside the socket.
func NewArtifacts(pidPath, socket, sessionDir string) Artifacts {
	return Artifacts{
		PID:        pidPath,
		Socket:     socket,
		Status:     StatusPath(filepath.Dir(socket)),
		SessionDir: sessionDir,
	}
}

// Claim records the current process in the PID file. The file is replaced
// by rename so clients polling it never read a partial PID.
func (a Artifacts) Claim() error {
	if pid, err := ReadPIDFile(a.PID); err == nil && pid != os.Getpid() && IsProcessRunning(pid) {
		return fmt.Errorf("%w (pid %d)", ErrDaemonAlreadyRunning, pid)
	}
	tmp := a.PID + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, a.PID); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Release removes the PID and status files. Files that a newer daemon has
// claimed since are left alone.
func (a Artifacts) Release() error {
	if pid, err := ReadPIDFile(a.PID); err == nil && pid != os.Getpid() {
		return nil
	}
	var errs []error
	if err := os.Remove(a.PID); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if err := RemoveStatus(a.Status); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ReadPIDFile reads a PID from a file.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}
	if pid <= 0 {
		return 0, fmt.Errorf("%s: invalid pid %d", path, pid)
	}
	return pid, nil
}

// IsDaemonRunning reports whether the process in the PID file is alive.
// A missing or unreadable PID file means not running.
func IsDaemonRunning(pidPath string) bool {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		return false
	}
	return IsProcessRunning(pid)
}
