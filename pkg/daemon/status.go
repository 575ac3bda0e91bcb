package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Startup states written to the status file.
const (
	StatusReady = "ready"
	StatusError = "error"
)

// StatusFile is written once by atelierd after startup so the launching
// CLI can tell success from failure without parsing logs.
type StatusFile struct {
	Status string `json:"status"`
	PID    int    `json:"pid,omitempty"`    // ready only
	Socket string `json:"socket,omitempty"` // ready only
	Error  string `json:"error,omitempty"`  // error only
}

// Ready reports whether the daemon came up.
func (s *StatusFile) Ready() bool {
	return s.Status == StatusReady
}

// WriteStatusReady records a successful start listening on socket.
func WriteStatusReady(path, socket string) error {
	status := StatusFile{
		Status: StatusReady,
		PID:    os.Getpid(),
		Socket: socket,
	}
	return writeStatus(path, &status)
}

// WriteStatusError writes an error status file.
func WriteStatusError(path string, err error) error {
	status := StatusFile{
		Status: StatusError,
		Error:  err.Error(),
	}
	return writeStatus(path, &status)
}

func writeStatus(path string, status *StatusFile) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadStatus reads a status file.
func ReadStatus(path string) (*StatusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var status StatusFile
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RemoveStatus removes the status file. A missing file is not an error.
func RemoveStatus(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// StatusPath returns the status file path for a data directory.
func StatusPath(dataDir string) string {
	return filepath.Join(dataDir, "atelierd.status")
}
