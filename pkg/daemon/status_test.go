package daemon_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/atelier/pkg/daemon"
)

func TestStatusFileFields(t *testing.T) {
	tests := []struct {
		name    string
		write   func(path string) error
		present []string
		absent  []string
	}{
		{
			name:    "ready carries pid and socket",
			write:   func(p string) error { return daemon.WriteStatusReady(p, "/run/atelier/atelierd.sock") },
			present: []string{"status", "pid", "socket"},
			absent:  []string{"error"},
		},
		{
			name:    "error carries the message only",
			write:   func(p string) error { return daemon.WriteStatusError(p, errors.New("restore session: schema too new")) },
			present: []string{"status", "error"},
			absent:  []string{"pid", "socket"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := daemon.StatusPath(t.TempDir())
			require.NoError(t, tt.write(path))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			var raw map[string]any
			require.NoError(t, json.Unmarshal(data, &raw))

			for _, k := range tt.present {
				assert.Contains(t, raw, k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, raw, k)
			}
		})
	}
}

func TestReadStatus(t *testing.T) {
	dir := t.TempDir()
	path := daemon.StatusPath(dir)

	require.NoError(t, daemon.WriteStatusReady(path, "/run/atelier/atelierd.sock"))
	st, err := daemon.ReadStatus(path)
	require.NoError(t, err)
	assert.True(t, st.Ready())
	assert.Equal(t, os.Getpid(), st.PID)
	assert.Equal(t, "/run/atelier/atelierd.sock", st.Socket)

	// A failed restart overwrites the earlier ready state.
	require.NoError(t, daemon.WriteStatusError(path, errors.New("socket in use")))
	st, err = daemon.ReadStatus(path)
	require.NoError(t, err)
	assert.False(t, st.Ready())
	assert.Equal(t, "socket in use", st.Error)
	assert.Zero(t, st.PID)
	assert.Empty(t, st.Socket)

	_, err = daemon.ReadStatus(filepath.Join(dir, "missing.status"))
	assert.True(t, os.IsNotExist(err))

	garbage := filepath.Join(dir, "garbage.status")
	require.NoError(t, os.WriteFile(garbage, []byte("{ready"), 0o644))
	_, err = daemon.ReadStatus(garbage)
	assert.Error(t, err)
}

func TestRemoveStatus(t *testing.T) {
	path := daemon.StatusPath(t.TempDir())
	require.NoError(t, daemon.WriteStatusReady(path, "/run/atelier/atelierd.sock"))

	require.NoError(t, daemon.RemoveStatus(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Removing twice is harmless.
	assert.NoError(t, daemon.RemoveStatus(path))
}

func TestStatusPath(t *testing.T) {
	assert.Equal(t, "/home/ada/.local/share/atelier/atelierd.status",
		daemon.StatusPath("/home/ada/.local/share/atelier"))
}
