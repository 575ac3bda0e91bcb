package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rotated(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.Name() != "app.log" && strings.HasPrefix(e.Name(), "app.") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestRotatingWriterCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "app.log")
	w, err := NewRotatingWriter(path, RotationConfig{})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, DefaultRotationConfig().MaxSize, w.cfg.MaxSize)
}

func TestRotatingWriterRollsOnSize(t *testing.T) {
	dir := t.TempDir()
	w, err := NewRotatingWriter(filepath.Join(dir, "app.log"), RotationConfig{MaxSize: 16})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("0123456789\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("0123456789\n"))
	require.NoError(t, err)

	assert.Len(t, rotated(t, dir), 1)
	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Equal(t, "0123456789\n", string(data))
}

func TestRotatingWriterRollsDaily(t *testing.T) {
	dir := t.TempDir()
	w, err := NewRotatingWriter(filepath.Join(dir, "app.log"), RotationConfig{Daily: true})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("today\n"))
	require.NoError(t, err)

	w.nowFunc = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = w.Write([]byte("later\n"))
	require.NoError(t, err)

	assert.Len(t, rotated(t, dir), 1)
}

func TestRotatingWriterPrunesBackups(t *testing.T) {
	dir := t.TempDir()
	for i, stamp := range []string{"2020-01-01-000000", "2020-01-02-000000", "2020-01-03-000000"} {
		p := filepath.Join(dir, "app."+stamp+".log")
		require.NoError(t, os.WriteFile(p, []byte("old"), 0o644))
		mod := time.Now().Add(-time.Duration(3-i) * time.Hour)
		require.NoError(t, os.Chtimes(p, mod, mod))
	}

	w, err := NewRotatingWriter(filepath.Join(dir, "app.log"), RotationConfig{MaxBackups: 1})
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, []string{"app.2020-01-03-000000.log"}, rotated(t, dir))
}

func TestRotatingWriterWriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "app.log"), RotationConfig{})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestRotatingWriterConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := NewRotatingWriter(path, RotationConfig{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = w.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 400, strings.Count(string(data), "line\n"))
}
