package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddKeepsInsertionOrder(t *testing.T) {
	l := New(0)
	l.Infof("one")
	l.Successf("two %d", 2)
	l.Warnf("three")
	l.Errorf("four: %s", "boom")

	entries := l.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, []Severity{Info, Success, Warning, Error},
		[]Severity{entries[0].Severity, entries[1].Severity, entries[2].Severity, entries[3].Severity})
	assert.Equal(t, "two 2", entries[1].Message)
	assert.Equal(t, "four: boom", entries[3].Message)
	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Time.IsZero())
	}
}

func TestCapacityDropsOldest(t *testing.T) {
	l := New(2)
	l.Infof("a")
	l.Infof("b")
	l.Infof("c")

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Message)
	assert.Equal(t, "c", entries[1].Message)
}

func TestRemove(t *testing.T) {
	l := New(0)
	a := l.Infof("a")
	b := l.Infof("b")
	c := l.Infof("c")

	assert.True(t, l.Remove(b.ID))
	assert.False(t, l.Remove(b.ID))
	assert.False(t, l.Remove("missing"))

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, a.ID, entries[0].ID)
	assert.Equal(t, c.ID, entries[1].ID)
}

func TestClear(t *testing.T) {
	l := New(0)
	l.Infof("a")
	l.Clear()
	assert.Equal(t, 0, l.Len())
	l.Infof("b")
	assert.Equal(t, 1, l.Len())
}

func TestEntriesIsACopy(t *testing.T) {
	l := New(0)
	l.Infof("a")
	got := l.Entries()
	got[0].Message = "changed"
	assert.Equal(t, "a", l.Entries()[0].Message)
}

func TestSubscribe(t *testing.T) {
	l := New(0)
	ch := l.Subscribe()

	l.Errorf("import failed")
	select {
	case e := <-ch:
		assert.Equal(t, Error, e.Severity)
		assert.Equal(t, "import failed", e.Message)
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}

	l.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestParseSeverity(t *testing.T) {
	for in, want := range map[string]Severity{"info": Info, "SUCCESS": Success, "warn": Warning, "warning": Warning, "error": Error} {
		got, ok := ParseSeverity(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseSeverity("fatal")
	assert.False(t, ok)
}
