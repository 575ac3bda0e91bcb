package logging

import (
	"fmt"
	"testing"
)

func fill(b *LogBuffer, n int) {
	for i := 0; i < n; i++ {
		b.Add(Entry{Level: LevelInfo, Component: "test", Message: fmt.Sprintf("m%d", i)})
	}
}

func messages(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func TestLogBufferOverwritesOldest(t *testing.T) {
	b := NewLogBuffer(3)
	fill(b, 5)

	got := messages(b.Entries())
	want := []string{"m2", "m3", "m4"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}
}

func TestLogBufferLast(t *testing.T) {
	b := NewLogBuffer(4)
	fill(b, 6)

	if got := messages(b.Last(2)); fmt.Sprint(got) != "[m4 m5]" {
		t.Errorf("Last(2) = %v", got)
	}
	if got := b.Last(10); len(got) != 4 {
		t.Errorf("Last(10) returned %d entries, want 4", len(got))
	}
}

func TestLogBufferClear(t *testing.T) {
	b := NewLogBuffer(0)
	fill(b, 2)
	b.Clear()
	if b.Len() != 0 || len(b.Entries()) != 0 {
		t.Errorf("buffer not empty after Clear")
	}
	fill(b, 1)
	if got := messages(b.Entries()); fmt.Sprint(got) != "[m0]" {
		t.Errorf("Entries() after Clear = %v", got)
	}
}
