package shell

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"ls -l", []string{"ls", "-l"}},
		{"  cat   a  b ", []string{"cat", "a", "b"}},
		{`echo "a b" c`, []string{"echo", "a b", "c"}},
		{`echo 'it"s'`, []string{"echo", `it"s`}},
		{`echo "say \"hi\""`, []string{"echo", `say "hi"`}},
		{`touch my\ file.txt`, []string{"touch", "my file.txt"}},
		{"echo hi>out.txt", []string{"echo", "hi", ">", "out.txt"}},
		{`echo ""`, []string{"echo", ""}},
		{"", nil},
	}
	for _, tt := range tests {
		got, err := Split(tt.in)
		if err != nil {
			t.Errorf("Split(%q) error = %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Split(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitErrors(t *testing.T) {
	for _, in := range []string{`echo "open`, `echo 'open`, `echo trailing\`} {
		if _, err := Split(in); err != ErrUnterminatedQuote {
			t.Errorf("Split(%q) error = %v, want ErrUnterminatedQuote", in, err)
		}
	}
}

func TestDiff(t *testing.T) {
	if got := Diff("same", "same"); got != "" {
		t.Errorf("Diff(same) = %q", got)
	}
	got := Diff("a\nb\nc\n", "a\nB\nc\n")
	want := "  a\n- b\n+ B\n  c"
	if got != want {
		t.Errorf("Diff() = %q, want %q", got, want)
	}
}
