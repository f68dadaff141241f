package chunker

import (
	"reflect"
	"testing"
)

func TestChunk(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"paragraphs", "milk\n\neggs", []string{"milk", "eggs"}},
		{"single", "  just one line  ", []string{"just one line"}},
		{"soft wrap stays together", "line one\nline two", []string{"line one\nline two"}},
		{"blank", " \n\t\n  ", []string{}},
		{"empty", "", []string{}},
		{"extra blank lines", "a\n\n\n\nb", []string{"a", "b"}},
		{"whitespace separator line", "a\n   \nb", []string{"a", "b"}},
		{"crlf", "a\r\n\r\nb", []string{"a", "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Chunk(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Chunk(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestComposeTitleIsOwnChunk(t *testing.T) {
	got := Chunk(Compose("Groceries", "milk\n\neggs"))
	want := []string{"Groceries", "milk", "eggs"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("chunks = %q, want %q", got, want)
	}
}

func TestChunkDeterministic(t *testing.T) {
	in := "alpha\n\nbeta\n\ngamma"
	first := Chunk(in)
	for i := 0; i < 5; i++ {
		if got := Chunk(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d = %q, want %q", i, got, first)
		}
	}
}
