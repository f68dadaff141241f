package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempInbox(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func writeFile(t *testing.T, fs *FS, rel, content string) {
	t.Helper()
	abs := filepath.Join(fs.Root(), rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRead(t *testing.T) {
	s := tempInbox(t)
	writeFile(t, s, "note.md", "# Hello\nWorld\n")
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "# Hello\nWorld\n" {
		t.Errorf("content = %q", got)
	}
	if !s.Exists("note.md") || s.Exists("other.md") {
		t.Error("Exists disagrees with disk")
	}
}

func TestMove(t *testing.T) {
	s := tempInbox(t)
	writeFile(t, s, "old.md", "data")
	if err := s.Move("old.md", "processed/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("processed/new.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q, want %q", got, "data")
	}
	if s.Exists("old.md") {
		t.Error("old path should not exist")
	}
}

func TestListIsShallowAndMarkdownOnly(t *testing.T) {
	s := tempInbox(t)
	writeFile(t, s, "b.md", "b")
	writeFile(t, s, "a.MD", "a")
	writeFile(t, s, "processed/c.md", "c")
	writeFile(t, s, "readme.txt", "not md")
	writeFile(t, s, ".partial.md", "hidden")

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "a.MD" || items[1].Path != "b.md" {
		t.Errorf("paths = %s, %s", items[0].Path, items[1].Path)
	}
	if items[1].Size != 1 {
		t.Errorf("meta = %+v", items[1])
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempInbox(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("Read(%q): expected error", p)
		}
		if err := s.Move(p, "x.md"); err == nil {
			t.Errorf("Move(%q): expected error", p)
		}
		if _, err := s.List(p); err == nil {
			t.Errorf("List(%q): expected error", p)
		}
		if s.Exists(p) {
			t.Errorf("Exists(%q) = true outside root", p)
		}
	}
}

func TestIsMarkdown(t *testing.T) {
	tests := map[string]bool{
		"a.md":             true,
		"dir/B.Md":         true,
		".recall-tmp-1.md": false,
		"notes.txt":        false,
		"md":               false,
	}
	for name, want := range tests {
		if got := IsMarkdown(name); got != want {
			t.Errorf("IsMarkdown(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	_ = os.WriteFile(f, nil, 0o644)
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
}
