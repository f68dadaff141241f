package parser

import (
	"testing"
)

func TestParse_FrontmatterTitle(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n---\n# Heading\nBody text.\n")
	d := Parse(input, "fallback")
	if d.Title != "Hello" {
		t.Errorf("title = %q, want %q", d.Title, "Hello")
	}
	if d.Body != "# Heading\nBody text." {
		t.Errorf("body = %q", d.Body)
	}
	if d.Frontmatter["tags"] == nil {
		t.Errorf("frontmatter = %v, want tags kept", d.Frontmatter)
	}
}

func TestParse_HeadingTitleIsRemovedFromBody(t *testing.T) {
	input := []byte("# Just a heading\n\nSome text.\n\nMore.\n")
	d := Parse(input, "fallback")
	if d.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", d.Frontmatter)
	}
	if d.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", d.Title, "Just a heading")
	}
	if d.Body != "Some text.\n\nMore." {
		t.Errorf("body = %q", d.Body)
	}
}

func TestParse_FallbackTitle(t *testing.T) {
	d := Parse([]byte("plain words\n"), "meeting-notes")
	if d.Title != "meeting-notes" || d.Body != "plain words" {
		t.Errorf("doc = %+v", d)
	}
}

func TestParse_EmptyHeadingIgnored(t *testing.T) {
	d := Parse([]byte("# \ntext\n# Real\n"), "fb")
	if d.Title != "Real" {
		t.Errorf("title = %q, want %q", d.Title, "Real")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	d := Parse(input, "fb")
	// Invalid YAML falls back to treating everything as body.
	if d.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if d.Title != "fb" {
		t.Errorf("title = %q, want fallback", d.Title)
	}
}

func TestParse_CRLF(t *testing.T) {
	d := Parse([]byte("---\r\ntitle: Win\r\n---\r\nline one\r\n\r\nline two\r\n"), "fb")
	if d.Title != "Win" || d.Body != "line one\n\nline two" {
		t.Errorf("doc = %+v", d)
	}
}

func TestParseFile(t *testing.T) {
	d := ParseFile("inbox/2024-05-01 standup.md", []byte("notes"))
	if d.Title != "2024-05-01 standup" {
		t.Errorf("title = %q", d.Title)
	}
}
