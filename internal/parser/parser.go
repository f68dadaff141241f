// Package parser turns an imported Markdown document into a note title and body.
package parser

import (
	"bytes"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a parsed Markdown file.
type Document struct {
	Frontmatter map[string]any
	Title       string
	Body        string
}

// Parse extracts frontmatter, title, and body from raw Markdown bytes.
//
// The title comes from the frontmatter "title" field, else the first "# "
// heading (which is then removed from the body), else fallback.
func Parse(data []byte, fallback string) *Document {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	fm, body := splitFrontmatter(data)

	doc := &Document{Frontmatter: fm}
	if t := frontmatterTitle(fm); t != "" {
		doc.Title = t
		doc.Body = strings.TrimSpace(body)
		return doc
	}
	if title, rest, ok := cutHeading(body); ok {
		doc.Title = title
		doc.Body = strings.TrimSpace(rest)
		return doc
	}
	doc.Title = fallback
	doc.Body = strings.TrimSpace(body)
	return doc
}

// ParseFile is Parse with the file name stem as the fallback title.
func ParseFile(name string, data []byte) *Document {
	base := filepath.Base(name)
	return Parse(data, strings.TrimSuffix(base, filepath.Ext(base)))
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no valid frontmatter is found the entire content
// is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

func frontmatterTitle(fm map[string]any) string {
	if fm == nil {
		return ""
	}
	s, _ := fm["title"].(string)
	return strings.TrimSpace(s)
}

// cutHeading finds the first H1 line and returns its text and the body
// without that line.
func cutHeading(body string) (title, rest string, ok bool) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			title = strings.TrimSpace(trimmed[2:])
			if title == "" {
				continue
			}
			rest = strings.Join(append(lines[:i:i], lines[i+1:]...), "\n")
			return title, rest, true
		}
	}
	return "", body, false
}
