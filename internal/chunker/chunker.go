// Package chunker splits note text into paragraph-sized retrieval units.
package chunker

import (
	"regexp"
	"strings"
)

// Boundary separates the title from the body so the title forms its own chunk.
const Boundary = "\n\n"

// paragraphBreak matches a newline followed by at least one whitespace-only line.
var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// Compose joins title and body into the text that gets chunked and embedded.
func Compose(title, body string) string {
	return title + Boundary + body
}

// Chunk splits text on blank-line boundaries, trims each segment and drops
// empty ones. Text without paragraph breaks yields a single chunk; blank
// text yields none.
func Chunk(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := paragraphBreak.Split(text, -1)

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
