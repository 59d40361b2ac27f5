// Package extract implements the pure semantic extractors that turn a
// parsed transcript tail into the signals the state store consumes:
// current activity, todos, pending questions, plan mode, rate limits,
// server-running detection, system errors, and agent identity.
//
// Every extractor here is a pure function over a transcript.Entry
// slice (or a tail window of one); none of them touch the filesystem
// except OpenClawAgentName, which reads a project's IDENTITY.md.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/argus-dev/argus/internal/transcript"
)

// truncate trims s and caps it at maxLen runes, appending an
// ellipsis when cut, per the ≤40/≤100/≤120-char limits named
// throughout §4.2.
func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxLen])) + "..."
}

// firstNonEmptyLine returns the first non-blank line of s.
func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// lastNonEmptyLine returns the last non-blank line of s.
func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// tailWindow returns the last n entries of entries, or all of them
// if there are fewer than n.
func tailWindow(entries []transcript.Entry, n int) []transcript.Entry {
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

// toolInput parses a Block's raw tool-input JSON for field access.
// Blocks with empty or malformed InputJSON yield a zero gjson.Result,
// whose Get calls all resolve to empty/zero — extractors never need
// to special-case a missing input object.
func toolInput(b transcript.Block) gjson.Result {
	if b.ToolInputJSON == "" {
		return gjson.Result{}
	}
	return gjson.Parse(b.ToolInputJSON)
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
