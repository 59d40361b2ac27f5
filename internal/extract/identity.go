package extract

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/argus-dev/argus/internal/transcript"
)

// InitialTask implements §4.2.8: the first User entry's text,
// truncated to 100 characters.
func InitialTask(entries []transcript.Entry) (task string, ok bool) {
	for _, e := range entries {
		if e.Kind == transcript.KindUser && e.Text != "" {
			return truncate(e.Text, 100), true
		}
	}
	return "", false
}

// LastUserMessage implements §4.2.9: the most recent User entry's
// text, truncated to 100 characters.
func LastUserMessage(entries []transcript.Entry) (text string, ok bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind == transcript.KindUser && entries[i].Text != "" {
			return truncate(entries[i].Text, 100), true
		}
	}
	return "", false
}

var identityNameRe = regexp.MustCompile(`(?m)^\*\*Name:\*\*\s*(.+)$`)
var parenthetical = regexp.MustCompile(`\s*\([^)]*\)\s*`)

// OpenClawAgentName implements §4.2.10: read IDENTITY.md from the
// project directory for a `**Name:** <text>` line, stripping any
// parenthetical annotation. Falls back to the agent id segment of the
// transcript path (…/agents/<agentId>/sessions/<sessionId>.jsonl).
func OpenClawAgentName(projectDir, transcriptPath string) string {
	if projectDir != "" {
		data, err := os.ReadFile(filepath.Join(projectDir, "IDENTITY.md"))
		if err == nil {
			if m := identityNameRe.FindStringSubmatch(string(data)); m != nil {
				name := parenthetical.ReplaceAllString(m[1], "")
				if name = strings.TrimSpace(name); name != "" {
					return name
				}
			}
		}
	}
	return agentIDFromPath(transcriptPath)
}

// agentIDFromPath extracts <agentId> from a path shaped
// …/agents/<agentId>/sessions/<sessionId>.jsonl.
func agentIDFromPath(transcriptPath string) string {
	parts := strings.Split(filepath.ToSlash(transcriptPath), "/")
	for i, p := range parts {
		if p == "agents" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
