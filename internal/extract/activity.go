package extract

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/argus-dev/argus/internal/transcript"
)

// activityWindow is the size of the tail scanned for current
// activity, per §4.2.1's "last N≈30 entries".
const activityWindow = 30

// CurrentActivity implements §4.2.1: it finds the most recent
// Assistant entry within the tail window and describes what it's
// doing right now, highest-priority signal first. Returns the source
// line number so callers can offer "jump to transcript".
func CurrentActivity(entries []transcript.Entry) (activity string, line int, ok bool) {
	window := tailWindow(entries, activityWindow)
	for i := len(window) - 1; i >= 0; i-- {
		e := window[i]
		if e.Kind != transcript.KindAssistant {
			continue
		}

		if think, has := e.LastThinking(); has {
			if text := lastNonEmptyLine(think.Text); text != "" {
				return "💭 " + truncate(text, 120), e.Line, true
			}
		}

		if tc, has := e.FirstToolUse(); has {
			if desc := describeToolUse(tc); desc != "" {
				return desc, e.Line, true
			}
		}

		if text, has := e.LastText(); has {
			if line := firstNonEmptyLine(text.Text); line != "" {
				return truncate(line, 100), e.Line, true
			}
		}
		return "", e.Line, false
	}
	return "", 0, false
}

// describeToolUse maps a tool invocation to a human activity string
// per the §4.2.1 tool-name table.
func describeToolUse(tc transcript.Block) string {
	input := toolInput(tc)
	switch tc.ToolName {
	case "TodoWrite":
		return describeTodoWriteActivity(input)
	case "Task":
		return "Delegating: " + input.Get("description").Str
	case "Edit", "Write":
		return "Editing " + baseName(input.Get("file_path").Str)
	case "Read":
		return "Reading " + baseName(input.Get("file_path").Str)
	case "Bash":
		if desc := input.Get("description").Str; desc != "" {
			return desc
		}
		cmd := input.Get("command").Str
		return "Running: " + truncate(cmd, 40)
	case "Grep":
		return fmt.Sprintf("Searching for %q", input.Get("pattern").Str)
	case "Glob":
		return "Finding files: " + input.Get("pattern").Str
	case "WebSearch":
		return "Searching the web"
	case "WebFetch":
		return "Fetching a web page"
	case "AskUserQuestion":
		if q := firstQuestionText(input); q != "" {
			return truncate(q, 100)
		}
		return ""
	default:
		return ""
	}
}

// describeTodoWriteActivity returns the activeForm (or content) of
// the first in-progress todo in a TodoWrite call's input.
func describeTodoWriteActivity(input gjson.Result) string {
	var activity string
	input.Get("todos").ForEach(func(_, todo gjson.Result) bool {
		if todo.Get("status").Str != "in_progress" {
			return true
		}
		activity = todo.Get("activeForm").Str
		if activity == "" {
			activity = todo.Get("content").Str
		}
		return false
	})
	return activity
}

// firstQuestionText returns the text of the first question in an
// AskUserQuestion call's input.
func firstQuestionText(input gjson.Result) string {
	var text string
	input.Get("questions").ForEach(func(_, q gjson.Result) bool {
		text = q.Get("question").Str
		return false
	})
	return text
}
