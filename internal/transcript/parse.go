package transcript

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// DetectFlavor reads just enough of path to classify it as Claude
// Code or OpenClaw, per §4.1: a file is OpenClaw iff its first
// non-empty line parses as JSON with type == "session"; otherwise it
// is Claude Code. Malformed leading lines are skipped, not fatal.
func DetectFlavor(path string) (Flavor, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	lr := newLineReader(f, maxLineSize)
	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		if !gjson.Valid(line) {
			continue
		}
		if gjson.Get(line, "type").Str == "session" {
			return FlavorOpenClaw, nil
		}
		return FlavorClaude, nil
	}
	// Empty or entirely-malformed file: default to Claude Code, the
	// more common format, rather than erroring. The next poll will
	// re-detect once the agent has written real content.
	return FlavorClaude, nil
}

// Parse reads path in file order and returns its normalized Entry
// stream. Malformed or truncated lines are skipped silently, never
// fatal, because transcript files are being appended to by a live
// process (§4.1, §7).
func Parse(path string) ([]Entry, Flavor, error) {
	flavor, err := DetectFlavor(path)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	lr := newLineReader(f, maxLineSize)
	lineNo := 0
	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		lineNo++
		if !gjson.Valid(line) {
			continue
		}

		var entry Entry
		var recognized bool
		if flavor == FlavorOpenClaw {
			entry, recognized = parseOpenClawLine(line)
		} else {
			entry, recognized = parseClaudeLine(line)
		}
		if !recognized {
			continue
		}
		entry.Line = lineNo
		entries = append(entries, entry)
	}
	return entries, flavor, nil
}

// parseClaudeLine normalizes one Claude Code JSONL line per the
// entry shape in §6: {type, cwd?, message: {content}}.
func parseClaudeLine(line string) (Entry, bool) {
	typ := gjson.Get(line, "type").Str
	switch typ {
	case "user":
		if cwd := gjson.Get(line, "cwd").Str; cwd != "" {
			// Claude Code stamps cwd on every user entry; the first
			// one seen authoritatively locates the project (§4.3,
			// §9: never decode the directory name instead).
			return Entry{Kind: KindSessionMeta, Cwd: cwd}, true
		}
		content := gjson.Get(line, "message.content")
		return Entry{Kind: KindUser, Text: PlainText(extractClaudeBlocks(content))}, true
	case "assistant":
		content := gjson.Get(line, "message.content")
		return Entry{Kind: KindAssistant, Blocks: extractClaudeBlocks(content)}, true
	case "system":
		text := gjson.Get(line, "message").Str
		if text == "" {
			text = PlainText(extractClaudeBlocks(gjson.Get(line, "message.content")))
		}
		return Entry{Kind: KindSystem, Text: text}, true
	default:
		return Entry{}, false
	}
}

// parseOpenClawLine normalizes one OpenClaw JSONL line per the
// normalization table in §4.1.
func parseOpenClawLine(line string) (Entry, bool) {
	typ := gjson.Get(line, "type").Str
	switch typ {
	case "session":
		return Entry{Kind: KindSessionMeta, Cwd: gjson.Get(line, "cwd").Str}, true
	case "message":
		role := gjson.Get(line, "role").Str
		content := gjson.Get(line, "content")
		switch role {
		case "user":
			return Entry{Kind: KindUser, Text: PlainText(extractOpenClawBlocks(content))}, true
		case "assistant":
			return Entry{Kind: KindAssistant, Blocks: extractOpenClawBlocks(content)}, true
		case "toolResult":
			return Entry{Kind: KindSystem, Text: PlainText(extractOpenClawBlocks(content))}, true
		default:
			return Entry{}, false
		}
	case "model_change", "thinking_level_change", "custom":
		return Entry{}, false
	default:
		return Entry{}, false
	}
}
