package transcript

import (
	"strings"

	"github.com/tidwall/gjson"
)

// extractClaudeBlocks converts a Claude Code message.content value
// (a string or an array of {type, text|thinking, name, input}
// blocks) into normalized Blocks. An unknown block type is dropped.
func extractClaudeBlocks(content gjson.Result) []Block {
	if content.Type == gjson.String {
		if content.Str == "" {
			return nil
		}
		return []Block{{Kind: BlockText, Text: content.Str}}
	}
	if !content.IsArray() {
		return nil
	}

	var blocks []Block
	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").Str {
		case "text":
			if text := block.Get("text").Str; text != "" {
				blocks = append(blocks, Block{Kind: BlockText, Text: text})
			}
		case "thinking":
			if thinking := block.Get("thinking").Str; thinking != "" {
				blocks = append(blocks, Block{Kind: BlockThinking, Text: thinking})
			}
		case "tool_use":
			if name := block.Get("name").Str; name != "" {
				blocks = append(blocks, Block{
					Kind:          BlockToolUse,
					ToolName:      name,
					ToolInputJSON: block.Get("input").Raw,
				})
			}
		}
		return true
	})
	return blocks
}

// extractOpenClawBlocks converts an OpenClaw message.content array
// (blocks of {type: "text"|"thinking"|"toolCall", text|thinking,
// name, arguments}) into normalized Blocks, per the §4.1
// normalization table.
func extractOpenClawBlocks(content gjson.Result) []Block {
	if content.Type == gjson.String {
		if content.Str == "" {
			return nil
		}
		return []Block{{Kind: BlockText, Text: content.Str}}
	}
	if !content.IsArray() {
		return nil
	}

	var blocks []Block
	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").Str {
		case "text":
			if text := block.Get("text").Str; text != "" {
				blocks = append(blocks, Block{Kind: BlockText, Text: text})
			}
		case "thinking":
			if thinking := block.Get("thinking").Str; thinking != "" {
				blocks = append(blocks, Block{Kind: BlockThinking, Text: thinking})
			}
		case "toolCall":
			if name := block.Get("name").Str; name != "" {
				blocks = append(blocks, Block{
					Kind:          BlockToolUse,
					ToolName:      name,
					ToolInputJSON: block.Get("arguments").Raw,
				})
			}
		}
		return true
	})
	return blocks
}

// PlainText concatenates the text of every BlockText in entry order,
// ignoring thinking and tool-use blocks. Used for the "discussing an
// error" vs "reporting an error" distinction in §4.2.7.
func PlainText(blocks []Block) string {
	var parts []string
	for _, b := range blocks {
		if b.Kind == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
