// Package testjsonl builds synthetic Claude Code and OpenClaw
// transcript fixtures for the internal/transcript and
// internal/reconcile tests. Adapted
// from the teacher's package of the same name (originally a fixture
// builder for Claude/Codex analytics test data) into a builder for
// the two transcript dialects this repository actually parses.
package testjsonl

import (
	"encoding/json"
	"strings"
)

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// ClaudeSessionMeta returns a Claude Code "user" line stamped with
// cwd — the line shape that seeds a KindSessionMeta entry.
func ClaudeSessionMeta(cwd string) string {
	return mustMarshal(map[string]any{
		"type":    "user",
		"cwd":     cwd,
		"message": map[string]any{"content": ""},
	})
}

// ClaudeUser returns a Claude Code user message line.
func ClaudeUser(text string) string {
	return mustMarshal(map[string]any{
		"type":    "user",
		"message": map[string]any{"content": text},
	})
}

// ClaudeAssistantText returns a Claude Code assistant line with a
// single text block.
func ClaudeAssistantText(text string) string {
	return mustMarshal(map[string]any{
		"type": "assistant",
		"message": map[string]any{
			"content": []map[string]any{{"type": "text", "text": text}},
		},
	})
}

// ClaudeThinking returns a Claude Code assistant line with a single
// thinking block.
func ClaudeThinking(text string) string {
	return mustMarshal(map[string]any{
		"type": "assistant",
		"message": map[string]any{
			"content": []map[string]any{{"type": "thinking", "thinking": text}},
		},
	})
}

// ClaudeToolUse returns a Claude Code assistant line invoking a tool
// with the given raw JSON input (pass "{}" for no arguments).
func ClaudeToolUse(name string, inputJSON string) string {
	var input any
	_ = json.Unmarshal([]byte(inputJSON), &input)
	return mustMarshal(map[string]any{
		"type": "assistant",
		"message": map[string]any{
			"content": []map[string]any{{"type": "tool_use", "name": name, "input": input}},
		},
	})
}

// ClaudeSystem returns a Claude Code system line, e.g. a rate-limit
// or prompt/context-overflow notice.
func ClaudeSystem(text string) string {
	return mustMarshal(map[string]any{
		"type":    "system",
		"message": text,
	})
}

// OpenClawSession returns an OpenClaw session header line.
func OpenClawSession(cwd string) string {
	return mustMarshal(map[string]any{
		"type": "session",
		"cwd":  cwd,
	})
}

// OpenClawUser returns an OpenClaw user message line.
func OpenClawUser(text string) string {
	return mustMarshal(map[string]any{
		"type":    "message",
		"role":    "user",
		"content": text,
	})
}

// OpenClawAssistantText returns an OpenClaw assistant message line
// with a single text block.
func OpenClawAssistantText(text string) string {
	return mustMarshal(map[string]any{
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
	})
}

// OpenClawToolCall returns an OpenClaw assistant message line
// invoking a tool with the given raw JSON arguments.
func OpenClawToolCall(name string, argsJSON string) string {
	var args any
	_ = json.Unmarshal([]byte(argsJSON), &args)
	return mustMarshal(map[string]any{
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "toolCall", "name": name, "arguments": args},
		},
	})
}

// OpenClawToolResult returns an OpenClaw tool-result message line.
func OpenClawToolResult(text string) string {
	return mustMarshal(map[string]any{
		"type":    "message",
		"role":    "toolResult",
		"content": text,
	})
}

// JoinJSONL joins lines with newlines and appends a trailing newline,
// the shape a real transcript file has on disk.
func JoinJSONL(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// SessionBuilder accumulates JSONL lines with a fluent API.
type SessionBuilder struct {
	lines []string
}

// NewSessionBuilder returns an empty SessionBuilder.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{}
}

func (b *SessionBuilder) add(line string) *SessionBuilder {
	b.lines = append(b.lines, line)
	return b
}

func (b *SessionBuilder) ClaudeSessionMeta(cwd string) *SessionBuilder {
	return b.add(ClaudeSessionMeta(cwd))
}
func (b *SessionBuilder) ClaudeUser(text string) *SessionBuilder {
	return b.add(ClaudeUser(text))
}
func (b *SessionBuilder) ClaudeAssistantText(text string) *SessionBuilder {
	return b.add(ClaudeAssistantText(text))
}
func (b *SessionBuilder) ClaudeThinking(text string) *SessionBuilder {
	return b.add(ClaudeThinking(text))
}
func (b *SessionBuilder) ClaudeToolUse(name, inputJSON string) *SessionBuilder {
	return b.add(ClaudeToolUse(name, inputJSON))
}
func (b *SessionBuilder) ClaudeSystem(text string) *SessionBuilder {
	return b.add(ClaudeSystem(text))
}
func (b *SessionBuilder) OpenClawSession(cwd string) *SessionBuilder {
	return b.add(OpenClawSession(cwd))
}
func (b *SessionBuilder) OpenClawUser(text string) *SessionBuilder {
	return b.add(OpenClawUser(text))
}
func (b *SessionBuilder) OpenClawAssistantText(text string) *SessionBuilder {
	return b.add(OpenClawAssistantText(text))
}
func (b *SessionBuilder) OpenClawToolCall(name, argsJSON string) *SessionBuilder {
	return b.add(OpenClawToolCall(name, argsJSON))
}
func (b *SessionBuilder) OpenClawToolResult(text string) *SessionBuilder {
	return b.add(OpenClawToolResult(text))
}

// Raw appends an arbitrary raw line, for malformed-input tests.
func (b *SessionBuilder) Raw(line string) *SessionBuilder {
	return b.add(line)
}

// String returns the accumulated JSONL content with a trailing
// newline.
func (b *SessionBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}
