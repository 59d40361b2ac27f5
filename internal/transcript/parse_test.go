package transcript_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-dev/argus/internal/testjsonl"
	"github.com/argus-dev/argus/internal/transcript"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectFlavor_OpenClawBySessionLine(t *testing.T) {
	path := writeFixture(t, testjsonl.NewSessionBuilder().
		OpenClawSession("/home/u/proj").
		OpenClawUser("hi").
		String())

	flavor, err := transcript.DetectFlavor(path)
	require.NoError(t, err)
	assert.Equal(t, transcript.FlavorOpenClaw, flavor)
}

func TestDetectFlavor_DefaultsToClaudeWhenAmbiguous(t *testing.T) {
	path := writeFixture(t, testjsonl.NewSessionBuilder().
		ClaudeUser("hi").
		String())

	flavor, err := transcript.DetectFlavor(path)
	require.NoError(t, err)
	assert.Equal(t, transcript.FlavorClaude, flavor)
}

func TestDetectFlavor_EmptyFileDefaultsToClaudeWithoutError(t *testing.T) {
	path := writeFixture(t, "")

	flavor, err := transcript.DetectFlavor(path)
	require.NoError(t, err)
	assert.Equal(t, transcript.FlavorClaude, flavor)
}

func TestDetectFlavor_SkipsMalformedLeadingLines(t *testing.T) {
	path := writeFixture(t, testjsonl.JoinJSONL(
		"not json at all",
		testjsonl.OpenClawSession("/p"),
	))

	flavor, err := transcript.DetectFlavor(path)
	require.NoError(t, err)
	assert.Equal(t, transcript.FlavorOpenClaw, flavor)
}

func TestParse_ClaudeSessionMeta(t *testing.T) {
	path := writeFixture(t, testjsonl.NewSessionBuilder().
		ClaudeSessionMeta("/home/u/proj").
		ClaudeUser("fix the bug").
		ClaudeAssistantText("looking into it").
		String())

	entries, flavor, err := transcript.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, transcript.FlavorClaude, flavor)
	require.Len(t, entries, 3)

	assert.Equal(t, transcript.KindSessionMeta, entries[0].Kind)
	assert.Equal(t, "/home/u/proj", entries[0].Cwd)

	assert.Equal(t, transcript.KindUser, entries[1].Kind)
	assert.Equal(t, "fix the bug", entries[1].Text)

	assert.Equal(t, transcript.KindAssistant, entries[2].Kind)
	require.Len(t, entries[2].Blocks, 1)
	assert.Equal(t, transcript.BlockText, entries[2].Blocks[0].Kind)
	assert.Equal(t, "looking into it", entries[2].Blocks[0].Text)
}

func TestParse_ClaudeToolUseAndThinking(t *testing.T) {
	path := writeFixture(t, testjsonl.NewSessionBuilder().
		ClaudeSessionMeta("/p").
		ClaudeThinking("let me check the tests").
		ClaudeToolUse("Bash", `{"command":"go test ./..."}`).
		String())

	entries, _, err := transcript.Parse(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	think, ok := entries[1].LastThinking()
	require.True(t, ok)
	assert.Equal(t, "let me check the tests", think.Text)

	tool, ok := entries[2].LastToolUse()
	require.True(t, ok)
	assert.Equal(t, "Bash", tool.ToolName)
	assert.Contains(t, tool.ToolInputJSON, "go test")
}

func TestParse_ClaudeSystemLine(t *testing.T) {
	path := writeFixture(t, testjsonl.NewSessionBuilder().
		ClaudeSessionMeta("/p").
		ClaudeSystem("Claude usage limit reached").
		String())

	entries, _, err := transcript.Parse(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, transcript.KindSystem, entries[1].Kind)
	assert.Equal(t, "Claude usage limit reached", entries[1].Text)
}

func TestParse_OpenClawToolCallAndResult(t *testing.T) {
	path := writeFixture(t, testjsonl.NewSessionBuilder().
		OpenClawSession("/p").
		OpenClawUser("build it").
		OpenClawToolCall("shell", `{"cmd":"npm run build"}`).
		OpenClawToolResult("build succeeded").
		String())

	entries, flavor, err := transcript.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, transcript.FlavorOpenClaw, flavor)
	require.Len(t, entries, 4)

	// The session header line is itself an entry.
	assert.Equal(t, transcript.KindSessionMeta, entries[0].Kind)
	assert.Equal(t, transcript.KindUser, entries[1].Kind)
	assert.Equal(t, transcript.KindAssistant, entries[2].Kind)
	tool, ok := entries[2].LastToolUse()
	require.True(t, ok)
	assert.Equal(t, "shell", tool.ToolName)

	assert.Equal(t, transcript.KindSystem, entries[3].Kind)
	assert.Equal(t, "build succeeded", entries[3].Text)
}

func TestParse_IgnoresMalformedAndUnknownLines(t *testing.T) {
	path := writeFixture(t, testjsonl.JoinJSONL(
		testjsonl.ClaudeSessionMeta("/p"),
		"{not valid json",
		testjsonl.ClaudeUser("hello"),
	))

	entries, _, err := transcript.Parse(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Line)
	assert.Equal(t, 3, entries[1].Line, "line numbers count the skipped malformed line")
}

func TestPlainText_IgnoresThinkingAndToolBlocks(t *testing.T) {
	blocks := []transcript.Block{
		{Kind: transcript.BlockThinking, Text: "internal"},
		{Kind: transcript.BlockText, Text: "hello"},
		{Kind: transcript.BlockToolUse, ToolName: "Bash"},
		{Kind: transcript.BlockText, Text: "world"},
	}
	assert.Equal(t, "hello\nworld", transcript.PlainText(blocks))
}
