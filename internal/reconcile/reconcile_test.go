package reconcile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-dev/argus/internal/discover"
	"github.com/argus-dev/argus/internal/ingress"
	"github.com/argus-dev/argus/internal/publish"
	"github.com/argus-dev/argus/internal/store"
	"github.com/argus-dev/argus/internal/testjsonl"
	"github.com/argus-dev/argus/internal/transcript"
)

func newTestScheduler() *Scheduler {
	return New(store.New(), publish.New(), discover.Roots{}, Tuning{
		FullReconcileInterval: time.Hour,
		FastActivityInterval:  time.Hour,
		CleanupInterval:       time.Hour,
		ProtocolVersionMin:    "v1.0.0",
		ProtocolVersionMax:    "v1.999.999",
	})
}

func TestIdentifyAgent_TopLevelClaudeSessionIsMain(t *testing.T) {
	f := discover.File{Path: "/home/u/.claude/projects/-p/session-1.jsonl"}
	agentID, parentID, isSubagent := identifyAgent(f)
	assert.Equal(t, "session-1", agentID)
	assert.Empty(t, parentID)
	assert.False(t, isSubagent)
}

func TestIdentifyAgent_NestedSubagentFile(t *testing.T) {
	f := discover.File{Path: "/home/u/.claude/projects/-p/session-1/subagents/agent-7.jsonl"}
	agentID, parentID, isSubagent := identifyAgent(f)
	assert.Equal(t, "agent-7", agentID)
	assert.Equal(t, "session-1", parentID)
	assert.True(t, isSubagent)
}

func TestSessionMetaCwd_FirstStampedCwdWins(t *testing.T) {
	path := writeFixtureFile(t, testjsonl.NewSessionBuilder().
		ClaudeSessionMeta("/first").
		ClaudeUser("hi").
		ClaudeSessionMeta("/second").
		String())

	entries, _, err := transcript.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "/first", sessionMetaCwd(entries))
}

func TestTargetAgent_PrefersAgentIDOverSessionID(t *testing.T) {
	assert.Equal(t, "agent-1", targetAgent(ingress.Event{AgentID: "agent-1", SessionID: "sess-1"}))
	assert.Equal(t, "sess-1", targetAgent(ingress.Event{SessionID: "sess-1"}))
}

func TestEventTime_FallsBackWhenNoTimestamp(t *testing.T) {
	fallback := time.Now()
	assert.Equal(t, fallback, eventTime(ingress.Event{}, fallback))

	stamped := eventTime(ingress.Event{Timestamp: 1000}, fallback)
	assert.Equal(t, time.UnixMilli(1000), stamped)
}

func TestDispatchEvent_SessionStartRegistersProject(t *testing.T) {
	s := newTestScheduler()
	now := time.Now()

	changed := s.dispatchEvent(ingress.Event{
		Type: ingress.EventSessionStart, SessionID: "sess-1", ProjectPath: "/p", Task: "fix it",
	}, now)
	require.True(t, changed)

	snap := s.store.Snapshot()
	require.Len(t, snap.Projects, 1)
}

func TestDispatchEvent_UnknownSessionAutoRegisters(t *testing.T) {
	s := newTestScheduler()
	now := time.Now()

	changed := s.dispatchEvent(ingress.Event{
		Type: ingress.EventActivity, SessionID: "sess-1", ProjectPath: "/p",
	}, now)
	require.True(t, changed)

	snap := s.store.Snapshot()
	require.Len(t, snap.Projects, 1)
	agent := snap.Projects[0].Agents["sess-1"]
	require.NotNil(t, agent)
	assert.Equal(t, store.AgentWorking, agent.Status)
}

func TestDispatchEvent_AgentSpawnBackgroundUsesAgentIDAsShellID(t *testing.T) {
	s := newTestScheduler()
	now := time.Now()
	s.dispatchEvent(ingress.Event{Type: ingress.EventSessionStart, SessionID: "main", ProjectPath: "/p"}, now)

	changed := s.dispatchEvent(ingress.Event{
		Type: ingress.EventAgentSpawn, SessionID: "main", ProjectPath: "/p",
		AgentID: "shell-1", AgentName: "build", AgentType: "background",
	}, now)
	require.True(t, changed)

	changed = s.dispatchEvent(ingress.Event{
		Type: ingress.EventAgentComplete, SessionID: "main", ProjectPath: "/p",
		Metadata: &ingress.Metadata{BackgroundTaskComplete: "shell-1"},
	}, now.Add(time.Minute))
	require.True(t, changed)

	snap := s.store.Snapshot()
	_, stillThere := snap.Projects[0].Agents["shell-1"]
	assert.False(t, stillThere)
}

func TestDispatchEvent_ActivityMetadataUpdatesModes(t *testing.T) {
	s := newTestScheduler()
	now := time.Now()
	s.dispatchEvent(ingress.Event{Type: ingress.EventSessionStart, SessionID: "main", ProjectPath: "/p"}, now)

	s.dispatchEvent(ingress.Event{
		Type: ingress.EventActivity, SessionID: "main", ProjectPath: "/p",
		Metadata: &ingress.Metadata{RalphIteration: 3, RalphMaxIterations: 10, UltraworkActive: true},
	}, now)

	snap := s.store.Snapshot()
	agent := snap.Projects[0].Agents["main"]
	require.NotNil(t, agent)
	assert.True(t, agent.Modes.Ralph)
	assert.True(t, agent.Modes.Ultrawork)
	assert.Equal(t, 3, agent.Modes.RalphIteration)
}

func TestEvaluateBlockingConditions_PriorityOrder(t *testing.T) {
	s := newTestScheduler()
	now := time.Now()
	s.dispatchEvent(ingress.Event{Type: ingress.EventSessionStart, SessionID: "main", ProjectPath: "/p"}, now)

	path := writeFixtureFile(t, testjsonl.NewSessionBuilder().
		ClaudeSessionMeta("/p").
		ClaudeToolUse("AskUserQuestion", `{"questions":[{"question":"pick one?"}]}`).
		ClaudeSystem("Prompt is too long for the model").
		ClaudeSystem("You've hit your usage limit").
		String())
	entries, _, err := transcript.Parse(path)
	require.NoError(t, err)

	// A pending question outranks the system error and rate limit
	// that follow it.
	changed := s.evaluateBlockingConditions("main", entries, now)
	require.True(t, changed)
	snap := s.store.Snapshot()
	assert.Equal(t, store.AgentBlocked, snap.Projects[0].Agents["main"].Status)
}

func TestEvaluateBlockingConditions_OtherwiseUnblocksToWorking(t *testing.T) {
	s := newTestScheduler()
	now := time.Now()
	s.dispatchEvent(ingress.Event{Type: ingress.EventSessionStart, SessionID: "main", ProjectPath: "/p"}, now)
	s.store.OnAgentBlocked("main", "q?", now)

	path := writeFixtureFile(t, testjsonl.NewSessionBuilder().
		ClaudeSessionMeta("/p").
		ClaudeAssistantText("back to it").
		String())
	entries, _, err := transcript.Parse(path)
	require.NoError(t, err)

	s.evaluateBlockingConditions("main", entries, now.Add(time.Second))
	snap := s.store.Snapshot()
	assert.Equal(t, store.AgentWorking, snap.Projects[0].Agents["main"].Status)
}

func TestEvaluateBlockingConditions_IdenticalPassesProduceNoFurtherChange(t *testing.T) {
	s := newTestScheduler()
	now := time.Now()
	s.dispatchEvent(ingress.Event{Type: ingress.EventSessionStart, SessionID: "main", ProjectPath: "/p"}, now)

	path := writeFixtureFile(t, testjsonl.NewSessionBuilder().
		ClaudeSessionMeta("/p").
		ClaudeAssistantText("still working").
		String())
	entries, _, err := transcript.Parse(path)
	require.NoError(t, err)

	// The first pass observes the agent returning to/staying in
	// working; the second, with identical inputs one tick later, must
	// be a true no-op — not just status-stable, but unchanged.
	first := s.evaluateBlockingConditions("main", entries, now.Add(time.Second))
	second := s.evaluateBlockingConditions("main", entries, now.Add(2*time.Second))
	assert.False(t, first)
	assert.False(t, second)
}

func TestEvaluateBlockingConditions_IdleFiresFromWallClockAloneWithoutAnyEvent(t *testing.T) {
	s := newTestScheduler()
	now := time.Now()
	s.dispatchEvent(ingress.Event{Type: ingress.EventSessionStart, SessionID: "main", ProjectPath: "/p"}, now)

	path := writeFixtureFile(t, testjsonl.NewSessionBuilder().
		ClaudeSessionMeta("/p").
		ClaudeAssistantText("still working").
		String())
	entries, _, err := transcript.Parse(path)
	require.NoError(t, err)

	// Repeated ticks with unchanged transcript content must never
	// re-stamp LastActivityAt...
	for i := 1; i <= 3; i++ {
		s.evaluateBlockingConditions("main", entries, now.Add(time.Duration(i)*time.Second))
	}
	snap := s.store.Snapshot()
	require.Len(t, snap.Projects, 1)
	assert.Equal(t, store.ProjectWorking, snap.Projects[0].Status)

	// ...so advancing far enough past the idle timeout, with no
	// explicit unblocking event in between, transitions the project to
	// idle purely from wall-clock advancement.
	s.evaluateBlockingConditions("main", entries, now.Add(store.DefaultIdleTimeout+time.Minute))
	idleSnap := s.store.Snapshot()
	assert.Equal(t, store.ProjectIdle, idleSnap.Projects[0].Status)
}

func TestFullReconcile_EndToEndRegistersProjectFromTranscript(t *testing.T) {
	root := t.TempDir()
	projDir := filepath.Join(root, "-home-u-proj")
	require.NoError(t, os.MkdirAll(projDir, 0o755))

	content := testjsonl.NewSessionBuilder().
		ClaudeSessionMeta("/home/u/proj").
		ClaudeUser("build the feature").
		ClaudeAssistantText("on it").
		String()
	require.NoError(t, os.WriteFile(filepath.Join(projDir, "session-1.jsonl"), []byte(content), 0o644))

	s := New(store.New(), publish.New(), discover.Roots{ClaudeProjectsDir: root}, Tuning{
		FullReconcileInterval: time.Hour, FastActivityInterval: time.Hour, CleanupInterval: time.Hour,
		ProtocolVersionMin: "v1.0.0", ProtocolVersionMax: "v1.999.999",
	})

	now := time.Now()
	s.fullReconcile(now)

	snap := s.store.Snapshot()
	require.Len(t, snap.Projects, 1)
	assert.Equal(t, "proj", snap.Projects[0].Name)
	agent := snap.Projects[0].Agents["session-1"]
	require.NotNil(t, agent)
	assert.Equal(t, "build the feature", agent.Task)
}

func writeFixtureFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
