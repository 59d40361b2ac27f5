// Package store holds the canonical in-memory project/agent graph
// (C4): the only component in Argus that mutates observable state.
// Every transition method returns whether the observable snapshot
// changed, which is what the scheduler (internal/reconcile) uses to
// decide whether to publish.
package store

import "time"

// AgentType identifies what kind of participant an Agent is within a
// project.
type AgentType string

const (
	AgentMain       AgentType = "main"
	AgentSubagent   AgentType = "subagent"
	AgentBackground AgentType = "background"
)

// AgentStatus is the state machine for a single Agent.
type AgentStatus string

const (
	AgentWorking       AgentStatus = "working"
	AgentBlocked       AgentStatus = "blocked"
	AgentRateLimited   AgentStatus = "rate_limited"
	AgentServerRunning AgentStatus = "server_running"
	AgentComplete      AgentStatus = "complete"
	AgentError         AgentStatus = "error"
)

// ProjectStatus is the derived state machine for a Project (I5).
type ProjectStatus string

const (
	ProjectIdle          ProjectStatus = "idle"
	ProjectWorking       ProjectStatus = "working"
	ProjectBlocked       ProjectStatus = "blocked"
	ProjectRateLimited   ProjectStatus = "rate_limited"
	ProjectServerRunning ProjectStatus = "server_running"
)

// TodoStatus mirrors extract.TodoStatus; store keeps its own copy so
// that this package has no dependency on the extractor package —
// reconcile is the only thing that needs both.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// TodoItem is one entry of an agent's todo list.
type TodoItem struct {
	Content    string
	Status     TodoStatus
	ActiveForm string
}

// TodoCounts summarizes a todo list by status.
type TodoCounts struct {
	Pending    int
	InProgress int
	Completed  int
}

// Modes holds the boolean/iteration flags an agent may be running
// under.
type Modes struct {
	Ralph              bool
	Ultrawork          bool
	Planning           bool
	RalphIteration     int
	RalphMaxIterations int
}

// Agent is a single participant within a Project: the main session, a
// spawned subagent, or a background shell.
type Agent struct {
	ID       string
	Type     AgentType
	ParentID string // set iff Type != AgentMain (I4)

	Name            string
	Task            string // immutable once set
	CurrentActivity string
	Question        string // set iff Status == AgentBlocked (I2)
	DelegatingTo    string

	Modes      Modes
	Todos      []TodoItem
	TodoCounts TodoCounts

	Status           AgentStatus
	RateLimitResetAt time.Time
	SpawnedAt        time.Time
	LastActivityAt   time.Time
	TranscriptPath   string
}

// clone returns a deep copy of the agent, used both internally (so a
// transition never mutates a value still referenced by a prior
// snapshot) and by Snapshot (I6).
func (a *Agent) clone() *Agent {
	cp := *a
	if a.Todos != nil {
		cp.Todos = append([]TodoItem(nil), a.Todos...)
	}
	return &cp
}

// Project is identified by a stable digest of its normalized path.
type Project struct {
	ID              string
	Path            string
	Name            string
	Status          ProjectStatus
	LastActivityAt  time.Time
	BlockedSince    time.Time // zero means unset (I3)
	LastUserMessage string

	Agents map[string]*Agent
}

func (p *Project) clone() *Project {
	cp := *p
	cp.Agents = make(map[string]*Agent, len(p.Agents))
	for id, a := range p.Agents {
		cp.Agents[id] = a.clone()
	}
	return &cp
}

// CompletedWorkItem is an append-only record of a finished
// subagent/background task.
type CompletedWorkItem struct {
	ID          string
	AgentName   string
	Task        string
	CompletedAt time.Time
	ProjectID   string
	ProjectName string
}

// Default tunables; overridable via internal/config.
const (
	DefaultIdleTimeout         = 2 * time.Minute
	DefaultStaleProjectTTL     = 30 * time.Minute
	DefaultStaleBlockedMainTTL = 5 * time.Minute
	DefaultCompletedWorkCap    = 20
	DefaultCompletedWorkTTL    = 5 * time.Minute
)
