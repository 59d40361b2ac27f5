// Package wire converts internal/store values into the JSON shapes
// spec.md §6 defines for external consumers (GET /state, WS
// state_update payloads). Keeping this conversion in its own package
// keeps internal/store free of any notion of JSON field names.
package wire

import (
	"time"

	"github.com/argus-dev/argus/internal/store"
)

// Todo mirrors store.TodoItem's wire shape.
type Todo struct {
	Content    string `json:"content"`
	Status     string `json:"status"`
	ActiveForm string `json:"activeForm,omitempty"`
}

// Modes mirrors store.Modes's wire shape.
type Modes struct {
	Ralph              bool `json:"ralph,omitempty"`
	Ultrawork          bool `json:"ultrawork,omitempty"`
	Planning           bool `json:"planning,omitempty"`
	RalphIteration     int  `json:"ralphIteration,omitempty"`
	RalphMaxIterations int  `json:"ralphMaxIterations,omitempty"`
}

// Agent is the wire representation of store.Agent, with workingTime
// derived per spec.md §4.6: now-spawnedAt while working, else
// lastActivityAt-spawnedAt.
type Agent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	ParentID string `json:"parentId,omitempty"`

	Name            string `json:"name,omitempty"`
	Task            string `json:"task,omitempty"`
	CurrentActivity string `json:"currentActivity,omitempty"`
	Question        string `json:"question,omitempty"`
	DelegatingTo    string `json:"delegatingTo,omitempty"`

	Modes *Modes `json:"modes,omitempty"`
	Todos []Todo `json:"todos,omitempty"`

	Status           string `json:"status"`
	RateLimitResetAt int64  `json:"rateLimitResetAt,omitempty"`
	SpawnedAt        int64  `json:"spawnedAt"`
	LastActivityAt   int64  `json:"lastActivityAt"`
	WorkingTimeMs    int64  `json:"workingTime"`
	TranscriptPath   string `json:"transcriptPath,omitempty"`
}

// Project is the wire representation of store.Project.
type Project struct {
	ID              string           `json:"id"`
	Path            string           `json:"path"`
	Name            string           `json:"name"`
	Status          string           `json:"status"`
	LastActivityAt  int64            `json:"lastActivityAt"`
	BlockedSince    int64            `json:"blockedSince,omitempty"`
	LastUserMessage string           `json:"lastUserMessage,omitempty"`
	Agents          map[string]Agent `json:"agents"`

	BlockedAgentCount int `json:"blockedAgentCount"`
	WorkingAgentCount int `json:"workingAgentCount"`
}

// CompletedWorkItem is the wire representation of
// store.CompletedWorkItem.
type CompletedWorkItem struct {
	ID          string `json:"id"`
	AgentName   string `json:"agentName,omitempty"`
	Task        string `json:"task,omitempty"`
	CompletedAt int64  `json:"completedAt"`
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
}

// Snapshot is the full state_update / GET /state payload.
type Snapshot struct {
	Projects      map[string]Project  `json:"projects"`
	CompletedWork []CompletedWorkItem `json:"completedWork"`
	LastUpdated   int64               `json:"lastUpdated"`
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromSnapshot converts a store.Snapshot into its wire shape, as of
// wall-clock now.
func FromSnapshot(snap store.Snapshot, now time.Time) Snapshot {
	out := Snapshot{
		Projects:    make(map[string]Project, len(snap.Projects)),
		LastUpdated: millis(now),
	}
	for _, p := range snap.Projects {
		out.Projects[p.ID] = fromProject(p, now)
	}
	out.CompletedWork = make([]CompletedWorkItem, 0, len(snap.CompletedWork))
	for _, c := range snap.CompletedWork {
		out.CompletedWork = append(out.CompletedWork, CompletedWorkItem{
			ID:          c.ID,
			AgentName:   c.AgentName,
			Task:        c.Task,
			CompletedAt: millis(c.CompletedAt),
			ProjectID:   c.ProjectID,
			ProjectName: c.ProjectName,
		})
	}
	return out
}

func fromProject(p *store.Project, now time.Time) Project {
	wp := Project{
		ID:              p.ID,
		Path:            p.Path,
		Name:            p.Name,
		Status:          string(p.Status),
		LastActivityAt:  millis(p.LastActivityAt),
		BlockedSince:    millis(p.BlockedSince),
		LastUserMessage: p.LastUserMessage,
		Agents:          make(map[string]Agent, len(p.Agents)),
	}
	for _, a := range p.Agents {
		wp.Agents[a.ID] = fromAgent(a, now)
		if a.Status == store.AgentBlocked {
			wp.BlockedAgentCount++
		}
		if a.Status == store.AgentWorking {
			wp.WorkingAgentCount++
		}
	}
	return wp
}

func fromAgent(a *store.Agent, now time.Time) Agent {
	workingTime := a.LastActivityAt.Sub(a.SpawnedAt)
	if a.Status == store.AgentWorking {
		workingTime = now.Sub(a.SpawnedAt)
	}
	if workingTime < 0 {
		workingTime = 0
	}

	var modes *Modes
	if a.Modes != (store.Modes{}) {
		modes = &Modes{
			Ralph:              a.Modes.Ralph,
			Ultrawork:          a.Modes.Ultrawork,
			Planning:           a.Modes.Planning,
			RalphIteration:     a.Modes.RalphIteration,
			RalphMaxIterations: a.Modes.RalphMaxIterations,
		}
	}

	todos := make([]Todo, 0, len(a.Todos))
	for _, t := range a.Todos {
		todos = append(todos, Todo{
			Content:    t.Content,
			Status:     string(t.Status),
			ActiveForm: t.ActiveForm,
		})
	}

	return Agent{
		ID:               a.ID,
		Type:             string(a.Type),
		ParentID:         a.ParentID,
		Name:             a.Name,
		Task:             a.Task,
		CurrentActivity:  a.CurrentActivity,
		Question:         a.Question,
		DelegatingTo:     a.DelegatingTo,
		Modes:            modes,
		Todos:            todos,
		Status:           string(a.Status),
		RateLimitResetAt: millis(a.RateLimitResetAt),
		SpawnedAt:        millis(a.SpawnedAt),
		LastActivityAt:   millis(a.LastActivityAt),
		WorkingTimeMs:    workingTime.Milliseconds(),
		TranscriptPath:   a.TranscriptPath,
	}
}
