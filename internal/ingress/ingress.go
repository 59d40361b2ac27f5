// Package ingress implements the external event surface (C7):
// parsing and validating the envelope spec.md §6 defines for
// POST /events, then handing it to the scheduler's inbox. It never
// touches internal/store directly — grounded on the teacher's
// server/events.go handler shape (parse request, delegate, never
// mutate) and the hook-handler pattern in other_examples of decoding
// a typed envelope before dispatch.
package ingress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// EventType discriminates the envelope shapes accepted on /events.
type EventType string

const (
	EventSessionStart   EventType = "session_start"
	EventSessionEnd     EventType = "session_end"
	EventAgentSpawn     EventType = "agent_spawn"
	EventAgentBlocked   EventType = "agent_blocked"
	EventAgentUnblocked EventType = "agent_unblocked"
	EventAgentComplete  EventType = "agent_complete"
	EventActivity       EventType = "activity"
)

// Metadata carries the optional extras spec.md §6 lists.
type Metadata struct {
	DelegatingTo           string `json:"delegatingTo,omitempty"`
	BackgroundTaskComplete string `json:"backgroundTaskComplete,omitempty"`
	RalphIteration         int    `json:"ralphIteration,omitempty"`
	RalphMaxIterations     int    `json:"ralphMaxIterations,omitempty"`
	UltraworkActive        bool   `json:"ultraworkActive,omitempty"`
	Source                 string `json:"source,omitempty"`
}

// Event is the POST /events envelope (spec.md §6).
type Event struct {
	Type        EventType `json:"type"`
	Timestamp   int64     `json:"timestamp"`
	SessionID   string    `json:"sessionId"`
	ProjectPath string    `json:"projectPath"`
	ProjectName string    `json:"projectName"`

	AgentID   string `json:"agentId,omitempty"`
	AgentName string `json:"agentName,omitempty"`
	AgentType string `json:"agentType,omitempty"`

	Task     string `json:"task,omitempty"`
	Question string `json:"question,omitempty"`

	Metadata *Metadata `json:"metadata,omitempty"`

	// ProtocolVersion is an optional semver string (e.g. "1.2.0"),
	// a supplemental field not present in spec.md's distilled
	// envelope — see SPEC_FULL.md's hook-protocol-versioning note.
	ProtocolVersion string `json:"protocolVersion,omitempty"`
}

// CommandType discriminates the envelope shapes accepted as
// operator commands.
type CommandType string

const (
	CommandOpenProject CommandType = "open_project"
	CommandCopyPath    CommandType = "copy_path"
)

// Command is a validated-but-not-executed operator command: Argus
// reports it to the scheduler, which may log or surface it, but never
// shells out or touches the filesystem on a client's behalf (no
// process-launch surface is in scope here).
type Command struct {
	Type        CommandType `json:"type"`
	ProjectPath string      `json:"projectPath,omitempty"`
	Path        string      `json:"path,omitempty"`
}

var (
	ErrMissingSessionID           = errors.New("ingress: missing sessionId")
	ErrMissingProjectPath         = errors.New("ingress: missing projectPath")
	ErrUnsupportedProtocolVersion = errors.New("ingress: unsupported protocol version")
	ErrInboxFull                  = errors.New("ingress: inbox full")
)

// Surface validates envelopes and enqueues them onto the scheduler's
// inbox channels. It never mutates internal/store directly (§4.7).
type Surface struct {
	events   chan<- Event
	commands chan<- Command

	versionMin string
	versionMax string
}

// New returns a Surface that enqueues onto events/commands, rejecting
// any envelope whose ProtocolVersion falls outside [versionMin,
// versionMax]. versionMin/versionMax must be valid semver ("v1.0.0").
func New(events chan<- Event, commands chan<- Command, versionMin, versionMax string) *Surface {
	return &Surface{events: events, commands: commands, versionMin: versionMin, versionMax: versionMax}
}

// Submit validates ev and enqueues it, blocking until ctx is done or
// there is room in the inbox — never mutating state itself.
func (s *Surface) Submit(ctx context.Context, ev Event) error {
	if ev.SessionID == "" {
		return ErrMissingSessionID
	}
	if ev.ProjectPath == "" {
		return ErrMissingProjectPath
	}
	if err := s.checkProtocolVersion(ev.ProtocolVersion); err != nil {
		return err
	}

	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitCommand validates and enqueues an operator command.
func (s *Surface) SubmitCommand(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CommandOpenProject:
		if cmd.ProjectPath == "" {
			return ErrMissingProjectPath
		}
	case CommandCopyPath:
		if cmd.Path == "" {
			return fmt.Errorf("ingress: missing path")
		}
	default:
		return fmt.Errorf("ingress: unknown command type %q", cmd.Type)
	}

	select {
	case s.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Surface) checkProtocolVersion(v string) error {
	if v == "" {
		return nil
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: %q is not valid semver", ErrUnsupportedProtocolVersion, v)
	}
	if semver.Compare(v, s.versionMin) < 0 || semver.Compare(v, s.versionMax) > 0 {
		return fmt.Errorf("%w: %s (supported %s..%s)", ErrUnsupportedProtocolVersion, v, s.versionMin, s.versionMax)
	}
	return nil
}
