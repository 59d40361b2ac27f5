package store

import (
	"sync"
	"time"
)

// Store is the single canonical in-memory project/agent graph.
// Exported mutation methods are only ever meant to be called from one
// goroutine (the reconciler's apply loop, per §5's single-writer
// discipline) — Store itself only enforces the concurrency-safety
// half of that contract (callers may safely read concurrently via
// Snapshot while a write is briefly held), not the single-writer
// half, which is a caller discipline, exactly as the teacher's
// db.DB.mu serializes writes while reads flow through a separate pool.
type Store struct {
	mu sync.RWMutex

	projects map[string]*Project

	// completedWork is a ring buffer-like slice, capped at
	// completedWorkCap entries, newest first.
	completedWork []CompletedWorkItem

	// shellOfAgent/agentOfShell let backgroundTaskComplete(shellId)
	// find the agent a shell belongs to, and vice versa.
	shellOfAgent map[string]string
	agentOfShell map[string]string

	idleTimeout         time.Duration
	staleProjectTTL      time.Duration
	staleBlockedMainTTL  time.Duration
	completedWorkCap     int
	completedWorkTTL     time.Duration

	seq int // monotonic counter for CompletedWorkItem IDs
}

// Option configures a new Store.
type Option func(*Store)

func WithIdleTimeout(d time.Duration) Option        { return func(s *Store) { s.idleTimeout = d } }
func WithStaleProjectTTL(d time.Duration) Option     { return func(s *Store) { s.staleProjectTTL = d } }
func WithStaleBlockedMainTTL(d time.Duration) Option { return func(s *Store) { s.staleBlockedMainTTL = d } }
func WithCompletedWorkCap(n int) Option              { return func(s *Store) { s.completedWorkCap = n } }
func WithCompletedWorkTTL(d time.Duration) Option    { return func(s *Store) { s.completedWorkTTL = d } }

// New creates an empty Store with default tunables, overridable via
// Option.
func New(opts ...Option) *Store {
	s := &Store{
		projects:            make(map[string]*Project),
		shellOfAgent:        make(map[string]string),
		agentOfShell:        make(map[string]string),
		idleTimeout:         DefaultIdleTimeout,
		staleProjectTTL:     DefaultStaleProjectTTL,
		staleBlockedMainTTL: DefaultStaleBlockedMainTTL,
		completedWorkCap:    DefaultCompletedWorkCap,
		completedWorkTTL:    DefaultCompletedWorkTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// nextCompletedWorkID returns a monotonically increasing identifier
// for a new CompletedWorkItem. Called with mu held.
func (s *Store) nextCompletedWorkID() string {
	s.seq++
	return "work-" + itoa(s.seq)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// getOrCreateProject returns the project for rawPath, creating it if
// absent. Called with mu held. Returns the project and whether it was
// newly created.
func (s *Store) getOrCreateProject(rawPath string, now time.Time) (*Project, bool) {
	id := ProjectID(rawPath)
	if p, ok := s.projects[id]; ok {
		return p, false
	}
	p := &Project{
		ID:             id,
		Path:           NormalizePath(rawPath),
		Name:           DisplayName(rawPath),
		Status:         ProjectIdle,
		LastActivityAt: now,
		Agents:         make(map[string]*Agent),
	}
	s.projects[id] = p
	return p, true
}

// findProjectOfAgent locates the project containing the given agent
// id. Called with mu held.
func (s *Store) findProjectOfAgent(agentID string) (*Project, *Agent) {
	for _, p := range s.projects {
		if a, ok := p.Agents[agentID]; ok {
			return p, a
		}
	}
	return nil, nil
}

// findProjectByPath locates a project by raw path without creating
// it. Called with mu held.
func (s *Store) findProjectByPath(rawPath string) *Project {
	return s.projects[ProjectID(rawPath)]
}
