package store

import "time"

// OnSessionStart registers a project's main agent, creating the
// project if this is the first session seen for it. A new session id
// claiming the same project replaces any existing main agent there
// (I1: a project has at most one main agent).
func (s *Store) OnSessionStart(rawPath, agentID, name, task, transcriptPath string, now time.Time) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, created := s.getOrCreateProject(rawPath, now)
	if a, ok := p.Agents[agentID]; ok && a.Type == AgentMain {
		a.LastActivityAt = now
		if transcriptPath != "" {
			a.TranscriptPath = transcriptPath
		}
		return p.recompute(now, s.idleTimeout) || created
	}

	for id, a := range p.Agents {
		if a.Type == AgentMain && id != agentID {
			delete(p.Agents, id)
		}
	}

	p.Agents[agentID] = &Agent{
		ID:             agentID,
		Type:           AgentMain,
		Name:           name,
		Task:           task,
		Status:         AgentWorking,
		SpawnedAt:      now,
		LastActivityAt: now,
		TranscriptPath: transcriptPath,
	}
	p.LastActivityAt = now
	p.recompute(now, s.idleTimeout)
	return true
}

// OnSessionEnd marks the referenced agent complete; the project's
// stale-cleanup pass is responsible for eventually evicting a
// complete main agent whose transcript has gone silent.
func (s *Store) OnSessionEnd(agentID string, now time.Time) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, a := s.findProjectOfAgent(agentID)
	if p == nil || a == nil || a.Status == AgentComplete {
		return false
	}
	a.Status = AgentComplete
	a.LastActivityAt = now
	p.LastActivityAt = now
	p.recompute(now, s.idleTimeout)
	return true
}

// OnAgentSpawn registers a subagent or background shell under
// parentID. I4 requires ParentID to name an existing agent in the
// same project; callers (reconcile) are expected to only spawn
// children after their parent session is already registered.
// shellID is only meaningful for agentType == AgentBackground: it is
// recorded in a side table so a later OnBackgroundTaskComplete(shellID)
// can find and complete this agent.
func (s *Store) OnAgentSpawn(parentID, agentID, name, task string, agentType AgentType, shellID string, now time.Time) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, parent := s.findProjectOfAgent(parentID)
	if p == nil || parent == nil {
		return false
	}
	if _, exists := p.Agents[agentID]; exists {
		return false
	}
	p.Agents[agentID] = &Agent{
		ID:             agentID,
		Type:           agentType,
		ParentID:       parentID,
		Name:           name,
		Task:           task,
		Status:         AgentWorking,
		SpawnedAt:      now,
		LastActivityAt: now,
	}
	parent.DelegatingTo = agentID
	if agentType == AgentBackground && shellID != "" {
		s.shellOfAgent[agentID] = shellID
		s.agentOfShell[shellID] = agentID
	}
	p.LastActivityAt = now
	p.recompute(now, s.idleTimeout)
	return true
}

// OnAgentBlocked marks an agent blocked on a pending question (I2:
// Question is non-empty iff Status == blocked).
func (s *Store) OnAgentBlocked(agentID, question string, now time.Time) (changed bool) {
	return s.withAgent(agentID, now, func(p *Project, a *Agent) bool {
		if a.Status == AgentBlocked && a.Question == question {
			return false
		}
		a.Status = AgentBlocked
		a.Question = question
		a.LastActivityAt = now
		return true
	})
}

// OnAgentUnblocked clears a blocked agent's question and returns it to
// working.
func (s *Store) OnAgentUnblocked(agentID string, now time.Time) (changed bool) {
	return s.withAgent(agentID, now, func(p *Project, a *Agent) bool {
		if a.Status != AgentBlocked {
			return false
		}
		a.Status = AgentWorking
		a.Question = ""
		a.LastActivityAt = now
		return true
	})
}

// OnAgentComplete marks a subagent or background agent's work as
// finished, appending a CompletedWorkItem (§3) and retiring the
// agent. Lookup order per §4.4: (a) by agentID if non-empty; (b) else
// by agentName among working subagents in rawPath's project, choosing
// the most recently spawned; (c) else fall back to rawPath's main
// session. A completed main agent is left registered with Status
// complete — reconcile's stale cleanup pass retires it once the
// transcript is no longer being touched.
func (s *Store) OnAgentComplete(rawPath, agentID, agentName string, now time.Time) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p *Project
	var a *Agent
	if agentID != "" {
		p, a = s.findProjectOfAgent(agentID)
	}
	if a == nil && agentName != "" {
		if proj := s.findProjectByPath(rawPath); proj != nil {
			var best *Agent
			for _, cand := range proj.Agents {
				if cand.Type != AgentSubagent || cand.Status != AgentWorking || cand.Name != agentName {
					continue
				}
				if best == nil || cand.SpawnedAt.After(best.SpawnedAt) {
					best = cand
				}
			}
			if best != nil {
				p, a = proj, best
			}
		}
	}
	if a == nil {
		if proj := s.findProjectByPath(rawPath); proj != nil {
			for _, cand := range proj.Agents {
				if cand.Type == AgentMain {
					p, a = proj, cand
					break
				}
			}
		}
	}
	if p == nil || a == nil || a.Status == AgentComplete {
		return false
	}
	a.Status = AgentComplete
	a.LastActivityAt = now

	if a.Type != AgentMain {
		s.completedWork = append([]CompletedWorkItem{{
			ID:          s.nextCompletedWorkID(),
			AgentName:   a.Name,
			Task:        a.Task,
			CompletedAt: now,
			ProjectID:   p.ID,
			ProjectName: p.Name,
		}}, s.completedWork...)
		if len(s.completedWork) > s.completedWorkCap {
			s.completedWork = s.completedWork[:s.completedWorkCap]
		}
		delete(p.Agents, a.ID)
		delete(s.shellOfAgent, a.ID)
	}

	p.LastActivityAt = now
	p.recompute(now, s.idleTimeout)
	return true
}

// OnBackgroundTaskComplete resolves shellID to its owning agent and
// applies OnAgentComplete to it.
func (s *Store) OnBackgroundTaskComplete(shellID string, now time.Time) (changed bool) {
	s.mu.RLock()
	agentID, ok := s.agentOfShell[shellID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return s.OnAgentComplete("", agentID, "", now)
}

// OnAgentRateLimited marks an agent rate limited with the reported
// reset time.
func (s *Store) OnAgentRateLimited(agentID, message string, resetAt time.Time, now time.Time) (changed bool) {
	return s.withAgent(agentID, now, func(p *Project, a *Agent) bool {
		if a.Status == AgentRateLimited && a.RateLimitResetAt.Equal(resetAt) {
			return false
		}
		a.Status = AgentRateLimited
		a.RateLimitResetAt = resetAt
		a.LastActivityAt = now
		return true
	})
}

// OnAgentServerRunning marks an agent as having a detected dev/app
// server running in its current activity.
func (s *Store) OnAgentServerRunning(agentID string, now time.Time) (changed bool) {
	return s.withAgent(agentID, now, func(p *Project, a *Agent) bool {
		if a.Status == AgentServerRunning {
			return false
		}
		a.Status = AgentServerRunning
		a.LastActivityAt = now
		return true
	})
}

// OnActivity returns an agent to working, clearing any blocked/
// rate-limited/server-running/error condition that the current pass
// no longer observes. This is the "otherwise unblock" branch of
// §4.5's priority list: a reconcile pass that finds none of
// pendingQuestion/systemError/rateLimit/serverRunning applies this.
// complete is the one terminal status (§9's open question): once
// complete, an agent never re-enters working under this session id.
//
// It only touches LastActivityAt when actually transitioning status
// or clearing a question — an agent already working with no pending
// question is left untouched, the same "no bump without an observable
// change" rule UpdateCurrentActivity follows, so idle detection can
// still fire on a dormant transcript the scheduler keeps re-polling.
func (s *Store) OnActivity(agentID string, now time.Time) (changed bool) {
	return s.withAgentNoTouch(agentID, func(p *Project, a *Agent) bool {
		if a.Status == AgentComplete {
			return false
		}
		if a.Status == AgentWorking && a.Question == "" {
			return false
		}
		a.Status = AgentWorking
		a.Question = ""
		a.LastActivityAt = now
		return true
	}, now)
}

// OnAgentError marks an agent as having hit a user-actionable system
// error (prompt/context overflow). currentActivity is left untouched,
// the same memento behavior as OnAgentBlocked.
func (s *Store) OnAgentError(agentID string, now time.Time) (changed bool) {
	return s.withAgent(agentID, now, func(p *Project, a *Agent) bool {
		if a.Status == AgentError {
			return false
		}
		a.Status = AgentError
		a.LastActivityAt = now
		return true
	})
}

// UpdateAgentPlanningMode sets only the Planning flag, leaving the
// ralph/ultrawork fields (set from ingress metadata) untouched — a
// full replacement via UpdateAgentModes would otherwise clobber them
// every reconcile pass.
func (s *Store) UpdateAgentPlanningMode(agentID string, planning bool, now time.Time) (changed bool) {
	return s.withAgent(agentID, now, func(p *Project, a *Agent) bool {
		if a.Modes.Planning == planning {
			return false
		}
		a.Modes.Planning = planning
		return true
	})
}

// UpdateCurrentActivity sets the human-readable activity summary
// (§4.2.1). Critically, it bumps LastActivityAt only when the string
// actually changes — this is what lets idle detection work even while
// the scheduler keeps polling a dormant transcript on a timer.
func (s *Store) UpdateCurrentActivity(agentID, activity string, now time.Time) (changed bool) {
	return s.withAgentNoTouch(agentID, func(p *Project, a *Agent) bool {
		if a.CurrentActivity == activity {
			return false
		}
		a.CurrentActivity = activity
		a.LastActivityAt = now
		return true
	}, now)
}

// UpdateAgentTodos replaces an agent's todo snapshot (§4.2.2: todos
// are a full replacement, never a delta).
func (s *Store) UpdateAgentTodos(agentID string, todos []TodoItem, counts TodoCounts, now time.Time) (changed bool) {
	return s.withAgent(agentID, now, func(p *Project, a *Agent) bool {
		if todosEqual(a.Todos, todos) && a.TodoCounts == counts {
			return false
		}
		a.Todos = append([]TodoItem(nil), todos...)
		a.TodoCounts = counts
		return true
	})
}

func todosEqual(a, b []TodoItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// UpdateAgentModes sets the Ralph/Ultrawork/Planning mode flags.
func (s *Store) UpdateAgentModes(agentID string, modes Modes, now time.Time) (changed bool) {
	return s.withAgent(agentID, now, func(p *Project, a *Agent) bool {
		if a.Modes == modes {
			return false
		}
		a.Modes = modes
		return true
	})
}

// UpdateLastUserMessage records a project's most recent user message
// (§4.2.9), keyed by raw project path since it is observed before any
// agent necessarily exists.
func (s *Store) UpdateLastUserMessage(rawPath, message string, now time.Time) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, created := s.getOrCreateProject(rawPath, now)
	if p.LastUserMessage == message && !created {
		return false
	}
	p.LastUserMessage = message
	return true
}

// UpdateSessionTask sets an agent's Task exactly once; subsequent
// calls are no-ops, since Task is documented as immutable once set.
func (s *Store) UpdateSessionTask(agentID, task string, now time.Time) (changed bool) {
	return s.withAgent(agentID, now, func(p *Project, a *Agent) bool {
		if a.Task != "" || task == "" {
			return false
		}
		a.Task = task
		return true
	})
}

// withAgent looks up agentID, applies fn under the write lock, then
// recomputes the owning project's derived status.
func (s *Store) withAgent(agentID string, now time.Time, fn func(*Project, *Agent) bool) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, a := s.findProjectOfAgent(agentID)
	if p == nil || a == nil {
		return false
	}
	if fn(p, a) {
		changed = true
	}
	p.LastActivityAt = now
	if p.recompute(now, s.idleTimeout) {
		changed = true
	}
	return changed
}

// withAgentNoTouch is withAgent but only advances the project's
// LastActivityAt when fn reports a change, matching
// updateCurrentActivity's "only on actual change" rule (§4.4).
func (s *Store) withAgentNoTouch(agentID string, fn func(*Project, *Agent) bool, now time.Time) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, a := s.findProjectOfAgent(agentID)
	if p == nil || a == nil {
		return false
	}
	if fn(p, a) {
		changed = true
		p.LastActivityAt = now
	}
	if p.recompute(now, s.idleTimeout) {
		changed = true
	}
	return changed
}
