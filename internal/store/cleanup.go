package store

import "time"

// Cleanup runs the periodic eviction pass (§4.4's "stale project",
// "stale blocked main", and completed-work TTL rules) and reports
// whether it changed anything observable. It is itself a transition,
// applied on its own timer by reconcile (the 5-minute cleanup
// cadence), not on every reconcile tick.
func (s *Store) Cleanup(now time.Time) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.projects {
		for agentID, a := range p.Agents {
			switch {
			case a.Type == AgentMain && a.Status == AgentBlocked &&
				!p.BlockedSince.IsZero() && now.Sub(p.BlockedSince) > s.staleBlockedMainTTL:
				delete(p.Agents, agentID)
				delete(s.shellOfAgent, agentID)
				changed = true
			case a.Status == AgentComplete && now.Sub(a.LastActivityAt) > s.staleProjectTTL:
				delete(p.Agents, agentID)
				delete(s.shellOfAgent, agentID)
				changed = true
			}
		}

		if len(p.Agents) == 0 && now.Sub(p.LastActivityAt) > s.staleProjectTTL {
			delete(s.projects, id)
			changed = true
			continue
		}

		if p.recompute(now, s.idleTimeout) {
			changed = true
		}
	}

	kept := s.completedWork[:0:0]
	for _, item := range s.completedWork {
		if now.Sub(item.CompletedAt) <= s.completedWorkTTL {
			kept = append(kept, item)
		} else {
			changed = true
		}
	}
	s.completedWork = kept

	return changed
}
