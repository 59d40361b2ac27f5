// Package reconcile implements the scheduler (C5): the sole writer of
// internal/store. It runs two timer-driven passes over the
// transcripts internal/discover finds active, dispatches events from
// internal/ingress's inbox, and publishes a fresh snapshot through
// internal/publish whenever a pass produces at least one observable
// change. Grounded on the teacher's sync/engine.go worker-pool shape
// (startWorkers/collectAndBatch fan-out over a fixed job count) and
// its syncMu single-flight discipline, generalized from "sync files
// into a database" to "reconcile transcripts into a live state
// graph."
package reconcile

import (
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/argus-dev/argus/internal/discover"
	"github.com/argus-dev/argus/internal/extract"
	"github.com/argus-dev/argus/internal/ingress"
	"github.com/argus-dev/argus/internal/obslog"
	"github.com/argus-dev/argus/internal/publish"
	"github.com/argus-dev/argus/internal/store"
	"github.com/argus-dev/argus/internal/transcript"
)

const (
	maxWorkers = 8
	inboxSize  = 256
)

// Tuning holds the timer cadences and protocol-version bounds the
// scheduler needs. Kept separate from internal/config so this package
// has no dependency on it — the caller (cmd/argusd) does the mapping.
type Tuning struct {
	FullReconcileInterval time.Duration
	FastActivityInterval  time.Duration
	CleanupInterval       time.Duration
	ProtocolVersionMin    string
	ProtocolVersionMax    string
}

// Scheduler is the single writer of a *store.Store (§5's single-writer
// discipline). Construct with New, then Start/Stop it.
type Scheduler struct {
	store     *store.Store
	publisher *publish.Publisher
	roots     discover.Roots
	tuning    Tuning
	log       obslog.Logger

	events      chan ingress.Event
	commands    chan ingress.Command
	surface     *ingress.Surface
	accelerated chan struct{}

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New builds a Scheduler over st, publishing through pub and scanning
// roots. The returned Scheduler is not yet running; call Start.
func New(st *store.Store, pub *publish.Publisher, roots discover.Roots, tuning Tuning) *Scheduler {
	s := &Scheduler{
		store:     st,
		publisher: pub,
		roots:     roots,
		tuning:    tuning,
		log:       obslog.New("reconcile"),
		events:      make(chan ingress.Event, inboxSize),
		commands:    make(chan ingress.Command, inboxSize),
		accelerated: make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	s.surface = ingress.New(s.events, s.commands, tuning.ProtocolVersionMin, tuning.ProtocolVersionMax)
	return s
}

// Surface returns the ingress entry point wired to this scheduler's
// inbox, for internal/httpapi to hand POST /events and commands to.
func (s *Scheduler) Surface() *ingress.Surface {
	return s.surface
}

// NotifyChange nudges the full-reconcile pass to run sooner than its
// timer. Wire this as the callback to discover.NewAccelerator: the
// accelerator detects a filesystem write and calls this from its own
// goroutine, but the actual reconcile still only ever runs on the
// scheduler's single run loop — this just queues the request.
func (s *Scheduler) NotifyChange() {
	select {
	case s.accelerated <- struct{}{}:
	default:
	}
}

// Start runs the scheduler's loops in a background goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop signals the scheduler to finish its current pass and exit,
// then blocks until it has (§5's shutdown contract: finish, then stop
// timers, no partial mutation left behind).
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)

	fullTicker := time.NewTicker(s.tuning.FullReconcileInterval)
	fastTicker := time.NewTicker(s.tuning.FastActivityInterval)
	cleanupTicker := time.NewTicker(s.tuning.CleanupInterval)
	defer fullTicker.Stop()
	defer fastTicker.Stop()
	defer cleanupTicker.Stop()

	s.fullReconcile(time.Now())

	for {
		select {
		case <-s.stop:
			return

		case <-fullTicker.C:
			s.fullReconcile(time.Now())

		case <-s.accelerated:
			s.fullReconcile(time.Now())

		case <-fastTicker.C:
			s.fastActivityPass(time.Now())

		case <-cleanupTicker.C:
			now := time.Now()
			if s.store.Cleanup(now) {
				s.publish()
			}

		case ev := <-s.events:
			now := eventTime(ev, time.Now())
			if s.dispatchEvent(ev, now) {
				s.publish()
			}

		case cmd := <-s.commands:
			s.dispatchCommand(cmd)
		}
	}
}

func (s *Scheduler) publish() {
	s.publisher.Publish(s.store.Snapshot())
}

// fullReconcile implements §4.5's full pass: discover every active
// transcript, parse and extract from each (fanned out across a
// worker pool, mirroring the teacher's startWorkers/collectAndBatch
// shape), then apply the resulting transitions to the store serially
// in discovery order, since the store is single-writer.
func (s *Scheduler) fullReconcile(now time.Time) {
	files := discover.Scan(s.roots, now)
	if len(files) == 0 {
		return
	}

	results := s.startWorkers(files)
	changed := false
	for range files {
		pf := <-results
		if s.applyParsed(pf, now) {
			changed = true
		}
	}
	if changed {
		s.publish()
	}
}

// parsedFile is the pure, store-independent result of reading one
// transcript: everything a worker can compute without touching
// internal/store.
type parsedFile struct {
	file       discover.File
	entries    []transcript.Entry
	flavor     transcript.Flavor
	cwd        string
	agentID    string
	parentID   string
	isSubagent bool
	name       string
	task       string
	err        error
}

// startWorkers fans file parsing across a bounded pool and returns a
// channel that yields exactly len(files) results, in no particular
// order — the same shape as the teacher's sync.Engine.startWorkers.
func (s *Scheduler) startWorkers(files []discover.File) <-chan parsedFile {
	workers := min(max(runtime.NumCPU(), 2), maxWorkers)

	jobs := make(chan discover.File, len(files))
	results := make(chan parsedFile, len(files))

	for range workers {
		go func() {
			for f := range jobs {
				results <- s.parseFile(f)
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	return results
}

// parseFile reads and extracts everything reconcile needs from one
// transcript. It never touches internal/store.
func (s *Scheduler) parseFile(f discover.File) parsedFile {
	entries, flavor, err := transcript.Parse(f.Path)
	if err != nil {
		return parsedFile{file: f, err: err}
	}

	agentID, parentID, isSubagent := identifyAgent(f)
	cwd := sessionMetaCwd(entries)

	pf := parsedFile{
		file:       f,
		entries:    entries,
		flavor:     flavor,
		cwd:        cwd,
		agentID:    agentID,
		parentID:   parentID,
		isSubagent: isSubagent,
	}
	if task, ok := extract.InitialTask(entries); ok {
		pf.task = task
	}
	switch {
	case flavor == transcript.FlavorOpenClaw:
		pf.name = extract.OpenClawAgentName(cwd, f.Path)
	case isSubagent:
		pf.name = agentID
	}
	return pf
}

// identifyAgent derives a transcript's agent id and, for a nested
// Claude Code subagent file, its parent session id. The nesting shape
// is .../<sessionId>/subagents/agent-*.jsonl (§4.3); everything else
// (Claude top-level sessions, all OpenClaw sessions) is a main agent.
func identifyAgent(f discover.File) (agentID, parentID string, isSubagent bool) {
	agentID = strings.TrimSuffix(filepath.Base(f.Path), ".jsonl")
	dir := filepath.Dir(f.Path)
	if filepath.Base(dir) == "subagents" {
		return agentID, filepath.Base(filepath.Dir(dir)), true
	}
	return agentID, "", false
}

// sessionMetaCwd returns the first authoritative cwd stamped on any
// entry of the transcript. §9: never decode the directory name
// instead; the cwd inside the file is the only trustworthy source.
func sessionMetaCwd(entries []transcript.Entry) string {
	for _, e := range entries {
		if e.Kind == transcript.KindSessionMeta && e.Cwd != "" {
			return e.Cwd
		}
	}
	return ""
}

// applyParsed runs §4.5's full-reconcile transition order against one
// parsed transcript: ensure project & session registered, update
// modes/activity/todos/last-user-message/task, then evaluate blocking
// conditions in priority order.
func (s *Scheduler) applyParsed(pf parsedFile, now time.Time) (changed bool) {
	if pf.err != nil {
		s.log.Warnf("reading %s: %v", pf.file.Path, pf.err)
		return false
	}
	if pf.cwd == "" {
		// No SessionMeta seen yet (e.g. a brand new file whose first
		// lines haven't been flushed); wait for the next pass.
		return false
	}

	if pf.isSubagent {
		if s.store.OnAgentSpawn(pf.parentID, pf.agentID, pf.name, pf.task, store.AgentSubagent, "", now) {
			changed = true
		}
	} else {
		if s.store.OnSessionStart(pf.cwd, pf.agentID, pf.name, pf.task, pf.file.Path, now) {
			changed = true
		}
	}

	if s.store.UpdateSessionTask(pf.agentID, pf.task, now) {
		changed = true
	}
	if s.applyActivityAndTodos(pf.agentID, pf.entries, now) {
		changed = true
	}
	if s.store.UpdateAgentPlanningMode(pf.agentID, extract.PlanMode(pf.entries), now) {
		changed = true
	}
	if msg, ok := extract.LastUserMessage(pf.entries); ok {
		if s.store.UpdateLastUserMessage(pf.cwd, msg, now) {
			changed = true
		}
	}
	if s.evaluateBlockingConditions(pf.agentID, pf.entries, now) {
		changed = true
	}
	return changed
}

// applyActivityAndTodos updates currentActivity and the todo list —
// the two fields both the full and fast passes refresh.
func (s *Scheduler) applyActivityAndTodos(agentID string, entries []transcript.Entry, now time.Time) (changed bool) {
	if activity, _, ok := extract.CurrentActivity(entries); ok {
		if s.store.UpdateCurrentActivity(agentID, activity, now) {
			changed = true
		}
	}
	if items, counts, _, ok := extract.Todos(entries); ok {
		storeItems := make([]store.TodoItem, len(items))
		for i, it := range items {
			storeItems[i] = store.TodoItem{
				Content:    it.Content,
				Status:     store.TodoStatus(it.Status),
				ActiveForm: it.ActiveForm,
			}
		}
		if s.store.UpdateAgentTodos(agentID, storeItems, store.TodoCounts(counts), now) {
			changed = true
		}
	}
	return changed
}

// evaluateBlockingConditions applies §4.5's fixed priority order:
// pendingQuestion > systemError > rateLimit > serverRunning >
// otherwise unblock.
func (s *Scheduler) evaluateBlockingConditions(agentID string, entries []transcript.Entry, now time.Time) bool {
	if q, _, ok := extract.PendingQuestion(entries); ok {
		return s.store.OnAgentBlocked(agentID, q, now)
	}
	if _, _, ok := extract.SystemError(entries); ok {
		return s.store.OnAgentError(agentID, now)
	}
	if msg, resetAt, _, ok := extract.RateLimit(entries, now); ok {
		return s.store.OnAgentRateLimited(agentID, msg, resetAt, now)
	}
	if _, _, _, ok := extract.ServerRunning(entries); ok {
		return s.store.OnAgentServerRunning(agentID, now)
	}
	return s.store.OnActivity(agentID, now)
}

// fastActivityPass implements §4.5's fast loop: restricted to working
// agents with a known transcriptPath, refreshing only currentActivity
// and todos. It deliberately skips registration, modes, and blocking
// evaluation — those stay on the full-reconcile cadence.
func (s *Scheduler) fastActivityPass(now time.Time) {
	snap := s.store.Snapshot()
	changed := false
	for _, p := range snap.Projects {
		for _, a := range p.Agents {
			if a.Status != store.AgentWorking || a.TranscriptPath == "" {
				continue
			}
			entries, _, err := transcript.Parse(a.TranscriptPath)
			if err != nil {
				continue
			}
			if s.applyActivityAndTodos(a.ID, entries, now) {
				changed = true
			}
		}
	}
	if changed {
		s.publish()
	}
}

// dispatchEvent applies an ingress event with the same priority rules
// as the full pass (§4.5). An event naming an unknown session
// auto-registers it (§7), except session_start itself, which already
// carries full registration details.
func (s *Scheduler) dispatchEvent(ev ingress.Event, now time.Time) (changed bool) {
	if ev.Type != ingress.EventSessionStart {
		if s.store.OnSessionStart(ev.ProjectPath, ev.SessionID, ev.AgentName, ev.Task, "", now) {
			changed = true
		}
	}

	switch ev.Type {
	case ingress.EventSessionStart:
		if s.store.OnSessionStart(ev.ProjectPath, ev.SessionID, ev.AgentName, ev.Task, "", now) {
			changed = true
		}

	case ingress.EventSessionEnd:
		if s.store.OnSessionEnd(ev.SessionID, now) {
			changed = true
		}

	case ingress.EventAgentSpawn:
		agentType := store.AgentSubagent
		shellID := ""
		if ev.AgentType == "background" {
			agentType = store.AgentBackground
			shellID = ev.AgentID
		}
		if s.store.OnAgentSpawn(ev.SessionID, ev.AgentID, ev.AgentName, ev.Task, agentType, shellID, now) {
			changed = true
		}

	case ingress.EventAgentBlocked:
		if s.store.OnAgentBlocked(targetAgent(ev), ev.Question, now) {
			changed = true
		}

	case ingress.EventAgentUnblocked:
		if s.store.OnAgentUnblocked(targetAgent(ev), now) {
			changed = true
		}

	case ingress.EventAgentComplete:
		if ev.Metadata != nil && ev.Metadata.BackgroundTaskComplete != "" {
			if s.store.OnBackgroundTaskComplete(ev.Metadata.BackgroundTaskComplete, now) {
				changed = true
			}
		} else if s.store.OnAgentComplete(ev.ProjectPath, ev.AgentID, ev.AgentName, now) {
			changed = true
		}

	case ingress.EventActivity:
		if s.store.OnActivity(targetAgent(ev), now) {
			changed = true
		}
		if ev.Metadata != nil {
			modes := store.Modes{
				Ralph:              ev.Metadata.RalphIteration > 0,
				Ultrawork:          ev.Metadata.UltraworkActive,
				RalphIteration:     ev.Metadata.RalphIteration,
				RalphMaxIterations: ev.Metadata.RalphMaxIterations,
			}
			if s.store.UpdateAgentModes(targetAgent(ev), modes, now) {
				changed = true
			}
		}

	default:
		s.log.Warnf("ingress: unhandled event type %q", ev.Type)
	}
	return changed
}

// dispatchCommand handles an operator command. Neither command type
// touches the filesystem or a process on the daemon's behalf (§4.7) —
// the daemon only logs that it was asked.
func (s *Scheduler) dispatchCommand(cmd ingress.Command) {
	switch cmd.Type {
	case ingress.CommandOpenProject:
		s.log.Infof("open-project requested: %s", cmd.ProjectPath)
	case ingress.CommandCopyPath:
		s.log.Infof("copy-path requested: %s", cmd.Path)
	default:
		s.log.Warnf("ingress: unhandled command type %q", cmd.Type)
	}
}

func targetAgent(ev ingress.Event) string {
	if ev.AgentID != "" {
		return ev.AgentID
	}
	return ev.SessionID
}

func eventTime(ev ingress.Event, fallback time.Time) time.Time {
	if ev.Timestamp > 0 {
		return time.UnixMilli(ev.Timestamp)
	}
	return fallback
}
