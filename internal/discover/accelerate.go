package discover

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Accelerator watches the two transcript roots and calls onChange
// shortly after a write/create is observed on disk. It never replaces
// the scheduler's timer-driven polling (§4.5's full reconcile and fast
// activity check remain the source of truth) — it only shortens the
// wait between a file changing and the next reconcile pass.
//
// Ported from the teacher's Watcher (sync/watcher.go): same
// debounce-with-a-pending-set shape, same Stop()/stopOnce/done-channel
// shutdown idiom, generalized to call a zero-argument callback instead
// of passing along the list of changed paths (the scheduler only cares
// that *something* changed, not what).
type Accelerator struct {
	onChange func()
	watcher  *fsnotify.Watcher
	debounce time.Duration
	pending  bool
	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewAccelerator creates an accelerator that calls onChange (debounced
// by debounce) whenever a write or create event lands on a watched
// root.
func NewAccelerator(debounce time.Duration, onChange func()) (*Accelerator, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Accelerator{
		onChange: onChange,
		watcher:  fsw,
		debounce: debounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// WatchRoots adds roots (and, best-effort, their immediate
// subdirectories, since both Claude and OpenClaw nest one directory
// level deeper before the session files live) to the watch list.
func (a *Accelerator) WatchRoots(roots Roots) {
	a.watchShallow(roots.ClaudeProjectsDir)
	a.watchShallow(roots.OpenClawAgentsDir)
}

func (a *Accelerator) watchShallow(root string) {
	_ = a.watcher.Add(root)
	matches, _ := filepath.Glob(filepath.Join(root, "*"))
	for _, m := range matches {
		_ = a.watcher.Add(m)
		// OpenClaw nests a further "sessions" directory.
		sessions := filepath.Join(m, "sessions")
		_ = a.watcher.Add(sessions)
	}
}

// Start begins processing events in a background goroutine.
func (a *Accelerator) Start() {
	go a.loop()
}

// Stop stops the accelerator and waits for its goroutine to exit.
func (a *Accelerator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stop)
		<-a.done
		a.watcher.Close()
	})
}

func (a *Accelerator) loop() {
	defer close(a.done)
	ticker := time.NewTicker(a.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case event, ok := <-a.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			a.mu.Lock()
			a.pending = true
			a.mu.Unlock()
		case _, ok := <-a.watcher.Errors:
			if !ok {
				return
			}
		case <-ticker.C:
			a.flush()
		}
	}
}

func (a *Accelerator) flush() {
	a.mu.Lock()
	fire := a.pending
	a.pending = false
	a.mu.Unlock()
	if fire && a.onChange != nil {
		a.onChange()
	}
}
