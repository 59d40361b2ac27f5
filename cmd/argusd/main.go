// Command argusd is the Argus supervision daemon: it discovers active
// Claude Code and OpenClaw transcripts, reconciles their state, and
// serves the result over HTTP/WS. Its flag/subcommand dispatch and
// log-file setup follow the teacher's cmd/agentsview/main.go shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/argus-dev/argus/internal/config"
	"github.com/argus-dev/argus/internal/discover"
	"github.com/argus-dev/argus/internal/httpapi"
	"github.com/argus-dev/argus/internal/publish"
	"github.com/argus-dev/argus/internal/reconcile"
	"github.com/argus-dev/argus/internal/store"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const watcherDebounce = 500 * time.Millisecond

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("argusd %s (commit %s, built %s)\n", version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}
	runServe(os.Args[1:])
}

func printUsage() {
	fmt.Printf(`argusd %s - local supervision daemon for concurrent agent sessions

Watches Claude Code and OpenClaw transcripts, aggregates live session
state, and serves it over HTTP and WebSocket for a menu-bar or
terminal dashboard to subscribe to.

Usage:
  argusd [flags]          Start the daemon (default command)
  argusd serve [flags]    Start the daemon (explicit)
  argusd version          Show version information
  argusd help             Show this help

Server flags:
  -host string                 Host to bind to (default "127.0.0.1")
  -port int                    Port to listen on (default 4242)
  -claude-projects-dir string  Override the Claude Code scan root
  -openclaw-agents-dir string  Override the OpenClaw scan root

Environment variables:
  ARGUS_HOST            Host to bind to
  ARGUS_PORT             Port to listen on
  ARGUS_DATA_DIR          Data directory (config, logs)
  CLAUDE_PROJECTS_DIR     Claude Code projects directory
  OPENCLAW_AGENTS_DIR     OpenClaw agents directory

Data and logs are stored in ~/.argus/ by default.
`, version)
}

func runServe(args []string) {
	start := time.Now()
	cfg := mustLoadConfig(args)
	setupLogFile(cfg.DataDir)

	roots := discover.Roots{
		ClaudeProjectsDir: cfg.ClaudeProjectsDir,
		OpenClawAgentsDir: cfg.OpenClawAgentsDir,
	}
	warnMissingDir(cfg.ClaudeProjectsDir, "claude")
	warnMissingDir(cfg.OpenClawAgentsDir, "openclaw")

	st := store.New(
		store.WithIdleTimeout(cfg.IdleTimeout),
		store.WithStaleProjectTTL(cfg.StaleProjectTTL),
		store.WithStaleBlockedMainTTL(cfg.StaleBlockedMainTTL),
		store.WithCompletedWorkCap(cfg.CompletedWorkCap),
		store.WithCompletedWorkTTL(cfg.CompletedWorkTTL),
	)
	pub := publish.New()
	defer pub.Close()

	tuning := reconcile.Tuning{
		FullReconcileInterval: cfg.FullReconcileInterval,
		FastActivityInterval:  cfg.FastActivityInterval,
		CleanupInterval:       cfg.CleanupInterval,
		ProtocolVersionMin:    cfg.ProtocolVersionMin,
		ProtocolVersionMax:    cfg.ProtocolVersionMax,
	}
	scheduler := reconcile.New(st, pub, roots, tuning)

	accel, err := discover.NewAccelerator(watcherDebounce, scheduler.NotifyChange)
	if err != nil {
		log.Printf("warning: file watcher unavailable: %v; full reconcile will run on its timer only", err)
	} else {
		accel.WatchRoots(roots)
		accel.Start()
		defer accel.Stop()
	}

	scheduler.Start()
	defer scheduler.Stop()

	srv := httpapi.New(cfg, scheduler, st, pub, httpapi.VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	url := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	fmt.Printf("argusd %s listening at %s (started in %s)\n",
		version, url, time.Since(start).Round(time.Millisecond))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server error: %v", err)
	case <-sigCh:
		fmt.Println("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("warning: graceful shutdown: %v", err)
		}
	}
}

func warnMissingDir(dir, label string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		log.Printf("warning: %s directory not found: %s", label, dir)
	}
}

func mustLoadConfig(args []string) config.Config {
	fs := flag.NewFlagSet("argusd", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: argusd [serve] [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	config.RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}
	return cfg
}

func setupLogFile(dataDir string) {
	logPath := filepath.Join(dataDir, "debug.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("warning: cannot open log file: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
}
