// Package discover walks the two transcript roots Argus watches
// (Claude Code's per-project JSONL directories and OpenClaw's
// per-agent session directories) and yields the set of transcripts
// that look "active" right now (C3). It never parses transcript
// content — that is internal/transcript's job — it only looks at
// paths and mtimes, grounded on the teacher's DiscoverClaudeProjects
// directory walk (parser/discovery.go, sync/discovery.go).
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/argus-dev/argus/internal/transcript"
)

// ActiveThreshold is how recently a transcript must have been written
// to in order to be considered "active" (§4.3). Claude Code sessions
// go quiet fast once a prompt finishes; OpenClaw agents run longer
// between turns, so it gets a longer leash.
const (
	ClaudeActiveThreshold   = 5 * time.Minute
	OpenClawActiveThreshold = 30 * time.Minute
)

// File describes one discovered, currently-active transcript.
type File struct {
	Path    string
	Flavor  transcript.Flavor
	ModTime time.Time
}

// isDirOrSymlink reports whether entry is a directory, or a symlink
// that resolves to one. Ported from the teacher's directory-walking
// helper (parser/discovery.go) — identical shape, renamed file
// families.
func isDirOrSymlink(entry os.DirEntry, parentDir string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(filepath.Join(parentDir, entry.Name()))
	return err == nil && fi.IsDir()
}

// ScanClaude walks $HOME/.claude/projects/<encoded-dir>/*.jsonl and
// returns every file whose mtime is within ClaudeActiveThreshold of
// now. Subagent transcripts nested under
// <project>/<session>/subagents/agent-*.jsonl are included too.
func ScanClaude(projectsDir string, now time.Time) []File {
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		return nil
	}

	var files []File
	for _, entry := range entries {
		if !isDirOrSymlink(entry, projectsDir) {
			continue
		}
		projDir := filepath.Join(projectsDir, entry.Name())
		sessionFiles, err := os.ReadDir(projDir)
		if err != nil {
			continue
		}

		for _, sf := range sessionFiles {
			if sf.IsDir() {
				addActiveSubagents(&files, filepath.Join(projDir, sf.Name()), now)
				continue
			}
			name := sf.Name()
			if !strings.HasSuffix(name, ".jsonl") {
				continue
			}
			if f, ok := activeFile(filepath.Join(projDir, name), sf, now, ClaudeActiveThreshold); ok {
				f.Flavor = transcript.FlavorClaude
				files = append(files, f)
			}
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

func addActiveSubagents(files *[]File, sessionDir string, now time.Time) {
	subagentsDir := filepath.Join(sessionDir, "subagents")
	subFiles, err := os.ReadDir(subagentsDir)
	if err != nil {
		return
	}
	for _, sub := range subFiles {
		if sub.IsDir() {
			continue
		}
		name := sub.Name()
		if !strings.HasPrefix(name, "agent-") || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		if f, ok := activeFile(filepath.Join(subagentsDir, name), sub, now, ClaudeActiveThreshold); ok {
			f.Flavor = transcript.FlavorClaude
			*files = append(*files, f)
		}
	}
}

// ScanOpenClaw walks $HOME/.openclaw/agents/<agentId>/sessions/*.jsonl,
// skipping any file with ".deleted." in its name, and returns every
// file whose mtime is within OpenClawActiveThreshold of now.
func ScanOpenClaw(agentsDir string, now time.Time) []File {
	entries, err := os.ReadDir(agentsDir)
	if err != nil {
		return nil
	}

	var files []File
	for _, entry := range entries {
		if !isDirOrSymlink(entry, agentsDir) {
			continue
		}
		sessionsDir := filepath.Join(agentsDir, entry.Name(), "sessions")
		sessionFiles, err := os.ReadDir(sessionsDir)
		if err != nil {
			continue
		}
		for _, sf := range sessionFiles {
			if sf.IsDir() {
				continue
			}
			name := sf.Name()
			if !strings.HasSuffix(name, ".jsonl") || strings.Contains(name, ".deleted.") {
				continue
			}
			if f, ok := activeFile(filepath.Join(sessionsDir, name), sf, now, OpenClawActiveThreshold); ok {
				f.Flavor = transcript.FlavorOpenClaw
				files = append(files, f)
			}
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

func activeFile(path string, entry os.DirEntry, now time.Time, threshold time.Duration) (File, bool) {
	info, err := entry.Info()
	if err != nil {
		return File{}, false
	}
	if now.Sub(info.ModTime()) >= threshold {
		return File{}, false
	}
	return File{Path: path, ModTime: info.ModTime()}, true
}

// Roots holds the two configured transcript root directories.
type Roots struct {
	ClaudeProjectsDir string
	OpenClawAgentsDir string
}

// Scan runs both scanners and returns their combined, path-sorted
// result.
func Scan(roots Roots, now time.Time) []File {
	files := append(ScanClaude(roots.ClaudeProjectsDir, now), ScanOpenClaw(roots.OpenClawAgentsDir, now)...)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}
