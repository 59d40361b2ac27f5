package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/argus-dev/argus/internal/transcript"
)

// serverProbeWindow is the tail size scanned for a server-running
// signal, per §4.2.6's "last ~30 entries".
const serverProbeWindow = 30

// serverOutputPatterns match System output announcing a server is
// up. The exact wording is design, not implementation detail (§9).
var serverOutputPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)listening on`),
	regexp.MustCompile(`(?i)server (running|started|listening)`),
	regexp.MustCompile(`(?i)local:\s*https?://localhost`),
	regexp.MustCompile(`(?i)ready in \d+(ms|s)\b`),
}

var portRe = regexp.MustCompile(`:(\d{4,5})\b`)

// ServerRunning implements §4.2.6: a backgrounded Bash command whose
// argv matches a known server-start invocation, or System output
// announcing that a server has come up, marks the agent as
// server-running. kind names the detected server family ("npm",
// "vite", "next", "node", "python", "cargo", "go", "docker", or
// "output" when detected from announcement text rather than the
// launch command); port is 0 when none was found.
func ServerRunning(entries []transcript.Entry) (kind string, port int, line int, ok bool) {
	window := tailWindow(entries, serverProbeWindow)
	for i := len(window) - 1; i >= 0; i-- {
		e := window[i]
		switch e.Kind {
		case transcript.KindAssistant:
			for _, b := range e.Blocks {
				if b.Kind != transcript.BlockToolUse || b.ToolName != "Bash" {
					continue
				}
				input := toolInput(b)
				if !input.Get("run_in_background").Bool() {
					continue
				}
				cmd := input.Get("command").Str
				if k, isServer := classifyServerCommand(cmd); isServer {
					return k, extractPort(cmd), e.Line, true
				}
			}
		case transcript.KindSystem:
			if matchesServerOutput(e.Text) {
				return "output", extractPort(e.Text), e.Line, true
			}
		}
	}
	return "", 0, 0, false
}

// classifyServerCommand tokenizes cmd with a shell-aware splitter
// (so quoted arguments are not mistaken for separate words) and
// checks the resulting argv against the known server-start verbs.
func classifyServerCommand(cmd string) (kind string, ok bool) {
	args, err := shlex.Split(cmd)
	if err != nil || len(args) == 0 {
		return "", false
	}

	joined := strings.Join(args, " ")
	switch {
	case args[0] == "npm" && len(args) >= 3 && args[1] == "run" &&
		(args[2] == "dev" || args[2] == "start" || args[2] == "serve"):
		return "npm", true
	case args[0] == "vite" || strings.Contains(joined, "vite"):
		return "vite", true
	case args[0] == "next" || strings.Contains(joined, "next "):
		return "next", true
	case args[0] == "node" && strings.Contains(joined, "server"):
		return "node", true
	case args[0] == "python" || args[0] == "python3":
		if len(args) >= 3 && args[1] == "-m" &&
			(args[2] == "flask" || args[2] == "uvicorn" || args[2] == "http.server") {
			return "python", true
		}
	case args[0] == "cargo" && len(args) >= 2 && args[1] == "run":
		return "cargo", true
	case args[0] == "go" && len(args) >= 2 && args[1] == "run" && strings.Contains(joined, "server"):
		return "go", true
	case args[0] == "docker" || args[0] == "docker-compose":
		if len(args) >= 2 && (args[1] == "up" || args[1] == "run" ||
			(len(args) >= 3 && args[1] == "compose" && (args[2] == "up" || args[2] == "run"))) {
			return "docker", true
		}
	}
	return "", false
}

func matchesServerOutput(text string) bool {
	for _, re := range serverOutputPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func extractPort(text string) int {
	m := portRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	port, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return port
}
