// Command argus-hook is the thin client invoked from a Claude Code or
// OpenClaw lifecycle hook. It reads the hook's JSON payload off stdin,
// translates it into the ingress.Event envelope spec.md §6 defines,
// and POSTs it to the locally running argusd. It never touches
// internal/store directly and never blocks the calling agent for
// long — a short client timeout and a swallowed connection-refused
// error both degrade to a no-op, since a missing daemon must never
// fail the hook it was invoked from.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/argus-dev/argus/internal/ingress"
)

const requestTimeout = 2 * time.Second

// hookPayload is the superset of fields Claude Code and OpenClaw
// lifecycle hooks place on stdin. Not every hook populates every
// field.
type hookPayload struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name"`
	Message        string `json:"message"`
}

func main() {
	eventType := flag.String("event", "", "ingress event type (session_start, session_end, agent_spawn, agent_blocked, agent_unblocked, agent_complete, activity)")
	agentID := flag.String("agent-id", "", "agent id, defaults to session id")
	agentName := flag.String("agent-name", "", "agent display name")
	agentType := flag.String("agent-type", "", "agent type (main, subagent, background)")
	task := flag.String("task", "", "task description")
	question := flag.String("question", "", "pending question text, for agent_blocked")
	endpoint := flag.String("endpoint", defaultEndpoint(), "argusd events endpoint")
	flag.Parse()

	payload, err := readHookPayload(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "argus-hook: reading stdin: %v\n", err)
		os.Exit(0) // never fail the calling hook
	}

	ev := ingress.Event{
		Type:        ingress.EventType(*eventType),
		Timestamp:   time.Now().UnixMilli(),
		SessionID:   firstNonEmpty(payload.SessionID, *agentID),
		ProjectPath: payload.Cwd,
		AgentID:     *agentID,
		AgentName:   *agentName,
		AgentType:   *agentType,
		Task:        *task,
		Question:    *question,
	}
	if ev.Type == "" {
		ev.Type = ingress.EventActivity
	}
	if ev.AgentID == "" {
		ev.AgentID = ev.SessionID
	}

	if err := post(*endpoint, ev); err != nil {
		fmt.Fprintf(os.Stderr, "argus-hook: %v\n", err)
	}
}

func readHookPayload(r io.Reader) (hookPayload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return hookPayload{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return hookPayload{}, nil
	}
	var p hookPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return hookPayload{}, err
	}
	return p, nil
}

func post(endpoint string, ev ingress.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	client := &http.Client{Timeout: requestTimeout}
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		// argusd not running is the common case (e.g. in CI); this is
		// not a reason to fail the hook.
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("argusd rejected event: %s", resp.Status)
	}
	return nil
}

func defaultEndpoint() string {
	host := os.Getenv("ARGUS_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("ARGUS_PORT")
	if port == "" {
		port = "4242"
	}
	return fmt.Sprintf("http://%s:%s/api/v1/events", host, port)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
