package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/argus-dev/argus/internal/store"
	"github.com/argus-dev/argus/internal/wire"
)

// handleState answers GET /api/v1/state with the full current
// snapshot, for clients that only need a one-shot read (or are about
// to open the WS and want an immediate paint before the first push).
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	snap := wire.FromSnapshot(s.store.Snapshot(), time.Now())
	writeJSON(w, http.StatusOK, snap)
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	// Origin is already enforced by corsMiddleware/hostCheckMiddleware
	// ahead of this handler, so the library's own check is redundant
	// here — disable it rather than duplicate the host/origin logic.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades to a WebSocket and streams state_update messages
// as the store changes (§6), applying the teacher's SSE write-deadline
// idiom (server/sse.go) adapted to a WS connection: every write gets a
// deadline, and a client that stops reading pongs is dropped rather
// than left to leak.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.publisher.Subscribe()
	defer unsubscribe()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	// Read client text frames off the connection in their own
	// goroutine and hand parsed app-level messages to the main loop
	// below, which is the only goroutine allowed to write on conn.
	// ReadMessage surfaces the peer closing by returning an error,
	// which is what ends this goroutine and signals closed.
	closed := make(chan struct{})
	msgs := make(chan clientMessage, 8)
	go func() {
		defer close(closed)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m clientMessage
			if err := json.Unmarshal(data, &m); err != nil {
				continue
			}
			select {
			case msgs <- m:
			default:
			}
		}
	}()

	if err := s.writeSnapshot(conn, s.store.Snapshot()); err != nil {
		return
	}

	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := s.writeSnapshot(conn, snap); err != nil {
				return
			}
		case m := <-msgs:
			if m.Type == "ping" {
				if err := s.writePong(conn); err != nil {
					return
				}
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// clientMessage is the one documented client -> server payload: a
// {"type":"ping"} app-level heartbeat, answered with {"type":"pong"}.
// This is independent of the transport-level ping/pong control frames
// wsPingPeriod drives, which keep the connection alive regardless of
// whether the client ever sends one.
type clientMessage struct {
	Type string `json:"type"`
}

func (s *Server) writePong(conn *websocket.Conn) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "pong"})
}

func (s *Server) writeSnapshot(conn *websocket.Conn, snap store.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(struct {
		Type    string        `json:"type"`
		Payload wire.Snapshot `json:"payload"`
	}{Type: "state_update", Payload: wire.FromSnapshot(snap, time.Now())})
}
