// Package httpapi is Argus's HTTP/WS shell (the ingress/subscribe
// surface spec.md §6 names). Grounded on the teacher's
// server/server.go: a *http.ServeMux wrapped in the same host-check
// and CORS middleware chain, since a localhost daemon accepting
// browser connections needs the same DNS-rebinding and CSRF defenses
// regardless of what it serves. Diverges from the teacher in one
// place per a REDESIGN FLAG: ListenAndServe fails fast on a bound
// port instead of scanning for the next free one — a supervision
// daemon silently moving to another port leaves every previously
// configured client pointed at the wrong address.
package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/argus-dev/argus/internal/config"
	"github.com/argus-dev/argus/internal/obslog"
	"github.com/argus-dev/argus/internal/publish"
	"github.com/argus-dev/argus/internal/reconcile"
	"github.com/argus-dev/argus/internal/store"
)

// VersionInfo holds build-time version metadata, reported at
// GET /api/v1/version.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

// Server is the HTTP server exposing the ingress and subscribe
// surface over cfg.Host:cfg.Port.
type Server struct {
	cfg       config.Config
	scheduler *reconcile.Scheduler
	store     *store.Store
	publisher *publish.Publisher
	version   VersionInfo
	log       obslog.Logger

	mux     *http.ServeMux
	httpSrv *http.Server
}

// New builds a Server wired to scheduler's ingress surface and st for
// reads. publisher feeds the WS subscribe loop.
func New(cfg config.Config, scheduler *reconcile.Scheduler, st *store.Store, publisher *publish.Publisher, version VersionInfo) *Server {
	s := &Server{
		cfg:       cfg,
		scheduler: scheduler,
		store:     st,
		publisher: publisher,
		version:   version,
		log:       obslog.New("httpapi"),
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("POST /api/v1/events", http.HandlerFunc(s.handleEvent))
	s.mux.Handle("POST /api/v1/commands", http.HandlerFunc(s.handleCommand))
	s.mux.Handle("GET /api/v1/state", http.HandlerFunc(s.handleState))
	s.mux.Handle("GET /api/v1/ws", http.HandlerFunc(s.handleWS))
	s.mux.Handle("GET /api/v1/version", http.HandlerFunc(s.handleVersion))
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.version)
}

// Handler returns the mux wrapped in the host-check/CORS/log
// middleware chain — the same shape as the teacher's Server.Handler.
func (s *Server) Handler() http.Handler {
	allowedOrigins := buildAllowedOrigins(s.cfg.Host, s.cfg.Port)
	allowedHosts := buildAllowedHosts(s.cfg.Host, s.cfg.Port)
	bindAll := isBindAll(s.cfg.Host)
	return hostCheckMiddleware(allowedHosts, bindAll,
		corsMiddleware(allowedOrigins, bindAll, logMiddleware(s.log, s.mux)),
	)
}

// ListenAndServe starts the HTTP server. Unlike the teacher's
// FindAvailablePort fallback, a bound port is fatal: callers should
// treat a non-nil return as a reason to exit nonzero, not retry on
// another port.
func (s *Server) ListenAndServe() error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	s.httpSrv = srv
	s.log.Infof("listening on http://%s", addr)
	return srv.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func buildAllowedHosts(host string, port int) map[string]bool {
	hosts := make(map[string]bool)
	add := func(h string) {
		hosts[net.JoinHostPort(h, strconv.Itoa(port))] = true
		if port == 80 {
			if strings.Contains(h, ":") {
				hosts["["+h+"]"] = true
			} else {
				hosts[h] = true
			}
		}
	}
	add(host)
	switch host {
	case "127.0.0.1":
		add("localhost")
	case "localhost":
		add("127.0.0.1")
	case "0.0.0.0", "::":
		add("127.0.0.1")
		add("localhost")
		add("::1")
	case "::1":
		add("127.0.0.1")
		add("localhost")
	}
	return hosts
}

// hostCheckMiddleware rejects requests whose Host header doesn't
// match one of the addresses Argus is actually bound to, defending
// against DNS rebinding against a localhost daemon.
func hostCheckMiddleware(allowedHosts map[string]bool, bindAll bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") && !bindAll {
			if !allowedHosts[r.Host] {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func httpOrigin(host string, port int) []string {
	hp := net.JoinHostPort(host, strconv.Itoa(port))
	origin := "http://" + hp
	if port == 80 {
		bare := host
		if strings.Contains(host, ":") {
			bare = "[" + host + "]"
		}
		return []string{origin, "http://" + bare}
	}
	return []string{origin}
}

func buildAllowedOrigins(host string, port int) map[string]bool {
	origins := make(map[string]bool)
	add := func(h string) {
		for _, o := range httpOrigin(h, port) {
			origins[o] = true
		}
	}
	add(host)
	switch host {
	case "127.0.0.1":
		add("localhost")
	case "localhost":
		add("127.0.0.1")
	case "0.0.0.0", "::":
		add("127.0.0.1")
		add("localhost")
		add("::1")
	case "::1":
		add("127.0.0.1")
		add("localhost")
	}
	return origins
}

func isBindAll(host string) bool {
	return host == "0.0.0.0" || host == "::"
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut ||
		method == http.MethodPatch || method == http.MethodDelete
}

func corsMiddleware(allowedOrigins map[string]bool, bindAll bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			origin := r.Header.Get("Origin")
			originAllowed := allowedOrigins[origin] || (bindAll && origin != "")
			safeForReads := origin == "" || originAllowed

			if originAllowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				if !safeForReads {
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			if !safeForReads && isMutating(r.Method) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func logMiddleware(log obslog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Infof("%s %s", r.Method, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}
