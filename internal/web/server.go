// Package web serves the current button classification over HTTP: a small
// HTML page for people and /index.json for scripts.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/sweeney/button-blink/internal/status"
)

// Server renders tracker snapshots. It never touches the shared cell; the
// monitor activity copies the band into the tracker.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New builds a Server on addr. Nothing listens until ListenAndServe or
// Serve is called.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleBandPage)
	mux.HandleFunc("/index.html", s.handleBandPage)
	mux.HandleFunc("/index.json", s.handleBandJSON)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe blocks until Shutdown, then returns http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleBandPage shows the band, how long it has been held and what the
// LED is doing. Unknown paths are 404 since "/" matches everything.
func (s *Server) handleBandPage(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", "/index.html":
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

// handleBandJSON returns the same document the daemon publishes on the
// system topic, minus the event and reason.
func (s *Server) handleBandJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}
