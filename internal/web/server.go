// Package web serves the operator page and its WebSocket: snapshots and
// browser instructions go out, recognition events and quick actions come
// back in.
package web

import (
	"context"
	"encoding/json"
	"errors"
	log "log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	ws "github.com/gorilla/websocket"

	"jarvis/internal/assistant"
)

// Assistant is the part of the controller the web surface drives.
type Assistant interface {
	Submit(ctx context.Context, text string) (string, error)
	StartListening(ctx context.Context) error
	StopListening(ctx context.Context) error
	Snapshot(ctx context.Context) (assistant.Snapshot, error)
	Subscribe() (<-chan assistant.Update, func())
}

type Server struct {
	hub      *Hub
	app      Assistant
	upgrader ws.Upgrader
}

func NewServer(hub *Hub, app Assistant) *Server {
	return &Server{
		hub: hub,
		app: app,
		upgrader: ws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	r.Get("/", s.index)
	r.Get("/ws", s.serveWS)
	r.Route("/api", func(r chi.Router) {
		r.Use(sameOrigin)
		r.Get("/commands", s.listCommands)
		r.With(middleware.AllowContentType("application/json")).Post("/commands", s.submitCommand)
		r.Get("/status", s.status)
	})
	return r
}

// Run serves addr and pushes every controller update to the browsers until
// ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Routes(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go s.pump(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Web UI listening", "addr", "http://"+addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) pump(ctx context.Context) {
	updates, cancel := s.app.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			snap := u.Snapshot
			s.hub.Broadcast(Frame{Type: "snapshot", Snapshot: &snap})
			if u.Notice != "" {
				s.hub.Broadcast(Frame{Type: "notice", Message: u.Notice})
			}
		}
	}
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Failed to upgrade websocket", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.hub.add(c)
	go c.writePump()

	if snap, err := s.app.Snapshot(r.Context()); err == nil {
		if data, err := json.Marshal(Frame{Type: "snapshot", Snapshot: &snap}); err == nil {
			s.hub.enqueue(c, data)
		}
	}

	c.readPump(func(f Frame) {
		s.handleFrame(r.Context(), c, f)
	})
	s.hub.remove(c)
}

func (s *Server) handleFrame(ctx context.Context, c *client, f Frame) {
	var err error
	switch f.Type {
	case "interim", "final", "error", "end":
		s.hub.recognition(c, f)
	case "submit":
		_, err = s.app.Submit(ctx, f.Text)
	case "listen":
		err = s.app.StartListening(ctx)
	case "stop":
		err = s.app.StopListening(ctx)
	default:
		log.Warn("Unknown frame", "type", f.Type)
	}

	if err != nil {
		log.Warn("Frame failed", "type", f.Type, "err", err)
	}
}

type submitRequest struct {
	Text string `json:"text"`
}

func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap.Commands)
}

func (s *Server) submitCommand(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	id, err := s.app.Submit(r.Context(), req.Text)
	switch {
	case errors.Is(err, assistant.ErrEmptyCommand):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":           snap.State,
		"interim":         snap.Interim,
		"speaking":        snap.Speaking,
		"bridge":          snap.Bridge,
		"speak_responses": snap.SpeakResponses,
		"browsers":        s.hub.Clients(),
		"commands":        len(snap.Commands),
	})
}

// sameOrigin rejects requests a page served from another origin sends to
// the API. Requests without an Origin header (curl, jarvis-ctl) pass.
func sameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			u, err := url.Parse(origin)
			if err != nil || !strings.EqualFold(u.Host, r.Host) {
				writeError(w, http.StatusForbidden, "cross-origin request refused")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
