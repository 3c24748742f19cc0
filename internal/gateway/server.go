// Package gateway provides the HTTP surface of the bot: an inbound message
// endpoint and a per-user Server-Sent Events stream carrying the replies.
// The transport is deliberately generic so any chat frontend that can POST
// JSON and hold an SSE connection can drive it.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine handles one inbound chat event end to end.
type Engine interface {
	HandleMessage(ctx context.Context, senderID, text string) error
}

// Server is the bot's HTTP API server.
type Server struct {
	engine         Engine
	hub            *Hub
	metricsEnabled bool
}

// NewServer creates the gateway server.
func NewServer(engine Engine, hub *Hub) *Server {
	return &Server{engine: engine, hub: hub}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.Timeout(30 * time.Second)).
			Post("/messages", s.handleInbound)
		// No timeout middleware on the stream: it lives until the
		// client disconnects.
		r.Get("/messages/stream", s.handleStream)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Inbound ────────────────────────────────────────────────────────────────

type inboundRequest struct {
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
}

// handleInbound accepts one chat event. The event is processed in the
// background and all replies flow through the SSE stream, so the response
// only acknowledges receipt.
// POST /v1/messages
func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	var req inboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.SenderID = strings.TrimSpace(req.SenderID)
	if req.SenderID == "" {
		writeError(w, http.StatusBadRequest, "sender_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	// Detach from the request context: a slow assistant call must not die
	// with the POST that triggered it.
	go func() {
		if err := s.engine.HandleMessage(context.Background(), req.SenderID, req.Text); err != nil {
			log.Printf("[gateway] handle message from %s: %v", req.SenderID, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// ─── Outbound Stream ────────────────────────────────────────────────────────

// handleStream serves the user's reply feed via Server-Sent Events.
// GET /v1/messages/stream?sender_id=...
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	senderID := strings.TrimSpace(r.URL.Query().Get("sender_id"))
	if senderID == "" {
		writeError(w, http.StatusBadRequest, "sender_id is required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch, unsub := s.hub.Subscribe(senderID)
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers so browser frontends can connect.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
