package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const writeTimeout = 60 * time.Second

// Authenticator resolves the user behind a stream request.
type Authenticator func(r *http.Request) (userID string, err error)

// Handler serves the live scan feed at GET /api/analytics/stream.
type Handler struct {
	manager      *Manager
	authenticate Authenticator
	logger       *slog.Logger
	keepalive    time.Duration
}

// NewHandler creates a Handler that streams manager's events to the user
// identified by authenticate.
func NewHandler(manager *Manager, authenticate Authenticator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		manager:      manager,
		authenticate: authenticate,
		logger:       logger,
		keepalive:    defaultHeartbeat,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Context().Err() != nil {
		return
	}

	userID, err := h.authenticate(r)
	if err != nil {
		writeUnauthorized(w, err)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")

	out := &stream{w: w, rc: http.NewResponseController(w), logger: h.logger}
	if err := out.rc.Flush(); err != nil {
		h.logger.Error("response does not support streaming", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect(userID)
	if err != nil {
		h.logger.Error("live feed connect failed", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With(slog.String("client_id", client.ID))
	if err := out.send("connected", map[string]string{
		"clientId": client.ID,
		"message":  "SSE connection established",
	}); err != nil {
		log.Warn("failed to send connected event", slog.String("error", err.Error()))
		return
	}

	h.pump(r, out, client, log)
}

// pump copies client events to out until either side goes away.
func (h *Handler) pump(r *http.Request, out *stream, client *Client, log *slog.Logger) {
	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	var reason string
	defer func() { log.Info("live feed stream ended", slog.String("reason", reason)) }()

	for {
		var ev Event
		select {
		case <-r.Context().Done():
			reason = "client gone"
			return
		case <-client.Done:
			reason = "closed by server"
			return
		case <-keepalive.C:
			ev = NewHeartbeatEvent()
		case next, ok := <-client.EventChan:
			if !ok {
				reason = "closed by server"
				return
			}
			ev = next
		}

		if err := out.send(string(ev.Type), ev); err != nil {
			reason = "write failed"
			return
		}
	}
}

// stream writes text/event-stream frames.
type stream struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	logger *slog.Logger
}

func (s *stream) send(name string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, body); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		return err
	}

	// Each successful write extends the deadline; a stalled peer is cut off.
	if err := s.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Debug("set write deadline", slog.String("error", err.Error()))
	}
	return nil
}

func writeUnauthorized(w http.ResponseWriter, cause error) {
	body, _ := json.Marshal(struct {
		V       int    `json:"v"`
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}{V: 1, Code: "UNAUTHORIZED", Message: cause.Error()})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(body)
}
