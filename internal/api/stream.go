package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yok-tottii/ezdictate/internal/events"
	"github.com/yok-tottii/ezdictate/internal/pipeline"
)

const (
	eventBuffer  = 64
	pingInterval = 30 * time.Second
	pongWait     = 2 * pingInterval
	writeTimeout = 5 * time.Second
)

// sameHost rejects cross-site pages connecting to the local event stream.
// Requests without an Origin header come from non-browser clients.
func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

type pipelineRequest struct {
	Action string `json:"action"`
}

// handlePipeline handles GET /api/pipeline and POST {"action":"start|stop|toggle"}.
// Stopping runs polishing and output, so it completes in the background
// and the response reports the state it left.
func (h *Handler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	if h.Pipeline == nil {
		unavailable(w, "Pipeline")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]pipeline.State{"state": h.Pipeline.State()})
		return
	case http.MethodPost:
	default:
		methodNotAllowed(w)
		return
	}

	var req pipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	action := req.Action
	if action == "toggle" {
		action = "start"
		if h.Pipeline.State() == pipeline.Recording {
			action = "stop"
		}
	}

	switch action {
	case "start":
		if err := h.Pipeline.Start(r.Context()); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]pipeline.State{"state": h.Pipeline.State()})
	case "stop":
		go func() {
			if err := h.Pipeline.Stop(context.WithoutCancel(r.Context())); err != nil {
				h.Logger.Warn("pipeline stop failed", "error", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
	}
}

// handleEvents upgrades to a WebSocket and streams every hub event as a
// JSON text frame, starting with the current pipeline state.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		unavailable(w, "Event stream")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch, cancel := h.Events.Subscribe(eventBuffer)
	defer cancel()

	// A client that stops answering pings is dropped after pongWait.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reads only serve control frames and detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if h.Pipeline != nil {
		if err := writeEvent(conn, events.Event{Name: events.PipelineState, Payload: h.Pipeline.State()}); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeTimeout))
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				h.Logger.Debug("event stream closed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, ev events.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(ev)
}
