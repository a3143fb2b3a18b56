package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/apperrors"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/session"
)

// sseKeepaliveInterval is the once-a-second keepalive cadence, so
// proxies between the client and this server don't time the
// connection out during a long quiet stretch between events.
const sseKeepaliveInterval = time.Second

// handleProgress serves GET /progress/{id}: an SSE stream of the
// session's progress/complete/error events, a direct net/http +
// http.Flusher implementation (see DESIGN.md for why this endpoint
// has no library dependency).
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	stream, ok := s.coordinator.Stream(id)
	if !ok {
		writeError(w, apperrors.SessionNotFound(id))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperrors.Internal(fmt.Errorf("response writer does not support flushing")))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, unsubscribe := stream.Subscribe()
	defer unsubscribe()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			writeSSEEvent(w, ev)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, ev session.Event) {
	payload, err := json.Marshal(sseData(ev))
	if err != nil {
		payload = []byte(`{"error_type":"InternalError","reason":"failed to encode event"}`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
}

// sseData normalizes an Event's payload into something JSON-friendly;
// an error payload becomes the same {error_type,reason,...} shape the
// rest of the HTTP surface uses.
func sseData(ev session.Event) interface{} {
	if err, ok := ev.Data.(error); ok {
		return errorDTOFrom(err)
	}
	return ev.Data
}
