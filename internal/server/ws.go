package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

// The host binds to loopback only; the UI windows connecting here are
// local, so origin checks add nothing.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// inboundFrame is a fire-and-forget command from a UI window. Terminal
// input and resizes ride the websocket; everything request/response
// goes through the HTTP routes.
type inboundFrame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Data []byte `json:"data,omitempty"`
	Cols uint16 `json:"cols,omitempty"`
	Rows uint16 `json:"rows,omitempty"`
}

// handleWS attaches one observer. Hub events stream out as JSON frames
// until the connection drops; the observer then detaches and misses
// everything published while away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range sub.Events() {
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var frame inboundFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			s.log.Debug(r.Context(), "bad ws frame: %v", err)
			continue
		}

		switch frame.Type {
		case "session.write":
			s.sessions.Write(frame.ID, frame.Data)
		case "session.resize":
			s.sessions.Resize(frame.ID, frame.Cols, frame.Rows)
		default:
			s.log.Debug(r.Context(), "unknown ws frame type %q", frame.Type)
		}
	}

	// Detach before waiting: Unsubscribe closes the event channel,
	// which ends the writer goroutine.
	s.hub.Unsubscribe(sub)
	<-done
}
