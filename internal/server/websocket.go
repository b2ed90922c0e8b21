package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// cross-origin clients are allowed, matching the CORS policy of the JSON routes
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWS streams samples as JSON text messages over a WebSocket.
//
// The connection is read-only from the client's side; incoming messages are
// discarded and only used to notice when the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	s.streamOpened("websocket")
	defer s.streamClosed("websocket")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(v any) error {
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return err
		}
		return conn.WriteJSON(v)
	}

	for _, sample := range s.store.GetAll() {
		if err := send(sample); err != nil {
			return
		}
	}

	for {
		select {
		case sample, ok := <-ch:
			if !ok {
				return
			}
			if err := send(sample); err != nil {
				return
			}

		case <-clientGone:
			return

		case <-r.Context().Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}
	}
}
