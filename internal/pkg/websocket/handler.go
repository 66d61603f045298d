package websocket

import (
	"errors"
	"net/http"
)

// ErrHubStopped is returned when a connection arrives after the hub stopped.
var ErrHubStopped = errors.New("notification hub stopped")

// ServeWS upgrades the request and registers the connection for userID.
// The caller is responsible for having authenticated userID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("userID", userID).Msg("Failed to upgrade connection to WebSocket")
		return err
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 64),
		userID: userID,
		logger: h.logger,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return ErrHubStopped
	}

	go client.writePump()
	go client.readPump()

	h.logger.Info().
		Str("userID", userID).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("WebSocket connection established")
	return nil
}
