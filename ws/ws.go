// Package ws provides the websocket live status feed. Clients connect and
// receive match status snapshots as JSON messages.
package ws

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/logging"
)

// HandleWS handles websocket requests. The passed context is used in order to
// stop all remaining read-pumps.
func HandleWS(hub *Hub, ctx context.Context) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			errors.Log(logging.WSLogger, errors.NewInternalErrorFromErr(err, "upgrade connection", nil))
			return
		}
		client := &Client{
			ID:         uuid.New(),
			hub:        hub,
			connection: conn,
			Send:       make(chan []byte, 256),
		}
		// Use the client's hub so that the reference from the handler can be dropped.
		client.hub.register <- client
		// Power the pumps.
		go client.writePump()
		go client.readPump(ctx)
	}
}
