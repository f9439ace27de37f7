package ws

import (
	"context"
	"encoding/json"

	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/logging"
	"github.com/lefinal/plague-server/plague"
	"go.uber.org/zap"
)

// Hub holds all active clients and fans match status updates out to them. It
// implements plague.StatusListener.
type Hub struct {
	// clients holds all online clients.
	clients map[*Client]struct{}
	// register receives when a Client wants to register itself.
	register chan *Client
	// unregister receives when a Client wants to unregister itself.
	unregister chan *Client
	// broadcast receives encoded status messages to send to all clients.
	broadcast chan []byte
	// last is the most recent status message. New clients receive it on connect.
	last []byte
}

// NewHub creates a new Hub. Start it with Hub.Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
	}
}

// HandleMatchStatus encodes the snapshot and queues it for broadcasting. If
// the hub cannot keep up, the snapshot is dropped as the next one supersedes
// it anyway.
func (h *Hub) HandleMatchStatus(status plague.MatchStatus) {
	message, err := json.Marshal(status)
	if err != nil {
		errors.Log(logging.WSLogger, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindEncodeJSON,
			Err:     err,
			Message: "marshal match status",
		})
		return
	}
	select {
	case h.broadcast <- message:
	default:
		logging.WSLogger.Warn("dropping status broadcast due to full queue")
	}
}

// Run starts the Hub. It blocks so you need to start a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.Send)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			logging.WSLogger.Info("client connected", zap.String("client_id", c.ID.String()))
			if h.last != nil {
				c.queue(h.last)
			}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				logging.WSLogger.Info("client disconnected", zap.String("client_id", c.ID.String()))
				// Close the send-channel which leads to stopping the write-pump.
				close(c.Send)
			}
		case message := <-h.broadcast:
			h.last = message
			for c := range h.clients {
				c.queue(message)
			}
		}
	}
}
