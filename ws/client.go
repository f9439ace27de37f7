package ws

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/logging"
	"go.uber.org/zap"
)

const (
	// writeTimeout is the timeout for writing a message to the peer.
	writeTimeout = 10 * time.Second
	// pingInterval is the interval in which pings are sent to the peer. Must be
	// less than pongTimeout.
	pingInterval = (pongTimeout * 9) / 10
	// pongTimeout is the timeout for waiting for the next pong message from the
	// peer. Must be greater than pingInterval.
	pongTimeout = 60 * time.Second
	// maxMessageSize is the maximum message size allowed from peer.
	maxMessageSize = 512
)

// Client holds the websocket connection and is being used by Hub.
type Client struct {
	// ID identifies the client connection.
	ID uuid.UUID
	// Send holds outgoing messages for the write-pump.
	Send chan []byte
	// hub is the actual websocket hub which is used for registering and
	// unregistering.
	hub *Hub
	// connection is the actual websocket connection.
	connection *websocket.Conn
}

// logger returns a zap.Logger with the Client id as field.
func (c *Client) logger() *zap.Logger {
	return logging.WSLogger.With(zap.String("client_id", c.ID.String()))
}

// queue enqueues the message for the write-pump, dropping it when the client
// cannot keep up.
func (c *Client) queue(message []byte) {
	select {
	case c.Send <- message:
	default:
		c.logger().Warn("dropping message for slow client")
	}
}

// readPump consumes incoming messages. The feed is one-directional, so
// everything received is discarded, but reading is required for close and pong
// handling.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		err := c.connection.Close()
		if err != nil {
			c.logger().Debug(errors.Wrap(err, "close connection", nil).Error())
		}
	}()
	c.connection.SetReadLimit(maxMessageSize)
	_ = c.connection.SetReadDeadline(time.Now().Add(pongTimeout))
	// Handle received pong.
	c.connection.SetPongHandler(func(string) error {
		_ = c.connection.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	for {
		if ctx.Err() != nil {
			return
		}
		_, _, err := c.connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger().Debug(errors.Wrap(err, "unexpected close", nil).Error())
			}
			return
		}
	}
}

// writePump forwards outgoing messages from the hub to the websocket
// connection. We do not pass a context.Context here because the hub will close
// the Send-channel which will lead to termination, anyways.
func (c *Client) writePump() {
	pingTicker := time.NewTicker(pingInterval)
	defer func() {
		// Stop ping ticker in order to avoid ticker leak.
		pingTicker.Stop()
		// Close connection.
		err := c.connection.Close()
		if err != nil {
			c.logger().Debug(errors.Wrap(err, "close connection", nil).Error())
		}
	}()
	for {
		select {
		case message, ok := <-c.Send:
			// Set write timeout.
			_ = c.connection.SetWriteDeadline(time.Now().Add(writeTimeout))
			// Check if connection close is requested from hub.
			if !ok {
				err := c.connection.WriteMessage(websocket.CloseMessage, []byte{})
				if err != nil {
					c.logger().Debug(errors.Wrap(err, "write close message", nil).Error())
				}
				return
			}
			// Write message.
			if err := c.connection.WriteMessage(websocket.TextMessage, message); err != nil {
				// We expect the read pump to fail as well.
				c.logger().Warn(errors.Wrap(err, "write text message", nil).Error())
				return
			}
		case <-pingTicker.C:
			// Send ping.
			_ = c.connection.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger().Warn(errors.Wrap(err, "write ping", nil).Error())
				return
			}
		}
	}
}
