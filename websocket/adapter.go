package websocket

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"driftchat-server/domain"
	"driftchat-server/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // payloads may carry encoded file blobs
)

// ErrSlowConsumer is returned by Send when a connection's outbound buffer is
// full. The frame is dropped; delivery is best-effort.
var ErrSlowConsumer = errors.New("websocket: send buffer full")

// Conn adapts a gorilla websocket to domain.Connection. A connection starts
// with no identity or room; both arrive later through the protocol handler.
type Conn struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	handler domain.MessageHandler
}

func NewConn(id string, ws *websocket.Conn, h domain.MessageHandler) *Conn {
	return &Conn{
		id:      id,
		ws:      ws,
		send:    make(chan []byte, 256),
		handler: h,
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSlowConsumer
	}
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

func (c *Conn) Start() {
	metrics.ConnectionsActive.Inc()
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.handler.Disconnect(c)
		c.ws.Close()
		metrics.ConnectionsActive.Dec()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "clientId", c.id, "error", err)
			}
			return
		}

		c.handler.Handle(c, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
