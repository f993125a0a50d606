// Package websocket adapts a gorilla websocket connection to the engine's
// send handle contract.
package websocket

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"realtime-chat-server/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	defaultSendBuffer = 256
)

// Conn is one member's transport. Send never blocks: outbound bytes go
// through a buffered channel drained by the write pump under a write
// deadline, so a stalled peer surfaces as a send error within bounded time
// and the engine evicts it.
type Conn struct {
	id      string
	room    string
	ws      *websocket.Conn
	send    chan []byte
	engine  domain.Engine
	handler domain.MessageHandler
}

func NewConn(id, room string, ws *websocket.Conn, e domain.Engine, h domain.MessageHandler, sendBuffer int) *Conn {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &Conn{
		id:      id,
		room:    room,
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		engine:  e,
		handler: h,
	}
}

func (c *Conn) ID() string   { return c.id }
func (c *Conn) Room() string { return c.room }

func (c *Conn) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// Start admits the connection under the display name and launches the pumps.
// On rejection the websocket is closed and nothing runs.
func (c *Conn) Start(name string) error {
	if _, err := c.engine.Connect(c, name, c.room); err != nil {
		c.ws.Close()
		return err
	}
	go c.writePump()
	go c.readPump()
	return nil
}

func (c *Conn) readPump() {
	defer func() {
		c.engine.Disconnect(c.id, c.room)
		c.ws.Close()
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
				slog.Error("read error", "senderId", c.id, "error", err)
			}
			return
		}

		c.handler.Handle(c, c.room, data)
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
