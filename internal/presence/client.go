// internal/presence/client.go
//
// One websocket connection attached to the hub: upgrade, read pump, and
// write pump.  Read and write each own their goroutine; the hub never
// touches the socket directly.
package presence

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameBytes  = 512
	sendBufferSize = 64
)

// Client is one live connection.  cursor is owned by the hub goroutine.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	room  string
	id    uint64
	color string

	cursor *Cursor
	send   chan []byte
}

func (c *Client) trySend(f Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// Upgrader builds the websocket upgrader with an origin allow-list.
// An empty list allows same-host requests only.
func Upgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser client (tests, curl)
			}
			if len(allowed) == 0 {
				return origin == "http://"+r.Host || origin == "https://"+r.Host
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// ServeWS upgrades the request and attaches the connection to room.
func ServeWS(hub *Hub, up websocket.Upgrader, w http.ResponseWriter, r *http.Request, room string) {
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("presence upgrade failed", "err", err)
		return
	}

	id := hub.nextID.Add(1)
	c := &Client{
		hub:   hub,
		conn:  conn,
		room:  room,
		id:    id,
		color: ColorFor(id),
		send:  make(chan []byte, sendBufferSize),
	}
	hub.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump relays CURSOR/CLEAR frames into the hub until the socket dies.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.S().Debugw("presence read error", "conn", c.id, "err", err)
			}
			return
		}
		c.hub.frames <- inbound{frame: f, from: c}
	}
}

// writePump drains the send buffer and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
