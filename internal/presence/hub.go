// internal/presence/hub.go
//
// Real-time cursor presence hub.
//
/*
Context
--------
Visitors on the same named room see each other's pointers.  Clients send
CURSOR frames with viewport-normalized coordinates (x divided by viewport
width, y by height, so positions survive resolution differences) and an
optional ephemeral status string; pointer leave sends CLEAR.  The hub
fans frames out to everyone else in the room and keeps the last cursor
per connection so newcomers get an immediate ROSTER.

Each connection gets a stable color by indexing a fixed palette with its
numeric ID modulo the palette length.

Connectivity loss is never fatal to the page: a dropped client is simply
unregistered and its cursor disappears for the others.

Channels serialize all room-map mutation through Run(); send buffers are
drained outside the critical path, and a client that cannot keep up is
dropped rather than allowed to block the hub.
*/
package presence

import (
	"encoding/json"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/yanizio/folio/internal/metrics"
)

// Frame types.
const (
	FrameCursor = "CURSOR" // local pointer moved
	FrameClear  = "CLEAR"  // pointer left the viewport
	FrameJoin   = "JOIN"   // connection entered the room
	FrameLeave  = "LEAVE"  // connection left the room
	FrameRoster = "ROSTER" // snapshot of existing cursors, sent on join
)

// palette supplies stable per-connection colors: palette[connID % len].
var palette = [...]string{
	"#ef4444", "#f97316", "#eab308", "#22c55e",
	"#06b6d4", "#3b82f6", "#8b5cf6", "#ec4899",
}

// Cursor is one participant's pointer state, normalized to the viewport.
type Cursor struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Status string  `json:"status,omitempty"`
}

// Frame is the wire unit in both directions.
type Frame struct {
	Type   string  `json:"type"`
	Room   string  `json:"room,omitempty"`
	ConnID uint64  `json:"connId,omitempty"`
	Color  string  `json:"color,omitempty"`
	Cursor *Cursor `json:"cursor,omitempty"`
}

type inbound struct {
	frame Frame
	from  *Client
}

// Hub routes frames between clients grouped by room.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	frames     chan inbound

	nextID atomic.Uint64
}

// NewHub returns a Hub; callers must start Run in a goroutine.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		frames:     make(chan inbound, 64),
	}
}

// ColorFor derives the stable palette color for a connection ID.
func ColorFor(connID uint64) string {
	return palette[connID%uint64(len(palette))]
}

// Run owns the room maps.  It never returns.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			if h.rooms[c.room] == nil {
				h.rooms[c.room] = make(map[*Client]bool)
			}
			h.rooms[c.room][c] = true
			metrics.PresenceConnections.Inc()

			// Roster first, so the newcomer renders existing cursors at once.
			for peer := range h.rooms[c.room] {
				if peer == c || peer.cursor == nil {
					continue
				}
				c.trySend(Frame{Type: FrameRoster, ConnID: peer.id, Color: peer.color, Cursor: peer.cursor})
			}
			h.fanOut(c, Frame{Type: FrameJoin, ConnID: c.id, Color: c.color})
			zap.S().Debugw("presence join", "room", c.room, "conn", c.id)

		case c := <-h.unregister:
			if _, ok := h.rooms[c.room][c]; !ok {
				continue
			}
			delete(h.rooms[c.room], c)
			close(c.send)
			metrics.PresenceConnections.Dec()
			if len(h.rooms[c.room]) == 0 {
				delete(h.rooms, c.room)
			} else {
				h.fanOut(c, Frame{Type: FrameLeave, ConnID: c.id, Color: c.color})
			}
			zap.S().Debugw("presence leave", "room", c.room, "conn", c.id)

		case in := <-h.frames:
			c := in.from
			switch in.frame.Type {
			case FrameCursor:
				c.cursor = in.frame.Cursor
			case FrameClear:
				c.cursor = nil
			default:
				continue // clients may only move or clear
			}
			h.fanOut(c, Frame{Type: in.frame.Type, ConnID: c.id, Color: c.color, Cursor: c.cursor})
		}
	}
}

// fanOut sends a frame to everyone in from's room except from itself.
// Marshal once, send to all.
func (h *Hub) fanOut(from *Client, f Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		zap.S().Errorw("presence frame marshal", "err", err)
		return
	}
	for peer := range h.rooms[from.room] {
		if peer == from {
			continue
		}
		select {
		case peer.send <- payload:
		default:
			// Lagging client; drop it instead of blocking the hub.
			zap.S().Warnw("presence client lagging, dropping", "conn", peer.id)
			delete(h.rooms[from.room], peer)
			close(peer.send)
			metrics.PresenceConnections.Dec()
		}
	}
}
