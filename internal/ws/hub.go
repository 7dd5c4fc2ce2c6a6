// Package ws is the transport layer: it attaches authenticated sockets to
// rooms, pumps inbound commands into the core and implements the core's
// broadcast contract.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Envelope is the outbound wire frame.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

const (
	outboxSize   = 32
	writeTimeout = 5 * time.Second
)

// client is one attached socket with its own writer goroutine, so emits
// from inside a session lock never block on a slow peer.
type client struct {
	playerID uuid.UUID
	roomCode string
	conn     *websocket.Conn
	outbox   chan Envelope
	done     chan struct{}
}

// Hub tracks attached clients by player and by room. It is safe under
// concurrent emits from many sessions' timer callbacks and commands.
type Hub struct {
	mu      sync.RWMutex
	players map[uuid.UUID]*client
	rooms   map[string]map[uuid.UUID]*client
	log     *logrus.Entry
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		players: make(map[uuid.UUID]*client),
		rooms:   make(map[string]map[uuid.UUID]*client),
		log:     logrus.WithField("component", "hub"),
	}
}

// attach registers a socket and starts its writer. An existing socket for
// the same player is displaced.
func (h *Hub) attach(playerID uuid.UUID, roomCode string, conn *websocket.Conn) *client {
	c := &client{
		playerID: playerID,
		roomCode: roomCode,
		conn:     conn,
		outbox:   make(chan Envelope, outboxSize),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	if old, ok := h.players[playerID]; ok {
		close(old.done)
		old.conn.Close(websocket.StatusPolicyViolation, "replaced by a newer connection")
	}
	h.players[playerID] = c
	room, ok := h.rooms[roomCode]
	if !ok {
		room = make(map[uuid.UUID]*client)
		h.rooms[roomCode] = room
	}
	room[playerID] = c
	h.mu.Unlock()

	go c.writeLoop()
	return c
}

// detach removes the client if it is still the registered socket for the
// player.
func (h *Hub) detach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.players[c.playerID]; ok && cur == c {
		delete(h.players, c.playerID)
		if room, ok := h.rooms[c.roomCode]; ok {
			delete(room, c.playerID)
			if len(room) == 0 {
				delete(h.rooms, c.roomCode)
			}
		}
		close(c.done)
	}
}

// ToPlayer implements game.Emitter. Slow clients get dropped rather than
// stalling the room.
func (h *Hub) ToPlayer(playerID uuid.UUID, event string, payload interface{}) {
	h.mu.RLock()
	c, ok := h.players[playerID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.send(Envelope{Event: event, Data: payload}, h)
}

// ToRoom implements game.Emitter for room-scoped events.
func (h *Hub) ToRoom(code, event string, payload interface{}) {
	h.mu.RLock()
	room := h.rooms[code]
	clients := make([]*client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	env := Envelope{Event: event, Data: payload}
	for _, c := range clients {
		c.send(env, h)
	}
}

func (c *client) send(env Envelope, h *Hub) {
	select {
	case c.outbox <- env:
	default:
		h.log.WithField("player", c.playerID).Warn("outbox full, dropping client")
		c.conn.Close(websocket.StatusPolicyViolation, "too slow")
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case env := <-c.outbox:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := wsjson.Write(ctx, c.conn, env)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
