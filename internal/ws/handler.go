package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tleroux/skyjo-server/internal/auth"
	"github.com/tleroux/skyjo-server/internal/game"
	"github.com/tleroux/skyjo-server/internal/models"
)

const pingInterval = 30 * time.Second

// Handler upgrades HTTP requests to game sockets.
type Handler struct {
	hub    *Hub
	core   *game.Handler
	signer *auth.Signer
	log    *logrus.Entry
}

// NewHandler wires the socket endpoint.
func NewHandler(hub *Hub, core *game.Handler, signer *auth.Signer) *Handler {
	return &Handler{
		hub:    hub,
		core:   core,
		signer: signer,
		log:    logrus.WithField("component", "ws"),
	}
}

// errorPayload is sent on the "error" event for a rejected command.
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func classify(err error) string {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return "not-found"
	case errors.Is(err, game.ErrNotAuthorized):
		return "not-authorized"
	case errors.Is(err, game.ErrConflict):
		return "conflict"
	case errors.Is(err, game.ErrInvalidTransition):
		return "invalid-state-transition"
	default:
		return "internal"
	}
}

// ServeHTTP authenticates the join token, attaches the socket and pumps
// commands until the peer goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	playerID, roomCode, err := h.signer.Verify(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket accept failed")
		return
	}

	socketID := uuid.NewString()
	c := h.hub.attach(playerID, roomCode, conn)

	if err := h.core.Reconnect(roomCode, playerID, socketID); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"room": roomCode, "player": playerID}).Warn("socket attach rejected")
		conn.Close(websocket.StatusPolicyViolation, "unknown room or seat")
		h.hub.detach(c)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.pingLoop(ctx, conn)

	h.readLoop(ctx, conn, roomCode, playerID)

	h.hub.detach(c)
	h.core.Disconnect(roomCode, playerID)
	conn.Close(websocket.StatusNormalClosure, "")
}

// readLoop decodes command envelopes and applies them. A rejected command
// degrades to an error event for this one caller.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, roomCode string, playerID uuid.UUID) {
	for {
		var action models.GameAction
		if err := wsjson.Read(ctx, conn, &action); err != nil {
			return
		}
		if _, err := h.core.Handle(roomCode, playerID, action.Command, action.Payload); err != nil {
			h.hub.ToPlayer(playerID, "error", errorPayload{
				Code:    classify(err),
				Message: err.Error(),
			})
		}
		if action.Command == models.CmdLeave {
			return
		}
	}
}

// pingLoop detects dead peers; a failed ping ends the read loop via the
// closed connection.
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				conn.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}
