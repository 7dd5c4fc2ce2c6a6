// Package httpapi exposes the room lifecycle over HTTP: create, join and
// quick-join. Gameplay itself runs over the websocket.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tleroux/skyjo-server/internal/auth"
	"github.com/tleroux/skyjo-server/internal/game"
	"github.com/tleroux/skyjo-server/internal/matchmaking"
	"github.com/tleroux/skyjo-server/internal/models"
)

// API groups the HTTP handlers' dependencies.
type API struct {
	core   *game.Handler
	finder *matchmaking.Finder
	signer *auth.Signer
	log    *logrus.Entry
}

// NewAPI wires the HTTP handlers.
func NewAPI(core *game.Handler, finder *matchmaking.Finder, signer *auth.Signer) *API {
	return &API{
		core:   core,
		finder: finder,
		signer: signer,
		log:    logrus.WithField("component", "httpapi"),
	}
}

type createRoomRequest struct {
	Name     string           `json:"name"`
	Avatar   string           `json:"avatar"`
	Settings *models.Settings `json:"settings,omitempty"`
}

type joinRoomRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type roomResponse struct {
	Code     string        `json:"code"`
	PlayerID string        `json:"playerId"`
	Token    string        `json:"token"`
	Snapshot game.Snapshot `json:"snapshot"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, game.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.WithError(err).Error("failed writing response")
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	a.writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rooms":  a.core.Registry().Len(),
	})
}

// handleCreateRoom creates a private or public room seated with its admin.
func (a *API) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	settings := models.DefaultSettings()
	if req.Settings != nil {
		settings = *req.Settings
		if err := settings.Validate(); err != nil {
			a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	outcome, err := a.core.CreateRoom(req.Name, req.Avatar, "", settings)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.respondWithSeat(w, outcome)
}

// handleJoinRoom seats a player in an existing lobby.
func (a *API) handleJoinRoom(w http.ResponseWriter, r *http.Request, code string) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	a.join(w, code, req.Name, req.Avatar)
}

// handleQuickJoin lets the matchmaking heuristic pick or create a room.
func (a *API) handleQuickJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	code := a.finder.PickRoom()
	if code == "" {
		outcome, err := a.core.CreateRoom(req.Name, req.Avatar, "", models.DefaultSettings())
		if err != nil {
			a.writeError(w, err)
			return
		}
		a.respondWithSeat(w, outcome)
		return
	}
	a.join(w, code, req.Name, req.Avatar)
}

func (a *API) join(w http.ResponseWriter, code, name, avatar string) {
	payload, _ := json.Marshal(joinRoomRequest{Name: name, Avatar: avatar})
	outcome, err := a.core.Handle(code, uuid.Nil, models.CmdJoin, payload)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.respondWithSeat(w, outcome)
}

func (a *API) respondWithSeat(w http.ResponseWriter, outcome game.Outcome) {
	token, err := a.signer.Mint(outcome.PlayerID, outcome.Snapshot.Code)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, roomResponse{
		Code:     outcome.Snapshot.Code,
		PlayerID: outcome.PlayerID.String(),
		Token:    token,
		Snapshot: outcome.Snapshot,
	})
}
