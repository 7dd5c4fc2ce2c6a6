package game

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tleroux/skyjo-server/internal/models"
)

// Emitter is the outbound half of the transport contract. Implementations
// must be safe for concurrent use; the core calls them while holding a
// session lock and never waits on delivery.
type Emitter interface {
	ToRoom(code, event string, payload interface{})
	ToPlayer(playerID uuid.UUID, event string, payload interface{})
}

// Historian records committed actions out-of-band for audit and replay.
type Historian interface {
	Record(code string, playerID uuid.UUID, command models.CommandType, payload json.RawMessage)
}

// Handler is the single entry point for inbound commands. It resolves the
// session, serializes the command under the session lock, applies it,
// persists asynchronously and broadcasts the resulting snapshots.
type Handler struct {
	reg       *Registry
	emitter   Emitter
	historian Historian
	timings   Timings
	log       *logrus.Entry
}

// NewHandler wires the command intake over a registry and transport.
func NewHandler(reg *Registry, emitter Emitter, historian Historian, timings Timings) *Handler {
	h := &Handler{
		reg:       reg,
		emitter:   emitter,
		historian: historian,
		timings:   timings,
		log:       logrus.WithField("component", "handler"),
	}
	reg.OnRestore = h.wireEmitters
	return h
}

// Registry exposes the underlying registry for matchmaking and HTTP.
func (h *Handler) Registry() *Registry { return h.reg }

// Outcome is what a successful command returns to its caller: the acting
// player's identity and their view of the session.
type Outcome struct {
	PlayerID uuid.UUID `json:"playerId"`
	Snapshot Snapshot  `json:"snapshot"`
}

// joinPayload is the body of a join command.
type joinPayload struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// CreateRoom creates a session seated with its first player, registers it
// and returns the admin's outcome.
func (h *Handler) CreateRoom(name, avatar, socketID string, settings models.Settings) (Outcome, error) {
	if err := settings.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNotAuthorized, err)
	}
	s := NewGameSession(settings, h.timings, NewTimerScheduler())
	h.wireEmitters(s)
	h.reg.Add(s)

	s.Mu.Lock()
	defer s.Mu.Unlock()
	p := models.NewPlayer(name, avatar, socketID)
	if err := s.AddPlayer(p); err != nil {
		return Outcome{}, err
	}
	s.commit()
	h.record(s.Code, p.ID, models.CmdJoin, nil)
	return Outcome{PlayerID: p.ID, Snapshot: s.SnapshotFor(p.ID)}, nil
}

// wireEmitters binds the session's broadcast hooks to the transport.
func (h *Handler) wireEmitters(s *GameSession) {
	code := s.Code
	s.EmitToRoomFn = func(event string, payload interface{}) {
		h.emitter.ToRoom(code, event, payload)
	}
	s.EmitToPlayerFn = func(playerID uuid.UUID, event string, payload interface{}) {
		h.emitter.ToPlayer(playerID, event, payload)
	}
}

// Handle applies one validated command from a player to a session. Errors
// are returned to the caller without mutating state.
func (h *Handler) Handle(code string, playerID uuid.UUID, cmd models.CommandType, payload json.RawMessage) (Outcome, error) {
	s, err := h.reg.Get(code)
	if err != nil {
		return Outcome{}, err
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()

	actor := playerID
	switch cmd {
	case models.CmdJoin:
		var body joinPayload
		if err := json.Unmarshal(payload, &body); err != nil {
			return Outcome{}, fmt.Errorf("%w: bad join payload", ErrNotAuthorized)
		}
		p := models.NewPlayer(body.Name, body.Avatar, "")
		if err := s.AddPlayer(p); err != nil {
			return Outcome{}, err
		}
		actor = p.ID
		s.commit()

	case models.CmdStart:
		if err := s.Start(playerID); err != nil {
			return Outcome{}, err
		}
		s.commit()

	case models.CmdRevealInitial:
		pos, err := decodePosition(payload)
		if err != nil {
			return Outcome{}, err
		}
		if err := s.RevealInitialCard(playerID, pos.Row, pos.Column); err != nil {
			return Outcome{}, err
		}
		s.commit()

	case models.CmdPickFromDraw:
		if err := s.PickFromDrawPile(playerID); err != nil {
			return Outcome{}, err
		}
		s.commit()

	case models.CmdPickFromDiscard:
		if err := s.PickFromDiscardPile(playerID); err != nil {
			return Outcome{}, err
		}
		s.commit()

	case models.CmdReplaceCard:
		pos, err := decodePosition(payload)
		if err != nil {
			return Outcome{}, err
		}
		if err := s.ReplaceCard(playerID, pos.Row, pos.Column); err != nil {
			return Outcome{}, err
		}
		s.commit()

	case models.CmdDiscardSelected:
		if err := s.DiscardSelected(playerID); err != nil {
			return Outcome{}, err
		}
		s.commit()

	case models.CmdTurnCard:
		pos, err := decodePosition(payload)
		if err != nil {
			return Outcome{}, err
		}
		if err := s.TurnCard(playerID, pos.Row, pos.Column); err != nil {
			return Outcome{}, err
		}
		s.commit()

	case models.CmdToggleReplay:
		if err := s.ToggleReplay(playerID); err != nil {
			return Outcome{}, err
		}
		s.commit()

	case models.CmdChangeSettings:
		var settings models.Settings
		if err := json.Unmarshal(payload, &settings); err != nil {
			return Outcome{}, fmt.Errorf("%w: bad settings payload", ErrNotAuthorized)
		}
		if err := settings.Validate(); err != nil {
			return Outcome{}, fmt.Errorf("%w: %s", ErrNotAuthorized, err)
		}
		if err := s.ChangeSettings(playerID, settings); err != nil {
			return Outcome{}, err
		}
		s.commit()

	case models.CmdInitiateKickVote:
		target, err := decodeVoteTarget(payload)
		if err != nil {
			return Outcome{}, err
		}
		if err := s.InitiateKickVote(playerID, target); err != nil {
			return Outcome{}, err
		}

	case models.CmdCastKickVote:
		target, vote, err := decodeVote(payload)
		if err != nil {
			return Outcome{}, err
		}
		if err := s.CastKickVote(playerID, target, vote); err != nil {
			return Outcome{}, err
		}

	case models.CmdLeave:
		if s.playerByID(playerID) == nil {
			return Outcome{}, fmt.Errorf("%w: unknown player", ErrNotFound)
		}
		s.HandleDisconnect(playerID, true)

	default:
		return Outcome{}, fmt.Errorf("%w: unknown command %q", ErrNotAuthorized, cmd)
	}

	h.record(code, actor, cmd, payload)
	return Outcome{PlayerID: actor, Snapshot: s.SnapshotFor(actor)}, nil
}

// Disconnect is the transport's involuntary-drop path (closed socket,
// heartbeat timeout).
func (h *Handler) Disconnect(code string, playerID uuid.UUID) {
	s, err := h.reg.Get(code)
	if err != nil {
		return
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.HandleDisconnect(playerID, false)
}

// Reconnect restores a player's seat inside the grace window and resends
// their authoritative snapshot.
func (h *Handler) Reconnect(code string, playerID uuid.UUID, socketID string) error {
	s, err := h.reg.Get(code)
	if err != nil {
		return err
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.HandleReconnect(playerID, socketID)
}

// record hands the action to the historian, if one is configured.
func (h *Handler) record(code string, playerID uuid.UUID, cmd models.CommandType, payload json.RawMessage) {
	if h.historian != nil {
		h.historian.Record(code, playerID, cmd, payload)
	}
}

func decodePosition(payload json.RawMessage) (models.CardPosition, error) {
	var pos models.CardPosition
	if err := json.Unmarshal(payload, &pos); err != nil {
		return pos, fmt.Errorf("%w: bad card position", ErrNotAuthorized)
	}
	return pos, nil
}

func decodeVoteTarget(payload json.RawMessage) (uuid.UUID, error) {
	target, _, err := decodeVote(payload)
	return target, err
}

func decodeVote(payload json.RawMessage) (uuid.UUID, bool, error) {
	var body models.VotePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: bad vote payload", ErrNotAuthorized)
	}
	target, err := uuid.Parse(body.TargetID)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: bad vote target", ErrNotFound)
	}
	return target, body.Vote, nil
}
