package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tleroux/skyjo-server/internal/models"
)

// Status is the lifecycle phase of a session.
type Status string

const (
	StatusLobby    Status = "lobby"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
	StatusStopped  Status = "stopped"
)

// TurnStatus is the sub-state within the acting player's turn: which action
// is currently expected.
type TurnStatus string

const (
	TurnChooseAPile    TurnStatus = "chooseAPile"
	TurnThrowOrReplace TurnStatus = "throwOrReplace"
	TurnReplaceACard   TurnStatus = "replaceACard"
	TurnTurnACard      TurnStatus = "turnACard"
)

// LastTurnStatus records the action that was last applied, for clients to
// animate from.
type LastTurnStatus string

const (
	LastTurnNone            LastTurnStatus = ""
	LastTurnPickFromDraw    LastTurnStatus = "pickFromDrawPile"
	LastTurnPickFromDiscard LastTurnStatus = "pickFromDiscardPile"
	LastTurnThrow           LastTurnStatus = "throw"
	LastTurnReplace         LastTurnStatus = "replace"
	LastTurnTurn            LastTurnStatus = "turn"
)

// RoundStatus is the phase of the current round.
type RoundStatus string

const (
	RoundWaitingInitialReveals RoundStatus = "waitingPlayersToTurnInitialCards"
	RoundPlaying               RoundStatus = "playing"
	RoundLastLap               RoundStatus = "lastLap"
	RoundOver                  RoundStatus = "over"
)

// Event names pushed through the broadcast hooks.
const (
	EventRoomUpdate   = "room:update"
	EventKickVote     = "kick:vote"
	EventKickFailed   = "kick:vote-failed"
	EventPlayerKicked = "player:kicked"
	EventRoomRemoved  = "room:removed"
)

// Timings groups the timer durations a session uses. Tests shorten them or
// bypass them entirely with a manual scheduler.
type Timings struct {
	LeaveGrace          time.Duration
	ConnectionLostGrace time.Duration
	KickVoteTTL         time.Duration
	RoundRestartDelay   time.Duration
}

// DefaultTimings are the production durations.
func DefaultTimings() Timings {
	return Timings{
		LeaveGrace:          30 * time.Second,
		ConnectionLostGrace: 60 * time.Second,
		KickVoteTTL:         30 * time.Second,
		RoundRestartDelay:   10 * time.Second,
	}
}

// GameSession is the authoritative state for one room. All mutation happens
// under Mu; timer callbacks re-acquire it before touching anything. The
// in-memory state is the source of truth, persistence trails behind.
//
// Invariant: FirstFinisherID is non-nil exactly while RoundStatus is
// lastLap or over. Invariant: draw pile + discard pile + dealt grids always
// hold models.TotalDeckSize() cards during a round.
type GameSession struct {
	ID        uuid.UUID
	Code      string
	Status    Status
	Players   []*models.Player
	TurnIndex int
	AdminID   uuid.UUID
	Settings  models.Settings

	DrawPile    []int
	DiscardPile []int
	// SelectedCard is the card in the acting player's hand mid-turn.
	SelectedCard *models.Card

	TurnStatus      TurnStatus
	LastTurnStatus  LastTurnStatus
	RoundStatus     RoundStatus
	RoundNumber     int
	FirstFinisherID uuid.UUID

	KickVotes map[uuid.UUID]*models.KickVote
	UpdatedAt time.Time

	Mu sync.Mutex

	timings Timings
	timers  Scheduler
	rng     *rand.Rand
	log     *logrus.Entry

	// EmitToRoomFn and EmitToPlayerFn are the broadcast contract. They are
	// fire-and-forget; the session never waits on delivery.
	EmitToRoomFn   func(event string, payload interface{})
	EmitToPlayerFn func(playerID uuid.UUID, event string, payload interface{})
	// PersistFn saves a snapshot of the session out-of-band after every
	// committed mutation.
	PersistFn func(*GameSession)
	// OnTeardown is invoked once when the session destroys itself (last
	// player gone or too few players left mid-game).
	OnTeardown func(code string)
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newJoinCode(rng *rand.Rand) string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteByte(codeAlphabet[rng.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// NewGameSession creates an empty lobby with the given settings and a fresh
// join code.
func NewGameSession(settings models.Settings, timings Timings, sched Scheduler) *GameSession {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := &GameSession{
		ID:          uuid.New(),
		Code:        newJoinCode(rng),
		Status:      StatusLobby,
		Settings:    settings,
		RoundStatus: RoundWaitingInitialReveals,
		KickVotes:   make(map[uuid.UUID]*models.KickVote),
		UpdatedAt:   time.Now(),
		timings:     timings,
		timers:      sched,
		rng:         rng,
	}
	s.log = logrus.WithField("room", s.Code)
	return s
}

// AddPlayer seats a new player. Fails once the game has started or the room
// is full. Assumes lock is held by caller.
func (s *GameSession) AddPlayer(p *models.Player) error {
	if s.Status != StatusLobby {
		return ErrConflict
	}
	if len(s.Players) >= s.Settings.MaxPlayers {
		return ErrConflict
	}
	s.Players = append(s.Players, p)
	if s.AdminID == uuid.Nil {
		s.AdminID = p.ID
	}
	s.log.WithFields(logrus.Fields{"player": p.ID, "name": p.Name}).Info("player joined")
	return nil
}

// Start begins the first round. Admin only, lobby only, and at least two
// players must be seated. Assumes lock is held by caller.
func (s *GameSession) Start(playerID uuid.UUID) error {
	if playerID != s.AdminID {
		return ErrNotAuthorized
	}
	if s.Status != StatusLobby {
		return ErrConflict
	}
	if len(s.Players) < models.MinPlayers {
		return ErrConflict
	}
	s.Status = StatusPlaying
	s.RoundNumber = 0
	s.startRound()
	s.log.WithField("players", len(s.Players)).Info("game started")
	return nil
}

// ChangeSettings replaces the room settings. Admin only, lobby only. Input
// is assumed validated by the caller. Assumes lock is held by caller.
func (s *GameSession) ChangeSettings(playerID uuid.UUID, settings models.Settings) error {
	if playerID != s.AdminID {
		return ErrNotAuthorized
	}
	if s.Status != StatusLobby {
		return ErrConflict
	}
	s.Settings = settings
	return nil
}

// ToggleReplay flips the player's replay intent on a finished game. Once
// every connected player wants a replay the session resets into a fresh
// game with the same seats. Assumes lock is held by caller.
func (s *GameSession) ToggleReplay(playerID uuid.UUID) error {
	if s.Status != StatusFinished {
		return ErrNotAuthorized
	}
	p := s.playerByID(playerID)
	if p == nil {
		return ErrNotFound
	}
	p.WantsReplay = !p.WantsReplay
	for _, pl := range s.Players {
		if pl.IsConnected() && !pl.WantsReplay {
			return nil
		}
	}
	s.restartGame()
	return nil
}

// restartGame clears scores and replay flags and deals a new game for the
// players still present. Assumes lock is held by caller.
func (s *GameSession) restartGame() {
	kept := s.Players[:0]
	for _, p := range s.Players {
		if p.IsConnected() {
			p.Scores = nil
			p.WantsReplay = false
			kept = append(kept, p)
		}
	}
	s.Players = kept
	s.FirstFinisherID = uuid.Nil
	s.Status = StatusPlaying
	s.RoundNumber = 0
	s.startRound()
	s.log.Info("replay started")
}

// playerByID returns the seated player entity or nil.
// Assumes lock is held by caller.
func (s *GameSession) playerByID(playerID uuid.UUID) *models.Player {
	for _, p := range s.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// seatOf returns the seat index of the player, or -1.
// Assumes lock is held by caller.
func (s *GameSession) seatOf(playerID uuid.UUID) int {
	for i, p := range s.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// connectedCount counts players with a live socket.
// Assumes lock is held by caller.
func (s *GameSession) connectedCount() int {
	n := 0
	for _, p := range s.Players {
		if p.IsConnected() {
			n++
		}
	}
	return n
}

// nextSeatFrom walks forward from seat i (exclusive) and returns the next
// seat still holding its place in the turn order. Players inside a grace
// period keep their seat; only fully disconnected players are skipped.
// Returns -1 when nobody qualifies. Assumes lock is held by caller.
func (s *GameSession) nextSeatFrom(i int) int {
	n := len(s.Players)
	if n == 0 {
		return -1
	}
	for step := 1; step <= n; step++ {
		j := (i + step) % n
		if s.Players[j].IsSeated() {
			return j
		}
	}
	return -1
}

// currentPlayer returns the player whose turn it is, or nil outside active
// play. Assumes lock is held by caller.
func (s *GameSession) currentPlayer() *models.Player {
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.Players) {
		return nil
	}
	return s.Players[s.TurnIndex]
}

// reassignAdmin hands the admin seat to the next connected player in join
// order. Assumes lock is held by caller.
func (s *GameSession) reassignAdmin() {
	for _, p := range s.Players {
		if p.IsConnected() {
			s.AdminID = p.ID
			s.log.WithField("admin", p.ID).Info("admin reassigned")
			return
		}
	}
	s.AdminID = uuid.Nil
}

// removePlayer drops a seat entirely: kick success, or leaving a room that
// is not mid-round. During active play the removed grid is folded under the
// discard pile so the deck stays whole. Assumes lock is held by caller.
func (s *GameSession) removePlayer(playerID uuid.UUID) bool {
	seat := s.seatOf(playerID)
	if seat < 0 {
		return false
	}
	p := s.Players[seat]

	if s.Status == StatusPlaying && s.RoundStatus != RoundOver {
		// Return the grid to the deck, beneath the current discard top so
		// play is unaffected.
		var values []int
		for _, row := range p.Cards {
			for _, c := range row {
				values = append(values, c.Value)
			}
		}
		s.DiscardPile = append(values, s.DiscardPile...)
	}

	s.Players = append(s.Players[:seat], s.Players[seat+1:]...)

	// Keep the turn pointer on the same player where possible.
	if seat < s.TurnIndex {
		s.TurnIndex--
	} else if seat == s.TurnIndex {
		if s.SelectedCard != nil {
			s.DiscardPile = append(s.DiscardPile, s.SelectedCard.Value)
			s.SelectedCard = nil
		}
		if n := len(s.Players); n > 0 {
			// Hand the turn on from the vacated seat. During the last lap
			// this can complete the lap: the round ends rather than giving
			// the first finisher a second turn.
			s.TurnIndex = (seat - 1 + n) % n
			if s.RoundStatus == RoundLastLap && s.roundWouldEnd() {
				s.endRound()
			} else {
				s.advanceTurn()
			}
		} else {
			s.TurnIndex = 0
		}
	}

	if playerID == s.AdminID {
		s.reassignAdmin()
	}
	if s.FirstFinisherID == playerID {
		// The finisher left before scoring; the lap plays out and scoring
		// treats the round as having no finisher bonus target.
		s.FirstFinisherID = uuid.Nil
		if s.RoundStatus == RoundLastLap {
			s.RoundStatus = RoundPlaying
		}
	}
	delete(s.KickVotes, playerID)
	s.timers.Cancel(graceTimerKey(playerID.String()))
	s.log.WithField("player", playerID).Info("player removed")
	return true
}

// commit stamps the mutation, pushes fresh snapshots to every connected
// player and hands the session to the persistence collaborator. It is the
// single exit point for every committed mutation, client or timer driven.
// Assumes lock is held by caller.
func (s *GameSession) commit() {
	s.UpdatedAt = time.Now()
	s.broadcastSnapshots()
	if s.PersistFn != nil {
		s.PersistFn(s)
	}
}

// broadcastSnapshots sends each connected player their own obfuscated view.
// Assumes lock is held by caller.
func (s *GameSession) broadcastSnapshots() {
	if s.EmitToPlayerFn == nil {
		s.log.Warn("EmitToPlayerFn is nil, dropping room update")
		return
	}
	for _, p := range s.Players {
		if p.IsConnected() {
			s.EmitToPlayerFn(p.ID, EventRoomUpdate, s.SnapshotFor(p.ID))
		}
	}
}

// emitRoom sends a room-scoped event (vote progress, kick results).
// Assumes lock is held by caller.
func (s *GameSession) emitRoom(event string, payload interface{}) {
	if s.EmitToRoomFn == nil {
		s.log.Warnf("EmitToRoomFn is nil, dropping %s", event)
		return
	}
	s.EmitToRoomFn(event, payload)
}

// teardown cancels every timer and removes the session from the registry.
// Assumes lock is held by caller.
func (s *GameSession) teardown() {
	s.Status = StatusStopped
	s.timers.CancelAll()
	s.emitRoom(EventRoomRemoved, map[string]string{"code": s.Code})
	if s.OnTeardown != nil {
		s.OnTeardown(s.Code)
	}
	s.log.Info("session torn down")
}
