package game

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tleroux/skyjo-server/internal/models"
)

// HandleDisconnect records a dropped or leaving player and starts the
// matching grace timer. In lobby, finished or stopped rooms the player is
// removed immediately and the room is torn down when empty.
// Assumes lock is held by caller.
func (s *GameSession) HandleDisconnect(playerID uuid.UUID, voluntary bool) {
	p := s.playerByID(playerID)
	if p == nil {
		return
	}
	if !p.IsConnected() {
		// A second disconnect signal for the same drop; the first timer is
		// already running.
		return
	}

	if voluntary {
		p.Connection = models.ConnectionStatusLeave
	} else {
		p.Connection = models.ConnectionStatusConnectionLost
	}
	s.log.WithFields(logrus.Fields{"player": playerID, "voluntary": voluntary}).Info("player disconnected")

	if playerID == s.AdminID {
		s.reassignAdmin()
	}

	if s.Status != StatusPlaying {
		// No grace period outside active play.
		s.removePlayer(playerID)
		if s.connectedCount() == 0 {
			s.teardown()
			return
		}
		s.commit()
		return
	}

	grace := s.timings.ConnectionLostGrace
	if voluntary {
		grace = s.timings.LeaveGrace
	}
	s.timers.Schedule(graceTimerKey(playerID.String()), grace, func() {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		s.onGraceExpired(playerID)
	})
	s.commit()
}

// HandleReconnect restores a player inside their grace window. The timer is
// cancelled first so a reconnect racing the expiry wins deterministically;
// an expiry callback that already fired finds the player connected and
// discards itself. Assumes lock is held by caller.
func (s *GameSession) HandleReconnect(playerID uuid.UUID, socketID string) error {
	p := s.playerByID(playerID)
	if p == nil {
		return ErrNotFound
	}
	s.timers.Cancel(graceTimerKey(playerID.String()))

	p.SocketID = socketID
	if p.IsConnected() {
		// Duplicate reconnect; just resend state to the new socket.
		if s.EmitToPlayerFn != nil {
			s.EmitToPlayerFn(playerID, EventRoomUpdate, s.SnapshotFor(playerID))
		}
		return nil
	}
	p.Connection = models.ConnectionStatusConnected
	if s.AdminID == uuid.Nil {
		s.AdminID = p.ID
	}
	s.log.WithField("player", playerID).Info("player reconnected")
	s.commit()
	return nil
}

// onGraceExpired converts a stale connection into a forced game action:
// teardown when too few players remain, otherwise a forced turn skip and a
// re-run of the initial-reveal gate. Assumes lock is held by caller.
func (s *GameSession) onGraceExpired(playerID uuid.UUID) {
	p := s.playerByID(playerID)
	if p == nil || p.IsConnected() {
		// Reconnect won the race; nothing to do.
		return
	}
	p.Connection = models.ConnectionStatusDisconnected
	s.log.WithField("player", playerID).Info("grace period expired")

	if s.Status != StatusPlaying {
		s.removePlayer(playerID)
		if s.connectedCount() == 0 {
			s.teardown()
		} else {
			s.commit()
		}
		return
	}

	seated := 0
	for _, pl := range s.Players {
		if pl.IsConnected() {
			seated++
		}
	}
	if seated < models.MinPlayers {
		s.log.Warn("not enough connected players, stopping session")
		s.teardown()
		return
	}

	if cur := s.currentPlayer(); cur != nil && cur.ID == playerID &&
		(s.RoundStatus == RoundPlaying || s.RoundStatus == RoundLastLap) {
		s.forceSkipTurn()
	}
	// A vanished player's unrevealed cards no longer hold the round back.
	s.checkInitialRevealGate()
	s.commit()
}
