package models

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// ConnectionStatus tracks a player's presence in the room.
type ConnectionStatus string

const (
	// ConnectionStatusConnected means the player has a live socket.
	ConnectionStatusConnected ConnectionStatus = "connected"
	// ConnectionStatusConnectionLost means the socket dropped without a
	// leave; a grace timer is running.
	ConnectionStatusConnectionLost ConnectionStatus = "connection-lost"
	// ConnectionStatusLeave means the player left voluntarily mid-game; a
	// shorter grace timer is running.
	ConnectionStatusLeave ConnectionStatus = "leave"
	// ConnectionStatusDisconnected means the grace period expired. The seat
	// and scores are kept but the player no longer takes turns.
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
)

// ScoreNotCounted is the recorded round score for a player who was
// disconnected when the round ended. It serializes as "-" and is excluded
// from cumulative totals.
const ScoreNotCounted = -(1 << 30)

// RoundScore is one round's total for one player, or ScoreNotCounted.
type RoundScore int

// MarshalJSON renders ScoreNotCounted as "-" so clients can show a dash
// instead of a bogus number.
func (r RoundScore) MarshalJSON() ([]byte, error) {
	if r == ScoreNotCounted {
		return []byte(`"-"`), nil
	}
	return []byte(fmt.Sprintf("%d", int(r))), nil
}

// UnmarshalJSON accepts either a number or the "-" sentinel.
func (r *RoundScore) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte(`"-"`)) {
		*r = ScoreNotCounted
		return nil
	}
	var v int
	if _, err := fmt.Sscanf(string(data), "%d", &v); err != nil {
		return fmt.Errorf("invalid round score %q: %w", data, err)
	}
	*r = RoundScore(v)
	return nil
}

// Player is one seat in a session. Join order is turn order, so the seat
// index lives in the session's player slice, not here.
type Player struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Avatar      string           `json:"avatar"`
	SocketID    string           `json:"socketId"`
	Connection  ConnectionStatus `json:"connectionStatus"`
	Cards       [][]Card         `json:"cards"`
	Scores      []RoundScore     `json:"scores"`
	WantsReplay bool             `json:"wantsReplay"`
}

// NewPlayer creates a connected player with no cards dealt.
func NewPlayer(name, avatar, socketID string) *Player {
	return &Player{
		ID:         uuid.New(),
		Name:       name,
		Avatar:     avatar,
		SocketID:   socketID,
		Connection: ConnectionStatusConnected,
	}
}

// IsConnected reports whether the player has a live socket.
func (p *Player) IsConnected() bool {
	return p.Connection == ConnectionStatusConnected
}

// IsSeated reports whether the player still holds their seat: connected, or
// inside a grace period. Disconnected players keep their entity but are
// skipped for turns, reveal gating and quorums.
func (p *Player) IsSeated() bool {
	return p.Connection != ConnectionStatusDisconnected
}

// Score is the cumulative total across finished rounds, skipping sentinel
// entries from rounds the player missed.
func (p *Player) Score() int {
	total := 0
	for _, s := range p.Scores {
		if s != ScoreNotCounted {
			total += int(s)
		}
	}
	return total
}

// CardCount returns the number of cards currently in the grid. Line clears
// shrink the grid, so this is not always rows*columns.
func (p *Player) CardCount() int {
	n := 0
	for _, row := range p.Cards {
		n += len(row)
	}
	return n
}

// RevealedCount returns how many grid cards are face up.
func (p *Player) RevealedCount() int {
	n := 0
	for _, row := range p.Cards {
		for _, c := range row {
			if c.Visible {
				n++
			}
		}
	}
	return n
}

// AllCardsRevealed reports whether every remaining grid card is face up.
func (p *Player) AllCardsRevealed() bool {
	return p.RevealedCount() == p.CardCount()
}

// RevealedSum is the sum of face-up card values, used for the
// starting-player comparison after the initial reveal phase.
func (p *Player) RevealedSum() int {
	sum := 0
	for _, row := range p.Cards {
		for _, c := range row {
			if c.Visible {
				sum += c.Value
			}
		}
	}
	return sum
}

// HighestRevealedValue is the tie-breaker for the starting-player rule.
func (p *Player) HighestRevealedValue() int {
	best := ScoreNotCounted
	for _, row := range p.Cards {
		for _, c := range row {
			if c.Visible && c.Value > best {
				best = c.Value
			}
		}
	}
	return best
}

// GridSum is the sum of every card value in the grid regardless of
// visibility, used once all cards are revealed at round end.
func (p *Player) GridSum() int {
	sum := 0
	for _, row := range p.Cards {
		for _, c := range row {
			sum += c.Value
		}
	}
	return sum
}

// CardAt returns a pointer into the grid, or nil when out of bounds.
func (p *Player) CardAt(row, col int) *Card {
	if row < 0 || row >= len(p.Cards) {
		return nil
	}
	if col < 0 || col >= len(p.Cards[row]) {
		return nil
	}
	return &p.Cards[row][col]
}

// RevealAll flips every remaining grid card face up.
func (p *Player) RevealAll() {
	for ri := range p.Cards {
		for ci := range p.Cards[ri] {
			p.Cards[ri][ci].Visible = true
		}
	}
}
