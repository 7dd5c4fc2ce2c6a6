// Package matchmaking implements the casual quick-join heuristic. It only
// ever calls the core's ordinary create-room and join operations.
package matchmaking

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tleroux/skyjo-server/internal/game"
)

// Tunables for the create-a-new-room decision. The fuller the pool of open
// lobbies, the lower the chance of creating another.
const (
	baseCreateChance = 0.10
	deficitBonus     = 0.15
	maxCreateChance  = 0.70
	idealOpenLobbies = 4
	recentWindow     = 5 * time.Minute
)

// Finder picks a lobby for a casual player.
type Finder struct {
	reg *game.Registry
	rng *rand.Rand
	log *logrus.Entry
}

// NewFinder creates a quick-join finder over the registry.
func NewFinder(reg *game.Registry) *Finder {
	return &Finder{
		reg: reg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		log: logrus.WithField("component", "matchmaking"),
	}
}

// eligible collects public lobbies with an open seat and recent activity.
func (f *Finder) eligible() []*game.GameSession {
	cutoff := time.Now().Add(-recentWindow)
	var out []*game.GameSession
	for _, s := range f.reg.All() {
		s.Mu.Lock()
		ok := !s.Settings.Private &&
			s.Status == game.StatusLobby &&
			len(s.Players) < s.Settings.MaxPlayers &&
			s.UpdatedAt.After(cutoff)
		s.Mu.Unlock()
		if ok {
			out = append(out, s)
		}
	}
	return out
}

// PickRoom returns the join code of a room the player should join, or ""
// when a fresh room should be created instead. Creation is probabilistic: a
// base chance plus a bonus scaled by how far the open-lobby pool is below
// the ideal, capped.
func (f *Finder) PickRoom() string {
	open := f.eligible()

	chance := baseCreateChance
	if deficit := idealOpenLobbies - len(open); deficit > 0 {
		chance += deficitBonus * float64(deficit)
	}
	if chance > maxCreateChance {
		chance = maxCreateChance
	}

	if len(open) == 0 || f.rng.Float64() < chance {
		f.log.WithFields(logrus.Fields{"open": len(open), "chance": chance}).Debug("quick-join creating new room")
		return ""
	}
	return open[f.rng.Intn(len(open))].Code
}
