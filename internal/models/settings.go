package models

import "fmt"

// Default settings values. These mirror the classic rules: a 3x4 grid,
// two initial reveals, play to 100 and double the first finisher's round
// score when they get beaten.
const (
	DefaultCardsPerRow           = 4
	DefaultCardsPerColumn        = 3
	DefaultInitialTurnedCount    = 2
	DefaultScoreToEndGame        = 100
	DefaultFirstPlayerMultiplier = 2
	DefaultMaxPlayers            = 8
	MinPlayers                   = 2
)

// Settings are the per-room rules. They are only mutable while the room is
// still in the lobby, and only by the admin. A grid has CardsPerColumn rows
// and CardsPerRow columns; the classic layout is 3 rows of 4.
type Settings struct {
	Private                      bool `json:"private"`
	MaxPlayers                   int  `json:"maxPlayers"`
	CardsPerRow                  int  `json:"cardsPerRow"`
	CardsPerColumn               int  `json:"cardsPerColumn"`
	InitialTurnedCount           int  `json:"initialTurnedCount"`
	ScoreToEndGame               int  `json:"scoreToEndGame"`
	FirstPlayerMultiplierPenalty int  `json:"firstPlayerMultiplierPenalty"`
	AllowSkyjoForColumn          bool `json:"allowSkyjoForColumn"`
	AllowSkyjoForRow             bool `json:"allowSkyjoForRow"`
}

// DefaultSettings returns a public room with classic rules.
func DefaultSettings() Settings {
	return Settings{
		Private:                      false,
		MaxPlayers:                   DefaultMaxPlayers,
		CardsPerRow:                  DefaultCardsPerRow,
		CardsPerColumn:               DefaultCardsPerColumn,
		InitialTurnedCount:           DefaultInitialTurnedCount,
		ScoreToEndGame:               DefaultScoreToEndGame,
		FirstPlayerMultiplierPenalty: DefaultFirstPlayerMultiplier,
		AllowSkyjoForColumn:          true,
		AllowSkyjoForRow:             false,
	}
}

// CardsPerPlayer is the grid size a single player is dealt.
func (s Settings) CardsPerPlayer() int {
	return s.CardsPerRow * s.CardsPerColumn
}

// Validate rejects structurally invalid settings before they reach a
// session. Sessions assume validated input.
func (s Settings) Validate() error {
	if s.MaxPlayers < MinPlayers || s.MaxPlayers > DefaultMaxPlayers {
		return fmt.Errorf("maxPlayers must be between %d and %d, got %d", MinPlayers, DefaultMaxPlayers, s.MaxPlayers)
	}
	if s.CardsPerRow < 1 || s.CardsPerRow > 6 {
		return fmt.Errorf("cardsPerRow must be between 1 and 6, got %d", s.CardsPerRow)
	}
	if s.CardsPerColumn < 1 || s.CardsPerColumn > 6 {
		return fmt.Errorf("cardsPerColumn must be between 1 and 6, got %d", s.CardsPerColumn)
	}
	if s.InitialTurnedCount < 0 || s.InitialTurnedCount > s.CardsPerPlayer() {
		return fmt.Errorf("initialTurnedCount must be between 0 and %d, got %d", s.CardsPerPlayer(), s.InitialTurnedCount)
	}
	if s.ScoreToEndGame < 1 {
		return fmt.Errorf("scoreToEndGame must be positive, got %d", s.ScoreToEndGame)
	}
	if s.FirstPlayerMultiplierPenalty < 1 {
		return fmt.Errorf("firstPlayerMultiplierPenalty must be at least 1, got %d", s.FirstPlayerMultiplierPenalty)
	}
	// Every player must be dealable from a single deck.
	if s.MaxPlayers*s.CardsPerPlayer() >= TotalDeckSize() {
		return fmt.Errorf("grid %dx%d cannot deal %d players from a %d card deck",
			s.CardsPerRow, s.CardsPerColumn, s.MaxPlayers, TotalDeckSize())
	}
	return nil
}
