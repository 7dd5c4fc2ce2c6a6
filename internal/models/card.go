package models

// Card is a single card in a player's grid or in the selected slot.
// The face value is fixed at deal time; visibility only ever flips from
// hidden to visible within a round.
type Card struct {
	Value   int  `json:"value"`
	Visible bool `json:"visible"`
}

// deckComposition maps card face values to how many copies of each exist
// in a full deck: 5x -2, 10x -1, 15x 0 and 10x each of 1..12.
var deckComposition = map[int]int{
	-2: 5,
	-1: 10,
	0:  15,
}

func init() {
	for v := 1; v <= 12; v++ {
		deckComposition[v] = 10
	}
}

// DeckValues returns the full multiset of card values for a fresh deck,
// unshuffled, in ascending value order.
func DeckValues() []int {
	out := make([]int, 0, TotalDeckSize())
	for v := -2; v <= 12; v++ {
		for i := 0; i < deckComposition[v]; i++ {
			out = append(out, v)
		}
	}
	return out
}

// TotalDeckSize is the invariant card count a session must conserve across
// draw pile, discard pile and every dealt grid.
func TotalDeckSize() int {
	total := 0
	for _, n := range deckComposition {
		total += n
	}
	return total
}
