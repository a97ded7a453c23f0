package card

import (
	"fmt"

	"github.com/google/uuid"
)

// Rank is a card face value, A through K.
type Rank string

const (
	RankAce   Rank = "A"
	Rank2     Rank = "2"
	Rank3     Rank = "3"
	Rank4     Rank = "4"
	Rank5     Rank = "5"
	Rank6     Rank = "6"
	Rank7     Rank = "7"
	Rank8     Rank = "8"
	Rank9     Rank = "9"
	Rank10    Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
)

// Ranks lists every rank in deck-building order.
var Ranks = []Rank{
	RankAce, Rank2, Rank3, Rank4, Rank5, Rank6, Rank7,
	Rank8, Rank9, Rank10, RankJack, RankQueen, RankKing,
}

// Card is a single dealt card instance. ID is unique per instance, so two
// cards with the same suit and rank never compare equal within a session.
// A Card is immutable once created.
type Card struct {
	ID   string `json:"id"`
	Suit Suit   `json:"suit"`
	Rank Rank   `json:"rank"`
}

// New creates a card with a fresh unique id.
func New(s Suit, r Rank) Card {
	return Card{ID: uuid.NewString(), Suit: s, Rank: r}
}

func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Suit, c.Rank)
}
