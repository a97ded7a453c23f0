package store

import (
	"time"

	"cardroom/card"
)

// Phase is the coarse lifecycle state of a room.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseBetting  Phase = "betting"
	PhaseShowdown Phase = "showdown"
	PhaseFinished Phase = "finished"
)

// Round is the betting-street label within a hand.
type Round string

const (
	RoundPreflop  Round = "preflop"
	RoundFlop     Round = "flop"
	RoundTurn     Round = "turn"
	RoundRiver    Round = "river"
	RoundShowdown Round = "showdown"
)

// Room is one live game session. Records are owned by the Store; callers
// get value copies and mutate only through Store methods.
type Room struct {
	ID             string
	Code           string
	HostConnID     string
	MaxPlayers     int
	PlayerCount    int
	Phase          Phase
	Round          Round
	Pot            int
	CurrentBet     int
	Deck           card.Deck
	CommunityCards []card.Card
	CreatedAt      time.Time
}

// BettingPatch carries a partial update of a room's betting state.
// Nil fields leave the corresponding room field unchanged.
type BettingPatch struct {
	Phase          *Phase
	Round          *Round
	Pot            *int
	CurrentBet     *int
	Deck           *card.Deck
	CommunityCards *[]card.Card
}
