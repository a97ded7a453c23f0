package store

import "cardroom/card"

// Player is one participant's durable state within a room. The conn id is a
// volatile attribute: reconnects rebind it without re-keying the player.
type Player struct {
	ID         string
	RoomID     string
	ConnID     string
	Name       string
	Chips      int
	Hand       []card.Card
	CurrentBet int
	Connected  bool
	Ready      bool
	HasActed   bool
	Folded     bool
	Seat       int
}
