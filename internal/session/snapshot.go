package session

import (
	"cardroom/card"
	"cardroom/internal/store"
)

// GameState is the wire-facing projection of one room.
type GameState struct {
	RoomCode       string      `json:"roomCode"`
	Phase          store.Phase `json:"phase"`
	Round          store.Round `json:"round,omitempty"`
	Pot            int         `json:"pot"`
	CurrentBet     int         `json:"currentBet"`
	CommunityCards []card.Card `json:"communityCards"`
	ActivePlayerID string      `json:"activePlayerId,omitempty"`
	MaxPlayers     int         `json:"maxPlayers"`
	PlayerCount    int         `json:"playerCount"`
}

// PlayerState is the wire-facing projection of one seat. Hand is populated
// only for the viewer's own seat; everyone else sees CardCount.
type PlayerState struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Chips      int         `json:"chips"`
	CurrentBet int         `json:"currentBet"`
	Seat       int         `json:"seatPosition"`
	Connected  bool        `json:"isConnected"`
	Ready      bool        `json:"isReady"`
	HasActed   bool        `json:"hasActed"`
	Folded     bool        `json:"isFolded"`
	CardCount  int         `json:"cardCount"`
	Hand       []card.Card `json:"hand,omitempty"`
}

func projectGameState(room store.Room, players []store.Player) *GameState {
	gs := &GameState{
		RoomCode:       room.Code,
		Phase:          room.Phase,
		Round:          room.Round,
		Pot:            room.Pot,
		CurrentBet:     room.CurrentBet,
		CommunityCards: room.CommunityCards,
		MaxPlayers:     room.MaxPlayers,
		PlayerCount:    room.PlayerCount,
	}
	if gs.CommunityCards == nil {
		gs.CommunityCards = []card.Card{}
	}
	// First-match policy: the first connected, non-folded, not-yet-acted
	// player in store enumeration order is the active one.
	for _, p := range players {
		if p.Connected && !p.Folded && !p.HasActed {
			gs.ActivePlayerID = p.ID
			break
		}
	}
	return gs
}

func projectPlayer(p store.Player, includeHand bool) PlayerState {
	ps := PlayerState{
		ID:         p.ID,
		Name:       p.Name,
		Chips:      p.Chips,
		CurrentBet: p.CurrentBet,
		Seat:       p.Seat,
		Connected:  p.Connected,
		Ready:      p.Ready,
		HasActed:   p.HasActed,
		Folded:     p.Folded,
		CardCount:  len(p.Hand),
	}
	if includeHand {
		ps.Hand = append([]card.Card{}, p.Hand...)
	}
	return ps
}
