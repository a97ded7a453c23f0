package store

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"cardroom/card"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6
)

// Store is the authoritative in-memory registry of rooms and players.
// Every exported method is atomic with respect to the others; multi-step
// read-modify-write sequences are serialized per room by the session
// manager, not here.
type Store struct {
	mu          sync.RWMutex
	rooms       map[string]*Room    // room id -> room
	roomsByCode map[string]string   // room code -> room id
	players     map[string]*Player  // player id -> player
	playerConns map[string]string   // conn id -> player id
	roomMembers map[string][]string // room id -> player ids, join order
}

// New creates an empty store. One instance is built at process start and
// owns all room/player records for the process lifetime.
func New() *Store {
	return &Store{
		rooms:       make(map[string]*Room),
		roomsByCode: make(map[string]string),
		players:     make(map[string]*Player),
		playerConns: make(map[string]string),
		roomMembers: make(map[string][]string),
	}
}

// CreateRoom allocates a room with a fresh id and a code that is unique
// among live rooms. Collisions are re-checked, never assumed away.
func (s *Store) CreateRoom(hostConnID string, maxPlayers int) Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.generateCodeLocked()
	room := &Room{
		ID:         uuid.NewString(),
		Code:       code,
		HostConnID: hostConnID,
		MaxPlayers: maxPlayers,
		Phase:      PhaseWaiting,
		CreatedAt:  time.Now(),
	}
	s.rooms[room.ID] = room
	s.roomsByCode[code] = room.ID
	return *room
}

func (s *Store) generateCodeLocked() string {
	for {
		buf := make([]byte, roomCodeLength)
		for i := range buf {
			buf[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
		}
		code := string(buf)
		if _, taken := s.roomsByCode[code]; !taken {
			return code
		}
	}
}

// DeleteRoom removes the room, its member list, every member player, and
// their conn-id index entries.
func (s *Store) DeleteRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return
	}
	for _, pid := range s.roomMembers[roomID] {
		if p, ok := s.players[pid]; ok {
			delete(s.playerConns, p.ConnID)
			delete(s.players, pid)
		}
	}
	delete(s.roomMembers, roomID)
	delete(s.roomsByCode, room.Code)
	delete(s.rooms, roomID)
}

// LookupRoomByID returns a copy of the room. A missing id is a normal
// not-found outcome.
func (s *Store) LookupRoomByID(roomID string) (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	return *room, true
}

// LookupRoomByCode returns a copy of the room registered under code.
func (s *Store) LookupRoomByCode(code string) (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.roomsByCode[code]
	if !ok {
		return Room{}, false
	}
	room, ok := s.rooms[id]
	if !ok {
		return Room{}, false
	}
	return *room, true
}

// UpdateRoomPlayerCount overwrites the room's cached member count.
func (s *Store) UpdateRoomPlayerCount(roomID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room, ok := s.rooms[roomID]; ok {
		room.PlayerCount = count
	}
}

// UpdateRoomBettingState applies a partial update; nil patch fields leave
// the room untouched.
func (s *Store) UpdateRoomBettingState(roomID string, patch BettingPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	if patch.Phase != nil {
		room.Phase = *patch.Phase
	}
	if patch.Round != nil {
		room.Round = *patch.Round
	}
	if patch.Pot != nil {
		room.Pot = *patch.Pot
	}
	if patch.CurrentBet != nil {
		room.CurrentBet = *patch.CurrentBet
	}
	if patch.Deck != nil {
		room.Deck = *patch.Deck
	}
	if patch.CommunityCards != nil {
		room.CommunityCards = *patch.CommunityCards
	}
	return true
}

// CreatePlayer seats a new player in the room at the next seat position and
// indexes it by conn id. The caller keeps PlayerCount in sync.
func (s *Store) CreatePlayer(roomID, connID, name string, chips int) Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := &Player{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		ConnID:    connID,
		Name:      name,
		Chips:     chips,
		Connected: true,
		Seat:      len(s.roomMembers[roomID]),
	}
	s.players[player.ID] = player
	s.playerConns[connID] = player.ID
	s.roomMembers[roomID] = append(s.roomMembers[roomID], player.ID)
	return *player
}

// RemovePlayer deletes the player, its member-list entry, and its conn
// index entry. Deciding whether the room survives is the caller's job.
func (s *Store) RemovePlayer(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[playerID]
	if !ok {
		return
	}
	members := s.roomMembers[player.RoomID]
	for i, pid := range members {
		if pid == playerID {
			s.roomMembers[player.RoomID] = append(members[:i], members[i+1:]...)
			break
		}
	}
	delete(s.playerConns, player.ConnID)
	delete(s.players, playerID)
}

// LookupPlayerByID returns a copy of the player.
func (s *Store) LookupPlayerByID(playerID string) (Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, ok := s.players[playerID]
	if !ok {
		return Player{}, false
	}
	return *player, true
}

// LookupPlayerByConn returns a copy of the player mapped to connID.
func (s *Store) LookupPlayerByConn(connID string) (Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pid, ok := s.playerConns[connID]
	if !ok {
		return Player{}, false
	}
	player, ok := s.players[pid]
	if !ok {
		return Player{}, false
	}
	return *player, true
}

// RoomPlayers returns copies of the room's members in join order. Join
// order is the store's enumeration order everywhere.
func (s *Store) RoomPlayers(roomID string) []Player {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.roomMembers[roomID]
	out := make([]Player, 0, len(members))
	for _, pid := range members {
		if p, ok := s.players[pid]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// RebindConn moves the player onto a new conn id, dropping the old index
// entry. Hand, chips, and seat stay with the player record.
func (s *Store) RebindConn(playerID, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[playerID]
	if !ok {
		return
	}
	delete(s.playerConns, player.ConnID)
	player.ConnID = connID
	s.playerConns[connID] = playerID
}

// SetConnected flags the player's connection state.
func (s *Store) SetConnected(playerID string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		p.Connected = connected
	}
}

// SetReady flags the player's ready state.
func (s *Store) SetReady(playerID string, ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		p.Ready = ready
	}
}

// SetHasActed flags whether the player has acted this betting round.
func (s *Store) SetHasActed(playerID string, acted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		p.HasActed = acted
	}
}

// SetFolded flags whether the player has folded the current hand.
func (s *Store) SetFolded(playerID string, folded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		p.Folded = folded
	}
}

// SetHand replaces the player's hole cards.
func (s *Store) SetHand(playerID string, hand []card.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		p.Hand = hand
	}
}

// ResetForDeal clears a player's per-hand betting state before new cards
// go out.
func (s *Store) ResetForDeal(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		p.CurrentBet = 0
		p.HasActed = false
		p.Folded = false
	}
}

// ApplyBet atomically moves delta chips from the player's stack into its
// street bet and the owning room's pot. The caller validates
// delta <= player.Chips before calling; ApplyBet only refuses when the
// player or room is gone.
func (s *Store) ApplyBet(playerID string, delta int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[playerID]
	if !ok {
		return false
	}
	room, ok := s.rooms[player.RoomID]
	if !ok {
		return false
	}
	player.Chips -= delta
	player.CurrentBet += delta
	room.Pot += delta
	return true
}
