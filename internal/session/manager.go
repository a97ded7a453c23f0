package session

import (
	"log"
	"strings"
	"sync"

	"cardroom/card"
	"cardroom/internal/store"
)

const (
	// StartingChips is the fixed stack every player sits down with.
	StartingChips = 1000
	// DefaultMaxPlayers is the room capacity.
	DefaultMaxPlayers = 6
	// HandSize is the number of hole cards dealt to each seat.
	HandSize = 4
)

// Manager coordinates room lifecycle, dealing, and action validation
// against the store. Each operation runs under a per-room mutex so a
// racing deal/action/join never reads a stale room+player pair; operations
// on different rooms proceed concurrently.
type Manager struct {
	store *store.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex // room id -> lock
}

// New creates a manager over the given store.
func New(st *store.Store) *Manager {
	return &Manager{
		store: st,
		locks: make(map[string]*sync.Mutex),
	}
}

func (m *Manager) roomLock(roomID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[roomID] = l
	}
	return l
}

func (m *Manager) dropRoomLock(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, roomID)
}

// CreateRoomResult is returned to the creating connection.
type CreateRoomResult struct {
	RoomCode string
	PlayerID string
}

// CreateRoom allocates a room and seats the caller as its first player.
func (m *Manager) CreateRoom(connID, name string) (CreateRoomResult, error) {
	if _, ok := m.store.LookupPlayerByConn(connID); ok {
		return CreateRoomResult{}, ErrAlreadyInRoom
	}

	room := m.store.CreateRoom(connID, DefaultMaxPlayers)
	lock := m.roomLock(room.ID)
	lock.Lock()
	defer lock.Unlock()

	player := m.store.CreatePlayer(room.ID, connID, name, StartingChips)
	m.store.UpdateRoomPlayerCount(room.ID, 1)
	log.Printf("[Session] Room %s created by %s (player %s)", room.Code, name, player.ID)
	return CreateRoomResult{RoomCode: room.Code, PlayerID: player.ID}, nil
}

// JoinRoomResult is returned to the joining connection.
type JoinRoomResult struct {
	PlayerID string
	Player   PlayerState
	Rejoined bool
}

// JoinRoom seats the caller in the room registered under code, or treats
// the call as a reconnect if the connection (or a disconnected seat with
// the caller's name) already belongs to the target room.
func (m *Manager) JoinRoom(connID, name, code string) (JoinRoomResult, error) {
	code = NormalizeRoomCode(code)
	room, ok := m.store.LookupRoomByCode(code)
	if !ok {
		return JoinRoomResult{}, ErrRoomNotFound
	}

	lock := m.roomLock(room.ID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the room lock: the room may have been torn down while
	// we waited.
	room, ok = m.store.LookupRoomByID(room.ID)
	if !ok {
		return JoinRoomResult{}, ErrRoomNotFound
	}

	if existing, ok := m.store.LookupPlayerByConn(connID); ok {
		if existing.RoomID != room.ID {
			return JoinRoomResult{}, ErrAlreadyInRoom
		}
		// Same connection, same room: reconnect, never a duplicate seat.
		m.store.SetConnected(existing.ID, true)
		existing.Connected = true
		log.Printf("[Session] Player %s reconnected to room %s", existing.ID, room.Code)
		return JoinRoomResult{PlayerID: existing.ID, Player: projectPlayer(existing, true), Rejoined: true}, nil
	}

	// A disconnected seat with the caller's name resumes on the new
	// connection, keeping hand, chips, and seat.
	for _, p := range m.store.RoomPlayers(room.ID) {
		if !p.Connected && p.Name == name {
			m.store.RebindConn(p.ID, connID)
			m.store.SetConnected(p.ID, true)
			p.ConnID = connID
			p.Connected = true
			log.Printf("[Session] Player %s resumed room %s on a new connection", p.ID, room.Code)
			return JoinRoomResult{PlayerID: p.ID, Player: projectPlayer(p, true), Rejoined: true}, nil
		}
	}

	if room.PlayerCount >= room.MaxPlayers {
		return JoinRoomResult{}, ErrRoomFull
	}

	player := m.store.CreatePlayer(room.ID, connID, name, StartingChips)
	m.store.UpdateRoomPlayerCount(room.ID, len(m.store.RoomPlayers(room.ID)))
	log.Printf("[Session] Player %s (%s) joined room %s", player.ID, name, room.Code)
	return JoinRoomResult{PlayerID: player.ID, Player: projectPlayer(player, true)}, nil
}

// LeaveRoomResult reports what the departure did to the room.
type LeaveRoomResult struct {
	PlayerID   string
	RoomID     string
	RoomCode   string
	RoomClosed bool
	// EvictedConnIDs lists connections unseated by room teardown, the
	// leaver excluded.
	EvictedConnIDs []string
}

// LeaveRoom removes the caller's player. A room left with at most one
// player is not viable and is torn down, evicting the survivor.
func (m *Manager) LeaveRoom(connID string) (LeaveRoomResult, error) {
	player, ok := m.store.LookupPlayerByConn(connID)
	if !ok {
		return LeaveRoomResult{}, ErrPlayerNotFound
	}

	lock := m.roomLock(player.RoomID)
	lock.Lock()
	defer lock.Unlock()

	player, ok = m.store.LookupPlayerByConn(connID)
	if !ok {
		return LeaveRoomResult{}, ErrPlayerNotFound
	}
	res := LeaveRoomResult{PlayerID: player.ID, RoomID: player.RoomID}
	room, roomOK := m.store.LookupRoomByID(player.RoomID)
	if roomOK {
		res.RoomCode = room.Code
	}

	m.store.RemovePlayer(player.ID)
	if !roomOK {
		return res, nil
	}

	remaining := m.store.RoomPlayers(room.ID)
	if len(remaining) <= 1 {
		for _, p := range remaining {
			res.EvictedConnIDs = append(res.EvictedConnIDs, p.ConnID)
		}
		m.store.DeleteRoom(room.ID)
		m.dropRoomLock(room.ID)
		res.RoomClosed = true
		log.Printf("[Session] Room %s closed (player %s left)", room.Code, player.ID)
		return res, nil
	}

	m.store.UpdateRoomPlayerCount(room.ID, len(remaining))
	log.Printf("[Session] Player %s left room %s, %d remain", player.ID, room.Code, len(remaining))
	return res, nil
}

// SetReady flags the caller's ready state.
func (m *Manager) SetReady(connID string, ready bool) error {
	player, ok := m.store.LookupPlayerByConn(connID)
	if !ok {
		return ErrPlayerNotFound
	}
	lock := m.roomLock(player.RoomID)
	lock.Lock()
	defer lock.Unlock()
	m.store.SetReady(player.ID, ready)
	return nil
}

// DisconnectInfo identifies the player a dropped connection belonged to.
type DisconnectInfo struct {
	PlayerID string
	RoomID   string
	RoomCode string
}

// MarkDisconnected flags the caller's player as disconnected without
// unseating it, so a later rejoin resumes the same seat.
func (m *Manager) MarkDisconnected(connID string) (DisconnectInfo, bool) {
	player, ok := m.store.LookupPlayerByConn(connID)
	if !ok {
		return DisconnectInfo{}, false
	}
	lock := m.roomLock(player.RoomID)
	lock.Lock()
	defer lock.Unlock()

	m.store.SetConnected(player.ID, false)
	info := DisconnectInfo{PlayerID: player.ID, RoomID: player.RoomID}
	if room, ok := m.store.LookupRoomByID(player.RoomID); ok {
		info.RoomCode = room.Code
	}
	log.Printf("[Session] Player %s disconnected", player.ID)
	return info, true
}

// DealCards shuffles a fresh deck and deals HandSize cards to every seated
// player in join order, then resets the room's betting state for a new
// pre-flop round. Chip stacks are left as they are.
func (m *Manager) DealCards(roomID string) error {
	room, ok := m.store.LookupRoomByID(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	lock := m.roomLock(room.ID)
	lock.Lock()
	defer lock.Unlock()

	room, ok = m.store.LookupRoomByID(room.ID)
	if !ok {
		return ErrRoomNotFound
	}
	players := m.store.RoomPlayers(room.ID)
	if len(players) < 2 {
		return ErrInsufficientPlayers
	}

	deck := card.NewShuffledDeck()
	for _, p := range players {
		m.store.ResetForDeal(p.ID)
		m.store.SetHand(p.ID, deck.Draw(HandSize))
	}

	phase := store.PhaseBetting
	round := store.RoundPreflop
	pot := 0
	curBet := 0
	community := []card.Card{}
	m.store.UpdateRoomBettingState(room.ID, store.BettingPatch{
		Phase:          &phase,
		Round:          &round,
		Pot:            &pot,
		CurrentBet:     &curBet,
		Deck:           &deck,
		CommunityCards: &community,
	})
	log.Printf("[Session] Room %s dealt %d hands, %d cards remain", room.Code, len(players), len(deck))
	return nil
}

// ActionResult reports round/game completion. The core never advances past
// pre-flop and never computes winners, so all fields stay zero-valued;
// callers must not assume automatic round advancement.
type ActionResult struct {
	RoundEnded bool
	GameEnded  bool
	Winners    []string
}

// HandlePlayerAction validates and applies one betting action. Failed
// validations mutate nothing.
func (m *Manager) HandlePlayerAction(connID string, action Action, amount int) (ActionResult, error) {
	player, ok := m.store.LookupPlayerByConn(connID)
	if !ok {
		return ActionResult{}, ErrPlayerNotFound
	}

	lock := m.roomLock(player.RoomID)
	lock.Lock()
	defer lock.Unlock()

	player, ok = m.store.LookupPlayerByConn(connID)
	if !ok {
		return ActionResult{}, ErrPlayerNotFound
	}
	room, ok := m.store.LookupRoomByID(player.RoomID)
	if !ok {
		return ActionResult{}, ErrRoomNotFound
	}

	switch action {
	case ActionFold:
		m.store.SetFolded(player.ID, true)

	case ActionCheck:
		if room.CurrentBet > player.CurrentBet {
			return ActionResult{}, ErrIllegalCheck
		}
		m.store.SetHasActed(player.ID, true)

	case ActionCall:
		shortfall := room.CurrentBet - player.CurrentBet
		if shortfall > player.Chips {
			return ActionResult{}, ErrInsufficientChips
		}
		if shortfall > 0 {
			m.store.ApplyBet(player.ID, shortfall)
		}
		m.store.SetHasActed(player.ID, true)

	case ActionRaise:
		if amount <= room.CurrentBet {
			return ActionResult{}, ErrInvalidRaise
		}
		if amount > player.Chips {
			return ActionResult{}, ErrInsufficientChips
		}
		m.store.ApplyBet(player.ID, amount-player.CurrentBet)
		curBet := amount
		m.store.UpdateRoomBettingState(room.ID, store.BettingPatch{CurrentBet: &curBet})
		m.store.SetHasActed(player.ID, true)

	case ActionAllIn:
		// Chips may already be zero; the action is still legal.
		delta := player.Chips
		if delta > 0 {
			m.store.ApplyBet(player.ID, delta)
		}
		if total := player.CurrentBet + delta; total > room.CurrentBet {
			curBet := total
			m.store.UpdateRoomBettingState(room.ID, store.BettingPatch{CurrentBet: &curBet})
		}
		m.store.SetHasActed(player.ID, true)

	default:
		return ActionResult{}, ErrInvalidAction
	}

	log.Printf("[Session] Player %s in room %s: %s (amount=%d)", player.ID, room.Code, action, amount)
	return ActionResult{}, nil
}

// GetGameState projects the room and its players into wire snapshots.
// Returns nil when the room is missing. Hands are omitted; use
// PlayerStatesFor for a viewer-scoped projection.
func (m *Manager) GetGameState(roomCode string) (*GameState, []PlayerState) {
	room, ok := m.store.LookupRoomByCode(NormalizeRoomCode(roomCode))
	if !ok {
		return nil, nil
	}
	players := m.store.RoomPlayers(room.ID)
	states := make([]PlayerState, 0, len(players))
	for _, p := range players {
		states = append(states, projectPlayer(p, false))
	}
	return projectGameState(room, players), states
}

// PlayerStatesFor projects the room's players with hole cards included for
// the viewer's own seat only.
func (m *Manager) PlayerStatesFor(roomCode, viewerConnID string) []PlayerState {
	room, ok := m.store.LookupRoomByCode(NormalizeRoomCode(roomCode))
	if !ok {
		return nil
	}
	players := m.store.RoomPlayers(room.ID)
	states := make([]PlayerState, 0, len(players))
	for _, p := range players {
		states = append(states, projectPlayer(p, p.ConnID == viewerConnID))
	}
	return states
}

// PlayerOfConn resolves the connection's player as a wire snapshot.
func (m *Manager) PlayerOfConn(connID string) (PlayerState, bool) {
	player, ok := m.store.LookupPlayerByConn(connID)
	if !ok {
		return PlayerState{}, false
	}
	return projectPlayer(player, false), true
}

// RoomOfConn resolves the room the connection's player is seated in.
func (m *Manager) RoomOfConn(connID string) (store.Room, bool) {
	player, ok := m.store.LookupPlayerByConn(connID)
	if !ok {
		return store.Room{}, false
	}
	return m.store.LookupRoomByID(player.RoomID)
}

// RoomConnIDs lists the conn ids of every member of the room, for
// room-scoped fan-out.
func (m *Manager) RoomConnIDs(roomCode string) []string {
	room, ok := m.store.LookupRoomByCode(NormalizeRoomCode(roomCode))
	if !ok {
		return nil
	}
	players := m.store.RoomPlayers(room.ID)
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ConnID)
	}
	return ids
}

// NormalizeRoomCode uppercases and trims a client-supplied room code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
