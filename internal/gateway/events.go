package gateway

import (
	"encoding/json"

	"cardroom/internal/session"
)

// Inbound intent types (connection -> server).
const (
	intentCreateRoom   = "create-room"
	intentJoinRoom     = "join-room"
	intentLeaveRoom    = "leave-room"
	intentPlayerReady  = "player-ready"
	intentDealCards    = "deal-cards"
	intentPlayerAction = "player-action"
)

// Outbound event types (server -> connection(s)).
const (
	eventRoomCreated         = "room-created"
	eventRoomJoined          = "room-joined"
	eventPlayerJoined        = "player-joined"
	eventPlayerLeft          = "player-left"
	eventPlayerDisconnected  = "player-disconnected"
	eventGameStateUpdated    = "game-state-updated"
	eventCardsDealt          = "cards-dealt"
	eventBettingRoundStarted = "betting-round-started"
	eventPlayerActionMade    = "player-action-made"
	eventRoundEnded          = "round-ended"
	eventGameEnded           = "game-ended"
	eventError               = "error"
)

// Envelope frames every inbound message. The payload is decoded per intent
// type against a fixed schema.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OutEnvelope frames every outbound event.
type OutEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Inbound payload schemas.

type createRoomPayload struct {
	PlayerName string `json:"playerName"`
}

type joinRoomPayload struct {
	PlayerName string `json:"playerName"`
	RoomCode   string `json:"roomCode"`
}

type playerActionPayload struct {
	Action string `json:"action"`
	Amount *int   `json:"amount,omitempty"`
}

// Outbound payloads.

type roomCreatedPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type roomJoinedPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type playerJoinedPayload struct {
	Player session.PlayerState `json:"player"`
}

type playerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type playerDisconnectedPayload struct {
	PlayerID string `json:"playerId"`
}

type gameStateUpdatedPayload struct {
	GameState *session.GameState    `json:"gameState"`
	Players   []session.PlayerState `json:"players"`
}

type cardsDealtPayload struct {
	Players []session.PlayerState `json:"players"`
}

type bettingRoundStartedPayload struct {
	ActivePlayerID string `json:"activePlayerId"`
}

type playerActionMadePayload struct {
	PlayerID string `json:"playerId"`
	Action   string `json:"action"`
	Amount   *int   `json:"amount,omitempty"`
}

type roundEndedPayload struct {
	Winners []string `json:"winners"`
	Pot     int      `json:"pot"`
}

type gameEndedPayload struct {
	FinalResults []session.PlayerState `json:"finalResults"`
}

type errorPayload struct {
	Message string `json:"message"`
}
