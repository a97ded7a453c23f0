package gateway

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cardroom/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBufferSize = 256
	maxNameLength  = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

// Connection is one WebSocket client.
type Connection struct {
	ID      string
	conn    *websocket.Conn
	send    chan []byte
	gateway *Gateway
}

// Gateway maps inbound connection intents to session manager calls and
// fans resulting state out to the room's connection group. It never drops
// a connection over a malformed payload or a handler fault.
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	nextConnID  uint64

	manager *session.Manager
}

// New creates a gateway over the given session manager.
func New(manager *session.Manager) *Gateway {
	return &Gateway{
		connections: make(map[string]*Connection),
		manager:     manager,
	}
}

// HandleWebSocket upgrades the request and starts the connection pumps.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	c := &Connection{
		ID:      fmt.Sprintf("conn_%d", g.nextConnID),
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		gateway: g,
	}
	g.connections[c.ID] = c
	total := len(g.connections)
	g.mu.Unlock()

	log.Printf("[Gateway] Client connected: %s, total: %d", c.ID, total)

	go c.readPump()
	go c.writePump()
}

func (c *Connection) readPump() {
	defer func() {
		c.gateway.removeConnection(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches one inbound intent. Any fault inside a handler
// degrades to a single error event to this connection.
func (c *Connection) handleMessage(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Gateway] Handler panic on %s: %v", c.ID, r)
			c.sendError("internal error")
		}
	}()

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("[Gateway] Failed to unmarshal from %s: %v", c.ID, err)
		c.sendError("invalid message format")
		return
	}

	switch env.Type {
	case intentCreateRoom:
		c.handleCreateRoom(env.Payload)
	case intentJoinRoom:
		c.handleJoinRoom(env.Payload)
	case intentLeaveRoom:
		c.handleLeaveRoom()
	case intentPlayerReady:
		c.handlePlayerReady()
	case intentDealCards:
		c.handleDealCards()
	case intentPlayerAction:
		c.handlePlayerAction(env.Payload)
	default:
		c.sendError(fmt.Sprintf("unknown message type %q", env.Type))
	}
}

func (c *Connection) handleCreateRoom(raw json.RawMessage) {
	var p createRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.sendError("invalid create-room payload")
		return
	}
	name, ok := validName(p.PlayerName)
	if !ok {
		c.sendError("invalid player name")
		return
	}

	res, err := c.gateway.manager.CreateRoom(c.ID, name)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.sendEvent(eventRoomCreated, roomCreatedPayload{RoomCode: res.RoomCode, PlayerID: res.PlayerID})
	c.gateway.broadcastGameState(res.RoomCode)
}

func (c *Connection) handleJoinRoom(raw json.RawMessage) {
	var p joinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.sendError("invalid join-room payload")
		return
	}
	name, ok := validName(p.PlayerName)
	if !ok {
		c.sendError("invalid player name")
		return
	}
	code := session.NormalizeRoomCode(p.RoomCode)
	if len(code) != 6 {
		c.sendError("invalid room code")
		return
	}

	res, err := c.gateway.manager.JoinRoom(c.ID, name, code)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.sendEvent(eventRoomJoined, roomJoinedPayload{RoomCode: code, PlayerID: res.PlayerID})
	if !res.Rejoined {
		c.gateway.broadcastToRoom(code, eventPlayerJoined, playerJoinedPayload{Player: res.Player}, c.ID)
	}
	c.gateway.broadcastGameState(code)
}

func (c *Connection) handleLeaveRoom() {
	res, err := c.gateway.manager.LeaveRoom(c.ID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	left := playerLeftPayload{PlayerID: res.PlayerID}
	c.sendEvent(eventPlayerLeft, left)
	if res.RoomClosed {
		// Room is gone; tell the evicted survivors directly.
		for _, connID := range res.EvictedConnIDs {
			c.gateway.sendTo(connID, eventPlayerLeft, left)
		}
		return
	}
	c.gateway.broadcastToRoom(res.RoomCode, eventPlayerLeft, left, c.ID)
	c.gateway.broadcastGameState(res.RoomCode)
}

func (c *Connection) handlePlayerReady() {
	if err := c.gateway.manager.SetReady(c.ID, true); err != nil {
		c.sendError(err.Error())
		return
	}
	if room, ok := c.gateway.manager.RoomOfConn(c.ID); ok {
		c.gateway.broadcastGameState(room.Code)
	}
}

func (c *Connection) handleDealCards() {
	room, ok := c.gateway.manager.RoomOfConn(c.ID)
	if !ok {
		c.sendError("not in a room")
		return
	}
	if err := c.gateway.manager.DealCards(room.ID); err != nil {
		c.sendError(err.Error())
		return
	}

	// Each member sees only their own hole cards.
	for _, connID := range c.gateway.manager.RoomConnIDs(room.Code) {
		states := c.gateway.manager.PlayerStatesFor(room.Code, connID)
		c.gateway.sendTo(connID, eventCardsDealt, cardsDealtPayload{Players: states})
	}
	if gs, _ := c.gateway.manager.GetGameState(room.Code); gs != nil {
		c.gateway.broadcastToRoom(room.Code, eventBettingRoundStarted,
			bettingRoundStartedPayload{ActivePlayerID: gs.ActivePlayerID}, "")
	}
	c.gateway.broadcastGameState(room.Code)
}

func (c *Connection) handlePlayerAction(raw json.RawMessage) {
	var p playerActionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.sendError("invalid player-action payload")
		return
	}
	if p.Amount != nil && *p.Amount < 0 {
		c.sendError("invalid action amount")
		return
	}
	amount := 0
	if p.Amount != nil {
		amount = *p.Amount
	}

	res, err := c.gateway.manager.HandlePlayerAction(c.ID, session.Action(p.Action), amount)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	room, ok := c.gateway.manager.RoomOfConn(c.ID)
	if !ok {
		return
	}
	made := playerActionMadePayload{Action: p.Action, Amount: p.Amount}
	if player, ok := c.gateway.manager.PlayerOfConn(c.ID); ok {
		made.PlayerID = player.ID
	}
	c.gateway.broadcastToRoom(room.Code, eventPlayerActionMade, made, "")

	// Round advancement and winner determination are not produced by the
	// session core; these stay dormant unless that changes.
	if gs, _ := c.gateway.manager.GetGameState(room.Code); gs != nil {
		if res.RoundEnded {
			c.gateway.broadcastToRoom(room.Code, eventRoundEnded,
				roundEndedPayload{Winners: res.Winners, Pot: gs.Pot}, "")
		}
		if res.GameEnded {
			_, players := c.gateway.manager.GetGameState(room.Code)
			c.gateway.broadcastToRoom(room.Code, eventGameEnded,
				gameEndedPayload{FinalResults: players}, "")
		}
	}
	c.gateway.broadcastGameState(room.Code)
}

func validName(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	if name == "" || len(name) > maxNameLength {
		return "", false
	}
	return name, true
}

// --- outbound plumbing ---

func (c *Connection) sendEvent(eventType string, payload any) {
	c.gateway.sendTo(c.ID, eventType, payload)
}

func (c *Connection) sendError(msg string) {
	c.sendEvent(eventError, errorPayload{Message: msg})
}

func (g *Gateway) sendTo(connID, eventType string, payload any) {
	data, err := json.Marshal(OutEnvelope{Type: eventType, Payload: payload})
	if err != nil {
		log.Printf("[Gateway] Failed to marshal %s: %v", eventType, err)
		return
	}

	g.mu.RLock()
	c := g.connections[connID]
	g.mu.RUnlock()
	if c == nil {
		return
	}
	select {
	case c.send <- data:
	default:
		// Drop if buffer full
	}
}

// broadcastToRoom sends one event to every member connection of the room,
// optionally excluding one conn id.
func (g *Gateway) broadcastToRoom(roomCode, eventType string, payload any, excludeConnID string) {
	for _, connID := range g.manager.RoomConnIDs(roomCode) {
		if connID == excludeConnID {
			continue
		}
		g.sendTo(connID, eventType, payload)
	}
}

// broadcastGameState fans the room's fresh snapshot out to the whole room.
// Called after every mutating operation.
func (g *Gateway) broadcastGameState(roomCode string) {
	gs, players := g.manager.GetGameState(roomCode)
	if gs == nil {
		return
	}
	g.broadcastToRoom(roomCode, eventGameStateUpdated,
		gameStateUpdatedPayload{GameState: gs, Players: players}, "")
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	delete(g.connections, c.ID)
	total := len(g.connections)
	g.mu.Unlock()

	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, total)

	if info, ok := g.manager.MarkDisconnected(c.ID); ok {
		g.broadcastToRoom(info.RoomCode, eventPlayerDisconnected,
			playerDisconnectedPayload{PlayerID: info.PlayerID}, c.ID)
		g.broadcastGameState(info.RoomCode)
	}
}
