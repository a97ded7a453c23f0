package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"cardroom/internal/session"
	"cardroom/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *Gateway) {
	t.Helper()
	g := New(session.New(store.New()))
	srv := httptest.NewServer(http.HandlerFunc(g.HandleWebSocket))
	t.Cleanup(srv.Close)
	return srv, g
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendIntent(t *testing.T, conn *websocket.Conn, intentType string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", intentType, err)
	}
	env := Envelope{Type: intentType, Payload: data}
	if err := conn.WriteJSON(env); err != nil {
		t.Fatalf("write %s: %v", intentType, err)
	}
}

// waitEvent reads events until one of the wanted type arrives, skipping
// interleaved broadcasts, and decodes its payload into out.
func waitEvent(t *testing.T, conn *websocket.Conn, eventType string, out any) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	conn.SetReadDeadline(deadline)
	for {
		var env struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", eventType, err)
		}
		if env.Type != eventType {
			continue
		}
		if out != nil {
			if err := json.Unmarshal(env.Payload, out); err != nil {
				t.Fatalf("decode %s payload: %v", eventType, err)
			}
		}
		return
	}
}

func createRoom(t *testing.T, conn *websocket.Conn, name string) roomCreatedPayload {
	t.Helper()
	sendIntent(t, conn, intentCreateRoom, createRoomPayload{PlayerName: name})
	var created roomCreatedPayload
	waitEvent(t, conn, eventRoomCreated, &created)
	return created
}

func joinRoom(t *testing.T, conn *websocket.Conn, name, code string) roomJoinedPayload {
	t.Helper()
	sendIntent(t, conn, intentJoinRoom, joinRoomPayload{PlayerName: name, RoomCode: code})
	var joined roomJoinedPayload
	waitEvent(t, conn, eventRoomJoined, &joined)
	return joined
}

func TestCreateAndJoinRoom(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	created := createRoom(t, a, "alice")
	if len(created.RoomCode) != 6 || created.PlayerID == "" {
		t.Fatalf("unexpected room-created payload: %+v", created)
	}

	joined := joinRoom(t, b, "bob", created.RoomCode)
	if joined.RoomCode != created.RoomCode || joined.PlayerID == "" {
		t.Fatalf("unexpected room-joined payload: %+v", joined)
	}

	// The host hears about the new seat; the joiner does not get echoed.
	var pj playerJoinedPayload
	waitEvent(t, a, eventPlayerJoined, &pj)
	if pj.Player.ID != joined.PlayerID || pj.Player.Name != "bob" {
		t.Fatalf("unexpected player-joined payload: %+v", pj)
	}

	var gs gameStateUpdatedPayload
	waitEvent(t, b, eventGameStateUpdated, &gs)
	if gs.GameState == nil || gs.GameState.PlayerCount != 2 {
		t.Fatalf("unexpected game-state-updated: %+v", gs.GameState)
	}
	if len(gs.Players) != 2 {
		t.Fatalf("expected 2 players in snapshot, got %d", len(gs.Players))
	}
	for _, p := range gs.Players {
		if p.Chips != session.StartingChips {
			t.Fatalf("player %s chips = %d, want %d", p.Name, p.Chips, session.StartingChips)
		}
	}
}

func TestJoinRoom_UnknownCodeEmitsError(t *testing.T) {
	srv, _ := newTestServer(t)
	b := dial(t, srv)

	sendIntent(t, b, intentJoinRoom, joinRoomPayload{PlayerName: "bob", RoomCode: "ZZZZ99"})
	var e errorPayload
	waitEvent(t, b, eventError, &e)
	if e.Message == "" {
		t.Fatal("expected an error message")
	}
}

func TestJoinRoom_MalformedCodeRejectedLocally(t *testing.T) {
	srv, _ := newTestServer(t)
	b := dial(t, srv)

	sendIntent(t, b, intentJoinRoom, joinRoomPayload{PlayerName: "bob", RoomCode: "abc"})
	var e errorPayload
	waitEvent(t, b, eventError, &e)
	if e.Message != "invalid room code" {
		t.Fatalf("unexpected error %q", e.Message)
	}
}

func TestUnknownIntentEmitsError(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv)

	if err := a.WriteMessage(websocket.TextMessage, []byte(`{"type":"warp-ten"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var e errorPayload
	waitEvent(t, a, eventError, &e)
	if !strings.Contains(e.Message, "warp-ten") {
		t.Fatalf("error should name the intent, got %q", e.Message)
	}

	// The connection survives a bad frame.
	if err := a.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitEvent(t, a, eventError, &e)
	if e.Message != "invalid message format" {
		t.Fatalf("unexpected error %q", e.Message)
	}
	createRoom(t, a, "alice")
}

func TestDealCards_PrivateHands(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	created := createRoom(t, a, "alice")
	joined := joinRoom(t, b, "bob", created.RoomCode)

	sendIntent(t, a, intentDealCards, nil)

	var dealtA cardsDealtPayload
	waitEvent(t, a, eventCardsDealt, &dealtA)
	for _, p := range dealtA.Players {
		switch p.ID {
		case created.PlayerID:
			if len(p.Hand) != session.HandSize {
				t.Fatalf("own hand has %d cards, want %d", len(p.Hand), session.HandSize)
			}
		case joined.PlayerID:
			if len(p.Hand) != 0 || p.CardCount != session.HandSize {
				t.Fatalf("opponent hand leaked: %+v", p)
			}
		}
	}

	var dealtB cardsDealtPayload
	waitEvent(t, b, eventCardsDealt, &dealtB)
	for _, p := range dealtB.Players {
		if p.ID == joined.PlayerID && len(p.Hand) != session.HandSize {
			t.Fatalf("joiner must see own hand, got %d cards", len(p.Hand))
		}
		if p.ID == created.PlayerID && len(p.Hand) != 0 {
			t.Fatal("joiner must not see the host's hand")
		}
	}

	var started bettingRoundStartedPayload
	waitEvent(t, b, eventBettingRoundStarted, &started)
	if started.ActivePlayerID != created.PlayerID {
		t.Fatalf("expected host to act first, got %s", started.ActivePlayerID)
	}

	var gs gameStateUpdatedPayload
	waitEvent(t, b, eventGameStateUpdated, &gs)
	if gs.GameState.Phase != store.PhaseBetting || gs.GameState.Round != store.RoundPreflop {
		t.Fatalf("expected betting/preflop, got %s/%s", gs.GameState.Phase, gs.GameState.Round)
	}
}

func TestDealCards_RequiresTwoPlayersOverWire(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv)
	createRoom(t, a, "alice")

	sendIntent(t, a, intentDealCards, nil)
	var e errorPayload
	waitEvent(t, a, eventError, &e)
	if e.Message == "" {
		t.Fatal("expected an error for a one-player deal")
	}
}

func TestPlayerAction_RaiseThenCall(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	created := createRoom(t, a, "alice")
	joined := joinRoom(t, b, "bob", created.RoomCode)
	sendIntent(t, a, intentDealCards, nil)
	waitEvent(t, b, eventCardsDealt, nil)

	amount := 100
	sendIntent(t, a, intentPlayerAction, playerActionPayload{Action: "raise", Amount: &amount})

	var made playerActionMadePayload
	waitEvent(t, b, eventPlayerActionMade, &made)
	if made.PlayerID != created.PlayerID || made.Action != "raise" || made.Amount == nil || *made.Amount != 100 {
		t.Fatalf("unexpected player-action-made: %+v", made)
	}

	var gs gameStateUpdatedPayload
	waitEvent(t, b, eventGameStateUpdated, &gs)
	if gs.GameState.Pot != 100 || gs.GameState.CurrentBet != 100 {
		t.Fatalf("after raise: pot=%d curBet=%d", gs.GameState.Pot, gs.GameState.CurrentBet)
	}
	if gs.GameState.ActivePlayerID != joined.PlayerID {
		t.Fatalf("expected action on joiner, got %s", gs.GameState.ActivePlayerID)
	}

	// A hears its own raise broadcast before anything about the call.
	waitEvent(t, a, eventPlayerActionMade, &made)
	if made.Action != "raise" {
		t.Fatalf("expected raise echo first, got %+v", made)
	}

	sendIntent(t, b, intentPlayerAction, playerActionPayload{Action: "call"})
	waitEvent(t, a, eventPlayerActionMade, &made)
	if made.PlayerID != joined.PlayerID || made.Action != "call" {
		t.Fatalf("unexpected player-action-made: %+v", made)
	}
	waitEvent(t, a, eventGameStateUpdated, &gs)
	if gs.GameState.Pot != 200 {
		t.Fatalf("after call: pot=%d", gs.GameState.Pot)
	}
	for _, p := range gs.Players {
		if p.Chips != 900 {
			t.Fatalf("player %s chips=%d, want 900", p.Name, p.Chips)
		}
	}
}

func TestPlayerAction_IllegalCheckEmitsErrorOnly(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	created := createRoom(t, a, "alice")
	joinRoom(t, b, "bob", created.RoomCode)
	sendIntent(t, a, intentDealCards, nil)
	waitEvent(t, b, eventCardsDealt, nil)

	amount := 100
	sendIntent(t, a, intentPlayerAction, playerActionPayload{Action: "raise", Amount: &amount})
	waitEvent(t, b, eventPlayerActionMade, nil)

	sendIntent(t, b, intentPlayerAction, playerActionPayload{Action: "check"})
	var e errorPayload
	waitEvent(t, b, eventError, &e)
	if e.Message == "" {
		t.Fatal("expected an error for the illegal check")
	}

	// Negative amounts never reach the session layer.
	bad := -5
	sendIntent(t, b, intentPlayerAction, playerActionPayload{Action: "raise", Amount: &bad})
	waitEvent(t, b, eventError, &e)
	if e.Message != "invalid action amount" {
		t.Fatalf("unexpected error %q", e.Message)
	}
}

func TestLeaveRoom_ClosesRoomOverWire(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	created := createRoom(t, a, "alice")
	joinRoom(t, b, "bob", created.RoomCode)

	sendIntent(t, a, intentLeaveRoom, nil)

	var left playerLeftPayload
	waitEvent(t, a, eventPlayerLeft, &left)
	if left.PlayerID != created.PlayerID {
		t.Fatalf("unexpected player-left: %+v", left)
	}
	// The evicted survivor hears the departure too.
	waitEvent(t, b, eventPlayerLeft, &left)
	if left.PlayerID != created.PlayerID {
		t.Fatalf("unexpected player-left for survivor: %+v", left)
	}

	// The code is free again: the survivor can open a new room.
	sendIntent(t, b, intentJoinRoom, joinRoomPayload{PlayerName: "bob", RoomCode: created.RoomCode})
	var e errorPayload
	waitEvent(t, b, eventError, &e)
	if e.Message == "" {
		t.Fatal("expected join of a closed room to fail")
	}
	createRoom(t, b, "bob")
}

func TestDisconnect_NotifiesRoom(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	created := createRoom(t, a, "alice")
	joined := joinRoom(t, b, "bob", created.RoomCode)
	waitEvent(t, a, eventPlayerJoined, nil)

	b.Close()

	var gone playerDisconnectedPayload
	waitEvent(t, a, eventPlayerDisconnected, &gone)
	if gone.PlayerID != joined.PlayerID {
		t.Fatalf("unexpected player-disconnected: %+v", gone)
	}

	var gs gameStateUpdatedPayload
	waitEvent(t, a, eventGameStateUpdated, &gs)
	if gs.GameState.PlayerCount != 2 {
		t.Fatalf("disconnect must keep the seat, count=%d", gs.GameState.PlayerCount)
	}
	for _, p := range gs.Players {
		if p.ID == joined.PlayerID && p.Connected {
			t.Fatal("disconnected player still flagged connected")
		}
	}

	// A fresh connection with the same name resumes the seat.
	b2 := dial(t, srv)
	rejoined := joinRoom(t, b2, "bob", created.RoomCode)
	if rejoined.PlayerID != joined.PlayerID {
		t.Fatalf("expected seat resume, got %s want %s", rejoined.PlayerID, joined.PlayerID)
	}
}

func TestPlayerReady_Broadcast(t *testing.T) {
	srv, _ := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	created := createRoom(t, a, "alice")
	joined := joinRoom(t, b, "bob", created.RoomCode)

	sendIntent(t, b, intentPlayerReady, nil)

	deadline := time.Now().Add(2 * time.Second)
	a.SetReadDeadline(deadline)
	for {
		var gs gameStateUpdatedPayload
		waitEvent(t, a, eventGameStateUpdated, &gs)
		for _, p := range gs.Players {
			if p.ID == joined.PlayerID && p.Ready {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("ready flag never broadcast")
		}
	}
}
