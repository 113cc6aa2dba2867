package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func dialPlayer(t *testing.T, ts *httptest.Server, code, name string) (*websocket.Conn, quiz.WelcomeData) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/"+code+"?name="+name), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", code, err)
	}
	t.Cleanup(func() { conn.Close() })

	var welcome quiz.Message[quiz.WelcomeData]
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome.Type != quiz.EventWelcome {
		t.Fatalf("first frame = %s, want %s", welcome.Type, quiz.EventWelcome)
	}
	return conn, welcome.Data
}

// readFrameOf discards frames until one of the wanted type arrives and
// returns its raw data.
func readFrameOf(t *testing.T, conn *websocket.Conn, eventType string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var frame quiz.Message[json.RawMessage]
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for %s: %v", eventType, err)
		}
		if frame.Type == eventType {
			return frame.Data
		}
	}
}

func TestWebSocketWelcomeAndActions(t *testing.T) {
	ts, m := newTestServer(t)
	info, err := m.CreateRoom(nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	host, w1 := dialPlayer(t, ts, info.Code, "Ada")
	if w1.PlayerId == "" || w1.Reconnected {
		t.Fatalf("welcome = %+v", w1)
	}
	if w1.Room.Phase != quiz.PhaseLobby || len(w1.Room.Players) != 1 {
		t.Fatalf("welcome room = %+v", w1.Room)
	}
	if p := w1.Room.Players[0]; p.Name != "Ada" || !p.IsHost {
		t.Fatalf("host player = %+v", p)
	}

	guest, w2 := dialPlayer(t, ts, info.Code, "Grace")
	if len(w2.Room.Players) != 2 {
		t.Fatalf("second welcome lists %d players", len(w2.Room.Players))
	}

	// The host's feed carries the arrival.
	joined := readFrameOf(t, host, quiz.EventPlayerJoined)
	var pj quiz.PlayerJoinedData
	if err := json.Unmarshal(joined, &pj); err != nil {
		t.Fatalf("decode player_joined: %v", err)
	}
	if pj.Player.Id != w2.PlayerId {
		t.Fatalf("player_joined carries %s, want %s", pj.Player.Id, w2.PlayerId)
	}

	// Actions flow in over the same socket.
	err = host.WriteJSON(quiz.Message[map[string]int]{
		Type: quiz.ActionUpdateSettings,
		Data: map[string]int{"rounds": 4},
	})
	if err != nil {
		t.Fatalf("write action: %v", err)
	}
	for _, conn := range []*websocket.Conn{host, guest} {
		raw := readFrameOf(t, conn, quiz.EventSettingsUpdated)
		var upd quiz.SettingsUpdatedData
		if err := json.Unmarshal(raw, &upd); err != nil {
			t.Fatalf("decode settings_updated: %v", err)
		}
		if upd.Settings.Rounds != 4 {
			t.Fatalf("settings rounds = %d, want 4", upd.Settings.Rounds)
		}
	}
}

func TestWebSocketRejectedActionAnsweredInBand(t *testing.T) {
	ts, m := newTestServer(t)
	info, err := m.CreateRoom(nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	dialPlayer(t, ts, info.Code, "Ada")
	guest, _ := dialPlayer(t, ts, info.Code, "Grace")

	// A non-host start lands as an action_rejected frame on the
	// guest's own feed, the connection stays usable.
	err = guest.WriteJSON(quiz.Message[struct{}]{Type: quiz.ActionStartGame})
	if err != nil {
		t.Fatalf("write action: %v", err)
	}

	raw := readFrameOf(t, guest, quiz.EventActionRejected)
	var rej quiz.ActionRejectedData
	if err := json.Unmarshal(raw, &rej); err != nil {
		t.Fatalf("decode action_rejected: %v", err)
	}
	if rej.Action != quiz.ActionStartGame || rej.Reason != quiz.ReasonNotEligible {
		t.Fatalf("rejection = %+v", rej)
	}
}

func TestWebSocketUnknownRoomClosed(t *testing.T) {
	ts, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/NOPE?name=Ada"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.ClosePolicyViolation {
		t.Fatalf("read err = %v, want policy violation close", err)
	}
	if ce.Text != quiz.ReasonUnknownRoom {
		t.Fatalf("close reason = %q", ce.Text)
	}
}

func TestWebSocketFullRoomClosed(t *testing.T) {
	ts, m := newTestServer(t)
	info, err := m.CreateRoom(nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	for i := 0; i < quiz.MaxPlayersPerRoom; i++ {
		if _, _, err := m.Join(info.Code, "", fmt.Sprintf("P%d", i), ""); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/"+info.Code+"?name=Late"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Text != quiz.ReasonRoomFull {
		t.Fatalf("read err = %v, want room_full close", err)
	}
}
