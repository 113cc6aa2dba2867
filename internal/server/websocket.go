package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/broadcast"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/game"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades the connection, joins the player into the
// room and bridges the socket to the room's event feed. Identity comes
// from query params: name and avatar for new players, player_id to
// reattach to an existing seat.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	q := r.URL.Query()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Str("room", code).Msg("websocket upgrade failed")
		return
	}

	playerID, rejoined, err := s.manager.Join(code, q.Get("player_id"), q.Get("name"), q.Get("avatar"))
	if err != nil {
		s.closeWithReason(conn, joinCloseReason(err))
		return
	}

	sub, err := s.manager.Subscribe(code, playerID)
	if err != nil {
		s.manager.Disconnect(code, playerID)
		s.closeWithReason(conn, quiz.ReasonUnknownRoom)
		return
	}

	// The welcome frame is written before the pump starts so the pump
	// stays the only writer afterwards. Events published while we build
	// the snapshot sit in the subscriber buffer and follow it.
	snap, err := s.manager.Snapshot(code)
	if err == nil {
		err = conn.WriteJSON(quiz.NewEvent(quiz.EventWelcome, quiz.WelcomeData{
			PlayerId:    playerID,
			Reconnected: rejoined,
			Room:        snap,
		}))
	}
	if err != nil {
		s.manager.Unsubscribe(code, sub)
		s.manager.Disconnect(code, playerID)
		conn.Close()
		return
	}

	s.log.Debug().Str("room", code).Str("player", playerID).Bool("rejoined", rejoined).Msg("websocket attached")

	go s.writePump(conn, sub)
	s.readLoop(conn, code, playerID)

	s.manager.Unsubscribe(code, sub)
	s.manager.Disconnect(code, playerID)
}

// writePump forwards room events to the socket and keeps the
// connection alive with pings. Closing the subscriber channel ends the
// pump; closing the connection unblocks the read loop.
func (s *Server) writePump(conn *websocket.Conn, sub *broadcast.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop feeds inbound frames to the dispatcher until the connection
// drops. Rejected actions are answered on the event feed, so dispatch
// errors don't end the loop.
func (s *Server) readLoop(conn *websocket.Conn, code, playerID string) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Str("room", code).Str("player", playerID).Msg("websocket read failed")
			}
			return
		}
		_ = s.manager.DispatchRaw(code, playerID, raw)
	}
}

func (s *Server) closeWithReason(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
}

func joinCloseReason(err error) string {
	if errors.Is(err, game.ErrRoomFull) {
		return quiz.ReasonRoomFull
	}
	return quiz.ReasonUnknownRoom
}
