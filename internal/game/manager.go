// Package game runs the trivia sessions: the room lifecycle, the phase
// state machine, the category mini-games and the bonus rounds. Every
// mutation of a room happens inside Manager.withRoom, so the engine is
// single-threaded per room while rooms stay independent.
package game

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/broadcast"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/questions"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/timer"
)

// Timer key suffixes, always appended to the room code so one prefix
// sweep clears everything a room has pending.
const (
	keyPhase    = "/phase"
	keyTick     = "/tick"
	keyTeardown = "/teardown"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	maxNameLen   = 24
)

type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	src      questions.Source
	timers   *timer.Coordinator
	log      zerolog.Logger
	defaults quiz.Settings

	// seed feeds each new room's rng; tests pin it for determinism.
	seed func() int64
	// stretch maps wall-clock timer durations; tests compress it so
	// phase windows expire in milliseconds.
	stretch func(time.Duration) time.Duration
}

func NewManager(src questions.Source, log zerolog.Logger, defaults quiz.Settings) *Manager {
	return &Manager{
		rooms:    make(map[string]*Room),
		src:      src,
		timers:   timer.NewCoordinator(),
		log:      log.With().Str("component", "game").Logger(),
		defaults: defaults,
		seed:     func() int64 { return time.Now().UnixNano() },
		stretch:  func(d time.Duration) time.Duration { return d },
	}
}

// Shutdown stops every pending timer. Rooms are left in place for any
// in-flight handlers to finish against.
func (m *Manager) Shutdown() {
	m.timers.CancelPrefix("")
}

// ===== Room lifecycle =====

// CreateRoom opens a new lobby. The optional patch adjusts the default
// settings; the room is torn down if nobody joins within the grace
// period.
func (m *Manager) CreateRoom(patch *quiz.SettingsPatch) (RoomInfo, error) {
	settings := m.defaults
	if patch != nil {
		var err error
		settings, err = settings.Apply(*patch)
		if err != nil {
			return RoomInfo{}, err
		}
	}

	m.mu.Lock()
	var code string
	for attempt := 0; ; attempt++ {
		c, err := newRoomCode()
		if err != nil {
			m.mu.Unlock()
			return RoomInfo{}, fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := m.rooms[c]; !taken {
			code = c
			break
		}
		if attempt > 10 {
			m.mu.Unlock()
			return RoomInfo{}, fmt.Errorf("room code space exhausted")
		}
	}
	r := newRoom(code, settings, rand.New(rand.NewSource(m.seed())))
	m.rooms[code] = r
	m.mu.Unlock()

	m.scheduleTeardown(code)
	m.log.Info().Str("room", code).Msg("room created")
	return RoomInfo{Code: code, MaxPlayers: quiz.MaxPlayersPerRoom, Phase: quiz.PhaseLobby}, nil
}

func newRoomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := crand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

type RoomInfo struct {
	Code        string     `json:"code"`
	PlayerCount int        `json:"player_count"`
	MaxPlayers  int        `json:"max_players"`
	Started     bool       `json:"started"`
	Phase       quiz.Phase `json:"phase"`
}

// Rooms lists every open room.
func (m *Manager) Rooms() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		r.mu.Lock()
		out = append(out, RoomInfo{
			Code:        r.Code,
			PlayerCount: r.count(),
			MaxPlayers:  quiz.MaxPlayersPerRoom,
			Started:     r.started,
			Phase:       r.phase,
		})
		r.mu.Unlock()
	}
	return out
}

// Info returns a single room's summary.
func (m *Manager) Info(code string) (RoomInfo, error) {
	var info RoomInfo
	err := m.withRoom(code, func(r *Room) {
		info = RoomInfo{
			Code:        r.Code,
			PlayerCount: r.count(),
			MaxPlayers:  quiz.MaxPlayersPerRoom,
			Started:     r.started,
			Phase:       r.phase,
		}
	})
	return info, err
}

// Joinable lists lobbies with a free seat.
func (m *Manager) Joinable() []RoomInfo {
	all := m.Rooms()
	out := make([]RoomInfo, 0, len(all))
	for _, info := range all {
		if !info.Started && info.PlayerCount < info.MaxPlayers {
			out = append(out, info)
		}
	}
	return out
}

// withRoom runs fn with the room locked. It is the only way engine code
// touches room state, so per-room execution is serialized.
func (m *Manager) withRoom(code string, fn func(*Room)) error {
	m.mu.RLock()
	r, ok := m.rooms[code]
	m.mu.RUnlock()
	if !ok {
		return ErrUnknownRoom
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closing {
		return ErrUnknownRoom
	}
	fn(r)
	return nil
}

// fireAt schedules fn against the room after d. The callback captures
// the room revision at scheduling time and becomes a no-op if the room
// has since moved to a newer window.
func (m *Manager) fireAt(r *Room, key string, d time.Duration, fn func(*Room)) {
	rev := r.rev
	code := r.Code
	m.timers.Schedule(code+key, m.stretch(d), func() {
		_ = m.withRoom(code, func(r *Room) {
			if r.rev != rev {
				return
			}
			fn(r)
		})
	})
}

func (m *Manager) scheduleTeardown(code string) {
	m.timers.Schedule(code+keyTeardown, m.stretch(quiz.TeardownGracePeriod), func() {
		m.mu.RLock()
		r, ok := m.rooms[code]
		m.mu.RUnlock()
		if !ok {
			return
		}
		r.mu.Lock()
		empty := r.connectedCount() == 0
		r.mu.Unlock()
		if empty {
			m.destroyRoom(code, "abandoned")
		}
	})
}

func (m *Manager) destroyRoom(code, reason string) {
	m.mu.Lock()
	r, ok := m.rooms[code]
	if ok {
		delete(m.rooms, code)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	m.timers.CancelPrefix(code + "/")
	r.mu.Lock()
	r.closing = true
	r.publish(quiz.EventRoomClosing, quiz.RoomClosingData{Reason: reason})
	r.bc.CloseAll()
	r.mu.Unlock()
	m.log.Info().Str("room", code).Str("reason", reason).Msg("room closed")
}

// ===== Membership =====

// Join adds a player to the room, or reattaches a known player id after
// a dropped connection. Late joins during a running game are allowed;
// the newcomer starts at zero and catches up from the next snapshot.
func (m *Manager) Join(code, playerID, name, avatar string) (string, bool, error) {
	var (
		id          string
		reconnected bool
		joinErr     error
	)
	err := m.withRoom(code, func(r *Room) {
		if playerID != "" {
			if p := r.player(playerID); p != nil {
				wasConnected := p.IsConnected
				p.IsConnected = true
				id, reconnected = p.Id, true
				if !wasConnected {
					r.publish(quiz.EventPlayerReconnected, quiz.PlayerConnData{
						PlayerId: p.Id,
						Name:     p.Name,
					})
				}
				return
			}
		}
		if r.count() >= quiz.MaxPlayersPerRoom {
			joinErr = ErrRoomFull
			return
		}
		if playerID != "" {
			if p := r.restoreDeparted(playerID); p != nil {
				id = p.Id
				r.publish(quiz.EventPlayerJoined, quiz.PlayerJoinedData{
					Player:      p.ToPublic(),
					PlayerCount: r.count(),
					CanStart:    r.canStart(),
				})
				return
			}
		}
		p := &quiz.Player{
			Id:          uuid.NewString(),
			Name:        cleanName(name),
			Avatar:      strings.TrimSpace(avatar),
			IsHost:      r.count() == 0,
			IsConnected: true,
			JoinedAt:    time.Now(),
		}
		r.players[p.Id] = p
		r.order = append(r.order, p.Id)
		id = p.Id
		r.publish(quiz.EventPlayerJoined, quiz.PlayerJoinedData{
			Player:      p.ToPublic(),
			PlayerCount: r.count(),
			CanStart:    r.canStart(),
		})
	})
	if err != nil {
		return "", false, err
	}
	if joinErr != nil {
		return "", false, joinErr
	}
	m.timers.Cancel(code + keyTeardown)
	m.log.Debug().Str("room", code).Str("player", id).Bool("reconnect", reconnected).Msg("player joined")
	return id, reconnected, nil
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Player"
	}
	runes := []rune(name)
	if len(runes) > maxNameLen {
		name = string(runes[:maxNameLen])
	}
	return name
}

// Disconnect marks the player's connection as gone. In the lobby the
// seat is released immediately; mid-game the player stays on the
// roster so a reconnect picks the same identity back up.
func (m *Manager) Disconnect(code, playerID string) {
	var empty bool
	err := m.withRoom(code, func(r *Room) {
		p := r.player(playerID)
		if p == nil {
			empty = r.connectedCount() == 0
			return
		}
		if !r.started {
			m.dropPlayer(r, playerID, "disconnected")
		} else {
			p.IsConnected = false
			r.publish(quiz.EventPlayerDisconnected, quiz.PlayerConnData{
				PlayerId: p.Id,
				Name:     p.Name,
			})
		}
		empty = r.connectedCount() == 0
	})
	if err != nil {
		return
	}
	if empty {
		m.scheduleTeardown(code)
	}
}

// Subscribe attaches an event feed for the player's connection.
func (m *Manager) Subscribe(code, playerID string) (*broadcast.Subscriber, error) {
	var sub *broadcast.Subscriber
	err := m.withRoom(code, func(r *Room) {
		sub = r.bc.Subscribe(playerID)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (m *Manager) Unsubscribe(code string, sub *broadcast.Subscriber) {
	_ = m.withRoom(code, func(r *Room) {
		r.bc.Unsubscribe(sub)
	})
}

// Snapshot builds the full phase_changed frame a client needs to render
// the room from scratch.
func (m *Manager) Snapshot(code string) (quiz.PhaseChangedData, error) {
	var snap quiz.PhaseChangedData
	err := m.withRoom(code, func(r *Room) {
		snap = r.snapshotWith(m.buildPayload(r))
	})
	return snap, err
}

// Settings returns the room's current settings.
func (m *Manager) Settings(code string) (quiz.Settings, error) {
	var s quiz.Settings
	err := m.withRoom(code, func(r *Room) {
		s = r.settings
	})
	return s, err
}

func (m *Manager) drawContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
