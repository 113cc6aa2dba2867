package game

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/questions"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

// Tests drive real rooms end to end. Phase windows are compressed to
// tens of milliseconds through the manager's stretch hook, so a full
// game finishes quickly while every timer still actually fires.

const eventWait = 3 * time.Second

func compress(d time.Duration) time.Duration {
	switch {
	case d >= time.Minute:
		return 150 * time.Millisecond
	case d >= 5*time.Second:
		return 120 * time.Millisecond
	case d >= 2*time.Second:
		return 40 * time.Millisecond
	default:
		return 15 * time.Millisecond
	}
}

func newTestManager(t *testing.T, settings quiz.Settings) *Manager {
	t.Helper()
	m := NewManager(testSource(t), zerolog.Nop(), settings)
	m.seed = func() int64 { return 1 }
	m.stretch = compress
	t.Cleanup(m.Shutdown)
	return m
}

// testSource builds a small fixed content set: one choice category, one
// estimation category whose questions share a correct value, buzzer
// questions with known answers and a single list topic.
func testSource(t *testing.T) *questions.Static {
	t.Helper()
	categories := []quiz.Category{
		{Id: "sci", Name: "Science"},
		{Id: "guess", Name: "Ballpark"},
		{Id: "retro", Name: "Retro Games"},
	}
	qs := []quiz.Question{
		{
			Id: "sci-1", CategoryId: "sci", Type: quiz.QuestionChoice,
			Difficulty: quiz.DifficultyMedium, Text: "Which planet is largest?",
			Options: []string{"Mars", "Jupiter", "Venus", "Mercury"}, CorrectIndex: 1,
		},
		{
			Id: "sci-2", CategoryId: "sci", Type: quiz.QuestionChoice,
			Difficulty: quiz.DifficultyMedium, Text: "What charges an electron?",
			Options: []string{"Positive", "Negative", "Neutral", "Varies"}, CorrectIndex: 1,
		},
		{
			Id: "sci-3", CategoryId: "sci", Type: quiz.QuestionChoice,
			Difficulty: quiz.DifficultyMedium, Text: "Which gas do plants absorb?",
			Options: []string{"Oxygen", "Carbon dioxide", "Nitrogen", "Helium"}, CorrectIndex: 1,
		},
		{
			Id: "sci-4", CategoryId: "sci", Type: quiz.QuestionChoice,
			Difficulty: quiz.DifficultyMedium, Text: "What orbits the nucleus?",
			Options: []string{"Protons", "Electrons", "Photons", "Quarks"}, CorrectIndex: 1,
		},
		{
			Id: "est-1", CategoryId: "guess", Type: quiz.QuestionEstimation,
			Difficulty: quiz.DifficultyMedium, Text: "Bones in the adult body?",
			CorrectValue: 100, Unit: "bones",
		},
		{
			Id: "est-2", CategoryId: "guess", Type: quiz.QuestionEstimation,
			Difficulty: quiz.DifficultyMedium, Text: "Floors in the tower?",
			CorrectValue: 100, Unit: "floors",
		},
		{
			Id: "est-3", CategoryId: "guess", Type: quiz.QuestionEstimation,
			Difficulty: quiz.DifficultyMedium, Text: "Minutes in the marathon record?",
			CorrectValue: 100, Unit: "minutes",
		},
		{
			Id: "est-4", CategoryId: "guess", Type: quiz.QuestionEstimation,
			Difficulty: quiz.DifficultyMedium, Text: "Keys on the grand piano?",
			CorrectValue: 100, Unit: "keys",
		},
		{
			Id: "buzz-1", CategoryId: "retro", Type: quiz.QuestionChoice,
			Difficulty: quiz.DifficultyMedium, Text: "Yellow muncher chased by ghosts?",
			Options: []string{"Q*bert", "Pac-Man", "Dig Dug", "Frogger"}, CorrectIndex: 1,
			Answer: "Pac-Man", Aliases: []string{"Pacman"},
		},
		{
			Id: "buzz-2", CategoryId: "retro", Type: quiz.QuestionChoice,
			Difficulty: quiz.DifficultyMedium, Text: "Falling blocks from Moscow?",
			Options: []string{"Tetris", "Columns", "Snake", "Arkanoid"}, CorrectIndex: 0,
			Answer: "Tetris",
		},
		{
			Id: "buzz-3", CategoryId: "retro", Type: quiz.QuestionChoice,
			Difficulty: quiz.DifficultyMedium, Text: "Two paddles and a square ball?",
			Options: []string{"Breakout", "Pong", "Spacewar", "Combat"}, CorrectIndex: 1,
			Answer: "Pong",
		},
	}
	topics := []quiz.ListTopic{
		{
			Id:    "colors",
			Title: "Primary Colors",
			Items: []quiz.ListItem{
				{Id: "c-red", Name: "Red", Aliases: []string{"Crimson"}},
				{Id: "c-green", Name: "Green"},
				{Id: "c-blue", Name: "Blue"},
			},
		},
	}
	return questions.NewStaticFrom(categories, qs, topics)
}

// testSettings pins the round shape and forces a single selection mode
// with bonus rounds off.
func testSettings(mode quiz.SelectionMode, rounds, perRound int) quiz.Settings {
	s := quiz.DefaultSettings()
	s.Rounds = rounds
	s.QuestionsPerRound = perRound
	s.SelectionWeights = map[quiz.SelectionMode]int{mode: 1}
	s.BonusChance = 0
	s.FinalRoundBonus = false
	return s
}

// bonusSettings runs one vote round and guarantees the given bonus game
// on its tail.
func bonusSettings(game quiz.BonusGame) quiz.Settings {
	s := testSettings(quiz.SelectVote, 1, 1)
	s.FinalRoundBonus = true
	s.BonusWeights = map[quiz.BonusGame]int{game: 1}
	return s
}

var testNames = []string{"Ada", "Grace", "Alan", "Linus", "Barbara", "Edsger", "Donald", "Radia"}

func newLobby(t *testing.T, m *Manager, players int) (string, []string) {
	t.Helper()
	info, err := m.CreateRoom(nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	ids := make([]string, 0, players)
	for i := 0; i < players; i++ {
		ids = append(ids, mustJoin(t, m, info.Code, testNames[i]))
	}
	return info.Code, ids
}

func mustJoin(t *testing.T, m *Manager, code, name string) string {
	t.Helper()
	id, _, err := m.Join(code, "", name, "")
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return id
}

func dispatch(t *testing.T, m *Manager, code, playerID, action string, payload any) {
	t.Helper()
	if err := try(m, code, playerID, action, payload); err != nil {
		t.Fatalf("%s by %s: %v", action, playerID, err)
	}
}

func try(m *Manager, code, playerID, action string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = b
	}
	return m.Dispatch(code, playerID, action, raw)
}

// firehose subscribes to the room and re-buffers events into a channel
// large enough that nothing is dropped while the test is busy asserting.
func firehose(t *testing.T, m *Manager, code, as string) <-chan quiz.Event {
	t.Helper()
	sub, err := m.Subscribe(code, as)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	out := make(chan quiz.Event, 1024)
	go func() {
		defer close(out)
		for ev := range sub.C {
			out <- ev
		}
	}()
	t.Cleanup(func() { m.Unsubscribe(code, sub) })
	return out
}

func newDeadline(t *testing.T) <-chan time.Time {
	t.Helper()
	return time.After(eventWait)
}

// assertNoEvent drains the stream for the window and fails if an event
// of the given type shows up.
func assertNoEvent(t *testing.T, events <-chan quiz.Event, window time.Duration, eventType string) {
	t.Helper()
	timeout := time.After(window)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("event stream closed")
			}
			if ev.Type == eventType {
				t.Fatalf("unexpected %s during quiet window", eventType)
			}
		case <-timeout:
			return
		}
	}
}

// reachBonusRound self-runs a one round game into the guaranteed bonus
// and returns once the announcement confirmed the game.
func reachBonusRound(t *testing.T, game quiz.BonusGame, players int) (*Manager, string, []string, <-chan quiz.Event) {
	t.Helper()
	m := newTestManager(t, bonusSettings(game))
	code, ids := newLobby(t, m, players)
	events := firehose(t, m, code, "observer")
	dispatch(t, m, code, ids[0], quiz.ActionStartGame, nil)

	ann := waitPhase(t, events, quiz.PhaseBonusAnnouncement)
	payload, ok := ann.Payload.(quiz.BonusAnnouncePayload)
	if !ok {
		t.Fatalf("bonus announcement carried %T", ann.Payload)
	}
	if payload.Game != game {
		t.Fatalf("announced bonus = %s, want %s", payload.Game, game)
	}
	return m, code, ids, events
}

func nextEvent(t *testing.T, events <-chan quiz.Event) quiz.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event stream closed")
		}
		return ev
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for an event")
	}
	return quiz.Event{}
}

// waitFor drains the stream until an event of the given type arrives.
func waitFor(t *testing.T, events <-chan quiz.Event, eventType string) quiz.Event {
	t.Helper()
	deadline := time.After(eventWait)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("stream closed while waiting for %s", eventType)
			}
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
}

func waitPhase(t *testing.T, events <-chan quiz.Event, phase quiz.Phase) quiz.PhaseChangedData {
	t.Helper()
	deadline := time.After(eventWait)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("stream closed while waiting for phase %s", phase)
			}
			if ev.Type != quiz.EventPhaseChanged {
				continue
			}
			data, ok := ev.Data.(quiz.PhaseChangedData)
			if !ok {
				t.Fatalf("phase_changed carried %T", ev.Data)
			}
			if data.Phase == phase {
				return data
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase %s", phase)
		}
	}
}

// waitPayload waits for a phase_changed in the given phase whose payload
// has the wanted type. Pick windows reuse their mode's phase name, so
// the payload type is what tells a dice window from the winner's pick.
func waitPayload[T any](t *testing.T, events <-chan quiz.Event, phase quiz.Phase) (quiz.PhaseChangedData, T) {
	t.Helper()
	deadline := time.After(eventWait)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("stream closed while waiting for phase %s", phase)
			}
			if ev.Type != quiz.EventPhaseChanged {
				continue
			}
			data, ok := ev.Data.(quiz.PhaseChangedData)
			if !ok || data.Phase != phase {
				continue
			}
			if payload, ok := data.Payload.(T); ok {
				return data, payload
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for phase %s with %T payload", phase, zero)
		}
	}
}

func mustCategory(t *testing.T, candidates []quiz.Category, id string) quiz.Category {
	t.Helper()
	c, ok := findCategory(candidates, id)
	if !ok {
		t.Fatalf("category %s not among candidates %v", id, candidates)
	}
	return c
}

// voteAll steers every player onto the same category and returns once it
// is selected.
func voteAll(t *testing.T, m *Manager, events <-chan quiz.Event, code string, ids []string, categoryID string) quiz.CategorySelectedData {
	t.Helper()
	_, payload := waitPayload[quiz.VotePayload](t, events, quiz.PhaseCategoryVote)
	target := mustCategory(t, payload.Candidates, categoryID)
	for _, id := range ids {
		dispatch(t, m, code, id, quiz.ActionVoteCategory, map[string]string{"category_id": target.Id})
	}
	ev := waitFor(t, events, quiz.EventCategorySelected)
	data, ok := ev.Data.(quiz.CategorySelectedData)
	if !ok {
		t.Fatalf("category_selected carried %T", ev.Data)
	}
	if data.Category.Id != target.Id {
		t.Fatalf("selected category = %s, want %s", data.Category.Id, target.Id)
	}
	return data
}

// answerChoice submits an option for every listed player in order.
func answerChoice(t *testing.T, m *Manager, code string, ids []string, option int) {
	t.Helper()
	for _, id := range ids {
		dispatch(t, m, code, id, quiz.ActionSubmitAnswer, map[string]int{"option_index": option})
	}
}
