package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/game"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/questions"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

func testOracle() *questions.Static {
	return questions.NewStaticFrom(
		[]quiz.Category{{Id: "sci", Name: "Science"}},
		[]quiz.Question{
			{
				Id: "q1", CategoryId: "sci", Type: quiz.QuestionChoice,
				Difficulty: quiz.DifficultyEasy,
				Text:       "Which planet is known as the red planet?",
				Options:    []string{"Venus", "Mars", "Jupiter"},
				CorrectIndex: 1, Answer: "Mars",
			},
			{
				Id: "q2", CategoryId: "sci", Type: quiz.QuestionEstimation,
				Difficulty: quiz.DifficultyEasy,
				Text:       "How many moons does Jupiter have?",
				CorrectValue: 95,
			},
		},
		[]quiz.ListTopic{{
			Id: "colors", Title: "Primary Colors",
			Items: []quiz.ListItem{{Id: "c-red", Name: "Red"}, {Id: "c-green", Name: "Green"}, {Id: "c-blue", Name: "Blue"}},
		}},
	)
}

func testBot(policy Policy) *Bot {
	return New("Bottica", policy, nil, testOracle(), zerolog.Nop(), 7)
}

func TestChoiceGuessPrefersKnownAnswer(t *testing.T) {
	policy := DefaultPolicy()
	policy.Accuracy = 1
	b := testBot(policy)

	for i := 0; i < 5; i++ {
		if got := b.choiceGuess("q1", 3); got != 1 {
			t.Fatalf("choiceGuess(q1) = %d, want the known index 1", got)
		}
	}
	if got := b.choiceGuess("unknown", 4); got < 0 || got > 3 {
		t.Fatalf("blind guess = %d, want an option index", got)
	}
}

func TestEstimationGuessStaysNearKnownTruth(t *testing.T) {
	policy := DefaultPolicy()
	policy.Accuracy = 1
	policy.EstimationSpread = 0.3
	b := testBot(policy)

	for i := 0; i < 20; i++ {
		v := b.estimationGuess("q2")
		if v < 95*0.7 || v > 95*1.3 {
			t.Fatalf("estimation guess %v outside the spread band", v)
		}
	}
}

func TestBuzzerAnswerMatchesRevealedPrefix(t *testing.T) {
	policy := DefaultPolicy()
	policy.Accuracy = 1
	b := testBot(policy)

	if got := b.buzzerAnswer("Which planet is known"); got != "Mars" {
		t.Fatalf("buzzerAnswer = %q, want Mars", got)
	}

	// Nothing revealed yet: the bot can only bluff.
	got := b.buzzerAnswer("")
	bluff := false
	for _, w := range wrongAnswers {
		if got == w {
			bluff = true
		}
	}
	if !bluff {
		t.Fatalf("buzzerAnswer on empty prefix = %q, want a bluff", got)
	}
}

func TestListGuessSkipsClaimedItems(t *testing.T) {
	policy := DefaultPolicy()
	policy.ListHitRate = 1
	b := testBot(policy)

	payload := quiz.ListPayload{
		Title:   "Primary Colors",
		Claimed: []quiz.ClaimedItem{{ItemId: "c-red"}, {ItemId: "c-blue"}},
	}
	for i := 0; i < 10; i++ {
		item, ok := b.listGuess(payload)
		if !ok || item != "Green" {
			t.Fatalf("listGuess = %q, %v; want the only open item", item, ok)
		}
	}

	payload.Claimed = append(payload.Claimed, quiz.ClaimedItem{ItemId: "c-green"})
	if item, ok := b.listGuess(payload); ok {
		t.Fatalf("listGuess on a finished board = %q, want a pass", item)
	}
}

func TestDelayStaysInBounds(t *testing.T) {
	policy := DefaultPolicy()
	policy.MinDelay = 50 * time.Millisecond
	policy.MaxDelay = 100 * time.Millisecond
	b := testBot(policy)

	for i := 0; i < 20; i++ {
		if d := b.delay(); d < policy.MinDelay || d >= policy.MaxDelay {
			t.Fatalf("delay = %v outside [%v, %v)", d, policy.MinDelay, policy.MaxDelay)
		}
	}

	policy.MaxDelay = policy.MinDelay
	b = testBot(policy)
	if d := b.delay(); d != policy.MinDelay {
		t.Fatalf("degenerate range delay = %v, want %v", d, policy.MinDelay)
	}
}

// TestBotsPlayFullGame runs three bots through a one round game on the
// real clock. It takes roughly half a minute.
func TestBotsPlayFullGame(t *testing.T) {
	if testing.Short() {
		t.Skip("full simulation runs on real timers")
	}

	src, err := questions.NewStatic()
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}

	settings := quiz.DefaultSettings()
	settings.Rounds = 1
	settings.QuestionsPerRound = 1
	settings.BonusChance = 0
	settings.FinalRoundBonus = false
	settings.SelectionWeights = map[quiz.SelectionMode]int{quiz.SelectVote: 1}

	m := game.NewManager(src, zerolog.Nop(), settings)
	defer m.Shutdown()

	info, err := m.CreateRoom(nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	sub, err := m.Subscribe(info.Code, "watcher")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer m.Unsubscribe(info.Code, sub)

	policy := DefaultPolicy()
	policy.MinDelay = 100 * time.Millisecond
	policy.MaxDelay = 500 * time.Millisecond
	policy.AutoStart = true

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i, name := range []string{"Ada", "Grace", "Alan"} {
		b := New(name, policy, m, src, zerolog.Nop(), int64(i+1))
		if err := b.Join(info.Code); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Run(ctx)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			t.Fatal("game did not reach the final phase in time")
		case ev, ok := <-sub.C:
			if !ok {
				t.Fatal("event stream closed before the final phase")
			}
			d, isPhase := ev.Data.(quiz.PhaseChangedData)
			if !isPhase || d.Phase != quiz.PhaseFinal {
				continue
			}
			final, ok := d.Payload.(quiz.FinalPayload)
			if !ok {
				t.Fatalf("final phase carried %T", d.Payload)
			}
			if len(final.Rankings) != 3 {
				t.Fatalf("final rankings list %d players, want 3", len(final.Rankings))
			}
			cancel()
			wg.Wait()
			return
		}
	}
}
