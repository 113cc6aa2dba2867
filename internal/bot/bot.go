// Package bot simulates players against the game manager. Bots join
// and act through exactly the same entry points a websocket client
// uses, so a simulation exercises the real action paths.
package bot

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/game"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

// Policy holds the behavior knobs. It is plain configuration; the
// game engine never sees it.
type Policy struct {
	// Accuracy is the chance the bot answers with what it knows
	// instead of guessing.
	Accuracy float64
	// Reaction delay range for every scheduled action.
	MinDelay time.Duration
	MaxDelay time.Duration
	// BuzzAt is the reveal percentage at which the bot starts
	// considering a buzz.
	BuzzAt int
	// EstimationSpread is the relative error band around the true
	// value when the bot knows it.
	EstimationSpread float64
	// ListHitRate is the chance a list turn produces a real item
	// instead of a pass.
	ListHitRate float64
	// AutoStart makes a host bot start the game once enough players
	// are seated.
	AutoStart bool
}

func DefaultPolicy() Policy {
	return Policy{
		Accuracy:         0.7,
		MinDelay:         300 * time.Millisecond,
		MaxDelay:         2 * time.Second,
		BuzzAt:           40,
		EstimationSpread: 0.3,
		ListHitRate:      0.8,
	}
}

// Oracle is the bot's knowledge base: the full question set, answers
// included. The static question source satisfies it. Without one the
// bot guesses blindly.
type Oracle interface {
	Lookup(id string) (quiz.Question, bool)
	MatchPrefix(prefix string) (quiz.Question, bool)
	TopicByTitle(title string) (quiz.ListTopic, bool)
}

var wrongAnswers = []string{"no idea", "42", "the blue one"}

type Bot struct {
	Name string

	policy  Policy
	oracle  Oracle
	manager *game.Manager
	log     zerolog.Logger
	rng     *rand.Rand

	code string
	id   string

	mu       sync.Mutex
	rev      int64
	pending  *time.Timer
	isHost   bool
	buzzText string
	buzzed   bool
}

func New(name string, policy Policy, manager *game.Manager, oracle Oracle, log zerolog.Logger, seed int64) *Bot {
	return &Bot{
		Name:    name,
		policy:  policy,
		oracle:  oracle,
		manager: manager,
		log:     log.With().Str("component", "bot").Str("bot", name).Logger(),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (b *Bot) Id() string { return b.id }

// Join seats the bot in the room.
func (b *Bot) Join(code string) error {
	id, _, err := b.manager.Join(code, "", b.Name, "")
	if err != nil {
		return err
	}
	b.code = code
	b.id = id
	return nil
}

// Run consumes the room's event feed until the context ends or the
// room closes. Every observed phase change cancels the bot's pending
// intent; a fired intent re-checks the room revision so a stale one
// dies quietly.
func (b *Bot) Run(ctx context.Context) error {
	sub, err := b.manager.Subscribe(b.code, b.id)
	if err != nil {
		return err
	}
	defer func() {
		b.cancelIntent()
		b.manager.Unsubscribe(b.code, sub)
		b.manager.Disconnect(b.code, b.id)
	}()

	if snap, err := b.manager.Snapshot(b.code); err == nil {
		b.onPhase(snap)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			b.handle(ev)
		}
	}
}

func (b *Bot) handle(ev quiz.Event) {
	switch data := ev.Data.(type) {
	case quiz.PhaseChangedData:
		b.onPhase(data)
	case quiz.PlayerJoinedData:
		b.maybeStart(data.CanStart)
	case quiz.PlayerLeftData:
		if data.NewHostId == b.id {
			b.mu.Lock()
			b.isHost = true
			b.mu.Unlock()
		}
	case quiz.BuzzRevealData:
		b.onReveal(data)
	case quiz.BuzzWonData:
		b.onBuzzWon(data)
	}
}

func (b *Bot) onPhase(d quiz.PhaseChangedData) {
	b.mu.Lock()
	b.rev = d.Rev
	b.cancelIntentLocked()
	b.mu.Unlock()

	switch payload := d.Payload.(type) {
	case quiz.LobbyPayload:
		b.mu.Lock()
		b.isHost = payload.HostId == b.id
		b.mu.Unlock()
		b.maybeStart(payload.CanStart)
	case quiz.VotePayload:
		if len(payload.Candidates) == 0 || containsString(payload.VotedIds, b.id) {
			return
		}
		pick := payload.Candidates[b.rng.Intn(len(payload.Candidates))].Id
		b.intend(d.Rev, b.delay(), quiz.ActionVoteCategory, categoryData{CategoryId: pick})
	case quiz.PickPayload:
		if payload.PickerId != b.id || len(payload.Candidates) == 0 {
			return
		}
		pick := payload.Candidates[b.rng.Intn(len(payload.Candidates))].Id
		b.intend(d.Rev, b.delay(), quiz.ActionPickCategory, categoryData{CategoryId: pick})
	case quiz.DicePayload:
		if !containsString(payload.Eligible, b.id) || payload.Rolled[b.id] != nil {
			return
		}
		b.intend(d.Rev, b.delay(), quiz.ActionDiceRoll, nil)
	case quiz.RpsPayload:
		if !containsString(payload.Contestants, b.id) {
			return
		}
		choices := []quiz.RpsChoice{quiz.RpsRock, quiz.RpsPaper, quiz.RpsScissors}
		b.intend(d.Rev, b.delay(), quiz.ActionRpsChoice, rpsData{Choice: choices[b.rng.Intn(len(choices))]})
	case quiz.QuestionPayload:
		b.intendAnswer(d.Rev, payload)
	case quiz.HotButtonPayload:
		b.mu.Lock()
		b.buzzText = payload.Text
		b.buzzed = containsString(payload.AttemptedBy, b.id)
		b.mu.Unlock()
	case quiz.ListPayload:
		if payload.ActiveId != b.id {
			return
		}
		b.intendListTurn(d.Rev, payload)
	}
}

func (b *Bot) maybeStart(canStart bool) {
	b.mu.Lock()
	host := b.isHost
	rev := b.rev
	b.mu.Unlock()
	if !b.policy.AutoStart || !host || !canStart {
		return
	}
	b.intend(rev, b.delay(), quiz.ActionStartGame, nil)
}

func (b *Bot) intendAnswer(rev int64, payload quiz.QuestionPayload) {
	q := payload.Question
	if q.Type == quiz.QuestionEstimation {
		b.intend(rev, b.delay(), quiz.ActionSubmitEstimation, estimationData{Value: b.estimationGuess(q.Id)})
		return
	}
	b.intend(rev, b.delay(), quiz.ActionSubmitAnswer, answerData{OptionIndex: b.choiceGuess(q.Id, len(q.Options))})
}

func (b *Bot) intendListTurn(rev int64, payload quiz.ListPayload) {
	item, ok := b.listGuess(payload)
	if !ok {
		b.intend(rev, b.delay(), quiz.ActionListSkip, nil)
		return
	}
	b.intend(rev, b.delay(), quiz.ActionListSubmit, textData{Answer: item})
}

// onReveal decides whether this tick is the moment to buzz. Reveal
// ticks only arrive while nobody holds the button.
func (b *Bot) onReveal(d quiz.BuzzRevealData) {
	b.mu.Lock()
	b.buzzText = d.Text
	buzzed := b.buzzed
	rev := b.rev
	b.mu.Unlock()

	if buzzed || d.RevealedPct < b.policy.BuzzAt {
		return
	}
	nerve := 0.1
	if b.oracle != nil {
		if _, ok := b.oracle.MatchPrefix(d.Text); ok {
			nerve = 0.4
		}
	}
	if b.rng.Float64() >= nerve {
		return
	}
	b.intend(rev, b.policy.MinDelay, quiz.ActionBuzz, nil)
}

func (b *Bot) onBuzzWon(d quiz.BuzzWonData) {
	if d.PlayerId != b.id {
		// somebody beat us to it
		b.cancelIntent()
		return
	}
	b.mu.Lock()
	b.buzzed = true
	text := b.buzzText
	rev := b.rev
	b.mu.Unlock()
	b.intend(rev, b.delay(), quiz.ActionSubmitBuzzerAnswer, textData{Answer: b.buzzerAnswer(text)})
}

// ===== Guessing =====

func (b *Bot) lookup(id string) (quiz.Question, bool) {
	if b.oracle == nil {
		return quiz.Question{}, false
	}
	return b.oracle.Lookup(id)
}

func (b *Bot) choiceGuess(id string, optionCount int) int {
	if optionCount == 0 {
		return 0
	}
	if q, ok := b.lookup(id); ok && b.rng.Float64() < b.policy.Accuracy {
		return q.CorrectIndex
	}
	return b.rng.Intn(optionCount)
}

// estimationGuess spreads around the truth when the bot knows it and
// wanders far off when it doesn't.
func (b *Bot) estimationGuess(id string) float64 {
	q, ok := b.lookup(id)
	if !ok {
		return float64(b.rng.Intn(1000) + 1)
	}
	truth := q.CorrectValue
	if b.rng.Float64() < b.policy.Accuracy {
		if b.rng.Float64() < 0.1 {
			return truth
		}
		return truth * (1 + b.policy.EstimationSpread*(b.rng.Float64()*2-1))
	}
	return truth * (0.25 + 3*b.rng.Float64())
}

func (b *Bot) buzzerAnswer(prefix string) string {
	if b.oracle != nil {
		if q, ok := b.oracle.MatchPrefix(prefix); ok && b.rng.Float64() < b.policy.Accuracy {
			return q.Answer
		}
	}
	return wrongAnswers[b.rng.Intn(len(wrongAnswers))]
}

func (b *Bot) listGuess(payload quiz.ListPayload) (string, bool) {
	if b.oracle == nil || b.rng.Float64() >= b.policy.ListHitRate {
		return "", false
	}
	topic, ok := b.oracle.TopicByTitle(payload.Title)
	if !ok {
		return "", false
	}
	claimed := make(map[string]bool, len(payload.Claimed))
	for _, c := range payload.Claimed {
		claimed[c.ItemId] = true
	}
	open := make([]quiz.ListItem, 0, len(topic.Items))
	for _, item := range topic.Items {
		if !claimed[item.Id] {
			open = append(open, item)
		}
	}
	if len(open) == 0 {
		return "", false
	}
	return open[b.rng.Intn(len(open))].Name, true
}

// ===== Intent plumbing =====

// intend schedules the bot's single pending action. Scheduling again
// replaces it; at fire time the captured revision must still be
// current or the action is dropped.
func (b *Bot) intend(rev int64, d time.Duration, action string, data any) {
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelIntentLocked()
	b.pending = time.AfterFunc(d, func() {
		b.mu.Lock()
		stale := b.rev != rev
		b.mu.Unlock()
		if stale {
			return
		}
		if err := b.manager.Dispatch(b.code, b.id, action, raw); err != nil {
			b.log.Debug().Str("action", action).Err(err).Msg("bot action rejected")
		}
	})
}

func (b *Bot) cancelIntent() {
	b.mu.Lock()
	b.cancelIntentLocked()
	b.mu.Unlock()
}

func (b *Bot) cancelIntentLocked() {
	if b.pending != nil {
		b.pending.Stop()
		b.pending = nil
	}
}

func (b *Bot) delay() time.Duration {
	span := b.policy.MaxDelay - b.policy.MinDelay
	if span <= 0 {
		return b.policy.MinDelay
	}
	return b.policy.MinDelay + time.Duration(b.rng.Int63n(int64(span)))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Action payload shapes, mirroring the wire protocol.

type categoryData struct {
	CategoryId string `json:"category_id"`
}

type rpsData struct {
	Choice quiz.RpsChoice `json:"choice"`
}

type answerData struct {
	OptionIndex int `json:"option_index"`
}

type estimationData struct {
	Value float64 `json:"value"`
}

type textData struct {
	Answer string `json:"answer"`
}
