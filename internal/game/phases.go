package game

import (
	"errors"
	"math/rand"
	"time"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/scoring"
)

var errNoCategories = errors.New("no categories available")

const (
	// Categories offered per round.
	candidateCount = 6
	// Questions per buzzer bonus round.
	buzzerQuestionCount = 3
	// Stretch applied to a phase while a content fetch is still in flight.
	contentWait = 2 * time.Second
)

// ===== Transitions =====

// armPhase moves the room into phase for d, broadcasts the snapshot and
// schedules the expiry handler. Callers install the incoming sub-engine
// state first; the revision bump invalidates every older callback.
func (m *Manager) armPhase(r *Room, phase quiz.Phase, d time.Duration, payload any, onExpiry func(*Room)) {
	r.phase = phase
	r.rev++
	r.timerEnd = time.Now().Add(d)
	r.publish(quiz.EventPhaseChanged, r.snapshotWith(payload))
	m.fireAt(r, keyPhase, d, onExpiry)
}

func (m *Manager) startRound(r *Room, n int) {
	r.round = n
	r.questionIdx = 0
	r.questions = nil
	r.category = quiz.Category{}
	r.candidates = nil
	r.contentErr = nil
	r.bonusDone = false
	r.pendingBonus = ""
	r.bonusQuestions = nil
	r.bonusTopic = nil
	r.sub = nil
	r.resetActed()
	r.roundStart = make(map[string]int, len(r.players))
	for id, p := range r.players {
		r.roundStart[id] = p.Score
	}
	r.mode = weightedMode(r.rng, r.settings.SelectionWeights)

	m.fetchCandidates(r)
	m.armPhase(r, quiz.PhaseRoundAnnouncement, quiz.RoundAnnouncementDuration, quiz.AnnouncementPayload{
		Round:       n,
		TotalRounds: r.settings.Rounds,
		Mode:        r.mode,
	}, m.enterSelection)
}

// fetchCandidates loads the round's category offer off the room lock
// and applies it when it lands. The announcement phase runs in parallel
// and stretches if the fetch is still out when it expires.
func (m *Manager) fetchCandidates(r *Room) {
	code, round := r.Code, r.round
	go func() {
		ctx, cancel := m.drawContext()
		defer cancel()
		cats, err := m.src.Categories(ctx)
		_ = m.withRoom(code, func(r *Room) {
			if r.round != round || r.candidates != nil || !r.started {
				return
			}
			if err == nil && len(cats) == 0 {
				err = errNoCategories
			}
			if err != nil {
				r.contentErr = err
				return
			}
			r.candidates = sampleCategories(r.rng, cats, candidateCount)
		})
	}()
}

func (m *Manager) enterSelection(r *Room) {
	if r.contentErr != nil {
		m.log.Error().Str("room", r.Code).Err(r.contentErr).Msg("category fetch failed, ending game")
		m.toFinal(r)
		return
	}
	if len(r.candidates) == 0 {
		m.armPhase(r, quiz.PhaseRoundAnnouncement, contentWait, quiz.AnnouncementPayload{
			Round:       r.round,
			TotalRounds: r.settings.Rounds,
			Mode:        r.mode,
		}, m.enterSelection)
		return
	}
	switch r.mode {
	case quiz.SelectWheel:
		m.startWheel(r)
	case quiz.SelectLoserPick:
		m.startLoserPick(r)
	case quiz.SelectDiceRoyale:
		m.startDice(r)
	case quiz.SelectRpsDuel:
		m.startRps(r)
	default:
		m.startVote(r)
	}
}

// categorySelected closes the mini-game and starts loading the round's
// questions. pickerID is set when a single player made the choice.
func (m *Manager) categorySelected(r *Room, cat quiz.Category, pickerID string) {
	r.sub = nil
	r.category = cat
	r.publish(quiz.EventCategorySelected, quiz.CategorySelectedData{
		Category: cat,
		Mode:     r.mode,
		PickerId: pickerID,
	})
	m.loadQuestions(r)
}

// loadQuestions draws the round's questions off the room lock. The room
// sits in the closed selection phase with no pending window until the
// draw lands.
func (m *Manager) loadQuestions(r *Room) {
	r.rev++
	r.timerEnd = time.Time{}
	m.timers.Cancel(r.Code + keyPhase)

	code, round := r.Code, r.round
	catID := r.category.Id
	count := r.settings.QuestionsPerRound
	mix := defaultMix(count)
	go func() {
		ctx, cancel := m.drawContext()
		defer cancel()
		qs, err := m.src.Draw(ctx, catID, count, mix)
		_ = m.withRoom(code, func(r *Room) {
			if !r.phase.IsSelection() || r.round != round || r.category.Id != catID || r.questions != nil {
				return
			}
			if err != nil || len(qs) == 0 {
				m.log.Error().Str("room", code).Str("category", catID).Err(err).Msg("question draw failed, skipping round")
				m.toScoreboard(r)
				return
			}
			r.questions = qs
			m.beginQuestion(r)
		})
	}()
}

func (m *Manager) beginQuestion(r *Room) {
	q := r.questions[r.questionIdx]
	r.resetActed()
	r.windowStart = time.Now()
	phase := quiz.PhaseQuestion
	if q.Type == quiz.QuestionEstimation {
		phase = quiz.PhaseEstimation
	}
	window := time.Duration(r.settings.AnswerSeconds) * time.Second
	m.armPhase(r, phase, window, quiz.QuestionPayload{
		Question: q.Public(),
		Index:    r.questionIdx + 1,
		Total:    len(r.questions),
		Category: r.category,
	}, m.finishQuestion)
}

// afterReveal advances past the reveal screen.
func (m *Manager) afterReveal(r *Room) {
	if r.questionIdx+1 < len(r.questions) {
		r.questionIdx++
		m.beginQuestion(r)
		return
	}
	m.toScoreboard(r)
}

func (m *Manager) toScoreboard(r *Room) {
	r.sub = nil
	r.pendingBonus = ""
	if !r.bonusDone && r.shouldBonus() {
		r.pendingBonus = weightedBonus(r.rng, r.settings.BonusWeights)
	}
	last := r.round >= r.settings.Rounds
	m.armPhase(r, quiz.PhaseScoreboard, quiz.ScoreboardDuration, quiz.ScoreboardPayload{
		Standings: r.standings(),
		Round:     r.round,
		IsFinal:   last && r.pendingBonus == "",
	}, m.afterScoreboard)
}

func (r *Room) shouldBonus() bool {
	if r.round >= r.settings.Rounds && r.settings.FinalRoundBonus {
		return true
	}
	return r.rng.Float64() < r.settings.BonusChance
}

func (m *Manager) afterScoreboard(r *Room) {
	if r.pendingBonus != "" {
		m.startBonusAnnouncement(r)
		return
	}
	if r.round >= r.settings.Rounds {
		m.toFinal(r)
		return
	}
	m.startRound(r, r.round+1)
}

// ===== Bonus flow =====

func (m *Manager) startBonusAnnouncement(r *Room) {
	r.sub = nil
	r.contentErr = nil
	m.fetchBonusContent(r)
	m.armPhase(r, quiz.PhaseBonusAnnouncement, quiz.BonusAnnouncementDuration, quiz.BonusAnnouncePayload{
		Game: r.pendingBonus,
	}, m.enterBonus)
}

func (m *Manager) fetchBonusContent(r *Room) {
	code, round := r.Code, r.round
	game := r.pendingBonus
	go func() {
		ctx, cancel := m.drawContext()
		defer cancel()

		var (
			qs    []quiz.Question
			topic quiz.ListTopic
			err   error
		)
		if game == quiz.BonusHotButton {
			qs, err = m.src.DrawBuzzer(ctx, buzzerQuestionCount)
		} else {
			topic, err = m.src.DrawList(ctx)
		}

		_ = m.withRoom(code, func(r *Room) {
			if r.round != round || r.pendingBonus != game {
				return
			}
			if err != nil {
				r.contentErr = err
				return
			}
			if game == quiz.BonusHotButton {
				r.bonusQuestions = qs
			} else {
				r.bonusTopic = &topic
			}
		})
	}()
}

func (m *Manager) enterBonus(r *Room) {
	if r.contentErr != nil {
		m.log.Error().Str("room", r.Code).Err(r.contentErr).Msg("bonus content fetch failed, skipping bonus")
		m.skipBonus(r)
		return
	}
	loaded := (r.pendingBonus == quiz.BonusHotButton && len(r.bonusQuestions) > 0) ||
		(r.pendingBonus == quiz.BonusCollectiveList && r.bonusTopic != nil)
	if !loaded {
		m.armPhase(r, quiz.PhaseBonusAnnouncement, contentWait, quiz.BonusAnnouncePayload{
			Game: r.pendingBonus,
		}, m.enterBonus)
		return
	}
	if r.pendingBonus == quiz.BonusHotButton {
		m.startHotButton(r)
		return
	}
	m.startList(r)
}

func (m *Manager) skipBonus(r *Room) {
	r.bonusDone = true
	r.pendingBonus = ""
	if r.round >= r.settings.Rounds {
		m.toFinal(r)
		return
	}
	m.startRound(r, r.round+1)
}

// finishBonus settles the bonus round and shows its result screen.
// Points are already applied by the sub-engine.
func (m *Manager) finishBonus(r *Room, results quiz.BonusResultPayload) {
	r.sub = nil
	r.bonusDone = true
	r.lastBonus = &results
	m.timers.Cancel(r.Code + keyTick)
	m.armPhase(r, quiz.PhaseBonusResult, quiz.BonusResultDuration, results, func(r *Room) {
		m.toScoreboard(r)
	})
}

func (m *Manager) toFinal(r *Room) {
	r.sub = nil
	r.pendingBonus = ""
	r.phase = quiz.PhaseFinal
	r.rev++
	r.timerEnd = time.Time{}
	m.timers.Cancel(r.Code + keyPhase)
	m.timers.Cancel(r.Code + keyTick)

	rankings := scoring.FinalRankings(r.publicPlayers())
	r.publish(quiz.EventFinalRankings, quiz.FinalRankingsData{Rankings: rankings})
	r.publish(quiz.EventPhaseChanged, r.snapshotWith(quiz.FinalPayload{Rankings: rankings}))
	m.log.Info().Str("room", r.Code).Int("rounds", r.round).Msg("game finished")
}

// ===== Snapshot payloads =====

// buildPayload reconstructs the active phase's payload so a fresh
// snapshot carries everything a client needs to render mid-game.
func (m *Manager) buildPayload(r *Room) any {
	switch r.phase {
	case quiz.PhaseLobby:
		return quiz.LobbyPayload{Settings: r.settings, CanStart: r.canStart(), HostId: r.hostId()}
	case quiz.PhaseRoundAnnouncement:
		return quiz.AnnouncementPayload{Round: r.round, TotalRounds: r.settings.Rounds, Mode: r.mode}
	case quiz.PhaseCategoryVote:
		if st, ok := r.sub.(*voteState); ok {
			return votePayload(st)
		}
	case quiz.PhaseCategoryWheel:
		if st, ok := r.sub.(*wheelState); ok {
			return wheelPayload(st)
		}
	case quiz.PhaseCategoryLoserPick, quiz.PhaseCategoryDiceRoyale, quiz.PhaseCategoryRpsDuel:
		switch st := r.sub.(type) {
		case *pickState:
			return pickPayload(r, st)
		case *diceState:
			return dicePayload(st)
		case *rpsState:
			return rpsPayload(st)
		}
	case quiz.PhaseQuestion, quiz.PhaseEstimation:
		if r.questionIdx < len(r.questions) {
			q := r.questions[r.questionIdx]
			return quiz.QuestionPayload{
				Question: q.Public(),
				Index:    r.questionIdx + 1,
				Total:    len(r.questions),
				Category: r.category,
			}
		}
	case quiz.PhaseRevealing:
		if r.lastReveal != nil {
			return *r.lastReveal
		}
	case quiz.PhaseScoreboard:
		return quiz.ScoreboardPayload{
			Standings: r.standings(),
			Round:     r.round,
			IsFinal:   r.round >= r.settings.Rounds && r.pendingBonus == "",
		}
	case quiz.PhaseBonusAnnouncement:
		return quiz.BonusAnnouncePayload{Game: r.pendingBonus}
	case quiz.PhaseBonusRound:
		switch st := r.sub.(type) {
		case *hotButtonState:
			return hotButtonPayload(st)
		case *listState:
			return listPayload(r, st)
		}
	case quiz.PhaseBonusResult:
		if r.lastBonus != nil {
			return *r.lastBonus
		}
	case quiz.PhaseFinal:
		return quiz.FinalPayload{Rankings: scoring.FinalRankings(r.publicPlayers())}
	}
	return nil
}

// ===== Weighted draws =====

var selectionOrder = []quiz.SelectionMode{
	quiz.SelectVote, quiz.SelectWheel, quiz.SelectLoserPick,
	quiz.SelectDiceRoyale, quiz.SelectRpsDuel,
}

var bonusOrder = []quiz.BonusGame{quiz.BonusHotButton, quiz.BonusCollectiveList}

func weightedMode(rng *rand.Rand, weights map[quiz.SelectionMode]int) quiz.SelectionMode {
	return weightedPick(rng, weights, selectionOrder)
}

func weightedBonus(rng *rand.Rand, weights map[quiz.BonusGame]int) quiz.BonusGame {
	return weightedPick(rng, weights, bonusOrder)
}

// weightedPick draws from keys in a fixed order so a seeded rng gives
// reproducible rounds.
func weightedPick[K comparable](rng *rand.Rand, weights map[K]int, order []K) K {
	total := 0
	for _, k := range order {
		if w := weights[k]; w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return order[0]
	}
	n := rng.Intn(total)
	for _, k := range order {
		w := weights[k]
		if w <= 0 {
			continue
		}
		if n < w {
			return k
		}
		n -= w
	}
	return order[0]
}

func sampleCategories(rng *rand.Rand, cats []quiz.Category, n int) []quiz.Category {
	out := make([]quiz.Category, len(cats))
	copy(out, cats)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// defaultMix spreads a draw evenly over the difficulty bands, giving
// the remainder to medium then easy.
func defaultMix(count int) quiz.DifficultyMix {
	base := count / 3
	mix := quiz.DifficultyMix{
		quiz.DifficultyEasy:   base,
		quiz.DifficultyMedium: base,
		quiz.DifficultyHard:   base,
	}
	switch count % 3 {
	case 1:
		mix[quiz.DifficultyMedium]++
	case 2:
		mix[quiz.DifficultyEasy]++
		mix[quiz.DifficultyMedium]++
	}
	return mix
}
