package game

import (
	"sort"
	"time"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/match"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/scoring"
)

// Hot button: question text reveals on a fixed tick, anyone not yet
// burned may claim the buzz for an exclusive answer window. The buzz is
// a compare-and-set on holderId inside the room's serialized context,
// so exactly one claimant can ever win it.

const (
	// Percent of the text revealed per tick.
	buzzerRevealStep = 5
	// How long the question stays open once fully revealed.
	buzzerFullGrace = 5 * time.Second
)

func (m *Manager) startHotButton(r *Room) {
	st := &hotButtonState{
		questions:   r.bonusQuestions,
		roundScores: make(map[string]int),
	}
	r.sub = st
	m.enterBuzzQuestion(r, st)
}

// enterBuzzQuestion opens the next question with nothing revealed.
// There is no single deadline here: the reveal ticker carries progress
// and the grace window only starts at full reveal.
func (m *Manager) enterBuzzQuestion(r *Room, st *hotButtonState) {
	st.revealedPct = 0
	st.holderId = ""
	st.attempted = make(map[string]bool)

	r.phase = quiz.PhaseBonusRound
	r.rev++
	r.timerEnd = time.Time{}
	m.timers.Cancel(r.Code + keyPhase)
	r.publish(quiz.EventPhaseChanged, r.snapshotWith(hotButtonPayload(st)))
	m.scheduleTick(r)
}

func (m *Manager) scheduleTick(r *Room) {
	m.fireAt(r, keyTick, quiz.BuzzRevealTick, m.revealTick)
}

func (m *Manager) revealTick(r *Room) {
	st, ok := r.sub.(*hotButtonState)
	if !ok || st.holderId != "" {
		return
	}
	st.revealedPct += buzzerRevealStep
	if st.revealedPct > 100 {
		st.revealedPct = 100
	}
	q := st.questions[st.idx]
	r.publish(quiz.EventBuzzReveal, quiz.BuzzRevealData{
		QuestionIndex: st.idx + 1,
		RevealedPct:   st.revealedPct,
		Text:          revealPrefix(q.Text, st.revealedPct),
	})
	if st.revealedPct >= 100 {
		m.fireAt(r, keyPhase, buzzerFullGrace, m.buzzTimeUp)
		return
	}
	m.scheduleTick(r)
}

// revealPrefix returns the leading share of text matching the revealed
// percentage. The hidden remainder never goes over the wire.
func revealPrefix(text string, pct int) string {
	if pct >= 100 {
		return text
	}
	runes := []rune(text)
	n := (len(runes)*pct + 99) / 100
	if n > len(runes) {
		n = len(runes)
	}
	return string(runes[:n])
}

func (m *Manager) handleBuzz(code, playerID string) error {
	return m.playerAction(code, playerID, func(r *Room, p *quiz.Player) error {
		st, ok := r.sub.(*hotButtonState)
		if !ok {
			return ErrWrongPhase
		}
		if st.attempted[playerID] || st.holderId != "" {
			return ErrAlreadyBuzzed
		}

		st.holderId = playerID
		m.timers.Cancel(r.Code + keyTick)
		r.timerEnd = time.Now().Add(quiz.BuzzAnswerDuration)
		r.publish(quiz.EventBuzzWon, quiz.BuzzWonData{
			PlayerId:    playerID,
			RevealedPct: st.revealedPct,
		})
		m.fireAt(r, keyPhase, quiz.BuzzAnswerDuration, m.buzzAnswerTimeout)
		return nil
	})
}

func (m *Manager) handleBuzzerAnswer(code, playerID, text string) error {
	return m.playerAction(code, playerID, func(r *Room, p *quiz.Player) error {
		st, ok := r.sub.(*hotButtonState)
		if !ok {
			return ErrWrongPhase
		}
		if st.holderId != playerID {
			return ErrNotEligible
		}
		m.settleBuzz(r, st, playerID, text)
		return nil
	})
}

// buzzAnswerTimeout treats a lapsed answer window as a wrong answer.
func (m *Manager) buzzAnswerTimeout(r *Room) {
	st, ok := r.sub.(*hotButtonState)
	if !ok || st.holderId == "" {
		return
	}
	m.settleBuzz(r, st, st.holderId, "")
}

func (m *Manager) settleBuzz(r *Room, st *hotButtonState, playerID, text string) {
	q := st.questions[st.idx]
	correct := text != "" && match.Similar(text, q.Answer, q.Aliases) >= r.settings.BuzzerMatchThreshold

	b := scoring.ScoreBuzzer(st.revealedPct, correct)
	if p := r.player(playerID); p != nil {
		p.Score += b.Total
		st.roundScores[playerID] += b.Total
	}
	st.attempted[playerID] = true
	st.holderId = ""
	r.timerEnd = time.Time{}
	m.timers.Cancel(r.Code + keyPhase)

	res := quiz.BuzzerAnswerResultData{
		PlayerId:  playerID,
		Answer:    text,
		Correct:   correct,
		Breakdown: b,
	}
	if correct {
		res.CorrectAnswer = q.Answer
		r.publish(quiz.EventBuzzerAnswerResult, res)
		m.nextBuzzQuestion(r, st)
		return
	}

	r.publish(quiz.EventBuzzerAnswerResult, res)
	if !st.anyEligible(r) {
		m.endBuzzUnresolved(r, st)
		return
	}
	m.resumeReveal(r, st)
}

func (st *hotButtonState) anyEligible(r *Room) bool {
	for id := range r.players {
		if !st.attempted[id] {
			return true
		}
	}
	return false
}

func (m *Manager) resumeReveal(r *Room, st *hotButtonState) {
	if st.revealedPct >= 100 {
		m.fireAt(r, keyPhase, buzzerFullGrace, m.buzzTimeUp)
		return
	}
	m.scheduleTick(r)
}

// buzzTimeUp ends a fully revealed question nobody could claim.
func (m *Manager) buzzTimeUp(r *Room) {
	st, ok := r.sub.(*hotButtonState)
	if !ok || st.holderId != "" {
		return
	}
	m.endBuzzUnresolved(r, st)
}

func (m *Manager) endBuzzUnresolved(r *Room, st *hotButtonState) {
	q := st.questions[st.idx]
	r.publish(quiz.EventBuzzerAnswerResult, quiz.BuzzerAnswerResultData{
		CorrectAnswer: q.Answer,
	})
	m.nextBuzzQuestion(r, st)
}

func (m *Manager) nextBuzzQuestion(r *Room, st *hotButtonState) {
	if st.idx+1 < len(st.questions) {
		st.idx++
		m.enterBuzzQuestion(r, st)
		return
	}
	m.finishHotButton(r, st)
}

func (m *Manager) finishHotButton(r *Room, st *hotButtonState) {
	type line struct {
		id     string
		points int
	}
	lines := make([]line, 0, len(r.order))
	for _, id := range r.order {
		lines = append(lines, line{id: id, points: st.roundScores[id]})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].points > lines[j].points })

	results := make([]quiz.BonusResultEntry, 0, len(lines))
	for i, l := range lines {
		name := ""
		if p := r.player(l.id); p != nil {
			name = p.Name
		}
		results = append(results, quiz.BonusResultEntry{
			PlayerId: l.id,
			Name:     name,
			Points:   l.points,
			Rank:     i + 1,
		})
	}
	m.finishBonus(r, quiz.BonusResultPayload{Game: quiz.BonusHotButton, Results: results})
}

func hotButtonPayload(st *hotButtonState) quiz.HotButtonPayload {
	attempted := make([]string, 0, len(st.attempted))
	for id := range st.attempted {
		attempted = append(attempted, id)
	}
	sort.Strings(attempted)

	scores := make(map[string]int, len(st.roundScores))
	for id, n := range st.roundScores {
		scores[id] = n
	}
	q := st.questions[st.idx]
	return quiz.HotButtonPayload{
		Index:       st.idx + 1,
		Total:       len(st.questions),
		RevealedPct: st.revealedPct,
		Text:        revealPrefix(q.Text, st.revealedPct),
		HolderId:    st.holderId,
		AttemptedBy: attempted,
		RoundScores: scores,
	}
}

func (m *Manager) dropFromHotButton(r *Room, st *hotButtonState, playerID string) {
	delete(st.attempted, playerID)
	delete(st.roundScores, playerID)
	if st.holderId == playerID {
		st.holderId = ""
		r.timerEnd = time.Time{}
		m.timers.Cancel(r.Code + keyPhase)
	}
	if !st.anyEligible(r) {
		m.endBuzzUnresolved(r, st)
		return
	}
	if st.holderId == "" && !m.timers.Active(r.Code+keyTick) && !m.timers.Active(r.Code+keyPhase) {
		m.resumeReveal(r, st)
	}
}
