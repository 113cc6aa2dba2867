package game

import (
	"fmt"
	"time"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/scoring"
)

func (m *Manager) handleAnswer(code, playerID string, optionIdx int) error {
	return m.playerAction(code, playerID, func(r *Room, p *quiz.Player) error {
		if r.phase != quiz.PhaseQuestion {
			return ErrWrongPhase
		}
		if p.HasActed {
			return ErrAlreadyActed
		}
		q := r.questions[r.questionIdx]
		if optionIdx < 0 || optionIdx >= len(q.Options) {
			return fmt.Errorf("%w: option index out of range", ErrInvalidPayload)
		}

		p.HasActed = true
		r.answers[playerID] = answerEntry{
			optionIdx: optionIdx,
			elapsed:   time.Since(r.windowStart),
		}
		r.publish(quiz.EventPlayerAnswered, quiz.PlayerConnData{PlayerId: playerID, Name: p.Name})
		if r.everyoneActed() {
			m.finishQuestion(r)
		}
		return nil
	})
}

func (m *Manager) handleEstimation(code, playerID string, value float64) error {
	return m.playerAction(code, playerID, func(r *Room, p *quiz.Player) error {
		if r.phase != quiz.PhaseEstimation {
			return ErrWrongPhase
		}
		if p.HasActed {
			return ErrAlreadyActed
		}

		p.HasActed = true
		r.answers[playerID] = answerEntry{
			value:   value,
			elapsed: time.Since(r.windowStart),
		}
		r.publish(quiz.EventPlayerAnswered, quiz.PlayerConnData{PlayerId: playerID, Name: p.Name})
		if r.everyoneActed() {
			m.finishQuestion(r)
		}
		return nil
	})
}

// finishQuestion closes the answer window, scores every seat and moves
// to the reveal. Score and streak land together per player.
func (m *Manager) finishQuestion(r *Room) {
	if r.questionIdx >= len(r.questions) {
		return
	}
	q := r.questions[r.questionIdx]
	window := time.Duration(r.settings.AnswerSeconds) * time.Second

	var results []quiz.AnswerResultEntry
	switch q.Type {
	case quiz.QuestionEstimation:
		results = m.settleEstimation(r, q)
	default:
		results = m.settleChoice(r, q, window)
	}

	reveal := quiz.RevealPayload{
		Question:     q.Public(),
		CorrectIndex: q.CorrectIndex,
		CorrectValue: q.CorrectValue,
		Answer:       q.Answer,
		Results:      results,
	}
	r.lastReveal = &reveal
	r.publish(quiz.EventAnswerResult, quiz.AnswerResultData{QuestionId: q.Id, Results: results})
	m.armPhase(r, quiz.PhaseRevealing, quiz.RevealingPhaseDuration, reveal, m.afterReveal)
}

func (m *Manager) settleChoice(r *Room, q quiz.Question, window time.Duration) []quiz.AnswerResultEntry {
	results := make([]quiz.AnswerResultEntry, 0, len(r.order))
	for _, id := range r.order {
		p := r.players[id]
		entry, answered := r.answers[id]
		res := quiz.AnswerResultEntry{
			PlayerId:    id,
			Name:        p.Name,
			Answered:    answered,
			AnswerIndex: -1,
		}
		if answered {
			res.AnswerIndex = entry.optionIdx
			b := scoring.ScoreChoice(entry.elapsed, window, p.Streak, entry.optionIdx == q.CorrectIndex)
			res.Choice = &b
			p.Score += b.Total
			p.Streak = b.Streak
		} else {
			b := scoring.ScoreChoice(0, window, p.Streak, false)
			res.Choice = &b
			p.Streak = b.Streak
		}
		results = append(results, res)
	}
	return results
}

func (m *Manager) settleEstimation(r *Room, q quiz.Question) []quiz.AnswerResultEntry {
	answers := make([]scoring.EstimationAnswer, 0, len(r.answers))
	for _, id := range r.order {
		if entry, ok := r.answers[id]; ok {
			answers = append(answers, scoring.EstimationAnswer{
				PlayerId: id,
				Value:    entry.value,
				Elapsed:  entry.elapsed,
			})
		}
	}
	breakdowns := scoring.ScoreEstimation(q.CorrectValue, answers)

	results := make([]quiz.AnswerResultEntry, 0, len(r.order))
	for _, id := range r.order {
		p := r.players[id]
		entry, answered := r.answers[id]
		res := quiz.AnswerResultEntry{
			PlayerId:    id,
			Name:        p.Name,
			Answered:    answered,
			AnswerIndex: -1,
		}
		if answered {
			b := breakdowns[id]
			res.Estimation = &b
			res.Value = entry.value
			p.Score += b.Total
		}
		results = append(results, res)
	}
	return results
}
