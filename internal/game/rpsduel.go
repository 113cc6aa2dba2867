package game

import (
	"fmt"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

// RPS duel: the two lowest-scored players fight best-of-3 for the pick
// window. Tie rounds are replayed and count toward nobody.

const rpsWinsNeeded = 2

var rpsChoices = []quiz.RpsChoice{quiz.RpsRock, quiz.RpsPaper, quiz.RpsScissors}

func (m *Manager) startRps(r *Room) {
	ids := r.byScoreAscending()
	st := &rpsState{
		contestants: [2]string{ids[0], ids[1]},
		round:       1,
		bestOf:      3,
		wins:        make(map[string]int),
		choices:     make(map[string]quiz.RpsChoice),
	}
	r.sub = st
	m.armPhase(r, quiz.PhaseCategoryRpsDuel, quiz.RpsChoiceDuration, rpsPayload(st), m.autoRpsChoices)
}

func rpsPayload(st *rpsState) quiz.RpsPayload {
	wins := make(map[string]int, 2)
	for id, n := range st.wins {
		wins[id] = n
	}
	return quiz.RpsPayload{
		Contestants: []string{st.contestants[0], st.contestants[1]},
		Round:       st.round,
		Wins:        wins,
		BestOf:      st.bestOf,
	}
}

func (st *rpsState) isContestant(id string) bool {
	return id == st.contestants[0] || id == st.contestants[1]
}

func (st *rpsState) opponent(id string) string {
	if id == st.contestants[0] {
		return st.contestants[1]
	}
	return st.contestants[0]
}

func (m *Manager) handleRpsChoice(code, playerID string, choice quiz.RpsChoice) error {
	return m.playerAction(code, playerID, func(r *Room, p *quiz.Player) error {
		st, ok := r.sub.(*rpsState)
		if !ok {
			return ErrWrongPhase
		}
		if !st.isContestant(playerID) {
			return ErrNotEligible
		}
		if !choice.Valid() {
			return fmt.Errorf("%w: unknown choice %q", ErrInvalidPayload, choice)
		}
		if _, chosen := st.choices[playerID]; chosen {
			return ErrAlreadyActed
		}
		st.choices[playerID] = choice
		if len(st.choices) == 2 {
			m.resolveRpsRound(r, st)
		}
		return nil
	})
}

// autoRpsChoices throws for any contestant who let the window lapse.
func (m *Manager) autoRpsChoices(r *Room) {
	st, ok := r.sub.(*rpsState)
	if !ok {
		return
	}
	for _, id := range st.contestants {
		if _, chosen := st.choices[id]; !chosen {
			st.choices[id] = rpsChoices[r.rng.Intn(len(rpsChoices))]
		}
	}
	m.resolveRpsRound(r, st)
}

func (m *Manager) resolveRpsRound(r *Room, st *rpsState) {
	a, b := st.contestants[0], st.contestants[1]
	ca, cb := st.choices[a], st.choices[b]

	winner := ""
	if ca.Beats(cb) {
		winner = a
	} else if cb.Beats(ca) {
		winner = b
	}
	if winner != "" {
		st.wins[winner]++
	}

	choices := map[string]quiz.RpsChoice{a: ca, b: cb}
	wins := map[string]int{a: st.wins[a], b: st.wins[b]}
	r.publish(quiz.EventRpsRoundResult, quiz.RpsRoundResultData{
		Round:    st.round,
		Choices:  choices,
		WinnerId: winner,
		Wins:     wins,
	})

	if st.wins[winner] >= rpsWinsNeeded {
		m.startPick(r, winner)
		return
	}

	// Next throw; tie rounds replay without counting.
	st.round++
	st.choices = make(map[string]quiz.RpsChoice)
	m.armPhase(r, quiz.PhaseCategoryRpsDuel, quiz.RpsChoiceDuration, rpsPayload(st), m.autoRpsChoices)
}

// dropFromRps forfeits the duel to the remaining contestant.
func (m *Manager) dropFromRps(r *Room, st *rpsState, playerID string) {
	if !st.isContestant(playerID) {
		return
	}
	other := st.opponent(playerID)
	if r.player(other) == nil {
		cat := r.candidates[r.rng.Intn(len(r.candidates))]
		m.categorySelected(r, cat, "")
		return
	}
	m.startPick(r, other)
}
