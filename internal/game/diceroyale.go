package game

import (
	"sort"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

// Dice royale: everyone rolls two dice once, highest sum takes the pick
// window. Ties shrink the eligible set to the tied players and reroll
// until a single leader stands.

func (m *Manager) startDice(r *Room) {
	eligible := make(map[string]bool, len(r.players))
	for id := range r.players {
		eligible[id] = true
	}
	st := &diceState{
		round:    1,
		eligible: eligible,
		rolls:    make(map[string][]int),
	}
	r.sub = st
	m.armPhase(r, quiz.PhaseCategoryDiceRoyale, quiz.DiceRollDuration, dicePayload(st), m.autoRollDice)
}

func dicePayload(st *diceState) quiz.DicePayload {
	eligible := make([]string, 0, len(st.eligible))
	for id := range st.eligible {
		eligible = append(eligible, id)
	}
	sort.Strings(eligible)

	rolled := make(map[string][]int, len(st.rolls))
	sums := make(map[string]int, len(st.rolls))
	for id, values := range st.rolls {
		rolled[id] = append([]int(nil), values...)
		sums[id] = values[0] + values[1]
	}
	return quiz.DicePayload{
		Round:    st.round,
		Eligible: eligible,
		Rolled:   rolled,
		Sums:     sums,
	}
}

func (m *Manager) handleDiceRoll(code, playerID string) error {
	return m.playerAction(code, playerID, func(r *Room, p *quiz.Player) error {
		st, ok := r.sub.(*diceState)
		if !ok {
			return ErrWrongPhase
		}
		if !st.eligible[playerID] {
			return ErrNotEligible
		}
		if _, rolled := st.rolls[playerID]; rolled {
			return ErrAlreadyActed
		}
		m.rollDice(r, st, playerID)
		if st.allRolled() {
			m.resolveDice(r, st)
		}
		return nil
	})
}

func (m *Manager) rollDice(r *Room, st *diceState, playerID string) {
	values := []int{r.rng.Intn(6) + 1, r.rng.Intn(6) + 1}
	st.rolls[playerID] = values
	r.publish(quiz.EventDiceRollResult, quiz.DiceRollResultData{
		PlayerId: playerID,
		Values:   append([]int(nil), values...),
		Sum:      values[0] + values[1],
		Round:    st.round,
	})
}

func (st *diceState) allRolled() bool {
	for id := range st.eligible {
		if _, ok := st.rolls[id]; !ok {
			return false
		}
	}
	return len(st.eligible) > 0
}

// autoRollDice rolls on behalf of everyone who missed the window, then
// resolves.
func (m *Manager) autoRollDice(r *Room) {
	st, ok := r.sub.(*diceState)
	if !ok {
		return
	}
	for _, id := range r.order {
		if st.eligible[id] && st.rolls[id] == nil {
			m.rollDice(r, st, id)
		}
	}
	m.resolveDice(r, st)
}

func (m *Manager) resolveDice(r *Room, st *diceState) {
	best := -1
	var leaders []string
	for _, id := range r.order {
		if !st.eligible[id] {
			continue
		}
		roll := st.rolls[id]
		if roll == nil {
			continue
		}
		sum := roll[0] + roll[1]
		switch {
		case sum > best:
			best = sum
			leaders = []string{id}
		case sum == best:
			leaders = append(leaders, id)
		}
	}

	switch len(leaders) {
	case 0:
		cat := r.candidates[r.rng.Intn(len(r.candidates))]
		m.categorySelected(r, cat, "")
	case 1:
		m.startPick(r, leaders[0])
	default:
		// Tie round: only the tied players roll again.
		st.round++
		st.eligible = make(map[string]bool, len(leaders))
		for _, id := range leaders {
			st.eligible[id] = true
		}
		st.rolls = make(map[string][]int)
		r.publish(quiz.EventDiceTie, quiz.DiceTieData{TiedIds: leaders, Round: st.round})
		m.armPhase(r, quiz.PhaseCategoryDiceRoyale, quiz.DiceRollDuration, dicePayload(st), m.autoRollDice)
	}
}

func (m *Manager) dropFromDice(r *Room, st *diceState, playerID string) {
	if !st.eligible[playerID] {
		return
	}
	delete(st.eligible, playerID)
	delete(st.rolls, playerID)

	switch {
	case len(st.eligible) == 0:
		cat := r.candidates[r.rng.Intn(len(r.candidates))]
		m.categorySelected(r, cat, "")
	case len(st.eligible) == 1:
		for id := range st.eligible {
			m.startPick(r, id)
		}
	case st.allRolled():
		m.resolveDice(r, st)
	}
}
