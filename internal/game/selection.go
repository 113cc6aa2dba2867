package game

import (
	"fmt"
	"sort"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

// ===== Category vote =====

func (m *Manager) startVote(r *Room) {
	st := &voteState{
		candidates: r.candidates,
		votes:      make(map[string]string),
	}
	r.sub = st
	r.resetActed()
	m.armPhase(r, quiz.PhaseCategoryVote, quiz.CategoryVoteDuration, votePayload(st), m.resolveVote)
}

func votePayload(st *voteState) quiz.VotePayload {
	voted := make([]string, 0, len(st.votes))
	for pid := range st.votes {
		voted = append(voted, pid)
	}
	sort.Strings(voted)
	return quiz.VotePayload{
		Candidates: append([]quiz.Category(nil), st.candidates...),
		Counts:     voteCounts(st),
		VotedIds:   voted,
	}
}

func voteCounts(st *voteState) map[string]int {
	counts := make(map[string]int, len(st.candidates))
	for _, cid := range st.votes {
		counts[cid]++
	}
	return counts
}

func (m *Manager) handleVote(code, playerID, categoryID string) error {
	return m.playerAction(code, playerID, func(r *Room, p *quiz.Player) error {
		st, ok := r.sub.(*voteState)
		if !ok {
			return ErrWrongPhase
		}
		if _, voted := st.votes[playerID]; voted {
			return ErrAlreadyActed
		}
		if _, found := findCategory(st.candidates, categoryID); !found {
			return fmt.Errorf("%w: category not offered", ErrInvalidPayload)
		}

		st.votes[playerID] = categoryID
		if !containsString(st.firstVotes, categoryID) {
			st.firstVotes = append(st.firstVotes, categoryID)
		}
		p.HasActed = true
		r.publish(quiz.EventVoteCast, quiz.VoteCastData{
			PlayerId:   playerID,
			CategoryId: categoryID,
			Counts:     voteCounts(st),
		})
		if r.everyoneActed() {
			m.resolveVote(r)
		}
		return nil
	})
}

// resolveVote picks the most voted category; ties go to the one whose
// first vote arrived earliest, and a voteless window falls back to a
// random candidate.
func (m *Manager) resolveVote(r *Room) {
	st, ok := r.sub.(*voteState)
	if !ok {
		return
	}
	counts := voteCounts(st)
	best := 0
	for _, n := range counts {
		if n > best {
			best = n
		}
	}

	var winner quiz.Category
	if best == 0 {
		winner = st.candidates[r.rng.Intn(len(st.candidates))]
	} else {
		for _, cid := range st.firstVotes {
			if counts[cid] == best {
				winner, _ = findCategory(st.candidates, cid)
				break
			}
		}
	}
	m.categorySelected(r, winner, "")
}

func (m *Manager) dropFromVote(r *Room, st *voteState, playerID string) {
	delete(st.votes, playerID)
	if r.everyoneActed() {
		m.resolveVote(r)
	}
}

// ===== Category wheel =====

// startWheel decides the outcome up front. Clients only animate toward
// the index they are told.
func (m *Manager) startWheel(r *Room) {
	st := &wheelState{
		candidates: r.candidates,
		winningIdx: r.rng.Intn(len(r.candidates)),
	}
	r.sub = st
	m.armPhase(r, quiz.PhaseCategoryWheel, quiz.WheelSpinDuration, wheelPayload(st), m.resolveWheel)
}

func wheelPayload(st *wheelState) quiz.WheelPayload {
	return quiz.WheelPayload{
		Candidates:   append([]quiz.Category(nil), st.candidates...),
		WinningIndex: st.winningIdx,
		SpinMs:       quiz.WheelSpinDuration.Milliseconds(),
	}
}

func (m *Manager) resolveWheel(r *Room) {
	st, ok := r.sub.(*wheelState)
	if !ok {
		return
	}
	m.categorySelected(r, st.candidates[st.winningIdx], "")
}

// ===== Pick window =====

func (m *Manager) startLoserPick(r *Room) {
	ids := r.byScoreAscending()
	m.startPick(r, ids[0])
}

// startPick grants one player a timed category choice. Used directly by
// loser-pick and as the prize stage of the dice and rps contests.
func (m *Manager) startPick(r *Room, pickerID string) {
	st := &pickState{
		candidates: r.candidates,
		pickerId:   pickerID,
		mode:       r.mode,
	}
	r.sub = st
	m.armPhase(r, r.mode.Phase(), quiz.PickWindowDuration, pickPayload(r, st), m.resolvePickTimeout)
}

func pickPayload(r *Room, st *pickState) quiz.PickPayload {
	name := ""
	if p := r.player(st.pickerId); p != nil {
		name = p.Name
	}
	return quiz.PickPayload{
		Candidates: append([]quiz.Category(nil), st.candidates...),
		PickerId:   st.pickerId,
		PickerName: name,
	}
}

func (m *Manager) handlePick(code, playerID, categoryID string) error {
	return m.playerAction(code, playerID, func(r *Room, p *quiz.Player) error {
		st, ok := r.sub.(*pickState)
		if !ok {
			return ErrWrongPhase
		}
		if playerID != st.pickerId {
			return ErrNotEligible
		}
		cat, found := findCategory(st.candidates, categoryID)
		if !found {
			return fmt.Errorf("%w: category not offered", ErrInvalidPayload)
		}
		m.categorySelected(r, cat, playerID)
		return nil
	})
}

// resolvePickTimeout falls back to a random candidate when the picker
// never acts.
func (m *Manager) resolvePickTimeout(r *Room) {
	st, ok := r.sub.(*pickState)
	if !ok {
		return
	}
	cat := st.candidates[r.rng.Intn(len(st.candidates))]
	m.categorySelected(r, cat, "")
}

func (m *Manager) dropFromPick(r *Room, st *pickState, playerID string) {
	if st.pickerId != playerID {
		return
	}
	cat := st.candidates[r.rng.Intn(len(st.candidates))]
	m.categorySelected(r, cat, "")
}

// ===== Shared helpers =====

func findCategory(cats []quiz.Category, id string) (quiz.Category, bool) {
	for _, c := range cats {
		if c.Id == id {
			return c, true
		}
	}
	return quiz.Category{}, false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
