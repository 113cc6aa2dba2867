package game

import (
	"sort"
	"time"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/match"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/scoring"
)

// Collective list: players take turns naming items off a hidden list,
// worst score first. A claim keeps the turn; a miss, duplicate, pass or
// timeout eliminates at a rank equal to the players still in rotation.

func (m *Manager) startList(r *Room) {
	st := &listState{
		topic:   *r.bonusTopic,
		claimed: make(map[string]string),
		order:   r.byScoreAscending(),
		claims:  make(map[string]int),
		ranks:   make(map[string]int),
	}
	r.sub = st
	m.armTurn(r, st)
}

// armTurn opens the active player's window. Each turn is its own
// revision, so an old turn timer can never eliminate the next player.
func (m *Manager) armTurn(r *Room, st *listState) {
	d := time.Duration(r.settings.ListTurnSeconds) * time.Second
	st.turnEnd = time.Now().Add(d)
	r.publish(quiz.EventCollectiveListTurn, quiz.ListTurnData{
		PlayerId:   st.activeId(),
		DeadlineMs: st.turnEnd.UnixMilli(),
	})
	m.armPhase(r, quiz.PhaseBonusRound, d, listPayload(r, st), m.listTurnTimeout)
}

func (st *listState) activeId() string {
	if len(st.order) == 0 {
		return ""
	}
	return st.order[st.activeIdx%len(st.order)]
}

func (m *Manager) handleListSubmit(code, playerID, text string) error {
	return m.playerAction(code, playerID, func(r *Room, p *quiz.Player) error {
		st, ok := r.sub.(*listState)
		if !ok {
			return ErrWrongPhase
		}
		if st.activeId() != playerID {
			return ErrNotEligible
		}

		item, taken, found := st.bestMatch(text, r.settings.ListMatchThreshold)
		if found && !taken {
			st.claimed[item.Id] = playerID
			st.claims[playerID]++
			r.publish(quiz.EventCollectiveListClaim, quiz.ListClaimData{
				ItemId:    item.Id,
				ItemName:  item.Name,
				PlayerId:  playerID,
				Submitted: text,
				Remaining: len(st.topic.Items) - len(st.claimed),
			})
			if len(st.claimed) == len(st.topic.Items) {
				// Everything named: whoever is still standing shares the win.
				for _, id := range st.order {
					st.ranks[id] = 1
				}
				m.finishList(r, st)
				return nil
			}
			m.armTurn(r, st)
			return nil
		}

		reason := "no_match"
		if found && taken {
			reason = "duplicate"
		}
		m.eliminateFromList(r, st, playerID, reason)
		return nil
	})
}

func (m *Manager) handleListSkip(code, playerID string) error {
	return m.playerAction(code, playerID, func(r *Room, p *quiz.Player) error {
		st, ok := r.sub.(*listState)
		if !ok {
			return ErrWrongPhase
		}
		if st.activeId() != playerID {
			return ErrNotEligible
		}
		m.eliminateFromList(r, st, playerID, "pass")
		return nil
	})
}

func (m *Manager) listTurnTimeout(r *Room) {
	st, ok := r.sub.(*listState)
	if !ok || len(st.order) == 0 {
		return
	}
	m.eliminateFromList(r, st, st.activeId(), "timeout")
}

// bestMatch finds the closest item at or above the threshold, preferring
// unclaimed items. taken reports that only a claimed item matched.
func (st *listState) bestMatch(text string, threshold float64) (item quiz.ListItem, taken, found bool) {
	bestOpen, bestTaken := -1.0, -1.0
	var open, dup quiz.ListItem
	for _, it := range st.topic.Items {
		s := match.Similar(text, it.Name, it.Aliases)
		if s < threshold {
			continue
		}
		if _, claimed := st.claimed[it.Id]; claimed {
			if s > bestTaken {
				bestTaken, dup = s, it
			}
		} else {
			if s > bestOpen {
				bestOpen, open = s, it
			}
		}
	}
	if bestOpen >= 0 {
		return open, false, true
	}
	if bestTaken >= 0 {
		return dup, true, true
	}
	return quiz.ListItem{}, false, false
}

// eliminateFromList drops the active player from the rotation. Rank is
// the head count before removal, so the first of three out takes rank 3.
func (m *Manager) eliminateFromList(r *Room, st *listState, playerID, reason string) {
	rank := len(st.order)
	st.ranks[playerID] = rank
	removeFromOrder(st, playerID)
	r.publish(quiz.EventPlayerEliminated, quiz.PlayerEliminatedData{
		PlayerId: playerID,
		Rank:     rank,
		Reason:   reason,
	})

	if len(st.order) <= 1 {
		if len(st.order) == 1 {
			st.ranks[st.order[0]] = 1
		}
		m.finishList(r, st)
		return
	}
	m.armTurn(r, st)
}

func removeFromOrder(st *listState, playerID string) {
	for i, id := range st.order {
		if id != playerID {
			continue
		}
		st.order = append(st.order[:i], st.order[i+1:]...)
		switch {
		case len(st.order) == 0:
			st.activeIdx = 0
		case i < st.activeIdx:
			st.activeIdx--
		case st.activeIdx >= len(st.order):
			st.activeIdx = 0
		}
		return
	}
}

func (m *Manager) finishList(r *Room, st *listState) {
	results := make([]quiz.BonusResultEntry, 0, len(r.order))
	for _, id := range r.order {
		rank := st.ranks[id]
		if rank == 0 {
			// joined after the rotation formed, never played
			continue
		}
		b := scoring.ScoreList(st.claims[id], rank)
		p := r.players[id]
		p.Score += b.Total
		results = append(results, quiz.BonusResultEntry{
			PlayerId:     id,
			Name:         p.Name,
			Points:       b.Total,
			Rank:         rank,
			ItemsClaimed: st.claims[id],
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Rank < results[j].Rank })
	m.finishBonus(r, quiz.BonusResultPayload{Game: quiz.BonusCollectiveList, Results: results})
}

func listPayload(r *Room, st *listState) quiz.ListPayload {
	claimed := make([]quiz.ClaimedItem, 0, len(st.claimed))
	for _, item := range st.topic.Items {
		if pid, ok := st.claimed[item.Id]; ok {
			claimed = append(claimed, quiz.ClaimedItem{
				ItemId:   item.Id,
				Name:     item.Name,
				PlayerId: pid,
			})
		}
	}
	claims := make(map[string]int, len(st.claims))
	for id, n := range st.claims {
		claims[id] = n
	}
	return quiz.ListPayload{
		Title:      st.topic.Title,
		TotalItems: len(st.topic.Items),
		Claimed:    claimed,
		ActiveId:   st.activeId(),
		Order:      append([]string(nil), st.order...),
		Claims:     claims,
	}
}

// dropFromList removes a leaver from the rotation. If it was their turn
// the contest advances; otherwise the running turn keeps its clock.
func (m *Manager) dropFromList(r *Room, st *listState, playerID string) {
	if !containsString(st.order, playerID) {
		return
	}
	if st.activeId() == playerID {
		m.eliminateFromList(r, st, playerID, "left")
		return
	}

	rank := len(st.order)
	st.ranks[playerID] = rank
	removeFromOrder(st, playerID)
	r.publish(quiz.EventPlayerEliminated, quiz.PlayerEliminatedData{
		PlayerId: playerID,
		Rank:     rank,
		Reason:   "left",
	})
	if len(st.order) == 1 {
		st.ranks[st.order[0]] = 1
		m.finishList(r, st)
	}
}
