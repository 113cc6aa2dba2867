// Package scoring computes point breakdowns for every answer kind. All
// functions are pure: they take observed inputs and return a breakdown,
// leaving score application to the caller.
package scoring

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

const (
	ChoiceBasePoints = 1000
	MaxTimeBonus     = 500

	MaxAccuracyPoints = 1000
	PerfectBonus      = 400
	// Estimations off by this relative deviation or more score zero accuracy.
	DeviationCutoff = 1.0

	BuzzerBasePoints   = 500
	MaxBuzzerSpeed     = 500
	BuzzerWrongPenalty = 200

	ListItemPoints = 100
)

// streakSteps maps a prior consecutive-correct count to its bonus. Keyed
// by the streak before the current answer, highest threshold wins.
var streakSteps = []struct {
	atLeast int
	bonus   int
}{
	{7, 500},
	{4, 250},
	{2, 100},
}

// rankBonuses pays the closest estimates in order.
var rankBonuses = []int{300, 200, 100}

// placementBonuses pays list-contest survivors by final rank.
var placementBonuses = map[int]int{1: 500, 2: 300, 3: 150, 4: 50}

func StreakBonus(priorStreak int) int {
	for _, step := range streakSteps {
		if priorStreak >= step.atLeast {
			return step.bonus
		}
	}
	return 0
}

// TimeBonus decreases linearly over the answer window and is zero at or
// past its end.
func TimeBonus(elapsed, window time.Duration) int {
	if window <= 0 || elapsed >= window {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	frac := 1 - float64(elapsed)/float64(window)
	return int(math.Round(MaxTimeBonus * frac))
}

// ScoreChoice scores one multiple-choice answer. A wrong answer earns
// nothing and resets the streak; a correct one earns base, time and
// streak bonuses and extends the streak.
func ScoreChoice(elapsed, window time.Duration, priorStreak int, correct bool) quiz.ChoiceBreakdown {
	if !correct {
		return quiz.ChoiceBreakdown{Correct: false, Streak: 0}
	}
	b := quiz.ChoiceBreakdown{
		Base:        ChoiceBasePoints,
		TimeBonus:   TimeBonus(elapsed, window),
		StreakBonus: StreakBonus(priorStreak),
		Correct:     true,
		Streak:      priorStreak + 1,
	}
	b.Total = b.Base + b.TimeBonus + b.StreakBonus
	return b
}

// EstimationAnswer is one player's submitted estimate.
type EstimationAnswer struct {
	PlayerId string
	Value    float64
	Elapsed  time.Duration
}

// ScoreEstimation scores a full set of estimates against the correct
// value. Accuracy decreases with relative deviation and is zero beyond
// the cutoff. Exact answers take the perfect bonus and sit out the rank
// bonus table, which pays the closest inexact estimates in order
// (earlier submission breaks deviation ties). Rank in the breakdown is
// the display order over all answers, closest first.
func ScoreEstimation(correct float64, answers []EstimationAnswer) map[string]quiz.EstimationBreakdown {
	out := make(map[string]quiz.EstimationBreakdown, len(answers))
	if len(answers) == 0 {
		return out
	}

	denom := math.Abs(correct)
	if denom == 0 {
		denom = 1
	}

	ordered := slices.Clone(answers)
	sort.SliceStable(ordered, func(i, j int) bool {
		di := math.Abs(ordered[i].Value - correct)
		dj := math.Abs(ordered[j].Value - correct)
		if di != dj {
			return di < dj
		}
		return ordered[i].Elapsed < ordered[j].Elapsed
	})

	rankSlot := 0
	for i, ans := range ordered {
		dev := math.Abs(ans.Value-correct) / denom
		b := quiz.EstimationBreakdown{
			Rank:      i + 1,
			Deviation: dev,
		}

		frac := 1 - dev/DeviationCutoff
		if frac > 0 {
			b.Accuracy = int(math.Round(MaxAccuracyPoints * frac))
		}

		if ans.Value == correct {
			b.PerfectBonus = PerfectBonus
		} else {
			if rankSlot < len(rankBonuses) {
				b.RankBonus = rankBonuses[rankSlot]
			}
			rankSlot++
		}

		b.Total = b.Accuracy + b.RankBonus + b.PerfectBonus
		out[ans.PlayerId] = b
	}
	return out
}

// ScoreBuzzer scores a buzzer attempt. The speed bonus shrinks as more
// of the question was revealed at buzz time; wrong attempts pay a flat
// penalty.
func ScoreBuzzer(revealedPct int, correct bool) quiz.BuzzerBreakdown {
	if !correct {
		return quiz.BuzzerBreakdown{
			Penalty: BuzzerWrongPenalty,
			Total:   -BuzzerWrongPenalty,
		}
	}
	if revealedPct < 0 {
		revealedPct = 0
	}
	if revealedPct > 100 {
		revealedPct = 100
	}
	b := quiz.BuzzerBreakdown{
		Base:       BuzzerBasePoints,
		SpeedBonus: int(math.Round(MaxBuzzerSpeed * float64(100-revealedPct) / 100)),
		Correct:    true,
	}
	b.Total = b.Base + b.SpeedBonus
	return b
}

// ScoreList settles one player's list contest: claimed items plus a
// placement bonus for the final rank.
func ScoreList(itemsClaimed, rank int) quiz.ListBreakdown {
	b := quiz.ListBreakdown{
		ItemPoints:     ListItemPoints * itemsClaimed,
		PlacementBonus: placementBonuses[rank],
		ItemsClaimed:   itemsClaimed,
		Rank:           rank,
	}
	b.Total = b.ItemPoints + b.PlacementBonus
	return b
}

// FinalRankings orders players for the podium: score descending, join
// order ascending on ties.
func FinalRankings(players []quiz.Player) []quiz.FinalRanking {
	ordered := slices.Clone(players)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].JoinedAt.Before(ordered[j].JoinedAt)
	})

	rankings := make([]quiz.FinalRanking, 0, len(ordered))
	for i, p := range ordered {
		rankings = append(rankings, quiz.FinalRanking{
			Rank:     i + 1,
			PlayerId: p.Id,
			Name:     p.Name,
			Avatar:   p.Avatar,
			Score:    p.Score,
		})
	}
	return rankings
}
