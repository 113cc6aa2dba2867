package scoring

import (
	"testing"
	"time"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

func TestScoreChoiceCorrectFast(t *testing.T) {
	b := ScoreChoice(1*time.Second, 10*time.Second, 2, true)

	if !b.Correct {
		t.Fatal("Correct = false, want true")
	}
	if b.Base != ChoiceBasePoints {
		t.Errorf("Base = %d, want %d", b.Base, ChoiceBasePoints)
	}
	if b.TimeBonus <= 0 {
		t.Errorf("TimeBonus = %d, want > 0", b.TimeBonus)
	}
	if b.StreakBonus != 100 {
		t.Errorf("StreakBonus = %d, want 100 for prior streak 2", b.StreakBonus)
	}
	if b.Streak != 3 {
		t.Errorf("Streak = %d, want 3", b.Streak)
	}
	if want := b.Base + b.TimeBonus + b.StreakBonus; b.Total != want {
		t.Errorf("Total = %d, want %d", b.Total, want)
	}
}

func TestScoreChoiceWrongResetsStreak(t *testing.T) {
	b := ScoreChoice(2*time.Second, 10*time.Second, 5, false)

	if b.Correct {
		t.Fatal("Correct = true, want false")
	}
	if b.Total != 0 {
		t.Errorf("Total = %d, want 0", b.Total)
	}
	if b.Streak != 0 {
		t.Errorf("Streak = %d, want 0 after a miss", b.Streak)
	}
}

func TestTimeBonusMonotoneDecreasing(t *testing.T) {
	window := 20 * time.Second
	prev := TimeBonus(0, window)
	if prev != MaxTimeBonus {
		t.Errorf("TimeBonus(0) = %d, want %d", prev, MaxTimeBonus)
	}
	for _, elapsed := range []time.Duration{
		1 * time.Second, 5 * time.Second, 10 * time.Second, 19 * time.Second,
	} {
		got := TimeBonus(elapsed, window)
		if got > prev {
			t.Errorf("TimeBonus(%v) = %d, greater than earlier %d", elapsed, got, prev)
		}
		prev = got
	}
	if got := TimeBonus(window, window); got != 0 {
		t.Errorf("TimeBonus at window end = %d, want 0", got)
	}
	if got := TimeBonus(window+time.Second, window); got != 0 {
		t.Errorf("TimeBonus past window = %d, want 0", got)
	}
}

func TestStreakBonusSteps(t *testing.T) {
	tests := []struct {
		prior int
		want  int
	}{
		{0, 0},
		{1, 0},
		{2, 100},
		{3, 100},
		{4, 250},
		{6, 250},
		{7, 500},
		{12, 500},
	}
	for _, tt := range tests {
		if got := StreakBonus(tt.prior); got != tt.want {
			t.Errorf("StreakBonus(%d) = %d, want %d", tt.prior, got, tt.want)
		}
	}
}

func TestScoreEstimation(t *testing.T) {
	answers := []EstimationAnswer{
		{PlayerId: "a", Value: 480, Elapsed: 3 * time.Second},
		{PlayerId: "b", Value: 500, Elapsed: 5 * time.Second},
		{PlayerId: "c", Value: 10000, Elapsed: 2 * time.Second},
	}
	got := ScoreEstimation(500, answers)

	b := got["b"]
	if b.PerfectBonus != PerfectBonus {
		t.Errorf("exact answer PerfectBonus = %d, want %d", b.PerfectBonus, PerfectBonus)
	}
	if b.Accuracy != MaxAccuracyPoints {
		t.Errorf("exact answer Accuracy = %d, want %d", b.Accuracy, MaxAccuracyPoints)
	}
	if b.RankBonus != 0 {
		t.Errorf("exact answer RankBonus = %d, want 0 (paid through PerfectBonus)", b.RankBonus)
	}
	if b.Rank != 1 {
		t.Errorf("exact answer Rank = %d, want 1", b.Rank)
	}

	a := got["a"]
	if a.RankBonus != rankBonuses[0] {
		t.Errorf("closest estimate RankBonus = %d, want %d", a.RankBonus, rankBonuses[0])
	}
	if a.Accuracy <= 0 || a.Accuracy >= MaxAccuracyPoints {
		t.Errorf("close estimate Accuracy = %d, want in (0, %d)", a.Accuracy, MaxAccuracyPoints)
	}
	if a.PerfectBonus != 0 {
		t.Errorf("inexact answer PerfectBonus = %d, want 0", a.PerfectBonus)
	}

	c := got["c"]
	if c.Accuracy != 0 {
		t.Errorf("wild estimate Accuracy = %d, want 0 beyond the deviation cutoff", c.Accuracy)
	}
	if c.Rank != 3 {
		t.Errorf("wild estimate Rank = %d, want 3", c.Rank)
	}
}

func TestScoreEstimationTieBreaksByElapsed(t *testing.T) {
	answers := []EstimationAnswer{
		{PlayerId: "slow", Value: 90, Elapsed: 8 * time.Second},
		{PlayerId: "fast", Value: 110, Elapsed: 2 * time.Second},
	}
	got := ScoreEstimation(100, answers)

	if got["fast"].Rank != 1 {
		t.Errorf("faster equal-deviation answer Rank = %d, want 1", got["fast"].Rank)
	}
	if got["fast"].RankBonus <= got["slow"].RankBonus {
		t.Errorf("RankBonus fast=%d slow=%d, want fast > slow",
			got["fast"].RankBonus, got["slow"].RankBonus)
	}
}

func TestScoreBuzzer(t *testing.T) {
	early := ScoreBuzzer(10, true)
	late := ScoreBuzzer(90, true)

	if early.Total <= late.Total {
		t.Errorf("early buzz Total = %d, late = %d, want early > late", early.Total, late.Total)
	}
	if early.Base != BuzzerBasePoints || late.Base != BuzzerBasePoints {
		t.Errorf("Base = %d/%d, want %d", early.Base, late.Base, BuzzerBasePoints)
	}

	wrong := ScoreBuzzer(50, false)
	if wrong.Total != -BuzzerWrongPenalty {
		t.Errorf("wrong buzz Total = %d, want %d", wrong.Total, -BuzzerWrongPenalty)
	}
	if wrong.Correct {
		t.Error("wrong buzz Correct = true, want false")
	}
}

func TestScoreList(t *testing.T) {
	b := ScoreList(4, 1)
	if b.ItemPoints != 4*ListItemPoints {
		t.Errorf("ItemPoints = %d, want %d", b.ItemPoints, 4*ListItemPoints)
	}
	if b.PlacementBonus != placementBonuses[1] {
		t.Errorf("PlacementBonus = %d, want %d", b.PlacementBonus, placementBonuses[1])
	}
	if b.Total != b.ItemPoints+b.PlacementBonus {
		t.Errorf("Total = %d, want %d", b.Total, b.ItemPoints+b.PlacementBonus)
	}

	if got := ScoreList(0, 7); got.Total != 0 {
		t.Errorf("empty-handed late rank Total = %d, want 0", got.Total)
	}
}

func TestFinalRankingsTieBreakByJoinOrder(t *testing.T) {
	now := time.Now()
	players := []quiz.Player{
		{Id: "late", Name: "Late", Score: 900, JoinedAt: now.Add(2 * time.Minute)},
		{Id: "top", Name: "Top", Score: 1500, JoinedAt: now.Add(time.Minute)},
		{Id: "early", Name: "Early", Score: 900, JoinedAt: now},
	}

	got := FinalRankings(players)

	wantOrder := []string{"top", "early", "late"}
	for i, want := range wantOrder {
		if got[i].PlayerId != want {
			t.Errorf("rank %d = %s, want %s", i+1, got[i].PlayerId, want)
		}
		if got[i].Rank != i+1 {
			t.Errorf("Rank field = %d, want %d", got[i].Rank, i+1)
		}
	}
}
