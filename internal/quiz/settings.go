package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrNoRounds         = errors.New("rounds must be between 1 and 20")
	ErrNoQuestions      = errors.New("questions per round must be between 1 and 10")
	ErrBadAnswerWindow  = errors.New("answer window must be between 5 and 120 seconds")
	ErrBadWeights       = errors.New("selection weights must be non-negative with a positive sum")
	ErrBadBonusChance   = errors.New("bonus chance must be between 0 and 1")
	ErrBadBonusWeights  = errors.New("bonus game weights must be non-negative with a positive sum")
	ErrBadMatchLimit    = errors.New("match threshold must be between 0.5 and 1")
	ErrBadListTurnLimit = errors.New("list turn must be between 5 and 60 seconds")
)

type Settings struct {
	Rounds            int `json:"rounds"`
	QuestionsPerRound int `json:"questions_per_round"`
	AnswerSeconds     int `json:"answer_seconds"`
	ListTurnSeconds   int `json:"list_turn_seconds"`

	// Relative weights for how each round picks its category
	SelectionWeights map[SelectionMode]int `json:"selection_weights"`

	// Bonus rounds
	BonusChance     float64           `json:"bonus_chance"`
	FinalRoundBonus bool              `json:"final_round_bonus"`
	BonusWeights    map[BonusGame]int `json:"bonus_weights"`

	// Fuzzy-match acceptance thresholds, 0..1
	ListMatchThreshold   float64 `json:"list_match_threshold"`
	BuzzerMatchThreshold float64 `json:"buzzer_match_threshold"`
}

func DefaultSettings() Settings {
	return Settings{
		Rounds:            5,
		QuestionsPerRound: 3,
		AnswerSeconds:     20,
		ListTurnSeconds:   20,
		SelectionWeights: map[SelectionMode]int{
			SelectVote:       3,
			SelectWheel:      2,
			SelectLoserPick:  2,
			SelectDiceRoyale: 2,
			SelectRpsDuel:    1,
		},
		BonusChance:     0.25,
		FinalRoundBonus: true,
		BonusWeights: map[BonusGame]int{
			BonusHotButton:      1,
			BonusCollectiveList: 1,
		},
		ListMatchThreshold:   0.75,
		BuzzerMatchThreshold: 0.80,
	}
}

func (s Settings) Validate() error {
	if s.Rounds < 1 || s.Rounds > 20 {
		return ErrNoRounds
	}
	if s.QuestionsPerRound < 1 || s.QuestionsPerRound > 10 {
		return ErrNoQuestions
	}
	if s.AnswerSeconds < 5 || s.AnswerSeconds > 120 {
		return ErrBadAnswerWindow
	}
	if s.ListTurnSeconds < 5 || s.ListTurnSeconds > 60 {
		return ErrBadListTurnLimit
	}
	if err := validateWeights(s.SelectionWeights); err != nil {
		return ErrBadWeights
	}
	if s.BonusChance < 0 || s.BonusChance > 1 {
		return ErrBadBonusChance
	}
	if err := validateWeights(s.BonusWeights); err != nil {
		return ErrBadBonusWeights
	}
	if s.ListMatchThreshold < 0.5 || s.ListMatchThreshold > 1 {
		return ErrBadMatchLimit
	}
	if s.BuzzerMatchThreshold < 0.5 || s.BuzzerMatchThreshold > 1 {
		return ErrBadMatchLimit
	}
	return nil
}

func validateWeights[K comparable](weights map[K]int) error {
	sum := 0
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("negative weight")
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("zero weight sum")
	}
	return nil
}

// SettingsPatch is a partial settings update. Nil fields keep their
// current value.
type SettingsPatch struct {
	Rounds               *int                  `json:"rounds,omitempty"`
	QuestionsPerRound    *int                  `json:"questions_per_round,omitempty"`
	AnswerSeconds        *int                  `json:"answer_seconds,omitempty"`
	ListTurnSeconds      *int                  `json:"list_turn_seconds,omitempty"`
	SelectionWeights     map[SelectionMode]int `json:"selection_weights,omitempty"`
	BonusChance          *float64              `json:"bonus_chance,omitempty"`
	FinalRoundBonus      *bool                 `json:"final_round_bonus,omitempty"`
	BonusWeights         map[BonusGame]int     `json:"bonus_weights,omitempty"`
	ListMatchThreshold   *float64              `json:"list_match_threshold,omitempty"`
	BuzzerMatchThreshold *float64              `json:"buzzer_match_threshold,omitempty"`
}

// Apply merges the patch onto s and validates the result. On error the
// returned settings are s unchanged.
func (s Settings) Apply(p SettingsPatch) (Settings, error) {
	next := s
	next.SelectionWeights = cloneWeights(s.SelectionWeights)
	next.BonusWeights = cloneWeights(s.BonusWeights)

	if p.Rounds != nil {
		next.Rounds = *p.Rounds
	}
	if p.QuestionsPerRound != nil {
		next.QuestionsPerRound = *p.QuestionsPerRound
	}
	if p.AnswerSeconds != nil {
		next.AnswerSeconds = *p.AnswerSeconds
	}
	if p.ListTurnSeconds != nil {
		next.ListTurnSeconds = *p.ListTurnSeconds
	}
	if p.SelectionWeights != nil {
		next.SelectionWeights = cloneWeights(p.SelectionWeights)
	}
	if p.BonusChance != nil {
		next.BonusChance = *p.BonusChance
	}
	if p.FinalRoundBonus != nil {
		next.FinalRoundBonus = *p.FinalRoundBonus
	}
	if p.BonusWeights != nil {
		next.BonusWeights = cloneWeights(p.BonusWeights)
	}
	if p.ListMatchThreshold != nil {
		next.ListMatchThreshold = *p.ListMatchThreshold
	}
	if p.BuzzerMatchThreshold != nil {
		next.BuzzerMatchThreshold = *p.BuzzerMatchThreshold
	}

	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}

func cloneWeights[K comparable](weights map[K]int) map[K]int {
	if weights == nil {
		return nil
	}
	out := make(map[K]int, len(weights))
	for k, w := range weights {
		out[k] = w
	}
	return out
}
