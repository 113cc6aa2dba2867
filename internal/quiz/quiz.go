package quiz

import (
	"time"
)

const (
	RoundAnnouncementDuration = 5 * time.Second
	CategoryVoteDuration      = 15 * time.Second
	WheelSpinDuration         = 8 * time.Second
	PickWindowDuration        = 15 * time.Second
	DiceRollDuration          = 12 * time.Second
	RpsChoiceDuration         = 10 * time.Second
	RevealingPhaseDuration    = 8 * time.Second
	ScoreboardDuration        = 12 * time.Second
	BonusAnnouncementDuration = 6 * time.Second
	BonusResultDuration       = 10 * time.Second
	BuzzAnswerDuration        = 8 * time.Second
	BuzzRevealTick            = 1 * time.Second
	ListTurnDuration          = 20 * time.Second
	TeardownGracePeriod       = 60 * time.Second
	MaxPlayersPerRoom         = 8
	MinPlayersToStart         = 2
)

type Phase string

const (
	PhaseLobby              Phase = "lobby"
	PhaseRoundAnnouncement  Phase = "round_announcement"
	PhaseCategoryVote       Phase = "category_vote"
	PhaseCategoryWheel      Phase = "category_wheel"
	PhaseCategoryLoserPick  Phase = "category_loser_pick"
	PhaseCategoryDiceRoyale Phase = "category_dice_royale"
	PhaseCategoryRpsDuel    Phase = "category_rps_duel"
	PhaseQuestion           Phase = "question"
	PhaseEstimation         Phase = "estimation"
	PhaseRevealing          Phase = "revealing"
	PhaseScoreboard         Phase = "scoreboard"
	PhaseBonusAnnouncement  Phase = "bonus_round_announcement"
	PhaseBonusRound         Phase = "bonus_round"
	PhaseBonusResult        Phase = "bonus_round_result"
	PhaseFinal              Phase = "final"
)

// IsSelection reports whether the phase is one of the category mini-games.
func (p Phase) IsSelection() bool {
	switch p {
	case PhaseCategoryVote, PhaseCategoryWheel, PhaseCategoryLoserPick,
		PhaseCategoryDiceRoyale, PhaseCategoryRpsDuel:
		return true
	}
	return false
}

type SelectionMode string

const (
	SelectVote       SelectionMode = "vote"
	SelectWheel      SelectionMode = "wheel"
	SelectLoserPick  SelectionMode = "loser_pick"
	SelectDiceRoyale SelectionMode = "dice_royale"
	SelectRpsDuel    SelectionMode = "rps_duel"
)

func (m SelectionMode) Phase() Phase {
	switch m {
	case SelectVote:
		return PhaseCategoryVote
	case SelectWheel:
		return PhaseCategoryWheel
	case SelectLoserPick:
		return PhaseCategoryLoserPick
	case SelectDiceRoyale:
		return PhaseCategoryDiceRoyale
	case SelectRpsDuel:
		return PhaseCategoryRpsDuel
	}
	return PhaseCategoryVote
}

type BonusGame string

const (
	BonusHotButton      BonusGame = "hot_button"
	BonusCollectiveList BonusGame = "collective_list"
)

type RpsChoice string

const (
	RpsRock     RpsChoice = "rock"
	RpsPaper    RpsChoice = "paper"
	RpsScissors RpsChoice = "scissors"
)

func (c RpsChoice) Valid() bool {
	return c == RpsRock || c == RpsPaper || c == RpsScissors
}

// Beats reports whether c wins against other. Equal choices tie.
func (c RpsChoice) Beats(other RpsChoice) bool {
	switch c {
	case RpsRock:
		return other == RpsScissors
	case RpsPaper:
		return other == RpsRock
	case RpsScissors:
		return other == RpsPaper
	}
	return false
}

type QuestionType string

const (
	QuestionChoice     QuestionType = "choice"
	QuestionEstimation QuestionType = "estimation"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DifficultyMix maps a difficulty band to the number of questions wanted
// from it in a single draw.
type DifficultyMix map[Difficulty]int

func (m DifficultyMix) Total() int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

type Category struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type Question struct {
	Id         string       `json:"id"`
	CategoryId string       `json:"category_id"`
	Type       QuestionType `json:"type"`
	Difficulty Difficulty   `json:"difficulty"`
	Text       string       `json:"text"`

	// Choice questions
	Options      []string `json:"options,omitempty"`
	CorrectIndex int      `json:"correct_index"`

	// Estimation questions
	CorrectValue float64 `json:"correct_value"`
	Unit         string  `json:"unit,omitempty"`

	// Canonical text answer plus accepted spellings, used by buzzer rounds
	Answer  string   `json:"answer,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// Public strips everything a client must not see before the reveal.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		Id:         q.Id,
		CategoryId: q.CategoryId,
		Type:       q.Type,
		Difficulty: q.Difficulty,
		Text:       q.Text,
		Options:    q.Options,
		Unit:       q.Unit,
	}
}

type PublicQuestion struct {
	Id         string       `json:"id"`
	CategoryId string       `json:"category_id"`
	Type       QuestionType `json:"type"`
	Difficulty Difficulty   `json:"difficulty"`
	Text       string       `json:"text"`
	Options    []string     `json:"options,omitempty"`
	Unit       string       `json:"unit,omitempty"`
}

type ListItem struct {
	Id      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

type ListTopic struct {
	Id    string     `json:"id"`
	Title string     `json:"title"`
	Items []ListItem `json:"items"`
}

type Player struct {
	Id     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`

	// Scoring state
	Score  int `json:"score"`
	Streak int `json:"streak"`

	// Session state
	IsHost      bool      `json:"is_host"`
	IsConnected bool      `json:"is_connected"`
	HasActed    bool      `json:"has_acted"`
	JoinedAt    time.Time `json:"joined_at"`
}

func (p *Player) ResetQuestionState() {
	p.HasActed = false
}

func (p *Player) ToPublic() Player {
	return Player{
		Id:          p.Id,
		Name:        p.Name,
		Avatar:      p.Avatar,
		Score:       p.Score,
		Streak:      p.Streak,
		IsHost:      p.IsHost,
		IsConnected: p.IsConnected,
		HasActed:    p.HasActed,
		JoinedAt:    p.JoinedAt,
	}
}
