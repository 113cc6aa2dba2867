package quiz

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Event is the envelope shape every subscriber receives.
type Event = Message[any]

func NewEvent(eventType string, data any) Event {
	return Event{Type: eventType, Data: data}
}

// Inbound action types.
const (
	ActionStartGame          = "start_game"
	ActionUpdateSettings     = "update_settings"
	ActionLeave              = "leave"
	ActionVoteCategory       = "vote_category"
	ActionDiceRoll           = "dice_roll"
	ActionRpsChoice          = "rps_choice"
	ActionPickCategory       = "loser_pick_category"
	ActionSubmitAnswer       = "submit_answer"
	ActionSubmitEstimation   = "submit_estimation"
	ActionBuzz               = "buzz"
	ActionSubmitBuzzerAnswer = "submit_buzzer_answer"
	ActionListSubmit         = "collective_list_submit"
	ActionListSkip           = "collective_list_skip"
)

// Outbound event types.
const (
	EventWelcome             = "welcome"
	EventPhaseChanged        = "phase_changed"
	EventPlayerJoined        = "player_joined"
	EventPlayerLeft          = "player_left"
	EventPlayerDisconnected  = "player_disconnected"
	EventPlayerReconnected   = "player_reconnected"
	EventSettingsUpdated     = "settings_updated"
	EventVoteCast            = "vote_cast"
	EventCategorySelected    = "category_selected"
	EventPlayerAnswered      = "player_answered"
	EventDiceRollResult      = "dice_roll_result"
	EventDiceTie             = "dice_tie"
	EventRpsRoundResult      = "rps_round_result"
	EventBuzzWon             = "buzz_won"
	EventBuzzReveal          = "buzz_reveal"
	EventBuzzerAnswerResult  = "buzzer_answer_result"
	EventAnswerResult        = "answer_result"
	EventCollectiveListClaim = "collective_list_claim"
	EventCollectiveListTurn  = "collective_list_turn"
	EventPlayerEliminated    = "player_eliminated"
	EventFinalRankings       = "final_rankings"
	EventActionRejected      = "action_rejected"
	EventRoomClosing         = "room_closing"
)

// Rejection reason codes carried by action_rejected frames.
const (
	ReasonUnknownRoom     = "unknown_room"
	ReasonUnknownPlayer   = "unknown_player"
	ReasonWrongPhase      = "wrong_phase"
	ReasonNotEligible     = "not_eligible"
	ReasonAlreadyActed    = "already_acted"
	ReasonAlreadyBuzzed   = "already_buzzed"
	ReasonInvalidPayload  = "invalid_payload"
	ReasonInvalidSettings = "invalid_settings"
	ReasonRoomFull        = "room_full"
)

type PhaseChangedData struct {
	Phase      Phase    `json:"phase"`
	Round      int      `json:"round"`
	Question   int      `json:"question"`
	Rev        int64    `json:"rev"`
	TimerEndMs int64    `json:"timer_end_ms,omitempty"`
	Players    []Player `json:"players"`
	Payload    any      `json:"payload,omitempty"`
}

// WelcomeData is the first frame a connection receives. It carries the
// player's assigned id and a full room snapshot so late joiners and
// reconnects can render without waiting for the next broadcast.
type WelcomeData struct {
	PlayerId    string           `json:"player_id"`
	Reconnected bool             `json:"reconnected"`
	Room        PhaseChangedData `json:"room"`
}

type PlayerJoinedData struct {
	Player      Player `json:"player"`
	PlayerCount int    `json:"player_count"`
	CanStart    bool   `json:"can_start"`
}

type PlayerLeftData struct {
	PlayerId    string `json:"player_id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"player_count"`
	NewHostId   string `json:"new_host_id,omitempty"`
}

type PlayerConnData struct {
	PlayerId string `json:"player_id"`
	Name     string `json:"name"`
}

type SettingsUpdatedData struct {
	Settings Settings `json:"settings"`
}

type VoteCastData struct {
	PlayerId   string         `json:"player_id"`
	CategoryId string         `json:"category_id"`
	Counts     map[string]int `json:"counts"`
}

type CategorySelectedData struct {
	Category Category      `json:"category"`
	Mode     SelectionMode `json:"mode"`
	PickerId string        `json:"picker_id,omitempty"`
}

type DiceRollResultData struct {
	PlayerId string `json:"player_id"`
	Values   []int  `json:"values"`
	Sum      int    `json:"sum"`
	Round    int    `json:"round"`
}

type DiceTieData struct {
	TiedIds []string `json:"tied_ids"`
	Round   int      `json:"round"`
}

type RpsRoundResultData struct {
	Round    int                  `json:"round"`
	Choices  map[string]RpsChoice `json:"choices"`
	WinnerId string               `json:"winner_id,omitempty"`
	Wins     map[string]int       `json:"wins"`
}

type BuzzWonData struct {
	PlayerId    string `json:"player_id"`
	RevealedPct int    `json:"revealed_pct"`
}

type BuzzRevealData struct {
	QuestionIndex int    `json:"question_index"`
	RevealedPct   int    `json:"revealed_pct"`
	Text          string `json:"text"`
}

type BuzzerAnswerResultData struct {
	PlayerId      string          `json:"player_id"`
	Answer        string          `json:"answer"`
	Correct       bool            `json:"correct"`
	Breakdown     BuzzerBreakdown `json:"breakdown"`
	CorrectAnswer string          `json:"correct_answer,omitempty"`
}

type AnswerResultData struct {
	QuestionId string              `json:"question_id"`
	Results    []AnswerResultEntry `json:"results"`
}

type ListClaimData struct {
	ItemId    string `json:"item_id"`
	ItemName  string `json:"item_name"`
	PlayerId  string `json:"player_id"`
	Submitted string `json:"submitted"`
	Remaining int    `json:"remaining"`
}

type ListTurnData struct {
	PlayerId   string `json:"player_id"`
	DeadlineMs int64  `json:"deadline_ms"`
}

type PlayerEliminatedData struct {
	PlayerId string `json:"player_id"`
	Rank     int    `json:"rank"`
	Reason   string `json:"reason"`
}

type FinalRanking struct {
	Rank     int    `json:"rank"`
	PlayerId string `json:"player_id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Score    int    `json:"score"`
}

type FinalRankingsData struct {
	Rankings []FinalRanking `json:"rankings"`
}

type ActionRejectedData struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type RoomClosingData struct {
	Reason string `json:"reason"`
}

// ===== Score breakdowns =====

type ChoiceBreakdown struct {
	Base        int  `json:"base"`
	TimeBonus   int  `json:"time_bonus"`
	StreakBonus int  `json:"streak_bonus"`
	Total       int  `json:"total"`
	Correct     bool `json:"correct"`
	Streak      int  `json:"streak"`
}

type EstimationBreakdown struct {
	Accuracy     int     `json:"accuracy"`
	RankBonus    int     `json:"rank_bonus"`
	PerfectBonus int     `json:"perfect_bonus"`
	Total        int     `json:"total"`
	Rank         int     `json:"rank"`
	Deviation    float64 `json:"deviation"`
}

type BuzzerBreakdown struct {
	Base       int  `json:"base"`
	SpeedBonus int  `json:"speed_bonus"`
	Penalty    int  `json:"penalty"`
	Total      int  `json:"total"`
	Correct    bool `json:"correct"`
}

type ListBreakdown struct {
	ItemPoints     int `json:"item_points"`
	PlacementBonus int `json:"placement_bonus"`
	Total          int `json:"total"`
	ItemsClaimed   int `json:"items_claimed"`
	Rank           int `json:"rank"`
}

type AnswerResultEntry struct {
	PlayerId   string               `json:"player_id"`
	Name       string               `json:"name"`
	Answered   bool                 `json:"answered"`
	Choice     *ChoiceBreakdown     `json:"choice,omitempty"`
	Estimation *EstimationBreakdown `json:"estimation,omitempty"`

	// Echo of what the player submitted
	AnswerIndex int     `json:"answer_index"`
	Value       float64 `json:"value"`
}

// ===== Phase payloads =====

type LobbyPayload struct {
	Settings Settings `json:"settings"`
	CanStart bool     `json:"can_start"`
	HostId   string   `json:"host_id,omitempty"`
}

type AnnouncementPayload struct {
	Round       int           `json:"round"`
	TotalRounds int           `json:"total_rounds"`
	Mode        SelectionMode `json:"mode"`
}

type VotePayload struct {
	Candidates []Category     `json:"candidates"`
	Counts     map[string]int `json:"counts"`
	VotedIds   []string       `json:"voted_ids"`
}

type WheelPayload struct {
	Candidates []Category `json:"candidates"`
	// Outcome is decided here; the client wheel animation is cosmetic.
	WinningIndex int   `json:"winning_index"`
	SpinMs       int64 `json:"spin_ms"`
}

type PickPayload struct {
	Candidates []Category `json:"candidates"`
	PickerId   string     `json:"picker_id"`
	PickerName string     `json:"picker_name"`
}

type DicePayload struct {
	Round    int              `json:"round"`
	Eligible []string         `json:"eligible"`
	Rolled   map[string][]int `json:"rolled"`
	Sums     map[string]int   `json:"sums"`
}

type RpsPayload struct {
	Contestants []string       `json:"contestants"`
	Round       int            `json:"round"`
	Wins        map[string]int `json:"wins"`
	BestOf      int            `json:"best_of"`
}

type QuestionPayload struct {
	Question PublicQuestion `json:"question"`
	Index    int            `json:"index"`
	Total    int            `json:"total"`
	Category Category       `json:"category"`
}

type RevealPayload struct {
	Question     PublicQuestion      `json:"question"`
	CorrectIndex int                 `json:"correct_index"`
	CorrectValue float64             `json:"correct_value"`
	Answer       string              `json:"answer,omitempty"`
	Results      []AnswerResultEntry `json:"results"`
}

type Standing struct {
	Player     Player `json:"player"`
	Rank       int    `json:"rank"`
	RoundDelta int    `json:"round_delta"`
}

type ScoreboardPayload struct {
	Standings []Standing `json:"standings"`
	Round     int        `json:"round"`
	IsFinal   bool       `json:"is_final"`
}

type BonusAnnouncePayload struct {
	Game BonusGame `json:"game"`
}

type HotButtonPayload struct {
	Index       int            `json:"index"`
	Total       int            `json:"total"`
	RevealedPct int            `json:"revealed_pct"`
	Text        string         `json:"text"`
	HolderId    string         `json:"holder_id,omitempty"`
	AttemptedBy []string       `json:"attempted_by"`
	RoundScores map[string]int `json:"round_scores"`
}

type ClaimedItem struct {
	ItemId   string `json:"item_id"`
	Name     string `json:"name"`
	PlayerId string `json:"player_id"`
}

type ListPayload struct {
	Title      string         `json:"title"`
	TotalItems int            `json:"total_items"`
	Claimed    []ClaimedItem  `json:"claimed"`
	ActiveId   string         `json:"active_id"`
	Order      []string       `json:"order"`
	Claims     map[string]int `json:"claims"`
}

type BonusResultEntry struct {
	PlayerId     string `json:"player_id"`
	Name         string `json:"name"`
	Points       int    `json:"points"`
	Rank         int    `json:"rank,omitempty"`
	ItemsClaimed int    `json:"items_claimed,omitempty"`
}

type BonusResultPayload struct {
	Game    BonusGame          `json:"game"`
	Results []BonusResultEntry `json:"results"`
}

type FinalPayload struct {
	Rankings []FinalRanking `json:"rankings"`
}
