package game

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/broadcast"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

// Room holds one session. All fields are guarded by mu; every mutation
// runs inside Manager.withRoom, so actions and timer callbacks apply
// one at a time per room.
type Room struct {
	Code string
	mu   sync.Mutex

	players map[string]*quiz.Player
	order   []string // join order

	// departed keeps score records of players who left, so a rejoin with
	// the same identity inside the teardown grace gets them back.
	departed map[string]*quiz.Player

	settings quiz.Settings
	phase    quiz.Phase

	// rev increments whenever a new timed window opens (phase entry,
	// list turn, buzz window). Timer callbacks capture it at scheduling
	// time and no-op once it moved on.
	rev      int64
	timerEnd time.Time

	// Round flow
	round       int
	questionIdx int
	mode        quiz.SelectionMode
	candidates  []quiz.Category
	category    quiz.Category
	questions   []quiz.Question
	answers     map[string]answerEntry
	windowStart time.Time
	roundStart  map[string]int // score per player at round start
	started     bool
	closing     bool

	// Bonus flow. pendingBonus is decided when the scoreboard opens so
	// the snapshot can already say whether the game ends after it.
	bonusDone      bool
	pendingBonus   quiz.BonusGame
	bonusQuestions []quiz.Question
	bonusTopic     *quiz.ListTopic

	// contentErr records a failed content fetch; the state machine
	// checks it instead of blocking on I/O.
	contentErr error

	// Active mini-game or bonus-round state, nil outside those phases.
	sub subState

	// Kept for late joiners and resyncs during their phases.
	lastReveal *quiz.RevealPayload
	lastBonus  *quiz.BonusResultPayload

	bc        *broadcast.Broadcaster
	rng       *rand.Rand
	createdAt time.Time
}

type answerEntry struct {
	optionIdx int
	value     float64
	elapsed   time.Duration
}

// subState is the tagged union of per-phase engine state. Exactly one
// variant is active at a time.
type subState interface{ isSubState() }

type voteState struct {
	candidates []quiz.Category
	votes      map[string]string // playerID -> categoryID
	firstVotes []string          // categoryIDs in first-vote order, breaks ties
}

type wheelState struct {
	candidates []quiz.Category
	winningIdx int
}

// pickState is the timed pick window for a designated player: the
// round's loser, a dice-royale winner or an rps-duel winner.
type pickState struct {
	candidates []quiz.Category
	pickerId   string
	mode       quiz.SelectionMode
}

type diceState struct {
	round    int
	eligible map[string]bool
	rolls    map[string][]int
}

type rpsState struct {
	contestants [2]string
	round       int
	bestOf      int
	wins        map[string]int
	choices     map[string]quiz.RpsChoice
}

type hotButtonState struct {
	questions   []quiz.Question
	idx         int
	revealedPct int
	holderId    string
	attempted   map[string]bool
	roundScores map[string]int
}

type listState struct {
	topic     quiz.ListTopic
	claimed   map[string]string // itemID -> playerID
	order     []string          // players still in the turn rotation
	activeIdx int
	claims    map[string]int
	ranks     map[string]int
	turnEnd   time.Time
}

func (voteState) isSubState()      {}
func (wheelState) isSubState()     {}
func (pickState) isSubState()      {}
func (diceState) isSubState()      {}
func (rpsState) isSubState()       {}
func (hotButtonState) isSubState() {}
func (listState) isSubState()      {}

func newRoom(code string, settings quiz.Settings, rng *rand.Rand) *Room {
	return &Room{
		Code:       code,
		players:    make(map[string]*quiz.Player),
		departed:   make(map[string]*quiz.Player),
		settings:   settings,
		phase:      quiz.PhaseLobby,
		answers:    make(map[string]answerEntry),
		roundStart: make(map[string]int),
		bc:         broadcast.NewBroadcaster(),
		rng:        rng,
		createdAt:  time.Now(),
	}
}

func (r *Room) player(id string) *quiz.Player {
	return r.players[id]
}

func (r *Room) count() int {
	return len(r.players)
}

func (r *Room) connectedCount() int {
	n := 0
	for _, p := range r.players {
		if p.IsConnected {
			n++
		}
	}
	return n
}

func (r *Room) canStart() bool {
	return !r.started && r.count() >= quiz.MinPlayersToStart
}

// publicPlayers lists players in join order with no hidden state.
func (r *Room) publicPlayers() []quiz.Player {
	out := make([]quiz.Player, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.players[id]; ok {
			out = append(out, p.ToPublic())
		}
	}
	return out
}

func (r *Room) snapshotWith(payload any) quiz.PhaseChangedData {
	data := quiz.PhaseChangedData{
		Phase:    r.phase,
		Round:    r.round,
		Question: r.questionIdx + 1,
		Rev:      r.rev,
		Players:  r.publicPlayers(),
		Payload:  payload,
	}
	if !r.timerEnd.IsZero() {
		data.TimerEndMs = r.timerEnd.UnixMilli()
	}
	if len(r.questions) == 0 {
		data.Question = 0
	}
	return data
}

func (r *Room) publish(eventType string, data any) {
	r.bc.Publish(quiz.NewEvent(eventType, data))
}

func (r *Room) publishTo(playerID, eventType string, data any) {
	r.bc.PublishTo(playerID, quiz.NewEvent(eventType, data))
}

func (r *Room) resetActed() {
	for _, p := range r.players {
		p.ResetQuestionState()
	}
	r.answers = make(map[string]answerEntry)
}

// everyoneActed treats disconnected players as present: the window only
// completes early once every seat has acted.
func (r *Room) everyoneActed() bool {
	for _, p := range r.players {
		if !p.HasActed {
			return false
		}
	}
	return len(r.players) > 0
}

// byScoreAscending returns player ids ordered worst score first,
// earlier join breaking ties.
func (r *Room) byScoreAscending() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	sort.SliceStable(ids, func(i, j int) bool {
		pi, pj := r.players[ids[i]], r.players[ids[j]]
		if pi.Score != pj.Score {
			return pi.Score < pj.Score
		}
		return pi.JoinedAt.Before(pj.JoinedAt)
	})
	return ids
}

// standings ranks players for the scoreboard, best score first with
// join order breaking ties.
func (r *Room) standings() []quiz.Standing {
	players := r.publicPlayers()
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	out := make([]quiz.Standing, 0, len(players))
	for i, p := range players {
		out = append(out, quiz.Standing{
			Player:     p,
			Rank:       i + 1,
			RoundDelta: p.Score - r.roundStart[p.Id],
		})
	}
	return out
}

func (r *Room) hostId() string {
	for _, id := range r.order {
		if p := r.players[id]; p != nil && p.IsHost {
			return id
		}
	}
	return ""
}

// removePlayer drops the player from the roster, archives their score
// record and promotes the next oldest member to host when needed.
// Returns the new host id if the host changed.
func (r *Room) removePlayer(id string) string {
	p := r.players[id]
	if p == nil {
		return ""
	}
	wasHost := p.IsHost
	delete(r.players, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	delete(r.answers, id)
	delete(r.roundStart, id)

	p.IsHost = false
	p.IsConnected = false
	p.HasActed = false
	r.departed[id] = p

	if wasHost && len(r.order) > 0 {
		next := r.players[r.order[0]]
		next.IsHost = true
		return next.Id
	}
	return ""
}

// resetForRematch clears scores and round progress, keeping the roster.
func (r *Room) resetForRematch() {
	for _, p := range r.players {
		p.Score = 0
		p.Streak = 0
		p.HasActed = false
	}
	r.departed = make(map[string]*quiz.Player)
	r.round = 0
	r.questionIdx = 0
	r.mode = ""
	r.candidates = nil
	r.category = quiz.Category{}
	r.questions = nil
	r.answers = make(map[string]answerEntry)
	r.roundStart = make(map[string]int)
	r.bonusDone = false
	r.pendingBonus = ""
	r.bonusQuestions = nil
	r.bonusTopic = nil
	r.contentErr = nil
	r.sub = nil
	r.lastReveal = nil
	r.lastBonus = nil
	r.started = false
}

// restoreDeparted re-seats an archived player, keeping score and streak.
func (r *Room) restoreDeparted(id string) *quiz.Player {
	p := r.departed[id]
	if p == nil {
		return nil
	}
	delete(r.departed, id)
	p.IsConnected = true
	p.IsHost = len(r.players) == 0
	r.players[id] = p
	r.order = append(r.order, id)
	if r.started {
		r.roundStart[id] = p.Score
	}
	return p
}
