// Package questions supplies the trivia content: categories, question
// draws and list-contest topics. The engine only sees the Source
// interface; the static implementation carries an embedded seed set and
// the postgres one reads from the admin database.
package questions

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrNoQuestions     = errors.New("no questions available")
	ErrNoTopics        = errors.New("no list topics available")
)

type Source interface {
	Categories(ctx context.Context) ([]quiz.Category, error)
	// Draw returns up to count questions from the category, preferring
	// the difficulty mix and never repeating a question within one draw.
	Draw(ctx context.Context, categoryID string, count int, mix quiz.DifficultyMix) ([]quiz.Question, error)
	// DrawBuzzer returns count questions with a free-text answer from
	// any category.
	DrawBuzzer(ctx context.Context, count int) ([]quiz.Question, error)
	DrawList(ctx context.Context) (quiz.ListTopic, error)
}

//go:embed seed.json
var seedData []byte

type seedFile struct {
	Categories []quiz.Category  `json:"categories"`
	Questions  []quiz.Question  `json:"questions"`
	Topics     []quiz.ListTopic `json:"topics"`
}

// Static serves the embedded seed set from memory.
type Static struct {
	categories []quiz.Category
	byCategory map[string][]quiz.Question
	byID       map[string]quiz.Question
	topics     []quiz.ListTopic
}

func NewStatic() (*Static, error) {
	var seed seedFile
	if err := json.Unmarshal(seedData, &seed); err != nil {
		return nil, fmt.Errorf("parse embedded seed: %w", err)
	}
	return newStaticFrom(seed), nil
}

// NewStaticFrom builds a source from explicit content, used by tests.
func NewStaticFrom(categories []quiz.Category, qs []quiz.Question, topics []quiz.ListTopic) *Static {
	return newStaticFrom(seedFile{Categories: categories, Questions: qs, Topics: topics})
}

func newStaticFrom(seed seedFile) *Static {
	s := &Static{
		categories: seed.Categories,
		byCategory: make(map[string][]quiz.Question),
		byID:       make(map[string]quiz.Question),
		topics:     seed.Topics,
	}
	for _, q := range seed.Questions {
		s.byCategory[q.CategoryId] = append(s.byCategory[q.CategoryId], q)
		s.byID[q.Id] = q
	}
	return s
}

// Lookup returns the full question, answers included. The bot simulator
// uses it as its knowledge base.
func (s *Static) Lookup(id string) (quiz.Question, bool) {
	q, ok := s.byID[id]
	return q, ok
}

// MatchPrefix finds the question whose text starts with prefix. It
// reports false when no question matches or the prefix is still
// ambiguous between several.
func (s *Static) MatchPrefix(prefix string) (quiz.Question, bool) {
	if prefix == "" {
		return quiz.Question{}, false
	}
	var found quiz.Question
	matches := 0
	for _, q := range s.byID {
		if strings.HasPrefix(q.Text, prefix) {
			found = q
			matches++
			if matches > 1 {
				return quiz.Question{}, false
			}
		}
	}
	return found, matches == 1
}

// TopicByTitle resolves a list topic from the title shown to players.
func (s *Static) TopicByTitle(title string) (quiz.ListTopic, bool) {
	for _, t := range s.topics {
		if t.Title == title {
			return t, true
		}
	}
	return quiz.ListTopic{}, false
}

func (s *Static) Categories(ctx context.Context) ([]quiz.Category, error) {
	out := make([]quiz.Category, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

func (s *Static) Draw(ctx context.Context, categoryID string, count int, mix quiz.DifficultyMix) ([]quiz.Question, error) {
	pool, ok := s.byCategory[categoryID]
	if !ok {
		return nil, ErrUnknownCategory
	}
	if len(pool) == 0 {
		return nil, ErrNoQuestions
	}

	byBand := make(map[quiz.Difficulty][]quiz.Question)
	for _, q := range pool {
		byBand[q.Difficulty] = append(byBand[q.Difficulty], q)
	}
	for _, band := range byBand {
		rand.Shuffle(len(band), func(i, j int) { band[i], band[j] = band[j], band[i] })
	}

	drawn := make([]quiz.Question, 0, count)
	taken := make(map[string]bool)

	for _, d := range []quiz.Difficulty{quiz.DifficultyEasy, quiz.DifficultyMedium, quiz.DifficultyHard} {
		want := mix[d]
		for _, q := range byBand[d] {
			if want == 0 || len(drawn) == count {
				break
			}
			drawn = append(drawn, q)
			taken[q.Id] = true
			want--
		}
	}

	// Top up from the whole category when the mix ran dry.
	if len(drawn) < count {
		rest := make([]quiz.Question, 0, len(pool))
		for _, q := range pool {
			if !taken[q.Id] {
				rest = append(rest, q)
			}
		}
		rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
		for _, q := range rest {
			if len(drawn) == count {
				break
			}
			drawn = append(drawn, q)
		}
	}
	return drawn, nil
}

func (s *Static) DrawBuzzer(ctx context.Context, count int) ([]quiz.Question, error) {
	pool := make([]quiz.Question, 0)
	for _, qs := range s.byCategory {
		for _, q := range qs {
			if q.Answer != "" {
				pool = append(pool, q)
			}
		}
	}
	if len(pool) == 0 {
		return nil, ErrNoQuestions
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if count > len(pool) {
		count = len(pool)
	}
	return pool[:count], nil
}

func (s *Static) DrawList(ctx context.Context) (quiz.ListTopic, error) {
	if len(s.topics) == 0 {
		return quiz.ListTopic{}, ErrNoTopics
	}
	return s.topics[rand.Intn(len(s.topics))], nil
}
