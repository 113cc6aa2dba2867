package questions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

// Question pack record layout: id, category id, category name, type,
// difficulty, text, options, correct index, correct value, unit,
// answer, aliases. Options and aliases are pipe separated, lines
// starting with # are skipped.
const packColumns = 12

// AddCSV merges a question pack file into the set. Categories are
// created on first sight, an already known category keeps its name.
// Returns the number of questions added.
func (s *Static) AddCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open question pack: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = packColumns

	added := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return added, nil
		}
		if err != nil {
			return added, fmt.Errorf("parse question pack %s: %w", path, err)
		}
		q, name, err := questionFromRecord(rec)
		if err != nil {
			return added, fmt.Errorf("question pack %s, record %d: %w", path, added+1, err)
		}
		if _, ok := s.byID[q.Id]; ok {
			return added, fmt.Errorf("question pack %s: duplicate question id %q", path, q.Id)
		}
		s.ensureCategory(q.CategoryId, name)
		s.byCategory[q.CategoryId] = append(s.byCategory[q.CategoryId], q)
		s.byID[q.Id] = q
		added++
	}
}

func questionFromRecord(rec []string) (quiz.Question, string, error) {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	q := quiz.Question{
		Id:         rec[0],
		CategoryId: rec[1],
		Type:       quiz.QuestionType(rec[3]),
		Difficulty: quiz.Difficulty(rec[4]),
		Text:       rec[5],
		Unit:       rec[9],
		Answer:     rec[10],
		Aliases:    splitPacked(rec[11]),
	}
	if q.Id == "" || q.CategoryId == "" || q.Text == "" {
		return quiz.Question{}, "", errors.New("id, category id and text are required")
	}
	switch q.Difficulty {
	case quiz.DifficultyEasy, quiz.DifficultyMedium, quiz.DifficultyHard:
	default:
		return quiz.Question{}, "", fmt.Errorf("unknown difficulty %q", rec[4])
	}

	switch q.Type {
	case quiz.QuestionChoice:
		q.Options = splitPacked(rec[6])
		if len(q.Options) < 2 {
			return quiz.Question{}, "", errors.New("choice question needs at least two options")
		}
		idx, err := strconv.Atoi(rec[7])
		if err != nil || idx < 0 || idx >= len(q.Options) {
			return quiz.Question{}, "", fmt.Errorf("correct index %q out of range", rec[7])
		}
		q.CorrectIndex = idx
	case quiz.QuestionEstimation:
		v, err := strconv.ParseFloat(rec[8], 64)
		if err != nil {
			return quiz.Question{}, "", fmt.Errorf("correct value %q: %w", rec[8], err)
		}
		q.CorrectValue = v
	default:
		return quiz.Question{}, "", fmt.Errorf("unknown question type %q", rec[3])
	}
	return q, rec[2], nil
}

func (s *Static) ensureCategory(id, name string) {
	for _, c := range s.categories {
		if c.Id == id {
			return
		}
	}
	if name == "" {
		name = id
	}
	s.categories = append(s.categories, quiz.Category{Id: id, Name: name})
}

func splitPacked(packed string) []string {
	if packed == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(packed, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
