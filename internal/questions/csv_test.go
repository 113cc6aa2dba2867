package questions

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

func writePack(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pack.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	return path
}

const samplePack = `# id, category id, category name, type, difficulty, text, options, correct index, correct value, unit, answer, aliases
f1,films,Films,choice,easy,Which film features HAL 9000?,2001: A Space Odyssey|Alien|Solaris,0,,,2001,A Space Odyssey
f2,films,Films,estimation,medium,In which year was the first Oscars ceremony held?,,,1929,year,,
`

func TestAddCSVMergesPack(t *testing.T) {
	s := NewStaticFrom(nil, nil, nil)

	n, err := s.AddCSV(writePack(t, samplePack))
	if err != nil {
		t.Fatalf("AddCSV() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("AddCSV() added %d questions, want 2", n)
	}

	cats, err := s.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(cats) != 1 || cats[0].Id != "films" || cats[0].Name != "Films" {
		t.Fatalf("categories = %+v, want the films category", cats)
	}

	q, ok := s.Lookup("f1")
	if !ok {
		t.Fatal("Lookup(f1) not found")
	}
	if q.Type != quiz.QuestionChoice || len(q.Options) != 3 || q.CorrectIndex != 0 {
		t.Errorf("choice question = %+v", q)
	}
	if q.Answer != "2001" || len(q.Aliases) != 1 || q.Aliases[0] != "A Space Odyssey" {
		t.Errorf("answer fields = %q %v", q.Answer, q.Aliases)
	}

	q, ok = s.Lookup("f2")
	if !ok {
		t.Fatal("Lookup(f2) not found")
	}
	if q.Type != quiz.QuestionEstimation || q.CorrectValue != 1929 || q.Unit != "year" {
		t.Errorf("estimation question = %+v", q)
	}

	qs, err := s.Draw(context.Background(), "films", 2, nil)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(qs) != 2 {
		t.Errorf("Draw() returned %d questions, want 2", len(qs))
	}
}

func TestAddCSVKeepsExistingCategoryName(t *testing.T) {
	s := NewStaticFrom([]quiz.Category{{Id: "films", Name: "Movie Night"}}, nil, nil)

	if _, err := s.AddCSV(writePack(t, samplePack)); err != nil {
		t.Fatalf("AddCSV() error = %v", err)
	}
	cats, err := s.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "Movie Night" {
		t.Fatalf("categories = %+v, want Movie Night kept", cats)
	}
}

func TestAddCSVRejectsDuplicateIds(t *testing.T) {
	s := NewStaticFrom(nil, nil, nil)
	path := writePack(t, samplePack)

	if _, err := s.AddCSV(path); err != nil {
		t.Fatalf("first AddCSV() error = %v", err)
	}
	n, err := s.AddCSV(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("second AddCSV() = %d, %v; want duplicate id error", n, err)
	}
}

func TestAddCSVRejectsBadRecords(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"short record", "x1,films,Films,choice,easy,Text"},
		{"unknown type", "x1,films,Films,truefalse,easy,Text?,,,,,,"},
		{"unknown difficulty", "x1,films,Films,choice,brutal,Text?,A|B,0,,,,"},
		{"single option", "x1,films,Films,choice,easy,Text?,A,0,,,,"},
		{"index out of range", "x1,films,Films,choice,easy,Text?,A|B,2,,,,"},
		{"bad value", "x1,films,Films,estimation,easy,Text?,,,soon,,,"},
		{"missing id", ",films,Films,choice,easy,Text?,A|B,0,,,,"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStaticFrom(nil, nil, nil)
			if n, err := s.AddCSV(writePack(t, tc.row+"\n")); err == nil {
				t.Fatalf("AddCSV() added %d questions, want error", n)
			}
		})
	}
}

func TestAddCSVMissingFile(t *testing.T) {
	s := NewStaticFrom(nil, nil, nil)
	if _, err := s.AddCSV(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("AddCSV() on a missing file should fail")
	}
}
