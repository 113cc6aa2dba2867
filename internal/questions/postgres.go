package questions

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

//go:embed schema.sql
var schemaSQL string

const questionColumns = `id, category_id, type, difficulty, text,
	options, correct_index, correct_value, unit, answer, aliases`

// Postgres reads content from the question database. All queries are
// read-only; content administration happens elsewhere.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect question db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping question db: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Migrate creates the content tables when they are missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply question schema: %w", err)
	}
	return nil
}

// ImportSeed loads the embedded seed set, skipping rows that already
// exist. Useful for bootstrapping a fresh database.
func (p *Postgres) ImportSeed(ctx context.Context) error {
	var seed seedFile
	if err := json.Unmarshal(seedData, &seed); err != nil {
		return fmt.Errorf("parse embedded seed: %w", err)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed import: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range seed.Categories {
		if _, err := tx.Exec(ctx,
			`INSERT INTO categories (id, name) VALUES ($1, $2)
			 ON CONFLICT (id) DO NOTHING`,
			c.Id, c.Name); err != nil {
			return fmt.Errorf("seed category %s: %w", c.Id, err)
		}
	}
	for _, q := range seed.Questions {
		if _, err := tx.Exec(ctx,
			`INSERT INTO questions (`+questionColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (id) DO NOTHING`,
			q.Id, q.CategoryId, q.Type, q.Difficulty, q.Text,
			textArray(q.Options), q.CorrectIndex, q.CorrectValue,
			q.Unit, q.Answer, textArray(q.Aliases)); err != nil {
			return fmt.Errorf("seed question %s: %w", q.Id, err)
		}
	}
	for _, topic := range seed.Topics {
		if _, err := tx.Exec(ctx,
			`INSERT INTO list_topics (id, title) VALUES ($1, $2)
			 ON CONFLICT (id) DO NOTHING`,
			topic.Id, topic.Title); err != nil {
			return fmt.Errorf("seed topic %s: %w", topic.Id, err)
		}
		for _, item := range topic.Items {
			if _, err := tx.Exec(ctx,
				`INSERT INTO list_items (id, topic_id, name, aliases)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (id) DO NOTHING`,
				item.Id, topic.Id, item.Name, textArray(item.Aliases)); err != nil {
				return fmt.Errorf("seed list item %s: %w", item.Id, err)
			}
		}
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Categories(ctx context.Context) ([]quiz.Category, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []quiz.Category
	for rows.Next() {
		var c quiz.Category
		if err := rows.Scan(&c.Id, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) Draw(ctx context.Context, categoryID string, count int, mix quiz.DifficultyMix) ([]quiz.Question, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, categoryID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check category %s: %w", categoryID, err)
	}
	if !exists {
		return nil, ErrUnknownCategory
	}

	drawn := make([]quiz.Question, 0, count)
	drawnIds := []string{}

	for _, d := range []quiz.Difficulty{quiz.DifficultyEasy, quiz.DifficultyMedium, quiz.DifficultyHard} {
		want := mix[d]
		if want == 0 || len(drawn) == count {
			continue
		}
		if want > count-len(drawn) {
			want = count - len(drawn)
		}
		part, err := p.queryQuestions(ctx,
			`SELECT `+questionColumns+` FROM questions
			 WHERE category_id = $1 AND difficulty = $2 AND NOT (id = ANY($3))
			 ORDER BY random() LIMIT $4`,
			categoryID, d, drawnIds, want)
		if err != nil {
			return nil, err
		}
		for _, q := range part {
			drawn = append(drawn, q)
			drawnIds = append(drawnIds, q.Id)
		}
	}

	if len(drawn) < count {
		part, err := p.queryQuestions(ctx,
			`SELECT `+questionColumns+` FROM questions
			 WHERE category_id = $1 AND NOT (id = ANY($2))
			 ORDER BY random() LIMIT $3`,
			categoryID, drawnIds, count-len(drawn))
		if err != nil {
			return nil, err
		}
		drawn = append(drawn, part...)
	}

	if len(drawn) == 0 {
		return nil, ErrNoQuestions
	}
	return drawn, nil
}

func (p *Postgres) DrawBuzzer(ctx context.Context, count int) ([]quiz.Question, error) {
	out, err := p.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE answer <> '' ORDER BY random() LIMIT $1`, count)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoQuestions
	}
	return out, nil
}

func (p *Postgres) DrawList(ctx context.Context) (quiz.ListTopic, error) {
	var topic quiz.ListTopic
	err := p.pool.QueryRow(ctx,
		`SELECT id, title FROM list_topics ORDER BY random() LIMIT 1`).
		Scan(&topic.Id, &topic.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return quiz.ListTopic{}, ErrNoTopics
	}
	if err != nil {
		return quiz.ListTopic{}, fmt.Errorf("draw list topic: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, name, aliases FROM list_items WHERE topic_id = $1 ORDER BY id`,
		topic.Id)
	if err != nil {
		return quiz.ListTopic{}, fmt.Errorf("query list items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item quiz.ListItem
		if err := rows.Scan(&item.Id, &item.Name, &item.Aliases); err != nil {
			return quiz.ListTopic{}, fmt.Errorf("scan list item: %w", err)
		}
		topic.Items = append(topic.Items, item)
	}
	return topic, rows.Err()
}

func (p *Postgres) queryQuestions(ctx context.Context, sql string, args ...any) ([]quiz.Question, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []quiz.Question
	for rows.Next() {
		var q quiz.Question
		if err := rows.Scan(&q.Id, &q.CategoryId, &q.Type, &q.Difficulty, &q.Text,
			&q.Options, &q.CorrectIndex, &q.CorrectValue, &q.Unit, &q.Answer, &q.Aliases); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func textArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
