// Package config reads server configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

type Config struct {
	Addr          string `env:"ADDR" envDefault:":8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// Empty means the embedded question set is served instead.
	DatabaseURL  string `env:"DATABASE_URL"`
	SeedDatabase bool   `env:"SEED_DATABASE" envDefault:"false"`

	// Optional CSV pack merged into the embedded set. Ignored when a
	// database is configured.
	QuestionPack string `env:"QUESTIONS_CSV"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	DefaultRounds            int `env:"DEFAULT_ROUNDS" envDefault:"5"`
	DefaultQuestionsPerRound int `env:"DEFAULT_QUESTIONS_PER_ROUND" envDefault:"3"`
	DefaultAnswerSeconds     int `env:"DEFAULT_ANSWER_SECONDS" envDefault:"20"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// GameSettings builds the room defaults with the configured overrides
// applied.
func (c Config) GameSettings() (quiz.Settings, error) {
	s := quiz.DefaultSettings()
	s.Rounds = c.DefaultRounds
	s.QuestionsPerRound = c.DefaultQuestionsPerRound
	s.AnswerSeconds = c.DefaultAnswerSeconds
	if err := s.Validate(); err != nil {
		return quiz.Settings{}, fmt.Errorf("default game settings: %w", err)
	}
	return s, nil
}
