package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}

	settings, err := cfg.GameSettings()
	if err != nil {
		t.Fatalf("GameSettings() error = %v", err)
	}
	if settings.Rounds != 5 || settings.QuestionsPerRound != 3 {
		t.Errorf("default settings = %d rounds / %d questions, want 5/3",
			settings.Rounds, settings.QuestionsPerRound)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("DEFAULT_ROUNDS", "7")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":9999")
	}
	if !cfg.LogPretty {
		t.Error("LogPretty = false, want true")
	}

	settings, err := cfg.GameSettings()
	if err != nil {
		t.Fatalf("GameSettings() error = %v", err)
	}
	if settings.Rounds != 7 {
		t.Errorf("Rounds = %d, want 7", settings.Rounds)
	}
}

func TestLoadRejectsInvalidDefaults(t *testing.T) {
	t.Setenv("DEFAULT_ROUNDS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := cfg.GameSettings(); err == nil {
		t.Error("GameSettings() with zero rounds: error = nil, want validation error")
	}
}
