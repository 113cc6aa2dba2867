package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/config"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/game"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/questions"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	settings, err := cfg.GameSettings()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid default settings")
	}

	var (
		src questions.Source
		db  server.Pinger
	)
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := questions.NewPostgres(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("connect database")
		}
		defer pg.Close()

		if cfg.SeedDatabase {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := pg.Migrate(ctx)
			if err == nil {
				err = pg.ImportSeed(ctx)
			}
			cancel()
			if err != nil {
				log.Fatal().Err(err).Msg("seed database")
			}
			log.Info().Msg("database migrated and seeded")
		}

		src, db = pg, pg
		log.Info().Msg("serving questions from postgres")
	} else {
		st, err := questions.NewStatic()
		if err != nil {
			log.Fatal().Err(err).Msg("load embedded questions")
		}
		if cfg.QuestionPack != "" {
			n, err := st.AddCSV(cfg.QuestionPack)
			if err != nil {
				log.Fatal().Err(err).Msg("load question pack")
			}
			log.Info().Int("questions", n).Str("path", cfg.QuestionPack).Msg("merged question pack")
		}
		src = st
		log.Info().Msg("serving embedded question set")
	}

	manager := game.NewManager(src, log, settings)
	defer manager.Shutdown()

	srv := server.New(cfg, manager, db, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var w io.Writer = os.Stdout
	if cfg.LogPretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
