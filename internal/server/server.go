// Package server exposes the HTTP and websocket surface around the
// game manager.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/config"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/game"
)

// Pinger reports backing-store health. Nil when the embedded question
// set is served.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg     config.Config
	manager *game.Manager
	db      Pinger
	log     zerolog.Logger

	httpSrv *http.Server
}

func New(cfg config.Config, manager *game.Manager, db Pinger, log zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		manager: manager,
		db:      db,
		log:     log.With().Str("component", "server").Logger(),
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.cfg.Addr).Msg("listening")
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
