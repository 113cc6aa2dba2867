package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/game"
	"github.com/Fizzyy89/nerdquiz-next-sub001/internal/quiz"
)

// Response is the JSON envelope for the plain HTTP endpoints. The
// timing fields let clients surface server latency.
type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	r.HandleFunc("/", s.healthHandler).Methods(http.MethodGet)

	r.HandleFunc("/rooms", s.createRoom).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/rooms/joinable", s.getJoinableRoom).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{code}/qr", s.roomQR).Methods(http.MethodGet)

	r.HandleFunc("/ws/{code}", s.handleWebSocket)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS Headers
		w.Header().Set("Access-Control-Allow-Origin", "*") // Wildcard allows all origins
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false") // Credentials not allowed with wildcard origins

		// If it's a websocket upgrade, skip further CORS checks
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"service": "nerdquiz",
		"status":  "ok",
	}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
		} else {
			resp["database"] = "ok"
		}
	}

	jsonResp, err := json.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal health response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(jsonResp)
}

type createdRoom struct {
	RoomCode string        `json:"room_code"`
	JoinUrl  string        `json:"join_url"`
	Room     game.RoomInfo `json:"room"`
}

// createRoom opens a lobby. An optional JSON body carries settings
// overrides in patch form.
func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	var patch *quiz.SettingsPatch
	var body quiz.SettingsPatch
	switch err := json.NewDecoder(r.Body).Decode(&body); {
	case err == nil:
		patch = &body
	case errors.Is(err, io.EOF):
		// no body, defaults apply
	default:
		s.respond(w, Response{
			StatusCode:    http.StatusBadRequest,
			RespStartTime: startTime,
			Data:          "invalid settings payload",
		})
		return
	}

	info, err := s.manager.CreateRoom(patch)
	if err != nil {
		s.log.Warn().Err(err).Msg("room creation rejected")
		s.respond(w, Response{
			StatusCode:    http.StatusBadRequest,
			RespStartTime: startTime,
			Data:          err.Error(),
		})
		return
	}

	s.respond(w, Response{
		StatusCode:    http.StatusCreated,
		RespStartTime: startTime,
		Data: createdRoom{
			RoomCode: info.Code,
			JoinUrl:  s.joinURL(info.Code),
			Room:     info,
		},
	})
}

// getJoinableRoom returns the first lobby with a free seat.
func (s *Server) getJoinableRoom(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	joinable := s.manager.Joinable()

	var resp Response
	if len(joinable) > 0 {
		resp = Response{
			StatusCode:    http.StatusOK,
			RespStartTime: startTime,
			Data:          joinable[0],
		}
	} else {
		resp = Response{
			StatusCode:    http.StatusNotFound,
			RespStartTime: startTime,
			Data:          "No joinable rooms available",
		}
	}

	s.respond(w, resp)
}

// roomQR renders the room's join link as a PNG QR code.
func (s *Server) roomQR(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if _, err := s.manager.Info(code); err != nil {
		http.NotFound(w, r)
		return
	}

	png, err := qrcode.Encode(s.joinURL(code), qrcode.Medium, 256)
	if err != nil {
		s.log.Error().Err(err).Str("room", code).Msg("qr encode failed")
		http.Error(w, "qr encoding failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) joinURL(code string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/join/" + code
}

func (s *Server) respond(w http.ResponseWriter, resp Response) {
	// Calculate response times
	endTime := time.Now().UnixMilli()
	resp.RespEndTime = endTime
	resp.NetRespTime = endTime - resp.RespStartTime

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}
