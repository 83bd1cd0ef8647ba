// Package api exposes the engine over HTTP. Handlers stay thin: decode,
// delegate to the coordinator or seed manager, encode. Plaintext server
// seeds never appear in logs; only their hashes do.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fairdraw/engine/internal/gameconfig"
	"github.com/fairdraw/engine/internal/round"
	"github.com/fairdraw/engine/internal/seeds"
)

// EngineVersion tags every response so sealed rounds can be matched to the
// code that produced them.
const EngineVersion = "1.0.0"

// Server handles HTTP requests.
type Server struct {
	seeds  *seeds.Manager
	coord  *round.Coordinator
	tables *gameconfig.Tables
	log    *slog.Logger
}

// NewServer creates a new API server.
func NewServer(sm *seeds.Manager, coord *round.Coordinator, tables *gameconfig.Tables, log *slog.Logger) *Server {
	return &Server{
		seeds:  sm,
		coord:  coord,
		tables: tables,
		log:    log,
	}
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Heartbeat("/health"))

	r.Get("/version", s.handleVersion)
	r.Get("/games", s.handleListGames)
	r.Post("/seed/hash", s.handleSeedHash)

	r.Post("/sessions", s.handleBeginSession)
	r.Get("/sessions/{id}", s.handleGetSession)
	r.Post("/sessions/{id}/rotate", s.handleRotate)
	r.Get("/sessions/{id}/rounds", s.handleSessionRounds)

	r.Post("/bets", s.handlePlaceBet)
	r.Get("/rounds/{id}", s.handleGetRound)
	r.Post("/rounds/{id}/verify", s.handleVerifyRound)

	return r
}

// requestLogger is the structured replacement for chi's stock logger. It
// never touches request bodies, which may reference seed material.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
			"bytes", ww.BytesWritten(),
		)
	})
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps a domain error onto the error envelope.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, errType, field := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, ErrorResponse{
		Error:         err.Error(),
		Type:          errType,
		Field:         field,
		EngineVersion: EngineVersion,
	})
}
