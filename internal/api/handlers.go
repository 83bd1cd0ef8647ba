package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fairdraw/engine/internal/engine"
	"github.com/fairdraw/engine/internal/games"
	"github.com/fairdraw/engine/internal/round"
	"github.com/fairdraw/engine/internal/verify"
)

type beginSessionRequest struct {
	PlayerID   string `json:"player_id"`
	ClientSeed string `json:"client_seed"`
}

func (s *Server) handleBeginSession(w http.ResponseWriter, r *http.Request) {
	var req beginSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, engine.Validationf("body", "invalid JSON: %v", err))
		return
	}

	info, err := s.seeds.BeginSession(r.Context(), req.PlayerID, req.ClientSeed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.seeds.Info(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

type rotateRequest struct {
	ClientSeed string `json:"client_seed"`
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	var req rotateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, engine.Validationf("body", "invalid JSON: %v", err))
			return
		}
	}

	rot, err := s.seeds.Rotate(r.Context(), chi.URLParam(r, "id"), req.ClientSeed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rot)
}

func (s *Server) handleSessionRounds(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	recs, err := s.coord.History(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"rounds": recs})
}

func (s *Server) handlePlaceBet(w http.ResponseWriter, r *http.Request) {
	var req round.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, engine.Validationf("body", "invalid JSON: %v", err))
		return
	}

	res, err := s.coord.PlaceBet(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	rec, err := s.coord.Round(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

type verifyRequest struct {
	ServerSeed string `json:"server_seed"`
}

// handleVerifyRound replays a sealed round. The caller either supplies the
// revealed server seed or, once the round's session has rotated, the engine
// fills it in from the session record.
func (s *Server) handleVerifyRound(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, engine.Validationf("body", "invalid JSON: %v", err))
			return
		}
	}

	rec, err := s.coord.Round(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	serverSeed := req.ServerSeed
	if serverSeed == "" {
		info, err := s.seeds.Info(r.Context(), rec.SessionID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if !info.Revealed {
			s.writeError(w, &engine.SeedStateError{
				SessionID: rec.SessionID,
				Reason:    "server seed not yet revealed; rotate the session or supply the seed",
			})
			return
		}
		serverSeed = info.ServerSeed
	}

	report := verify.Verify(rec, serverSeed, s.tables)
	s.writeJSON(w, http.StatusOK, report)
}

type seedHashRequest struct {
	ServerSeed string `json:"server_seed"`
}

// handleSeedHash computes the commitment hash for a seed, so third parties
// can check a revealed seed against a published hash.
func (s *Server) handleSeedHash(w http.ResponseWriter, r *http.Request) {
	var req seedHashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, engine.Validationf("body", "invalid JSON: %v", err))
		return
	}
	if req.ServerSeed == "" {
		s.writeError(w, engine.Validationf("server_seed", "must not be empty"))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"server_seed_hash": engine.SeedHash(req.ServerSeed),
	})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"games": games.All()})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"engine_version": EngineVersion,
		"config_version": s.tables.Version,
	})
}
