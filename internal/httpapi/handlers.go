package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/inseasoncup/cup-server/internal/cup"
	"github.com/inseasoncup/cup-server/internal/obslog"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// checkGame is the settlement trigger: every handled outcome (no-ops
// included) answers 200 with a message, failures answer 500.
func (s *Server) checkGame(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Tick(r.Context())
	if err != nil {
		obslog.L().Error("check_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) broadcast(w http.ResponseWriter, r *http.Request) {
	result, err := s.bcaster.BroadcastCurrentGame(r.Context())
	if err != nil {
		obslog.L().Error("broadcast_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Broadcast sent",
		"sent":    result.Sent,
		"pruned":  result.Pruned,
	})
}

func (s *Server) listPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.store.ListPlayers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) playerByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, err := s.store.GetPlayerByName(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type teamPatch struct {
	Team   string `json:"team"`
	Action string `json:"action"`
}

func (s *Server) patchTeams(w http.ResponseWriter, r *http.Request) {
	var body teamPatch
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	team := strings.ToUpper(strings.TrimSpace(body.Team))
	if team == "" {
		writeError(w, http.StatusBadRequest, "team is required")
		return
	}
	if !s.teams.Has(team) {
		writeError(w, http.StatusBadRequest, "unknown team "+team)
		return
	}

	playerID := chi.URLParam(r, "id")
	var (
		p   *cup.Player
		err error
	)
	switch body.Action {
	case "", "add":
		p, err = s.roster.AddTeam(r.Context(), playerID, team)
	case "remove":
		p, err = s.roster.RemoveTeam(r.Context(), playerID, team)
	default:
		writeError(w, http.StatusBadRequest, "action must be add or remove")
		return
	}
	if errors.Is(err, cup.ErrPlayerNotFound) {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) resetTeams(w http.ResponseWriter, r *http.Request) {
	if err := s.roster.ResetAllTeams(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) listGameRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListRecords(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type championResponse struct {
	Champion string `json:"champion"`
	GameID   *int64 `json:"gameID"`
}

// champion reports the current champion and refreshes the tracked game id
// from today's schedule. A schedule failure degrades to the stored id;
// reads never hard-fail on upstream trouble.
func (s *Server) champion(w http.ResponseWriter, r *http.Request) {
	opts, err := s.store.Options(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if opts.Champion == "" {
		writeError(w, http.StatusNotFound, "champion not set")
		return
	}

	gameID := opts.GameID
	today := s.resolver.CandidateDates()[0]
	if found, err := s.resolver.FindOnDate(r.Context(), opts.Champion, today); err != nil {
		obslog.L().Warn("champion_schedule_lookup_failed", zap.Error(err))
	} else {
		gameID = found
		if serr := s.store.SetGameID(r.Context(), gameID); serr != nil {
			obslog.L().Warn("champion_gameid_update_failed", zap.Error(serr))
		}
	}

	resp := championResponse{Champion: opts.Champion}
	if gameID != 0 {
		resp.GameID = &gameID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) gameID(w http.ResponseWriter, r *http.Request) {
	opts, err := s.store.Options(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var id *int64
	if opts.GameID != 0 {
		id = &opts.GameID
	}
	writeJSON(w, http.StatusOK, map[string]*int64{"gameID": id})
}
