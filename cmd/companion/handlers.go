package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pefman/w40k-companion/internal/advisor"
	"github.com/pefman/w40k-companion/internal/calc"
	"github.com/pefman/w40k-companion/internal/models"
	"github.com/pefman/w40k-companion/internal/session"
	"github.com/pefman/w40k-companion/internal/stats"
)

// ========================= HTTP Handlers =========================

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps store errors onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrUnitNotFound):
		code = http.StatusNotFound
	case errors.Is(err, session.ErrSessionEnded):
		code = http.StatusConflict
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// respondSession answers a mutation with the updated session snapshot and
// fans it out over the websocket feed.
func (s *server) respondSession(w http.ResponseWriter, sessionID string) {
	snap, err := s.store.Snapshot(sessionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.hub.broadcast(sessionID, models.WsMsg{Type: "state", Data: snap})
	writeJSON(w, http.StatusOK, snap)
}

// ----------------- datasheets -----------------

func (s *server) handleFactions(w http.ResponseWriter, r *http.Request) {
	fs, err := s.sheets.Factions(r.Context())
	if err != nil {
		s.log.Error("factions fetch failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

func (s *server) handleDatasheets(w http.ResponseWriter, r *http.Request) {
	faction := mux.Vars(r)["faction"]
	ds, err := s.sheets.Datasheets(r.Context(), faction)
	if err != nil {
		s.log.Error("datasheets fetch failed", zap.String("faction", faction), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// ----------------- sessions -----------------

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mission    string `json:"mission"`
		Objectives int    `json:"objectives"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &body) {
		return
	}
	sess := s.store.Create(body.Mission, body.Objectives)
	snap, _ := s.store.Snapshot(sess.ID)
	writeJSON(w, http.StatusCreated, snap)
}

func (s *server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(mux.Vars(r)["sessionId"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionId"]
	if err := s.store.End(id); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, id)
}

func (s *server) handleAdvanceTurn(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionId"]
	if err := s.store.AdvanceTurn(id); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, id)
}

func (s *server) handleObjective(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Control models.ObjectiveControl `json:"control"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.store.SetObjective(vars["sessionId"], vars["marker"], body.Control); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

// ----------------- sides -----------------

func sideVar(r *http.Request) models.Side {
	return models.Side(strings.ToLower(mux.Vars(r)["side"]))
}

func (s *server) handleLoadArmy(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Faction string   `json:"faction"`
		Units   []string `json:"units"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	sheets := make([]models.Datasheet, 0, len(body.Units))
	for _, name := range body.Units {
		ds, err := s.sheets.Datasheet(r.Context(), body.Faction, name)
		if err != nil {
			s.log.Error("datasheet lookup failed",
				zap.String("faction", body.Faction), zap.String("unit", name), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		sheets = append(sheets, ds)
	}
	if err := s.store.LoadArmy(vars["sessionId"], sideVar(r), body.Faction, sheets); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

func (s *server) handleCP(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Delta int `json:"delta"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.store.AdjustCP(vars["sessionId"], sideVar(r), body.Delta); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

func (s *server) handleVP(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Primary   int `json:"primary"`
		Secondary int `json:"secondary"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.store.AddVP(vars["sessionId"], sideVar(r), body.Primary, body.Secondary); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

func (s *server) handleDrawSecondary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Name   string `json:"name"`
		Points int    `json:"points"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.store.DrawSecondary(vars["sessionId"], sideVar(r), body.Name, body.Points); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

func (s *server) handleScoreSecondary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.store.ScoreSecondary(vars["sessionId"], sideVar(r), vars["name"]); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

func (s *server) handleDiscardSecondary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.store.DiscardSecondary(vars["sessionId"], sideVar(r), vars["name"]); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

func (s *server) handleStratagems(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	phase := r.URL.Query().Get("phase")
	avail, err := s.store.AvailableStratagems(vars["sessionId"], sideVar(r), phase)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

func (s *server) handleUseStratagem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	phase := r.URL.Query().Get("phase")
	if err := s.store.UseStratagem(vars["sessionId"], sideVar(r), vars["name"], phase); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

// ----------------- units -----------------

func (s *server) handlePatchUnit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var patch session.UnitPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := s.store.PatchUnit(vars["sessionId"], vars["unitId"], patch); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

func (s *server) handleUnitDamage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Damage int `json:"damage"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.store.ApplyDamage(vars["sessionId"], vars["unitId"], body.Damage); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

func (s *server) handleSyncUnit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.store.SyncUnit(vars["sessionId"], vars["unitId"]); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

func modelIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid model index"})
		return 0, false
	}
	return idx, true
}

func (s *server) handleModelWounds(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idx, ok := modelIndex(w, r)
	if !ok {
		return
	}
	var body struct {
		Delta int `json:"delta"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.store.UpdateModelWounds(vars["sessionId"], vars["unitId"], idx, body.Delta); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

func (s *server) handleModelDestroy(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idx, ok := modelIndex(w, r)
	if !ok {
		return
	}
	if err := s.store.DestroyModel(vars["sessionId"], vars["unitId"], idx); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

func (s *server) handleModelMaxWounds(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idx, ok := modelIndex(w, r)
	if !ok {
		return
	}
	var body struct {
		Delta int `json:"delta"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.store.AdjustModelMaxWounds(vars["sessionId"], vars["unitId"], idx, body.Delta); err != nil {
		writeErr(w, err)
		return
	}
	s.respondSession(w, vars["sessionId"])
}

// ----------------- calculator & stats -----------------

func (s *server) handleCalc(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Attacker models.Datasheet `json:"attacker"`
		Defender models.Datasheet `json:"defender"`
		Weapon   models.Weapon    `json:"weapon"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Weapon.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weapon is required"})
		return
	}
	res := calc.Resolve(body.Attacker, body.Defender, body.Weapon, calc.NewRNG())
	s.tracker.MaybeTopDamage(res.DamageTotal,
		body.Attacker.Name, body.Attacker.Faction, body.Attacker.Name,
		body.Defender.Name, body.Weapon.Name)
	if sp := res.Subphases; sp != nil && len(sp.Saves.Rolls) > 0 {
		min := sp.Saves.Rolls[0]
		for _, roll := range sp.Saves.Rolls[1:] {
			if roll < min {
				min = roll
			}
		}
		s.tracker.MaybeWorstSave(min, sp.Saves.Target,
			body.Defender.Name, body.Defender.Faction, body.Defender.Name, len(sp.Saves.Rolls))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleDailyStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Get())
}

func (s *server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(mux.Vars(r)["sessionId"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]stats.ArmySummary{
		"attacker": stats.SummarizeArmy(snap.Attacker.Units),
		"defender": stats.SummarizeArmy(snap.Defender.Units),
	})
}

// ----------------- advisor -----------------

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(mux.Vars(r)["sessionId"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]advisor.Report{
		"attacker": advisor.Analyze(&snap, models.SideAttacker),
		"defender": advisor.Analyze(&snap, models.SideDefender),
	})
}

func (s *server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snap, err := s.store.Snapshot(vars["sessionId"])
	if err != nil {
		writeErr(w, err)
		return
	}
	side := sideVar(r)
	if !side.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid side"})
		return
	}
	adv, err := s.advice.Advise(r.Context(), &snap, side)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, adv)
}

func (s *server) handleAdviceBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := s.advice.TokenBalance(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, bal)
}
