// w40k-companion: game companion server for tabletop matches.
//
// Tracks live sessions (scores, objectives, stratagems, per-model unit
// rosters), serves datasheet data from the upstream data API, resolves
// calculator volleys and exposes a websocket feed of session state.
//
// Env:
//
//	COMPANION_PORT      (default: 8080)
//	DATASHEET_API_BASE  (default: http://localhost:8080)
//	DATASHEET_CACHE_TTL (default: 15m)
//	ADVISOR_API_BASE    (optional, remote advice service)
//	ADVISOR_API_TOKEN   (optional)
//	ADVISOR_CACHE_TTL   (default: 5m)
//	DEBUG               (default: false)
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pefman/w40k-companion/internal/advisor"
	"github.com/pefman/w40k-companion/internal/datasheet"
	"github.com/pefman/w40k-companion/internal/session"
	"github.com/pefman/w40k-companion/internal/stats"
)

var version = "dev"

type config struct {
	Port        int           `env:"COMPANION_PORT" envDefault:"8080"`
	DataAPIBase string        `env:"DATASHEET_API_BASE" envDefault:"http://localhost:8080"`
	CacheTTL    time.Duration `env:"DATASHEET_CACHE_TTL" envDefault:"15m"`
	AdviceURL   string        `env:"ADVISOR_API_BASE"`
	AdviceToken string        `env:"ADVISOR_API_TOKEN"`
	AdviceTTL   time.Duration `env:"ADVISOR_CACHE_TTL" envDefault:"5m"`
	Debug       bool          `env:"DEBUG" envDefault:"false"`
}

type server struct {
	store   *session.Store
	sheets  *datasheet.Client
	advice  *advisor.Client
	tracker *stats.Tracker
	hub     *hub
	log     *zap.Logger
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse config: %v", err)
	}

	var logger *zap.Logger
	var err error
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	s := &server{
		store:   session.NewStore(logger),
		sheets:  datasheet.NewClient(cfg.DataAPIBase, cfg.CacheTTL),
		advice:  advisor.NewClient(cfg.AdviceURL, cfg.AdviceToken, cfg.AdviceTTL, logger),
		tracker: stats.NewTracker(),
		hub:     newHub(logger),
		log:     logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/factions", s.handleFactions).Methods(http.MethodGet)
	api.HandleFunc("/factions/{faction}/datasheets", s.handleDatasheets).Methods(http.MethodGet)
	api.HandleFunc("/calc", s.handleCalc).Methods(http.MethodPost)
	api.HandleFunc("/stats/daily", s.handleDailyStats).Methods(http.MethodGet)
	api.HandleFunc("/advice/balance", s.handleAdviceBalance).Methods(http.MethodGet)

	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)

	sess := api.PathPrefix("/sessions/{sessionId}").Subrouter()
	sess.HandleFunc("", s.handleGetSession).Methods(http.MethodGet)
	sess.HandleFunc("/end", s.handleEndSession).Methods(http.MethodPost)
	sess.HandleFunc("/turn", s.handleAdvanceTurn).Methods(http.MethodPost)
	sess.HandleFunc("/stats", s.handleSessionStats).Methods(http.MethodGet)
	sess.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)
	sess.HandleFunc("/objectives/{marker}", s.handleObjective).Methods(http.MethodPost)

	side := sess.PathPrefix("/sides/{side}").Subrouter()
	side.HandleFunc("/army", s.handleLoadArmy).Methods(http.MethodPost)
	side.HandleFunc("/cp", s.handleCP).Methods(http.MethodPost)
	side.HandleFunc("/vp", s.handleVP).Methods(http.MethodPost)
	side.HandleFunc("/secondaries", s.handleDrawSecondary).Methods(http.MethodPost)
	side.HandleFunc("/secondaries/{name}/score", s.handleScoreSecondary).Methods(http.MethodPost)
	side.HandleFunc("/secondaries/{name}/discard", s.handleDiscardSecondary).Methods(http.MethodPost)
	side.HandleFunc("/stratagems", s.handleStratagems).Methods(http.MethodGet)
	side.HandleFunc("/stratagems/{name}/use", s.handleUseStratagem).Methods(http.MethodPost)
	side.HandleFunc("/advice", s.handleAdvice).Methods(http.MethodGet)

	unit := sess.PathPrefix("/units/{unitId}").Subrouter()
	unit.HandleFunc("", s.handlePatchUnit).Methods(http.MethodPatch)
	unit.HandleFunc("/damage", s.handleUnitDamage).Methods(http.MethodPost)
	unit.HandleFunc("/sync", s.handleSyncUnit).Methods(http.MethodPost)
	unit.HandleFunc("/models/{index}/wounds", s.handleModelWounds).Methods(http.MethodPost)
	unit.HandleFunc("/models/{index}/destroy", s.handleModelDestroy).Methods(http.MethodPost)
	unit.HandleFunc("/models/{index}/maxwounds", s.handleModelMaxWounds).Methods(http.MethodPost)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("w40k companion listening",
		zap.String("addr", addr), zap.String("version", version),
		zap.String("data_api", cfg.DataAPIBase), zap.Bool("advice", s.advice.Enabled()))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func (s *server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version})
}

func (s *server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html><title>w40k companion</title>
<h1>w40k companion %s</h1>
<p>API under <code>/api</code>, live feed at <code>/ws?session=...</code></p>`, version)
}
