package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pefman/w40k-companion/internal/models"
	"github.com/pefman/w40k-companion/internal/roster"
)

// ========================= Session Store =========================
// All live match state is in-memory, keyed by session id and mutated under
// one lock, so rapid per-model clicks serialize instead of losing updates.

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionEnded    = errors.New("session has ended")
	ErrUnitNotFound    = errors.New("unit not found")
)

// DefaultObjectiveCount is the standard mission marker count.
const DefaultObjectiveCount = 5

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session

	log *zap.Logger
	now func() time.Time
}

func NewStore(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]*models.Session),
		log:      log,
		now:      time.Now,
	}
}

// Create starts tracking a new match.
func (s *Store) Create(mission string, objectives int) *models.Session {
	if objectives <= 0 {
		objectives = DefaultObjectiveCount
	}
	markers := make([]models.ObjectiveMarker, objectives)
	for i := range markers {
		markers[i] = models.ObjectiveMarker{ID: fmt.Sprintf("obj-%d", i+1), Control: models.ControlNone}
	}
	now := s.now().Unix()
	sess := &models.Session{
		ID:          uuid.NewString(),
		Mission:     mission,
		Round:       1,
		Turn:        models.SideAttacker,
		Objectives:  markers,
		CreatedAt:   now,
		LastUpdated: now,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.log.Info("session created", zap.String("session", sess.ID), zap.String("mission", mission))
	return sess
}

// Snapshot returns a deep copy of one session, safe to serialize without
// holding the store lock.
func (s *Store) Snapshot(id string) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return copySession(sess), nil
}

func copySession(sess *models.Session) models.Session {
	out := *sess
	out.Objectives = append([]models.ObjectiveMarker(nil), sess.Objectives...)
	out.Attacker = copySide(sess.Attacker)
	out.Defender = copySide(sess.Defender)
	return out
}

func copySide(side models.SideState) models.SideState {
	out := side
	out.Secondaries = append([]models.SecondaryObjective(nil), side.Secondaries...)
	out.UsedStratagems = append([]string(nil), side.UsedStratagems...)
	out.Units = make([]*models.Unit, len(side.Units))
	for i, u := range side.Units {
		cp := *u
		out.Units[i] = &cp
	}
	return out
}

// Summary is the list view of a session.
type Summary struct {
	ID      string `json:"id"`
	Mission string `json:"mission,omitempty"`
	Round   int    `json:"round"`
	Ended   bool   `json:"ended"`
	Created int64  `json:"created_at"`
}

func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, Summary{ID: sess.ID, Mission: sess.Mission, Round: sess.Round, Ended: sess.Ended, Created: sess.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created > out[j].Created })
	return out
}

// mutate runs fn on a live, un-ended session under the write lock and
// stamps LastUpdated on success.
func (s *Store) mutate(id string, fn func(*models.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.Ended {
		return ErrSessionEnded
	}
	if err := fn(sess); err != nil {
		return err
	}
	sess.LastUpdated = s.now().Unix()
	return nil
}

// End closes a session; further mutations are rejected.
func (s *Store) End(id string) error {
	err := s.mutate(id, func(sess *models.Session) error {
		sess.Ended = true
		return nil
	})
	if err == nil {
		s.log.Info("session ended", zap.String("session", id))
	}
	return err
}

// AdvanceTurn flips whose turn it is, bumping the round when play returns
// to the attacker.
func (s *Store) AdvanceTurn(id string) error {
	return s.mutate(id, func(sess *models.Session) error {
		if sess.Turn == models.SideAttacker {
			sess.Turn = models.SideDefender
		} else {
			sess.Turn = models.SideAttacker
			sess.Round++
		}
		return nil
	})
}

// AdjustCP shifts one side's command points. The pool never goes negative.
func (s *Store) AdjustCP(id string, side models.Side, delta int) error {
	if !side.Valid() {
		return fmt.Errorf("invalid side %q", side)
	}
	return s.mutate(id, func(sess *models.Session) error {
		st := sess.SideState(side)
		next := st.CommandPoints + delta
		if next < 0 {
			return fmt.Errorf("command points cannot drop below zero (have %d)", st.CommandPoints)
		}
		st.CommandPoints = next
		return nil
	})
}

// AddVP shifts one side's primary/secondary victory points, floored at 0.
func (s *Store) AddVP(id string, side models.Side, primary, secondary int) error {
	if !side.Valid() {
		return fmt.Errorf("invalid side %q", side)
	}
	return s.mutate(id, func(sess *models.Session) error {
		st := sess.SideState(side)
		st.PrimaryVP += primary
		if st.PrimaryVP < 0 {
			st.PrimaryVP = 0
		}
		st.SecondaryVP += secondary
		if st.SecondaryVP < 0 {
			st.SecondaryVP = 0
		}
		return nil
	})
}

// SetObjective records who controls a marker.
func (s *Store) SetObjective(id, markerID string, control models.ObjectiveControl) error {
	if !control.Valid() {
		return fmt.Errorf("invalid objective control %q", control)
	}
	return s.mutate(id, func(sess *models.Session) error {
		for i := range sess.Objectives {
			if sess.Objectives[i].ID == markerID {
				sess.Objectives[i].Control = control
				return nil
			}
		}
		return fmt.Errorf("objective %q not found", markerID)
	})
}

// DrawSecondary deals a secondary objective card to one side.
func (s *Store) DrawSecondary(id string, side models.Side, name string, points int) error {
	if !side.Valid() {
		return fmt.Errorf("invalid side %q", side)
	}
	return s.mutate(id, func(sess *models.Session) error {
		st := sess.SideState(side)
		for _, sec := range st.Secondaries {
			if sec.Name == name && !sec.Discarded && !sec.Scored {
				return fmt.Errorf("secondary %q already active", name)
			}
		}
		st.Secondaries = append(st.Secondaries, models.SecondaryObjective{Name: name, Points: points})
		return nil
	})
}

// ScoreSecondary marks a drawn secondary scored and banks its points.
func (s *Store) ScoreSecondary(id string, side models.Side, name string) error {
	return s.resolveSecondary(id, side, name, true)
}

// DiscardSecondary drops a drawn secondary without scoring.
func (s *Store) DiscardSecondary(id string, side models.Side, name string) error {
	return s.resolveSecondary(id, side, name, false)
}

func (s *Store) resolveSecondary(id string, side models.Side, name string, score bool) error {
	if !side.Valid() {
		return fmt.Errorf("invalid side %q", side)
	}
	return s.mutate(id, func(sess *models.Session) error {
		st := sess.SideState(side)
		for i := range st.Secondaries {
			sec := &st.Secondaries[i]
			if sec.Name != name || sec.Scored || sec.Discarded {
				continue
			}
			if score {
				sec.Scored = true
				st.SecondaryVP += sec.Points
			} else {
				sec.Discarded = true
			}
			return nil
		}
		return fmt.Errorf("no active secondary %q", name)
	})
}

// LoadArmy fills one side from datasheets, replacing any existing units.
// Each unit starts at full strength with a synthesized per-model roster.
func (s *Store) LoadArmy(id string, side models.Side, faction string, sheets []models.Datasheet) error {
	if !side.Valid() {
		return fmt.Errorf("invalid side %q", side)
	}
	return s.mutate(id, func(sess *models.Session) error {
		st := sess.SideState(side)
		st.Faction = faction
		st.Units = make([]*models.Unit, 0, len(sheets))
		for i := range sheets {
			ds := sheets[i]
			st.Units = append(st.Units, newUnit(side, &ds))
		}
		s.log.Info("army loaded",
			zap.String("session", id), zap.String("side", string(side)),
			zap.String("faction", faction), zap.Int("units", len(sheets)))
		return nil
	})
}

func newUnit(side models.Side, ds *models.Datasheet) *models.Unit {
	count := 0
	for _, c := range ds.Composition {
		count += c.Count
	}
	if count == 0 {
		count = 1
	}
	tpl := roster.Template{Composition: ds.Composition, WoundsPerModel: ds.W, DatasheetWounds: ds.W}
	baseline := roster.BuildBaseline(tpl, count)
	wpm := 1
	for _, m := range baseline {
		if m.MaxWounds > wpm {
			wpm = m.MaxWounds
		}
	}
	return &models.Unit{
		ID:                 uuid.NewString(),
		Side:               side,
		Name:               ds.Name,
		StartingModels:     count,
		CurrentModels:      count,
		StartingWounds:     roster.SumMax(baseline),
		CurrentWounds:      roster.SumMax(baseline),
		WoundsPerModel:     wpm,
		ModelsPayload:      roster.EncodeModels(baseline),
		CompositionPayload: roster.EncodeComposition(ds.Composition),
		Points:             ds.Points,
		Datasheet:          ds,
	}
}
