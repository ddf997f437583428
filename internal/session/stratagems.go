package session

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pefman/w40k-companion/internal/models"
)

// ========================= Stratagems =========================

// Core is the catalog of core stratagems every army can use.
// Phases use lowercase names (command, movement, shooting, charge, fight);
// an empty phase list means usable any time.
var Core = []models.Stratagem{
	{Name: "Command Re-roll", Cost: 1, Description: "Re-roll one roll, test or saving throw."},
	{Name: "Counter-Offensive", Cost: 2, Phases: []string{"fight"}, Description: "Fight with a unit before the opponent picks another."},
	{Name: "Epic Challenge", Cost: 1, Phases: []string{"fight"}, Description: "A character's attacks gain Precision."},
	{Name: "Insane Bravery", Cost: 1, OncePerBattle: true, Phases: []string{"command"}, Description: "Auto-pass one Battle-shock test."},
	{Name: "Grenade", Cost: 1, Phases: []string{"shooting"}, Description: "One Grenades unit throws a grenade instead of shooting."},
	{Name: "Tank Shock", Cost: 1, Phases: []string{"charge"}, Description: "A charging vehicle rams its target."},
	{Name: "Rapid Ingress", Cost: 1, Phases: []string{"movement"}, Description: "Set up a reserves unit at the end of the opponent's movement phase."},
	{Name: "Fire Overwatch", Cost: 1, Phases: []string{"movement", "charge"}, Description: "Shoot at an enemy unit that just moved, hitting on 6s."},
	{Name: "Go to Ground", Cost: 1, Phases: []string{"shooting"}, Description: "An infantry unit gains cover and a 6+ invulnerable save."},
	{Name: "Smokescreen", Cost: 1, Phases: []string{"shooting"}, Description: "A Smoke unit gains cover and Stealth."},
	{Name: "Heroic Intervention", Cost: 2, Phases: []string{"charge"}, Description: "Counter-charge a unit that just charged."},
	{Name: "Armour of Contempt", Cost: 1, Phases: []string{"shooting", "fight"}, Description: "Worsen incoming AP by 1."},
}

// Available filters the catalog to what one side can use right now, given
// the current phase and its remaining command points. Once-per-battle
// stratagems already spent are excluded.
func Available(catalog []models.Stratagem, st *models.SideState, phase string) []models.Stratagem {
	phase = strings.ToLower(strings.TrimSpace(phase))
	out := make([]models.Stratagem, 0, len(catalog))
	for _, strat := range catalog {
		if strat.Cost > st.CommandPoints {
			continue
		}
		if strat.OncePerBattle && used(st, strat.Name) {
			continue
		}
		if !phaseAllowed(strat.Phases, phase) {
			continue
		}
		out = append(out, strat)
	}
	return out
}

func phaseAllowed(phases []string, phase string) bool {
	if len(phases) == 0 || phase == "" {
		return true
	}
	for _, p := range phases {
		if p == phase {
			return true
		}
	}
	return false
}

func used(st *models.SideState, name string) bool {
	for _, n := range st.UsedStratagems {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// AvailableStratagems lists what one side can play in the given phase.
func (s *Store) AvailableStratagems(id string, side models.Side, phase string) ([]models.Stratagem, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("invalid side %q", side)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return Available(Core, sess.SideState(side), phase), nil
}

// UseStratagem spends the stratagem's cost and records once-per-battle use.
func (s *Store) UseStratagem(id string, side models.Side, name, phase string) error {
	if !side.Valid() {
		return fmt.Errorf("invalid side %q", side)
	}
	return s.mutate(id, func(sess *models.Session) error {
		var strat *models.Stratagem
		for i := range Core {
			if strings.EqualFold(Core[i].Name, name) {
				strat = &Core[i]
				break
			}
		}
		if strat == nil {
			return fmt.Errorf("unknown stratagem %q", name)
		}
		st := sess.SideState(side)
		if strat.OncePerBattle && used(st, strat.Name) {
			return fmt.Errorf("%s is once per battle and already used", strat.Name)
		}
		if !phaseAllowed(strat.Phases, strings.ToLower(strings.TrimSpace(phase))) {
			return fmt.Errorf("%s cannot be used in the %s phase", strat.Name, phase)
		}
		if strat.Cost > st.CommandPoints {
			return fmt.Errorf("not enough command points for %s (need %d, have %d)", strat.Name, strat.Cost, st.CommandPoints)
		}
		st.CommandPoints -= strat.Cost
		if strat.OncePerBattle {
			st.UsedStratagems = append(st.UsedStratagems, strat.Name)
		}
		s.log.Info("stratagem used",
			zap.String("session", id), zap.String("side", string(side)),
			zap.String("stratagem", strat.Name), zap.Int("cost", strat.Cost))
		return nil
	})
}
