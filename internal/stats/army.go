package stats

import (
	"github.com/pefman/w40k-companion/internal/models"
	"github.com/pefman/w40k-companion/internal/roster"
)

// ArmySummary is the derived view of one side's army shown on the match
// stats screen.
type ArmySummary struct {
	Units          int            `json:"units"`
	UnitsDestroyed int            `json:"units_destroyed"`
	BattleShocked  int            `json:"battle_shocked"`
	Points         int            `json:"points"`
	StartingModels int            `json:"starting_models"`
	CurrentModels  int            `json:"current_models"`
	StartingWounds int            `json:"starting_wounds"`
	CurrentWounds  int            `json:"current_wounds"`
	ModelsByRole   map[string]int `json:"models_by_role"`
	Mismatched     int            `json:"mismatched"`
}

// SummarizeArmy aggregates one side's units. Role counts come from the
// per-model rosters where they parse; units without a usable roster
// contribute their aggregate model count as regulars.
func SummarizeArmy(units []*models.Unit) ArmySummary {
	s := ArmySummary{ModelsByRole: map[string]int{}}
	for _, u := range units {
		s.Units++
		s.Points += u.Points
		s.StartingModels += u.StartingModels
		s.CurrentModels += u.CurrentModels
		s.StartingWounds += u.StartingWounds
		s.CurrentWounds += u.CurrentWounds
		if u.IsDestroyed {
			s.UnitsDestroyed++
		}
		if u.IsBattleShocked {
			s.BattleShocked++
		}
		if u.Mismatch() {
			s.Mismatched++
		}
		if d := roster.DecodeModels(u.ModelsPayload); d.State == roster.Parsed {
			for _, m := range roster.Alive(d.Models) {
				s.ModelsByRole[string(m.Role)]++
			}
		} else {
			s.ModelsByRole[string(roster.RoleRegular)] += u.CurrentModels
		}
	}
	return s
}
