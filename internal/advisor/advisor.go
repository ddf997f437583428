package advisor

import (
	"fmt"
	"strings"

	"github.com/pefman/w40k-companion/internal/models"
	"github.com/pefman/w40k-companion/internal/roster"
)

// ========================= Tactical Analysis =========================
// Derived, rules-based observations about the current board state. This is
// pure computation over the session; the remote advice client is separate.

// UnitNote carries observations about one unit.
type UnitNote struct {
	UnitID string   `json:"unit_id"`
	Name   string   `json:"name"`
	Tips   []string `json:"tips"`
}

// Report is the full analysis for one side.
type Report struct {
	Side     models.Side `json:"side"`
	ArmyTips []string    `json:"army_tips,omitempty"`
	Units    []UnitNote  `json:"units,omitempty"`
}

// Analyze inspects one side's army against its opponent and returns
// rules-derived tips. Destroyed units are skipped.
func Analyze(sess *models.Session, side models.Side) Report {
	rep := Report{Side: side}
	own := sess.SideState(side)
	opp := sess.SideState(otherSide(side))

	maxOppT := 0
	oppHasVehicles := false
	for _, u := range opp.Units {
		if u.IsDestroyed || u.Datasheet == nil {
			continue
		}
		if u.Datasheet.T > maxOppT {
			maxOppT = u.Datasheet.T
		}
		if hasKeyword(u.Datasheet, "vehicle") || hasKeyword(u.Datasheet, "monster") {
			oppHasVehicles = true
		}
	}

	maxOwnS := 0
	hasBattleline := false
	antiTags := map[string]bool{}
	for _, u := range own.Units {
		if u.IsDestroyed {
			continue
		}
		if u.Datasheet != nil {
			if hasKeyword(u.Datasheet, "battleline") {
				hasBattleline = true
			}
			for _, w := range u.Datasheet.Weapons {
				if w.S > maxOwnS {
					maxOwnS = w.S
				}
				if w.AntiTag != "" {
					antiTags[strings.ToLower(w.AntiTag)] = true
				}
			}
		}
		if note := analyzeUnit(u); len(note.Tips) > 0 {
			rep.Units = append(rep.Units, note)
		}
	}

	if !hasBattleline {
		rep.ArmyTips = append(rep.ArmyTips, "No battleline units left: holding objectives will be harder.")
	}
	if oppHasVehicles && !antiTags["vehicle"] && !antiTags["monster"] && maxOwnS < maxOppT {
		rep.ArmyTips = append(rep.ArmyTips,
			fmt.Sprintf("Opponent has toughness %d targets and your strongest weapon is S%d; prioritise anti-tank.", maxOppT, maxOwnS))
	}
	return rep
}

func analyzeUnit(u *models.Unit) UnitNote {
	note := UnitNote{UnitID: u.ID, Name: u.Name}
	if u.IsBattleShocked {
		note.Tips = append(note.Tips, "Battle-shocked: OC 0, cannot use stratagems.")
	}
	if belowHalfStrength(u) {
		note.Tips = append(note.Tips, "Below half strength: battle-shock test required in the command phase.")
	}
	if u.Mismatch() {
		note.Tips = append(note.Tips, "Roster out of step with model count: sync before per-model tracking.")
	}
	if d := roster.DecodeModels(u.ModelsPayload); d.State == roster.Parsed {
		for _, m := range d.Models {
			if m.Role == roster.RoleLeader && m.CurrentWounds > 0 && m.CurrentWounds < m.MaxWounds {
				note.Tips = append(note.Tips, "Leader is wounded: consider allocating elsewhere.")
				break
			}
		}
	}
	return note
}

// belowHalfStrength follows the core rules: multi-model units count models,
// single-model units count remaining wounds.
func belowHalfStrength(u *models.Unit) bool {
	if u.IsDestroyed {
		return false
	}
	if u.StartingModels > 1 {
		return u.CurrentModels*2 < u.StartingModels
	}
	return u.StartingWounds > 0 && u.CurrentWounds*2 < u.StartingWounds
}

func hasKeyword(ds *models.Datasheet, kw string) bool {
	for _, k := range ds.Keywords {
		if strings.EqualFold(k, kw) {
			return true
		}
	}
	return false
}

func otherSide(side models.Side) models.Side {
	if side == models.SideAttacker {
		return models.SideDefender
	}
	return models.SideAttacker
}
