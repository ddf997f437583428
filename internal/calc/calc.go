package calc

import (
	"fmt"
	"strings"

	"github.com/pefman/w40k-companion/internal/models"
)

// ========================= Damage Calculator =========================
// One weapon volley from attacker to defender, resolved phase by phase
// (attacks, hits, wounds, saves, damage) with human-readable log lines and
// a structured subphase breakdown. The RNG is injected so results are
// reproducible in tests.

// Result captures the outcome of one resolved volley.
type Result struct {
	Logs           []string   `json:"logs"`
	Attacks        int        `json:"attacks"`
	Hits           int        `json:"hits"`
	Wounds         int        `json:"wounds"`
	Saved          int        `json:"saved"`
	Unsaved        int        `json:"unsaved"`
	DamageTotal    int        `json:"damage_total"`
	DefenderWounds int        `json:"defender_wounds"`
	Subphases      *Subphases `json:"subphases,omitempty"`
}

// Subphases describes phase-by-phase rolls & targets.
type Subphases struct {
	Attacks struct {
		Count int `json:"count"`
	} `json:"attacks"`
	Hits struct {
		Target  int   `json:"target"`
		Rolls   []int `json:"rolls"`
		Success int   `json:"success"`
	} `json:"hits"`
	Wounds struct {
		Target  int   `json:"target"`
		Rolls   []int `json:"rolls"`
		Success int   `json:"success"`
	} `json:"wounds"`
	Saves struct {
		Target  int   `json:"target"`
		Rolls   []int `json:"rolls"`
		Success int   `json:"success"`
		Failed  int   `json:"failed"`
	} `json:"saves"`
	Damage struct {
		Rolls []int `json:"rolls"`
		Total int   `json:"total"`
	} `json:"damage"`
}

// WoundTarget returns the roll (2-6) needed to wound T with S.
func WoundTarget(s, t int) int {
	switch {
	case s >= 2*t:
		return 2
	case s > t:
		return 3
	case s == t:
		return 4
	case s*2 <= t:
		return 6
	default:
		return 5
	}
}

// SaveTarget returns the best save threshold for the defender against the
// given AP (stored positive: it worsens the armour save). 7 means no save.
func SaveTarget(sv, inv, ap int) int {
	eff := sv + ap
	if eff < 2 {
		eff = 2
	}
	if eff > 6 {
		eff = 7
	}
	if inv > 0 && inv < eff {
		eff = inv
	}
	return eff
}

func attackCount(r Roller, w models.Weapon) int {
	if expr := strings.TrimSpace(w.AttacksExpr); expr != "" {
		if n := RollExpr(r, expr); n > 0 {
			return n
		}
	}
	return w.Attacks
}

func damageExpr(w models.Weapon) string {
	if expr := strings.TrimSpace(w.DamageExpr); expr != "" {
		return expr
	}
	return fmt.Sprintf("%d", w.D)
}

// antiOverride returns the Anti-X threshold when the defender carries the
// matching keyword, else 0.
func antiOverride(w models.Weapon, def models.Datasheet) (int, string) {
	if w.AntiTag == "" || w.AntiValue < 2 || w.AntiValue > 6 {
		return 0, ""
	}
	for _, kw := range def.Keywords {
		if strings.Contains(strings.ToLower(kw), w.AntiTag) {
			return w.AntiValue, kw
		}
	}
	return 0, ""
}

// Resolve executes a single weapon volley from attacker to defender.
func Resolve(att, def models.Datasheet, w models.Weapon, rng Roller) Result {
	logs := []string{}
	sp := &Subphases{}

	if len(w.Tags) > 0 {
		logs = append(logs, fmt.Sprintf("Weapon Abilities: [%s]", strings.Join(w.Tags, ", ")))
	}
	if w.Torrent {
		logs = append(logs, "Torrent active: attacks automatically hit")
	}
	if w.SustainedHits > 0 {
		logs = append(logs, fmt.Sprintf("Sustained Hits %d active: each critical hit adds +%d hit(s)", w.SustainedHits, w.SustainedHits))
	}
	if w.LethalHits {
		logs = append(logs, "Lethal Hits active: critical hit (6) converts to auto-wound")
	}
	if w.TwinLinked {
		logs = append(logs, "Twin-linked active: re-roll failed wound rolls once")
	}
	if w.DevastatingWounds {
		logs = append(logs, "Devastating Wounds active: critical wound (6) converts to maximum damage")
	}

	// Attacks
	attacks := attackCount(rng, w)
	sp.Attacks.Count = attacks
	logs = append(logs, fmt.Sprintf("Attacks -> %d", attacks))

	// Hits
	sp.Hits.Target = w.Skill
	logs = append(logs, fmt.Sprintf("To Hit: needs %d+", w.Skill))
	hits := 0
	critAutoWounds := 0 // from lethal hits (6s to hit)
	for i := 0; i < attacks; i++ {
		if w.Torrent {
			sp.Hits.Rolls = append(sp.Hits.Rolls, 6)
			hits++
			logs = append(logs, fmt.Sprintf("Hit (Torrent) %d: auto-hit", i+1))
			continue
		}
		roll := 1 + rng.Intn(6)
		sp.Hits.Rolls = append(sp.Hits.Rolls, roll)
		if roll >= w.Skill && roll != 1 {
			hits++
			logs = append(logs, fmt.Sprintf("Hit roll %d: %d -> HIT (needs %d+)", i+1, roll, w.Skill))
			if w.LethalHits && roll == 6 {
				critAutoWounds++
				logs = append(logs, "Lethal Hits: critical hit converts to auto-wound")
			}
			if w.SustainedHits > 0 && roll == 6 {
				hits += w.SustainedHits
				logs = append(logs, fmt.Sprintf("Sustained Hits: +%d additional hit(s)", w.SustainedHits))
			}
		} else {
			logs = append(logs, fmt.Sprintf("Hit roll %d: %d -> MISS (needs %d+)", i+1, roll, w.Skill))
		}
	}
	sp.Hits.Success = hits
	logs = append(logs, fmt.Sprintf("Hits total: %d", hits))

	// Wounds
	woundTN := WoundTarget(w.S, def.T)
	logs = append(logs, fmt.Sprintf("To Wound base: S %d vs T %d -> needs %d+", w.S, def.T, woundTN))
	if tn, matched := antiOverride(w, def); tn > 0 && tn < woundTN {
		logs = append(logs, fmt.Sprintf("Anti-%s %d+ applies (defender has '%s'): override wound target to %d+", w.AntiTag, tn, matched, tn))
		woundTN = tn
	}
	sp.Wounds.Target = woundTN

	wounds := 0
	critWounds := 0
	attempts := hits - critAutoWounds
	if attempts < 0 {
		attempts = 0
	}
	if critAutoWounds > 0 {
		wounds += critAutoWounds
		logs = append(logs, fmt.Sprintf("Lethal Hits auto-wounds added: +%d", critAutoWounds))
	}
	for i := 0; i < attempts; i++ {
		roll := 1 + rng.Intn(6)
		passes := roll >= woundTN && roll != 1
		if !passes && w.TwinLinked {
			r2 := 1 + rng.Intn(6)
			logs = append(logs, fmt.Sprintf("Twin-linked re-roll: %d -> %d (needs %d+)", roll, r2, woundTN))
			roll = r2
			passes = roll >= woundTN && roll != 1
		}
		sp.Wounds.Rolls = append(sp.Wounds.Rolls, roll)
		if passes {
			wounds++
			if roll == 6 {
				critWounds++
			}
			logs = append(logs, fmt.Sprintf("Wound roll %d: %d -> WOUND (needs %d+)", i+1, roll, woundTN))
		} else {
			logs = append(logs, fmt.Sprintf("Wound roll %d: %d -> FAIL (needs %d+)", i+1, roll, woundTN))
		}
	}
	sp.Wounds.Success = wounds
	logs = append(logs, fmt.Sprintf("Wounds total: %d", wounds))

	// Saves
	saveTN := SaveTarget(def.Sv, def.InvSv, w.AP)
	effSave := def.Sv + w.AP
	effSaveStr := fmt.Sprintf("%d+", effSave)
	if effSave > 6 {
		effSaveStr = "no save"
	}
	if def.InvSv > 0 && saveTN == def.InvSv && (effSave > 6 || def.InvSv < effSave) {
		logs = append(logs, fmt.Sprintf("Saves: AP %d modifies Sv to %s, Invulnerable %d+ is better -> using Invulnerable", w.AP, effSaveStr, def.InvSv))
	} else {
		logs = append(logs, fmt.Sprintf("Saves: AP %d modifies Sv to %s", w.AP, effSaveStr))
	}
	sp.Saves.Target = saveTN
	saved, unsaved := 0, 0
	unsavedCrits := 0
	// Lethal-hit auto-wounds roll saves first, then the rolled wounds in
	// order so critical wounds keep their devastating flag.
	rolledCritsSeen := 0
	for i := 0; i < wounds; i++ {
		isCrit := false
		if i >= critAutoWounds && rolledCritsSeen < critWounds {
			// Rolled wounds beyond the auto-wound block: flag the first
			// critWounds of them as criticals. Order within the volley does
			// not change totals.
			isCrit = true
			rolledCritsSeen++
		}
		roll := 1 + rng.Intn(6)
		sp.Saves.Rolls = append(sp.Saves.Rolls, roll)
		if roll >= saveTN && roll != 1 {
			saved++
			logs = append(logs, fmt.Sprintf("Save roll %d: %d -> SAVED (needs %d+)", i+1, roll, saveTN))
		} else {
			unsaved++
			if isCrit {
				unsavedCrits++
			}
			logs = append(logs, fmt.Sprintf("Save roll %d: %d -> FAILED (needs %d+)", i+1, roll, saveTN))
		}
	}
	sp.Saves.Success = saved
	sp.Saves.Failed = unsaved
	logs = append(logs, fmt.Sprintf("Saves total: %d, Unsaved total: %d (TN %d+)", saved, unsaved, saveTN))

	// Damage
	expr := damageExpr(w)
	totalDmg := 0
	for i := 0; i < unsaved; i++ {
		var dmg int
		if w.DevastatingWounds && i < unsavedCrits {
			dmg = MaxExpr(expr)
			if dmg == 0 {
				dmg = RollExpr(rng, expr)
			}
			logs = append(logs, fmt.Sprintf("Devastating Wounds: critical wound -> max damage from %s = %d", expr, dmg))
		} else {
			dmg = RollExpr(rng, expr)
		}
		if def.DamageRed > 0 {
			red := def.DamageRed
			if red > dmg {
				red = dmg
			}
			dmg -= red
			logs = append(logs, fmt.Sprintf("Damage reduction -%d applies", red))
		}
		sp.Damage.Rolls = append(sp.Damage.Rolls, dmg)
		totalDmg += dmg
		logs = append(logs, fmt.Sprintf("Damage roll %d: %s -> %d", i+1, expr, dmg))
	}

	// Feel No Pain: one roll per point of damage.
	if def.FNP >= 2 && def.FNP <= 6 && totalDmg > 0 {
		rolls := make([]int, 0, totalDmg)
		ignored := 0
		for i := 0; i < totalDmg; i++ {
			r := 1 + rng.Intn(6)
			rolls = append(rolls, r)
			if r >= def.FNP && r != 1 {
				ignored++
			}
		}
		logs = append(logs, fmt.Sprintf("Feel No Pain %d+: rolls %v -> ignored %d damage", def.FNP, rolls, ignored))
		totalDmg -= ignored
		if totalDmg < 0 {
			totalDmg = 0
		}
	}
	sp.Damage.Total = totalDmg
	remain := def.W - totalDmg
	if remain < 0 {
		remain = 0
	}
	logs = append(logs, fmt.Sprintf("Total Damage: %d, Defender Wounds left: %d", totalDmg, remain))

	return Result{
		Logs:           logs,
		Attacks:        attacks,
		Hits:           hits,
		Wounds:         wounds,
		Saved:          saved,
		Unsaved:        unsaved,
		DamageTotal:    totalDmg,
		DefenderWounds: remain,
		Subphases:      sp,
	}
}
