package roster

import "fmt"

// ========================= Reconciliation =========================
// When the stored per-model roster is missing, too short, or out of step
// with the unit's aggregate counts, a consistent roster is synthesized from
// the unit's template and the recorded wound total. The synthesis is
// deterministic: damage always comes off the tail of the roster first, so
// repeated syncs of the same aggregates land on the same roster.

// Template is what baseline synthesis works from: the unit's composition
// entries (when its composition payload parsed to something usable), its
// nominal per-model wound stat, and the datasheet wound stat as the last
// fallback.
type Template struct {
	Composition     []RoleComposition
	WoundsPerModel  int
	DatasheetWounds int
}

func (t Template) fallbackWounds() int {
	if t.WoundsPerModel > 0 {
		return t.WoundsPerModel
	}
	if t.DatasheetWounds > 0 {
		return t.DatasheetWounds
	}
	return 1
}

// BuildBaseline returns exactly count full-health models expanded from the
// template. Composition entries expand in order; a composition describing a
// smaller squad than count is padded by replicating its last regular entry
// (or its final entry when none is regular); a larger one is truncated.
// With no usable composition every model is a regular at the fallback
// wound stat. Pure function of the template.
func BuildBaseline(tpl Template, count int) []ModelState {
	if count < 0 {
		count = 0
	}
	models := make([]ModelState, 0, count)
	for _, entry := range tpl.Composition {
		w := entry.WoundsPerModel
		if w < 1 {
			w = tpl.fallbackWounds()
		}
		if w < 1 {
			w = 1
		}
		for i := 0; i < entry.Count; i++ {
			models = append(models, ModelState{Role: entry.Role, CurrentWounds: w, MaxWounds: w})
		}
	}
	if len(models) == 0 {
		w := tpl.fallbackWounds()
		for i := 0; i < count; i++ {
			models = append(models, ModelState{Role: RoleRegular, CurrentWounds: w, MaxWounds: w})
		}
		return models
	}
	if len(models) < count {
		pad := models[len(models)-1]
		for i := len(models) - 1; i >= 0; i-- {
			if models[i].Role == RoleRegular {
				pad = models[i]
				break
			}
		}
		for len(models) < count {
			models = append(models, pad)
		}
	}
	return models[:count]
}

// ApplyDamageToMatchTotal resets every model to full health, then walks the
// roster from the last entry to the first, removing wounds until the alive
// total equals desiredTotal (clamped to [0, sum of MaxWounds]). Rear-most
// models die first. Dead models are filtered from the returned roster,
// which sums exactly to the clamped total.
func ApplyDamageToMatchTotal(models []ModelState, desiredTotal int) []ModelState {
	out := make([]ModelState, len(models))
	copy(out, models)
	for i := range out {
		out[i].CurrentWounds = out[i].MaxWounds
	}
	sumMax := SumMax(out)
	toRemove := sumMax - clamp(0, sumMax, desiredTotal)
	for i := len(out) - 1; i >= 0 && toRemove > 0; i-- {
		hit := out[i].CurrentWounds
		if hit > toRemove {
			hit = toRemove
		}
		out[i].CurrentWounds -= hit
		toRemove -= hit
	}
	return Alive(out)
}

// ApplyVolley subtracts damage from the roster as it stands, walking from
// the last alive model toward the front. Unlike ApplyDamageToMatchTotal it
// never resets anyone to full health, so manual per-model allocations
// survive. Dead models are filtered from the returned roster.
func ApplyVolley(models []ModelState, damage int) []ModelState {
	out := make([]ModelState, len(models))
	copy(out, models)
	for i := len(out) - 1; i >= 0 && damage > 0; i-- {
		hit := out[i].CurrentWounds
		if hit > damage {
			hit = damage
		}
		out[i].CurrentWounds -= hit
		damage -= hit
	}
	return Alive(out)
}

// SyncInput carries the aggregate fields a sync works from.
type SyncInput struct {
	StartingModels int
	CurrentModels  int
	StartingWounds int
	CurrentWounds  int
	Template       Template
}

// SyncPlan is the corrected state a sync writes back: the alive roster,
// the re-derived starting total, and the nominal per-model wound stat.
type SyncPlan struct {
	Models         []ModelState
	StartingWounds int
	WoundsPerModel int
	CurrentModels  int
	CurrentWounds  int
}

// PlanSync derives a consistent roster from the unit's aggregates. The
// starting baseline fixes StartingWounds (its MaxWounds sum can disagree
// with the stored value when the template changed), the current baseline is
// damaged down to the recorded wound total, and a unit that looks fully
// healthy but carries a stale stored total is reset to the fresh full
// total. Calling PlanSync again on its own output yields the same plan.
func PlanSync(in SyncInput) SyncPlan {
	startBaseline := BuildBaseline(in.Template, in.StartingModels)
	startingWounds := SumMax(startBaseline)

	currentBaseline := BuildBaseline(in.Template, in.CurrentModels)

	desired := in.CurrentWounds
	if in.CurrentModels == in.StartingModels && in.CurrentWounds == in.StartingWounds {
		// Fully healthy unit with a stale stored total: trust the template.
		desired = SumMax(currentBaseline)
	}
	alive := ApplyDamageToMatchTotal(currentBaseline, desired)

	wpm := 1
	for _, m := range startBaseline {
		if m.MaxWounds > wpm {
			wpm = m.MaxWounds
		}
	}
	return SyncPlan{
		Models:         alive,
		StartingWounds: startingWounds,
		WoundsPerModel: wpm,
		CurrentModels:  len(alive),
		CurrentWounds:  SumCurrent(alive),
	}
}

// ========================= Mutations =========================

// UpdateModelWounds applies a signed wound delta to one model. The result
// must stay inside [0, MaxWounds]; callers disable the control otherwise
// and an out-of-range delta is an error, not a clamp.
func UpdateModelWounds(models []ModelState, index, delta int) error {
	if index < 0 || index >= len(models) {
		return fmt.Errorf("model index %d out of range (roster has %d)", index, len(models))
	}
	next := models[index].CurrentWounds + delta
	if next < 0 || next > models[index].MaxWounds {
		return fmt.Errorf("wounds %d out of range [0,%d]", next, models[index].MaxWounds)
	}
	models[index].CurrentWounds = next
	return nil
}

// DestroyModel zeroes one model's wounds unconditionally. Confirmation, if
// any, is the caller's concern.
func DestroyModel(models []ModelState, index int) error {
	if index < 0 || index >= len(models) {
		return fmt.Errorf("model index %d out of range (roster has %d)", index, len(models))
	}
	models[index].CurrentWounds = 0
	return nil
}

// MaxWoundCap bounds a single model's wound capacity after wargear
// adjustments.
const MaxWoundCap = 20

// AdjustMaxWounds changes one model's wound capacity by delta, clamped to
// [1, MaxWoundCap]. Current wounds shift by the applied capacity delta and
// are then clamped to [1, newMax]: a shrinking capacity clamps the model
// down, never kills it. The applied delta is returned so the caller can
// shift the unit's starting total by the same amount.
func AdjustMaxWounds(models []ModelState, index, delta int) (int, error) {
	if index < 0 || index >= len(models) {
		return 0, fmt.Errorf("model index %d out of range (roster has %d)", index, len(models))
	}
	oldMax := models[index].MaxWounds
	newMax := clamp(1, MaxWoundCap, oldMax+delta)
	maxDelta := newMax - oldMax
	models[index].MaxWounds = newMax
	models[index].CurrentWounds = clamp(1, newMax, models[index].CurrentWounds+maxDelta)
	return maxDelta, nil
}
