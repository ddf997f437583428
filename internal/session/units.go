package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pefman/w40k-companion/internal/models"
	"github.com/pefman/w40k-companion/internal/roster"
)

// ========================= Unit Operations =========================

// UnitPatch is a partial unit update. Nil fields are left untouched.
type UnitPatch struct {
	CurrentModels   *int    `json:"current_models,omitempty"`
	CurrentWounds   *int    `json:"current_wounds,omitempty"`
	StartingWounds  *int    `json:"starting_wounds,omitempty"`
	WoundsPerModel  *int    `json:"wounds_per_model,omitempty"`
	ModelsPayload   *string `json:"models_array,omitempty"`
	IsDestroyed     *bool   `json:"is_destroyed,omitempty"`
	IsBattleShocked *bool   `json:"is_battle_shocked,omitempty"`
}

// PatchUnit applies a partial update verbatim. It does not reconcile the
// per-model roster; callers that change counts should follow with SyncUnit.
func (s *Store) PatchUnit(id, unitID string, p UnitPatch) error {
	return s.mutateUnit(id, unitID, func(u *models.Unit) error {
		if p.CurrentModels != nil {
			if *p.CurrentModels < 0 {
				return fmt.Errorf("current models cannot be negative")
			}
			u.CurrentModels = *p.CurrentModels
		}
		if p.CurrentWounds != nil {
			if *p.CurrentWounds < 0 {
				return fmt.Errorf("current wounds cannot be negative")
			}
			u.CurrentWounds = *p.CurrentWounds
		}
		if p.StartingWounds != nil {
			u.StartingWounds = *p.StartingWounds
		}
		if p.WoundsPerModel != nil {
			u.WoundsPerModel = *p.WoundsPerModel
		}
		if p.ModelsPayload != nil {
			u.ModelsPayload = *p.ModelsPayload
			if d := roster.DecodeModels(*p.ModelsPayload); d.State == roster.Malformed {
				s.log.Warn("unit patched with malformed roster payload",
					zap.String("session", id), zap.String("unit", unitID))
			}
		}
		if p.IsDestroyed != nil {
			u.IsDestroyed = *p.IsDestroyed
		}
		if p.IsBattleShocked != nil {
			u.IsBattleShocked = *p.IsBattleShocked
		}
		return nil
	})
}

// ApplyDamage deals total volley damage against the stored roster, taking
// wounds off the rear-most alive models first. The stored roster is
// authoritative when it parses: manual per-model allocations are kept.
// A missing or malformed payload is rebuilt from the template first.
func (s *Store) ApplyDamage(id, unitID string, damage int) error {
	if damage < 0 {
		return fmt.Errorf("damage cannot be negative")
	}
	return s.mutateUnit(id, unitID, func(u *models.Unit) error {
		s.applyRoster(u, roster.ApplyVolley(s.rosterFor(id, u), damage))
		return nil
	})
}

// UpdateModelWounds shifts one model's current wounds by delta. The change
// is rejected, not clamped, if it would leave the model outside its bounds.
func (s *Store) UpdateModelWounds(id, unitID string, index, delta int) error {
	return s.mutateUnit(id, unitID, func(u *models.Unit) error {
		ms, err := s.parsedRoster(u)
		if err != nil {
			return err
		}
		if err := roster.UpdateModelWounds(ms, index, delta); err != nil {
			return err
		}
		s.applyRoster(u, ms)
		return nil
	})
}

// DestroyModel removes one model outright.
func (s *Store) DestroyModel(id, unitID string, index int) error {
	return s.mutateUnit(id, unitID, func(u *models.Unit) error {
		ms, err := s.parsedRoster(u)
		if err != nil {
			return err
		}
		if err := roster.DestroyModel(ms, index); err != nil {
			return err
		}
		s.applyRoster(u, ms)
		return nil
	})
}

// AdjustModelMaxWounds changes one model's wound ceiling (wargear, abilities)
// and moves the unit's starting wounds by the applied amount.
func (s *Store) AdjustModelMaxWounds(id, unitID string, index, delta int) error {
	return s.mutateUnit(id, unitID, func(u *models.Unit) error {
		ms, err := s.parsedRoster(u)
		if err != nil {
			return err
		}
		applied, err := roster.AdjustMaxWounds(ms, index, delta)
		if err != nil {
			return err
		}
		u.StartingWounds += applied
		if ms[index].MaxWounds > u.WoundsPerModel {
			u.WoundsPerModel = ms[index].MaxWounds
		}
		s.applyRoster(u, ms)
		return nil
	})
}

// SyncUnit rebuilds the unit's per-model roster from its counters and
// template, the repair path for missing, malformed, or mismatched payloads.
func (s *Store) SyncUnit(id, unitID string) error {
	return s.mutateUnit(id, unitID, func(u *models.Unit) error {
		plan := roster.PlanSync(roster.SyncInput{
			StartingModels: u.StartingModels,
			CurrentModels:  u.CurrentModels,
			StartingWounds: u.StartingWounds,
			CurrentWounds:  u.CurrentWounds,
			Template:       u.Template(),
		})
		u.ModelsPayload = roster.EncodeModels(plan.Models)
		u.StartingWounds = plan.StartingWounds
		u.WoundsPerModel = plan.WoundsPerModel
		u.CurrentModels = plan.CurrentModels
		u.CurrentWounds = plan.CurrentWounds
		u.IsDestroyed = plan.CurrentModels == 0
		s.log.Debug("unit roster synced",
			zap.String("session", id), zap.String("unit", unitID),
			zap.Int("models", plan.CurrentModels), zap.Int("wounds", plan.CurrentWounds))
		return nil
	})
}

func (s *Store) mutateUnit(id, unitID string, fn func(*models.Unit) error) error {
	return s.mutate(id, func(sess *models.Session) error {
		u := sess.FindUnit(unitID)
		if u == nil {
			return fmt.Errorf("%w: %s", ErrUnitNotFound, unitID)
		}
		return fn(u)
	})
}

// parsedRoster decodes the stored roster for per-model mutation. Absent or
// malformed payloads are an error here: the caller must sync first.
func (s *Store) parsedRoster(u *models.Unit) ([]roster.ModelState, error) {
	d := roster.DecodeModels(u.ModelsPayload)
	if d.State != roster.Parsed {
		return nil, fmt.Errorf("unit %s roster is %s, sync required", u.ID, d.State)
	}
	return d.Models, nil
}

// rosterFor returns a usable roster for damage application, rebuilding a
// baseline when the stored payload cannot be decoded.
func (s *Store) rosterFor(id string, u *models.Unit) []roster.ModelState {
	d := roster.DecodeModels(u.ModelsPayload)
	if d.State == roster.Parsed {
		return d.Models
	}
	if d.State == roster.Malformed {
		s.log.Warn("rebuilding malformed unit roster",
			zap.String("session", id), zap.String("unit", u.ID))
	}
	ms := roster.BuildBaseline(u.Template(), u.StartingModels)
	return roster.ApplyDamageToMatchTotal(ms, u.CurrentWounds)
}

// applyRoster writes a mutated roster back to the unit, dropping dead
// models and recomputing the aggregate counters from what survived.
func (s *Store) applyRoster(u *models.Unit, ms []roster.ModelState) {
	alive := ms[:0:0]
	for _, m := range ms {
		if m.Alive() {
			alive = append(alive, m)
		}
	}
	u.ModelsPayload = roster.EncodeModels(alive)
	u.CurrentModels = len(alive)
	u.CurrentWounds = roster.SumCurrent(alive)
	u.IsDestroyed = len(alive) == 0
}
