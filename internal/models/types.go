package models

import (
	"github.com/pefman/w40k-companion/internal/roster"
)

// ========================= Domain Models =========================
// Minimal shapes for match tracking. Datasheet API responses are mapped
// into these; the session store mutates them under its lock.

type Weapon struct {
	Name    string `json:"name"`
	Range   string `json:"range"`
	Attacks int    `json:"attacks"`
	// Original attacks expression from the data source (e.g., "4D6", "D3+3").
	// When present, the calculator rolls this expression each time.
	AttacksExpr string `json:"attacks_expr,omitempty"`
	Skill       int    `json:"skill"`
	S           int    `json:"s"`
	AP          int    `json:"ap"`
	D           int    `json:"d"`
	DamageExpr  string `json:"damage_expr,omitempty"`
	// Derived rules/keywords
	LethalHits        bool     `json:"lethal_hits,omitempty"`
	TwinLinked        bool     `json:"twin_linked,omitempty"`
	Torrent           bool     `json:"torrent,omitempty"`
	DevastatingWounds bool     `json:"devastating_wounds,omitempty"`
	SustainedHits     int      `json:"sustained_hits,omitempty"`
	AntiTag           string   `json:"anti_tag,omitempty"`
	AntiValue         int      `json:"anti_value,omitempty"`
	Tags              []string `json:"tags,omitempty"`
}

// Datasheet is the template a unit is loaded from.
type Datasheet struct {
	Faction     string                   `json:"faction,omitempty"`
	Name        string                   `json:"name"`
	Role        string                   `json:"role,omitempty"`
	W           int                      `json:"W"`
	T           int                      `json:"T"`
	Sv          int                      `json:"Sv"`
	InvSv       int                      `json:"InvSv,omitempty"`
	Weapons     []Weapon                 `json:"weapons"`
	Keywords    []string                 `json:"keywords,omitempty"`
	Points      int                      `json:"points,omitempty"`
	FNP         int                      `json:"FNP,omitempty"` // 0 if none, else threshold (e.g., 5 means 5+)
	DamageRed   int                      `json:"DR,omitempty"`  // per-attack damage reduction
	Composition []roster.RoleComposition `json:"composition,omitempty"`
}

// Side identifies which army a unit or score belongs to.
type Side string

const (
	SideAttacker Side = "attacker"
	SideDefender Side = "defender"
)

func (s Side) Valid() bool { return s == SideAttacker || s == SideDefender }

// Unit is one roster entry in a live session.
type Unit struct {
	ID             string `json:"id"`
	Side           Side   `json:"side"`
	Name           string `json:"name"`
	StartingModels int    `json:"starting_models"`
	CurrentModels  int    `json:"current_models"`
	StartingWounds int    `json:"starting_wounds"`
	CurrentWounds  int    `json:"current_wounds"`
	WoundsPerModel int    `json:"wounds_per_model"`
	// Serialized per-model breakdown; authoritative when present and
	// consistent, rebuilt by sync otherwise.
	ModelsPayload string `json:"models_array,omitempty"`
	// Serialized template makeup (role/count/wounds per model).
	CompositionPayload string     `json:"composition_data,omitempty"`
	IsDestroyed        bool       `json:"is_destroyed"`
	IsBattleShocked    bool       `json:"is_battle_shocked"`
	Points             int        `json:"points,omitempty"`
	Datasheet          *Datasheet `json:"datasheet,omitempty"`
}

// Mismatch reports whether the stored roster disagrees with the unit's
// model count. A mismatched unit needs an explicit sync; it is never
// auto-corrected.
func (u *Unit) Mismatch() bool {
	d := roster.DecodeModels(u.ModelsPayload)
	if d.State != roster.Parsed {
		return u.CurrentModels != 0
	}
	return len(d.Models) != u.CurrentModels
}

// Template assembles the baseline-synthesis inputs from the unit record.
// A malformed composition payload degrades to no composition.
func (u *Unit) Template() roster.Template {
	tpl := roster.Template{WoundsPerModel: u.WoundsPerModel}
	if u.Datasheet != nil {
		tpl.DatasheetWounds = u.Datasheet.W
	}
	if d := roster.DecodeComposition(u.CompositionPayload); d.State == roster.Parsed {
		tpl.Composition = d.Entries
	}
	return tpl
}

// Stratagem is one usable faction stratagem.
type Stratagem struct {
	Name          string   `json:"name"`
	Cost          int      `json:"cost"`
	Phases        []string `json:"phases,omitempty"` // empty means any phase
	OncePerBattle bool     `json:"once_per_battle,omitempty"`
	Description   string   `json:"description,omitempty"`
}

// SecondaryObjective is a drawn secondary card for one side.
type SecondaryObjective struct {
	Name      string `json:"name"`
	Points    int    `json:"points"`
	Scored    bool   `json:"scored"`
	Discarded bool   `json:"discarded"`
}

// ObjectiveControl says who holds a marker.
type ObjectiveControl string

const (
	ControlNone      ObjectiveControl = "none"
	ControlAttacker  ObjectiveControl = "attacker"
	ControlDefender  ObjectiveControl = "defender"
	ControlContested ObjectiveControl = "contested"
)

func (c ObjectiveControl) Valid() bool {
	switch c {
	case ControlNone, ControlAttacker, ControlDefender, ControlContested:
		return true
	}
	return false
}

// ObjectiveMarker is one mission objective on the table.
type ObjectiveMarker struct {
	ID      string           `json:"id"`
	Control ObjectiveControl `json:"control"`
}

// SideState tracks everything one army owns in a session.
type SideState struct {
	Faction       string               `json:"faction,omitempty"`
	CommandPoints int                  `json:"command_points"`
	PrimaryVP     int                  `json:"primary_vp"`
	SecondaryVP   int                  `json:"secondary_vp"`
	Units         []*Unit              `json:"units"`
	Secondaries   []SecondaryObjective `json:"secondaries"`
	// Names of once-per-battle stratagems already spent.
	UsedStratagems []string `json:"used_stratagems,omitempty"`
}

// Session is one tracked match.
type Session struct {
	ID          string            `json:"id"`
	Mission     string            `json:"mission,omitempty"`
	Round       int               `json:"round"`
	Turn        Side              `json:"turn"`
	Attacker    SideState         `json:"attacker"`
	Defender    SideState         `json:"defender"`
	Objectives  []ObjectiveMarker `json:"objectives"`
	Ended       bool              `json:"ended"`
	CreatedAt   int64             `json:"created_at"`
	LastUpdated int64             `json:"last_updated"`
}

// SideState returns the state for one side of the session.
func (s *Session) SideState(side Side) *SideState {
	if side == SideDefender {
		return &s.Defender
	}
	return &s.Attacker
}

// FindUnit looks a unit up by id on either side.
func (s *Session) FindUnit(unitID string) *Unit {
	for _, u := range s.Attacker.Units {
		if u.ID == unitID {
			return u
		}
	}
	for _, u := range s.Defender.Units {
		if u.ID == unitID {
			return u
		}
	}
	return nil
}

// WebSocket message structure
type WsMsg struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
