package roster

// ========================= Per-Model State =========================
// A unit's wound pool is tracked per physical model. The serialized roster
// travels as a JSON string on the unit record; this package owns its shape
// and the rules that keep it consistent with the unit's aggregate counts.

// Role tags a model within a unit. The set is fixed; unknown tags decode as
// regular.
type Role string

const (
	RoleRegular       Role = "regular"
	RoleLeader        Role = "leader"
	RoleHeavyWeapon   Role = "heavy_weapon"
	RoleSpecialWeapon Role = "special_weapon"
)

// RoleInfo carries display metadata for a role tag.
type RoleInfo struct {
	Label  string `json:"label"`
	Icon   string `json:"icon"`
	Accent string `json:"accent"`
}

var roleInfo = map[Role]RoleInfo{
	RoleRegular:       {Label: "Trooper", Icon: "shield", Accent: "#9ca3af"},
	RoleLeader:        {Label: "Leader", Icon: "chevrons", Accent: "#c9a753"},
	RoleHeavyWeapon:   {Label: "Heavy Weapon", Icon: "crosshair", Accent: "#b45309"},
	RoleSpecialWeapon: {Label: "Special Weapon", Icon: "flame", Accent: "#2563eb"},
}

// Info returns display metadata for r, falling back to the regular entry.
func (r Role) Info() RoleInfo {
	if info, ok := roleInfo[r]; ok {
		return info
	}
	return roleInfo[RoleRegular]
}

func normalizeRole(r Role) Role {
	switch r {
	case RoleRegular, RoleLeader, RoleHeavyWeapon, RoleSpecialWeapon:
		return r
	case "sergeant": // older payloads tag the leader as sergeant
		return RoleLeader
	default:
		return RoleRegular
	}
}

// ModelState is one physical model within a unit. CurrentWounds == 0 means
// the model is dead; dead models contribute 0 to wound sums and are
// excluded from alive views.
type ModelState struct {
	Role          Role `json:"role"`
	CurrentWounds int  `json:"currentWounds"`
	MaxWounds     int  `json:"maxWounds"`
}

func (m ModelState) Alive() bool { return m.CurrentWounds > 0 }

// RoleComposition is one entry of a unit's template makeup, e.g.
// "4 Trooper @1W, 1 Leader @2W".
type RoleComposition struct {
	Role           Role `json:"role"`
	Count          int  `json:"count"`
	WoundsPerModel int  `json:"woundsPerModel"`
}

// Alive filters models down to the ones still standing, preserving order.
func Alive(models []ModelState) []ModelState {
	out := make([]ModelState, 0, len(models))
	for _, m := range models {
		if m.Alive() {
			out = append(out, m)
		}
	}
	return out
}

// SumCurrent sums CurrentWounds over all entries, dead included.
func SumCurrent(models []ModelState) int {
	total := 0
	for _, m := range models {
		total += m.CurrentWounds
	}
	return total
}

// SumMax sums MaxWounds over all entries.
func SumMax(models []ModelState) int {
	total := 0
	for _, m := range models {
		total += m.MaxWounds
	}
	return total
}

func clamp(lo, hi, v int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
