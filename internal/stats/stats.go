package stats

import (
	"sync"
	"time"
)

// ========================= Daily Records (in-memory) =========================
// Global bests for the current UTC day: the biggest single volley and the
// most miserable save roll. Keyed by date so stale days fall out naturally.

type TopDamage struct {
	Damage          int    `json:"damage"`
	Attacker        string `json:"attacker"`
	AttackerFaction string `json:"attacker_faction,omitempty"`
	AttackerUnit    string `json:"attacker_unit,omitempty"`
	Defender        string `json:"defender,omitempty"`
	Weapon          string `json:"weapon,omitempty"`
	Time            int64  `json:"time"`
}

type WorstSave struct {
	Roll            int    `json:"roll"`
	Need            int    `json:"need"`
	Defender        string `json:"defender"`
	DefenderFaction string `json:"defender_faction,omitempty"`
	DefenderUnit    string `json:"defender_unit,omitempty"`
	Count           int    `json:"count"`
	Time            int64  `json:"time"`
}

type Daily struct {
	Date      string    `json:"date"`
	TopDamage TopDamage `json:"top_damage"`
	WorstSave WorstSave `json:"worst_save"`
}

// Tracker keeps the daily records for one server instance.
type Tracker struct {
	mu    sync.Mutex
	state Daily

	// now is swappable for tests.
	now func() time.Time
}

func NewTracker() *Tracker {
	t := &Tracker{now: time.Now}
	t.state = t.fresh()
	return t
}

func (t *Tracker) fresh() Daily {
	return Daily{
		Date:      t.now().UTC().Format("2006-01-02"),
		TopDamage: TopDamage{Damage: 0},
		WorstSave: WorstSave{Roll: 7},
	}
}

// rollover resets the state when the UTC day changed. Caller holds the lock.
func (t *Tracker) rollover() {
	if today := t.now().UTC().Format("2006-01-02"); t.state.Date != today {
		t.state = t.fresh()
	}
}

func (t *Tracker) Get() Daily {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.state
}

// MaybeTopDamage records the volley if it beats today's best.
func (t *Tracker) MaybeTopDamage(dmg int, attacker, aFac, aUnit, defender, weapon string) {
	if dmg <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	if dmg > t.state.TopDamage.Damage {
		t.state.TopDamage = TopDamage{
			Damage: dmg, Attacker: attacker, AttackerFaction: aFac, AttackerUnit: aUnit,
			Defender: defender, Weapon: weapon, Time: t.now().Unix(),
		}
	}
}

// MaybeWorstSave records the save if it undercuts today's worst.
func (t *Tracker) MaybeWorstSave(minRoll, need int, defender, dFac, dUnit string, count int) {
	if minRoll <= 0 || need <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	if minRoll < t.state.WorstSave.Roll {
		t.state.WorstSave = WorstSave{
			Roll: minRoll, Need: need, Defender: defender, DefenderFaction: dFac,
			DefenderUnit: dUnit, Count: count, Time: t.now().Unix(),
		}
	}
}

// Reset clears today's records. Intended for tests and dev convenience.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = t.fresh()
}
