package datasheet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pefman/w40k-companion/internal/roster"
)

func TestMustAtoi(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"3+", 0, 3},
		{"-1", 0, -1},
		{" 12 ", 0, 12},
		{"", 5, 5},
		{"D6", 2, 6},
		{"about 4 models", 0, 4},
	}
	for _, c := range cases {
		if got := mustAtoi(c.in, c.def); got != c.want {
			t.Fatalf("mustAtoi(%q,%d) = %d, want %d", c.in, c.def, got, c.want)
		}
	}
}

func TestParseSaveAndAP(t *testing.T) {
	if got := parseSave("3+"); got != 3 {
		t.Fatalf("parseSave(3+) = %d", got)
	}
	if got := parseSave("9+"); got != 6 {
		t.Fatalf("parseSave clamps to 6, got %d", got)
	}
	if got := parseAP("-2"); got != 2 {
		t.Fatalf("parseAP(-2) = %d, want positive 2", got)
	}
	if got := parseAP(""); got != 0 {
		t.Fatalf("parseAP empty = %d", got)
	}
}

func TestToSlug(t *testing.T) {
	if got := toSlug("T'au Empire"); got != "tau-empire" {
		t.Fatalf("toSlug = %q", got)
	}
	if got := toSlug("Space Marines & Friends"); got != "space-marines-and-friends" {
		t.Fatalf("toSlug = %q", got)
	}
}

func TestDeriveWeaponRules(t *testing.T) {
	w := deriveWeaponRules(apiWeapon{
		Name:     "Heavy Bolter",
		Attacks:  "3",
		BSOrWS:   "4+",
		Strength: "5",
		AP:       "-1",
		Damage:   "2",
		Type:     "Ranged",
		Desc:     "Sustained Hits 1, Twin-linked, Anti-Infantry (4+)",
	})
	if !w.TwinLinked || w.SustainedHits != 1 {
		t.Fatalf("keyword derivation failed: %+v", w)
	}
	if w.AntiTag != "infantry" || w.AntiValue != 4 {
		t.Fatalf("anti derivation failed: tag=%q value=%d", w.AntiTag, w.AntiValue)
	}
	if w.Skill != 4 || w.AP != 1 || w.D != 2 {
		t.Fatalf("stat parsing failed: %+v", w)
	}
}

func TestParseFNPAndDR(t *testing.T) {
	fnp, dr := parseFNPAndDR([]apiAbility{
		{Name: "Disgustingly Resilient", Description: "This model has Feel No Pain 5+."},
		{Name: "Duty Eternal", Description: "Reduce damage by 1 from each attack."},
	})
	if fnp != 5 {
		t.Fatalf("fnp = %d, want 5", fnp)
	}
	if dr != 1 {
		t.Fatalf("dr = %d, want 1", dr)
	}
}

func TestBuildComposition(t *testing.T) {
	rows := []apiModel{
		{Name: "Intercessor", W: "2"},
		{Name: "Intercessor Sergeant", W: "2"},
	}
	comp := buildComposition(rows, 5)
	if len(comp) != 2 {
		t.Fatalf("expected 2 entries, got %+v", comp)
	}
	if comp[0].Role != roster.RoleLeader || comp[0].Count != 1 {
		t.Fatalf("expected leader first, got %+v", comp[0])
	}
	if comp[1].Role != roster.RoleRegular || comp[1].Count != 4 {
		t.Fatalf("expected 4 regulars, got %+v", comp[1])
	}

	// Single profile, no named leader: whole squad is regular.
	comp = buildComposition([]apiModel{{Name: "Termagant", W: "1"}}, 10)
	if len(comp) != 1 || comp[0].Count != 10 || comp[0].WoundsPerModel != 1 {
		t.Fatalf("uniform squad: got %+v", comp)
	}
}

func newUpstream(t *testing.T, hits *atomic.Int64) *httptest.Server {
	mux := http.NewServeMux()
	reply := func(v any) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			json.NewEncoder(w).Encode(v)
		}
	}
	mux.HandleFunc("/api/factions", reply([]Faction{{ID: "SM", Name: "Space Marines"}}))
	mux.HandleFunc("/api/space-marines/units", reply([]apiUnit{{ID: "ds1", Name: "Intercessor Squad", Role: "Battleline"}}))
	mux.HandleFunc("/api/space-marines/ds1/models", reply([]apiModel{
		{Name: "Intercessor", T: "4", Sv: "3+", W: "2"},
		{Name: "Intercessor Sergeant", T: "4", Sv: "3+", W: "2"},
	}))
	mux.HandleFunc("/api/space-marines/ds1/weapons", reply([]apiWeapon{
		{Name: "Bolt Rifle", Range: "24", Attacks: "2", BSOrWS: "3+", Strength: "4", AP: "-1", Damage: "1"},
	}))
	mux.HandleFunc("/api/space-marines/ds1/keywords", reply([]apiKeyword{{Keyword: "Infantry"}}))
	mux.HandleFunc("/api/space-marines/ds1/abilities", reply([]apiAbility{}))
	mux.HandleFunc("/api/space-marines/ds1/costs", reply([]apiCost{{Description: "5 models", Cost: "80"}}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDatasheetsEndToEnd(t *testing.T) {
	var hits atomic.Int64
	srv := newUpstream(t, &hits)
	c := NewClient(srv.URL, time.Minute)

	sheets, err := c.Datasheets(context.Background(), "Space Marines")
	if err != nil {
		t.Fatalf("datasheets: %v", err)
	}
	if len(sheets) != 1 {
		t.Fatalf("expected 1 sheet, got %d", len(sheets))
	}
	ds := sheets[0]
	if ds.Name != "Intercessor Squad" || ds.W != 2 || ds.T != 4 || ds.Sv != 3 {
		t.Fatalf("sheet stats: %+v", ds)
	}
	if ds.Points != 80 {
		t.Fatalf("points = %d, want 80", ds.Points)
	}
	if len(ds.Composition) != 2 || ds.Composition[0].Role != roster.RoleLeader {
		t.Fatalf("composition: %+v", ds.Composition)
	}
	if len(ds.Weapons) != 1 || ds.Weapons[0].AP != 1 {
		t.Fatalf("weapons: %+v", ds.Weapons)
	}

	// Second call is served from cache.
	before := hits.Load()
	if _, err := c.Datasheets(context.Background(), "Space Marines"); err != nil {
		t.Fatalf("cached datasheets: %v", err)
	}
	if hits.Load() != before {
		t.Fatalf("expected cache hit, upstream saw %d more requests", hits.Load()-before)
	}

	// Invalidate forces a refetch.
	c.Invalidate("Space Marines")
	if _, err := c.Datasheets(context.Background(), "Space Marines"); err != nil {
		t.Fatalf("refetched datasheets: %v", err)
	}
	if hits.Load() == before {
		t.Fatal("expected refetch after invalidate")
	}
}

func TestDatasheetLookup(t *testing.T) {
	var hits atomic.Int64
	srv := newUpstream(t, &hits)
	c := NewClient(srv.URL, time.Minute)

	ds, err := c.Datasheet(context.Background(), "Space Marines", "intercessor squad")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ds.Name != "Intercessor Squad" {
		t.Fatalf("lookup returned %q", ds.Name)
	}
	if _, err := c.Datasheet(context.Background(), "Space Marines", "Terminators"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestFactionsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, time.Minute)
	if _, err := c.Factions(context.Background()); err == nil {
		t.Fatal("expected upstream error")
	}
}
