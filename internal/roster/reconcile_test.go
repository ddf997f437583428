package roster

import "testing"

func uniformTemplate(wounds int) Template {
	return Template{WoundsPerModel: wounds}
}

func mixedTemplate() Template {
	return Template{
		Composition: []RoleComposition{
			{Role: RoleLeader, Count: 1, WoundsPerModel: 2},
			{Role: RoleRegular, Count: 4, WoundsPerModel: 1},
		},
	}
}

func TestBuildBaselineLengthAndHealth(t *testing.T) {
	templates := map[string]Template{
		"uniform":      uniformTemplate(2),
		"mixed":        mixedTemplate(),
		"empty":        {},
		"datasheet":    {DatasheetWounds: 3},
		"small square": {Composition: []RoleComposition{{Role: RoleLeader, Count: 1, WoundsPerModel: 4}}},
	}
	for name, tpl := range templates {
		for _, count := range []int{0, 1, 3, 5, 12} {
			models := BuildBaseline(tpl, count)
			if len(models) != count {
				t.Fatalf("%s count=%d: got %d models", name, count, len(models))
			}
			for i, m := range models {
				if m.CurrentWounds != m.MaxWounds {
					t.Fatalf("%s count=%d: model %d not at full health (%d/%d)", name, count, i, m.CurrentWounds, m.MaxWounds)
				}
				if m.MaxWounds < 1 {
					t.Fatalf("%s count=%d: model %d has max wounds %d", name, count, i, m.MaxWounds)
				}
			}
		}
	}
}

func TestBuildBaselineFallbackIsRegular(t *testing.T) {
	models := BuildBaseline(uniformTemplate(2), 4)
	for i, m := range models {
		if m.Role != RoleRegular {
			t.Fatalf("model %d: expected regular, got %s", i, m.Role)
		}
		if m.MaxWounds != 2 {
			t.Fatalf("model %d: expected 2 max wounds, got %d", i, m.MaxWounds)
		}
	}
	// No wound stat anywhere defaults to 1.
	for _, m := range BuildBaseline(Template{}, 3) {
		if m.MaxWounds != 1 {
			t.Fatalf("expected 1 max wound, got %d", m.MaxWounds)
		}
	}
}

func TestBuildBaselinePadsWithLastRegular(t *testing.T) {
	// Composition describes a 5-model minimum squad; unit runs 8.
	models := BuildBaseline(mixedTemplate(), 8)
	if len(models) != 8 {
		t.Fatalf("expected 8 models, got %d", len(models))
	}
	for i := 5; i < 8; i++ {
		if models[i].Role != RoleRegular || models[i].MaxWounds != 1 {
			t.Fatalf("padded model %d: got %s %d/%d", i, models[i].Role, models[i].CurrentWounds, models[i].MaxWounds)
		}
	}
}

func TestBuildBaselinePadsWithFinalEntryWhenNoRegular(t *testing.T) {
	tpl := Template{Composition: []RoleComposition{{Role: RoleLeader, Count: 1, WoundsPerModel: 3}}}
	models := BuildBaseline(tpl, 3)
	for i, m := range models {
		if m.Role != RoleLeader || m.MaxWounds != 3 {
			t.Fatalf("model %d: got %s %d/%d", i, m.Role, m.CurrentWounds, m.MaxWounds)
		}
	}
}

func TestBuildBaselineTruncatesOvershoot(t *testing.T) {
	models := BuildBaseline(mixedTemplate(), 3)
	want := []Role{RoleLeader, RoleRegular, RoleRegular}
	if len(models) != 3 {
		t.Fatalf("expected 3 models, got %d", len(models))
	}
	for i, m := range models {
		if m.Role != want[i] {
			t.Fatalf("model %d: expected %s, got %s", i, want[i], m.Role)
		}
	}
}

func TestApplyDamageConservation(t *testing.T) {
	base := BuildBaseline(mixedTemplate(), 5) // sumMax = 6
	for desired := 0; desired <= 6; desired++ {
		alive := ApplyDamageToMatchTotal(base, desired)
		if got := SumCurrent(alive); got != desired {
			t.Fatalf("desired=%d: alive roster sums to %d", desired, got)
		}
		for i, m := range alive {
			if !m.Alive() {
				t.Fatalf("desired=%d: dead model %d in alive roster", desired, i)
			}
			if m.CurrentWounds > m.MaxWounds {
				t.Fatalf("desired=%d: model %d over max (%d/%d)", desired, i, m.CurrentWounds, m.MaxWounds)
			}
		}
	}
}

func TestApplyDamageTailFirst(t *testing.T) {
	base := BuildBaseline(uniformTemplate(2), 3) // [2,2,2]
	alive := ApplyDamageToMatchTotal(base, 3)
	// 3 wounds removed from the tail: last model dead, middle at 1, first untouched.
	if len(alive) != 2 {
		t.Fatalf("expected 2 alive models, got %d", len(alive))
	}
	if alive[0].CurrentWounds != 2 {
		t.Fatalf("first model should be untouched, got %d/2", alive[0].CurrentWounds)
	}
	if alive[1].CurrentWounds != 1 {
		t.Fatalf("middle model should be at 1, got %d/2", alive[1].CurrentWounds)
	}
}

func TestApplyDamageClampsDesiredTotal(t *testing.T) {
	base := BuildBaseline(uniformTemplate(1), 5)
	if alive := ApplyDamageToMatchTotal(base, -5); len(alive) != 0 {
		t.Fatalf("desired=-5: expected empty roster, got %d models", len(alive))
	}
	alive := ApplyDamageToMatchTotal(base, 105)
	if len(alive) != 5 || SumCurrent(alive) != 5 {
		t.Fatalf("desired=105: expected full 5-model roster, got %d models sum %d", len(alive), SumCurrent(alive))
	}
}

func TestApplyVolleyKeepsExistingAllocations(t *testing.T) {
	// Head model already wounded by hand; a volley must not heal it.
	ms := []ModelState{
		{Role: RoleLeader, CurrentWounds: 1, MaxWounds: 2},
		{Role: RoleRegular, CurrentWounds: 2, MaxWounds: 2},
		{Role: RoleRegular, CurrentWounds: 2, MaxWounds: 2},
	}
	alive := ApplyVolley(ms, 1)
	if len(alive) != 3 || SumCurrent(alive) != 4 {
		t.Fatalf("expected 3 models sum 4, got %d models sum %d", len(alive), SumCurrent(alive))
	}
	if alive[0].CurrentWounds != 1 {
		t.Fatalf("leader should stay at 1/2, got %d/2", alive[0].CurrentWounds)
	}
	if alive[2].CurrentWounds != 1 {
		t.Fatalf("tail model should drop to 1/2, got %d/2", alive[2].CurrentWounds)
	}
}

func TestApplyVolleySpillsAcrossModels(t *testing.T) {
	ms := []ModelState{
		{Role: RoleRegular, CurrentWounds: 2, MaxWounds: 2},
		{Role: RoleRegular, CurrentWounds: 1, MaxWounds: 2},
		{Role: RoleRegular, CurrentWounds: 2, MaxWounds: 2},
	}
	alive := ApplyVolley(ms, 3)
	// Tail model (2) dies, then the already-wounded middle model (1) dies.
	if len(alive) != 1 || alive[0].CurrentWounds != 2 {
		t.Fatalf("expected lone untouched model, got %d models", len(alive))
	}
	if rest := ApplyVolley(ms, 50); len(rest) != 0 {
		t.Fatalf("overkill volley should wipe the roster, got %d models", len(rest))
	}
}

func TestApplyVolleyDoesNotMutateInput(t *testing.T) {
	ms := []ModelState{
		{Role: RoleRegular, CurrentWounds: 2, MaxWounds: 2},
		{Role: RoleRegular, CurrentWounds: 2, MaxWounds: 2},
	}
	_ = ApplyVolley(ms, 3)
	for i, m := range ms {
		if m.CurrentWounds != 2 {
			t.Fatalf("input roster mutated at %d: %d/2", i, m.CurrentWounds)
		}
	}
}

func TestApplyDamageDoesNotMutateInput(t *testing.T) {
	base := BuildBaseline(uniformTemplate(2), 3)
	_ = ApplyDamageToMatchTotal(base, 1)
	for i, m := range base {
		if m.CurrentWounds != 2 {
			t.Fatalf("input roster mutated at %d: %d/2", i, m.CurrentWounds)
		}
	}
}

func TestPlanSyncFullHealthUnit(t *testing.T) {
	in := SyncInput{
		StartingModels: 5,
		CurrentModels:  5,
		StartingWounds: 5,
		CurrentWounds:  5,
		Template:       uniformTemplate(1),
	}
	plan := PlanSync(in)
	if len(plan.Models) != 5 {
		t.Fatalf("expected 5 models, got %d", len(plan.Models))
	}
	for i, m := range plan.Models {
		if m.Role != RoleRegular || m.CurrentWounds != 1 || m.MaxWounds != 1 {
			t.Fatalf("model %d: got %s %d/%d", i, m.Role, m.CurrentWounds, m.MaxWounds)
		}
	}
	if plan.StartingWounds != 5 || plan.WoundsPerModel != 1 {
		t.Fatalf("plan aggregates: starting=%d wpm=%d", plan.StartingWounds, plan.WoundsPerModel)
	}
}

func TestPlanSyncPartialDamageUniform(t *testing.T) {
	in := SyncInput{
		StartingModels: 5,
		CurrentModels:  5,
		StartingWounds: 5,
		CurrentWounds:  3,
		Template:       uniformTemplate(1),
	}
	plan := PlanSync(in)
	if len(plan.Models) != 3 {
		t.Fatalf("expected 3 alive models, got %d", len(plan.Models))
	}
	for i, m := range plan.Models {
		if m.CurrentWounds != 1 || m.MaxWounds != 1 {
			t.Fatalf("model %d: got %d/%d", i, m.CurrentWounds, m.MaxWounds)
		}
	}
	if plan.CurrentModels != 3 || plan.CurrentWounds != 3 {
		t.Fatalf("plan aggregates: models=%d wounds=%d", plan.CurrentModels, plan.CurrentWounds)
	}
}

func TestPlanSyncMixedComposition(t *testing.T) {
	in := SyncInput{
		StartingModels: 5,
		CurrentModels:  5,
		StartingWounds: 6,
		CurrentWounds:  4,
		Template:       mixedTemplate(),
	}
	plan := PlanSync(in)
	if plan.StartingWounds != 6 {
		t.Fatalf("expected recomputed starting wounds 6, got %d", plan.StartingWounds)
	}
	if plan.WoundsPerModel != 2 {
		t.Fatalf("expected wounds-per-model 2 (leader), got %d", plan.WoundsPerModel)
	}
	// 2 wounds removed tail-first: two regulars dead, leader untouched.
	if len(plan.Models) != 3 {
		t.Fatalf("expected 3 alive models, got %d", len(plan.Models))
	}
	if plan.Models[0].Role != RoleLeader || plan.Models[0].CurrentWounds != 2 {
		t.Fatalf("leader should be untouched, got %s %d/%d", plan.Models[0].Role, plan.Models[0].CurrentWounds, plan.Models[0].MaxWounds)
	}
	if SumCurrent(plan.Models) != 4 {
		t.Fatalf("alive roster sums to %d, want 4", SumCurrent(plan.Models))
	}
}

func TestPlanSyncStaleFullHealthTotal(t *testing.T) {
	// Looks fully healthy but the stored totals disagree with the template:
	// the fresh full total wins.
	in := SyncInput{
		StartingModels: 5,
		CurrentModels:  5,
		StartingWounds: 5,
		CurrentWounds:  5,
		Template:       mixedTemplate(), // true full total is 6
	}
	plan := PlanSync(in)
	if plan.StartingWounds != 6 || plan.CurrentWounds != 6 {
		t.Fatalf("expected corrected totals 6/6, got %d/%d", plan.CurrentWounds, plan.StartingWounds)
	}
	if len(plan.Models) != 5 {
		t.Fatalf("expected 5 models, got %d", len(plan.Models))
	}
}

func TestPlanSyncIdempotent(t *testing.T) {
	in := SyncInput{
		StartingModels: 5,
		CurrentModels:  4,
		StartingWounds: 6,
		CurrentWounds:  3,
		Template:       mixedTemplate(),
	}
	first := PlanSync(in)
	second := PlanSync(SyncInput{
		StartingModels: in.StartingModels,
		CurrentModels:  first.CurrentModels,
		StartingWounds: first.StartingWounds,
		CurrentWounds:  first.CurrentWounds,
		Template:       in.Template,
	})
	if len(first.Models) != len(second.Models) {
		t.Fatalf("roster length changed across syncs: %d vs %d", len(first.Models), len(second.Models))
	}
	for i := range first.Models {
		if first.Models[i] != second.Models[i] {
			t.Fatalf("model %d changed across syncs: %+v vs %+v", i, first.Models[i], second.Models[i])
		}
	}
	if first.StartingWounds != second.StartingWounds || first.CurrentWounds != second.CurrentWounds {
		t.Fatalf("aggregates changed across syncs: %+v vs %+v", first, second)
	}
}

func TestUpdateModelWoundsBounds(t *testing.T) {
	models := BuildBaseline(uniformTemplate(2), 2)
	if err := UpdateModelWounds(models, 0, +1); err == nil {
		t.Fatal("expected error raising wounds above max")
	}
	if err := UpdateModelWounds(models, 0, -1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if models[0].CurrentWounds != 1 {
		t.Fatalf("expected 1 wound, got %d", models[0].CurrentWounds)
	}
	if err := UpdateModelWounds(models, 0, -1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := UpdateModelWounds(models, 0, -1); err == nil {
		t.Fatal("expected error dropping wounds below zero")
	}
	if err := UpdateModelWounds(models, 5, -1); err == nil {
		t.Fatal("expected index error")
	}
}

func TestDestroyModel(t *testing.T) {
	models := BuildBaseline(uniformTemplate(3), 2)
	if err := DestroyModel(models, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if models[1].CurrentWounds != 0 {
		t.Fatalf("expected 0 wounds, got %d", models[1].CurrentWounds)
	}
	if alive := Alive(models); len(alive) != 1 {
		t.Fatalf("expected 1 alive model, got %d", len(alive))
	}
	if err := DestroyModel(models, -1); err == nil {
		t.Fatal("expected index error")
	}
}

func TestAdjustMaxWounds(t *testing.T) {
	models := []ModelState{{Role: RoleLeader, CurrentWounds: 2, MaxWounds: 2}}
	d, err := AdjustMaxWounds(models, 0, +1)
	if err != nil || d != 1 {
		t.Fatalf("expected applied delta 1, got %d err=%v", d, err)
	}
	if models[0].MaxWounds != 3 || models[0].CurrentWounds != 3 {
		t.Fatalf("expected 3/3, got %d/%d", models[0].CurrentWounds, models[0].MaxWounds)
	}

	// Shrinking below current clamps, never kills.
	models = []ModelState{{Role: RoleRegular, CurrentWounds: 1, MaxWounds: 2}}
	d, err = AdjustMaxWounds(models, 0, -1)
	if err != nil || d != -1 {
		t.Fatalf("expected applied delta -1, got %d err=%v", d, err)
	}
	if models[0].MaxWounds != 1 || models[0].CurrentWounds != 1 {
		t.Fatalf("expected 1/1, got %d/%d", models[0].CurrentWounds, models[0].MaxWounds)
	}

	// Capacity bounds: [1, 20]. Applied delta reflects the clamp.
	models = []ModelState{{Role: RoleRegular, CurrentWounds: 1, MaxWounds: 1}}
	if d, _ = AdjustMaxWounds(models, 0, -5); d != 0 {
		t.Fatalf("expected applied delta 0 at lower cap, got %d", d)
	}
	models = []ModelState{{Role: RoleRegular, CurrentWounds: 19, MaxWounds: 19}}
	if d, _ = AdjustMaxWounds(models, 0, +5); d != 1 {
		t.Fatalf("expected applied delta 1 at upper cap, got %d", d)
	}
	if models[0].MaxWounds != MaxWoundCap {
		t.Fatalf("expected max capped at %d, got %d", MaxWoundCap, models[0].MaxWounds)
	}
}
