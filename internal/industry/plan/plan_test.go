package plan

import (
	"math"
	"reflect"
	"testing"

	"github.com/rsned/industry-planner/pkg/industry"
)

const (
	tritanium industry.TypeID = 34
	pyerite   industry.TypeID = 35
	mexallon  industry.TypeID = 36
	component industry.TypeID = 11530
	ship      industry.TypeID = 621
	partA     industry.TypeID = 11279
	partB     industry.TypeID = 20353
	subpart   industry.TypeID = 16670
	assembly  industry.TypeID = 16671
	dread     industry.TypeID = 19720
)

func ptr(f float64) *float64 { return &f }

// testCatalog builds a small tree:
//
//	ship      = 1000 tritanium + 200 pyerite + 2 component
//	component = 50 tritanium + 1 mexallon (10 per run)
func testCatalog() *industry.Catalog {
	items := []industry.Item{
		{ID: tritanium, Name: "Tritanium", CategoryID: 4, GroupID: 18},
		{ID: pyerite, Name: "Pyerite", CategoryID: 4, GroupID: 18},
		{ID: mexallon, Name: "Mexallon", CategoryID: 4, GroupID: 18},
		{ID: component, Name: "Component", CategoryID: 17, GroupID: 334},
		{ID: ship, Name: "Caracal", CategoryID: 6, GroupID: 26},
		{ID: partA, Name: "Part A", CategoryID: 17, GroupID: 334},
		{ID: partB, Name: "Part B", CategoryID: 17, GroupID: 334},
		{ID: subpart, Name: "Subpart", CategoryID: 17, GroupID: 334},
		{ID: assembly, Name: "Assembly", CategoryID: 17, GroupID: 334},
		{ID: dread, Name: "Dreadnought", CategoryID: 6, GroupID: 485},
	}
	blueprints := []industry.Blueprint{
		{BlueprintID: 946, ProductID: ship, Kind: industry.KindBlueprint, OutputPerRun: 1, BaseTimeSec: 3600,
			Inputs: map[industry.TypeID]float64{tritanium: 1000, pyerite: 200, component: 2}},
		{BlueprintID: 11531, ProductID: component, Kind: industry.KindBlueprint, OutputPerRun: 10, BaseTimeSec: 600,
			Inputs: map[industry.TypeID]float64{tritanium: 50, mexallon: 1}},
		{BlueprintID: 11280, ProductID: partA, Kind: industry.KindBlueprint, OutputPerRun: 1, BaseTimeSec: 60,
			Inputs: map[industry.TypeID]float64{tritanium: 10}},
		{BlueprintID: 20354, ProductID: partB, Kind: industry.KindBlueprint, OutputPerRun: 1, BaseTimeSec: 60,
			Inputs: map[industry.TypeID]float64{partA: 1, tritanium: 5}},
		{BlueprintID: 16672, ProductID: subpart, Kind: industry.KindReaction, OutputPerRun: 1, BaseTimeSec: 100,
			Inputs: map[industry.TypeID]float64{mexallon: 1}},
		{BlueprintID: 16673, ProductID: assembly, Kind: industry.KindBlueprint, OutputPerRun: 1, BaseTimeSec: 100,
			Inputs: map[industry.TypeID]float64{subpart: 45}},
		{BlueprintID: 19721, ProductID: dread, Kind: industry.KindBlueprint, OutputPerRun: 1, BaseTimeSec: 100,
			Inputs: map[industry.TypeID]float64{tritanium: 100}},
	}
	return industry.NewCatalog(items, blueprints)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestSingleShipDefaults(t *testing.T) {
	p := BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: ship, Quantity: 1}}, nil, Config{})

	if got := p.Nodes[ship].Runs; !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("ship runs: expected [1], got %v", got)
	}
	if got := p.Nodes[ship].Children[tritanium]; got != 900 {
		t.Errorf("ship tritanium per run: expected 900, got %v", got)
	}
	if got := p.Nodes[component].Runs; !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("component runs: expected [1], got %v", got)
	}
	if got := p.Nodes[tritanium].Needed; !near(got, 945) {
		t.Errorf("tritanium: expected 945, got %v", got)
	}
	if got := p.Nodes[mexallon].Needed; !near(got, 1) {
		t.Errorf("mexallon: expected 1, got %v", got)
	}
	if got := p.Nodes[ship].TimePerRun; !near(got, 3600*0.8) {
		t.Errorf("ship time per run: expected %v, got %v", 3600*0.8, got)
	}
}

func TestMultipleShipsScaleRuns(t *testing.T) {
	p := BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: ship, Quantity: 5}}, nil, Config{})

	if got := p.Nodes[ship].Runs; !reflect.DeepEqual(got, []int{5}) {
		t.Errorf("ship runs: expected [5], got %v", got)
	}
	if got := p.Nodes[pyerite].Needed; !near(got, 900) {
		t.Errorf("pyerite: expected 900, got %v", got)
	}
	if got := p.Nodes[tritanium].Needed; !near(got, 4500+45) {
		t.Errorf("tritanium: expected 4545, got %v", got)
	}
}

func TestStockCoversProduct(t *testing.T) {
	p := BuildPlan(testCatalog(),
		[]industry.PlanTarget{{ProductID: ship, Quantity: 1}},
		[]industry.Stock{{ItemID: ship, Quantity: 1}},
		Config{},
	)

	n := p.Nodes[ship]
	if n.Needed != 0 || !reflect.DeepEqual(n.Runs, []int{0}) {
		t.Errorf("ship: expected needed 0 and runs [0], got %v %v", n.Needed, n.Runs)
	}
	for _, id := range []industry.TypeID{component, tritanium, pyerite, mexallon} {
		if got := p.Nodes[id].Needed; got != 0 {
			t.Errorf("%d: expected needed 0, got %v", id, got)
		}
	}
	if !reflect.DeepEqual(p.StockConsumed, map[industry.TypeID]int{ship: 1}) {
		t.Errorf("expected stock consumed {621: 1}, got %v", p.StockConsumed)
	}
	if len(p.RawMaterials()) != 0 {
		t.Errorf("expected nothing to buy, got %v", p.RawMaterials())
	}

	jobs := p.Jobs()
	if len(jobs) != 1 || jobs[0].ProductID != ship {
		t.Fatalf("expected only the ship job, got %+v", jobs)
	}
	found := false
	for _, b := range jobs[0].Bonuses {
		if b.Kind == "stock" && b.New == 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a stock bonus record, got %+v", jobs[0].Bonuses)
	}
}

func TestStockIsIdempotent(t *testing.T) {
	e := New(testCatalog(), Config{})
	e.Add(ship, 1)
	e.ApplyBonus()

	stocks := []industry.Stock{{ItemID: tritanium, Quantity: 100}}
	e.AddStocks(stocks)
	once := e.Node(tritanium).Needed
	e.AddStocks(stocks)
	twice := e.Node(tritanium).Needed

	if !near(once, 845) || once != twice {
		t.Errorf("expected 845 after one and two applications, got %v and %v", once, twice)
	}
	if got := e.StockConsumed()[tritanium]; got != 100 {
		t.Errorf("expected 100 tritanium consumed, got %d", got)
	}
}

func TestStockOnIntermediate(t *testing.T) {
	p := BuildPlan(testCatalog(),
		[]industry.PlanTarget{{ProductID: ship, Quantity: 1}},
		[]industry.Stock{{ItemID: component, Quantity: 2}},
		Config{},
	)

	if p.Nodes[component].Runs != nil {
		t.Errorf("component should not be built, got runs %v", p.Nodes[component].Runs)
	}
	if got := p.Nodes[tritanium].Needed; !near(got, 900) {
		t.Errorf("tritanium: expected 900, got %v", got)
	}
	if got := p.StockConsumed[component]; got != 2 {
		t.Errorf("expected 2 components consumed, got %d", got)
	}
}

func TestSharedProductAccumulates(t *testing.T) {
	p := BuildPlan(testCatalog(), []industry.PlanTarget{
		{ProductID: partA, Quantity: 1},
		{ProductID: partB, Quantity: 1},
	}, nil, Config{})

	if got := p.Nodes[partA].Runs; !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("part A runs: expected [2], got %v", got)
	}
	if got := p.Nodes[partB].Runs; !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("part B runs: expected [1], got %v", got)
	}
	if got := p.Nodes[partA].Children[tritanium]; got != 9 {
		t.Errorf("part A tritanium: expected 9 after ME10, got %v", got)
	}
	if got := p.Nodes[partB].Children[partA]; got != 1 {
		t.Errorf("single-unit inputs must not be reduced, got %v", got)
	}
}

func TestRunLimitSplitsIntermediate(t *testing.T) {
	p := BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: assembly, Quantity: 1}}, nil, Config{
		Overrides: map[industry.TypeID]industry.EfficiencyOverride{assembly: {}},
		MaxRuns:   map[industry.TypeID]int{subpart: 10},
	})

	if got := p.Nodes[subpart].Runs; !reflect.DeepEqual(got, []int{10, 10, 10, 10, 5}) {
		t.Errorf("subpart runs: expected [10 10 10 10 5], got %v", got)
	}
	if got := p.Nodes[mexallon].Needed; !near(got, 45) {
		t.Errorf("mexallon: expected 45, got %v", got)
	}
}

func TestSplitRuns(t *testing.T) {
	tests := []struct {
		name    string
		base    int
		time    float64
		maxWall float64
		maxRuns int
		product bool
		want    []int
	}{
		{name: "single run", base: 1, time: 1e6, maxWall: 10, want: []int{1}},
		{name: "product never split", base: 10, time: 100, maxWall: 350, maxRuns: 3, product: true, want: []int{10}},
		{name: "within limits", base: 3, time: 100, maxWall: 350, want: []int{3}},
		{name: "wall clock", base: 10, time: 100, maxWall: 350, want: []int{4, 3, 3}},
		{name: "run cap", base: 7, time: 1, maxRuns: 3, want: []int{3, 3, 1}},
		{name: "unlimited", base: 50, time: 1e6, want: []int{50}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := splitRuns(tc.base, tc.time, tc.maxWall, tc.maxRuns, tc.product)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func testStructures() []industry.Structure {
	manufacturing := []int32{industry.ServiceManufacturing}
	return []industry.Structure{
		{ID: 1, Name: "Raitaru", SystemID: 30000142, Type: industry.StructureRaitaru, Services: manufacturing,
			Rigs: []industry.Rig{{AppliesTo: []int32{6}, MaterialBonus: ptr(2), TimeBonus: ptr(20)}}},
		{ID: 2, Name: "Azbel", SystemID: 30000144, Type: industry.StructureAzbel, Services: manufacturing,
			Rigs: []industry.Rig{{AppliesTo: []int32{6}, MaterialBonus: ptr(2)}}},
		{ID: 3, Name: "Sotiyo", SystemID: 30000145, Type: industry.StructureSotiyo, Services: manufacturing,
			Rigs: []industry.Rig{{AppliesTo: []int32{6, 485}, MaterialBonus: ptr(4)}}},
	}
}

func testIndices() map[int32]industry.SystemIndex {
	return map[int32]industry.SystemIndex{
		30000142: {Manufacturing: 0.05},
		30000144: {Manufacturing: 0.02},
		30000145: {Manufacturing: 0.10},
	}
}

func TestFacilitySelection(t *testing.T) {
	structures := testStructures()[:2]
	cfg := Config{
		Structures:    structures,
		Mappings:      industry.DeriveMappings(structures),
		SystemIndices: testIndices(),
	}
	p := BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: ship, Quantity: 1}}, nil, cfg)

	n := p.Nodes[ship]
	if n.Structure == nil || n.Structure.ID != 2 {
		t.Fatalf("expected the cheaper Azbel on a material-bonus tie, got %+v", n.Structure)
	}
	if got := n.Children[tritanium]; got != 970 {
		t.Errorf("tritanium per run at 3%% ME: expected 970, got %v", got)
	}
	for child, qty := range n.Children {
		if qty > n.ChildrenUnbonused[child] {
			t.Errorf("input %d increased: %v > %v", child, qty, n.ChildrenUnbonused[child])
		}
	}
	if p.Nodes[component].Structure != nil {
		t.Errorf("component has no mapped structure, got %+v", p.Nodes[component].Structure)
	}
}

func TestFacilityPolicy(t *testing.T) {
	structures := testStructures()
	cfg := Config{
		Structures:    structures,
		Mappings:      industry.DeriveMappings(structures),
		SystemIndices: testIndices(),
	}

	p := BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: ship, Quantity: 1}}, nil, cfg)
	if got := p.Nodes[ship].Structure.ID; got != 3 {
		t.Errorf("material policy: expected Sotiyo, got %d", got)
	}

	cfg.Policy = PreferIndex
	p = BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: ship, Quantity: 1}}, nil, cfg)
	if got := p.Nodes[ship].Structure.ID; got != 2 {
		t.Errorf("index policy: expected Azbel, got %d", got)
	}
}

func TestCapitalNeedsShipyard(t *testing.T) {
	structures := testStructures()
	cfg := Config{
		Structures:    structures,
		Mappings:      industry.DeriveMappings(structures),
		SystemIndices: testIndices(),
	}
	p := BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: dread, Quantity: 1}}, nil, cfg)
	if s := p.Nodes[dread].Structure; s != nil {
		t.Errorf("no structure has a capital shipyard, got %d", s.ID)
	}
	if got := p.Nodes[dread].Children[tritanium]; got != 90 {
		t.Errorf("expected default ME, got %v", got)
	}

	structures[2].Services = append(structures[2].Services, industry.ServiceCapitalShipyard)
	p = BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: dread, Quantity: 1}}, nil, cfg)
	if s := p.Nodes[dread].Structure; s == nil || s.ID != 3 {
		t.Errorf("expected Sotiyo with shipyard, got %+v", s)
	}
}

func TestOverrideWins(t *testing.T) {
	structures := testStructures()
	cfg := Config{
		Structures:    structures,
		Mappings:      industry.DeriveMappings(structures),
		SystemIndices: testIndices(),
		Overrides:     map[industry.TypeID]industry.EfficiencyOverride{ship: {ME: 0, TE: 0}},
	}
	p := BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: ship, Quantity: 1}}, nil, cfg)

	n := p.Nodes[ship]
	if n.Children[tritanium] != 1000 || n.TimePerRun != 3600 {
		t.Errorf("override ignored: tritanium %v time %v", n.Children[tritanium], n.TimePerRun)
	}
	if n.Structure == nil {
		t.Errorf("structure should still be chosen for costing")
	}
}

func TestApplyBonusIsIdempotent(t *testing.T) {
	e := New(testCatalog(), Config{})
	e.Add(ship, 3)
	e.ApplyBonus()
	first := e.Node(tritanium).Needed
	e.ApplyBonus()
	if got := e.Node(tritanium).Needed; got != first {
		t.Errorf("second ApplyBonus changed tritanium: %v -> %v", first, got)
	}
}

func TestJobCost(t *testing.T) {
	structures := testStructures()[:1]
	cfg := Config{
		Structures:    structures,
		Mappings:      industry.DeriveMappings(structures),
		SystemIndices: testIndices(),
		AdjustedPrices: map[industry.TypeID]float64{
			tritanium: 5,
			pyerite:   10,
			component: 1000,
		},
	}
	p := BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: ship, Quantity: 1}}, nil, cfg)

	c := p.Nodes[ship].Cost
	if !c.Priced {
		t.Fatalf("expected ship job to be priced")
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"materials", c.MaterialsCost, 9000},
		{"system", c.SystemCost, 450},
		{"facility bonus", c.FacilityBonus, 13.5},
		{"gross", c.TotalJobGross, 436.5},
		{"tax", c.FacilityTax, 90},
		{"scc", c.SCCSurcharge, 360},
		{"total", c.TotalJobCost, 887},
	}
	for _, ch := range checks {
		if !near(ch.got, ch.want) {
			t.Errorf("%s: expected %v, got %v", ch.name, ch.want, ch.got)
		}
	}
	if p.Nodes[component].Cost.Priced {
		t.Errorf("component has no structure and must stay unpriced")
	}
	if got := p.Summary().TotalJobCost; got != 887 {
		t.Errorf("summary job cost: expected 887, got %v", got)
	}
}

func TestUnknownHullIsUnpriced(t *testing.T) {
	structures := []industry.Structure{{
		ID: 9, SystemID: 30000142, Type: "Mystery",
		Services: []int32{industry.ServiceManufacturing},
		Rigs:     []industry.Rig{{AppliesTo: []int32{6}, MaterialBonus: ptr(2)}},
	}}
	p := BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: ship, Quantity: 1}}, nil, Config{
		Structures:     structures,
		Mappings:       industry.DeriveMappings(structures),
		AdjustedPrices: map[industry.TypeID]float64{tritanium: 5},
	})
	if c := p.Nodes[ship].Cost; c.Priced || c.TotalJobCost != 0 {
		t.Errorf("expected zero unpriced cost, got %+v", c)
	}
}

func TestBlacklist(t *testing.T) {
	p := BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: ship, Quantity: 1}}, nil, Config{
		Blacklist: []industry.TypeID{component},
	})

	n := p.Nodes[component]
	if !n.Blacklisted || n.Needed != 0 || n.Runs != nil {
		t.Errorf("component should be a zeroed leaf, got %+v", n)
	}
	if p.Nodes[mexallon] != nil {
		t.Errorf("blacklisted items must not be expanded")
	}
	if got := p.Nodes[tritanium].Needed; !near(got, 900) {
		t.Errorf("tritanium: expected 900, got %v", got)
	}
}

func TestUnknownProductIsMaterial(t *testing.T) {
	e := New(testCatalog(), Config{})
	e.Add(999999, 3)
	e.Add(999999, 2)
	p := e.Finalize()

	n := p.Nodes[999999]
	if n.Kind != industry.KindMaterial || !near(n.Needed, 5) {
		t.Errorf("expected material leaf needing 5, got %+v", n)
	}
	mats := p.RawMaterials()
	if len(mats) != 1 || mats[0].ItemID != 999999 {
		t.Errorf("expected unknown product in raw materials, got %v", mats)
	}
}

func TestSkipChildren(t *testing.T) {
	p := BuildPlan(testCatalog(), []industry.PlanTarget{{ProductID: ship, Quantity: 1}}, nil, Config{
		SkipChildren: true,
	})

	if got := p.Nodes[component]; got == nil || got.Kind != industry.KindMaterial || !near(got.Needed, 2) {
		t.Errorf("component should be a bought leaf, got %+v", got)
	}
	if p.Nodes[mexallon] != nil {
		t.Errorf("grandchildren must not be expanded")
	}
}

func TestSkipChildrenIgnoresTargetOrder(t *testing.T) {
	orders := [][]industry.PlanTarget{
		{{ProductID: component, Quantity: 10}, {ProductID: ship, Quantity: 1}},
		{{ProductID: ship, Quantity: 1}, {ProductID: component, Quantity: 10}},
	}
	for _, targets := range orders {
		p := BuildPlan(testCatalog(), targets, nil, Config{SkipChildren: true})

		n := p.Nodes[component]
		if n.Kind != industry.KindBlueprint || !n.Produced() {
			t.Fatalf("targets %v: component must be built, got kind %s", targets, n.Kind)
		}
		if !reflect.DeepEqual(n.Runs, []int{2}) {
			t.Errorf("targets %v: expected component runs [2], got %v", targets, n.Runs)
		}
		if p.Nodes[mexallon] == nil || !near(p.Nodes[mexallon].Needed, 2) {
			t.Errorf("targets %v: component inputs must be listed, got %+v", targets, p.Nodes[mexallon])
		}
	}
}

func TestStockDroppedWhenParentNoLongerNeedsIt(t *testing.T) {
	e := New(testCatalog(), Config{})
	e.Add(ship, 1)
	e.ApplyBonus()

	e.AddStocks([]industry.Stock{{ItemID: component, Quantity: 1}})
	if got := e.StockConsumed()[component]; got != 1 {
		t.Fatalf("expected 1 component consumed, got %d", got)
	}

	e.AddStocks([]industry.Stock{{ItemID: ship, Quantity: 1}})
	p := e.Finalize()

	if !reflect.DeepEqual(p.StockConsumed, map[industry.TypeID]int{ship: 1}) {
		t.Errorf("component stock must be released once the ship is covered, got %v", p.StockConsumed)
	}
	if got := p.Nodes[component].StockApplied; got != 0 {
		t.Errorf("expected no component stock applied, got %d", got)
	}
}

func TestMaterialConservation(t *testing.T) {
	p := BuildPlan(testCatalog(),
		[]industry.PlanTarget{{ProductID: ship, Quantity: 7}, {ProductID: partB, Quantity: 3}},
		[]industry.Stock{{ItemID: tritanium, Quantity: 500}, {ItemID: component, Quantity: 3}},
		Config{MaxRuns: map[industry.TypeID]int{component: 1}},
	)

	for id, n := range p.Nodes {
		gross := 0.0
		if n.IsProduct {
			gross = float64(n.Requested())
		}
		for _, pid := range n.Parents() {
			parent := p.Nodes[pid]
			gross += float64(parent.TotalRuns()) * parent.Children[id]
		}
		if !near(n.Needed+float64(n.StockApplied), gross) {
			t.Errorf("%d: needed %v + stock %d != demand %v", id, n.Needed, n.StockApplied, gross)
		}
		if n.Produced() && n.Needed > 0 && float64(n.TotalRuns()*n.ProducesPerRun) < n.Needed {
			t.Errorf("%d: runs %v do not cover %v", id, n.Runs, n.Needed)
		}
	}
}
