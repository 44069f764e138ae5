// Package plan expands production targets into a bill-of-materials tree of
// manufacturing and reaction jobs, applies facility bonuses, nets on-hand
// stock, splits runs across job slots and prices every job.
//
// An Engine is single-use and not safe for concurrent use; the catalog it
// reads from may be shared.
package plan

import (
	"log/slog"
	"math"
	"sort"

	"github.com/rsned/industry-planner/pkg/industry"
)

// Catalog is the read-only reference data the engine expands against.
type Catalog interface {
	Item(id industry.TypeID) *industry.Item
	Blueprint(id industry.TypeID) *industry.Blueprint
}

// FacilityPolicy decides how competing structures are ranked.
type FacilityPolicy int

const (
	// PreferMaterial maximizes the material bonus, then minimizes the cost index.
	PreferMaterial FacilityPolicy = iota
	// PreferIndex minimizes the cost index, then maximizes the material bonus.
	PreferIndex
)

// Default blueprint efficiencies used when no structure or override applies.
const (
	DefaultME = 10.0
	DefaultTE = 20.0
)

const eps = 1e-9

// Config carries everything a plan depends on besides the catalog.
type Config struct {
	Blacklist      []industry.TypeID
	Overrides      map[industry.TypeID]industry.EfficiencyOverride
	Structures     []industry.Structure
	Mappings       []industry.StructureMapping
	SystemIndices  map[int32]industry.SystemIndex
	AdjustedPrices map[industry.TypeID]float64
	MaxJobTimeSec  float64 // 0 disables time-based splitting
	MaxRuns        map[industry.TypeID]int
	SkipChildren   bool
	Policy         FacilityPolicy
	Defaults       *industry.EfficiencyOverride
	Logger         *slog.Logger
}

// Node is one item of the dependency tree. Edges are item ids.
type Node struct {
	ProductID         industry.TypeID
	BlueprintID       industry.TypeID
	Kind              industry.BlueprintKind
	CategoryID        int32
	GroupID           int32
	Needed            float64
	ProducesPerRun    int
	BaseTimePerRun    float64
	TimePerRun        float64
	Children          map[industry.TypeID]float64
	ChildrenUnbonused map[industry.TypeID]float64
	Runs              []int
	StockApplied      int
	IsProduct         bool
	Requests          []int
	Blacklisted       bool
	Bonuses           []industry.BonusRecord
	Cost              industry.CostBreakdown
	Structure         *industry.Structure

	parents  []industry.TypeID
	expanded bool
	demoted  bool // producible, but bought because of SkipChildren
}

// TotalRuns returns the sum of all job runs.
func (n *Node) TotalRuns() int {
	total := 0
	for _, r := range n.Runs {
		total += r
	}
	return total
}

// Requested returns the quantity explicitly asked for by the caller.
func (n *Node) Requested() int {
	total := 0
	for _, q := range n.Requests {
		total += q
	}
	return total
}

// Parents returns the ids of the nodes consuming this one.
func (n *Node) Parents() []industry.TypeID {
	result := make([]industry.TypeID, len(n.parents))
	copy(result, n.parents)
	return result
}

// Produced reports whether the node is built by a job.
func (n *Node) Produced() bool {
	return n.Kind.Produced() && !n.Blacklisted
}

func (n *Node) addParent(id industry.TypeID) {
	for _, p := range n.parents {
		if p == id {
			return
		}
	}
	n.parents = append(n.parents, id)
}

// Engine builds one plan.
type Engine struct {
	catalog Catalog
	cfg     Config
	logger  *slog.Logger

	nodes      map[industry.TypeID]*Node
	insertion  []industry.TypeID
	blacklist  map[industry.TypeID]bool
	stock      map[industry.TypeID]int
	consumed   map[industry.TypeID]int
	structures map[int64]*industry.Structure
	mapping    map[int32][]int64
	unknown    map[industry.TypeID]bool
}

// New creates an Engine over catalog.
func New(catalog Catalog, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		catalog:    catalog,
		cfg:        cfg,
		logger:     logger.With("component", "plan"),
		nodes:      make(map[industry.TypeID]*Node),
		blacklist:  make(map[industry.TypeID]bool, len(cfg.Blacklist)),
		stock:      make(map[industry.TypeID]int),
		consumed:   make(map[industry.TypeID]int),
		structures: make(map[int64]*industry.Structure, len(cfg.Structures)),
		mapping:    make(map[int32][]int64),
		unknown:    make(map[industry.TypeID]bool),
	}
	for _, id := range cfg.Blacklist {
		e.blacklist[id] = true
	}
	for i := range cfg.Structures {
		s := &cfg.Structures[i]
		e.structures[s.ID] = s
	}
	for _, m := range cfg.Mappings {
		e.mapping[m.TargetID] = append(e.mapping[m.TargetID], m.StructureIDs...)
	}
	return e
}

// Node returns the node for id, or nil.
func (e *Engine) Node(id industry.TypeID) *Node {
	return e.nodes[id]
}

// Add merges a product and, unless SkipChildren is set, its full
// blueprint expansion into the tree. Quantities of repeated products
// accumulate. With SkipChildren only the direct inputs of products are
// added, as bought leaves; a product is always built, even when an earlier
// product already listed it as an input.
func (e *Engine) Add(productID industry.TypeID, quantity int) {
	if quantity <= 0 {
		return
	}

	root := e.ensure(productID)
	if root.demoted {
		e.loadBlueprint(root)
		root.demoted = false
		root.expanded = false
	}
	root.IsProduct = true
	root.Requests = append(root.Requests, quantity)
	if root.Kind == industry.KindMaterial && !root.Blacklisted && e.catalog.Blueprint(productID) == nil {
		if !e.unknown[productID] {
			e.unknown[productID] = true
			e.logger.Warn("unknown product, treating as material", "product_id", productID)
		}
	}

	queue := []industry.TypeID{productID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		n := e.nodes[id]
		if n.expanded || !n.Produced() {
			continue
		}
		n.expanded = true

		for _, child := range sortedKeys(n.ChildrenUnbonused) {
			_, existed := e.nodes[child]
			cn := e.ensure(child)
			cn.addParent(id)
			if e.cfg.SkipChildren {
				if !existed && !cn.IsProduct && cn.Kind != industry.KindMaterial {
					cn.Kind = industry.KindMaterial
					cn.Children = nil
					cn.ChildrenUnbonused = nil
					cn.demoted = true
				}
				continue
			}
			queue = append(queue, child)
		}
	}

	e.recompute(false)
}

// ensure returns the node for id, creating it from the catalog if needed.
func (e *Engine) ensure(id industry.TypeID) *Node {
	if n, ok := e.nodes[id]; ok {
		return n
	}

	n := &Node{
		ProductID:      id,
		Kind:           industry.KindMaterial,
		ProducesPerRun: 1,
	}
	if item := e.catalog.Item(id); item != nil {
		n.CategoryID = item.CategoryID
		n.GroupID = item.GroupID
	}
	if e.blacklist[id] {
		n.Blacklisted = true
	} else {
		e.loadBlueprint(n)
	}

	e.nodes[id] = n
	e.insertion = append(e.insertion, id)
	return n
}

// loadBlueprint sets the production fields of n from its blueprint. Nodes
// without a producible blueprint are left as they are.
func (e *Engine) loadBlueprint(n *Node) {
	bp := e.catalog.Blueprint(n.ProductID)
	if bp == nil || !bp.Kind.Produced() {
		return
	}
	n.BlueprintID = bp.BlueprintID
	n.Kind = bp.Kind
	n.ProducesPerRun = max(1, bp.OutputPerRun)
	n.BaseTimePerRun = bp.BaseTimeSec
	n.TimePerRun = bp.BaseTimeSec
	n.Children = make(map[industry.TypeID]float64, len(bp.Inputs))
	n.ChildrenUnbonused = make(map[industry.TypeID]float64, len(bp.Inputs))
	for input, qty := range bp.Inputs {
		n.Children[input] = qty
		n.ChildrenUnbonused[input] = qty
	}
}

// topoOrder returns node ids with every parent ahead of its children.
// Nodes caught in a cycle are appended in insertion order.
func (e *Engine) topoOrder() []industry.TypeID {
	inDegree := make(map[industry.TypeID]int, len(e.nodes))
	for _, id := range e.insertion {
		n := e.nodes[id]
		if _, ok := inDegree[id]; !ok {
			inDegree[id] = 0
		}
		if !n.Produced() {
			continue
		}
		for child := range n.Children {
			if _, ok := e.nodes[child]; ok {
				inDegree[child]++
			}
		}
	}

	var queue []industry.TypeID
	for _, id := range e.insertion {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]industry.TypeID, 0, len(e.nodes))
	done := make(map[industry.TypeID]bool, len(e.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)
		done[id] = true

		n := e.nodes[id]
		if !n.Produced() {
			continue
		}
		for _, child := range sortedKeys(n.Children) {
			if _, ok := e.nodes[child]; !ok {
				continue
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(sorted) != len(e.nodes) {
		e.logger.Warn("cycle detected in blueprint graph", "nodes", len(e.nodes)-len(sorted))
		for _, id := range e.insertion {
			if !done[id] {
				sorted = append(sorted, id)
			}
		}
	}
	return sorted
}

// recompute walks the tree top-down and derives every node's requirement
// from its parents' runs, nets it against stock and sets its runs. With
// split set, production runs are spread over jobs.
func (e *Engine) recompute(split bool) {
	for _, id := range e.topoOrder() {
		n := e.nodes[id]

		gross := 0.0
		if n.IsProduct {
			gross = float64(n.Requested())
		}
		for _, pid := range n.parents {
			p := e.nodes[pid]
			if !p.Produced() {
				continue
			}
			gross += float64(p.TotalRuns()) * p.Children[id]
		}

		if n.Blacklisted {
			n.Needed = 0
			n.Runs = nil
			n.StockApplied = 0
			delete(e.consumed, id)
			continue
		}

		e.applyStock(n, gross)

		if !n.Produced() {
			n.Runs = nil
			continue
		}
		if n.Needed <= eps {
			n.Needed = 0
			if n.IsProduct {
				n.Runs = []int{0}
			} else {
				n.Runs = nil
			}
			continue
		}

		baseRuns := max(1, ceilDiv(n.Needed, n.ProducesPerRun))
		if !split {
			n.Runs = []int{baseRuns}
			continue
		}
		n.Runs = e.splitRuns(n, baseRuns)
	}
}

// ceilDiv returns ⌈needed / per⌉ tolerating float noise.
func ceilDiv(needed float64, per int) int {
	return int(math.Ceil(needed/float64(per) - eps))
}

func sortedKeys(m map[industry.TypeID]float64) []industry.TypeID {
	keys := make([]industry.TypeID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
