// Package industry contains the core types for the industry planner.
package industry

// ============================================
// REFERENCE TYPES
// ============================================

// TypeID identifies an item type (ore, mineral, component, ship, ...).
type TypeID int32

// Item is a row of the static item catalog.
type Item struct {
	ID               TypeID   `json:"id"`
	Name             string   `json:"name"`
	CategoryID       int32    `json:"category_id"`
	GroupID          int32    `json:"group_id"`
	MetaGroupID      *int32   `json:"meta_group_id,omitempty"`
	Volume           float64  `json:"volume"`
	RepackagedVolume *float64 `json:"repackaged_volume,omitempty"`
}

// BlueprintKind classifies how a product is obtained.
type BlueprintKind string

const (
	KindBlueprint BlueprintKind = "Blueprint"
	KindReaction  BlueprintKind = "Reaction"
	KindMaterial  BlueprintKind = "Material"
)

// IsValid checks if the kind is one of the known kinds.
func (k BlueprintKind) IsValid() bool {
	switch k {
	case KindBlueprint, KindReaction, KindMaterial:
		return true
	}
	return false
}

// Produced reports whether the kind is made by a job (as opposed to bought).
func (k BlueprintKind) Produced() bool {
	return k == KindBlueprint || k == KindReaction
}

// Blueprint is the recipe producing ProductID.
// A Material blueprint is a leaf with no inputs.
type Blueprint struct {
	BlueprintID  TypeID             `json:"blueprint_id"`
	ProductID    TypeID             `json:"product_id"`
	Kind         BlueprintKind      `json:"kind"`
	OutputPerRun int                `json:"output_per_run"`
	BaseTimeSec  float64            `json:"base_time_sec"`
	Inputs       map[TypeID]float64 `json:"inputs,omitempty"`
}

// Stock is an on-hand quantity of an item.
type Stock struct {
	ItemID   TypeID `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// SystemIndex holds the job cost indices of one solar system.
type SystemIndex struct {
	Manufacturing float64 `json:"manufacturing"`
	Reaction      float64 `json:"reaction"`
}

// ============================================
// STRUCTURE TYPES
// ============================================

// Rig is a structure modification bonusing jobs for some categories or groups.
// Bonuses are percentages; nil means the rig does not touch that attribute.
type Rig struct {
	AppliesTo     []int32  `json:"applies_to"`
	MaterialBonus *float64 `json:"material_bonus,omitempty"`
	TimeBonus     *float64 `json:"time_bonus,omitempty"`
}

// Applies reports whether the rig bonuses the given category or group.
func (r Rig) Applies(categoryID, groupID int32) bool {
	for _, id := range r.AppliesTo {
		if id == categoryID || id == groupID {
			return true
		}
	}
	return false
}

// Structure is a production facility.
type Structure struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	SystemID int32         `json:"system_id"`
	Type     StructureType `json:"structure_type"`
	Services []int32       `json:"services"`
	Rigs     []Rig         `json:"rigs,omitempty"`
}

// HasService reports whether the structure has the given service online.
func (s *Structure) HasService(service int32) bool {
	for _, id := range s.Services {
		if id == service {
			return true
		}
	}
	return false
}

// StructureMapping lists the structures able to produce a category or group.
type StructureMapping struct {
	TargetID     int32   `json:"target_id"`
	StructureIDs []int64 `json:"structure_ids"`
}

// ============================================
// OPTIMIZER TYPES
// ============================================

// OreConstraint restricts one ore variable of the ore-mix optimizer.
// A Cap of zero (or less) means the ore is not inventory-limited.
type OreConstraint struct {
	Allowed   bool    `json:"allowed"`
	UnitPrice float64 `json:"unit_price"`
	Cap       float64 `json:"cap,omitempty"`
}

// ============================================
// PLAN TYPES
// ============================================

// BonusRecord traces one adjustment applied to a plan node.
type BonusRecord struct {
	Kind    string  `json:"kind"`   // "material", "time", "stock"
	Source  string  `json:"source"` // "structure", "override", "default", "stock"
	Percent float64 `json:"percent"`
	InputID TypeID  `json:"input_id,omitempty"`
	Old     float64 `json:"old"`
	New     float64 `json:"new"`
}

// CostBreakdown is the job installation cost of one plan node.
type CostBreakdown struct {
	MaterialsCost float64 `json:"materials_cost"`
	CostIndex     float64 `json:"cost_index"`
	SystemCost    float64 `json:"system_cost"`
	FacilityBonus float64 `json:"facility_bonus"`
	TotalJobGross float64 `json:"total_job_gross"`
	FacilityTax   float64 `json:"facility_tax"`
	SCCSurcharge  float64 `json:"scc_surcharge"`
	TotalJobCost  float64 `json:"total_job_cost"`
	Priced        bool    `json:"priced"`
}

// ============================================
// TOOL REQUEST/RESPONSE TYPES
// ============================================

// OreMixRequest is the input for the ore_mix tool.
type OreMixRequest struct {
	Demand      map[TypeID]float64       `json:"demand"`
	Constraints map[TypeID]OreConstraint `json:"constraints,omitempty"`
	AllowedOres []TypeID                 `json:"allowed_ores,omitempty"`
	Efficiency  float64                  `json:"efficiency,omitempty"`
	StockOwner  string                   `json:"stock_owner,omitempty"`
}

// OreMixResponse is the output for the ore_mix tool.
type OreMixResponse struct {
	Ores       []OreQuantity      `json:"ores"`
	Refined    map[TypeID]float64 `json:"refined"`
	TotalCost  float64            `json:"total_cost"`
	TotalText  string             `json:"total_text"`
	Efficiency float64            `json:"efficiency"`
	Cached     bool               `json:"cached,omitempty"`
}

// OreQuantity is one line of an ore mix.
type OreQuantity struct {
	OreID     TypeID  `json:"ore_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Cost      float64 `json:"cost"`
}

// PlanTarget is one product the caller wants built.
type PlanTarget struct {
	ProductID TypeID `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// EfficiencyOverride forces the ME/TE percentages of one product.
type EfficiencyOverride struct {
	ME float64 `json:"me"`
	TE float64 `json:"te"`
}

// BuildPlanRequest is the input for the build_plan tool.
type BuildPlanRequest struct {
	Targets       []PlanTarget                  `json:"targets"`
	StockOwner    string                        `json:"stock_owner,omitempty"`
	Stocks        []Stock                       `json:"stocks,omitempty"`
	Overrides     map[TypeID]EfficiencyOverride `json:"overrides,omitempty"`
	Blacklist     []TypeID                      `json:"blacklist,omitempty"`
	MaxRuns       map[TypeID]int                `json:"max_runs,omitempty"`
	MaxJobTimeSec int                           `json:"max_job_time_sec,omitempty"`
	SkipChildren  bool                          `json:"skip_children,omitempty"`
}

// BuildPlanResponse is the output for the build_plan tool.
type BuildPlanResponse struct {
	Jobs          []PlanJob        `json:"jobs"`
	RawMaterials  []PlanMaterial   `json:"raw_materials"`
	StockConsumed map[TypeID]int   `json:"stock_consumed"`
	Summary       BuildPlanSummary `json:"summary"`
}

// PlanJob is one production node of a finalized plan.
type PlanJob struct {
	ProductID      TypeID             `json:"product_id"`
	Name           string             `json:"name,omitempty"`
	BlueprintID    TypeID             `json:"blueprint_id"`
	Kind           BlueprintKind      `json:"kind"`
	IsProduct      bool               `json:"is_product"`
	Needed         float64            `json:"needed"`
	ProducesPerRun int                `json:"produces_per_run"`
	TimePerRunSec  float64            `json:"time_per_run_sec"`
	Runs           []int              `json:"runs"`
	StockApplied   int                `json:"stock_applied"`
	Inputs         map[TypeID]float64 `json:"inputs,omitempty"`
	StructureID    *int64             `json:"structure_id,omitempty"`
	Bonuses        []BonusRecord      `json:"bonuses,omitempty"`
	Cost           CostBreakdown      `json:"cost"`
}

// PlanMaterial is a leaf of a finalized plan that has to be acquired.
type PlanMaterial struct {
	ItemID       TypeID  `json:"item_id"`
	Name         string  `json:"name,omitempty"`
	Needed       float64 `json:"needed"`
	StockApplied int     `json:"stock_applied"`
}

// BuildPlanSummary provides aggregate info about a plan.
type BuildPlanSummary struct {
	JobCount      int     `json:"job_count"`
	TotalRuns     int     `json:"total_runs"`
	TotalTimeSec  float64 `json:"total_time_sec"`
	TotalJobCost  float64 `json:"total_job_cost"`
	TotalCostText string  `json:"total_cost_text"`
}

// ShoppingListRequest is the input for the shopping_list tool.
type ShoppingListRequest struct {
	Plan        BuildPlanRequest         `json:"plan"`
	Constraints map[TypeID]OreConstraint `json:"constraints,omitempty"`
	AllowedOres []TypeID                 `json:"allowed_ores,omitempty"`
	Efficiency  float64                  `json:"efficiency,omitempty"`
}

// ShoppingListResponse is the output for the shopping_list tool.
type ShoppingListResponse struct {
	Plan      BuildPlanResponse  `json:"plan"`
	Minerals  map[TypeID]float64 `json:"minerals"`
	OreMix    *OreMixResponse    `json:"ore_mix,omitempty"`
	Purchases []PlanMaterial     `json:"purchases"`
	MixError  string             `json:"mix_error,omitempty"`
}

// ItemLookupRequest is the input for the item_lookup tool.
type ItemLookupRequest struct {
	ItemID TypeID `json:"item_id,omitempty"`
	Search string `json:"search,omitempty"`
}

// ItemLookupResponse is the output for the item_lookup tool.
type ItemLookupResponse struct {
	Item          *Item      `json:"item,omitempty"`
	Blueprint     *Blueprint `json:"blueprint,omitempty"`
	UsedIn        []TypeID   `json:"used_in,omitempty"`
	IsOre         bool       `json:"is_ore"`
	IsMineral     bool       `json:"is_mineral"`
	SearchResults []Item     `json:"search_results,omitempty"`
}
