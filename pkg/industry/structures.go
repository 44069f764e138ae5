package industry

import "math"

// StructureType tags the hull of a production facility.
type StructureType string

const (
	StructureStation  StructureType = "Station"
	StructureRaitaru  StructureType = "Raitaru"
	StructureAzbel    StructureType = "Azbel"
	StructureSotiyo   StructureType = "Sotiyo"
	StructureAthanor  StructureType = "Athanor"
	StructureTatara   StructureType = "Tatara"
	StructureAstrahus StructureType = "Astrahus"
	StructureFortizar StructureType = "Fortizar"
	StructureKeepstar StructureType = "Keepstar"
)

// Activity is the job family a structure hull is built for.
type Activity string

const (
	ActivityManufacturing Activity = "manufacturing"
	ActivityReaction      Activity = "reaction"
	ActivityNone          Activity = ""
)

// StructureTypeInfo is the fixed bonus set carried by a hull.
type StructureTypeInfo struct {
	Activity      Activity
	MaterialBonus float64 // percent
	TimeBonus     float64 // percent
	CostDiscount  float64 // fraction of the system cost
}

var structureTypes = map[StructureType]StructureTypeInfo{
	StructureStation:  {Activity: ActivityManufacturing},
	StructureRaitaru:  {Activity: ActivityManufacturing, MaterialBonus: 1, TimeBonus: 15, CostDiscount: 0.03},
	StructureAzbel:    {Activity: ActivityManufacturing, MaterialBonus: 1, TimeBonus: 20, CostDiscount: 0.04},
	StructureSotiyo:   {Activity: ActivityManufacturing, MaterialBonus: 1, TimeBonus: 30, CostDiscount: 0.05},
	StructureAthanor:  {Activity: ActivityReaction},
	StructureTatara:   {Activity: ActivityReaction, TimeBonus: 25},
	StructureAstrahus: {Activity: ActivityManufacturing},
	StructureFortizar: {Activity: ActivityManufacturing},
	StructureKeepstar: {Activity: ActivityManufacturing},
}

// Info returns the hull bonuses. Unknown hulls get no bonus and no activity.
func (t StructureType) Info() StructureTypeInfo {
	return structureTypes[t]
}

// CostIndex picks the system index that applies to jobs in this hull.
// Hulls without an activity yield +Inf.
func (t StructureType) CostIndex(idx SystemIndex) float64 {
	switch t.Info().Activity {
	case ActivityManufacturing:
		return idx.Manufacturing
	case ActivityReaction:
		return idx.Reaction
	default:
		return math.Inf(1)
	}
}

// Structure service ids.
const (
	ServiceManufacturing        int32 = 35878
	ServiceCapitalShipyard      int32 = 35881
	ServiceSupercapitalShipyard int32 = 35877
	ServiceCompositeReactions   int32 = 35899
)

// Ship groups that need a capital or supercapital shipyard.
var (
	capitalGroups = map[int32]bool{
		485:  true, // Dreadnought
		547:  true, // Carrier
		883:  true, // Capital Industrial Ship
		1538: true, // Force Auxiliary
		4594: true, // Lancer Dreadnought
	}
	supercapitalGroups = map[int32]bool{
		30:  true, // Titan
		659: true, // Supercarrier
		941: true, // Industrial Command Ship
	}
)

// RequiredService returns the structure service a job for the item needs.
func RequiredService(kind BlueprintKind, groupID int32) int32 {
	switch {
	case kind == KindReaction:
		return ServiceCompositeReactions
	case supercapitalGroups[groupID]:
		return ServiceSupercapitalShipyard
	case capitalGroups[groupID]:
		return ServiceCapitalShipyard
	default:
		return ServiceManufacturing
	}
}

// DeriveMappings builds the category/group → structures index from rig targets.
func DeriveMappings(structures []Structure) []StructureMapping {
	byTarget := make(map[int32][]int64)
	var order []int32
	for _, s := range structures {
		seen := make(map[int32]bool)
		for _, rig := range s.Rigs {
			for _, target := range rig.AppliesTo {
				if seen[target] {
					continue
				}
				seen[target] = true
				if _, ok := byTarget[target]; !ok {
					order = append(order, target)
				}
				byTarget[target] = append(byTarget[target], s.ID)
			}
		}
	}

	mappings := make([]StructureMapping, 0, len(order))
	for _, target := range order {
		mappings = append(mappings, StructureMapping{
			TargetID:     target,
			StructureIDs: byTarget[target],
		})
	}
	return mappings
}
