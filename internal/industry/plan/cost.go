package plan

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/rsned/industry-planner/pkg/industry"
)

// Job cost rates applied to the estimated material value.
var (
	facilityTaxRate  = decimal.RequireFromString("0.01")
	sccSurchargeRate = decimal.RequireFromString("0.04")
	hundred          = decimal.NewFromInt(100)
)

// jobCost prices the installation of every job of n. Materials are valued
// at adjusted prices against the unbonused inputs. Nodes built in a hull
// without an activity are left unpriced.
func (e *Engine) jobCost(n *Node) industry.CostBreakdown {
	if n.Structure == nil {
		return industry.CostBreakdown{}
	}
	rawIndex := n.Structure.Type.CostIndex(e.systemIndex(n.Structure.SystemID))
	if math.IsInf(rawIndex, 0) || math.IsNaN(rawIndex) {
		return industry.CostBreakdown{}
	}

	runs := decimal.NewFromInt(int64(n.TotalRuns()))
	materials := decimal.Zero
	for _, child := range sortedKeys(n.ChildrenUnbonused) {
		price := decimal.NewFromFloat(e.cfg.AdjustedPrices[child])
		qty := decimal.NewFromFloat(n.ChildrenUnbonused[child])
		materials = materials.Add(price.Mul(qty).Mul(runs))
	}

	index := decimal.NewFromFloat(rawIndex)
	discount := decimal.NewFromFloat(n.Structure.Type.Info().CostDiscount)

	system := materials.Mul(hundred).Mul(index.Div(hundred))
	bonus := system.Mul(discount)
	gross := system.Sub(bonus)
	tax := materials.Mul(facilityTaxRate)
	scc := materials.Mul(sccSurchargeRate)
	total := gross.Add(tax).Add(scc).Ceil()

	return industry.CostBreakdown{
		MaterialsCost: materials.InexactFloat64(),
		CostIndex:     rawIndex,
		SystemCost:    system.InexactFloat64(),
		FacilityBonus: bonus.InexactFloat64(),
		TotalJobGross: gross.InexactFloat64(),
		FacilityTax:   tax.InexactFloat64(),
		SCCSurcharge:  scc.InexactFloat64(),
		TotalJobCost:  total.InexactFloat64(),
		Priced:        true,
	}
}
