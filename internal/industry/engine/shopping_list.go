package engine

import (
	"context"
	"errors"
	"math"

	"github.com/rsned/industry-planner/internal/industry/mix"
	"github.com/rsned/industry-planner/pkg/industry"
)

// ShoppingList executes the shopping_list tool logic: build the plan, then
// cover its mineral leaves with the cheapest ore mix. Every other leaf is
// listed as a direct purchase. An infeasible mix is reported in MixError
// rather than failing the request.
func (e *Engine) ShoppingList(ctx context.Context, req industry.ShoppingListRequest) (*industry.ShoppingListResponse, error) {
	planResp, err := e.BuildPlan(ctx, req.Plan)
	if err != nil {
		return nil, err
	}

	resp := &industry.ShoppingListResponse{
		Plan:      *planResp,
		Minerals:  make(map[industry.TypeID]float64),
		Purchases: []industry.PlanMaterial{},
	}
	for _, m := range planResp.RawMaterials {
		if m.Needed <= 0 {
			continue
		}
		if e.ores.IsMineral(m.ItemID) {
			resp.Minerals[m.ItemID] = math.Ceil(m.Needed - 1e-9)
			continue
		}
		resp.Purchases = append(resp.Purchases, m)
	}

	if len(resp.Minerals) == 0 {
		return resp, nil
	}

	mixResp, err := e.OreMix(ctx, industry.OreMixRequest{
		Demand:      resp.Minerals,
		Constraints: req.Constraints,
		AllowedOres: req.AllowedOres,
		Efficiency:  req.Efficiency,
	})
	switch {
	case errors.Is(err, mix.ErrNoSolution):
		resp.MixError = err.Error()
	case err != nil:
		return nil, err
	default:
		resp.OreMix = mixResp
	}
	return resp, nil
}
