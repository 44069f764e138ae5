package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/rsned/industry-planner/internal/industry/plan"
	"github.com/rsned/industry-planner/pkg/industry"
)

// ErrNoTargets is returned when a build plan request names nothing to build.
var ErrNoTargets = errors.New("no build targets")

// BuildPlan executes the build_plan tool logic.
func (e *Engine) BuildPlan(ctx context.Context, req industry.BuildPlanRequest) (*industry.BuildPlanResponse, error) {
	var targets []industry.PlanTarget
	for _, t := range req.Targets {
		if t.Quantity > 0 {
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	catalog, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := e.planConfig(ctx, req)
	if err != nil {
		return nil, err
	}

	stocks, err := e.requestStocks(ctx, req)
	if err != nil {
		return nil, err
	}

	p := plan.BuildPlan(catalog, targets, stocks, cfg)
	resp := e.planResponse(catalog, p)

	e.logger.Debug("build plan finalized",
		"targets", len(targets),
		"jobs", resp.Summary.JobCount,
		"runs", resp.Summary.TotalRuns,
		"cost", resp.Summary.TotalCostText,
	)
	return resp, nil
}

// planConfig merges the engine defaults with a request.
func (e *Engine) planConfig(ctx context.Context, req industry.BuildPlanRequest) (plan.Config, error) {
	structures, err := e.structures.GetStructures(ctx)
	if err != nil {
		return plan.Config{}, fmt.Errorf("loading structures: %w", err)
	}
	mappings, err := e.structures.GetMappings(ctx)
	if err != nil {
		return plan.Config{}, fmt.Errorf("loading structure mappings: %w", err)
	}
	indices, err := e.market.GetSystemIndices(ctx)
	if err != nil {
		return plan.Config{}, fmt.Errorf("loading system indices: %w", err)
	}
	prices, err := e.market.GetAdjustedPrices(ctx)
	if err != nil {
		return plan.Config{}, fmt.Errorf("loading adjusted prices: %w", err)
	}

	maxRuns := make(map[industry.TypeID]int, len(e.opts.MaxRuns)+len(req.MaxRuns))
	for id, n := range e.opts.MaxRuns {
		maxRuns[id] = n
	}
	for id, n := range req.MaxRuns {
		maxRuns[id] = n
	}

	maxJobTime := e.opts.MaxJobTimeSec
	if req.MaxJobTimeSec > 0 {
		maxJobTime = req.MaxJobTimeSec
	}

	return plan.Config{
		Blacklist:      append(append([]industry.TypeID(nil), e.opts.Blacklist...), req.Blacklist...),
		Overrides:      req.Overrides,
		Structures:     structures,
		Mappings:       mappings,
		SystemIndices:  indices,
		AdjustedPrices: prices,
		MaxJobTimeSec:  float64(maxJobTime),
		MaxRuns:        maxRuns,
		SkipChildren:   req.SkipChildren,
		Policy:         e.opts.Policy,
		Defaults:       e.opts.Defaults,
		Logger:         e.logger,
	}, nil
}

// requestStocks combines explicit stock with the stored stock of the owner.
func (e *Engine) requestStocks(ctx context.Context, req industry.BuildPlanRequest) ([]industry.Stock, error) {
	stocks := append([]industry.Stock(nil), req.Stocks...)
	if req.StockOwner == "" {
		return stocks, nil
	}
	owned, err := e.stocks.GetStocks(ctx, req.StockOwner)
	if err != nil {
		return nil, fmt.Errorf("loading stocks: %w", err)
	}
	return append(stocks, owned...), nil
}

// planResponse flattens a finalized plan and names every line.
func (e *Engine) planResponse(catalog *industry.Catalog, p *plan.Plan) *industry.BuildPlanResponse {
	resp := &industry.BuildPlanResponse{
		Jobs:          p.Jobs(),
		RawMaterials:  p.RawMaterials(),
		StockConsumed: p.StockConsumed,
		Summary:       p.Summary(),
	}
	for i := range resp.Jobs {
		resp.Jobs[i].Name = e.name(catalog, resp.Jobs[i].ProductID)
	}
	for i := range resp.RawMaterials {
		resp.RawMaterials[i].Name = e.name(catalog, resp.RawMaterials[i].ItemID)
	}
	if resp.Jobs == nil {
		resp.Jobs = []industry.PlanJob{}
	}
	if resp.RawMaterials == nil {
		resp.RawMaterials = []industry.PlanMaterial{}
	}
	resp.Summary.TotalCostText = humanize.Comma(int64(math.Ceil(resp.Summary.TotalJobCost))) + " ISK"
	return resp
}
