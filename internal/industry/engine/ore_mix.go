package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/rsned/industry-planner/internal/industry/mix"
	"github.com/rsned/industry-planner/pkg/industry"
)

// OreMix executes the ore_mix tool logic.
//
// Constraints start from the stored ore prices: every priced ore is
// allowed unless AllowedOres narrows the set. Explicit constraints replace
// the stored ones; a zero price falls back to the stored price. With a
// StockOwner, held ores are candidates even when unpriced, and only held
// ores are usable, capped at the held quantity. Holding an ore never
// overrides an explicit disallow or AllowedOres.
func (e *Engine) OreMix(ctx context.Context, req industry.OreMixRequest) (*industry.OreMixResponse, error) {
	efficiency := req.Efficiency
	if efficiency == 0 {
		efficiency = e.opts.Efficiency
	}

	constraints, err := e.oreConstraints(ctx, req)
	if err != nil {
		return nil, err
	}

	key, err := mixKey(req.Demand, constraints, efficiency)
	if err != nil {
		return nil, err
	}
	if e.mixCache != nil {
		if cached, ok := e.mixCache.Get(key); ok {
			resp := copyMix(cached)
			resp.Cached = true
			return resp, nil
		}
	}

	quantities, err := mix.Optimize(e.ores, constraints, req.Demand, efficiency)
	if err != nil {
		return nil, err
	}

	catalog, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	resp := &industry.OreMixResponse{
		Refined:    mix.Refined(e.ores, quantities, efficiency),
		TotalCost:  mix.Cost(quantities, constraints),
		Efficiency: efficiency,
	}
	for id, qty := range quantities {
		price := constraints[id].UnitPrice
		resp.Ores = append(resp.Ores, industry.OreQuantity{
			OreID:     id,
			Name:      e.name(catalog, id),
			Quantity:  qty,
			UnitPrice: price,
			Cost:      qty * price,
		})
	}
	sort.Slice(resp.Ores, func(i, j int) bool { return resp.Ores[i].OreID < resp.Ores[j].OreID })
	resp.TotalText = humanize.CommafWithDigits(resp.TotalCost, 2) + " ISK"

	e.logger.Debug("ore mix solved",
		"minerals", len(req.Demand),
		"ores", len(resp.Ores),
		"total", resp.TotalText,
	)

	if e.mixCache != nil {
		e.mixCache.Add(key, copyMix(resp))
	}
	return resp, nil
}

// copyMix returns a response that shares no slices or maps with r.
func copyMix(r *industry.OreMixResponse) *industry.OreMixResponse {
	out := *r
	out.Ores = append([]industry.OreQuantity(nil), r.Ores...)
	out.Refined = make(map[industry.TypeID]float64, len(r.Refined))
	for id, qty := range r.Refined {
		out.Refined[id] = qty
	}
	return &out
}

// oreConstraints builds the per-ore constraint set of a request.
func (e *Engine) oreConstraints(ctx context.Context, req industry.OreMixRequest) (map[industry.TypeID]industry.OreConstraint, error) {
	prices, err := e.market.GetOrePrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ore prices: %w", err)
	}

	var allowed map[industry.TypeID]bool
	if len(req.AllowedOres) > 0 {
		allowed = make(map[industry.TypeID]bool, len(req.AllowedOres))
		for _, id := range req.AllowedOres {
			allowed[id] = true
		}
	}

	var held map[industry.TypeID]int
	if req.StockOwner != "" {
		stocks, err := e.stocks.GetStocks(ctx, req.StockOwner)
		if err != nil {
			return nil, fmt.Errorf("loading stocks: %w", err)
		}
		held = make(map[industry.TypeID]int, len(stocks))
		for _, st := range stocks {
			held[st.ItemID] = st.Quantity
		}
	}

	constraints := make(map[industry.TypeID]industry.OreConstraint)
	for _, id := range e.ores.IDs() {
		c, explicit := req.Constraints[id]
		if !explicit {
			c = industry.OreConstraint{Allowed: prices[id] > 0 || held[id] > 0}
		}
		if c.UnitPrice == 0 {
			c.UnitPrice = prices[id]
		}
		if allowed != nil && !allowed[id] {
			c.Allowed = false
		}

		if held != nil {
			qty := held[id]
			switch {
			case qty <= 0:
				c.Allowed = false
			case c.Allowed:
				if c.Cap <= 0 || float64(qty) < c.Cap {
					c.Cap = float64(qty)
				}
				if c.UnitPrice < mix.MinPrice {
					c.UnitPrice = mix.MinPrice
				}
			}
		}
		constraints[id] = c
	}
	return constraints, nil
}

// mixKey digests the inputs of an optimization.
func mixKey(demand map[industry.TypeID]float64, constraints map[industry.TypeID]industry.OreConstraint, efficiency float64) (string, error) {
	active := make(map[industry.TypeID]industry.OreConstraint)
	for id, c := range constraints {
		if c.Allowed {
			active[id] = c
		}
	}
	raw, err := json.Marshal(struct {
		Demand      map[industry.TypeID]float64                `json:"d"`
		Constraints map[industry.TypeID]industry.OreConstraint `json:"c"`
		Efficiency  float64                                    `json:"e"`
	}{demand, active, efficiency})
	if err != nil {
		return "", fmt.Errorf("encoding ore mix key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
