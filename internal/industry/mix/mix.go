// Package mix selects the cheapest combination of ores (and raw minerals)
// whose refined output covers a mineral demand vector.
package mix

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/rsned/industry-planner/internal/industry/ore"
	"github.com/rsned/industry-planner/pkg/industry"
)

// ErrNoSolution is returned when no mix of the allowed ores covers the demand.
var ErrNoSolution = errors.New("no ore mix satisfies the demand")

const (
	// MinPrice is the price below which an ore is treated as unpriced.
	MinPrice = 0.01
	// BatchSize is the refining quantum ores are rounded up to.
	BatchSize = 100

	simplexTol = 1e-10
	zeroTol    = 1e-9
	snapTol    = 1e-10
)

// variable is one LP column backed by an ore. Ores are counted in
// batches, minerals in units.
type variable struct {
	id    industry.TypeID
	yield *ore.Yield
	price float64 // per batch or unit
	cap   float64 // in batches or units
}

// unitSize is the number of items one LP unit of v stands for.
func (v variable) unitSize() float64 {
	if v.yield.Mineral {
		return 1
	}
	return BatchSize
}

// Optimize returns the minimum-cost quantity of each ore such that the
// refined output at the given efficiency covers demand.
//
// Ore yields are per refining batch of BatchSize units, so ores are solved
// in batches and returned as multiples of BatchSize; raw minerals are solved
// and returned in whole units. Prices and caps are per unit. Caps are
// rounded down to whole batches, and an ore capped below one batch is never
// selected, as are ores missing from constraints, disallowed, or priced
// below MinPrice.
func Optimize(
	table *ore.Table,
	constraints map[industry.TypeID]industry.OreConstraint,
	demand map[industry.TypeID]float64,
	efficiency float64,
) (map[industry.TypeID]float64, error) {
	if efficiency <= 0 || efficiency > 1 || math.IsNaN(efficiency) {
		return nil, fmt.Errorf("%w: refining efficiency %v outside (0,1]", ErrNoSolution, efficiency)
	}

	minerals := demandedMinerals(demand)
	if len(minerals) == 0 {
		return map[industry.TypeID]float64{}, nil
	}

	vars := buildVariables(table, constraints, minerals)
	for _, m := range minerals {
		covered := false
		for _, v := range vars {
			if v.yield.Base(m) > 0 {
				covered = true
				break
			}
		}
		if !covered {
			return nil, fmt.Errorf("%w: nothing allowed refines into %d", ErrNoSolution, m)
		}
	}

	x, err := solve(vars, minerals, demand, efficiency)
	if err != nil {
		return nil, err
	}

	counts := roundUp(vars, x, snapTol)
	if !covers(vars, counts, minerals, demand, efficiency) {
		counts = roundUp(vars, x, 0)
	}

	result := make(map[industry.TypeID]float64)
	for j, v := range vars {
		if counts[j] <= 0 {
			continue
		}
		result[v.id] = counts[j] * v.unitSize()
	}
	return result, nil
}

// demandedMinerals returns the minerals with a positive demand, sorted.
func demandedMinerals(demand map[industry.TypeID]float64) []industry.TypeID {
	var minerals []industry.TypeID
	for id, qty := range demand {
		if qty > 0 {
			minerals = append(minerals, id)
		}
	}
	sort.Slice(minerals, func(i, j int) bool { return minerals[i] < minerals[j] })
	return minerals
}

// buildVariables keeps the allowed, priced ores that yield at least one
// demanded mineral. Everything else is pinned to zero by omission.
func buildVariables(
	table *ore.Table,
	constraints map[industry.TypeID]industry.OreConstraint,
	minerals []industry.TypeID,
) []variable {
	var vars []variable
	for _, id := range table.IDs() {
		c, ok := constraints[id]
		if !ok || !c.Allowed || c.UnitPrice < MinPrice {
			continue
		}
		y := table.Yield(id)
		useful := false
		for _, m := range minerals {
			if y.Base(m) > 0 {
				useful = true
				break
			}
		}
		if !useful {
			continue
		}
		v := variable{id: id, yield: y, cap: math.Inf(1)}
		v.price = c.UnitPrice * v.unitSize()
		if c.Cap > 0 {
			v.cap = math.Floor(c.Cap/v.unitSize() + zeroTol)
			if v.cap < 1 {
				continue
			}
		}
		vars = append(vars, v)
	}
	return vars
}

// solve builds the standard-form LP
//
//	min  Σ price_j x_j
//	s.t. Σ_j a_mj x_j − s_m = demand_m   for every demanded mineral m
//	     x_j + u_j = cap_j               for every capped ore j
//	     x, s, u ≥ 0
//
// and returns the ore part of the optimal point.
func solve(vars []variable, minerals []industry.TypeID, demand map[industry.TypeID]float64, efficiency float64) ([]float64, error) {
	var capped []int
	for j, v := range vars {
		if !math.IsInf(v.cap, 1) {
			capped = append(capped, j)
		}
	}

	rows := len(minerals) + len(capped)
	cols := len(vars) + len(minerals) + len(capped)

	A := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	c := make([]float64, cols)

	for j, v := range vars {
		c[j] = v.price
	}

	for i, m := range minerals {
		for j, v := range vars {
			if coef := v.yield.Effective(m, efficiency); coef > 0 {
				A.Set(i, j, coef)
			}
		}
		A.Set(i, len(vars)+i, -1)
		b[i] = demand[m]
	}

	for k, j := range capped {
		row := len(minerals) + k
		A.Set(row, j, 1)
		A.Set(row, len(vars)+len(minerals)+k, 1)
		b[row] = vars[j].cap
	}

	_, x, err := lp.Simplex(c, A, b, simplexTol, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSolution, err)
	}
	return x[:len(vars)], nil
}

// roundUp turns LP values into whole batches or units. Values within a
// relative tol above an integer are treated as that integer to absorb
// solver noise. Counts never exceed a variable's cap.
func roundUp(vars []variable, x []float64, tol float64) []float64 {
	counts := make([]float64, len(vars))
	for j, v := range vars {
		if x[j] <= zeroTol {
			continue
		}
		c := math.Ceil(x[j] - tol*math.Max(1, x[j]))
		c = math.Min(math.Max(c, 1), v.cap)
		counts[j] = c
	}
	return counts
}

// covers reports whether counts refine into at least the demand.
func covers(vars []variable, counts []float64, minerals []industry.TypeID, demand map[industry.TypeID]float64, efficiency float64) bool {
	for _, m := range minerals {
		total := 0.0
		for j, v := range vars {
			total += counts[j] * v.yield.Effective(m, efficiency)
		}
		if total < demand[m] {
			return false
		}
	}
	return true
}

// Refined returns the mineral output of a mix at the given efficiency.
// Ore quantities are in units and refine per batch of BatchSize.
func Refined(table *ore.Table, quantities map[industry.TypeID]float64, efficiency float64) map[industry.TypeID]float64 {
	out := make(map[industry.TypeID]float64)
	for id, qty := range quantities {
		y := table.Yield(id)
		if y == nil {
			continue
		}
		batches := qty
		if !y.Mineral {
			batches = qty / BatchSize
		}
		for _, m := range y.Minerals {
			out[m.MineralID] += batches * y.Effective(m.MineralID, efficiency)
		}
	}
	return out
}

// Cost returns Σ quantity × unit price of a mix.
func Cost(quantities map[industry.TypeID]float64, constraints map[industry.TypeID]industry.OreConstraint) float64 {
	var total float64
	for id, qty := range quantities {
		total += qty * constraints[id].UnitPrice
	}
	return total
}
