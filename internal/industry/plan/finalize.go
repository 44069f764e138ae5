package plan

import (
	"math"

	"github.com/rsned/industry-planner/pkg/industry"
)

// Plan is a finalized build plan.
type Plan struct {
	Nodes         map[industry.TypeID]*Node
	Order         []industry.TypeID // parents before children
	StockConsumed map[industry.TypeID]int
}

// Finalize splits runs into jobs, prices every job and returns the plan.
func (e *Engine) Finalize() *Plan {
	e.recompute(true)

	for _, id := range e.insertion {
		n := e.nodes[id]
		n.Cost = industry.CostBreakdown{}
		if n.Produced() && n.TotalRuns() > 0 {
			n.Cost = e.jobCost(n)
		}
	}

	e.pruneConsumed()

	nodes := make(map[industry.TypeID]*Node, len(e.nodes))
	for id, n := range e.nodes {
		nodes[id] = n
	}
	return &Plan{
		Nodes:         nodes,
		Order:         e.topoOrder(),
		StockConsumed: e.StockConsumed(),
	}
}

// splitRuns distributes baseRuns over jobs so that no job exceeds the
// configured run limit of the item or the wall-clock limit.
func (e *Engine) splitRuns(n *Node, baseRuns int) []int {
	return splitRuns(baseRuns, n.TimePerRun, e.cfg.MaxJobTimeSec, e.cfg.MaxRuns[n.ProductID], n.IsProduct)
}

func splitRuns(baseRuns int, timePerRun, maxWall float64, maxRuns int, isProduct bool) []int {
	if baseRuns <= 1 {
		return []int{baseRuns}
	}
	if isProduct {
		return []int{baseRuns}
	}

	fitsWall := maxWall <= 0 || float64(baseRuns)*timePerRun < maxWall
	fitsRuns := maxRuns <= 0 || baseRuns <= maxRuns
	if fitsWall && fitsRuns {
		return []int{baseRuns}
	}

	if maxRuns > 0 {
		var runs []int
		remaining := baseRuns
		for remaining > maxRuns {
			runs = append(runs, maxRuns)
			remaining -= maxRuns
		}
		return append(runs, remaining)
	}

	splits := int(math.Ceil(float64(baseRuns) * timePerRun / maxWall))
	splits = max(1, min(splits, baseRuns))
	per, extra := baseRuns/splits, baseRuns%splits
	runs := make([]int, splits)
	for i := range runs {
		runs[i] = per
		if i < extra {
			runs[i]++
		}
	}
	return runs
}

// pruneConsumed drops stock consumption that no longer feeds a job.
func (e *Engine) pruneConsumed() {
	for id, qty := range e.consumed {
		n := e.nodes[id]
		if qty <= 0 || n == nil {
			delete(e.consumed, id)
			continue
		}
		if n.IsProduct || len(n.parents) == 0 {
			continue
		}
		live := false
		for _, pid := range n.parents {
			if e.nodes[pid].Needed > 0 {
				live = true
				break
			}
		}
		if !live {
			delete(e.consumed, id)
		}
	}
}
