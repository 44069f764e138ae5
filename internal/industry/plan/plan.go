package plan

import (
	"github.com/rsned/industry-planner/pkg/industry"
)

// BuildPlan runs the whole pipeline: add every target, net stocks, apply
// facility bonuses and finalize.
func BuildPlan(catalog Catalog, targets []industry.PlanTarget, stocks []industry.Stock, cfg Config) *Plan {
	e := New(catalog, cfg)
	for _, t := range targets {
		e.Add(t.ProductID, t.Quantity)
	}
	if len(stocks) > 0 {
		e.AddStocks(stocks)
	}
	e.ApplyBonus()
	return e.Finalize()
}

// Jobs returns the production nodes in dependency order, parents first.
// Products fully covered by stock are kept with a single zero run.
func (p *Plan) Jobs() []industry.PlanJob {
	var jobs []industry.PlanJob
	for _, id := range p.Order {
		n := p.Nodes[id]
		if !n.Produced() || n.Runs == nil {
			continue
		}

		job := industry.PlanJob{
			ProductID:      n.ProductID,
			BlueprintID:    n.BlueprintID,
			Kind:           n.Kind,
			IsProduct:      n.IsProduct,
			Needed:         n.Needed,
			ProducesPerRun: n.ProducesPerRun,
			TimePerRunSec:  n.TimePerRun,
			Runs:           append([]int(nil), n.Runs...),
			StockApplied:   n.StockApplied,
			Bonuses:        append([]industry.BonusRecord(nil), n.Bonuses...),
			Cost:           n.Cost,
		}
		if len(n.Children) > 0 {
			job.Inputs = make(map[industry.TypeID]float64, len(n.Children))
			for child, qty := range n.Children {
				job.Inputs[child] = qty
			}
		}
		if n.Structure != nil {
			sid := n.Structure.ID
			job.StructureID = &sid
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// RawMaterials returns the leaves that still have to be acquired, including
// leaves fully covered by stock.
func (p *Plan) RawMaterials() []industry.PlanMaterial {
	var mats []industry.PlanMaterial
	for _, id := range p.Order {
		n := p.Nodes[id]
		if n.Produced() || n.Blacklisted {
			continue
		}
		if n.Needed <= 0 && n.StockApplied == 0 {
			continue
		}
		mats = append(mats, industry.PlanMaterial{
			ItemID:       n.ProductID,
			Needed:       n.Needed,
			StockApplied: n.StockApplied,
		})
	}
	return mats
}

// Summary aggregates run counts, wall time and job cost over all jobs.
func (p *Plan) Summary() industry.BuildPlanSummary {
	var s industry.BuildPlanSummary
	for _, n := range p.Nodes {
		if !n.Produced() || n.TotalRuns() == 0 {
			continue
		}
		s.JobCount += len(n.Runs)
		s.TotalRuns += n.TotalRuns()
		s.TotalTimeSec += float64(n.TotalRuns()) * n.TimePerRun
		s.TotalJobCost += n.Cost.TotalJobCost
	}
	return s
}
