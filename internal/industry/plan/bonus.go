package plan

import (
	"math"

	"github.com/rsned/industry-planner/pkg/industry"
)

// facility is a structure evaluated for one node.
type facility struct {
	structure *industry.Structure
	me        float64
	te        float64
	index     float64
}

// ApplyBonus picks a structure for every production node, applies its
// material and time efficiency (or an override, or the defaults) and
// recomputes the tree. Bonuses are always derived from the unbonused
// inputs, so calling it again yields the same tree.
func (e *Engine) ApplyBonus() {
	defaults := industry.EfficiencyOverride{ME: DefaultME, TE: DefaultTE}
	if e.cfg.Defaults != nil {
		defaults = *e.cfg.Defaults
	}

	for _, id := range e.insertion {
		n := e.nodes[id]
		if !n.Produced() {
			continue
		}

		best := e.selectFacility(n)
		me, te, source := defaults.ME, defaults.TE, "default"
		n.Structure = nil
		if best != nil {
			n.Structure = best.structure
			me, te, source = best.me, best.te, "structure"
		}
		if o, ok := e.cfg.Overrides[id]; ok {
			me, te, source = o.ME, o.TE, "override"
		}

		var records []industry.BonusRecord
		for _, b := range n.Bonuses {
			if b.Kind == "stock" {
				records = append(records, b)
			}
		}

		for _, child := range sortedKeys(n.ChildrenUnbonused) {
			orig := n.ChildrenUnbonused[child]
			adjusted := applyMaterialBonus(orig, me)
			n.Children[child] = adjusted
			if adjusted != orig {
				records = append(records, industry.BonusRecord{
					Kind:    "material",
					Source:  source,
					Percent: me,
					InputID: child,
					Old:     orig,
					New:     adjusted,
				})
			}
		}

		n.TimePerRun = n.BaseTimePerRun * (1 - te/100)
		if te != 0 {
			records = append(records, industry.BonusRecord{
				Kind:    "time",
				Source:  source,
				Percent: te,
				Old:     n.BaseTimePerRun,
				New:     n.TimePerRun,
			})
		}
		n.Bonuses = records
	}

	e.recompute(false)
}

// applyMaterialBonus reduces a per-run input quantity. Quantities of one
// unit or less are never reduced and the result never exceeds the input.
func applyMaterialBonus(qty, me float64) float64 {
	if qty <= 1 || me <= 0 {
		return qty
	}
	return math.Min(qty, math.Ceil(qty*(1-me/100)-eps))
}

// selectFacility returns the best structure able to build n, or nil.
func (e *Engine) selectFacility(n *Node) *facility {
	service := industry.RequiredService(n.Kind, n.GroupID)
	if service == 0 {
		return nil
	}

	var best *facility
	seen := make(map[int64]bool)
	candidates := append(append([]int64(nil), e.mapping[n.GroupID]...), e.mapping[n.CategoryID]...)
	for _, sid := range candidates {
		if seen[sid] {
			continue
		}
		seen[sid] = true

		s := e.structures[sid]
		if s == nil || !s.HasService(service) {
			continue
		}

		info := s.Type.Info()
		f := &facility{
			structure: s,
			me:        info.MaterialBonus,
			te:        info.TimeBonus,
			index:     s.Type.CostIndex(e.systemIndex(s.SystemID)),
		}
		for _, rig := range s.Rigs {
			if !rig.Applies(n.CategoryID, n.GroupID) {
				continue
			}
			if rig.MaterialBonus != nil {
				f.me += *rig.MaterialBonus
			}
			if rig.TimeBonus != nil {
				f.te += *rig.TimeBonus
			}
		}

		if best == nil || e.better(f, best) {
			best = f
		}
	}
	return best
}

func (e *Engine) better(a, b *facility) bool {
	if e.cfg.Policy == PreferIndex {
		if a.index != b.index {
			return a.index < b.index
		}
		return a.me > b.me
	}
	if a.me != b.me {
		return a.me > b.me
	}
	return a.index < b.index
}

// systemIndex returns the cost indices of a solar system. Unknown systems
// default to 1 for both activities.
func (e *Engine) systemIndex(systemID int32) industry.SystemIndex {
	if idx, ok := e.cfg.SystemIndices[systemID]; ok {
		return idx
	}
	return industry.SystemIndex{Manufacturing: 1, Reaction: 1}
}
