package plan

import (
	"math"

	"github.com/rsned/industry-planner/pkg/industry"
)

// AddStocks records on-hand quantities and recomputes the tree. Each call
// replaces the previous quantity of the items it names, so applying the
// same stock twice is the same as applying it once. Repeated ids within
// one call are summed.
func (e *Engine) AddStocks(stocks []industry.Stock) {
	batch := make(map[industry.TypeID]int, len(stocks))
	for _, s := range stocks {
		if s.Quantity <= 0 {
			continue
		}
		batch[s.ItemID] += s.Quantity
	}
	for id, qty := range batch {
		e.stock[id] = qty
	}
	e.recompute(false)
}

// applyStock nets the node's gross requirement against its on-hand stock.
func (e *Engine) applyStock(n *Node, gross float64) {
	used := 0
	if onHand := e.stock[n.ProductID]; onHand > 0 && gross > eps {
		used = min(onHand, int(math.Ceil(gross-eps)))
	}

	n.StockApplied = used
	n.Needed = math.Max(0, gross-float64(used))
	if used > 0 {
		e.consumed[n.ProductID] = used
	} else {
		delete(e.consumed, n.ProductID)
	}

	kept := n.Bonuses[:0]
	for _, b := range n.Bonuses {
		if b.Kind != "stock" {
			kept = append(kept, b)
		}
	}
	n.Bonuses = kept
	if used > 0 && n.Needed <= eps {
		n.Bonuses = append(n.Bonuses, industry.BonusRecord{
			Kind:    "stock",
			Source:  "stock",
			Percent: 100,
			Old:     gross,
			New:     0,
		})
	}
}

// StockConsumed returns the quantity of on-hand stock the tree currently uses.
func (e *Engine) StockConsumed() map[industry.TypeID]int {
	result := make(map[industry.TypeID]int, len(e.consumed))
	for id, qty := range e.consumed {
		result[id] = qty
	}
	return result
}
