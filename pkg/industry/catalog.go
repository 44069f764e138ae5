package industry

import "sort"

// Catalog is an immutable in-memory view of the item and blueprint tables.
// It is safe for concurrent readers once built.
type Catalog struct {
	items      map[TypeID]*Item
	blueprints map[TypeID]*Blueprint
	usedBy     map[TypeID][]TypeID
}

// NewCatalog indexes items and blueprints. Blueprints are keyed by product.
func NewCatalog(items []Item, blueprints []Blueprint) *Catalog {
	c := &Catalog{
		items:      make(map[TypeID]*Item, len(items)),
		blueprints: make(map[TypeID]*Blueprint, len(blueprints)),
		usedBy:     make(map[TypeID][]TypeID),
	}
	for i := range items {
		c.items[items[i].ID] = &items[i]
	}
	for i := range blueprints {
		bp := &blueprints[i]
		if bp.OutputPerRun < 1 {
			bp.OutputPerRun = 1
		}
		c.blueprints[bp.ProductID] = bp
		for input := range bp.Inputs {
			c.usedBy[input] = append(c.usedBy[input], bp.ProductID)
		}
	}
	for id := range c.usedBy {
		ids := c.usedBy[id]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return c
}

// Item looks up an item. Returns nil if not found.
func (c *Catalog) Item(id TypeID) *Item {
	return c.items[id]
}

// Blueprint looks up the blueprint producing id. Returns nil if not found.
func (c *Catalog) Blueprint(id TypeID) *Blueprint {
	return c.blueprints[id]
}

// UsedBy returns the products whose blueprints consume id.
func (c *Catalog) UsedBy(id TypeID) []TypeID {
	ids := c.usedBy[id]
	if ids == nil {
		return nil
	}
	result := make([]TypeID, len(ids))
	copy(result, ids)
	return result
}

// Name returns the item name, or "" if unknown.
func (c *Catalog) Name(id TypeID) string {
	if it := c.items[id]; it != nil {
		return it.Name
	}
	return ""
}

// CountItems returns the number of items in the catalog.
func (c *Catalog) CountItems() int { return len(c.items) }

// CountBlueprints returns the number of blueprints in the catalog.
func (c *Catalog) CountBlueprints() int { return len(c.blueprints) }
