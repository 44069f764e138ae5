package engine

import (
	"context"

	"github.com/rsned/industry-planner/pkg/industry"
)

// ItemLookup executes the item_lookup tool logic.
func (e *Engine) ItemLookup(ctx context.Context, req industry.ItemLookupRequest) (*industry.ItemLookupResponse, error) {
	resp := &industry.ItemLookupResponse{}

	// If search term provided, search first
	if req.Search != "" {
		hits, err := e.items.SearchItems(ctx, req.Search, 10)
		if err != nil {
			return nil, err
		}
		resp.SearchResults = hits

		// If exactly one result and no item_id provided, use it
		if len(hits) == 1 && req.ItemID == 0 {
			req.ItemID = hits[0].ID
		}
	}

	// If no item ID, return just search results
	if req.ItemID == 0 {
		return resp, nil
	}

	catalog, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	resp.Item = catalog.Item(req.ItemID)
	resp.Blueprint = catalog.Blueprint(req.ItemID)
	resp.UsedIn = catalog.UsedBy(req.ItemID)
	resp.IsOre = e.ores.IsOre(req.ItemID)
	resp.IsMineral = e.ores.IsMineral(req.ItemID)

	if resp.Item == nil && (resp.IsOre || resp.IsMineral) {
		resp.Item = &industry.Item{ID: req.ItemID, Name: e.ores.Name(req.ItemID)}
	}

	return resp, nil
}
