package db

import (
	"context"
	"fmt"

	"github.com/rsned/industry-planner/pkg/industry"
)

// LoadCatalog reads the item and blueprint tables into an immutable
// in-memory catalog.
func LoadCatalog(ctx context.Context, db *DB) (*industry.Catalog, error) {
	items, err := NewItemStore(db).GetAllItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}

	blueprints, err := NewBlueprintStore(db).GetAllBlueprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading blueprints: %w", err)
	}

	return industry.NewCatalog(items, blueprints), nil
}
