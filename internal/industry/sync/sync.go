// Package sync imports reference data dumps into the planner database.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/rsned/industry-planner/internal/industry/db"
	"github.com/rsned/industry-planner/pkg/industry"
)

// Syncer imports JSON dumps. Files ending in .zst are zstd-compressed.
type Syncer struct {
	db *db.DB
}

// NewSyncer creates a new Syncer.
func NewSyncer(database *db.DB) *Syncer {
	return &Syncer{db: database}
}

// ItemImport is one row of an item dump.
type ItemImport struct {
	ID               industry.TypeID `json:"id,omitempty"`
	TypeID           industry.TypeID `json:"type_id,omitempty"`
	Name             string          `json:"name"`
	CategoryID       int32           `json:"category_id"`
	GroupID          int32           `json:"group_id"`
	MetaGroupID      *int32          `json:"meta_group_id,omitempty"`
	Volume           float64         `json:"volume"`
	RepackagedVolume *float64        `json:"repackaged_volume,omitempty"`
}

// BlueprintImport is one row of a blueprint dump. Inputs may be given as
// a map or as a material list.
type BlueprintImport struct {
	BlueprintID  industry.TypeID             `json:"blueprint_id"`
	ProductID    industry.TypeID             `json:"product_id"`
	Kind         string                      `json:"kind,omitempty"`
	Activity     string                      `json:"activity,omitempty"`
	OutputPerRun int                         `json:"output_per_run,omitempty"`
	Quantity     int                         `json:"quantity,omitempty"`
	BaseTimeSec  float64                     `json:"base_time_sec,omitempty"`
	Time         float64                     `json:"time,omitempty"`
	Inputs       map[industry.TypeID]float64 `json:"inputs,omitempty"`

	Materials []struct {
		TypeID   industry.TypeID `json:"type_id"`
		Quantity float64         `json:"quantity"`
	} `json:"materials,omitempty"`
}

// PriceImport is one row of a price dump. Adjusted price dumps carry
// adjusted_price, ore price dumps carry price or average_price.
type PriceImport struct {
	TypeID        industry.TypeID `json:"type_id"`
	Price         float64         `json:"price,omitempty"`
	AdjustedPrice float64         `json:"adjusted_price,omitempty"`
	AveragePrice  float64         `json:"average_price,omitempty"`
}

// SystemIndexImport is one solar system of a cost index dump.
type SystemIndexImport struct {
	SolarSystemID int32 `json:"solar_system_id"`
	CostIndices   []struct {
		Activity  string  `json:"activity"`
		CostIndex float64 `json:"cost_index"`
	} `json:"cost_indices"`
}

// StockImport is one row of an inventory dump.
type StockImport struct {
	ItemID   industry.TypeID `json:"item_id,omitempty"`
	TypeID   industry.TypeID `json:"type_id,omitempty"`
	Quantity int             `json:"quantity"`
}

// readJSON decodes the file at path into v.
func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("opening zstd stream: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return nil
}

// recordSync stores the last sync time and row count of kind.
func (s *Syncer) recordSync(ctx context.Context, kind string, count int) error {
	if err := s.db.SetSyncMetadata(ctx, kind+"_last_sync", time.Now().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := s.db.SetSyncMetadata(ctx, kind+"_count", fmt.Sprintf("%d", count)); err != nil {
		return err
	}
	return nil
}

// ImportItemsFromFile imports the item catalog.
func (s *Syncer) ImportItemsFromFile(ctx context.Context, path string) error {
	var imports []ItemImport
	if err := readJSON(path, &imports); err != nil {
		return err
	}

	items := make([]industry.Item, 0, len(imports))
	for _, imp := range imports {
		id := imp.ID
		if id == 0 {
			id = imp.TypeID
		}
		if id == 0 {
			continue
		}
		items = append(items, industry.Item{
			ID:               id,
			Name:             imp.Name,
			CategoryID:       imp.CategoryID,
			GroupID:          imp.GroupID,
			MetaGroupID:      imp.MetaGroupID,
			Volume:           imp.Volume,
			RepackagedVolume: imp.RepackagedVolume,
		})
	}

	if err := db.NewItemStore(s.db).BulkInsertItems(ctx, items); err != nil {
		return fmt.Errorf("inserting items: %w", err)
	}
	return s.recordSync(ctx, "items", len(items))
}

// ImportBlueprintsFromFile replaces the blueprint table.
func (s *Syncer) ImportBlueprintsFromFile(ctx context.Context, path string) error {
	var imports []BlueprintImport
	if err := readJSON(path, &imports); err != nil {
		return err
	}

	blueprints := make([]industry.Blueprint, 0, len(imports))
	for _, imp := range imports {
		bp, err := transformBlueprint(imp)
		if err != nil {
			return err
		}
		blueprints = append(blueprints, bp)
	}

	store := db.NewBlueprintStore(s.db)
	if err := store.ClearBlueprints(ctx); err != nil {
		return fmt.Errorf("clearing blueprints: %w", err)
	}
	if err := store.BulkInsertBlueprints(ctx, blueprints); err != nil {
		return fmt.Errorf("inserting blueprints: %w", err)
	}
	return s.recordSync(ctx, "blueprints", len(blueprints))
}

// transformBlueprint converts import format to domain format.
func transformBlueprint(imp BlueprintImport) (industry.Blueprint, error) {
	bp := industry.Blueprint{
		BlueprintID:  imp.BlueprintID,
		ProductID:    imp.ProductID,
		OutputPerRun: imp.OutputPerRun,
		BaseTimeSec:  imp.BaseTimeSec,
	}

	// Handle kind - try multiple field names
	switch kind := strings.ToLower(imp.Kind + imp.Activity); {
	case kind == "" || kind == "blueprint" || kind == "manufacturing":
		bp.Kind = industry.KindBlueprint
	case kind == "reaction" || kind == "reactions":
		bp.Kind = industry.KindReaction
	case kind == "material":
		bp.Kind = industry.KindMaterial
	default:
		return bp, fmt.Errorf("blueprint for %d: unknown kind %q", imp.ProductID, imp.Kind+imp.Activity)
	}

	if bp.OutputPerRun == 0 {
		bp.OutputPerRun = imp.Quantity
	}
	if bp.OutputPerRun < 1 {
		bp.OutputPerRun = 1
	}
	if bp.BaseTimeSec == 0 {
		bp.BaseTimeSec = imp.Time
	}

	if len(imp.Inputs) > 0 {
		bp.Inputs = imp.Inputs
	}
	for _, m := range imp.Materials {
		if m.TypeID == 0 || m.Quantity <= 0 {
			continue
		}
		if bp.Inputs == nil {
			bp.Inputs = make(map[industry.TypeID]float64)
		}
		bp.Inputs[m.TypeID] += m.Quantity
	}
	if bp.Kind == industry.KindMaterial {
		bp.Inputs = nil
	}

	return bp, nil
}

// ImportStructuresFromFile replaces the structure table and derives the
// category/group mapping from the rigs.
func (s *Syncer) ImportStructuresFromFile(ctx context.Context, path string) error {
	var structures []industry.Structure
	if err := readJSON(path, &structures); err != nil {
		return err
	}

	if err := db.NewStructureStore(s.db).BulkInsertStructures(ctx, structures, nil); err != nil {
		return fmt.Errorf("inserting structures: %w", err)
	}
	return s.recordSync(ctx, "structures", len(structures))
}

// ImportAdjustedPricesFromFile replaces the adjusted price table.
func (s *Syncer) ImportAdjustedPricesFromFile(ctx context.Context, path string) error {
	var imports []PriceImport
	if err := readJSON(path, &imports); err != nil {
		return err
	}

	prices := make(map[industry.TypeID]float64, len(imports))
	for _, imp := range imports {
		price := imp.AdjustedPrice
		if price == 0 {
			price = imp.Price
		}
		if imp.TypeID != 0 && price > 0 {
			prices[imp.TypeID] = price
		}
	}

	if err := db.NewMarketStore(s.db).ImportAdjustedPrices(ctx, prices); err != nil {
		return fmt.Errorf("importing adjusted prices: %w", err)
	}
	return s.recordSync(ctx, "adjusted_prices", len(prices))
}

// ImportOrePricesFromFile replaces the ore price table.
func (s *Syncer) ImportOrePricesFromFile(ctx context.Context, path string) error {
	var imports []PriceImport
	if err := readJSON(path, &imports); err != nil {
		return err
	}

	prices := make(map[industry.TypeID]float64, len(imports))
	for _, imp := range imports {
		price := imp.Price
		if price == 0 {
			price = imp.AveragePrice
		}
		if imp.TypeID != 0 && price > 0 {
			prices[imp.TypeID] = price
		}
	}

	if err := db.NewMarketStore(s.db).ImportOrePrices(ctx, prices); err != nil {
		return fmt.Errorf("importing ore prices: %w", err)
	}
	return s.recordSync(ctx, "ore_prices", len(prices))
}

// ImportSystemIndicesFromFile replaces the system cost index table.
func (s *Syncer) ImportSystemIndicesFromFile(ctx context.Context, path string) error {
	var imports []SystemIndexImport
	if err := readJSON(path, &imports); err != nil {
		return err
	}

	indices := make(map[int32]industry.SystemIndex, len(imports))
	for _, imp := range imports {
		var idx industry.SystemIndex
		for _, ci := range imp.CostIndices {
			switch ci.Activity {
			case "manufacturing":
				idx.Manufacturing = ci.CostIndex
			case "reaction", "reactions":
				idx.Reaction = ci.CostIndex
			}
		}
		indices[imp.SolarSystemID] = idx
	}

	if err := db.NewMarketStore(s.db).ImportSystemIndices(ctx, indices); err != nil {
		return fmt.Errorf("importing system indices: %w", err)
	}
	return s.recordSync(ctx, "system_indices", len(indices))
}

// ImportStocksFromFile replaces the inventory of owner.
func (s *Syncer) ImportStocksFromFile(ctx context.Context, owner, path string) error {
	var imports []StockImport
	if err := readJSON(path, &imports); err != nil {
		return err
	}

	stocks := make([]industry.Stock, 0, len(imports))
	for _, imp := range imports {
		id := imp.ItemID
		if id == 0 {
			id = imp.TypeID
		}
		if id == 0 || imp.Quantity <= 0 {
			continue
		}
		stocks = append(stocks, industry.Stock{ItemID: id, Quantity: imp.Quantity})
	}

	if err := db.NewStockStore(s.db).SetStocks(ctx, owner, stocks); err != nil {
		return fmt.Errorf("importing stocks: %w", err)
	}
	return s.recordSync(ctx, "stocks_"+owner, len(stocks))
}
