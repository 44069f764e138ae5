// Package engine contains the planner query logic behind the MCP tools.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rsned/industry-planner/internal/industry/db"
	"github.com/rsned/industry-planner/internal/industry/ore"
	"github.com/rsned/industry-planner/internal/industry/plan"
	"github.com/rsned/industry-planner/pkg/industry"
)

// Options configures an Engine.
type Options struct {
	Ores          *ore.Table // nil uses the built-in table
	Efficiency    float64    // default refining efficiency
	CacheSize     int        // ore mix results kept; 0 disables the cache
	MaxJobTimeSec int
	MaxRuns       map[industry.TypeID]int
	Blacklist     []industry.TypeID
	Policy        plan.FacilityPolicy
	Defaults      *industry.EfficiencyOverride
	Logger        *slog.Logger
}

// Engine is the main query engine for planner operations.
type Engine struct {
	db         *db.DB
	items      *db.ItemStore
	structures *db.StructureStore
	market     *db.MarketStore
	stocks     *db.StockStore

	ores   *ore.Table
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	catalog *industry.Catalog

	mixCache *lru.Cache[string, *industry.OreMixResponse]
}

// New creates a new Engine over the given database.
func New(database *db.DB, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ores := opts.Ores
	if ores == nil {
		var err error
		ores, err = ore.Default()
		if err != nil {
			return nil, fmt.Errorf("loading ore table: %w", err)
		}
	}
	if opts.Efficiency <= 0 {
		opts.Efficiency = 1
	}

	e := &Engine{
		db:         database,
		items:      db.NewItemStore(database),
		structures: db.NewStructureStore(database),
		market:     db.NewMarketStore(database),
		stocks:     db.NewStockStore(database),
		ores:       ores,
		opts:       opts,
		logger:     logger.With("component", "engine"),
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, *industry.OreMixResponse](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating ore mix cache: %w", err)
		}
		e.mixCache = cache
	}

	return e, nil
}

// Catalog returns the in-memory item and blueprint catalog, loading it on
// first use.
func (e *Engine) Catalog(ctx context.Context) (*industry.Catalog, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.catalog != nil {
		return e.catalog, nil
	}
	catalog, err := db.LoadCatalog(ctx, e.db)
	if err != nil {
		return nil, err
	}
	e.logger.Info("catalog loaded",
		"items", catalog.CountItems(),
		"blueprints", catalog.CountBlueprints(),
	)
	e.catalog = catalog
	return catalog, nil
}

// Invalidate drops the cached catalog and ore mix results. Call it after
// importing new reference data.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.catalog = nil
	e.mu.Unlock()

	if e.mixCache != nil {
		e.mixCache.Purge()
	}
}

// name returns the display name of an item from the catalog or the ore table.
func (e *Engine) name(catalog *industry.Catalog, id industry.TypeID) string {
	if catalog != nil {
		if n := catalog.Name(id); n != "" {
			return n
		}
	}
	return e.ores.Name(id)
}
