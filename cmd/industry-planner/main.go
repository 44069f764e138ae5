// Industry Planner MCP Server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rsned/industry-planner/internal/industry/config"
	"github.com/rsned/industry-planner/internal/industry/db"
	"github.com/rsned/industry-planner/internal/industry/engine"
	"github.com/rsned/industry-planner/internal/industry/mcp"
	"github.com/rsned/industry-planner/internal/industry/ore"
	"github.com/rsned/industry-planner/internal/industry/sync"
)

// importStep is one reference data import requested on the command line.
type importStep struct {
	what string
	file string
	run  func(ctx context.Context, path string) error
}

func main() {
	// Parse flags
	configPath := flag.String("config", "industry.yaml", "Path to YAML configuration")
	dbPath := flag.String("db", "", "Path to SQLite database (overrides config)")
	importItems := flag.String("import-items", "", "Import items from JSON file")
	importBlueprints := flag.String("import-blueprints", "", "Import blueprints from JSON file")
	importStructures := flag.String("import-structures", "", "Import structures from JSON file")
	importPrices := flag.String("import-prices", "", "Import adjusted prices from JSON file")
	importOrePrices := flag.String("import-ore-prices", "", "Import ore prices from JSON file")
	importIndices := flag.String("import-indices", "", "Import system cost indices from JSON file")
	importStocks := flag.String("import-stocks", "", "Import stock from JSON file (requires -stock-owner)")
	stockOwner := flag.String("stock-owner", "", "Owner the imported stock belongs to")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// Setup logging
	logger := cfg.NewLogger(os.Stderr, *verbose)

	// Create context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Open database
	database, err := db.OpenAndInit(ctx, cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = database.Close() }()

	// Handle import commands
	syncer := sync.NewSyncer(database)
	steps := []importStep{
		{"items", *importItems, syncer.ImportItemsFromFile},
		{"blueprints", *importBlueprints, syncer.ImportBlueprintsFromFile},
		{"structures", *importStructures, syncer.ImportStructuresFromFile},
		{"adjusted prices", *importPrices, syncer.ImportAdjustedPricesFromFile},
		{"ore prices", *importOrePrices, syncer.ImportOrePricesFromFile},
		{"system indices", *importIndices, syncer.ImportSystemIndicesFromFile},
		{"stocks", *importStocks, func(ctx context.Context, path string) error {
			if *stockOwner == "" {
				return errors.New("-import-stocks requires -stock-owner")
			}
			return syncer.ImportStocksFromFile(ctx, *stockOwner, path)
		}},
	}

	imported := false
	for _, step := range steps {
		if step.file == "" {
			continue
		}
		imported = true
		logger.Info("importing "+step.what, "file", step.file)
		if err := step.run(ctx, step.file); err != nil {
			logger.Error("failed to import "+step.what, "error", err)
			os.Exit(1)
		}
		logger.Info(step.what + " imported successfully")
	}

	// If only doing imports, exit
	if imported && flag.NArg() == 0 {
		return
	}

	// Create engine and server
	policy, err := cfg.Policy()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var ores *ore.Table
	if cfg.Optimizer.OreTable != "" {
		ores, err = ore.LoadFile(cfg.Optimizer.OreTable)
		if err != nil {
			logger.Error("failed to load ore table", "file", cfg.Optimizer.OreTable, "error", err)
			os.Exit(1)
		}
	}

	defaults := cfg.PlanDefaults()
	eng, err := engine.New(database, engine.Options{
		Ores:          ores,
		Efficiency:    cfg.Optimizer.Efficiency,
		CacheSize:     cfg.MixCacheSize(),
		MaxJobTimeSec: cfg.Planner.MaxJobTimeSec,
		MaxRuns:       cfg.Planner.MaxRuns,
		Blacklist:     cfg.Planner.Blacklist,
		Policy:        policy,
		Defaults:      &defaults,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	server, err := mcp.NewServer(eng, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Run MCP server
	logger.Info("starting MCP server", "db", cfg.Database.Path)
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stderr, "server stopped")
}
