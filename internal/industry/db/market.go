package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsned/industry-planner/pkg/industry"
)

// MarketStore handles price and cost index data access.
type MarketStore struct {
	db *DB
}

// NewMarketStore creates a new MarketStore.
func NewMarketStore(db *DB) *MarketStore {
	return &MarketStore{db: db}
}

// GetAdjustedPrices returns the adjusted price of every known item, used
// to estimate job installation costs.
func (s *MarketStore) GetAdjustedPrices(ctx context.Context) (map[industry.TypeID]float64, error) {
	return s.getPrices(ctx, "adjusted_prices")
}

// GetOrePrices returns the unit purchase price of ores and minerals.
func (s *MarketStore) GetOrePrices(ctx context.Context) (map[industry.TypeID]float64, error) {
	return s.getPrices(ctx, "ore_prices")
}

func (s *MarketStore) getPrices(ctx context.Context, table string) (map[industry.TypeID]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT item_id, price FROM `+table)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	prices := make(map[industry.TypeID]float64)
	for rows.Next() {
		var (
			id    industry.TypeID
			price float64
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("scanning price: %w", err)
		}
		prices[id] = price
	}

	return prices, rows.Err()
}

// GetSystemIndices returns the cost indices of every known solar system.
func (s *MarketStore) GetSystemIndices(ctx context.Context) (map[int32]industry.SystemIndex, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT system_id, manufacturing, reaction FROM system_indices
	`)
	if err != nil {
		return nil, fmt.Errorf("querying system indices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	indices := make(map[int32]industry.SystemIndex)
	for rows.Next() {
		var (
			id  int32
			idx industry.SystemIndex
		)
		if err := rows.Scan(&id, &idx.Manufacturing, &idx.Reaction); err != nil {
			return nil, fmt.Errorf("scanning system index: %w", err)
		}
		indices[id] = idx
	}

	return indices, rows.Err()
}

// ImportAdjustedPrices replaces the adjusted price table.
func (s *MarketStore) ImportAdjustedPrices(ctx context.Context, prices map[industry.TypeID]float64) error {
	return s.importPrices(ctx, "adjusted_prices", prices)
}

// ImportOrePrices replaces the ore price table.
func (s *MarketStore) ImportOrePrices(ctx context.Context, prices map[industry.TypeID]float64) error {
	return s.importPrices(ctx, "ore_prices", prices)
}

func (s *MarketStore) importPrices(ctx context.Context, table string, prices map[industry.TypeID]float64) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (item_id, price) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for id, price := range prices {
			if _, err := stmt.ExecContext(ctx, id, price); err != nil {
				return fmt.Errorf("inserting price for %d: %w", id, err)
			}
		}

		return nil
	})
}

// ImportSystemIndices replaces the system cost index table.
func (s *MarketStore) ImportSystemIndices(ctx context.Context, indices map[int32]industry.SystemIndex) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM system_indices`); err != nil {
			return fmt.Errorf("clearing system indices: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO system_indices (system_id, manufacturing, reaction)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for id, idx := range indices {
			if _, err := stmt.ExecContext(ctx, id, idx.Manufacturing, idx.Reaction); err != nil {
				return fmt.Errorf("inserting index for %d: %w", id, err)
			}
		}

		return nil
	})
}
