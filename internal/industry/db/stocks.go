package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsned/industry-planner/pkg/industry"
)

// StockStore handles on-hand inventory per owner.
type StockStore struct {
	db *DB
}

// NewStockStore creates a new StockStore.
func NewStockStore(db *DB) *StockStore {
	return &StockStore{db: db}
}

// GetStocks returns the inventory of owner, in item order.
func (s *StockStore) GetStocks(ctx context.Context, owner string) ([]industry.Stock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, quantity
		FROM stocks
		WHERE owner = ? AND quantity > 0
		ORDER BY item_id
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("querying stocks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stocks []industry.Stock
	for rows.Next() {
		var st industry.Stock
		if err := rows.Scan(&st.ItemID, &st.Quantity); err != nil {
			return nil, fmt.Errorf("scanning stock: %w", err)
		}
		stocks = append(stocks, st)
	}

	return stocks, rows.Err()
}

// SetStocks replaces the inventory of owner. Quantities of the same item
// are summed.
func (s *StockStore) SetStocks(ctx context.Context, owner string, stocks []industry.Stock) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM stocks WHERE owner = ?`, owner); err != nil {
			return fmt.Errorf("clearing stocks: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO stocks (owner, item_id, quantity)
			VALUES (?, ?, ?)
			ON CONFLICT(owner, item_id) DO UPDATE SET
				quantity = quantity + excluded.quantity
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, st := range stocks {
			if st.Quantity <= 0 {
				continue
			}
			if _, err := stmt.ExecContext(ctx, owner, st.ItemID, st.Quantity); err != nil {
				return fmt.Errorf("inserting stock for %d: %w", st.ItemID, err)
			}
		}

		return nil
	})
}
