package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rsned/industry-planner/pkg/industry"
)

// ItemStore handles item catalog access.
type ItemStore struct {
	db *DB
}

// NewItemStore creates a new ItemStore.
func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemColumns = `id, name, category_id, group_id, meta_group_id, volume, repackaged_volume`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (industry.Item, error) {
	var (
		it         industry.Item
		metaGroup  sql.NullInt32
		repackaged sql.NullFloat64
	)
	err := row.Scan(&it.ID, &it.Name, &it.CategoryID, &it.GroupID, &metaGroup, &it.Volume, &repackaged)
	if err != nil {
		return it, err
	}
	if metaGroup.Valid {
		v := metaGroup.Int32
		it.MetaGroupID = &v
	}
	if repackaged.Valid {
		v := repackaged.Float64
		it.RepackagedVolume = &v
	}
	return it, nil
}

// GetItem retrieves a single item by ID. Returns nil if not found.
func (s *ItemStore) GetItem(ctx context.Context, id industry.TypeID) (*industry.Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	return &it, nil
}

// SearchItems searches items by name (case-insensitive partial match).
func (s *ItemStore) SearchItems(ctx context.Context, term string, limit int) ([]industry.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE name LIKE ?
		ORDER BY length(name), id
		LIMIT ?
	`, "%"+term+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []industry.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		results = append(results, it)
	}

	return results, rows.Err()
}

// GetAllItems retrieves every item in the catalog.
func (s *ItemStore) GetAllItems(ctx context.Context) ([]industry.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying all items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []industry.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

// CountItems returns the total number of items.
func (s *ItemStore) CountItems(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return count, nil
}

// BulkInsertItems inserts or replaces multiple items in a transaction.
func (s *ItemStore) BulkInsertItems(ctx context.Context, items []industry.Item) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO items (`+itemColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing item statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, it := range items {
			_, err := stmt.ExecContext(ctx,
				it.ID, it.Name, it.CategoryID, it.GroupID,
				it.MetaGroupID, it.Volume, it.RepackagedVolume,
			)
			if err != nil {
				return fmt.Errorf("inserting item %d: %w", it.ID, err)
			}
		}

		return nil
	})
}
