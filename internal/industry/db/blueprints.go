package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rsned/industry-planner/pkg/industry"
)

// BlueprintStore handles blueprint data access.
type BlueprintStore struct {
	db *DB
}

// NewBlueprintStore creates a new BlueprintStore.
func NewBlueprintStore(db *DB) *BlueprintStore {
	return &BlueprintStore{db: db}
}

// GetBlueprint retrieves the blueprint producing productID with its inputs.
// Returns nil if not found.
func (s *BlueprintStore) GetBlueprint(ctx context.Context, productID industry.TypeID) (*industry.Blueprint, error) {
	bp := &industry.Blueprint{ProductID: productID}

	err := s.db.QueryRowContext(ctx, `
		SELECT blueprint_id, kind, output_per_run, base_time_sec
		FROM blueprints WHERE product_id = ?
	`, productID).Scan(
		&bp.BlueprintID,
		&bp.Kind,
		&bp.OutputPerRun,
		&bp.BaseTimeSec,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying blueprint: %w", err)
	}

	inputs, err := s.getMaterials(ctx, productID)
	if err != nil {
		return nil, err
	}
	bp.Inputs = inputs

	return bp, nil
}

// getMaterials retrieves the per-run inputs of a blueprint.
func (s *BlueprintStore) getMaterials(ctx context.Context, productID industry.TypeID) (map[industry.TypeID]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT material_id, quantity
		FROM blueprint_materials
		WHERE product_id = ?
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("querying blueprint materials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var inputs map[industry.TypeID]float64
	for rows.Next() {
		var (
			id  industry.TypeID
			qty float64
		)
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("scanning material: %w", err)
		}
		if inputs == nil {
			inputs = make(map[industry.TypeID]float64)
		}
		inputs[id] = qty
	}

	return inputs, rows.Err()
}

// GetAllBlueprints retrieves all blueprints with their inputs.
func (s *BlueprintStore) GetAllBlueprints(ctx context.Context) ([]industry.Blueprint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, blueprint_id, kind, output_per_run, base_time_sec
		FROM blueprints
		ORDER BY product_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying all blueprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var blueprints []industry.Blueprint
	index := make(map[industry.TypeID]int)
	for rows.Next() {
		var bp industry.Blueprint
		if err := rows.Scan(
			&bp.ProductID,
			&bp.BlueprintID,
			&bp.Kind,
			&bp.OutputPerRun,
			&bp.BaseTimeSec,
		); err != nil {
			return nil, fmt.Errorf("scanning blueprint: %w", err)
		}
		index[bp.ProductID] = len(blueprints)
		blueprints = append(blueprints, bp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Load all materials in one pass
	matRows, err := s.db.QueryContext(ctx, `
		SELECT product_id, material_id, quantity FROM blueprint_materials
	`)
	if err != nil {
		return nil, fmt.Errorf("querying blueprint materials: %w", err)
	}
	defer func() { _ = matRows.Close() }()

	for matRows.Next() {
		var (
			product, material industry.TypeID
			qty               float64
		)
		if err := matRows.Scan(&product, &material, &qty); err != nil {
			return nil, fmt.Errorf("scanning material: %w", err)
		}
		i, ok := index[product]
		if !ok {
			continue
		}
		if blueprints[i].Inputs == nil {
			blueprints[i].Inputs = make(map[industry.TypeID]float64)
		}
		blueprints[i].Inputs[material] = qty
	}

	return blueprints, matRows.Err()
}

// FindBlueprintsUsing returns the products whose blueprints consume materialID.
func (s *BlueprintStore) FindBlueprintsUsing(ctx context.Context, materialID industry.TypeID) ([]industry.TypeID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT product_id
		FROM blueprint_materials
		WHERE material_id = ?
		ORDER BY product_id
	`, materialID)
	if err != nil {
		return nil, fmt.Errorf("finding blueprints using material: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []industry.TypeID
	for rows.Next() {
		var id industry.TypeID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning product id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CountBlueprints returns the total number of blueprints.
func (s *BlueprintStore) CountBlueprints(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blueprints`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting blueprints: %w", err)
	}
	return count, nil
}

// BulkInsertBlueprints inserts multiple blueprints in a transaction.
// Existing inputs of a replaced blueprint are discarded.
func (s *BlueprintStore) BulkInsertBlueprints(ctx context.Context, blueprints []industry.Blueprint) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		clearStmt, err := tx.PrepareContext(ctx, `DELETE FROM blueprint_materials WHERE product_id = ?`)
		if err != nil {
			return fmt.Errorf("preparing clear statement: %w", err)
		}
		defer func() { _ = clearStmt.Close() }()

		bpStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO blueprints
			(product_id, blueprint_id, kind, output_per_run, base_time_sec)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(product_id) DO UPDATE SET
				blueprint_id = excluded.blueprint_id,
				kind = excluded.kind,
				output_per_run = excluded.output_per_run,
				base_time_sec = excluded.base_time_sec
		`)
		if err != nil {
			return fmt.Errorf("preparing blueprint statement: %w", err)
		}
		defer func() { _ = bpStmt.Close() }()

		matStmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO blueprint_materials (product_id, material_id, quantity)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing material statement: %w", err)
		}
		defer func() { _ = matStmt.Close() }()

		for _, bp := range blueprints {
			if !bp.Kind.IsValid() {
				return fmt.Errorf("blueprint for %d: invalid kind %q", bp.ProductID, bp.Kind)
			}
			output := max(1, bp.OutputPerRun)

			if _, err := clearStmt.ExecContext(ctx, bp.ProductID); err != nil {
				return fmt.Errorf("clearing materials for %d: %w", bp.ProductID, err)
			}
			_, err := bpStmt.ExecContext(ctx,
				bp.ProductID, bp.BlueprintID, string(bp.Kind), output, bp.BaseTimeSec,
			)
			if err != nil {
				return fmt.Errorf("inserting blueprint for %d: %w", bp.ProductID, err)
			}

			for material, qty := range bp.Inputs {
				if _, err := matStmt.ExecContext(ctx, bp.ProductID, material, qty); err != nil {
					return fmt.Errorf("inserting material for %d: %w", bp.ProductID, err)
				}
			}
		}

		return nil
	})
}

// ClearBlueprints removes all blueprint data (for re-sync).
func (s *BlueprintStore) ClearBlueprints(ctx context.Context) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM blueprint_materials`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM blueprints`)
		return err
	})
}
