package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsned/industry-planner/pkg/industry"
)

// StructureStore handles production facility data access.
type StructureStore struct {
	db *DB
}

// NewStructureStore creates a new StructureStore.
func NewStructureStore(db *DB) *StructureStore {
	return &StructureStore{db: db}
}

// GetStructures retrieves every structure with its services and rigs,
// in id order.
func (s *StructureStore) GetStructures(ctx context.Context) ([]industry.Structure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, system_id, structure_type
		FROM structures
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying structures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var structures []industry.Structure
	index := make(map[int64]int)
	for rows.Next() {
		var st industry.Structure
		if err := rows.Scan(&st.ID, &st.Name, &st.SystemID, &st.Type); err != nil {
			return nil, fmt.Errorf("scanning structure: %w", err)
		}
		index[st.ID] = len(structures)
		structures = append(structures, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadServices(ctx, structures, index); err != nil {
		return nil, err
	}
	if err := s.loadRigs(ctx, structures, index); err != nil {
		return nil, err
	}

	return structures, nil
}

func (s *StructureStore) loadServices(ctx context.Context, structures []industry.Structure, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT structure_id, service_id
		FROM structure_services
		ORDER BY structure_id, service_id
	`)
	if err != nil {
		return fmt.Errorf("querying structure services: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			structureID int64
			serviceID   int32
		)
		if err := rows.Scan(&structureID, &serviceID); err != nil {
			return fmt.Errorf("scanning structure service: %w", err)
		}
		if i, ok := index[structureID]; ok {
			structures[i].Services = append(structures[i].Services, serviceID)
		}
	}

	return rows.Err()
}

func (s *StructureStore) loadRigs(ctx context.Context, structures []industry.Structure, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.structure_id, r.material_bonus, r.time_bonus, t.target_id
		FROM structure_rigs r
		LEFT JOIN structure_rig_targets t ON t.rig_id = r.id
		ORDER BY r.structure_id, r.position, t.target_id
	`)
	if err != nil {
		return fmt.Errorf("querying structure rigs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	lastRig := int64(-1)
	for rows.Next() {
		var (
			rigID, structureID int64
			materialBonus      sql.NullFloat64
			timeBonus          sql.NullFloat64
			target             sql.NullInt32
		)
		if err := rows.Scan(&rigID, &structureID, &materialBonus, &timeBonus, &target); err != nil {
			return fmt.Errorf("scanning structure rig: %w", err)
		}
		i, ok := index[structureID]
		if !ok {
			continue
		}

		st := &structures[i]
		if rigID != lastRig {
			var rig industry.Rig
			if materialBonus.Valid {
				v := materialBonus.Float64
				rig.MaterialBonus = &v
			}
			if timeBonus.Valid {
				v := timeBonus.Float64
				rig.TimeBonus = &v
			}
			st.Rigs = append(st.Rigs, rig)
			lastRig = rigID
		}
		if target.Valid {
			rig := &st.Rigs[len(st.Rigs)-1]
			rig.AppliesTo = append(rig.AppliesTo, target.Int32)
		}
	}

	return rows.Err()
}

// GetMappings retrieves the category/group to structure index.
func (s *StructureStore) GetMappings(ctx context.Context) ([]industry.StructureMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target_id, structure_id
		FROM structure_mappings
		ORDER BY target_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying structure mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []industry.StructureMapping
	for rows.Next() {
		var (
			target      int32
			structureID int64
		)
		if err := rows.Scan(&target, &structureID); err != nil {
			return nil, fmt.Errorf("scanning structure mapping: %w", err)
		}
		if n := len(mappings); n == 0 || mappings[n-1].TargetID != target {
			mappings = append(mappings, industry.StructureMapping{TargetID: target})
		}
		last := &mappings[len(mappings)-1]
		last.StructureIDs = append(last.StructureIDs, structureID)
	}

	return mappings, rows.Err()
}

// BulkInsertStructures replaces all structures. When mappings is empty
// it is derived from the rig targets.
func (s *StructureStore) BulkInsertStructures(ctx context.Context, structures []industry.Structure, mappings []industry.StructureMapping) error {
	if len(mappings) == 0 {
		mappings = industry.DeriveMappings(structures)
	}

	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"structure_mappings", "structure_rig_targets", "structure_rigs", "structure_services", "structures"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}

		for _, st := range structures {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO structures (id, name, system_id, structure_type)
				VALUES (?, ?, ?, ?)
			`, st.ID, st.Name, st.SystemID, string(st.Type))
			if err != nil {
				return fmt.Errorf("inserting structure %d: %w", st.ID, err)
			}

			for _, svc := range st.Services {
				_, err := tx.ExecContext(ctx, `
					INSERT OR IGNORE INTO structure_services (structure_id, service_id)
					VALUES (?, ?)
				`, st.ID, svc)
				if err != nil {
					return fmt.Errorf("inserting service for %d: %w", st.ID, err)
				}
			}

			for pos, rig := range st.Rigs {
				res, err := tx.ExecContext(ctx, `
					INSERT INTO structure_rigs (structure_id, position, material_bonus, time_bonus)
					VALUES (?, ?, ?, ?)
				`, st.ID, pos, rig.MaterialBonus, rig.TimeBonus)
				if err != nil {
					return fmt.Errorf("inserting rig for %d: %w", st.ID, err)
				}
				rigID, err := res.LastInsertId()
				if err != nil {
					return fmt.Errorf("reading rig id: %w", err)
				}
				for _, target := range rig.AppliesTo {
					_, err := tx.ExecContext(ctx, `
						INSERT OR IGNORE INTO structure_rig_targets (rig_id, target_id)
						VALUES (?, ?)
					`, rigID, target)
					if err != nil {
						return fmt.Errorf("inserting rig target for %d: %w", st.ID, err)
					}
				}
			}
		}

		for _, m := range mappings {
			for pos, structureID := range m.StructureIDs {
				_, err := tx.ExecContext(ctx, `
					INSERT OR IGNORE INTO structure_mappings (target_id, structure_id, position)
					VALUES (?, ?, ?)
				`, m.TargetID, structureID, pos)
				if err != nil {
					return fmt.Errorf("inserting mapping for %d: %w", m.TargetID, err)
				}
			}
		}

		return nil
	})
}
