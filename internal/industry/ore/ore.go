// Package ore holds the refining yield table: which minerals each ore
// variant (and its compressed twin) reprocesses into.
package ore

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rsned/industry-planner/pkg/industry"
)

//go:embed ores.yaml
var defaultTable []byte

// Scheme selects the tier multipliers of a family.
type Scheme string

const (
	SchemeOre     Scheme = "ore"
	SchemeMoon    Scheme = "moon"
	SchemeMineral Scheme = "mineral"
)

var multipliers = map[Scheme][]float64{
	SchemeOre:     {1.00, 1.05, 1.10, 1.15},
	SchemeMoon:    {1.00, 1.15, 2.00},
	SchemeMineral: {1.00},
}

// Multiplier returns the yield multiplier of a 1-based tier, or 0 if the
// tier does not exist in the scheme.
func (s Scheme) Multiplier(tier int) float64 {
	m := multipliers[s]
	if tier < 1 || tier > len(m) {
		return 0
	}
	return m[tier-1]
}

// MineralYield is the base output of one mineral per refining batch of ore.
type MineralYield struct {
	MineralID industry.TypeID `yaml:"mineral" json:"mineral_id"`
	Base      float64         `yaml:"base" json:"base"`
}

// Yield is the refining profile of one ore id.
type Yield struct {
	OreID      industry.TypeID
	Family     string
	Tier       int
	Multiplier float64
	Minerals   []MineralYield
	Compressed bool
	Mineral    bool
}

// Base returns the base units of mineral per refining batch (0 if none).
// Minerals yield themselves one to one per unit.
func (y *Yield) Base(mineral industry.TypeID) float64 {
	for _, m := range y.Minerals {
		if m.MineralID == mineral {
			return m.Base
		}
	}
	return 0
}

// Effective returns base × tier multiplier × efficiency for one mineral.
func (y *Yield) Effective(mineral industry.TypeID, efficiency float64) float64 {
	return y.Base(mineral) * y.Multiplier * efficiency
}

// Family groups the tiers of one ore.
type Family struct {
	Name     string         `yaml:"name"`
	Scheme   Scheme         `yaml:"scheme"`
	Yield    []MineralYield `yaml:"yield"`
	Variants []Variant      `yaml:"variants"`
}

// Variant is one tier of a family.
type Variant struct {
	ID         industry.TypeID `yaml:"id"`
	Name       string          `yaml:"name"`
	Tier       int             `yaml:"tier"`
	Compressed industry.TypeID `yaml:"compressed"`
}

type mineralDef struct {
	ID   industry.TypeID `yaml:"id"`
	Name string          `yaml:"name"`
}

type tableFile struct {
	Minerals []mineralDef `yaml:"minerals"`
	Families []Family     `yaml:"families"`
}

// Table is the loaded yield table. It is immutable after Load.
type Table struct {
	names        map[industry.TypeID]string
	yields       map[industry.TypeID]*Yield
	families     map[industry.TypeID]*Family
	uncompressed map[industry.TypeID][]industry.TypeID
	minerals     []industry.TypeID
	ids          []industry.TypeID
}

var (
	defaultOnce sync.Once
	defaultTbl  *Table
	defaultErr  error
)

// Default returns the table compiled into the binary.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTbl, defaultErr = Parse(defaultTable)
	})
	return defaultTbl, defaultErr
}

// LoadFile reads a yield table from a YAML file.
func LoadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ore table: %w", err)
	}
	return Parse(raw)
}

// Load reads a yield table from r.
func Load(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading ore table: %w", err)
	}
	return Parse(raw)
}

// Parse builds a Table from YAML.
func Parse(raw []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("ores.yaml: %w", err)
	}

	t := &Table{
		names:        make(map[industry.TypeID]string),
		yields:       make(map[industry.TypeID]*Yield),
		families:     make(map[industry.TypeID]*Family),
		uncompressed: make(map[industry.TypeID][]industry.TypeID),
	}

	for _, m := range f.Minerals {
		if _, dup := t.yields[m.ID]; dup {
			return nil, fmt.Errorf("ores.yaml: duplicate mineral %d", m.ID)
		}
		t.names[m.ID] = m.Name
		t.yields[m.ID] = &Yield{
			OreID:      m.ID,
			Family:     m.Name,
			Tier:       1,
			Multiplier: 1,
			Minerals:   []MineralYield{{MineralID: m.ID, Base: 1}},
			Mineral:    true,
		}
		t.minerals = append(t.minerals, m.ID)
	}

	for i := range f.Families {
		fam := &f.Families[i]
		if _, ok := multipliers[fam.Scheme]; !ok {
			return nil, fmt.Errorf("ores.yaml: family %s: unknown scheme %q", fam.Name, fam.Scheme)
		}
		for _, y := range fam.Yield {
			if y.Base <= 0 {
				return nil, fmt.Errorf("ores.yaml: family %s: non-positive yield for %d", fam.Name, y.MineralID)
			}
			if mineral := t.yields[y.MineralID]; mineral == nil || !mineral.Mineral {
				return nil, fmt.Errorf("ores.yaml: family %s: unknown mineral %d", fam.Name, y.MineralID)
			}
		}

		for _, v := range fam.Variants {
			mult := fam.Scheme.Multiplier(v.Tier)
			if mult == 0 {
				return nil, fmt.Errorf("ores.yaml: %s: tier %d outside scheme %s", v.Name, v.Tier, fam.Scheme)
			}
			if _, dup := t.yields[v.ID]; dup {
				return nil, fmt.Errorf("ores.yaml: duplicate ore id %d", v.ID)
			}
			t.add(v.ID, v.Name, fam, v.Tier, mult, false)

			if v.Compressed == 0 {
				continue
			}
			// Several variants may share a compressed id; the first one
			// defines its yield, all of them are recorded as twins.
			t.uncompressed[v.Compressed] = append(t.uncompressed[v.Compressed], v.ID)
			if existing, ok := t.yields[v.Compressed]; ok {
				if !existing.Compressed {
					return nil, fmt.Errorf("ores.yaml: compressed id %d collides with ore %d", v.Compressed, existing.OreID)
				}
				continue
			}
			t.add(v.Compressed, "Compressed "+v.Name, fam, v.Tier, mult, true)
		}
	}

	t.ids = make([]industry.TypeID, 0, len(t.yields))
	for id := range t.yields {
		t.ids = append(t.ids, id)
	}
	sort.Slice(t.ids, func(i, j int) bool { return t.ids[i] < t.ids[j] })
	sort.Slice(t.minerals, func(i, j int) bool { return t.minerals[i] < t.minerals[j] })

	return t, nil
}

func (t *Table) add(id industry.TypeID, name string, fam *Family, tier int, mult float64, compressed bool) {
	minerals := make([]MineralYield, len(fam.Yield))
	copy(minerals, fam.Yield)
	t.names[id] = name
	t.families[id] = fam
	t.yields[id] = &Yield{
		OreID:      id,
		Family:     fam.Name,
		Tier:       tier,
		Multiplier: mult,
		Minerals:   minerals,
		Compressed: compressed,
	}
}

// Name returns the display name of an ore or mineral.
func (t *Table) Name(id industry.TypeID) string { return t.names[id] }

// Yield returns the refining profile of id, or nil if it does not refine.
func (t *Table) Yield(id industry.TypeID) *Yield { return t.yields[id] }

// Family returns the family an ore belongs to, or nil for minerals.
func (t *Table) Family(id industry.TypeID) *Family { return t.families[id] }

// IsMineral reports whether id is a refined output.
func (t *Table) IsMineral(id industry.TypeID) bool {
	y := t.yields[id]
	return y != nil && y.Mineral
}

// IsOre reports whether id is an ore (compressed or not).
func (t *Table) IsOre(id industry.TypeID) bool {
	y := t.yields[id]
	return y != nil && !y.Mineral
}

// Uncompressed returns the variants sharing the compressed id.
func (t *Table) Uncompressed(compressed industry.TypeID) []industry.TypeID {
	ids := t.uncompressed[compressed]
	if ids == nil {
		return nil
	}
	result := make([]industry.TypeID, len(ids))
	copy(result, ids)
	return result
}

// IDs returns every id in the table (ores, compressed ores and minerals), sorted.
func (t *Table) IDs() []industry.TypeID {
	result := make([]industry.TypeID, len(t.ids))
	copy(result, t.ids)
	return result
}

// Minerals returns the refined output ids, sorted.
func (t *Table) Minerals() []industry.TypeID {
	result := make([]industry.TypeID, len(t.minerals))
	copy(result, t.minerals)
	return result
}

// Producers returns the ids whose yield contains mineral.
func (t *Table) Producers(mineral industry.TypeID) []industry.TypeID {
	var ids []industry.TypeID
	for _, id := range t.ids {
		if t.yields[id].Base(mineral) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
