package ore

import (
	"math"
	"strings"
	"testing"

	"github.com/rsned/industry-planner/pkg/industry"
)

const (
	tritanium industry.TypeID = 34
	veldspar  industry.TypeID = 1230
	stable    industry.TypeID = 46689
)

func TestDefaultTableFamilies(t *testing.T) {
	tbl, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	if got := len(tbl.Minerals()); got != 28 {
		t.Errorf("expected 28 minerals, got %d", got)
	}

	// Every variant must have a compressed twin with the same yield.
	for _, id := range tbl.IDs() {
		y := tbl.Yield(id)
		if y.Mineral || y.Compressed {
			continue
		}
		fam := tbl.Family(id)
		if fam == nil {
			t.Fatalf("ore %d has no family", id)
		}
		var twin industry.TypeID
		for _, v := range fam.Variants {
			if v.ID == id {
				twin = v.Compressed
			}
		}
		ty := tbl.Yield(twin)
		if ty == nil || !ty.Compressed {
			t.Fatalf("ore %d: missing compressed twin %d", id, twin)
		}
		if ty.Multiplier != y.Multiplier || len(ty.Minerals) != len(y.Minerals) {
			t.Errorf("ore %d: twin %d yield differs", id, twin)
		}
		for _, m := range y.Minerals {
			if ty.Base(m.MineralID) != m.Base {
				t.Errorf("ore %d: twin %d base for %d differs", id, twin, m.MineralID)
			}
		}
	}
}

func TestTierMultipliers(t *testing.T) {
	tbl, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	fam := tbl.Family(veldspar)
	want := []float64{1.00, 1.05, 1.10, 1.15}
	for i, v := range fam.Variants {
		if got := tbl.Yield(v.ID).Multiplier; got != want[i] {
			t.Errorf("%s: expected multiplier %.2f, got %.2f", v.Name, want[i], got)
		}
	}

	moon := tbl.Family(45492)
	if moon == nil || moon.Scheme != SchemeMoon {
		t.Fatalf("expected Bitumens to be a moon family")
	}
	wantMoon := []float64{1.00, 1.15, 2.00}
	for i, v := range moon.Variants {
		if got := tbl.Yield(v.ID).Multiplier; got != wantMoon[i] {
			t.Errorf("%s: expected multiplier %.2f, got %.2f", v.Name, wantMoon[i], got)
		}
	}
}

func TestEffectiveYield(t *testing.T) {
	tbl, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	got := tbl.Yield(stable).Effective(tritanium, 0.5)
	if math.Abs(got-400*1.15*0.5) > 1e-9 {
		t.Errorf("expected %v, got %v", 400*1.15*0.5, got)
	}
	if tbl.Yield(tritanium).Effective(tritanium, 1) != 1 {
		t.Errorf("minerals must refine into themselves")
	}
	if !tbl.IsMineral(tritanium) || tbl.IsOre(tritanium) {
		t.Errorf("tritanium classification wrong")
	}
	if !tbl.IsOre(veldspar) {
		t.Errorf("veldspar should be an ore")
	}
}

func TestCompressedCollision(t *testing.T) {
	raw := `
minerals:
  - {id: 1, name: A}
families:
  - name: Shared
    scheme: moon
    yield:
      - {mineral: 1, base: 10}
    variants:
      - {id: 100, name: Shared, tier: 1, compressed: 900}
      - {id: 101, name: Brimful Shared, tier: 2, compressed: 900}
`
	tbl, err := Load(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	twins := tbl.Uncompressed(900)
	if len(twins) != 2 || twins[0] != 100 || twins[1] != 101 {
		t.Fatalf("expected compressed 900 to map to [100 101], got %v", twins)
	}
	if tbl.Yield(900).Multiplier != 1.00 {
		t.Errorf("first variant should define the compressed yield")
	}
}

func TestParseRejectsBadTier(t *testing.T) {
	raw := `
minerals:
  - {id: 1, name: A}
families:
  - name: Bad
    scheme: moon
    yield:
      - {mineral: 1, base: 10}
    variants:
      - {id: 100, name: Bad, tier: 4}
`
	if _, err := Parse([]byte(raw)); err == nil {
		t.Fatal("expected error for tier outside scheme")
	}
}

func TestProducers(t *testing.T) {
	tbl, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	morphite := tbl.Producers(11399)
	// Morphite itself plus three Mercoxit variants and their twins.
	if len(morphite) != 7 {
		t.Errorf("expected 7 morphite producers, got %d: %v", len(morphite), morphite)
	}
}
