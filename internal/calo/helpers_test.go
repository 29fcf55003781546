package calo

import (
	"testing"

	"github.com/wdconinc/algorithms/internal/calo/geometry"
)

// testReadout is the identifier layout used across the package tests.
const testReadout = "sector:8,layer:8,cell:16"

func newTestDecoder(t *testing.T) *geometry.BitFieldDecoder {
	t.Helper()
	dec, err := geometry.NewBitFieldDecoder(testReadout)
	if err != nil {
		t.Fatalf("parsing test readout: %v", err)
	}
	return dec
}

// testCellID packs sector, layer and cell into an identifier.
func testCellID(t *testing.T, dec *geometry.BitFieldDecoder, sector, layer, cell int64) geometry.CellID {
	t.Helper()
	var id geometry.CellID
	for _, f := range []struct {
		name  string
		value int64
	}{{"sector", sector}, {"layer", layer}, {"cell", cell}} {
		idx, err := dec.Index(f.name)
		if err != nil {
			t.Fatalf("Index(%q): %v", f.name, err)
		}
		id = dec.Set(id, idx, f.value)
	}
	return id
}

// testHit builds a hit whose global position mirrors its local position
// unless overridden.
type testHitSpec struct {
	sector, layer, cell int64
	energy              float64
	local               geometry.Vec3
	position            *geometry.Vec3
}

func makeHit(t *testing.T, dec *geometry.BitFieldDecoder, spec testHitSpec) Hit {
	t.Helper()
	pos := spec.local
	if spec.position != nil {
		pos = *spec.position
	}
	return Hit{
		CellID:    testCellID(t, dec, spec.sector, spec.layer, spec.cell),
		Layer:     int32(spec.layer),
		Sector:    int32(spec.sector),
		Energy:    spec.energy,
		Position:  pos,
		Local:     spec.local,
		Dimension: geometry.Vec3{X: 1, Y: 1, Z: 2},
	}
}

// fakeGeo is a map-backed geometry resolver for tests.
type fakeGeo map[geometry.CellID]geometry.CellGeometry

func (g fakeGeo) Lookup(id geometry.CellID) (geometry.CellGeometry, error) {
	if c, ok := g[id]; ok {
		return c, nil
	}
	return geometry.CellGeometry{}, &geometry.ErrUnknownCell{ID: id}
}
