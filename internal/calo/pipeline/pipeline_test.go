package pipeline

import (
	"testing"

	"github.com/wdconinc/algorithms/internal/calo"
	"github.com/wdconinc/algorithms/internal/calo/geometry"
	"github.com/wdconinc/algorithms/internal/calo/hitreco"
	"github.com/wdconinc/algorithms/internal/units"
)

const testReadout = "sector:8,layer:8,cell:16"

type fakeGeo map[geometry.CellID]geometry.CellGeometry

func (g fakeGeo) Lookup(id geometry.CellID) (geometry.CellGeometry, error) {
	if c, ok := g[id]; ok {
		return c, nil
	}
	return geometry.CellGeometry{}, &geometry.ErrUnknownCell{ID: id}
}

// newTestPipeline builds a pipeline over a small toy geometry: cells of
// one module laid out 1 mm apart along x, identity alignment.
func newTestPipeline(t *testing.T, workers int) (*Pipeline, func(cell int64) geometry.CellID) {
	t.Helper()

	dec, err := geometry.NewBitFieldDecoder(testReadout)
	if err != nil {
		t.Fatal(err)
	}
	sectorIdx, _ := dec.Index("sector")
	layerIdx, _ := dec.Index("layer")
	cellIdx, _ := dec.Index("cell")

	id := func(cell int64) geometry.CellID {
		var v geometry.CellID
		v = dec.Set(v, sectorIdx, 1)
		v = dec.Set(v, layerIdx, 1)
		v = dec.Set(v, cellIdx, cell)
		return v
	}

	geo := fakeGeo{}
	for cell := int64(0); cell < 16; cell++ {
		geo[id(cell)] = geometry.CellGeometry{
			Position:  geometry.Vec3{X: float64(cell)},
			Dimension: geometry.Vec3{X: 1, Y: 1, Z: 2},
			Alignment: geometry.IdentityTransform(),
		}
	}

	hr, err := hitreco.NewReconstructor(geo, dec, hitreco.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	nc, err := calo.NewNeighborChecker(dec, calo.DefaultNeighborParams())
	if err != nil {
		t.Fatal(err)
	}
	grouper := calo.NewTopoClusterer(nc.IsNeighbor, calo.DefaultMinClusterCenterEdep)
	cog := calo.NewReconstructor(geo, calo.DefaultLogWeightBase)

	return New(hr, grouper, cog, workers), id
}

// amplitude converts an energy in keV to ADC counts over pedestal for the
// default digitization constants.
func amplitude(energy float64) int32 {
	p := hitreco.DefaultParams()
	return int32(p.PedestalMean + energy/p.DynamicRangeADC*float64(p.CapADC))
}

func TestProcessSingleEvent(t *testing.T) {
	p, id := newTestPipeline(t, 1)

	ev := Event{ID: 5, RawHits: []hitreco.RawHit{
		{CellID: id(0), Amplitude: amplitude(2 * units.MeV)},
		{CellID: id(1), Amplitude: amplitude(500)},
		{CellID: id(9), Amplitude: amplitude(1600)},
	}}

	res := p.Process(ev)
	if res.Err != nil {
		t.Fatalf("Process: %v", res.Err)
	}
	if res.EventID != 5 {
		t.Errorf("EventID = %d, want 5", res.EventID)
	}
	if len(res.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(res.Clusters))
	}
}

func TestProcessAbortsOnUnknownCell(t *testing.T) {
	p, id := newTestPipeline(t, 1)

	ev := Event{ID: 1, RawHits: []hitreco.RawHit{
		{CellID: id(0), Amplitude: amplitude(2 * units.MeV)},
		{CellID: id(999), Amplitude: amplitude(2 * units.MeV)}, // not in geometry
	}}

	res := p.Process(ev)
	if res.Err == nil {
		t.Fatal("expected an event-level error")
	}
	if res.Clusters != nil {
		t.Errorf("an aborted event must not carry partial clusters, got %d", len(res.Clusters))
	}
}

func TestRunFanOut(t *testing.T) {
	p, id := newTestPipeline(t, 4)

	const n = 50
	events := make(chan Event)
	results := make(chan Result, n)

	go func() {
		for i := uint64(0); i < n; i++ {
			events <- Event{ID: i, RawHits: []hitreco.RawHit{
				{CellID: id(int64(i % 16)), Amplitude: amplitude(2 * units.MeV)},
			}}
		}
		close(events)
	}()

	p.Run(events, results)

	seen := map[uint64]bool{}
	for res := range results {
		if res.Err != nil {
			t.Errorf("event %d failed: %v", res.EventID, res.Err)
		}
		if seen[res.EventID] {
			t.Errorf("event %d reported twice", res.EventID)
		}
		seen[res.EventID] = true
		if len(res.Clusters) != 1 {
			t.Errorf("event %d: expected 1 cluster, got %d", res.EventID, len(res.Clusters))
		}
	}
	if len(seen) != n {
		t.Errorf("expected %d results, got %d", n, len(seen))
	}
}

func TestRunFailedEventDoesNotStopOthers(t *testing.T) {
	p, id := newTestPipeline(t, 2)

	events := make(chan Event, 3)
	results := make(chan Result, 3)
	events <- Event{ID: 0, RawHits: []hitreco.RawHit{{CellID: id(0), Amplitude: amplitude(2 * units.MeV)}}}
	events <- Event{ID: 1, RawHits: []hitreco.RawHit{{CellID: id(999), Amplitude: amplitude(2 * units.MeV)}}}
	events <- Event{ID: 2, RawHits: []hitreco.RawHit{{CellID: id(2), Amplitude: amplitude(2 * units.MeV)}}}
	close(events)

	p.Run(events, results)

	var failed, ok int
	for res := range results {
		if res.Err != nil {
			failed++
			if res.EventID != 1 {
				t.Errorf("unexpected failure for event %d: %v", res.EventID, res.Err)
			}
		} else {
			ok++
		}
	}
	if failed != 1 || ok != 2 {
		t.Errorf("failed=%d ok=%d, want 1 and 2", failed, ok)
	}
}
