package calo

import (
	"fmt"
	"math"

	"github.com/wdconinc/algorithms/internal/calo/geometry"
	"github.com/wdconinc/algorithms/internal/units"
)

// Default adjacency parameters.
const (
	// DefaultAdjLayerDiff is the maximum layer gap still considered
	// adjacent.
	DefaultAdjLayerDiff = 1
	// DefaultAdjSectorDist is the default cross-sector distance threshold.
	DefaultAdjSectorDist = 1.0 * units.Centimeter
	// DefaultLayerField and DefaultSectorField name the readout fields
	// decoded by the predicate.
	DefaultLayerField  = "layer"
	DefaultSectorField = "sector"
)

// DefaultLocalRanges returns the default per-axis same-layer adjacency
// thresholds (local x, y).
func DefaultLocalRanges() [2]float64 {
	return [2]float64{1.0 * units.Millimeter, 1.0 * units.Millimeter}
}

// DefaultAdjLayerRanges returns the default per-axis cross-layer angular
// thresholds (eta, phi).
func DefaultAdjLayerRanges() [2]float64 {
	return [2]float64{0.01 * math.Pi, 0.01 * math.Pi}
}

// NeighborParams configures the adjacency predicate. Ranges are given as
// slices so a malformed configuration (fewer than two entries) is caught
// at construction rather than at first use.
type NeighborParams struct {
	// AdjLayerDiff is the maximum |layer1-layer2| still considered
	// adjacent.
	AdjLayerDiff int
	// LocalRanges holds the same-layer per-axis thresholds (x, y) in mm.
	LocalRanges []float64
	// AdjLayerRanges holds the cross-layer per-axis thresholds
	// (eta, phi) in rad.
	AdjLayerRanges []float64
	// AdjSectorDist is the cross-sector global distance threshold in mm.
	AdjSectorDist float64
	// LayerField and SectorField name the readout fields to decode.
	LayerField  string
	SectorField string
}

// DefaultNeighborParams returns the standard adjacency configuration.
func DefaultNeighborParams() NeighborParams {
	local := DefaultLocalRanges()
	adj := DefaultAdjLayerRanges()
	return NeighborParams{
		AdjLayerDiff:   DefaultAdjLayerDiff,
		LocalRanges:    local[:],
		AdjLayerRanges: adj[:],
		AdjSectorDist:  DefaultAdjSectorDist,
		LayerField:     DefaultLayerField,
		SectorField:    DefaultSectorField,
	}
}

// NeighborChecker decides whether two hits belong to the same cluster.
// The decision is symmetric and uses only the two hits and the injected
// identifier decoder.
type NeighborChecker struct {
	dec       geometry.Decoder
	sectorIdx int
	layerIdx  int
	params    NeighborParams
}

// NewNeighborChecker resolves the readout field indices and validates the
// range configuration. All failure modes here are configuration errors
// and should abort startup.
func NewNeighborChecker(dec geometry.Decoder, params NeighborParams) (*NeighborChecker, error) {
	if len(params.LocalRanges) < 2 {
		return nil, fmt.Errorf("need 2-dimensional ranges for same-layer clustering, only have %d",
			len(params.LocalRanges))
	}
	if len(params.AdjLayerRanges) < 2 {
		return nil, fmt.Errorf("need 2-dimensional ranges for adjacent-layer clustering, only have %d",
			len(params.AdjLayerRanges))
	}
	sectorIdx, err := dec.Index(params.SectorField)
	if err != nil {
		return nil, fmt.Errorf("resolving sector field: %w", err)
	}
	layerIdx, err := dec.Index(params.LayerField)
	if err != nil {
		return nil, fmt.Errorf("resolving layer field: %w", err)
	}
	return &NeighborChecker{
		dec:       dec,
		sectorIdx: sectorIdx,
		layerIdx:  layerIdx,
		params:    params,
	}, nil
}

// IsNeighbor reports whether h1 and h2 are adjacent.
//
// Different sectors are bridged by a plain global-distance test, since
// layer and local coordinates are not comparable across sector
// boundaries. Within a sector, same-layer hits use per-axis local ranges
// and hits up to AdjLayerDiff layers apart use per-axis (eta, phi)
// ranges. The phi difference is taken raw, without wrapping at +-pi;
// see the package tests for the seam behaviour this implies.
func (nc *NeighborChecker) IsNeighbor(h1, h2 *Hit) bool {
	s1 := nc.dec.Get(h1.CellID, nc.sectorIdx)
	s2 := nc.dec.Get(h2.CellID, nc.sectorIdx)
	if s1 != s2 {
		dx := h1.Position.X - h2.Position.X
		dy := h1.Position.Y - h2.Position.Y
		dz := h1.Position.Z - h2.Position.Z
		return math.Sqrt(dx*dx+dy*dy+dz*dz) <= nc.params.AdjSectorDist
	}

	l1 := nc.dec.Get(h1.CellID, nc.layerIdx)
	l2 := nc.dec.Get(h2.CellID, nc.layerIdx)
	ldiff := l1 - l2
	if ldiff < 0 {
		ldiff = -ldiff
	}

	switch {
	case ldiff == 0:
		return math.Abs(h1.Local.X-h2.Local.X) <= nc.params.LocalRanges[0] &&
			math.Abs(h1.Local.Y-h2.Local.Y) <= nc.params.LocalRanges[1]
	case ldiff <= int64(nc.params.AdjLayerDiff):
		eta1, phi1 := EtaPhi(h1.Position)
		eta2, phi2 := EtaPhi(h2.Position)
		// NaN eta (hit at the origin) compares false on both axes.
		return math.Abs(eta1-eta2) <= nc.params.AdjLayerRanges[0] &&
			math.Abs(phi1-phi2) <= nc.params.AdjLayerRanges[1]
	}
	return false
}

// EtaPhi returns the pseudorapidity and azimuth of a global position.
// A position at the origin yields NaN eta.
func EtaPhi(p geometry.Vec3) (eta, phi float64) {
	r := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
	phi = math.Atan2(p.Y, p.X)
	theta := math.Acos(p.Z / r)
	eta = -math.Log(math.Tan(theta / 2))
	return eta, phi
}
