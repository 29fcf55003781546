package calo

import (
	"fmt"
	"math"

	"github.com/wdconinc/algorithms/internal/calo/geometry"
)

// DefaultLogWeightBase is the default offset of the logarithmic energy
// weighting.
const DefaultLogWeightBase = 3.6

// Reconstructor collapses a hit group into one cluster using a center of
// gravity with logarithmic energy weighting. The log weighting mimics the
// transverse profile of an electromagnetic shower: hits carrying a small
// fraction of the total energy clip to zero weight, which suppresses
// noise, while energetic hits count more than linear weighting would give
// them.
type Reconstructor struct {
	geo           geometry.Resolver
	logWeightBase float64
}

// NewReconstructor creates a centroid reconstructor using the given
// geometry resolver for alignment and cell dimension lookups.
func NewReconstructor(geo geometry.Resolver, logWeightBase float64) *Reconstructor {
	return &Reconstructor{geo: geo, logWeightBase: logWeightBase}
}

// Reconstruct computes the cluster for one finalized hit group.
//
// An empty group returns (nil, nil): it cannot occur under the clusterer's
// contract, and skipping it silently is the defensive branch. A geometry
// lookup failure returns an error; the caller must then discard the whole
// event rather than emit a partial cluster.
func (r *Reconstructor) Reconstruct(group HitGroup) (*Cluster, error) {
	if len(group) == 0 {
		return nil, nil
	}

	// Total energy, and the most energetic member as geometry reference.
	// Ties keep the first occurrence.
	totalE := 0.0
	maxE := 0.0
	center := &group[0]
	for i := range group {
		totalE += group[i].Energy
		if group[i].Energy > maxE {
			maxE = group[i].Energy
			center = &group[i]
		}
	}

	// Center of gravity with logarithmic weighting over local positions.
	tw := 0.0
	var x, y, z float64
	for i := range group {
		w := math.Max(0, r.logWeightBase+math.Log(group[i].Energy/totalE))
		tw += w
		x += group[i].Local.X * w
		y += group[i].Local.Y * w
		z += group[i].Local.Z * w
	}

	var local geometry.Vec3
	if tw > 0 {
		local = geometry.Vec3{X: x / tw, Y: y / tw, Z: z / tw}
	} else {
		// Every weight clipped to zero; the centroid is undefined.
		// Fall back to the position of the most energetic hit.
		local = center.Local
	}

	cell, err := r.geo.Lookup(center.CellID)
	if err != nil {
		return nil, fmt.Errorf("resolving center cell %#x: %w", uint64(center.CellID), err)
	}
	// Reference the cluster to the front face of the center cell rather
	// than its volumetric center.
	local.Z -= cell.Dimension.Z / 2
	pos := cell.Alignment.LocalToGlobal(local)

	return &Cluster{
		Energy:   totalE,
		Position: pos,
		NHits:    len(group),
		CenterID: center.CellID,
	}, nil
}
