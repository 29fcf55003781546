// Package calo implements topological clustering and centroid
// reconstruction for segmented calorimeter hits.
//
// The pipeline is: reconstructed hits for one event are grouped into
// connected components by TopoClusterer using a multi-scale adjacency
// predicate (NeighborChecker), and each group is collapsed into a single
// Cluster (total energy plus a log-weighted global centroid) by
// Reconstructor.
package calo

import "github.com/wdconinc/algorithms/internal/calo/geometry"

// Hit is a single calorimeter cell energy deposit. Hits are read-only
// inputs for one event; Layer and Sector are cached from identifier
// decoding at hit reconstruction time.
type Hit struct {
	CellID geometry.CellID
	Layer  int32
	Sector int32
	Energy float64 // keV
	Time   float64 // ns
	// Position is the cell center in the global frame.
	Position geometry.Vec3
	// Local is the cell center in the local frame of its module.
	Local geometry.Vec3
	// Dimension holds the full cell widths along local x, y, z.
	Dimension geometry.Vec3
}

// HitGroup is one connected component of hits under the adjacency
// relation. Groups partition the clustered hits: every clustered hit
// belongs to exactly one group.
type HitGroup []Hit

// Cluster is the reconstructed record for one hit group.
type Cluster struct {
	// Energy is the exact sum of member hit energies (keV).
	Energy float64
	// Position is the log-weighted centroid in the global frame,
	// referenced to the front face of the center cell.
	Position geometry.Vec3
	// NHits is the number of member hits.
	NHits int
	// CenterID is the cell of the most energetic member hit. It anchors
	// the geometry lookups used during reconstruction.
	CenterID geometry.CellID
}

// Grouper partitions an event's hits into connected components.
type Grouper interface {
	Groups(hits []Hit) []HitGroup
}
