package calo

import "github.com/wdconinc/algorithms/internal/units"

// DefaultMinClusterCenterEdep is the default minimum seed energy required
// to start a group.
const DefaultMinClusterCenterEdep = 50 * units.KeV

// NeighborFunc is the adjacency relation used by TopoClusterer. It must
// be symmetric.
type NeighborFunc func(h1, h2 *Hit) bool

// TopoClusterer groups hits into connected components under an adjacency
// relation. No edge list is precomputed; adjacency is evaluated on demand,
// which keeps the grouping O(N^2) per event. Typical per-event hit counts
// make that the acceptable baseline cost.
type TopoClusterer struct {
	isNeighbor NeighborFunc
	minSeed    float64
}

// NewTopoClusterer creates a clusterer with the given adjacency relation
// and seed energy threshold (keV).
func NewTopoClusterer(isNeighbor NeighborFunc, minSeedEnergy float64) *TopoClusterer {
	return &TopoClusterer{isNeighbor: isNeighbor, minSeed: minSeedEnergy}
}

// Groups partitions hits into connected components.
//
// Hits are scanned in input order. Each unvisited hit whose energy clears
// the seed threshold starts a traversal that absorbs every reachable hit
// regardless of that hit's own energy. Hits never reached from a
// qualifying seed are dropped: isolated sub-threshold noise produces no
// group. The resulting partition is deterministic for a fixed input
// order; discovery order within and across groups is reproducible but
// carries no meaning.
func (c *TopoClusterer) Groups(hits []Hit) []HitGroup {
	if len(hits) == 0 {
		return nil
	}

	visited := make([]bool, len(hits))
	var groups []HitGroup
	// Work-list traversal instead of recursion: group sizes are bounded
	// only by the event, and a dense event would otherwise grow the call
	// stack with it.
	stack := make([]int, 0, 64)

	for i := range hits {
		if visited[i] || hits[i].Energy < c.minSeed {
			continue
		}
		group := HitGroup{}
		visited[i] = true
		stack = append(stack[:0], i)
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			group = append(group, hits[idx])
			for j := range hits {
				if visited[j] || !c.isNeighbor(&hits[idx], &hits[j]) {
					continue
				}
				visited[j] = true
				stack = append(stack, j)
			}
		}
		groups = append(groups, group)
	}
	return groups
}

var _ Grouper = (*TopoClusterer)(nil)
