// Package pipeline orchestrates per-event reconstruction: raw hits are
// calibrated, grouped into topological clusters and collapsed into
// centroid records. Events are independent and fan out over a worker
// pool; within one event the stages run strictly sequentially, so a group
// is always complete before its centroid is computed.
package pipeline

import (
	"fmt"
	"sync"

	"github.com/wdconinc/algorithms/internal/calo"
	"github.com/wdconinc/algorithms/internal/calo/hitreco"
	"github.com/wdconinc/algorithms/internal/monitoring"
)

// Event is one event's worth of digitized hits.
type Event struct {
	ID      uint64           `json:"event_id"`
	RawHits []hitreco.RawHit `json:"hits"`
}

// Result carries the clusters reconstructed for one event. A non-nil Err
// means the event was aborted; Clusters is then nil, never partial.
type Result struct {
	EventID  uint64
	Clusters []calo.Cluster
	Err      error
}

// Pipeline wires the reconstruction stages together.
type Pipeline struct {
	reco    *hitreco.Reconstructor
	grouper calo.Grouper
	cog     *calo.Reconstructor
	workers int
}

// New creates a pipeline. workers is clamped to at least 1.
func New(reco *hitreco.Reconstructor, grouper calo.Grouper, cog *calo.Reconstructor, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{reco: reco, grouper: grouper, cog: cog, workers: workers}
}

// Process reconstructs a single event. All state (visited markers,
// groups) lives within this call; nothing is shared across events.
func (p *Pipeline) Process(ev Event) Result {
	hits, err := p.reco.Reconstruct(ev.RawHits)
	if err != nil {
		return Result{EventID: ev.ID, Err: fmt.Errorf("event %d: %w", ev.ID, err)}
	}

	groups := p.grouper.Groups(hits)
	clusters := make([]calo.Cluster, 0, len(groups))
	for _, group := range groups {
		cl, err := p.cog.Reconstruct(group)
		if err != nil {
			// Abort the whole event: emitting the clusters reconstructed
			// so far would be a partial, corrupt record.
			return Result{EventID: ev.ID, Err: fmt.Errorf("event %d: %w", ev.ID, err)}
		}
		if cl == nil {
			continue
		}
		clusters = append(clusters, *cl)
	}
	return Result{EventID: ev.ID, Clusters: clusters}
}

// Run consumes events until the channel is closed, fanning them out over
// the worker pool, and closes results when all workers are done. Failed
// events are reported on their Result and logged; they do not stop the
// run.
func (p *Pipeline) Run(events <-chan Event, results chan<- Result) {
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range events {
				res := p.Process(ev)
				if res.Err != nil {
					monitoring.Logf("pipeline: %v", res.Err)
				}
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)
}
