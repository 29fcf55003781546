// Command cluster-plot renders the clusters of a recorded run as an
// (eta, phi) bubble chart, with bubble area proportional to cluster
// energy. Useful for eyeballing where a tuning concentrates energy.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/wdconinc/algorithms/internal/calo"
	"github.com/wdconinc/algorithms/internal/calo/geometry"
	"github.com/wdconinc/algorithms/internal/calo/storage/sqlite"
)

var (
	dbPath  = flag.String("db", "clusters.db", "Cluster database")
	runID   = flag.String("run", "", "Run id (defaults to the latest run)")
	outPath = flag.String("out", "clusters.png", "Output image path")
)

func main() {
	flag.Parse()

	store, err := sqlite.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("opening cluster database: %v", err)
	}
	defer store.Close()

	run := *runID
	if run == "" {
		if run, err = store.LatestRun(); err != nil {
			log.Fatalf("selecting run: %v", err)
		}
	}
	records, err := store.ListClusters(run)
	if err != nil {
		log.Fatalf("listing clusters: %v", err)
	}
	if len(records) == 0 {
		log.Fatalf("run %s has no clusters", run)
	}

	xyzs := make(plotter.XYZs, 0, len(records))
	for _, r := range records {
		eta, phi := calo.EtaPhi(geometry.Vec3{X: r.X, Y: r.Y, Z: r.Z})
		if math.IsNaN(eta) || math.IsInf(eta, 0) {
			continue
		}
		xyzs = append(xyzs, plotter.XYZ{X: eta, Y: phi, Z: r.Energy})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("run %s: %d clusters", run, len(xyzs))
	p.X.Label.Text = "eta"
	p.Y.Label.Text = "phi (rad)"

	bubbles, err := plotter.NewBubbles(xyzs, vg.Points(1), vg.Points(10))
	if err != nil {
		log.Fatalf("building plot: %v", err)
	}
	p.Add(bubbles, plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 6*vg.Inch, *outPath); err != nil {
		log.Fatalf("saving plot: %v", err)
	}
	fmt.Printf("wrote %s (%d clusters)\n", *outPath, len(xyzs))
}
