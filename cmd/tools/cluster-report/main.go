// Command cluster-report writes a standalone HTML report for a recorded
// run: an (eta, phi) scatter of clusters and the cluster energy spectrum,
// with summary percentiles in the titles.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/wdconinc/algorithms/internal/calo"
	"github.com/wdconinc/algorithms/internal/calo/geometry"
	"github.com/wdconinc/algorithms/internal/calo/storage/sqlite"
)

var (
	dbPath  = flag.String("db", "clusters.db", "Cluster database")
	runID   = flag.String("run", "", "Run id (defaults to the latest run)")
	outPath = flag.String("out", "clusters.html", "Output HTML path")
	nBins   = flag.Int("bins", 50, "Energy spectrum bins")
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

	scatterData := make([]opts.ScatterData, 0, len(records))
	energies := make([]float64, 0, len(records))
	for _, r := range records {
		energies = append(energies, r.Energy)
		eta, phi := calo.EtaPhi(geometry.Vec3{X: r.X, Y: r.Y, Z: r.Z})
		if math.IsNaN(eta) || math.IsInf(eta, 0) {
			continue
		}
		scatterData = append(scatterData, opts.ScatterData{
			Value: []interface{}{eta, phi, r.Energy},
		})
	}
	sort.Float64s(energies)
	p50 := stat.Quantile(0.5, stat.Empirical, energies, nil)
	p95 := stat.Quantile(0.95, stat.Empirical, energies, nil)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("run %s: cluster positions", run),
			Subtitle: fmt.Sprintf("%d clusters, median %.1f keV, p95 %.1f keV", len(records), p50, p95),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "eta"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "phi (rad)"}),
	)
	scatter.AddSeries("clusters", scatterData)

	bar := energySpectrum(energies, *nBins)

	page := components.NewPage()
	page.AddCharts(scatter, bar)

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("creating report: %v", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		log.Fatalf("rendering report: %v", err)
	}
	fmt.Printf("wrote %s (%d clusters)\n", *outPath, len(records))
}

// energySpectrum bins the sorted energies into a bar chart.
func energySpectrum(energies []float64, bins int) *charts.Bar {
	if bins < 1 {
		bins = 1
	}
	lo := energies[0]
	hi := energies[len(energies)-1]
	width := (hi - lo) / float64(bins)
	if width == 0 {
		width = 1
	}

	counts := make([]int, bins)
	labels := make([]string, bins)
	for _, e := range energies {
		b := int((e - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		counts[b]++
	}
	for i := range labels {
		labels[i] = fmt.Sprintf("%.0f", lo+float64(i)*width)
	}

	data := make([]opts.BarData, bins)
	for i, c := range counts {
		data[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "cluster energy spectrum (keV)"}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("clusters", data)
	return bar
}
