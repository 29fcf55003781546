// Command calorecon reconstructs calorimeter clusters from digitized
// events. It reads events as JSON lines of raw hits, resolves geometry
// from a SQLite geometry database, runs hit reconstruction, topological
// clustering and centroid reconstruction, and records the resulting
// clusters as a new run in the output database.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/wdconinc/algorithms/internal/calo"
	"github.com/wdconinc/algorithms/internal/calo/geometry"
	"github.com/wdconinc/algorithms/internal/calo/hitreco"
	"github.com/wdconinc/algorithms/internal/calo/pipeline"
	"github.com/wdconinc/algorithms/internal/calo/storage/sqlite"
	"github.com/wdconinc/algorithms/internal/config"
	"github.com/wdconinc/algorithms/internal/monitoring"
	"github.com/wdconinc/algorithms/internal/version"
)

var (
	configPath   = flag.String("config", "", "Tuning config JSON (defaults apply when empty)")
	eventsPath   = flag.String("events", "", "Input events file (JSON lines of raw hits)")
	geometryPath = flag.String("geometry", "geometry.db", "Geometry database (cells, alignments)")
	outputPath   = flag.String("db", "clusters.db", "Output cluster database")
	maxEvents    = flag.Int("max-events", 0, "Stop after this many events (0 = all)")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("calorecon %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *eventsPath == "" {
		flag.Usage()
		log.Fatal("missing required -events flag")
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
	}

	dec, err := geometry.NewBitFieldDecoder(cfg.GetReadout())
	if err != nil {
		log.Fatalf("parsing readout descriptor: %v", err)
	}
	localMask, err := dec.Mask(cfg.GetLocalDetFields()...)
	if err != nil {
		log.Fatalf("building local detector mask: %v", err)
	}

	geoDB, err := sqlx.Connect("sqlite", *geometryPath)
	if err != nil {
		log.Fatalf("opening geometry database: %v", err)
	}
	defer geoDB.Close()
	resolver, err := geometry.NewTableResolver(geoDB, localMask)
	if err != nil {
		log.Fatalf("loading geometry: %v", err)
	}

	reco, err := hitreco.NewReconstructor(resolver, dec, cfg.RecoParams())
	if err != nil {
		log.Fatalf("setting up hit reconstruction: %v", err)
	}
	checker, err := calo.NewNeighborChecker(dec, cfg.NeighborParams())
	if err != nil {
		log.Fatalf("setting up adjacency predicate: %v", err)
	}
	clusterer := calo.NewTopoClusterer(checker.IsNeighbor, cfg.GetMinClusterCenterEdep())
	cog := calo.NewReconstructor(resolver, cfg.GetLogWeightBase())
	pipe := pipeline.New(reco, clusterer, cog, cfg.GetNumWorkers())

	store, err := sqlite.NewStore(*outputPath)
	if err != nil {
		log.Fatalf("opening cluster database: %v", err)
	}
	defer store.Close()
	runID, err := store.BeginRun(cfg)
	if err != nil {
		log.Fatalf("recording run: %v", err)
	}
	monitoring.Logf("run %s started", runID)

	file, err := os.Open(*eventsPath)
	if err != nil {
		log.Fatalf("opening events file: %v", err)
	}
	defer file.Close()

	events := make(chan pipeline.Event, cfg.GetNumWorkers())
	results := make(chan pipeline.Result, 64)
	go func() {
		if err := readEvents(file, events, *maxEvents); err != nil {
			monitoring.Logf("reading events: %v", err)
		}
		close(events)
	}()
	go pipe.Run(events, results)

	var processed, failed, clusters int
	for res := range results {
		if res.Err != nil {
			failed++
			continue
		}
		if err := store.RecordClusters(runID, res.EventID, res.Clusters); err != nil {
			log.Fatalf("recording clusters for event %d: %v", res.EventID, err)
		}
		processed++
		clusters += len(res.Clusters)
		monitoring.Logf("event %d: %d clusters", res.EventID, len(res.Clusters))
	}

	fmt.Printf("run %s: %d events processed, %d failed, %d clusters\n",
		runID, processed, failed, clusters)
	if failed > 0 {
		os.Exit(1)
	}
}

// readEvents streams JSONL events into the channel. Malformed lines abort
// the read; reconstruction of already-queued events still completes.
func readEvents(file *os.File, events chan<- pipeline.Event, maxEvents int) error {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	count := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev pipeline.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("event line %d: %w", count+1, err)
		}
		events <- ev
		count++
		if maxEvents > 0 && count >= maxEvents {
			break
		}
	}
	return scanner.Err()
}
