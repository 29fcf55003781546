// Command gen-toydata writes a toy barrel geometry database and a matching
// file of simulated, digitized events. The output is enough to run
// calorecon end to end without real detector data:
//
//	gen-toydata -geometry geometry.db -events events.jsonl -n 100
//	calorecon -events events.jsonl -geometry geometry.db -db clusters.db
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/wdconinc/algorithms/internal/calo/digi"
	"github.com/wdconinc/algorithms/internal/calo/geometry"
	"github.com/wdconinc/algorithms/internal/calo/pipeline"
	"github.com/wdconinc/algorithms/internal/config"
	"github.com/wdconinc/algorithms/internal/units"
)

var (
	geometryPath = flag.String("geometry", "geometry.db", "Geometry database to create")
	eventsPath   = flag.String("events", "events.jsonl", "Events file to create")
	nEvents      = flag.Int("n", 100, "Number of events to simulate")
	seed         = flag.Uint64("seed", 42, "Random seed")
)

// Toy detector layout: a barrel of sectors, each sector a stack of layers,
// each layer a grid of square cells in the module's local frame.
const (
	nSectors    = 8
	nLayers     = 4
	nCellsX     = 32
	nCellsY     = 32
	cellPitch   = 1.0 * units.Millimeter
	cellDepth   = 2.0 * units.Millimeter
	innerRadius = 500.0 * units.Millimeter
)

func main() {
	flag.Parse()

	dec, err := geometry.NewBitFieldDecoder(config.DefaultReadout)
	if err != nil {
		log.Fatalf("parsing readout descriptor: %v", err)
	}
	cells, err := writeGeometry(dec, *geometryPath)
	if err != nil {
		log.Fatalf("writing geometry: %v", err)
	}
	fmt.Printf("wrote %s (%d cells)\n", *geometryPath, len(cells))

	if err := writeEvents(cells, *eventsPath, *nEvents, *seed); err != nil {
		log.Fatalf("writing events: %v", err)
	}
	fmt.Printf("wrote %s (%d events)\n", *eventsPath, *nEvents)
}

type toyCell struct {
	id     geometry.CellID
	local  geometry.Vec3
	sector int
	layer  int
}

// moduleAlignment places sector s, layer l: the module local frame is
// rotated about z to the sector azimuth and pushed out radially.
func moduleAlignment(s, l int) geometry.Transform {
	phi := 2 * math.Pi * float64(s) / nSectors
	r := innerRadius + float64(l)*cellDepth
	c, sn := math.Cos(phi), math.Sin(phi)
	return geometry.Transform{
		// Local x tangent to the barrel, local y along global z, local z
		// radially outward.
		R: [9]float64{
			-sn, 0, c,
			0, 1, 0,
			c, 0, sn,
		},
		T: geometry.Vec3{X: r * c, Y: 0, Z: r * sn},
	}
}

func writeGeometry(dec *geometry.BitFieldDecoder, path string) ([]toyCell, error) {
	os.Remove(path)
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE cells (
			cell_id BIGINT PRIMARY KEY,
			x DOUBLE, y DOUBLE, z DOUBLE,
			dx DOUBLE, dy DOUBLE, dz DOUBLE
		);
		CREATE TABLE alignments (
			module_id BIGINT PRIMARY KEY,
			r00 DOUBLE, r01 DOUBLE, r02 DOUBLE,
			r10 DOUBLE, r11 DOUBLE, r12 DOUBLE,
			r20 DOUBLE, r21 DOUBLE, r22 DOUBLE,
			tx DOUBLE, ty DOUBLE, tz DOUBLE
		);
	`)
	if err != nil {
		return nil, err
	}

	sectorIdx, _ := dec.Index("sector")
	layerIdx, _ := dec.Index("layer")
	xIdx, _ := dec.Index("x")
	yIdx, _ := dec.Index("y")
	moduleMask, err := dec.Mask("system", "sector", "layer")
	if err != nil {
		return nil, err
	}

	tx, err := db.Beginx()
	if err != nil {
		return nil, err
	}
	var cells []toyCell
	for s := 0; s < nSectors; s++ {
		for l := 0; l < nLayers; l++ {
			align := moduleAlignment(s, l)
			var module geometry.CellID
			module = dec.Set(module, sectorIdx, int64(s))
			module = dec.Set(module, layerIdx, int64(l))
			_, err = tx.Exec(`INSERT INTO alignments VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
				int64(uint64(module)&moduleMask),
				align.R[0], align.R[1], align.R[2],
				align.R[3], align.R[4], align.R[5],
				align.R[6], align.R[7], align.R[8],
				align.T.X, align.T.Y, align.T.Z)
			if err != nil {
				tx.Rollback()
				return nil, err
			}

			for ix := 0; ix < nCellsX; ix++ {
				for iy := 0; iy < nCellsY; iy++ {
					id := module
					id = dec.Set(id, xIdx, int64(ix-nCellsX/2))
					id = dec.Set(id, yIdx, int64(iy-nCellsY/2))
					local := geometry.Vec3{
						X: (float64(ix-nCellsX/2) + 0.5) * cellPitch,
						Y: (float64(iy-nCellsY/2) + 0.5) * cellPitch,
						Z: 0,
					}
					pos := align.LocalToGlobal(local)
					_, err = tx.Exec(`INSERT INTO cells VALUES (?,?,?,?,?,?,?)`,
						int64(id), pos.X, pos.Y, pos.Z, cellPitch, cellPitch, cellDepth)
					if err != nil {
						tx.Rollback()
						return nil, err
					}
					cells = append(cells, toyCell{id: id, local: local, sector: s, layer: l})
				}
			}
		}
	}
	return cells, tx.Commit()
}

// writeEvents simulates a few showers per event: each shower deposits an
// exponentially falling energy profile on the cells around a random
// center, then the whole event is digitized.
func writeEvents(cells []toyCell, path string, n int, seed uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	rng := rand.New(rand.NewPCG(seed, seed))
	dig := digi.NewDigitizer(digi.DefaultParams(), seed)
	enc := json.NewEncoder(w)

	for ev := 0; ev < n; ev++ {
		nShowers := 1 + rng.IntN(3)
		var deps []digi.SimDeposit
		for s := 0; s < nShowers; s++ {
			center := cells[rng.IntN(len(cells))]
			total := (500 + 4500*rng.Float64()) * units.KeV
			for _, c := range cells {
				if c.sector != center.sector {
					continue
				}
				ldiff := c.layer - center.layer
				if ldiff < 0 {
					ldiff = -ldiff
				}
				dx := c.local.X - center.local.X
				dy := c.local.Y - center.local.Y
				d := math.Sqrt(dx*dx + dy*dy)
				if d > 5*cellPitch || ldiff > 1 {
					continue
				}
				deps = append(deps, digi.SimDeposit{
					CellID: c.id,
					Energy: total * math.Exp(-d/cellPitch-float64(ldiff)) * 0.6,
					Time:   rng.Float64() * 2,
				})
			}
		}
		event := pipeline.Event{ID: uint64(ev), RawHits: dig.Digitize(deps)}
		if err := enc.Encode(&event); err != nil {
			return err
		}
	}
	return nil
}
