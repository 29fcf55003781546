package geometry

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// cellRow mirrors one row of the cells table.
type cellRow struct {
	CellID uint64  `db:"cell_id"`
	X      float64 `db:"x"`
	Y      float64 `db:"y"`
	Z      float64 `db:"z"`
	DX     float64 `db:"dx"`
	DY     float64 `db:"dy"`
	DZ     float64 `db:"dz"`
}

// alignmentRow mirrors one row of the alignments table. The rotation is
// stored row-major.
type alignmentRow struct {
	ModuleID uint64  `db:"module_id"`
	R00      float64 `db:"r00"`
	R01      float64 `db:"r01"`
	R02      float64 `db:"r02"`
	R10      float64 `db:"r10"`
	R11      float64 `db:"r11"`
	R12      float64 `db:"r12"`
	R20      float64 `db:"r20"`
	R21      float64 `db:"r21"`
	R22      float64 `db:"r22"`
	TX       float64 `db:"tx"`
	TY       float64 `db:"ty"`
	TZ       float64 `db:"tz"`
}

// TableResolver is a Resolver backed by the cells and alignments tables of
// a geometry database. Both tables are loaded into memory once at
// construction; lookups afterwards are map reads and never touch the
// database.
//
// The alignment of a cell is the alignment of its enclosing module, keyed
// by cellID & localMask. The mask is built from the readout fields that
// address the module (see BitFieldDecoder.Mask).
type TableResolver struct {
	cells      map[CellID]cellRow
	alignments map[uint64]Transform
	localMask  uint64
}

// NewTableResolver loads cell geometry from db. Positions and dimensions
// are expected in internal units (mm).
func NewTableResolver(db *sqlx.DB, localMask uint64) (*TableResolver, error) {
	var cells []cellRow
	if err := db.Select(&cells, `SELECT cell_id, x, y, z, dx, dy, dz FROM cells`); err != nil {
		return nil, fmt.Errorf("loading cells table: %w", err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("geometry database has no cells")
	}

	var aligns []alignmentRow
	err := db.Select(&aligns, `SELECT module_id, r00, r01, r02, r10, r11, r12,
		r20, r21, r22, tx, ty, tz FROM alignments`)
	if err != nil {
		return nil, fmt.Errorf("loading alignments table: %w", err)
	}

	r := &TableResolver{
		cells:      make(map[CellID]cellRow, len(cells)),
		alignments: make(map[uint64]Transform, len(aligns)),
		localMask:  localMask,
	}
	for _, c := range cells {
		r.cells[CellID(c.CellID)] = c
	}
	for _, a := range aligns {
		r.alignments[a.ModuleID] = Transform{
			R: [9]float64{a.R00, a.R01, a.R02, a.R10, a.R11, a.R12, a.R20, a.R21, a.R22},
			T: Vec3{a.TX, a.TY, a.TZ},
		}
	}
	return r, nil
}

// Lookup returns the geometry record of the given cell.
func (r *TableResolver) Lookup(id CellID) (CellGeometry, error) {
	c, ok := r.cells[id]
	if !ok {
		return CellGeometry{}, &ErrUnknownCell{ID: id}
	}
	align, ok := r.alignments[uint64(id)&r.localMask]
	if !ok {
		return CellGeometry{}, fmt.Errorf("no alignment for module %#x: %w",
			uint64(id)&r.localMask, &ErrUnknownCell{ID: id})
	}
	return CellGeometry{
		Position:  Vec3{c.X, c.Y, c.Z},
		Dimension: Vec3{c.DX, c.DY, c.DZ},
		Alignment: align,
	}, nil
}

var _ Resolver = (*TableResolver)(nil)
