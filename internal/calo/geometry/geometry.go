// Package geometry provides the detector geometry capabilities consumed by
// the reconstruction algorithms: decoding of packed cell identifiers and
// resolution of a cell identifier to its global position, cell dimensions
// and local-to-global alignment.
//
// The algorithms only depend on the Decoder and Resolver interfaces so unit
// tests can substitute deterministic fake geometries. Production code wires
// in BitFieldDecoder and TableResolver.
package geometry

import "fmt"

// CellID is a packed detector cell identifier. Its bit layout is described
// by a readout descriptor (see BitFieldDecoder) and is opaque to the
// reconstruction algorithms.
type CellID uint64

// Vec3 is a 3D vector in detector coordinates (mm).
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// CellGeometry is the geometry record for a single cell.
type CellGeometry struct {
	// Position is the cell center in the global frame (mm).
	Position Vec3
	// Dimension holds the full cell widths along local x, y, z (mm).
	Dimension Vec3
	// Alignment maps the local frame of the cell's module to the global
	// frame.
	Alignment Transform
}

// Decoder extracts named bit fields from packed cell identifiers.
//
// Field names are resolved to indices once at setup time via Index; the
// per-hit hot path then uses Get with the resolved index.
type Decoder interface {
	// Index returns the positional index of the named field, or
	// ErrUnknownField if the active readout does not define it.
	Index(field string) (int, error)
	// Get extracts the value of the field at index idx from id. The index
	// must come from a successful Index call on the same decoder.
	Get(id CellID, idx int) int64
}

// Resolver maps a cell identifier to its geometry record.
type Resolver interface {
	// Lookup returns the geometry of the given cell, or an error wrapping
	// ErrUnknownCell if the identifier is not registered.
	Lookup(id CellID) (CellGeometry, error)
}

// ErrUnknownField reports a field name that does not exist in the readout
// descriptor. It is a configuration error and should abort startup.
type ErrUnknownField struct {
	Field string
}

func (e *ErrUnknownField) Error() string {
	return fmt.Sprintf("readout has no field %q", e.Field)
}

// ErrUnknownCell reports a cell identifier with no registered geometry.
type ErrUnknownCell struct {
	ID CellID
}

func (e *ErrUnknownCell) Error() string {
	return fmt.Sprintf("no geometry for cell %#x", uint64(e.ID))
}
