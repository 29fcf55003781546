package geometry

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func newGeometryDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite", filepath.Join(t.TempDir(), "geometry.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

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
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func TestTableResolverLookup(t *testing.T) {
	db := newGeometryDB(t)

	// Cell 0x1234 in module 0x12 (low byte addresses the cell).
	_, err := db.Exec(`INSERT INTO cells VALUES (?, 10, 20, 30, 1, 1, 2)`, int64(0x1234))
	if err != nil {
		t.Fatalf("inserting cell: %v", err)
	}
	_, err = db.Exec(`INSERT INTO alignments VALUES (?, 1,0,0, 0,1,0, 0,0,1, 100, 0, 0)`, int64(0x1200))
	if err != nil {
		t.Fatalf("inserting alignment: %v", err)
	}

	resolver, err := NewTableResolver(db, ^uint64(0xFF))
	if err != nil {
		t.Fatalf("NewTableResolver: %v", err)
	}

	cell, err := resolver.Lookup(0x1234)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if cell.Position != (Vec3{10, 20, 30}) {
		t.Errorf("position = %+v", cell.Position)
	}
	if cell.Dimension != (Vec3{1, 1, 2}) {
		t.Errorf("dimension = %+v", cell.Dimension)
	}
	if got := cell.Alignment.LocalToGlobal(Vec3{}); got != (Vec3{100, 0, 0}) {
		t.Errorf("alignment origin = %+v", got)
	}
}

func TestTableResolverUnknownCell(t *testing.T) {
	db := newGeometryDB(t)
	if _, err := db.Exec(`INSERT INTO cells VALUES (1, 0,0,0, 1,1,1)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO alignments VALUES (1, 1,0,0, 0,1,0, 0,0,1, 0,0,0)`); err != nil {
		t.Fatal(err)
	}

	resolver, err := NewTableResolver(db, ^uint64(0))
	if err != nil {
		t.Fatalf("NewTableResolver: %v", err)
	}

	_, err = resolver.Lookup(99)
	var unknown *ErrUnknownCell
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownCell, got %v", err)
	}
	if unknown.ID != 99 {
		t.Errorf("expected cell id in error, got %#x", uint64(unknown.ID))
	}
}

func TestTableResolverMissingAlignment(t *testing.T) {
	db := newGeometryDB(t)
	if _, err := db.Exec(`INSERT INTO cells VALUES (1, 0,0,0, 1,1,1)`); err != nil {
		t.Fatal(err)
	}

	resolver, err := NewTableResolver(db, ^uint64(0))
	if err != nil {
		t.Fatalf("NewTableResolver: %v", err)
	}
	if _, err := resolver.Lookup(1); err == nil {
		t.Error("expected error for cell without module alignment")
	}
}

func TestTableResolverEmptyGeometry(t *testing.T) {
	db := newGeometryDB(t)
	if _, err := NewTableResolver(db, ^uint64(0)); err == nil {
		t.Error("expected error for empty cells table")
	}
}
