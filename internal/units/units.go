// Package units provides the internal unit conventions shared across the
// reconstruction code. Lengths are stored in millimeters, energies in keV
// and angles in radians; all configuration values and database columns use
// these base units.
package units

// Length units (base: millimeter).
const (
	Millimeter = 1.0
	Centimeter = 10.0 * Millimeter
	Meter      = 1000.0 * Millimeter
	Micrometer = 1e-3 * Millimeter
)

// Energy units (base: keV).
const (
	KeV = 1.0
	MeV = 1000.0 * KeV
	GeV = 1e6 * KeV
)

// Angle units (base: radian).
const (
	Radian      = 1.0
	Milliradian = 1e-3 * Radian
)

// Time units (base: nanosecond).
const (
	Nanosecond  = 1.0
	Microsecond = 1000.0 * Nanosecond
)
