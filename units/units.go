// Package units implements the closed dimensional conversion table
// between commensurable physical units used by meter readings.
package units

import "fmt"

// Base is a dimension: quantities of different bases are never
// commensurable.
type Base int

const (
	Volume Base = iota
	Energy
	Power
	Temperature
	Flow
	Duration
)

// Unit is one named unit of a Base.
type Unit string

const (
	M3      Unit = "m3"
	L       Unit = "l"
	KWh     Unit = "kwh"
	Wh      Unit = "wh"
	J       Unit = "j"
	GJ      Unit = "gj"
	MJ      Unit = "mj"
	W       Unit = "w"
	KW      Unit = "kw"
	C       Unit = "c"
	F       Unit = "f"
	K       Unit = "k"
	M3H     Unit = "m3h"
	LH      Unit = "lh"
	Second  Unit = "s"
	Minute  Unit = "min"
	Hour    Unit = "h"
)

type entry struct {
	base Base
	// value in the base's canonical unit = raw*scale + offset
	scale, offset float64
}

// table maps each unit to its base and its affine conversion to the
// canonical unit of that base (m3, kWh, kW, degC, m3/h, s).
var table = map[Unit]entry{
	M3: {Volume, 1, 0},
	L:  {Volume, 0.001, 0},

	KWh: {Energy, 1, 0},
	Wh:  {Energy, 0.001, 0},
	J:   {Energy, 1.0 / 3600000.0, 0},
	MJ:  {Energy, 1000000.0 / 3600000.0, 0},
	GJ:  {Energy, 1000000000.0 / 3600000.0, 0},

	KW: {Power, 1, 0},
	W:  {Power, 0.001, 0},

	C: {Temperature, 1, 0},
	K: {Temperature, 1, -273.15},
	F: {Temperature, 5.0 / 9.0, -32 * 5.0 / 9.0},

	M3H: {Flow, 1, 0},
	LH:  {Flow, 0.001, 0},

	Second: {Duration, 1, 0},
	Minute: {Duration, 60, 0},
	Hour:   {Duration, 3600, 0},
}

// BaseOf returns the dimension a unit belongs to.
func BaseOf(u Unit) (Base, error) {
	e, ok := table[u]
	if !ok {
		return 0, fmt.Errorf("units: unknown unit %q", u)
	}
	return e.base, nil
}

// DimensionMismatch is returned by Convert when from and to do not
// share a base.
type DimensionMismatch struct {
	From, To Unit
}

func (e DimensionMismatch) Error() string {
	return fmt.Sprintf("units: %q and %q are not commensurable", e.From, e.To)
}

// Convert converts value from unit `from` to unit `to`. Conversion is
// affine for temperature and linear for every other base.
func Convert(value float64, from, to Unit) (float64, error) {
	ef, ok := table[from]
	if !ok {
		return 0, fmt.Errorf("units: unknown unit %q", from)
	}
	et, ok := table[to]
	if !ok {
		return 0, fmt.Errorf("units: unknown unit %q", to)
	}
	if ef.base != et.base {
		return 0, DimensionMismatch{from, to}
	}

	si := value*ef.scale + ef.offset
	return (si - et.offset) / et.scale, nil
}

// Suffix returns the lower-case JSON-key suffix for a unit, e.g. "m3",
// "kwh", "gj" — used to build keys of the form "<base>_<unit>" for
// --addconversion output.
func Suffix(u Unit) string {
	return string(u)
}
