// Package hitreco converts digitized calorimeter output (ADC/TDC counts)
// into reconstructed hits carrying calibrated energy, time and geometry.
// It is the stage feeding the topological clustering in package calo.
package hitreco

import (
	"fmt"

	"github.com/wdconinc/algorithms/internal/calo"
	"github.com/wdconinc/algorithms/internal/calo/geometry"
	"github.com/wdconinc/algorithms/internal/units"
)

// RawHit is one digitized channel readout.
type RawHit struct {
	CellID    geometry.CellID `json:"cell_id"`
	Amplitude int32           `json:"adc"`
	TDC       int32           `json:"tdc"`
}

// Params holds the digitization constants needed to invert the ADC
// conversion. They must match the digitizer settings of the data being
// reconstructed.
type Params struct {
	// CapADC is the ADC capacity (full scale counts).
	CapADC int
	// DynamicRangeADC is the energy at full scale (keV).
	DynamicRangeADC float64
	// PedestalMean and PedestalSigma describe the pedestal (counts).
	PedestalMean  float64
	PedestalSigma float64
	// ThresholdFactor sets zero suppression at
	// ThresholdFactor*PedestalSigma above the pedestal.
	ThresholdFactor float64
	// SamplingFraction calibrates sampling calorimeters; 1.0 for
	// homogeneous ones.
	SamplingFraction float64
	// TimeResolution converts TDC counts to ns.
	TimeResolution float64
	// LayerField and SectorField are decoded into the hit when non-empty.
	LayerField  string
	SectorField string
}

// DefaultParams returns digitization constants matching the default
// digitizer configuration.
func DefaultParams() Params {
	return Params{
		CapADC:           8096,
		DynamicRangeADC:  100 * units.MeV,
		PedestalMean:     400,
		PedestalSigma:    3.2,
		ThresholdFactor:  3.0,
		SamplingFraction: 1.0,
		TimeResolution:   1.0 * units.Nanosecond,
		LayerField:       calo.DefaultLayerField,
		SectorField:      calo.DefaultSectorField,
	}
}

// Reconstructor converts raw hits to calo.Hit records.
type Reconstructor struct {
	geo    geometry.Resolver
	dec    geometry.Decoder
	params Params

	layerIdx  int
	sectorIdx int
	hasLayer  bool
	hasSector bool
}

// NewReconstructor resolves the configured readout fields up front; an
// unknown field name is a configuration error.
func NewReconstructor(geo geometry.Resolver, dec geometry.Decoder, params Params) (*Reconstructor, error) {
	if params.CapADC <= 0 {
		return nil, fmt.Errorf("cap_adc must be positive, got %d", params.CapADC)
	}
	if params.SamplingFraction <= 0 {
		return nil, fmt.Errorf("sampling_fraction must be positive, got %g", params.SamplingFraction)
	}
	r := &Reconstructor{geo: geo, dec: dec, params: params}
	var err error
	if params.LayerField != "" {
		if r.layerIdx, err = dec.Index(params.LayerField); err != nil {
			return nil, fmt.Errorf("resolving layer field: %w", err)
		}
		r.hasLayer = true
	}
	if params.SectorField != "" {
		if r.sectorIdx, err = dec.Index(params.SectorField); err != nil {
			return nil, fmt.Errorf("resolving sector field: %w", err)
		}
		r.hasSector = true
	}
	return r, nil
}

// Reconstruct converts one event's raw hits. Channels below the zero
// suppression threshold are dropped. A geometry lookup failure aborts the
// whole event: a hit without geometry cannot be clustered, and partial
// events must not propagate downstream.
func (r *Reconstructor) Reconstruct(raws []RawHit) ([]calo.Hit, error) {
	if len(raws) == 0 {
		return nil, nil
	}

	p := r.params
	hits := make([]calo.Hit, 0, len(raws))
	for _, rh := range raws {
		over := float64(rh.Amplitude) - p.PedestalMean
		if over < p.ThresholdFactor*p.PedestalSigma {
			continue
		}

		energy := over / float64(p.CapADC) * p.DynamicRangeADC / p.SamplingFraction
		time := float64(rh.TDC) * p.TimeResolution

		cell, err := r.geo.Lookup(rh.CellID)
		if err != nil {
			return nil, fmt.Errorf("resolving cell %#x: %w", uint64(rh.CellID), err)
		}
		local := cell.Alignment.GlobalToLocal(cell.Position)

		layer, sector := int32(-1), int32(-1)
		if r.hasLayer {
			layer = int32(r.dec.Get(rh.CellID, r.layerIdx))
		}
		if r.hasSector {
			sector = int32(r.dec.Get(rh.CellID, r.sectorIdx))
		}

		hits = append(hits, calo.Hit{
			CellID:    rh.CellID,
			Layer:     layer,
			Sector:    sector,
			Energy:    energy,
			Time:      time,
			Position:  cell.Position,
			Local:     local,
			Dimension: cell.Dimension,
		})
	}
	return hits, nil
}
