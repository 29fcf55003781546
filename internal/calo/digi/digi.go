// Package digi simulates the detector readout: it converts truth energy
// deposits into digitized ADC/TDC counts with pedestal and resolution
// noise. Its output pairs with package hitreco, which inverts the
// conversion.
package digi

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wdconinc/algorithms/internal/calo/geometry"
	"github.com/wdconinc/algorithms/internal/calo/hitreco"
	"github.com/wdconinc/algorithms/internal/units"
)

// SimDeposit is a truth energy deposit in one cell.
type SimDeposit struct {
	CellID geometry.CellID `json:"cell_id"`
	Energy float64         `json:"energy"` // keV
	Time   float64         `json:"time"`   // ns
}

// Params configures the digitizer. The ADC constants must match the
// hitreco.Params used to reconstruct the output.
type Params struct {
	// EnergyResolution is the stochastic resolution term a in
	// sigma_E/E = a/sqrt(E/GeV).
	EnergyResolution float64
	// ADC conversion constants, shared with hitreco.
	CapADC           int
	DynamicRangeADC  float64
	PedestalMean     float64
	PedestalSigma    float64
	SamplingFraction float64
	TimeResolution   float64
}

// DefaultParams returns digitizer settings consistent with
// hitreco.DefaultParams.
func DefaultParams() Params {
	h := hitreco.DefaultParams()
	return Params{
		EnergyResolution: 0.02,
		CapADC:           h.CapADC,
		DynamicRangeADC:  h.DynamicRangeADC,
		PedestalMean:     h.PedestalMean,
		PedestalSigma:    h.PedestalSigma,
		SamplingFraction: h.SamplingFraction,
		TimeResolution:   h.TimeResolution,
	}
}

// Digitizer converts truth deposits to raw hits. It is seeded explicitly
// so simulation runs are reproducible.
type Digitizer struct {
	params Params
	gauss  distuv.Normal
}

// NewDigitizer creates a digitizer with the given noise seed.
func NewDigitizer(params Params, seed uint64) *Digitizer {
	return &Digitizer{
		params: params,
		gauss: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewPCG(seed, seed),
		},
	}
}

// Digitize converts one event's deposits to raw hits. Every deposit
// produces a channel readout; zero suppression is left to hitreco, as in
// the real readout chain.
func (d *Digitizer) Digitize(deps []SimDeposit) []hitreco.RawHit {
	if len(deps) == 0 {
		return nil
	}

	p := d.params
	raws := make([]hitreco.RawHit, 0, len(deps))
	for _, dep := range deps {
		// Stochastic smearing: sigma grows with sqrt(E).
		sigma := p.EnergyResolution * math.Sqrt(dep.Energy*units.GeV)
		smeared := dep.Energy + d.gauss.Rand()*sigma
		if smeared < 0 {
			smeared = 0
		}

		amp := p.PedestalMean + d.gauss.Rand()*p.PedestalSigma +
			smeared*p.SamplingFraction/p.DynamicRangeADC*float64(p.CapADC)
		if amp < 0 {
			amp = 0
		}
		if amp > float64(p.CapADC) {
			amp = float64(p.CapADC)
		}

		raws = append(raws, hitreco.RawHit{
			CellID:    dep.CellID,
			Amplitude: int32(math.Round(amp)),
			TDC:       int32(math.Round(dep.Time / p.TimeResolution)),
		})
	}
	return raws
}
