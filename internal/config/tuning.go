// Package config loads the reconstruction tuning parameters from JSON.
// All fields are optional pointers; the Get* accessors supply defaults, so
// partial config files are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wdconinc/algorithms/internal/calo"
	"github.com/wdconinc/algorithms/internal/calo/hitreco"
)

// TuningConfig represents the root configuration for reconstruction
// tuning parameters.
type TuningConfig struct {
	// Readout descriptor and field naming.
	Readout        *string  `json:"readout,omitempty"`
	LayerField     *string  `json:"layer_field,omitempty"`
	SectorField    *string  `json:"sector_field,omitempty"`
	LocalDetFields []string `json:"local_det_fields,omitempty"`

	// Clustering params.
	AdjLayerDiff         *int      `json:"adj_layer_diff,omitempty"`
	LocalRanges          []float64 `json:"local_ranges,omitempty"`            // mm (x, y)
	AdjLayerRanges       []float64 `json:"adj_layer_ranges,omitempty"`        // rad (eta, phi)
	AdjSectorDist        *float64  `json:"adj_sector_dist,omitempty"`         // mm
	MinClusterCenterEdep *float64  `json:"min_cluster_center_edep,omitempty"` // keV
	LogWeightBase        *float64  `json:"log_weight_base,omitempty"`

	// Hit reconstruction params.
	CapADC           *int     `json:"cap_adc,omitempty"`
	DynamicRangeADC  *float64 `json:"dynamic_range_adc,omitempty"` // keV
	PedestalMean     *float64 `json:"pedestal_mean,omitempty"`
	PedestalSigma    *float64 `json:"pedestal_sigma,omitempty"`
	ThresholdFactor  *float64 `json:"threshold_factor,omitempty"`
	SamplingFraction *float64 `json:"sampling_fraction,omitempty"`

	// Pipeline params.
	NumWorkers *int `json:"num_workers,omitempty"`
}

// DefaultReadout is the readout descriptor assumed when none is
// configured: an 8-bit system id, signed sector, layer and signed local
// cell indices.
const DefaultReadout = "system:8,sector:-8,layer:6,x:-16,y:-16"

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file retain their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are well formed. Errors
// here are fatal at startup.
func (c *TuningConfig) Validate() error {
	if c.LocalRanges != nil && len(c.LocalRanges) < 2 {
		return fmt.Errorf("local_ranges needs 2 entries (x, y), got %d", len(c.LocalRanges))
	}
	if c.AdjLayerRanges != nil && len(c.AdjLayerRanges) < 2 {
		return fmt.Errorf("adj_layer_ranges needs 2 entries (eta, phi), got %d", len(c.AdjLayerRanges))
	}
	for _, v := range c.LocalRanges {
		if v < 0 {
			return fmt.Errorf("local_ranges must be non-negative, got %g", v)
		}
	}
	for _, v := range c.AdjLayerRanges {
		if v < 0 {
			return fmt.Errorf("adj_layer_ranges must be non-negative, got %g", v)
		}
	}
	if c.AdjSectorDist != nil && *c.AdjSectorDist < 0 {
		return fmt.Errorf("adj_sector_dist must be non-negative, got %g", *c.AdjSectorDist)
	}
	if c.MinClusterCenterEdep != nil && *c.MinClusterCenterEdep < 0 {
		return fmt.Errorf("min_cluster_center_edep must be non-negative, got %g", *c.MinClusterCenterEdep)
	}
	if c.CapADC != nil && *c.CapADC <= 0 {
		return fmt.Errorf("cap_adc must be positive, got %d", *c.CapADC)
	}
	if c.NumWorkers != nil && *c.NumWorkers < 1 {
		return fmt.Errorf("num_workers must be at least 1, got %d", *c.NumWorkers)
	}
	return nil
}

// GetReadout returns the readout descriptor or the default.
func (c *TuningConfig) GetReadout() string {
	if c.Readout == nil || *c.Readout == "" {
		return DefaultReadout
	}
	return *c.Readout
}

// GetLocalDetFields returns the readout fields addressing a module (the
// local coordinate frame), or the default module fields of the default
// readout.
func (c *TuningConfig) GetLocalDetFields() []string {
	if c.LocalDetFields == nil {
		return []string{"system", "sector", "layer"}
	}
	return c.LocalDetFields
}

// GetLayerField returns the layer field name or the default.
func (c *TuningConfig) GetLayerField() string {
	if c.LayerField == nil {
		return calo.DefaultLayerField
	}
	return *c.LayerField
}

// GetSectorField returns the sector field name or the default.
func (c *TuningConfig) GetSectorField() string {
	if c.SectorField == nil {
		return calo.DefaultSectorField
	}
	return *c.SectorField
}

// GetMinClusterCenterEdep returns the seed energy threshold or the default.
func (c *TuningConfig) GetMinClusterCenterEdep() float64 {
	if c.MinClusterCenterEdep == nil {
		return calo.DefaultMinClusterCenterEdep
	}
	return *c.MinClusterCenterEdep
}

// GetLogWeightBase returns the log weighting offset or the default.
func (c *TuningConfig) GetLogWeightBase() float64 {
	if c.LogWeightBase == nil {
		return calo.DefaultLogWeightBase
	}
	return *c.LogWeightBase
}

// GetNumWorkers returns the pipeline worker count or the default.
func (c *TuningConfig) GetNumWorkers() int {
	if c.NumWorkers == nil {
		return 1
	}
	return *c.NumWorkers
}

// NeighborParams assembles the adjacency parameters, applying defaults
// for unset fields.
func (c *TuningConfig) NeighborParams() calo.NeighborParams {
	p := calo.DefaultNeighborParams()
	if c.AdjLayerDiff != nil {
		p.AdjLayerDiff = *c.AdjLayerDiff
	}
	if c.LocalRanges != nil {
		p.LocalRanges = c.LocalRanges
	}
	if c.AdjLayerRanges != nil {
		p.AdjLayerRanges = c.AdjLayerRanges
	}
	if c.AdjSectorDist != nil {
		p.AdjSectorDist = *c.AdjSectorDist
	}
	p.LayerField = c.GetLayerField()
	p.SectorField = c.GetSectorField()
	return p
}

// RecoParams assembles the hit reconstruction parameters, applying
// defaults for unset fields.
func (c *TuningConfig) RecoParams() hitreco.Params {
	p := hitreco.DefaultParams()
	if c.CapADC != nil {
		p.CapADC = *c.CapADC
	}
	if c.DynamicRangeADC != nil {
		p.DynamicRangeADC = *c.DynamicRangeADC
	}
	if c.PedestalMean != nil {
		p.PedestalMean = *c.PedestalMean
	}
	if c.PedestalSigma != nil {
		p.PedestalSigma = *c.PedestalSigma
	}
	if c.ThresholdFactor != nil {
		p.ThresholdFactor = *c.ThresholdFactor
	}
	if c.SamplingFraction != nil {
		p.SamplingFraction = *c.SamplingFraction
	}
	p.LayerField = c.GetLayerField()
	p.SectorField = c.GetSectorField()
	return p
}
