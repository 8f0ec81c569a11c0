// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ROI selects rows [RowMin, RowMax) and columns [ColMin, ColMax). Bounds
// outside the image are clamped.
type ROI struct {
	RowMin int `yaml:"row_min"`
	RowMax int `yaml:"row_max"`
	ColMin int `yaml:"col_min"`
	ColMax int `yaml:"col_max"`
}

type CCDParams struct {
	DarkCounts        float64 `yaml:"dark_counts"`
	ElectronsPerCount float64 `yaml:"electrons_per_count"`
	EhPairEnergy      float64 `yaml:"eh_pair_energy"`
}

// SPCParams holds the single photon counting settings. Thresholds are
// fractions of the incident photon energy.
type SPCParams struct {
	Enabled         bool    `yaml:"enabled"`
	GridSize        int     `yaml:"grid_size"`
	LowThreshold    float64 `yaml:"low_threshold"`
	HighThreshold   float64 `yaml:"high_threshold"`
	SingleThreshold float64 `yaml:"single_threshold"`
	DoubleThreshold float64 `yaml:"double_threshold"`
}

// BackgroundParams describes how the background is obtained. Mode is one
// of "none", "baseline" or "dark"; dark frames are accumulated from
// DarkFiles with Method "average", "sum" or "sum-rescaled".
type BackgroundParams struct {
	Mode               string   `yaml:"mode"`
	Baseline           float64  `yaml:"baseline"`
	DarkFiles          []string `yaml:"dark_files"`
	Method             string   `yaml:"method"`
	ForceZero          bool     `yaml:"force_zero"`
	Smoothing          bool     `yaml:"smoothing"`
	SmoothingWidth     float64  `yaml:"smoothing_width"`
	AllowShapeFallback bool     `yaml:"allow_shape_fallback"`
}

// Params are the calibration parameters of a reduction.
type Params struct {
	Slope             float64          `yaml:"slope"`
	PointsPerPixel    float64          `yaml:"points_per_pixel"`
	Binning           float64          `yaml:"binning"`
	LowerThreshold    float64          `yaml:"lower_threshold"`
	UpperThreshold    float64          `yaml:"upper_threshold"`
	MaskSize          int              `yaml:"mask_size"`
	ROI               *ROI             `yaml:"roi,omitempty"`
	CCD               CCDParams        `yaml:"ccd_params"`
	SPC               SPCParams        `yaml:"spc"`
	ExtractBackground bool             `yaml:"extract_background"`
	Background        BackgroundParams `yaml:"background"`

	// FitSlope fits the shear slope through the SPC centroids of every
	// image and reports it alongside the spectrum.
	FitSlope bool `yaml:"fit_slope"`

	// EnergyZero (pixel) and Dispersion (meV per pixel) add an energy loss
	// column when Dispersion is non-zero.
	EnergyZero float64 `yaml:"energy_zero"`
	Dispersion float64 `yaml:"dispersion"`
}

func DefaultParams() Params {
	return Params{
		Slope:          -0.0395,
		PointsPerPixel: 2.7,
		Binning:        1,
		LowerThreshold: -1e5,
		UpperThreshold: 1e5,
		MaskSize:       5,
		CCD: CCDParams{
			DarkCounts:        0.00016,
			ElectronsPerCount: 1.2,
			EhPairEnergy:      3.6,
		},
		SPC: SPCParams{
			Enabled:         true,
			GridSize:        3,
			LowThreshold:    0.2,
			HighThreshold:   1.0,
			SingleThreshold: 0.4,
			DoubleThreshold: 1.5,
		},
		Background: BackgroundParams{
			Mode:           "none",
			Method:         "average",
			SmoothingWidth: 5,
		},
	}
}

// LoadParams decodes YAML on top of DefaultParams and validates the result.
func LoadParams(r io.Reader) (Params, error) {
	p := DefaultParams()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return p, fmt.Errorf("failed to parse parameters: %w", err)
	}
	return p, p.Validate()
}

func LoadParamsFile(filename string) (Params, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return DefaultParams(), fmt.Errorf("failed to read parameter file: %w", err)
	}
	return LoadParams(bytes.NewReader(raw))
}

func (p *Params) Validate() error {
	if !(p.PointsPerPixel > 0) {
		return &ConfigurationError{"points_per_pixel", fmt.Sprintf("must be positive, got %v", p.PointsPerPixel)}
	}
	if !(p.Binning > 0) {
		return &ConfigurationError{"binning", fmt.Sprintf("must be positive, got %v", p.Binning)}
	}
	if math.IsNaN(p.Slope) || math.IsInf(p.Slope, 0) {
		return &ConfigurationError{"slope", "must be finite"}
	}
	if p.CCD.ElectronsPerCount == 0 || p.CCD.EhPairEnergy == 0 {
		return &ConfigurationError{"ccd_params", "electrons_per_count and eh_pair_energy must be non-zero"}
	}
	if p.SPC.Enabled && (p.SPC.GridSize < 1 || p.SPC.GridSize%2 == 0) {
		return &ConfigurationError{"spc.grid_size", fmt.Sprintf("must be odd and positive, got %v", p.SPC.GridSize)}
	}
	switch p.Background.Mode {
	case "", "none", "baseline", "dark":
	default:
		return &ConfigurationError{"background.mode", fmt.Sprintf("unknown mode %q", p.Background.Mode)}
	}
	if _, err := ParseDarkMethod(p.Background.Method); err != nil {
		return &ConfigurationError{"background.method", err.Error()}
	}
	if p.Background.Smoothing && p.Background.SmoothingWidth < 0 {
		return &ConfigurationError{"background.smoothing_width", "must not be negative"}
	}
	return nil
}

// ContPhoton is the number of ADC counts produced by one photon of the
// given energy.
func (p *Params) ContPhoton(energy float64) float64 {
	return energy / (p.CCD.EhPairEnergy * p.CCD.ElectronsPerCount)
}

// SpectrumLength is the number of points of a spectrum extracted from an
// image with the given number of rows.
func (p *Params) SpectrumLength(rows int) int {
	return int(math.Round(float64(rows) * p.PointsPerPixel))
}

// EffectiveMaskSize is MaskSize with values below one treated as one.
func (p *Params) EffectiveMaskSize() int {
	if p.MaskSize < 1 {
		return 1
	}
	return p.MaskSize
}
