// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"github.com/rditech/rixs-toolbox/numeric"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultOversampleQ is the number of map columns per input spectrum.
const DefaultOversampleQ = 10

// Map is a 2D intensity map: Z has one row per X and one column per Q.
type Map struct {
	X []float64
	Q []float64
	Z *mat.Dense
}

// BuildMap resamples spectra taken along a scan onto a regular grid. The
// x grid spans the first spectrum with as many points, the q grid spans
// the scan range with oversampleQ points per spectrum.
func BuildMap(spectra []numeric.Curve, oversampleQ int, method numeric.GridMethod) (*Map, error) {
	if len(spectra) == 0 {
		return nil, ErrNoSpectra
	}
	if oversampleQ < 1 {
		oversampleQ = DefaultOversampleQ
	}

	sorted := make([]numeric.Curve, len(spectra))
	qs := make([]float64, len(spectra))
	for i, s := range spectra {
		if len(s.X) == 0 || len(s.X) != len(s.Y) {
			return nil, numeric.ErrLength
		}
		x, y := numeric.SortPair(s.X, s.Y)
		sorted[i] = numeric.Curve{Q: s.Q, X: x, Y: y}
		qs[i] = s.Q
	}
	first := sorted[0].X

	m := &Map{
		X: numeric.Linspace(first[0], first[len(first)-1], len(first)),
		Q: numeric.Linspace(floats.Min(qs), floats.Max(qs), oversampleQ*len(qs)),
	}
	var err error
	m.Z, err = numeric.InterpolateOnGrid(sorted, m.X, m.Q, method, nil)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CurveFromColumns takes x and y columns of a reduced spectrum as a map
// input at scan coordinate q.
func CurveFromColumns(cols *Columns, xKey, yKey string, q float64) (numeric.Curve, error) {
	x, ok := cols.Get(xKey)
	if !ok {
		return numeric.Curve{}, &ConfigurationError{"x column", "missing " + xKey}
	}
	y, ok := cols.Get(yKey)
	if !ok {
		return numeric.Curve{}, &ConfigurationError{"y column", "missing " + yKey}
	}
	return numeric.Curve{Q: q, X: x, Y: y}, nil
}
