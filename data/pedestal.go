// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// BaselineRows is the number of top rows the pedestal is estimated from.
const BaselineRows = 50

// EstimateBaseline returns the mean of the first BaselineRows rows plus the
// dark current accumulated during the exposure.
func EstimateBaseline(img mat.Matrix, darkCounts, exposure float64) float64 {
	rows, cols := img.Dims()
	n := rows
	if n > BaselineRows {
		n = BaselineRows
	}
	if n == 0 || cols == 0 {
		return darkCounts * exposure
	}

	means := make([]float64, n)
	row := make([]float64, cols)
	for i := range means {
		mat.Row(row, i, img)
		means[i] = stat.Mean(row, nil)
	}
	return stat.Mean(means, nil) + darkCounts*exposure
}

// SubtractBackground returns img with the background removed, and the
// background term that was subtracted.
func SubtractBackground(img *mat.Dense, bg *Background, ccd CCDParams, exposure float64, log zerolog.Logger) (out, term *mat.Dense, err error) {
	rows, cols := img.Dims()
	term = mat.NewDense(rows, cols, nil)

	kind := BackgroundNone
	if bg != nil {
		kind = bg.Kind
	}

	switch kind {
	case BackgroundBaseline:
		fill(term, bg.Baseline)
	case BackgroundDark:
		if bg.Dark == nil {
			fill(term, EstimateBaseline(img, ccd.DarkCounts, exposure))
			break
		}
		dr, dc := bg.Dark.Dims()
		if dr != rows || dc != cols {
			mismatch := &ShapeMismatchError{Image: [2]int{rows, cols}, Background: [2]int{dr, dc}}
			if !bg.AllowShapeFallback {
				return nil, nil, mismatch
			}
			log.Warn().Err(mismatch).Msg("falling back to baseline subtraction")
			fill(term, EstimateBaseline(img, ccd.DarkCounts, exposure))
			break
		}

		scale := 1.0
		if bg.AcquisitionTime > 0 {
			scale = exposure / bg.AcquisitionTime
		}
		term.Scale(scale, bg.Dark)

		if bg.ForceZero {
			var corrected mat.Dense
			corrected.Sub(img, term)
			base := EstimateBaseline(&corrected, ccd.DarkCounts, exposure)
			term.Apply(func(_, _ int, v float64) float64 { return v + base }, term)
		}
	default:
		fill(term, EstimateBaseline(img, ccd.DarkCounts, exposure))
	}

	out = mat.NewDense(rows, cols, nil)
	out.Sub(img, term)
	return out, term, nil
}

func fill(m *mat.Dense, v float64) {
	m.Apply(func(_, _ int, _ float64) float64 { return v }, m)
}
