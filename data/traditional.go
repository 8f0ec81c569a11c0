// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"fmt"

	"github.com/rditech/rixs-toolbox/numeric"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BackgroundTruncate is the kernel truncation used when smoothing the
// extracted background.
const BackgroundTruncate = 4.0

// ShiftTable returns, for every column, the offset of that column's row
// coordinates on the spectrum axis: -binning*slope*c - 1/ppp.
func ShiftTable(cols int, p *Params) []float64 {
	shifts := make([]float64, cols)
	for c := range shifts {
		shifts[c] = -p.Binning*p.Slope*float64(c) - 1/p.PointsPerPixel
	}
	return shifts
}

// resampler integrates the columns of an image onto a common axis. Each
// column is a uniform unit spaced sample starting at its shift, so the
// interpolation bracket of every axis point is found by arithmetic.
type resampler struct {
	x      []float64
	shifts []float64
	scale  float64

	col, val []float64
}

func newResampler(x, shifts []float64, scale float64) *resampler {
	return &resampler{
		x:      x,
		shifts: shifts,
		scale:  scale,
		val:    make([]float64, len(x)),
	}
}

// sum returns scale times the sum over columns of each column linearly
// interpolated at x, with values outside a column held at its edges.
func (r *resampler) sum(img mat.Matrix) []float64 {
	rows, cols := img.Dims()
	acc := make([]float64, len(r.x))
	if cap(r.col) < rows {
		r.col = make([]float64, rows)
	}
	col := r.col[:rows]
	last := float64(rows - 1)

	for c := 0; c < cols; c++ {
		mat.Col(col, c, img)
		shift := r.shifts[c]
		for k, xv := range r.x {
			t := xv - shift
			switch {
			case t <= 0:
				r.val[k] = col[0]
			case t >= last:
				r.val[k] = col[rows-1]
			default:
				j := int(t)
				f := t - float64(j)
				r.val[k] = col[j] + f*(col[j+1]-col[j])
			}
		}
		floats.AddScaled(acc, r.scale, r.val)
	}
	return acc
}

// ExtractTraditional integrates the preprocessed image along the sheared
// iso-energy lines.
func ExtractTraditional(pre *Preprocessed, p *Params, bg *Background) (*Columns, error) {
	rows, cols := pre.Image.Dims()
	n := p.SpectrumLength(rows)
	if n < 1 {
		return nil, &ConfigurationError{"points_per_pixel", fmt.Sprintf("%v rows give an empty spectrum", rows)}
	}

	x := numeric.Linspace(0, float64(rows), n)
	rs := newResampler(x, ShiftTable(cols, p), 1/p.PointsPerPixel)

	electrons := numeric.Reverse(rs.sum(pre.Image))

	out := &Columns{}
	if err := out.Set(ColPixel, x); err != nil {
		return nil, err
	}
	if sr, ok := pre.Info.Counter(CounterRingCurrent); ok {
		if err := out.SetConst(ColRingCurrent, sr/100); err != nil {
			return nil, err
		}
	}
	if mir, ok := pre.Info.Counter(CounterMirrorCurrent); ok {
		if err := out.SetConst(ColMirrorCurrent, mir/1e6); err != nil {
			return nil, err
		}
	}
	if err := out.SetConst(ColAcqTime, pre.Exposure); err != nil {
		return nil, err
	}

	if p.ExtractBackground {
		rawSignal := numeric.Reverse(rs.sum(pre.Raw))
		rawBackground := numeric.Reverse(rs.sum(pre.Background))
		ccdBackground := rawBackground
		if bg != nil && bg.Smoothing {
			smoothed, err := numeric.GaussianFilter(rawBackground, bg.SmoothingWidth, 0, BackgroundTruncate)
			if err != nil {
				return nil, fmt.Errorf("smoothing background: %w", err)
			}
			// subtract the smoothed background instead of the raw one
			for i := range electrons {
				electrons[i] += rawBackground[i] - smoothed[i]
			}
			ccdBackground = smoothed
		}
		for _, c := range []struct {
			key    string
			values []float64
		}{
			{ColRawSignal, rawSignal},
			{ColRawBackground, rawBackground},
			{ColCCDBackground, ccdBackground},
		} {
			if err := out.Set(c.key, c.values); err != nil {
				return nil, err
			}
		}
	}

	photons := make([]float64, n)
	floats.ScaleTo(photons, 1/pre.ContPhoton, electrons)
	if err := out.Set(ColElectrons, electrons); err != nil {
		return nil, err
	}
	if err := out.Set(ColPhotons, photons); err != nil {
		return nil, err
	}
	return out, nil
}
