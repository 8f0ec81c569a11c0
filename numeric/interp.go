// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

// Package numeric holds the numerical primitives shared by the reduction
// pipeline: linear interpolation, Gaussian kernels and filters, a downhill
// simplex minimizer with fitting helpers, and a regular grid interpolator.
package numeric

import (
	"errors"
	"sort"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
)

var ErrLength = errors.New("numeric: mismatched or empty input lengths")

// Interp evaluates the piecewise linear interpolant through (xp, fp) at
// each x. xp must be increasing. Points outside the sample range take the
// nearest edge value.
func Interp(x, xp, fp []float64) []float64 {
	return interp(x, xp, fp, nil)
}

// InterpFill is Interp with points outside the sample range set to fill.
func InterpFill(x, xp, fp []float64, fill float64) []float64 {
	return interp(x, xp, fp, &fill)
}

func interp(x, xp, fp []float64, fill *float64) []float64 {
	out := make([]float64, len(x))
	n := len(xp)
	if n == 0 || len(fp) != n {
		return out
	}

	left, right := fp[0], fp[n-1]
	if fill != nil {
		left, right = *fill, *fill
	}

	for i, v := range x {
		switch {
		case v < xp[0]:
			out[i] = left
		case v > xp[n-1]:
			out[i] = right
		case v == xp[n-1]:
			out[i] = fp[n-1]
		default:
			// first index with xp[j] > v
			j := sort.Search(n, func(k int) bool { return xp[k] > v })
			x0, x1 := xp[j-1], xp[j]
			if x1 == x0 {
				out[i] = fp[j-1]
				continue
			}
			t := (v - x0) / (x1 - x0)
			out[i] = fp[j-1] + t*(fp[j]-fp[j-1])
		}
	}
	return out
}

// Linspace returns n evenly spaced samples over [start, stop], endpoint
// included.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := floats.Span(make([]float64, n), start, stop)
	out[n-1] = stop
	return out
}

// Reverse reverses s in place and returns it.
func Reverse(s []float64) []float64 {
	slices.Reverse(s)
	return s
}
