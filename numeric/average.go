// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package numeric

import (
	"errors"
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
)

var ErrNoOverlap = errors.New("numeric: curves do not overlap")

// Average interpolates every curve onto the x values of the first one,
// restricted to the range all curves share, and averages them. Curves
// need not be sorted.
func Average(xs, ys [][]float64) (x, y []float64, err error) {
	if len(xs) != len(ys) || len(xs) == 0 {
		return nil, nil, ErrLength
	}

	sx := make([][]float64, len(xs))
	sy := make([][]float64, len(xs))
	lo, hi := math.Inf(-1), math.Inf(1)
	for i := range xs {
		if len(xs[i]) != len(ys[i]) || len(xs[i]) == 0 {
			return nil, nil, ErrLength
		}
		sx[i], sy[i] = SortPair(xs[i], ys[i])
		lo = math.Max(lo, sx[i][0])
		hi = math.Min(hi, sx[i][len(sx[i])-1])
	}
	if hi < lo {
		return nil, nil, ErrNoOverlap
	}

	for _, v := range sx[0] {
		if v >= lo && v <= hi {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return nil, nil, ErrNoOverlap
	}

	y = make([]float64, len(x))
	for i := range sx {
		floats.Add(y, Interp(x, sx[i], sy[i]))
	}
	floats.Scale(1/float64(len(sx)), y)
	return x, y, nil
}

// SortPair returns x and y reordered by increasing x. Sorted input is
// returned as is.
func SortPair(x, y []float64) ([]float64, []float64) {
	if slices.IsSorted(x) {
		return x, y
	}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case x[a] < x[b]:
			return -1
		case x[a] > x[b]:
			return 1
		}
		return 0
	})
	ox := make([]float64, len(x))
	oy := make([]float64, len(y))
	for k, i := range idx {
		ox[k], oy[k] = x[i], y[i]
	}
	return ox, oy
}
