// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package numeric

import (
	"cmp"
	"fmt"
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

// GridMethod selects how curves are resampled along the q axis.
type GridMethod int

const (
	Nearest GridMethod = iota
	Linear
)

func (m GridMethod) String() string {
	switch m {
	case Nearest:
		return "nearest"
	case Linear:
		return "linear"
	}
	return fmt.Sprintf("GridMethod(%d)", int(m))
}

// ParseGridMethod accepts "nearest" and "linear".
func ParseGridMethod(s string) (GridMethod, error) {
	switch s {
	case "nearest", "":
		return Nearest, nil
	case "linear":
		return Linear, nil
	}
	return Nearest, fmt.Errorf("numeric: unknown grid method %q", s)
}

// Curve is one irregularly sampled spectrum taken at scan coordinate Q.
type Curve struct {
	Q    float64
	X, Y []float64
}

// InterpolateOnGrid resamples curves onto the regular grid spanned by gridX
// (along each curve) and gridY (along q). The result has len(gridX) rows
// and len(gridY) columns. With a nil fill, values beyond a curve's x range
// (or beyond the q range for Linear) hold the edge value.
func InterpolateOnGrid(curves []Curve, gridX, gridY []float64, method GridMethod, fill *float64) (*mat.Dense, error) {
	if len(curves) == 0 || len(gridX) == 0 || len(gridY) == 0 {
		return nil, ErrLength
	}

	onX := make([][]float64, len(curves))
	for i, c := range curves {
		if len(c.X) != len(c.Y) || len(c.X) == 0 {
			return nil, fmt.Errorf("curve %d: %w", i, ErrLength)
		}
		onX[i] = interp(gridX, c.X, c.Y, fill)
	}

	out := mat.NewDense(len(gridX), len(gridY), nil)

	switch method {
	case Nearest:
		for j, q := range gridY {
			best, bestDist := 0, math.Inf(1)
			for i, c := range curves {
				if d := math.Abs(c.Q - q); d < bestDist {
					best, bestDist = i, d
				}
			}
			out.SetCol(j, onX[best])
		}
	case Linear:
		idx := make([]int, len(curves))
		for i := range idx {
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			return cmp.Compare(curves[a].Q, curves[b].Q)
		})
		qs := make([]float64, len(idx))
		for k, i := range idx {
			qs[k] = curves[i].Q
		}
		row := make([]float64, len(idx))
		for r := range gridX {
			for k, i := range idx {
				row[k] = onX[i][r]
			}
			out.SetRow(r, interp(gridY, qs, row, fill))
		}
	default:
		return nil, fmt.Errorf("numeric: unsupported grid method %v", method)
	}

	return out, nil
}
