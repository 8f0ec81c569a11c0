// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"errors"

	"github.com/rditech/rixs-toolbox/numeric"

	"gonum.org/v1/gonum/stat"
)

var (
	ErrTooFewSpots = errors.New("data: at least two spots are needed to fit a slope")
	ErrNoFits      = errors.New("data: no slope fits to average")
)

// HuberScale is the transition of the Huber loss used for slope fits, in
// pixels.
const HuberScale = 2.0

type SlopeFit struct {
	Offset float64
	Slope  float64
	Spots  int
	Result numeric.SimplexResult
}

// FindSlope fits row = offset + slope*col through uncorrected spot
// centroids. The fit starts from a flat line through the origin.
func FindSlope(spots []Spot) (SlopeFit, error) {
	if len(spots) < 2 {
		return SlopeFit{}, ErrTooFewSpots
	}
	cols := make([]float64, len(spots))
	rows := make([]float64, len(spots))
	for i, s := range spots {
		cols[i], rows[i] = s.ColC, s.RowC
	}

	theta, res, err := numeric.FitLineHuber(cols, rows, HuberScale, []float64{0, 0})
	if err != nil {
		return SlopeFit{}, err
	}
	return SlopeFit{
		Offset: theta[0],
		Slope:  theta[1],
		Spots:  len(spots),
		Result: res,
	}, nil
}

// MeanSlope averages the slopes of several fits.
func MeanSlope(fits []SlopeFit) (float64, error) {
	if len(fits) == 0 {
		return 0, ErrNoFits
	}
	slopes := make([]float64, len(fits))
	for i, f := range fits {
		slopes[i] = f.Slope
	}
	return stat.Mean(slopes, nil), nil
}
