// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package numeric

import (
	"math"
)

// Model is a one-dimensional model function with parameters p.
type Model func(x float64, p []float64) float64

// CurveFit minimizes the squared residuals of model against (x, y).
func CurveFit(model Model, x, y, p0 []float64) ([]float64, SimplexResult, error) {
	if len(x) != len(y) || len(x) == 0 {
		return nil, SimplexResult{}, ErrLength
	}
	chi2 := func(p []float64) float64 {
		var sum float64
		for i, xi := range x {
			r := y[i] - model(xi, p)
			sum += r * r
		}
		return sum
	}
	popt, res := Minimize(chi2, p0, nil)
	return popt, res, nil
}

// GaussianModel is Gaussian with p = (center, amplitude, fwhm).
func GaussianModel(x float64, p []float64) float64 {
	return Gaussian(x, p[0], p[1], p[2])
}

// FitGaussian fits a single Gaussian peak. p0 holds the starting center,
// amplitude and FWHM; a nil p0 starts from (1, 1, 1).
func FitGaussian(x, y, p0 []float64) ([]float64, SimplexResult, error) {
	if p0 == nil {
		p0 = []float64{1, 1, 1}
	}
	return CurveFit(GaussianModel, x, y, p0)
}

// HuberLoss is quadratic for |t| < c and linear beyond.
func HuberLoss(t, c float64) float64 {
	a := math.Abs(t)
	if a < c {
		return 0.5 * t * t
	}
	return -c * (0.5*c - a)
}

// FitLineHuber fits y = offset + slope*x with the Huber loss, which keeps
// stray points from pulling the line. It returns (offset, slope).
func FitLineHuber(x, y []float64, c float64, start []float64) ([]float64, SimplexResult, error) {
	if len(x) != len(y) || len(x) == 0 {
		return nil, SimplexResult{}, ErrLength
	}
	if c <= 0 {
		c = 2
	}
	if start == nil {
		start = []float64{0, 0}
	}
	loss := func(theta []float64) float64 {
		var sum float64
		for i, xi := range x {
			sum += HuberLoss(y[i]-theta[0]-theta[1]*xi, c)
		}
		return sum
	}
	theta, res := Minimize(loss, start, nil)
	return theta, res, nil
}
