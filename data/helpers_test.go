// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// spotImage returns a rows x cols image holding a 5x5 Gaussian spot of
// the given total intensity whose seed pixel is the one nearest (r0, c0).
func spotImage(rows, cols int, r0, c0, sigma, total float64) *mat.Dense {
	img := mat.NewDense(rows, cols, nil)
	addSpot(img, r0, c0, sigma, total)
	return img
}

func addSpot(img *mat.Dense, r0, c0, sigma, total float64) {
	rc, cc := int(math.Round(r0)), int(math.Round(c0))
	var sum float64
	w := make([][]float64, 5)
	for i := range w {
		w[i] = make([]float64, 5)
		for j := range w[i] {
			dr := float64(rc-2+i) - r0
			dc := float64(cc-2+j) - c0
			w[i][j] = math.Exp(-(dr*dr + dc*dc) / (2 * sigma * sigma))
			sum += w[i][j]
		}
	}
	for i := range w {
		for j := range w[i] {
			r, c := rc-2+i, cc-2+j
			img.Set(r, c, img.At(r, c)+total*w[i][j]/sum)
		}
	}
}

// spotParams makes SPC thresholds refer directly to pixel values at
// 800 eV.
func spotParams() Params {
	p := DefaultParams()
	p.Slope = 0
	p.PointsPerPixel = 2
	p.CCD = CCDParams{DarkCounts: 0, ElectronsPerCount: 1, EhPairEnergy: 1}
	return p
}

func spotSlice(img *mat.Dense) *Slice {
	return &Slice{
		Source:   "synthetic",
		Image:    img,
		Exposure: 1,
		Info:     &FrameInfo{Source: "synthetic", Energy: 800, Exposure: []float64{1}},
	}
}

func zeroBackground() *Background {
	return &Background{Kind: BackgroundBaseline}
}

func constImage(rows, cols int, v float64) *mat.Dense {
	img := mat.NewDense(rows, cols, nil)
	fill(img, v)
	return img
}
