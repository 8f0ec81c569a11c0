// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestExtractSPCSingleSpot(t *testing.T) {
	p := spotParams()
	img := spotImage(100, 50, 50, 25, 0.8, 1000)
	res, err := ExtractSPC(preprocessed(t, img, &p), &p, zerolog.Nop())
	require.NoError(t, err)

	require.Len(t, res.Spots, 1)
	s := res.Spots[0]
	assert.Equal(t, 50, s.Row)
	assert.Equal(t, 25, s.Col)
	assert.InDelta(t, 50, s.RowC, 1e-9)
	assert.InDelta(t, 25, s.ColC, 1e-9)
	assert.False(t, res.Degenerate)

	require.Len(t, res.Singles, 200)
	assert.Equal(t, 1.0, floats.Sum(res.Singles))
	assert.Equal(t, 0.0, floats.Sum(res.Doubles))
	assert.Equal(t, 1.0, floats.Sum(res.Total))
	// row 50 falls in bin 99 of [0.25, 100.25), reversed
	assert.Equal(t, 1.0, res.Singles[100])
}

func TestExtractSPCShearCorrection(t *testing.T) {
	p := spotParams()
	p.Slope = 0.1
	img := spotImage(100, 50, 50, 25, 0.8, 1000)
	res, err := ExtractSPC(preprocessed(t, img, &p), &p, zerolog.Nop())
	require.NoError(t, err)
	// corrected row 47.5 falls in bin 94
	assert.Equal(t, 1.0, res.Singles[105])
}

func TestExtractSPCClassification(t *testing.T) {
	p := spotParams()
	p.SPC.HighThreshold = 10

	img := spotImage(100, 50, 30, 10, 0.8, 4000)
	addSpot(img, 70, 40, 0.8, 1000)
	// bright seed, but too little charge around it to count
	addSpot(img, 50, 25, 0.3, 200)

	res, err := ExtractSPC(preprocessed(t, img, &p), &p, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, res.Spots, 3)
	assert.Equal(t, 1.0, floats.Sum(res.Singles))
	assert.Equal(t, 1.0, floats.Sum(res.Doubles))
	assert.Equal(t, 3.0, floats.Sum(res.Total))
}

func TestExtractSPCPlaceholder(t *testing.T) {
	p := spotParams()
	res, err := ExtractSPC(preprocessed(t, mat.NewDense(20, 10, nil), &p), &p, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, res.Degenerate)
	require.Len(t, res.Spots, 1)
	assert.Equal(t, 0.0, res.Spots[0].Intensity)
	assert.Equal(t, 0.0, floats.Sum(res.Total))
	assert.Len(t, res.Total, 40)
}

func TestExtractSPCGridSize(t *testing.T) {
	p := spotParams()
	pre := preprocessed(t, constImage(10, 10, 0), &p)
	for _, g := range []int{0, 2, -3} {
		p.SPC.GridSize = g
		_, err := ExtractSPC(pre, &p, zerolog.Nop())
		var cfg *ConfigurationError
		assert.ErrorAs(t, err, &cfg, "grid %d", g)
	}
}

func TestFindSpotsLocalMaxima(t *testing.T) {
	img := mat.NewDense(8, 8, nil)
	// plateau: both pixels are kept
	img.Set(2, 2, 5)
	img.Set(2, 3, 5)
	// a dimmer pixel next to a brighter one is dropped
	img.Set(5, 5, 9)
	img.Set(5, 6, 4)
	// border pixels are never seeds
	img.Set(0, 4, 7)
	img.Set(7, 7, 7)

	spots := FindSpots(img, 3, 1, 100)
	require.Len(t, spots, 3)
	assert.Equal(t, [2]int{2, 2}, [2]int{spots[0].Row, spots[0].Col})
	assert.Equal(t, [2]int{2, 3}, [2]int{spots[1].Row, spots[1].Col})
	assert.Equal(t, [2]int{5, 5}, [2]int{spots[2].Row, spots[2].Col})

	// thresholds are strict
	assert.Len(t, FindSpots(img, 3, 5, 100), 1)
	assert.Len(t, FindSpots(img, 3, 1, 9), 2)
}

func TestCentroidScaleInvariant(t *testing.T) {
	img := spotImage(20, 20, 9.7, 10.2, 0.9, 500)
	var scaled mat.Dense
	scaled.Scale(1.7, img)

	a := FindSpots(img, 3, 0, math.Inf(1))
	b := FindSpots(&scaled, 3, 0, math.Inf(1))
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.InDelta(t, a[0].RowC, b[0].RowC, 1e-12)
	assert.InDelta(t, a[0].ColC, b[0].ColC, 1e-12)
	assert.InDelta(t, 1.7*a[0].Intensity, b[0].Intensity, 1e-9)

	// the centroid moves toward the true center
	assert.Less(t, a[0].RowC, 10.0)
	assert.Greater(t, a[0].ColC, 10.0)
}

func TestSPCHistTopEdgeOverflows(t *testing.T) {
	h := newSPCHist(4, 2, 2)
	assert.Equal(t, 0.25, h.XMin())
	assert.Equal(t, 2.25, h.XMax())

	h.Fill(0.25, 1)
	h.Fill(2.2499, 1)
	h.Fill(2.25, 1)
	assert.Equal(t, []float64{1, 0, 0, 1}, binContents(h))
	assert.Equal(t, 1.0, h.Binning.Outflows[1].SumW())
}
