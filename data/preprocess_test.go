// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCropClamps(t *testing.T) {
	img := mat.NewDense(4, 5, nil)
	img.Apply(func(i, j int, _ float64) float64 { return float64(10*i + j) }, img)

	tests := []struct {
		name       string
		roi        *ROI
		rows, cols int
		first      float64
	}{
		{"nil", nil, 4, 5, 0},
		{"inside", &ROI{1, 3, 2, 4}, 2, 2, 12},
		{"beyond bounds", &ROI{-3, 10, 3, 99}, 4, 2, 3},
		{"empty after clamp", &ROI{6, 9, 0, 5}, 4, 5, 0},
		{"inverted", &ROI{3, 1, 0, 5}, 4, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Crop(img, tt.roi)
			r, c := out.Dims()
			assert.Equal(t, tt.rows, r)
			assert.Equal(t, tt.cols, c)
			assert.Equal(t, tt.first, out.At(0, 0))

			out.Set(0, 0, -1)
			assert.NotEqual(t, -1.0, img.At(0, 0), "crop must copy")
		})
	}
}

func TestZeroBelow(t *testing.T) {
	img := mat.NewDense(1, 4, []float64{-2, 0.5, 1, 3})
	out := ZeroBelow(img, 1)
	assert.Equal(t, []float64{0, 0, 1, 3}, out.RawRowView(0))
	assert.Equal(t, -2.0, img.At(0, 0))
}

// bruteDilate ORs every pixel whose offset lies in [-size/2, size-1-size/2]
// along both axes.
func bruteDilate(m *Mask, size int) *Mask {
	rows, cols := m.Dims()
	out := NewMask(rows, cols)
	lo, hi := -(size / 2), size-1-size/2
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			for di := lo; di <= hi; di++ {
				for dj := lo; dj <= hi; dj++ {
					r, c := i+di, j+dj
					if r >= 0 && r < rows && c >= 0 && c < cols && m.At(r, c) {
						out.Set(i, j, true)
					}
				}
			}
		}
	}
	return out
}

func TestDilateMatchesBoxFootprint(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := NewMask(17, 13)
	for i := 0; i < 12; i++ {
		m.Set(rng.Intn(17), rng.Intn(13), true)
	}
	m.Set(0, 0, true)
	m.Set(16, 12, true)

	for size := 1; size <= 6; size++ {
		got := Dilate(m, size)
		want := bruteDilate(m, size)
		assert.Equal(t, want.set, got.set, "size %d", size)
	}
}

func TestDilateSingle(t *testing.T) {
	m := NewMask(7, 7)
	m.Set(3, 3, true)

	assert.Equal(t, 1, Dilate(m, 0).Count())
	assert.Equal(t, 1, Dilate(m, 1).Count())
	assert.Equal(t, 9, Dilate(m, 3).Count())
	assert.Equal(t, 25, Dilate(m, 5).Count())

	// even sizes reach one pixel further toward higher indices
	d := Dilate(m, 2)
	assert.Equal(t, 4, d.Count())
	assert.True(t, d.At(4, 4))
	assert.False(t, d.At(2, 2))

	assert.Equal(t, 1, m.Count(), "input must not change")
}

func TestApplyMask(t *testing.T) {
	img := constImage(2, 2, 5)
	m := NewMask(2, 2)
	m.Set(1, 0, true)
	out := ApplyMask(img, m)
	assert.Equal(t, []float64{5, 5, 0, 5}, out.RawMatrix().Data)
}

func pedestalImage() *mat.Dense {
	img := mat.NewDense(60, 4, nil)
	img.Apply(func(i, _ int, _ float64) float64 {
		if i < BaselineRows {
			return 10
		}
		return 100
	}, img)
	return img
}

func TestEstimateBaseline(t *testing.T) {
	assert.InDelta(t, 11, EstimateBaseline(pedestalImage(), 0.5, 2), 1e-12)

	// fewer rows than the estimate window use all of them
	small := mat.NewDense(2, 2, []float64{1, 3, 5, 7})
	assert.InDelta(t, 4, EstimateBaseline(small, 0, 1), 1e-12)
}

func TestSubtractBackgroundNone(t *testing.T) {
	ccd := CCDParams{DarkCounts: 0.5, ElectronsPerCount: 1, EhPairEnergy: 1}
	out, term, err := SubtractBackground(pedestalImage(), nil, ccd, 2, zerolog.Nop())
	require.NoError(t, err)
	assert.InDelta(t, -1, out.At(0, 0), 1e-12)
	assert.InDelta(t, 89, out.At(55, 2), 1e-12)
	assert.InDelta(t, 11, term.At(59, 3), 1e-12)
}

func TestSubtractBackgroundBaseline(t *testing.T) {
	bg := &Background{Kind: BackgroundBaseline, Baseline: 4}
	out, _, err := SubtractBackground(pedestalImage(), bg, CCDParams{DarkCounts: 9}, 1, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 6.0, out.At(0, 0))
	assert.Equal(t, 96.0, out.At(59, 0))
}

func TestSubtractBackgroundDarkRescaled(t *testing.T) {
	img := constImage(3, 3, 10)
	bg := &Background{Kind: BackgroundDark, Dark: constImage(3, 3, 4), AcquisitionTime: 8}
	out, term, err := SubtractBackground(img, bg, CCDParams{}, 2, zerolog.Nop())
	require.NoError(t, err)
	assert.InDelta(t, 1, term.At(1, 1), 1e-12)
	assert.InDelta(t, 9, out.At(2, 2), 1e-12)
}

func TestSubtractBackgroundForceZero(t *testing.T) {
	img := constImage(5, 3, 11)
	bg := &Background{Kind: BackgroundDark, Dark: constImage(5, 3, 4), ForceZero: true}
	out, term, err := SubtractBackground(img, bg, CCDParams{}, 1, zerolog.Nop())
	require.NoError(t, err)
	for _, v := range out.RawMatrix().Data {
		assert.InDelta(t, 0, v, 1e-12)
	}
	assert.InDelta(t, 11, term.At(0, 0), 1e-12)
}

func TestSubtractBackgroundShapeMismatch(t *testing.T) {
	img := pedestalImage()
	bg := &Background{Kind: BackgroundDark, Dark: constImage(3, 3, 1)}

	_, _, err := SubtractBackground(img, bg, CCDParams{}, 1, zerolog.Nop())
	var mismatch *ShapeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, [2]int{60, 4}, mismatch.Image)
	assert.Equal(t, [2]int{3, 3}, mismatch.Background)

	bg.AllowShapeFallback = true
	out, term, err := SubtractBackground(img, bg, CCDParams{}, 1, zerolog.Nop())
	require.NoError(t, err)
	assert.InDelta(t, 10, term.At(0, 0), 1e-12)
	assert.InDelta(t, 90, out.At(59, 0), 1e-12)
}

func TestPreprocessThresholdsAndMask(t *testing.T) {
	p := spotParams()
	p.MaskSize = 3
	// cont = 800 counts per photon
	p.LowerThreshold = 0.01
	p.UpperThreshold = 0.5

	img := mat.NewDense(20, 10, nil)
	img.Set(5, 5, 4)    // below 8 counts
	img.Set(10, 3, 50)  // kept
	img.Set(15, 7, 900) // saturated

	pre, err := Preprocess(spotSlice(img), &p, zeroBackground(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 800.0, pre.ContPhoton)
	assert.Equal(t, 800.0, pre.Energy)
	assert.Equal(t, 9, pre.Masked)
	assert.Equal(t, 0.0, pre.Image.At(5, 5))
	assert.Equal(t, 50.0, pre.Image.At(10, 3))
	assert.Equal(t, 0.0, pre.Image.At(15, 7))
	assert.Equal(t, 900.0, pre.Raw.At(15, 7))
}

func TestPreprocessROI(t *testing.T) {
	p := spotParams()
	p.ROI = &ROI{RowMin: 2, RowMax: 12, ColMin: 0, ColMax: 100}
	pre, err := Preprocess(spotSlice(constImage(20, 6, 1)), &p, zeroBackground(), zerolog.Nop())
	require.NoError(t, err)
	r, c := pre.Image.Dims()
	assert.Equal(t, 10, r)
	assert.Equal(t, 6, c)
}
