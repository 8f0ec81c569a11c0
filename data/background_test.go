// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func darkFrames() []*Frame {
	return []*Frame{
		{
			Images: []*mat.Dense{constImage(4, 3, 1), constImage(4, 3, 2)},
			Info:   FrameInfo{Source: "dark1", Exposure: []float64{1, 1}},
		},
		{
			Images: []*mat.Dense{constImage(4, 3, 3), constImage(4, 3, 4)},
			Info:   FrameInfo{Source: "dark2", Exposure: []float64{2, 2}},
		},
	}
}

func TestAccumulateDark(t *testing.T) {
	tests := []struct {
		method DarkMethod
		value  float64
		acq    float64
	}{
		{DarkAverage, 2.5, 0},
		{DarkSum, 10, 0},
		{DarkSumRescaled, 10, 6},
	}
	for _, tt := range tests {
		bg := &Background{}
		require.NoError(t, AccumulateDark(bg, darkFrames(), tt.method, nil))
		assert.Equal(t, BackgroundDark, bg.Kind)
		assert.InDelta(t, tt.value, bg.Dark.At(3, 2), 1e-12, "method %d", tt.method)
		assert.Equal(t, tt.acq, bg.AcquisitionTime)
	}
}

func TestAccumulateDarkCropsAndChecksShape(t *testing.T) {
	bg := &Background{}
	require.NoError(t, AccumulateDark(bg, darkFrames(), DarkSum, &ROI{RowMin: 1, RowMax: 3, ColMin: 0, ColMax: 2}))
	r, c := bg.Dark.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)

	frames := darkFrames()
	frames[1].Images = []*mat.Dense{constImage(5, 3, 0), constImage(5, 3, 0)}
	assert.ErrorIs(t, AccumulateDark(bg, frames, DarkAverage, nil), ErrFrameShape)

	assert.ErrorIs(t, AccumulateDark(bg, nil, DarkAverage, nil), ErrEmptyFrame)
}

func TestParseDarkMethod(t *testing.T) {
	for s, want := range map[string]DarkMethod{"": DarkAverage, "average": DarkAverage, "sum": DarkSum, "sum-rescaled": DarkSumRescaled} {
		m, err := ParseDarkMethod(s)
		require.NoError(t, err)
		assert.Equal(t, want, m)
	}
	_, err := ParseDarkMethod("median")
	assert.Error(t, err)
}

func TestBackgroundFromParams(t *testing.T) {
	bg := BackgroundFromParams(BackgroundParams{Mode: "baseline", Baseline: 3, Smoothing: true, SmoothingWidth: 2})
	assert.Equal(t, BackgroundBaseline, bg.Kind)
	assert.Equal(t, 3.0, bg.Baseline)
	assert.True(t, bg.Smoothing)

	assert.Equal(t, BackgroundNone, BackgroundFromParams(BackgroundParams{Mode: "none"}).Kind)
	assert.Equal(t, "dark", BackgroundFromParams(BackgroundParams{Mode: "dark"}).Kind.String())
}

func TestFrameValidate(t *testing.T) {
	f := &Frame{Images: []*mat.Dense{constImage(2, 2, 0)}, Info: FrameInfo{Exposure: []float64{1}}}
	assert.NoError(t, f.Validate())

	f.Info.Exposure = nil
	assert.ErrorIs(t, f.Validate(), ErrExposureCount)

	f.Images = append(f.Images, constImage(3, 2, 0))
	assert.ErrorIs(t, f.Validate(), ErrFrameShape)

	assert.ErrorIs(t, (&Frame{}).Validate(), ErrEmptyFrame)
}

func TestFrameInfoDefaults(t *testing.T) {
	var info *FrameInfo
	assert.Equal(t, DefaultEnergy, info.PhotonEnergy())
	_, ok := info.Motor("x")
	assert.False(t, ok)

	info = &FrameInfo{Energy: 530, Motors: []Motor{{"th", 12}}}
	assert.Equal(t, 530.0, info.PhotonEnergy())
	v, ok := info.Motor("th")
	assert.True(t, ok)
	assert.Equal(t, 12.0, v)
}
