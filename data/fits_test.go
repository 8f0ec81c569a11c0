// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cards(m map[string]interface{}) cardGetter {
	return func(name string) (interface{}, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestFrameFromPixels(t *testing.T) {
	values := make([]float64, 24)
	for i := range values {
		values[i] = float64(i)
	}

	// NAXIS1 = 3 columns, NAXIS2 = 4 rows, NAXIS3 = 2 images
	f, err := frameFromPixels([]int{3, 4, 2}, values)
	require.NoError(t, err)
	require.Len(t, f.Images, 2)
	r, c := f.Images[0].Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 5.0, f.Images[0].At(1, 2))
	assert.Equal(t, 12.0, f.Images[1].At(0, 0))

	f, err = frameFromPixels([]int{3, 4}, values[:12])
	require.NoError(t, err)
	assert.Len(t, f.Images, 1)

	_, err = frameFromPixels([]int{3, 4}, values)
	assert.Error(t, err)
	_, err = frameFromPixels([]int{0, 4}, nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestInfoFromCards(t *testing.T) {
	info := infoFromCards(cards(map[string]interface{}{
		CardEnergy:   float64(931.5),
		CardExposure: "30.0 ",
		CardBeamline: "SIX ",
		CardDate:     "2019-03-02T10:00:00",
		CardMotors:   "th tth  x",
		CardMotorPos: "10.5 90 bad",
		CardRingCurr: 399.8,
		CardMirror:   int64(12),
	}), "scan_0001.fits", 2)

	assert.Equal(t, "scan_0001.fits", info.Source)
	assert.Equal(t, 931.5, info.Energy)
	assert.Equal(t, []float64{30, 30}, info.Exposure)
	assert.Equal(t, "SIX", info.Beamline)
	assert.Equal(t, []Motor{{"th", 10.5}, {"tth", 90}}, info.Motors)

	sr, ok := info.Counter(CounterRingCurrent)
	require.True(t, ok)
	assert.Equal(t, 399.8, sr)
	mir, _ := info.Counter(CounterMirrorCurrent)
	assert.Equal(t, 12.0, mir)
}

func TestInfoFromCardsFallbacks(t *testing.T) {
	info := infoFromCards(cards(map[string]interface{}{CardPreset: 5}), "a.fits", 1)
	assert.Equal(t, []float64{5}, info.Exposure)
	assert.Equal(t, DefaultEnergy, info.PhotonEnergy())
	assert.Nil(t, info.Counters)
	assert.Empty(t, info.Motors)
}
