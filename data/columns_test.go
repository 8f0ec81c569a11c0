// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnergyAxis(t *testing.T) {
	e := EnergyAxis([]float64{100, 110, 90}, 100, 25)
	assert.InDeltaSlice(t, []float64{0, 0.25, -0.25}, e, 1e-15)
}

func TestColumnsOrderAndLength(t *testing.T) {
	var c Columns
	require.NoError(t, c.Set(ColPixel, []float64{0, 1, 2}))
	require.NoError(t, c.SetConst(ColAcqTime, 2))
	require.NoError(t, c.Set(ColPhotons, []float64{4, 5, 6}))
	assert.Equal(t, []string{ColPixel, ColAcqTime, ColPhotons}, c.Keys)
	assert.Equal(t, 3, c.Len())

	acq, ok := c.Get(ColAcqTime)
	require.True(t, ok)
	assert.Equal(t, []float64{2, 2, 2}, acq)

	assert.Error(t, c.Set(ColSPC, []float64{1}))

	// replacing keeps the position
	require.NoError(t, c.Set(ColAcqTime, []float64{3, 3, 3}))
	assert.Equal(t, []string{ColPixel, ColAcqTime, ColPhotons}, c.Keys)

	_, ok = c.Get(ColSPC)
	assert.False(t, ok)
}

func TestColumnsCalibrate(t *testing.T) {
	var c Columns
	assert.Error(t, c.Calibrate(0, 1))

	require.NoError(t, c.Set(ColPixel, []float64{10, 20}))
	require.NoError(t, c.Calibrate(10, 30))
	loss, ok := c.Get(ColEnergyLoss)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0, 0.3}, loss, 1e-15)
}
