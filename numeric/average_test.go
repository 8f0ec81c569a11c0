// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageOverlap(t *testing.T) {
	xs := [][]float64{
		{0, 1, 2, 3, 4},
		{4, 3.5, 2.5, 1.5, 0.5}, // descending, shifted
	}
	ys := [][]float64{
		{0, 1, 2, 3, 4},
		{8, 7, 5, 3, 1},
	}

	x, y, err := Average(xs, ys)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, x)
	assert.InDelta(t, (1+2)/2.0, y[0], 1e-12)
	assert.InDelta(t, (2+4)/2.0, y[1], 1e-12)
	assert.InDelta(t, (3+6)/2.0, y[2], 1e-12)
	assert.InDelta(t, (4+8)/2.0, y[3], 1e-12)
}

func TestAverageSingle(t *testing.T) {
	x, y, err := Average([][]float64{{0, 1}}, [][]float64{{5, 6}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, x)
	assert.Equal(t, []float64{5, 6}, y)
}

func TestAverageErrors(t *testing.T) {
	_, _, err := Average(nil, nil)
	assert.ErrorIs(t, err, ErrLength)

	_, _, err = Average([][]float64{{0, 1}, {2, 3}}, [][]float64{{0, 1}, {0, 1}})
	assert.ErrorIs(t, err, ErrNoOverlap)
}
