// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testCurves() []Curve {
	return []Curve{
		{Q: 3, X: []float64{0, 1, 2}, Y: []float64{30, 31, 32}},
		{Q: 1, X: []float64{0, 1, 2}, Y: []float64{10, 11, 12}},
		{Q: 2, X: []float64{0, 1, 2}, Y: []float64{20, 21, 22}},
	}
}

func TestGridNearestRoundTrip(t *testing.T) {
	curves := testCurves()
	out, err := InterpolateOnGrid(curves, []float64{0, 1, 2}, []float64{3, 1, 2}, Nearest, nil)
	require.NoError(t, err)

	r, c := out.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	for j, cv := range curves {
		assert.Equal(t, cv.Y, mat.Col(nil, j, out))
	}
}

func TestGridNearestTie(t *testing.T) {
	// q = 1.5 is equally far from 1 and 2; the first listed curve wins
	curves := testCurves()
	out, err := InterpolateOnGrid(curves, []float64{0}, []float64{1.5, 2.5}, Nearest, nil)
	require.NoError(t, err)
	assert.Equal(t, 10.0, out.At(0, 0))
	assert.Equal(t, 30.0, out.At(0, 1))
}

func TestGridLinear(t *testing.T) {
	out, err := InterpolateOnGrid(testCurves(), []float64{0.5, 2}, []float64{1.5, 2.5, 5}, Linear, nil)
	require.NoError(t, err)

	assert.InDelta(t, 15.5, out.At(0, 0), 1e-12)
	assert.InDelta(t, 25.5, out.At(0, 1), 1e-12)
	assert.InDelta(t, 30.5, out.At(0, 2), 1e-12, "q beyond the range holds the edge")
	assert.InDelta(t, 17, out.At(1, 0), 1e-12)
}

func TestGridFill(t *testing.T) {
	fill := -1.0
	out, err := InterpolateOnGrid(testCurves(), []float64{-1, 1, 3}, []float64{1, 4}, Linear, &fill)
	require.NoError(t, err)
	assert.Equal(t, -1.0, out.At(0, 0))
	assert.Equal(t, 11.0, out.At(1, 0))
	assert.Equal(t, -1.0, out.At(2, 0))
	assert.Equal(t, -1.0, out.At(1, 1))
}

func TestGridErrors(t *testing.T) {
	_, err := InterpolateOnGrid(nil, []float64{0}, []float64{0}, Nearest, nil)
	assert.ErrorIs(t, err, ErrLength)

	bad := []Curve{{Q: 0, X: []float64{0, 1}, Y: []float64{0}}}
	_, err = InterpolateOnGrid(bad, []float64{0}, []float64{0}, Nearest, nil)
	assert.ErrorIs(t, err, ErrLength)

	_, err = InterpolateOnGrid(testCurves(), []float64{0}, []float64{0}, GridMethod(7), nil)
	assert.Error(t, err)
}

func TestParseGridMethod(t *testing.T) {
	m, err := ParseGridMethod("linear")
	require.NoError(t, err)
	assert.Equal(t, Linear, m)
	assert.Equal(t, "linear", m.String())

	m, err = ParseGridMethod("")
	require.NoError(t, err)
	assert.Equal(t, Nearest, m)

	_, err = ParseGridMethod("cubic")
	assert.Error(t, err)
}
