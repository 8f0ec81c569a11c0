// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rditech/rixs-toolbox/numeric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteColumnsDat(t *testing.T) {
	cols := &Columns{}
	require.NoError(t, cols.Set(ColPixel, []float64{0, 1, 2}))
	require.NoError(t, cols.Set(ColPhotons, []float64{1.5, 2, 0.25}))

	var buf bytes.Buffer
	require.NoError(t, WriteColumnsDat(&buf, cols))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"#N 2",
		"#L Pixel  Photons",
		"0 1.5",
		"1 2",
		"2 0.25",
	}, lines)

	assert.ErrorIs(t, WriteColumnsDat(&buf, &Columns{}), ErrNoSpectra)
}

func TestWriteWaterfallDat(t *testing.T) {
	spectra := []numeric.Curve{
		{Q: 2, X: []float64{0, 2}, Y: []float64{10, 30}},
		{Q: 1, X: []float64{0, 1, 2}, Y: []float64{1, 2, 3}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWaterfallDat(&buf, spectra))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "# --- 1 2", lines[0])
	assert.Equal(t, "0.000000 1.000000 10.000000", lines[1])
	assert.Equal(t, "1.000000 2.000000 20.000000", lines[2])
	assert.Equal(t, "2.000000 3.000000 30.000000", lines[3])

	// input order is left alone
	assert.Equal(t, 2.0, spectra[0].Q)

	assert.ErrorIs(t, WriteWaterfallDat(&buf, nil), ErrNoSpectra)
	assert.ErrorIs(t, WriteWaterfallDat(&buf, []numeric.Curve{{X: []float64{1}}}), numeric.ErrLength)
}
