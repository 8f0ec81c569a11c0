// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"bytes"
	"testing"

	"github.com/proio-org/go-proio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reducedResult(t *testing.T) *Result {
	t.Helper()
	p := spotParams()
	p.FitSlope = true
	p.Dispersion = 30
	img := spotImage(100, 50, 40, 10, 0.8, 1000)
	addSpot(img, 60, 35, 0.8, 1000)

	s := spotSlice(img)
	s.Info.Beamline = "SIX"
	s.Info.Motors = []Motor{{"th", 12.5}, {"tth", 90}, {"chi", -1}}
	r := &Reducer{Params: p, Background: zeroBackground()}
	res, err := r.ReduceSlice(s)
	require.NoError(t, err)
	return res
}

func TestEventRoundTrip(t *testing.T) {
	res := reducedResult(t)
	require.NotNil(t, res.Slope)

	buf := &bytes.Buffer{}
	writer := proio.NewWriter(buf)
	require.NoError(t, writer.Push(ResultToEvent(res)))
	require.NoError(t, writer.Close())

	reader := proio.NewReader(buf)
	event := reader.Next()
	require.NoError(t, reader.Err)
	require.NotNil(t, event)

	got, err := EventToResult(event)
	require.NoError(t, err)

	assert.Equal(t, res.Source, got.Source)
	assert.Equal(t, res.Frame, got.Frame)
	assert.Equal(t, res.Exposure, got.Exposure)
	assert.Equal(t, res.Masked, got.Masked)
	assert.Equal(t, res.Columns.Keys, got.Columns.Keys)
	for _, key := range res.Columns.Keys {
		assert.Equal(t, res.Columns.Data[key], got.Columns.Data[key], key)
	}

	require.NotNil(t, got.Info)
	assert.Equal(t, res.Info.Motors, got.Info.Motors)
	assert.Equal(t, "SIX", got.Info.Beamline)
	assert.Equal(t, 800.0, got.Info.PhotonEnergy())

	require.NotNil(t, got.SPC)
	require.Len(t, got.SPC.Spots, 2)
	assert.Equal(t, res.SPC.Spots[1].RowC, got.SPC.Spots[1].RowC)
	assert.Nil(t, got.SPC.Spots[1].Patch)
	assert.Equal(t, res.SPC.Total, got.SPC.Total)

	require.NotNil(t, got.Slope)
	assert.Equal(t, res.Slope.Slope, got.Slope.Slope)
	assert.Equal(t, 2, got.Slope.Spots)
}

func TestEventToResultWithoutSpectrum(t *testing.T) {
	_, err := EventToResult(proio.NewEvent())
	assert.ErrorIs(t, err, ErrNoSpectrum)
}

func TestResultToEventMinimal(t *testing.T) {
	event := ResultToEvent(&Result{Source: "x"})
	assert.Len(t, event.TaggedEntries(TagSpectrum), 1)
	assert.Empty(t, event.TaggedEntries(TagSpots))
	assert.Empty(t, event.TaggedEntries(TagSlope))

	got, err := EventToResult(event)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Source)
	assert.Nil(t, got.Info)
	assert.Equal(t, 0, got.Columns.Len())
}

func TestEventSlices(t *testing.T) {
	events := make(chan *proio.Event, 2)
	ev := ResultToEvent(&Result{Source: "scan.fits", Frame: 2, Exposure: 5})
	ev.Metadata = map[string][]byte{MetaRunID: []byte("abc")}
	events <- ev
	events <- proio.NewEvent()
	close(events)

	var out []*Slice
	for s := range EventSlices(events, 1) {
		out = append(out, s)
	}
	require.Len(t, out, 2)
	assert.Equal(t, "scan.fits", out[0].Source)
	assert.Equal(t, 2, out[0].Index)
	assert.Equal(t, 5.0, out[0].Exposure)
	assert.Equal(t, []byte("abc"), out[0].Metadata[MetaRunID])
	assert.NoError(t, out[0].Err)
	assert.ErrorIs(t, out[1].Err, ErrNoSpectrum)
}
