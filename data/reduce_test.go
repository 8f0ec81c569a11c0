// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func spotFrame() *Frame {
	return &Frame{
		Images: []*mat.Dense{
			spotImage(100, 50, 50, 25, 0.8, 1000),
			mat.NewDense(100, 50, nil),
		},
		Info: FrameInfo{Source: "scan.fits", Energy: 800, Exposure: []float64{1, 2}},
	}
}

func TestReduceFrame(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	reg := prometheus.NewRegistry()
	r := &Reducer{Params: spotParams(), Background: zeroBackground(), Log: &log, Metrics: NewMetrics(reg)}

	results, err := r.Reduce(context.Background(), spotFrame())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 0, results[0].Frame)
	assert.Equal(t, 1, results[1].Frame)
	assert.Equal(t, 2.0, results[1].Exposure)
	assert.Equal(t, []string{ColPixel, ColAcqTime, ColElectrons, ColPhotons, ColSPCSingle, ColSPCDouble, ColSPC}, results[0].Columns.Keys)
	assert.False(t, results[0].SPC.Degenerate)
	assert.True(t, results[1].SPC.Degenerate)
	assert.Nil(t, results[0].Slope)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Metrics.imagesReduced.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.spotsFound))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.degenerateImages))

	assert.Contains(t, buf.String(), "image reduced")
	assert.Contains(t, buf.String(), "no photon spots found")
}

func TestReduceStopsOnCancel(t *testing.T) {
	r := &Reducer{Params: spotParams(), Background: zeroBackground()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := r.Reduce(ctx, spotFrame())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestReduceRejectsBadInput(t *testing.T) {
	r := &Reducer{Params: spotParams()}
	_, err := r.Reduce(context.Background(), &Frame{})
	assert.ErrorIs(t, err, ErrEmptyFrame)

	var buf bytes.Buffer
	log := zerolog.New(&buf)
	r.Log = &log
	r.Params.PointsPerPixel = -1
	_, err = r.Reduce(context.Background(), spotFrame())
	var cfg *ConfigurationError
	assert.ErrorAs(t, err, &cfg)
	assert.Contains(t, buf.String(), "invalid parameters")
}

func TestReduceSliceOptionalSteps(t *testing.T) {
	p := spotParams()
	p.SPC.Enabled = false
	p.Dispersion = 25
	p.EnergyZero = 40
	r := &Reducer{Params: p, Background: zeroBackground()}

	res, err := r.ReduceSlice(spotSlice(spotImage(100, 50, 50, 25, 0.8, 1000)))
	require.NoError(t, err)
	assert.Nil(t, res.SPC)
	_, ok := res.Columns.Get(ColSPC)
	assert.False(t, ok)

	loss, ok := res.Columns.Get(ColEnergyLoss)
	require.True(t, ok)
	assert.InDelta(t, -1.0, loss[0], 1e-12)
}

func TestReduceSliceFitsSlope(t *testing.T) {
	p := spotParams()
	p.FitSlope = true
	img := mat.NewDense(80, 60, nil)
	for c := 5; c <= 50; c += 5 {
		addSpot(img, 40-0.1*float64(c)*2, float64(c), 0.8, 1000)
	}

	res, err := (&Reducer{Params: p, Background: zeroBackground()}).ReduceSlice(spotSlice(img))
	require.NoError(t, err)
	require.NotNil(t, res.Slope)
	assert.InDelta(t, -0.2, res.Slope.Slope, 1e-2)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.observe(time.Now(), nil, ErrEmptyFrame) })
}
