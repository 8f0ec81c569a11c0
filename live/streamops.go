// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"github.com/rditech/rixs-toolbox/data"
	"github.com/rditech/rixs-toolbox/live/shows"

	"github.com/go-redis/redis"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Source names generated from every reduced slice, besides the spectrum
// columns themselves.
const (
	SourceTotalPhotons   = "Total Photons"
	SourceTotalSPC       = "Total SPC"
	SourceSlope          = "Slope"
	SourceMaskedPixels   = "Masked Pixels"
	SourceSpotCentroids  = "Spot Centroids"
	SourceMapPrefix      = "Map "
	SourceScanTotalInfix = " vs "
)

var spectrumSources = []struct {
	key  string
	kind SourceType
}{
	{data.ColPhotons, Normal},
	{data.ColSPC, Normal},
	{data.ColElectrons, Advanced},
	{data.ColSPCSingle, Advanced},
	{data.ColSPCDouble, Advanced},
	{data.ColRawSignal, Advanced},
	{data.ColRawBackground, Advanced},
}

// NewStreamManager returns a manager generating the RIXS sources.
func NewStreamManager(namespace, stream string, client *redis.Client, addr string, log zerolog.Logger) *StreamManager {
	return &StreamManager{
		Namespace:       namespace,
		Name:            stream,
		Redis:           client,
		Addr:            addr,
		Log:             log,
		GenerateSources: RixsGenerateSources,
	}
}

// BuildOpArray shows a stream of reduced slices.
func BuildOpArray(namespace, stream string, client *redis.Client, addr string, log zerolog.Logger) data.OpArray {
	m := NewStreamManager(namespace, stream, client, addr, log)
	return data.OpArray{
		data.StreamOp{
			Description:     "Publishes live shows of reduced spectra",
			StreamProcessor: m.Manage,
			MaxSliceBuf:     1000,
		},
	}
}

// BuildReduceOpArray reduces raw images before showing them.
func BuildReduceOpArray(namespace, stream string, client *redis.Client, addr string, log zerolog.Logger, r *data.Reducer) data.OpArray {
	return append(data.OpArray{r.Op()}, BuildOpArray(namespace, stream, client, addr, log)...)
}

// BuildPlayer paces slices at speed times their acquisition rate and
// shows them. Raw images are reduced by r first; a nil r plays a reduced
// stream.
func BuildPlayer(namespace, stream string, client *redis.Client, addr string, log zerolog.Logger, r *data.Reducer, speed float64) data.OpArray {
	player := &data.Player{Speed: speed}
	ops := BuildOpArray(namespace, stream, client, addr, log)
	if r != nil {
		ops = append(data.OpArray{r.Op()}, ops...)
	}
	return append(
		data.OpArray{
			data.StreamOp{
				Description:     "Plays images back at their acquisition rate",
				StreamProcessor: player.Play,
				MaxSliceBuf:     1,
			},
		},
		ops...,
	)
}

// spectrumAxis returns the energy loss axis when the slice is calibrated,
// else the pixel axis.
func spectrumAxis(cols *data.Columns) []float64 {
	if x, ok := cols.Get(data.ColEnergyLoss); ok {
		return x
	}
	x, _ := cols.Get(data.ColPixel)
	return x
}

func RixsGenerateSources(m *StreamManager, slice *data.Slice) {
	res := slice.Result
	if res == nil || res.Columns == nil {
		return
	}
	t := m.Elapsed()

	x := spectrumAxis(res.Columns)
	for _, src := range spectrumSources {
		y, ok := res.Columns.Get(src.key)
		if !ok || len(y) != len(x) {
			continue
		}
		m.HandleSource(m.GetSourceInfo(src.key), src.kind, &shows.SpectrumSample{
			X:        x,
			Y:        y,
			LineName: src.key,
		})
	}

	photons, hasPhotons := res.Columns.Get(data.ColPhotons)
	var total float64
	if hasPhotons {
		total = floats.Sum(photons)
		m.HandleSource(m.GetSourceInfo(SourceTotalPhotons), Normal, &shows.TrendSample{
			T: t, Y: total, LineName: SourceTotalPhotons,
		})
	}
	m.HandleSource(m.GetSourceInfo(SourceMaskedPixels), Advanced, &shows.TrendSample{
		T: t, Y: float64(res.Masked), LineName: SourceMaskedPixels,
	})

	if res.SPC != nil {
		m.HandleSource(m.GetSourceInfo(SourceTotalSPC), Normal, &shows.TrendSample{
			T: t, Y: floats.Sum(res.SPC.Total), LineName: SourceTotalSPC,
		})
		if !res.SPC.Degenerate {
			spots := &shows.SpotSample{
				Rows: make([]float64, len(res.SPC.Spots)),
				Cols: make([]float64, len(res.SPC.Spots)),
			}
			for i, s := range res.SPC.Spots {
				spots.Rows[i], spots.Cols[i] = s.RowC, s.ColC
			}
			m.HandleSource(m.GetSourceInfo(SourceSpotCentroids), Normal, spots)
		}
	}

	if res.Slope != nil {
		m.HandleSource(m.GetSourceInfo(SourceSlope), Advanced, &shows.TrendSample{
			T: t, Y: res.Slope.Slope, LineName: SourceSlope,
		})
	}

	if res.Info == nil || !hasPhotons || len(photons) != len(x) {
		return
	}
	for _, motor := range res.Info.Motors {
		m.HandleSource(m.GetSourceInfo(SourceMapPrefix+motor.Name), Normal, &shows.MapSample{
			Q: motor.Value,
			X: x,
			Y: photons,
		})
		m.HandleSource(m.GetSourceInfo(SourceTotalPhotons+SourceScanTotalInfix+motor.Name), Advanced, &shows.ScanSample{
			X: motor.Value,
			Y: total,
		})
	}
}
