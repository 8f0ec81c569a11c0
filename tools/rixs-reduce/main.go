// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rditech/rixs-toolbox/data"
	"github.com/rditech/rixs-toolbox/logger"
	rixsplot "github.com/rditech/rixs-toolbox/plot"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var (
	speed       = data.FlagSet.Float64("s", 0, "play images at this multiple of their acquisition rate, 0 to reduce as fast as possible")
	average     = data.FlagSet.Bool("avg", false, "append the average of all reduced spectra to the output")
	svgDir      = data.FlagSet.String("svg", "", "directory to write an SVG plot of every spectrum into")
	logY        = data.FlagSet.Bool("logy", false, "plot spectra on a log scale")
	metricsAddr = data.FlagSet.String("metrics", "", "address to serve prometheus metrics on, such as :9100")
	streamName  = data.FlagSet.String("stream", "", "stream name shown by a live server")
)

// spectrumPlotter writes one SVG file per reduced slice.
type spectrumPlotter struct {
	Dir  string
	LogY bool
	Log  zerolog.Logger
}

func (p *spectrumPlotter) filename(s *data.Slice) string {
	base := strings.TrimSuffix(path.Base(s.Source), path.Ext(s.Source))
	return filepath.Join(p.Dir, fmt.Sprintf("%s_%03d.svg", base, s.Index))
}

func (p *spectrumPlotter) Plot(s *data.Slice) {
	if s.Err != nil || s.Result == nil || s.Result.Columns == nil {
		return
	}
	cols := s.Result.Columns

	xKey := data.ColPixel
	if _, ok := cols.Get(data.ColEnergyLoss); ok {
		xKey = data.ColEnergyLoss
	}
	var yKeys []string
	for _, key := range []string{data.ColPhotons, data.ColSPC} {
		if _, ok := cols.Get(key); ok {
			yKeys = append(yKeys, key)
		}
	}
	if len(yKeys) == 0 {
		return
	}

	name := p.filename(s)
	f, err := os.Create(name)
	if err != nil {
		p.Log.Error().Err(err).Str("file", name).Msg("plot not written")
		return
	}
	defer f.Close()
	if err := rixsplot.SpectrumSVG(f, s.Result, xKey, yKeys, p.LogY); err != nil {
		p.Log.Error().Err(err).Str("file", name).Msg("plot not written")
	}
}

func main() {
	reducer := &data.Reducer{}
	player := &data.Player{}
	aggregator := &data.Aggregator{}
	plotter := &spectrumPlotter{}

	playOp := data.StreamOp{
		Description:     "Plays images at a multiple of their acquisition rate (-s)",
		StreamProcessor: player.Play,
		MaxSliceBuf:     1,
	}
	reduceOp := reducer.Op()
	averageOp := data.StreamOp{
		Description:     "Appends the average spectrum (-avg)",
		StreamProcessor: aggregator.Average,
	}
	plotOp := data.SliceOp{
		Description:    "Plots every spectrum (-svg)",
		SliceProcessor: plotter.Plot,
	}

	ops := data.OpArray{playOp, reduceOp, averageOp, plotOp}
	ops.RunCmdFlagParse()

	zlog := data.Logger()
	ctx := context.Background()

	var metrics *data.Metrics
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = data.NewMetrics(reg)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				zlog.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	r, err := data.NewReducerFromFlags(ctx, logger.Component(zlog, "reduce"), metrics)
	if err != nil {
		log.Fatal(err)
	}
	*reducer = *r

	params, err := yaml.Marshal(reducer.Params)
	if err != nil {
		log.Fatal(err)
	}
	data.SetRunMetadata(data.MetaParams, params)
	if *streamName != "" {
		data.SetRunMetadata(data.MetaStream, []byte(*streamName))
	}

	ops = data.OpArray{}
	if *speed > 0 {
		player.Speed = *speed
		ops = append(ops, playOp)
	}
	ops = append(ops, reduceOp)
	if *average {
		aggregator.Log = logger.Component(zlog, "average")
		ops = append(ops, averageOp)
	}
	if *svgDir != "" {
		if err := os.MkdirAll(*svgDir, 0o755); err != nil {
			log.Fatal(err)
		}
		plotter.Dir, plotter.LogY = *svgDir, *logY
		plotter.Log = logger.Component(zlog, "plot")
		ops = append(ops, plotOp)
	}

	ops.RunCmd()
}
