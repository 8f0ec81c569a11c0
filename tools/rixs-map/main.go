// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/rditech/rixs-toolbox/data"
	"github.com/rditech/rixs-toolbox/logger"
	"github.com/rditech/rixs-toolbox/numeric"
	rixsplot "github.com/rditech/rixs-toolbox/plot"

	"github.com/rs/zerolog"
)

var (
	outFile    = flag.String("o", "map.png", "output file, a PNG image or a .dat table of the spectra")
	motor      = flag.String("motor", "", "scan motor giving the map q axis (default the first motor of each spectrum)")
	xKey       = flag.String("x", "", "spectrum x column (default energy loss when calibrated, else pixel)")
	yKey       = flag.String("y", data.ColPhotons, "spectrum y column")
	oversample = flag.Int("oversample", data.DefaultOversampleQ, "map points along q per spectrum")
	method     = flag.String("method", "nearest", "interpolation along q: nearest or linear")
	credsFile  = flag.String("creds", "", "JSON credentials file for gs:// URLs")
	logLevel   = flag.String("log-level", "info", "log level")
)

func printUsage() {
	fmt.Fprintf(os.Stderr,
		`Usage: `+os.Args[0]+` [options] <proio-run-or-url>...

Builds an intensity map from reduced spectra taken along a motor scan.

options:
`,
	)
	flag.PrintDefaults()
}

// curves reads every reduced spectrum of a run and places it at the value
// of its scan motor.
func curves(ctx context.Context, run, creds string, log zerolog.Logger) ([]numeric.Curve, string, error) {
	reader, err := data.GetReader(ctx, run, creds)
	if err != nil {
		return nil, "", err
	}
	defer reader.Close()

	var (
		out    []numeric.Curve
		qLabel = *motor
	)
	for event := range reader.ScanEvents(10) {
		res, err := data.EventToResult(event)
		if err != nil {
			log.Warn().Err(err).Str("run", run).Msg("event skipped")
			continue
		}
		if res.Info == nil || len(res.Info.Motors) == 0 {
			continue
		}

		name := qLabel
		if name == "" {
			name = res.Info.Motors[0].Name
			qLabel = name
		}
		q, ok := res.Info.Motor(name)
		if !ok {
			log.Warn().Str("source", res.Source).Str("motor", name).Msg("motor missing")
			continue
		}

		x := *xKey
		if x == "" {
			x = data.ColPixel
			if _, ok := res.Columns.Get(data.ColEnergyLoss); ok {
				x = data.ColEnergyLoss
			}
		}
		c, err := data.CurveFromColumns(res.Columns, x, *yKey, q)
		if err != nil {
			return nil, "", err
		}
		out = append(out, c)
	}
	if err := reader.Err; err != nil && err != io.EOF {
		return nil, "", err
	}
	return out, qLabel, nil
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() < 1 {
		printUsage()
		log.Fatal("Invalid arguments")
	}

	zlog := logger.FromFlags(*logLevel, false)
	ctx := context.Background()

	var creds string
	if *credsFile != "" {
		b, err := os.ReadFile(*credsFile)
		if err != nil {
			log.Fatal(err)
		}
		creds = string(b)
	}

	gridMethod, err := numeric.ParseGridMethod(*method)
	if err != nil {
		log.Fatal(err)
	}

	var (
		spectra []numeric.Curve
		qLabel  string
	)
	for _, run := range flag.Args() {
		c, label, err := curves(ctx, run, creds, zlog)
		if err != nil {
			log.Fatal(err)
		}
		spectra = append(spectra, c...)
		if qLabel == "" {
			qLabel = label
		}
	}
	zlog.Info().Int("spectra", len(spectra)).Str("motor", qLabel).Msg("building map")

	f, err := os.Create(*outFile)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	if strings.HasSuffix(*outFile, ".dat") {
		if err := data.WriteWaterfallDat(f, spectra); err != nil {
			log.Fatal(err)
		}
		zlog.Info().Str("file", *outFile).Msg("spectra written")
		return
	}

	m, err := data.BuildMap(spectra, *oversample, gridMethod)
	if err != nil {
		log.Fatal(err)
	}

	xLabel := *xKey
	if xLabel == "" {
		xLabel = "Spectrum"
	}
	if err := rixsplot.MapPNG(f, m, flag.Arg(0), qLabel, xLabel); err != nil {
		log.Fatal(err)
	}
	zlog.Info().Str("file", *outFile).Msg("map written")
}
