// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package shows

import (
	"bytes"
	"strconv"
	"time"

	"github.com/rditech/rixs-toolbox/live/message"
	rixsplot "github.com/rditech/rixs-toolbox/plot"

	"go-hep.org/x/hep/hbook"
)

// SpotSample holds the photon spot centroids found on one image.
type SpotSample struct {
	Rows, Cols []float64
}

// SpotDensity histograms spot centroids over the detector.
type SpotDensity struct {
	hb *hbook.H2D

	framer
}

func NewSpotDensity(period time.Duration) *SpotDensity {
	s := &SpotDensity{hb: hbook.NewH2D(64, 0, 2048, 64, 0, 2048)}
	s.FramePeriod = period
	return s
}

func (s *SpotDensity) rebin(nx int, xmin, xmax float64, ny int, ymin, ymax float64) {
	if nx <= 0 || ny <= 0 || xmax <= xmin || ymax <= ymin {
		return
	}
	s.hb = hbook.NewH2D(nx, xmin, xmax, ny, ymin, ymax)
}

func (s *SpotDensity) Execute(cmd *message.Cmd) error {
	s.Lock()
	defer s.Unlock()

	if cmd.Command != "set params" {
		return nil
	}
	for param, value := range cmd.Metadata {
		b := s.hb.Binning
		nx, xmin, xmax := b.Nx, b.XRange.Min, b.XRange.Max
		ny, ymin, ymax := b.Ny, b.YRange.Min, b.YRange.Max
		f, ferr := strconv.ParseFloat(value, 64)
		n, nerr := strconv.Atoi(value)
		switch param {
		case "reset":
		case "min x":
			if ferr != nil {
				continue
			}
			xmin = f
		case "max x":
			if ferr != nil {
				continue
			}
			xmax = f
		case "min y":
			if ferr != nil {
				continue
			}
			ymin = f
		case "max y":
			if ferr != nil {
				continue
			}
			ymax = f
		case "nbins x":
			if nerr != nil {
				continue
			}
			nx = n
		case "nbins y":
			if nerr != nil {
				continue
			}
			ny = n
		default:
			continue
		}
		s.rebin(nx, xmin, xmax, ny, ymin, ymax)
	}
	return nil
}

func (s *SpotDensity) AddSample(vi interface{}) {
	v, ok := vi.(*SpotSample)
	if !ok {
		return
	}

	s.Lock()
	defer s.Unlock()

	for i := range v.Rows {
		if i < len(v.Cols) {
			s.hb.Fill(v.Cols[i], v.Rows[i], 1)
		}
	}

	if s.expired() {
		go s.updateFrame(true)
	}
}

// Entries returns the number of centroids histogrammed since the last
// reset.
func (s *SpotDensity) Entries() int64 {
	s.RLock()
	defer s.RUnlock()
	return s.hb.Entries()
}

func (s *SpotDensity) updateFrame(doLock bool) {
	if doLock {
		s.Lock()
		defer s.Unlock()
	}

	buf := &bytes.Buffer{}
	p := rixsplot.NewMapPlot(s.hb, "", "column", "row")
	rixsplot.WritePNG(buf, p, FrameWidth, FrameHeight)

	b := s.hb.Binning
	s.setFrame("Spot Density", buf.Bytes(), map[string]string{
		"is png":  "true",
		"reset":   "",
		"nbins x": strconv.Itoa(b.Nx),
		"min x":   formatFloat(b.XRange.Min),
		"max x":   formatFloat(b.XRange.Max),
		"nbins y": strconv.Itoa(b.Ny),
		"min y":   formatFloat(b.YRange.Min),
		"max y":   formatFloat(b.YRange.Max),
	})
}

func (s *SpotDensity) UpdateFrame() {
	s.updateFrame(true)
}
