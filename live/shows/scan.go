// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package shows

import (
	"bytes"
	"image/color"
	"strconv"
	"time"

	"github.com/rditech/rixs-toolbox/live/message"
	rixsplot "github.com/rditech/rixs-toolbox/plot"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg/draw"
)

// ScanSample is a scalar of one image against a scan coordinate, such as
// the total photon count against a motor position.
type ScanSample struct {
	X, Y float64
}

// Scan scatters the last NSample points it received.
type Scan struct {
	NSample int

	scatter *plotter.Scatter

	framer
	plot.Plot
}

func NewScan(period time.Duration) *Scan {
	s := &Scan{NSample: 1000}
	s.FramePeriod = period
	s.Plot = *plot.New()
	s.BackgroundColor = color.Transparent
	return s
}

func (s *Scan) Execute(cmd *message.Cmd) error {
	s.Lock()
	defer s.Unlock()

	if cmd.Command != "set params" {
		return nil
	}
	for param, value := range cmd.Metadata {
		switch param {
		case "nsample":
			nSample, err := strconv.Atoi(value)
			if err == nil && nSample > 0 {
				s.NSample = nSample
			}
		case "logscale":
			setLogScale(&s.Y, parseBool(value))
		case "reset":
			if s.scatter != nil {
				s.scatter.XYs = s.scatter.XYs[:0]
			}
		}
	}
	return nil
}

func (s *Scan) AddSample(vi interface{}) {
	v, ok := vi.(*ScanSample)
	if !ok {
		return
	}

	s.Lock()
	defer s.Unlock()

	if s.scatter == nil {
		s.scatter, _ = plotter.NewScatter(plotter.XYs{})
		s.scatter.GlyphStyle.Shape = draw.PlusGlyph{}
		s.scatter.GlyphStyle.Radius = 2
		s.Add(s.scatter)
	}
	s.scatter.XYs = append(s.scatter.XYs, plotter.XY{X: v.X, Y: v.Y})

	if s.NSample <= 0 {
		s.NSample = 1000
	}
	if len(s.scatter.XYs) > s.NSample {
		s.scatter.XYs = s.scatter.XYs[len(s.scatter.XYs)-s.NSample:]
	}

	if s.expired() {
		go s.updateFrame(true)
	}
}

// Len returns the number of points on the plot.
func (s *Scan) Len() int {
	s.RLock()
	defer s.RUnlock()

	if s.scatter == nil {
		return 0
	}
	return len(s.scatter.XYs)
}

func (s *Scan) updateFrame(doLock bool) {
	if doLock {
		s.Lock()
		defer s.Unlock()
	}

	if s.scatter != nil && len(s.scatter.XYs) > 0 {
		s.X.Min, s.X.Max, s.Y.Min, s.Y.Max = plotter.XYRange(s.scatter.XYs)
		if s.X.Max == s.X.Min {
			s.X.Min, s.X.Max = s.X.Min-0.5, s.X.Max+0.5
		}
		if s.Y.Max == s.Y.Min {
			s.Y.Min, s.Y.Max = s.Y.Min-0.5, s.Y.Max+0.5
		}
	}

	buf := &bytes.Buffer{}
	rixsplot.WriteSVG(buf, &s.Plot, FrameWidth, FrameHeight)

	s.setFrame("Scan", buf.Bytes(), map[string]string{
		"nsample":  strconv.Itoa(s.NSample),
		"logscale": isLogScale(&s.Y),
		"reset":    "",
	})
}

func (s *Scan) UpdateFrame() {
	s.updateFrame(true)
}
