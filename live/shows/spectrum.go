// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package shows

import (
	"bytes"
	"image/color"
	"math"
	"strconv"
	"time"

	"github.com/rditech/rixs-toolbox/live/message"
	rixsplot "github.com/rditech/rixs-toolbox/plot"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

// SpectrumSample is one reduced spectrum to draw as the line LineName.
type SpectrumSample struct {
	X, Y     []float64
	LineName string
}

type spectrumLine struct {
	x, avg []float64
	line   *plotter.Line
}

// Spectrum draws the running average of one or more spectra. Alpha is the
// weight of each new spectrum; 1 shows the latest one only.
type Spectrum struct {
	Alpha            float64
	DisableAutorange bool

	lines map[string]*spectrumLine

	framer
	plot.Plot
}

func NewSpectrum(period time.Duration) *Spectrum {
	s := &Spectrum{Alpha: 1}
	s.FramePeriod = period
	s.Plot = *plot.New()
	s.BackgroundColor = color.Transparent
	return s
}

func (s *Spectrum) Execute(cmd *message.Cmd) error {
	s.Lock()
	defer s.Unlock()

	if cmd.Command != "set params" {
		return nil
	}
	for param, value := range cmd.Metadata {
		switch param {
		case "autorange":
			s.DisableAutorange = !parseBool(value)
		case "min":
			if min, err := strconv.ParseFloat(value, 64); err == nil {
				s.Y.Min = min
			}
		case "max":
			if max, err := strconv.ParseFloat(value, 64); err == nil {
				s.Y.Max = max
			}
		case "alpha":
			alpha, err := strconv.ParseFloat(value, 64)
			if err == nil && alpha > 0 && alpha <= 1 {
				s.Alpha = alpha
			}
		case "logscale":
			setLogScale(&s.Y, parseBool(value))
		case "reset":
			for _, l := range s.lines {
				l.avg = nil
			}
		}
	}
	return nil
}

func (s *Spectrum) AddSample(vi interface{}) {
	v, ok := vi.(*SpectrumSample)
	if !ok || len(v.X) != len(v.Y) {
		return
	}

	s.Lock()
	defer s.Unlock()

	if s.Alpha <= 0 {
		s.Alpha = 1
	}
	if s.lines == nil {
		s.lines = make(map[string]*spectrumLine)
	}

	l := s.lines[v.LineName]
	if l == nil {
		l = &spectrumLine{line: &plotter.Line{}}
		l.line.LineStyle = plotter.DefaultLineStyle
		l.line.Color = plotutil.Color(len(s.lines))
		l.line.Dashes = plotutil.Dashes(len(s.lines))
		s.lines[v.LineName] = l
		s.Add(l.line)
		s.Legend.Add(v.LineName, l.line)
	}

	l.x = append(l.x[:0], v.X...)
	l.avg = rixsplot.SmoothInto(l.avg, v.Y, s.Alpha)
	if len(l.line.XYs) != len(l.x) {
		l.line.XYs = make(plotter.XYs, len(l.x))
	}
	for i := range l.x {
		l.line.XYs[i].X, l.line.XYs[i].Y = l.x[i], l.avg[i]
	}

	if s.expired() {
		go s.updateFrame(true)
	}
}

func (s *Spectrum) updateFrame(doLock bool) {
	if doLock {
		s.Lock()
		defer s.Unlock()
	}

	if !s.DisableAutorange && len(s.lines) > 0 {
		s.X.Min, s.X.Max = math.Inf(+1), math.Inf(-1)
		s.Y.Min, s.Y.Max = math.Inf(+1), math.Inf(-1)
		for _, l := range s.lines {
			if len(l.line.XYs) == 0 {
				continue
			}
			xmin, xmax, ymin, ymax := l.line.DataRange()
			s.X.Min = math.Min(s.X.Min, xmin)
			s.X.Max = math.Max(s.X.Max, xmax)
			s.Y.Min = math.Min(s.Y.Min, ymin)
			s.Y.Max = math.Max(s.Y.Max, ymax)
		}
		if math.IsInf(s.X.Min, 0) {
			s.X.Min, s.X.Max, s.Y.Min, s.Y.Max = 0, 1, 0, 1
		}
	}

	buf := &bytes.Buffer{}
	rixsplot.WriteSVG(buf, &s.Plot, FrameWidth, FrameHeight)

	s.setFrame("Spectrum", buf.Bytes(), map[string]string{
		"alpha":     strconv.FormatFloat(s.Alpha, 'g', 8, 64),
		"autorange": strconv.FormatBool(!s.DisableAutorange),
		"min":       formatFloat(s.Y.Min),
		"max":       formatFloat(s.Y.Max),
		"logscale":  isLogScale(&s.Y),
		"reset":     "",
	})
}

func (s *Spectrum) UpdateFrame() {
	s.updateFrame(true)
}
