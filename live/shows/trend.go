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

// TrendSample is a scalar of one image, such as its total photon count,
// taken T seconds into the stream.
type TrendSample struct {
	T, Y     float64
	LineName string
}

type trendLine struct {
	smoother func(float64) float64
	i        int

	plotter.Line
}

// Trend is a scrolling plot of the last NSample values of each line.
type Trend struct {
	Alpha            float64
	DisableAutorange bool
	Downsample       int
	NSample          int

	lines map[string]*trendLine

	framer
	plot.Plot
}

func NewTrend(period time.Duration) *Trend {
	s := &Trend{Alpha: 1, Downsample: 1, NSample: 500}
	s.FramePeriod = period
	s.Plot = *plot.New()
	s.BackgroundColor = color.Transparent
	s.X.Label.Text = "time (s)"
	s.X.Tick.Marker = rixsplot.RollTicks{}
	return s
}

func (s *Trend) Execute(cmd *message.Cmd) error {
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
		case "logscale":
			setLogScale(&s.Y, parseBool(value))
		case "alpha":
			alpha, err := strconv.ParseFloat(value, 64)
			if err == nil && alpha > 0 && alpha <= 1 {
				s.Alpha = alpha
				for _, line := range s.lines {
					var last float64
					if len(line.XYs) > 0 {
						last = line.XYs[len(line.XYs)-1].Y
					}
					line.smoother = rixsplot.MakeSmoother(alpha, last)
				}
			}
		case "nsample":
			nSample, err := strconv.Atoi(value)
			if err == nil && nSample > 0 {
				s.NSample = nSample
			}
		case "downsample":
			downsample, err := strconv.Atoi(value)
			if err == nil && downsample > 0 {
				s.Downsample = downsample
			}
		}
	}
	return nil
}

func (s *Trend) AddSample(vi interface{}) {
	v, ok := vi.(*TrendSample)
	if !ok {
		return
	}

	s.Lock()
	defer s.Unlock()

	if s.NSample <= 0 {
		s.NSample = 500
	}
	if s.Downsample <= 0 {
		s.Downsample = 1
	}
	if s.Alpha <= 0 {
		s.Alpha = 1
	}
	if s.lines == nil {
		s.lines = make(map[string]*trendLine)
	}

	line := s.lines[v.LineName]
	if line == nil {
		line = &trendLine{smoother: rixsplot.MakeSmoother(s.Alpha, v.Y)}
		line.LineStyle = plotter.DefaultLineStyle
		line.Color = plotutil.Color(len(s.lines))
		s.lines[v.LineName] = line
		s.Add(line)
		s.Legend.Add(v.LineName, line)
	}
	line.i++

	ySmooth := line.smoother(v.Y)
	if line.i%s.Downsample == 0 {
		// time running backwards means a new stream
		if len(line.XYs) > 0 && v.T < line.XYs[len(line.XYs)-1].X {
			line.XYs = nil
			line.smoother = rixsplot.MakeSmoother(s.Alpha, v.Y)
			ySmooth = line.smoother(v.Y)
		}
		line.XYs = append(line.XYs, plotter.XY{X: v.T, Y: ySmooth})
		if len(line.XYs) > s.NSample {
			line.XYs = line.XYs[len(line.XYs)-s.NSample:]
		}
	}

	if s.expired() {
		go s.updateFrame(true)
	}
}

// Points returns the plotted values of a line.
func (s *Trend) Points(name string) plotter.XYs {
	s.RLock()
	defer s.RUnlock()

	line := s.lines[name]
	if line == nil {
		return nil
	}
	return append(plotter.XYs(nil), line.XYs...)
}

func (s *Trend) updateFrame(doLock bool) {
	if doLock {
		s.Lock()
		defer s.Unlock()
	}

	s.X.Min, s.X.Max = math.Inf(+1), math.Inf(-1)
	if !s.DisableAutorange {
		s.Y.Min, s.Y.Max = math.Inf(+1), math.Inf(-1)
	}
	for _, line := range s.lines {
		if len(line.XYs) == 0 {
			continue
		}
		xmin, xmax, ymin, ymax := line.DataRange()
		s.X.Min = math.Min(s.X.Min, xmin)
		s.X.Max = math.Max(s.X.Max, xmax)
		if !s.DisableAutorange {
			s.Y.Min = math.Min(s.Y.Min, ymin)
			s.Y.Max = math.Max(s.Y.Max, ymax)
		}
	}
	if math.IsInf(s.X.Min, 0) || s.X.Max <= s.X.Min {
		s.X.Min, s.X.Max = 0, 1
	}
	if math.IsInf(s.Y.Min, 0) || s.Y.Max <= s.Y.Min {
		s.Y.Min, s.Y.Max = s.Y.Min-1, s.Y.Min+1
		if math.IsInf(s.Y.Min, 0) {
			s.Y.Min, s.Y.Max = 0, 1
		}
	}

	buf := &bytes.Buffer{}
	rixsplot.WriteSVG(buf, &s.Plot, FrameWidth, FrameHeight)

	s.setFrame("Trend", buf.Bytes(), map[string]string{
		"alpha":      strconv.FormatFloat(s.Alpha, 'g', 8, 64),
		"nsample":    strconv.Itoa(s.NSample),
		"downsample": strconv.Itoa(s.Downsample),
		"autorange":  strconv.FormatBool(!s.DisableAutorange),
		"min":        formatFloat(s.Y.Min),
		"max":        formatFloat(s.Y.Max),
		"logscale":   isLogScale(&s.Y),
	})
}

func (s *Trend) UpdateFrame() {
	s.updateFrame(true)
}
