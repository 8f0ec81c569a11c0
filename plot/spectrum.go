// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package plot

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/rditech/rixs-toolbox/data"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"
)

// Default figure size of rendered spectra and maps.
var (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// NewSpectrumPlot returns an empty plot with a transparent background.
func NewSpectrumPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.BackgroundColor = color.Transparent
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// AddLine adds one spectrum as the i-th line of p.
func AddLine(p *plot.Plot, name string, x, y []float64, i int) (*plotter.Line, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%v: %d x values for %d y values", name, len(x), len(y))
	}
	xys := make(plotter.XYs, len(x))
	for j := range xys {
		xys[j].X, xys[j].Y = x[j], y[j]
		if math.IsNaN(y[j]) || math.IsInf(y[j], 0) {
			xys[j].Y = 0
		}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.LineStyle = plotter.DefaultLineStyle
	line.Color = plotutil.Color(i)
	line.Dashes = plotutil.Dashes(i)
	p.Add(line)
	if name != "" {
		p.Legend.Add(name, line)
	}
	return line, nil
}

// SetLogY switches the y axis of p to a clipped log10 scale.
func SetLogY(p *plot.Plot) {
	p.Y.Scale, p.Y.Tick.Marker = LogScale()
	if p.Y.Min <= 0 {
		p.Y.Min = 1e-15
	}
}

// WriteSVG draws p into w.
func WriteSVG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	svg := vgsvg.New(width, height)
	p.Draw(draw.New(svg))
	_, err := svg.WriteTo(w)
	return err
}

// SpectrumSVG renders the yKeys columns of a reduced spectrum against the
// xKey column.
func SpectrumSVG(w io.Writer, res *data.Result, xKey string, yKeys []string, logY bool) error {
	if res == nil || res.Columns == nil {
		return data.ErrNoSpectra
	}
	x, ok := res.Columns.Get(xKey)
	if !ok {
		return fmt.Errorf("no %q column", xKey)
	}

	title := res.Source
	if res.Frame > 0 {
		title = fmt.Sprintf("%v [%d]", res.Source, res.Frame)
	}
	p := NewSpectrumPlot(title, xKey, "")
	if len(yKeys) == 1 {
		p.Y.Label.Text = yKeys[0]
	}
	for i, key := range yKeys {
		y, ok := res.Columns.Get(key)
		if !ok {
			return fmt.Errorf("no %q column", key)
		}
		name := key
		if len(yKeys) == 1 {
			name = ""
		}
		if _, err := AddLine(p, name, x, y, i); err != nil {
			return err
		}
	}
	if logY {
		SetLogY(p)
	}
	return WriteSVG(w, p, Width, Height)
}
