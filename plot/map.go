// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package plot

import (
	"image/color"
	"image/png"
	"io"

	"github.com/rditech/rixs-toolbox/data"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// edges returns the range of bins centered on the first and last of a
// uniform grid.
func edges(centers []float64) (lo, hi float64) {
	if len(centers) < 2 {
		c := 0.0
		if len(centers) == 1 {
			c = centers[0]
		}
		return c - 0.5, c + 0.5
	}
	half := (centers[len(centers)-1] - centers[0]) / float64(len(centers)-1) / 2
	if half == 0 {
		half = 0.5
	}
	return centers[0] - half, centers[len(centers)-1] + half
}

// MapHist bins a map with q along x and the spectrum axis along y.
func MapHist(m *data.Map) *hbook.H2D {
	qLo, qHi := edges(m.Q)
	xLo, xHi := edges(m.X)
	h := hbook.NewH2D(len(m.Q), qLo, qHi, len(m.X), xLo, xHi)
	for i, x := range m.X {
		for j, q := range m.Q {
			h.Fill(q, x, m.Z.At(i, j))
		}
	}
	return h
}

// NewMapPlot returns a plot of the map h with the Kindlmann palette.
func NewMapPlot(h *hbook.H2D, title, qLabel, xLabel string) *hplot.Plot {
	p := hplot.New()
	p.BackgroundColor = color.Transparent
	p.Title.Text = title
	p.X.Label.Text = qLabel
	p.Y.Label.Text = xLabel

	colorMap := moreland.Kindlmann()
	p.Add(hplot.NewH2D(h, colorMap.Palette(1000)))
	p.Add(hplot.NewGrid())
	return p
}

// WritePNG draws p into w as a PNG image.
func WritePNG(w io.Writer, p *hplot.Plot, width, height vg.Length) error {
	img := vgimg.New(width, height)
	p.Draw(draw.New(img))
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	return encoder.Encode(w, img.Image())
}

// MapPNG renders a map as a PNG image.
func MapPNG(w io.Writer, m *data.Map, title, qLabel, xLabel string) error {
	if m == nil || m.Z == nil {
		return data.ErrNoSpectra
	}
	return WritePNG(w, NewMapPlot(MapHist(m), title, qLabel, xLabel), Width, Height)
}
