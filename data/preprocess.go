// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Crop returns a copy of the roi region of img with bounds clamped to the
// image. A nil roi, or one that is empty after clamping, selects the whole
// image.
func Crop(img *mat.Dense, roi *ROI) *mat.Dense {
	if roi == nil {
		return mat.DenseCopyOf(img)
	}
	rows, cols := img.Dims()
	r0, r1 := clamp(roi.RowMin, 0, rows), clamp(roi.RowMax, 0, rows)
	c0, c1 := clamp(roi.ColMin, 0, cols), clamp(roi.ColMax, 0, cols)
	if r1 <= r0 || c1 <= c0 {
		return mat.DenseCopyOf(img)
	}
	return mat.DenseCopyOf(img.Slice(r0, r1, c0, c1))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ZeroBelow returns a copy of img with every pixel below cutoff set to 0.
func ZeroBelow(img *mat.Dense, cutoff float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		if v < cutoff {
			return 0
		}
		return v
	}, img)
	return &out
}

// Mask is a boolean pixel map.
type Mask struct {
	rows, cols int
	set        []bool
}

func NewMask(rows, cols int) *Mask {
	return &Mask{rows: rows, cols: cols, set: make([]bool, rows*cols)}
}

func (m *Mask) Dims() (rows, cols int) { return m.rows, m.cols }
func (m *Mask) At(i, j int) bool       { return m.set[i*m.cols+j] }
func (m *Mask) Set(i, j int, v bool)   { m.set[i*m.cols+j] = v }

func (m *Mask) Count() int {
	n := 0
	for _, v := range m.set {
		if v {
			n++
		}
	}
	return n
}

// SaturationMask marks every pixel above cutoff.
func SaturationMask(img mat.Matrix, cutoff float64) *Mask {
	rows, cols := img.Dims()
	m := NewMask(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if img.At(i, j) > cutoff {
				m.Set(i, j, true)
			}
		}
	}
	return m
}

// Dilate grows m with a size x size box footprint by OR-ing one pixel
// shifts of the mask along each axis. A pixel reaches size/2 pixels toward
// higher indices and size-1-size/2 toward lower ones, so odd sizes are
// symmetric. Sizes below one are treated as one.
func Dilate(m *Mask, size int) *Mask {
	if size < 1 {
		size = 1
	}
	up, down := size/2, size-1-size/2
	out := dilateAxis(m, up, down, true)
	return dilateAxis(out, up, down, false)
}

func dilateAxis(m *Mask, up, down int, alongRows bool) *Mask {
	out := &Mask{rows: m.rows, cols: m.cols, set: append([]bool(nil), m.set...)}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if !m.At(i, j) {
				continue
			}
			for s := 1; s <= up; s++ {
				if alongRows && i+s < m.rows {
					out.Set(i+s, j, true)
				} else if !alongRows && j+s < m.cols {
					out.Set(i, j+s, true)
				}
			}
			for s := 1; s <= down; s++ {
				if alongRows && i-s >= 0 {
					out.Set(i-s, j, true)
				} else if !alongRows && j-s >= 0 {
					out.Set(i, j-s, true)
				}
			}
		}
	}
	return out
}

// ApplyMask returns a copy of img with masked pixels set to 0.
func ApplyMask(img *mat.Dense, m *Mask) *mat.Dense {
	var out mat.Dense
	out.Apply(func(i, j int, v float64) float64 {
		if m.At(i, j) {
			return 0
		}
		return v
	}, img)
	return &out
}

// Preprocessed is an image ready for spectrum extraction, along with the
// intermediate terms kept for the diagnostic columns.
type Preprocessed struct {
	Image      *mat.Dense
	Raw        *mat.Dense
	Background *mat.Dense
	Info       *FrameInfo
	Exposure   float64
	Energy     float64
	ContPhoton float64
	Masked     int
}

// Preprocess crops, subtracts the background and suppresses dim and
// saturated pixels of one image.
func Preprocess(s *Slice, p *Params, bg *Background, log zerolog.Logger) (*Preprocessed, error) {
	raw := Crop(s.Image, p.ROI)
	if p.ROI != nil {
		ir, ic := s.Image.Dims()
		if rr, rc := raw.Dims(); rr == ir && rc == ic {
			log.Debug().Interface("roi", p.ROI).Msg("roi selects the full image")
		}
	}

	energy := s.Info.PhotonEnergy()
	cont := p.ContPhoton(energy)

	sub, term, err := SubtractBackground(raw, bg, p.CCD, s.Exposure, log)
	if err != nil {
		return nil, err
	}

	low := p.LowerThreshold * cont * p.Binning
	high := p.UpperThreshold * cont * p.Binning
	img := ZeroBelow(sub, low)
	mask := Dilate(SaturationMask(img, high), p.EffectiveMaskSize())
	img = ApplyMask(img, mask)

	return &Preprocessed{
		Image:      img,
		Raw:        raw,
		Background: term,
		Info:       s.Info,
		Exposure:   s.Exposure,
		Energy:     energy,
		ContPhoton: cont,
		Masked:     mask.Count(),
	}, nil
}
