// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"fmt"

	"github.com/rditech/rixs-toolbox/numeric"

	"github.com/rs/zerolog"
	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/mat"
)

// Spot is a photon strike candidate: a local maximum seed pixel, the
// grid x grid patch around it and its intensity weighted centroid.
type Spot struct {
	Row, Col  int
	Patch     *mat.Dense
	Intensity float64
	RowC      float64
	ColC      float64
}

// FindSpots returns the pixels of img whose value lies strictly between
// low and high and that no pixel of their grid x grid neighbourhood
// exceeds, scanning rows then columns. Seeds closer than grid/2 to the
// border are skipped.
func FindSpots(img mat.Matrix, grid int, low, high float64) []Spot {
	rows, cols := img.Dims()
	m := grid / 2

	var spots []Spot
	for r := m; r < rows-m; r++ {
		for c := m; c < cols-m; c++ {
			v := img.At(r, c)
			if !(v > low && v < high) {
				continue
			}

			patch := mat.NewDense(grid, grid, nil)
			localMax := true
		scan:
			for i := 0; i < grid; i++ {
				for j := 0; j < grid; j++ {
					pv := img.At(r-m+i, c-m+j)
					if pv > v {
						localMax = false
						break scan
					}
					patch.Set(i, j, pv)
				}
			}
			if !localMax {
				continue
			}

			spot := Spot{Row: r, Col: c, Patch: patch}
			spot.centroid()
			spots = append(spots, spot)
		}
	}
	return spots
}

// centroid sets the intensity and the first moment position of the patch
// relative to the seed.
func (s *Spot) centroid() {
	grid, _ := s.Patch.Dims()
	m := grid / 2

	var sum, rowMoment, colMoment float64
	for i := 0; i < grid; i++ {
		for j := 0; j < grid; j++ {
			v := s.Patch.At(i, j)
			sum += v
			rowMoment += v * float64(i-m)
			colMoment += v * float64(j-m)
		}
	}

	s.Intensity = sum
	s.RowC, s.ColC = float64(s.Row), float64(s.Col)
	if sum != 0 {
		s.RowC += rowMoment / sum
		s.ColC += colMoment / sum
	}
}

// SPCResult holds the single photon counting spectrum of one image. Spots
// are the uncorrected centroids; a frame without spots holds a single zero
// intensity spot at the origin.
type SPCResult struct {
	Spots      []Spot
	Singles    []float64
	Doubles    []float64
	Total      []float64
	Degenerate bool
}

// ExtractSPC finds photon strikes in the preprocessed image and histograms
// their shear corrected row positions into single and double events.
func ExtractSPC(pre *Preprocessed, p *Params, log zerolog.Logger) (*SPCResult, error) {
	if g := p.SPC.GridSize; g < 1 || g%2 == 0 {
		return nil, &ConfigurationError{"spc.grid_size", fmt.Sprintf("must be odd and positive, got %v", g)}
	}

	var scaled mat.Dense
	scaled.Scale(p.CCD.ElectronsPerCount*p.CCD.EhPairEnergy, pre.Image)

	e := pre.Energy
	res := &SPCResult{
		Spots: FindSpots(&scaled, p.SPC.GridSize, p.SPC.LowThreshold*e, p.SPC.HighThreshold*e),
	}
	if len(res.Spots) == 0 {
		log.Warn().
			Str("source", sourceOf(pre.Info)).
			Msg("no photon spots found, using a placeholder")
		res.Spots = []Spot{{Patch: mat.NewDense(1, 1, nil)}}
		res.Degenerate = true
	}

	rows, _ := pre.Image.Dims()
	n := p.SpectrumLength(rows)
	if n < 1 {
		return nil, &ConfigurationError{"points_per_pixel", fmt.Sprintf("%v rows give an empty spectrum", rows)}
	}
	singles := newSPCHist(n, rows, p.PointsPerPixel)
	doubles := newSPCHist(n, rows, p.PointsPerPixel)

	singleTh, doubleTh := p.SPC.SingleThreshold*e, p.SPC.DoubleThreshold*e
	for _, s := range res.Spots {
		row := s.RowC - s.ColC*p.Slope
		switch {
		case s.Intensity > doubleTh:
			doubles.Fill(row, 1)
		case s.Intensity > singleTh:
			singles.Fill(row, 1)
		}
	}

	res.Singles = numeric.Reverse(binContents(singles))
	res.Doubles = numeric.Reverse(binContents(doubles))
	res.Total = make([]float64, n)
	for i := range res.Total {
		res.Total[i] = res.Singles[i] + 2*res.Doubles[i]
	}
	return res, nil
}

// AddTo appends the SPC columns to cols.
func (r *SPCResult) AddTo(cols *Columns) error {
	if err := cols.Set(ColSPCSingle, r.Singles); err != nil {
		return err
	}
	if err := cols.Set(ColSPCDouble, r.Doubles); err != nil {
		return err
	}
	return cols.Set(ColSPC, r.Total)
}

// newSPCHist bins centroid rows into n bins shifted by half a point.
// hbook bins are half open, so a centroid exactly on the top edge lands in
// the overflow and is not counted.
func newSPCHist(n, rows int, ppp float64) *hbook.H1D {
	offset := 0.5 / ppp
	return hbook.NewH1D(n, offset, float64(rows)+offset)
}

func binContents(h *hbook.H1D) []float64 {
	out := make([]float64, len(h.Binning.Bins))
	for i, b := range h.Binning.Bins {
		out[i] = b.SumW()
	}
	return out
}

func sourceOf(info *FrameInfo) string {
	if info == nil {
		return ""
	}
	return info.Source
}
