// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"github.com/rditech/rixs-toolbox/numeric"

	"github.com/rs/zerolog"
)

// Aggregator passes slices through and, when its input closes, emits one
// more slice holding the average of every reduced spectrum it saw. The
// average is taken on the x values of the first spectrum over the range
// all spectra cover.
type Aggregator struct {
	XKey   string
	YKey   string
	Source string
	Log    zerolog.Logger
}

func (a *Aggregator) Average(input <-chan *Slice, output chan<- *Slice) {
	if a.XKey == "" {
		a.XKey = ColPixel
	}
	if a.YKey == "" {
		a.YKey = ColPhotons
	}
	if a.Source == "" {
		a.Source = "average"
	}

	var xs, ys [][]float64
	for slice := range input {
		if slice.Err == nil && slice.Result != nil {
			x, okX := slice.Result.Columns.Get(a.XKey)
			y, okY := slice.Result.Columns.Get(a.YKey)
			if okX && okY {
				xs, ys = append(xs, x), append(ys, y)
			}
		}
		output <- slice
	}

	if len(xs) == 0 {
		return
	}
	x, y, err := numeric.Average(xs, ys)
	if err != nil {
		a.Log.Warn().Err(err).Int("spectra", len(xs)).Msg("spectra not averaged")
		return
	}

	cols := &Columns{}
	cols.Set(a.XKey, x)
	cols.Set(a.YKey, y)
	output <- &Slice{
		Source: a.Source,
		Index:  0,
		Result: &Result{Source: a.Source, Columns: cols},
	}
	a.Log.Info().Int("spectra", len(xs)).Msg("spectra averaged")
}
