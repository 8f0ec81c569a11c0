// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rditech/rixs-toolbox/numeric"

	"golang.org/x/exp/slices"
)

// WriteColumnsDat writes cols as whitespace separated text, one row per
// line, after a "#L" line of column labels.
func WriteColumnsDat(w io.Writer, cols *Columns) error {
	if cols == nil || len(cols.Keys) == 0 {
		return ErrNoSpectra
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "#N %d\n#L %s\n", len(cols.Keys), strings.Join(cols.Keys, "  "))
	for i := 0; i < cols.Len(); i++ {
		for j, key := range cols.Keys {
			if j > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatFloat(cols.Data[key][i], 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteWaterfallDat writes spectra side by side: the first column is the
// x axis of the lowest q spectrum and every other column is one spectrum,
// in increasing q, interpolated onto it. The header lists the q values.
func WriteWaterfallDat(w io.Writer, spectra []numeric.Curve) error {
	if len(spectra) == 0 {
		return ErrNoSpectra
	}
	sorted := slices.Clone(spectra)
	slices.SortStableFunc(sorted, func(a, b numeric.Curve) int {
		return cmp.Compare(a.Q, b.Q)
	})

	for _, s := range sorted {
		if len(s.X) == 0 || len(s.X) != len(s.Y) {
			return numeric.ErrLength
		}
	}

	x, _ := numeric.SortPair(sorted[0].X, sorted[0].Y)
	cols := make([][]float64, len(sorted))
	qs := make([]string, len(sorted))
	for i, s := range sorted {
		sx, sy := numeric.SortPair(s.X, s.Y)
		cols[i] = numeric.Interp(x, sx, sy)
		qs[i] = strconv.FormatFloat(s.Q, 'g', -1, 64)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# --- %s\n", strings.Join(qs, " "))
	for r, xv := range x {
		fmt.Fprintf(bw, "%f", xv)
		for _, c := range cols {
			fmt.Fprintf(bw, " %f", c[r])
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
