// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

// EnergyAxis converts pixel positions to energy loss in eV given the
// elastic line position zero (pixel) and the dispersion in meV per pixel.
func EnergyAxis(pixel []float64, zero, dispersion float64) []float64 {
	out := make([]float64, len(pixel))
	for i, p := range pixel {
		out[i] = (p - zero) * dispersion * 1e-3
	}
	return out
}
