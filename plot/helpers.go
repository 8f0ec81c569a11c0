// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package plot

// MakeSmoother returns an exponential moving average with weight alpha for
// new values, starting from init.
func MakeSmoother(alpha, init float64) func(float64) float64 {
	invAlpha := 1.0 - alpha
	val := init
	return func(newVal float64) float64 {
		val = invAlpha*val + alpha*newVal
		return val
	}
}

// SmoothInto blends y into avg with weight alpha. An avg of a different
// length is replaced by a copy of y.
func SmoothInto(avg, y []float64, alpha float64) []float64 {
	if len(avg) != len(y) {
		return append([]float64(nil), y...)
	}
	for i, v := range y {
		avg[i] = (1-alpha)*avg[i] + alpha*v
	}
	return avg
}
