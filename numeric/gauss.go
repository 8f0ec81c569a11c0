// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package numeric

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// FWHM of a unit Gaussian in units of sigma.
const fwhmPerSigma = 2.3548

var ErrNegativeOrder = errors.New("numeric: derivative order must be non-negative")

// GaussianKernel1D returns the 2*radius+1 taps of a Gaussian of width sigma,
// or of its order-th derivative. The order 0 kernel sums to one.
func GaussianKernel1D(sigma float64, order, radius int) ([]float64, error) {
	if order < 0 {
		return nil, ErrNegativeOrder
	}
	if radius < 0 {
		radius = 0
	}

	// exponent polynomial p(x) = a*x^2
	a := -0.5 / (sigma * sigma)
	phi := make([]float64, 2*radius+1)
	for i := range phi {
		x := float64(i - radius)
		phi[i] = math.Exp(a * x * x)
	}
	floats.Scale(1/floats.Sum(phi), phi)

	if order == 0 {
		return phi, nil
	}

	// f(x) = q(x) * exp(p(x))  =>  f'(x) = (q'(x) + q(x) * p'(x)) * exp(p(x))
	q := []float64{1}
	for n := 0; n < order; n++ {
		next := make([]float64, len(q)+1)
		for k := 1; k < len(q); k++ {
			next[k-1] += float64(k) * q[k]
		}
		// p'(x) = 2a*x
		for k, c := range q {
			next[k+1] += 2 * a * c
		}
		q = next
	}

	for i := range phi {
		phi[i] *= polyval(q, float64(i-radius))
	}
	return phi, nil
}

// polyval evaluates the polynomial with coefficients c in increasing degree.
func polyval(c []float64, x float64) float64 {
	var v float64
	for k := len(c) - 1; k >= 0; k-- {
		v = v*x + c[k]
	}
	return v
}

// GaussianFilter convolves y with a Gaussian kernel of width sigma truncated
// at truncate standard deviations. The signal is extended by mirrored copies
// so that the filter sees no artificial edges, and samples within half a
// kernel width of either end keep their input values. A sigma of zero
// returns a copy of y.
func GaussianFilter(y []float64, sigma float64, order int, truncate float64) ([]float64, error) {
	out := make([]float64, len(y))
	copy(out, y)
	if math.Abs(sigma) < 1e-15 || len(y) == 0 {
		return out, nil
	}

	radius := int(truncate*math.Abs(sigma) + 0.5)
	kernel, err := GaussianKernel1D(sigma, order, radius)
	if err != nil {
		return nil, err
	}

	n := len(y)
	period := 2 * n
	mirror := func(p int) float64 {
		m := p % period
		if m < 0 {
			m += period
		}
		if m < n {
			return y[m]
		}
		return y[period-1-m]
	}

	// correlating with the reversed kernel is a convolution with the kernel
	for i := 0; i < n; i++ {
		var acc float64
		for k, w := range kernel {
			acc += mirror(i+radius-k) * w
		}
		out[i] = acc
	}

	head := radius
	if head > n {
		head = n
	}
	copy(out[:head], y[:head])
	tail := radius + 1
	if tail > n {
		tail = n
	}
	copy(out[n-tail:], y[n-tail:])

	return out, nil
}

// Gaussian evaluates amp * exp(-(x-x0)^2 / (2 s^2)) with s = fwhm / 2.3548.
func Gaussian(x, x0, amp, fwhm float64) float64 {
	s := fwhm / fwhmPerSigma
	d := x - x0
	return amp * math.Exp(-d*d/2/(s*s))
}
