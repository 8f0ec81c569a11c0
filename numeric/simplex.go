// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package numeric

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Objective is a scalar function of a parameter vector.
type Objective func(x []float64) float64

// Nelder-Mead coefficients: reflection, expansion, contraction, shrink.
const (
	rho   = 1.0
	chi   = 2.0
	psi   = 0.5
	sigma = 0.5

	nonzdelt = 0.05
	zdelt    = 0.00025
)

// Termination status values of SimplexResult.Status.
const (
	StatusConverged = iota
	StatusMaxEvaluations
	StatusMaxIterations
)

// SimplexSettings tunes Minimize. Zero values select the defaults: both
// tolerances 1e-4 and, when neither budget is set, 200 evaluations and
// iterations per parameter.
type SimplexSettings struct {
	XAbsTol        float64
	FAbsTol        float64
	MaxIterations  int
	MaxEvaluations int
}

type SimplexResult struct {
	X           []float64
	Fun         float64
	Iterations  int
	Evaluations int
	Converged   bool
	Status      int
	Message     string
}

// Minimize runs the downhill simplex algorithm on f starting at x0.
// Exhausting a budget is reported through the result, never as an error.
func Minimize(f Objective, x0 []float64, settings *SimplexSettings) ([]float64, SimplexResult) {
	var s SimplexSettings
	if settings != nil {
		s = *settings
	}
	if s.XAbsTol <= 0 {
		s.XAbsTol = 1e-4
	}
	if s.FAbsTol <= 0 {
		s.FAbsTol = 1e-4
	}

	n := len(x0)
	maxIter, maxFev := s.MaxIterations, s.MaxEvaluations
	switch {
	case maxIter <= 0 && maxFev <= 0:
		maxIter, maxFev = 200*n, 200*n
	case maxIter <= 0:
		maxIter = math.MaxInt32
	case maxFev <= 0:
		maxFev = math.MaxInt32
	}

	nfev := 0
	eval := func(x []float64) float64 {
		nfev++
		return f(x)
	}

	sim := make([][]float64, n+1)
	sim[0] = append([]float64(nil), x0...)
	for k := 0; k < n; k++ {
		y := append([]float64(nil), x0...)
		if y[k] != 0 {
			y[k] *= 1 + nonzdelt
		} else {
			y[k] = zdelt
		}
		sim[k+1] = y
	}

	fsim := make([]float64, n+1)
	for k := range sim {
		fsim[k] = eval(sim[k])
	}
	order := func() {
		sort.Stable(&simplexOrder{sim: sim, fsim: fsim})
	}
	order()

	xbar := make([]float64, n)
	point := func(a float64, b float64, worst []float64) []float64 {
		// a*xbar + b*worst
		p := make([]float64, n)
		for i := range p {
			p[i] = a*xbar[i] + b*worst[i]
		}
		return p
	}

	iterations := 1
	for nfev < maxFev && iterations < maxIter {
		if spread(sim) <= s.XAbsTol && fspread(fsim) <= s.FAbsTol {
			break
		}

		for i := range xbar {
			xbar[i] = 0
		}
		for _, v := range sim[:n] {
			floats.Add(xbar, v)
		}
		floats.Scale(1/float64(n), xbar)

		worst := sim[n]
		xr := point(1+rho, -rho, worst)
		fxr := eval(xr)
		shrink := false

		if fxr < fsim[0] {
			xe := point(1+rho*chi, -rho*chi, worst)
			fxe := eval(xe)
			if fxe < fxr {
				sim[n], fsim[n] = xe, fxe
			} else {
				sim[n], fsim[n] = xr, fxr
			}
		} else if n > 0 && fxr < fsim[n-1] {
			sim[n], fsim[n] = xr, fxr
		} else if fxr < fsim[n] {
			xc := point(1+psi*rho, -psi*rho, worst)
			fxc := eval(xc)
			if fxc <= fxr {
				sim[n], fsim[n] = xc, fxc
			} else {
				shrink = true
			}
		} else {
			xcc := point(1-psi, psi, worst)
			fxcc := eval(xcc)
			if fxcc < fsim[n] {
				sim[n], fsim[n] = xcc, fxcc
			} else {
				shrink = true
			}
		}

		if shrink {
			for j := 1; j <= n; j++ {
				for i := range sim[j] {
					sim[j][i] = sim[0][i] + sigma*(sim[j][i]-sim[0][i])
				}
				fsim[j] = eval(sim[j])
			}
		}

		order()
		iterations++
	}

	res := SimplexResult{
		X:           append([]float64(nil), sim[0]...),
		Fun:         floats.Min(fsim),
		Iterations:  iterations,
		Evaluations: nfev,
	}
	switch {
	case nfev >= maxFev:
		res.Status = StatusMaxEvaluations
		res.Message = "Maximum number of function evaluations has been exceeded."
	case iterations >= maxIter:
		res.Status = StatusMaxIterations
		res.Message = "Maximum number of iterations has been exceeded."
	default:
		res.Status = StatusConverged
		res.Converged = true
		res.Message = "Optimization terminated successfully."
	}

	return res.X, res
}

// spread is the largest coordinate distance of any vertex from the best one.
func spread(sim [][]float64) float64 {
	var m float64
	for _, v := range sim[1:] {
		for i, c := range v {
			m = math.Max(m, math.Abs(c-sim[0][i]))
		}
	}
	return m
}

func fspread(fsim []float64) float64 {
	var m float64
	for _, v := range fsim[1:] {
		m = math.Max(m, math.Abs(fsim[0]-v))
	}
	return m
}

type simplexOrder struct {
	sim  [][]float64
	fsim []float64
}

func (o *simplexOrder) Len() int           { return len(o.fsim) }
func (o *simplexOrder) Less(i, j int) bool { return o.fsim[i] < o.fsim[j] }
func (o *simplexOrder) Swap(i, j int) {
	o.fsim[i], o.fsim[j] = o.fsim[j], o.fsim[i]
	o.sim[i], o.sim[j] = o.sim[j], o.sim[i]
}
