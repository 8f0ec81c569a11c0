// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize"
)

func bowl(center []float64) Objective {
	return func(x []float64) float64 {
		var s float64
		for i, c := range center {
			d := x[i] - c
			s += d * d
		}
		return s
	}
}

func TestMinimizeBowl(t *testing.T) {
	tests := []struct {
		name   string
		center []float64
		start  []float64
	}{
		{"1d", []float64{3}, []float64{0}},
		{"2d", []float64{1.5, -2}, []float64{0, 0}},
		{"3d", []float64{-4, 0.5, 10}, []float64{1, 1, 1}},
		{"start at optimum", []float64{2, 2}, []float64{2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, res := Minimize(bowl(tt.center), tt.start, &SimplexSettings{
				XAbsTol:        1e-6,
				FAbsTol:        1e-10,
				MaxIterations:  200 * len(tt.start) * 5,
				MaxEvaluations: 200 * len(tt.start) * 10,
			})
			require.True(t, res.Converged, res.Message)
			assert.Equal(t, StatusConverged, res.Status)
			assert.LessOrEqual(t, res.Iterations, 200*len(tt.start)*5)
			for i, c := range tt.center {
				assert.InDelta(t, c, x[i], 1e-4)
			}
			assert.Equal(t, x, res.X)
		})
	}
}

func TestMinimizeDefaultsWithinBudget(t *testing.T) {
	center := []float64{0.7, -0.3}
	x, res := Minimize(bowl(center), []float64{0.5, 0.5}, nil)
	require.True(t, res.Converged, res.Message)
	assert.LessOrEqual(t, res.Iterations, 200*len(center))
	assert.LessOrEqual(t, res.Evaluations, 200*len(center))
	for i, c := range center {
		assert.InDelta(t, c, x[i], 1e-2)
	}
}

func TestMinimizeBudgetExhausted(t *testing.T) {
	rosen := func(x []float64) float64 {
		return 100*math.Pow(x[1]-x[0]*x[0], 2) + math.Pow(1-x[0], 2)
	}

	_, res := Minimize(rosen, []float64{-1.2, 1}, &SimplexSettings{MaxEvaluations: 10})
	assert.False(t, res.Converged)
	assert.Equal(t, StatusMaxEvaluations, res.Status)
	assert.GreaterOrEqual(t, res.Evaluations, 10)

	_, res = Minimize(rosen, []float64{-1.2, 1}, &SimplexSettings{MaxIterations: 5})
	assert.False(t, res.Converged)
	assert.Equal(t, StatusMaxIterations, res.Status)
	assert.Equal(t, 5, res.Iterations)
}

// The result must agree with gonum's independent Nelder-Mead.
func TestMinimizeAgreesWithGonum(t *testing.T) {
	rosen := func(x []float64) float64 {
		return 100*math.Pow(x[1]-x[0]*x[0], 2) + math.Pow(1-x[0], 2)
	}

	x, res := Minimize(rosen, []float64{-1.2, 1}, &SimplexSettings{
		XAbsTol:        1e-8,
		FAbsTol:        1e-12,
		MaxEvaluations: 5000,
		MaxIterations:  5000,
	})
	require.True(t, res.Converged, res.Message)

	ref, err := optimize.Minimize(optimize.Problem{Func: rosen}, []float64{-1.2, 1}, nil, &optimize.NelderMead{})
	require.NoError(t, err)

	for i := range x {
		assert.InDelta(t, ref.X[i], x[i], 1e-2)
		assert.InDelta(t, 1.0, x[i], 1e-4)
	}
}
