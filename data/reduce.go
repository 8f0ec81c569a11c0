// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Result is everything reduced from one image of a frame.
type Result struct {
	Source   string
	Frame    int
	Info     *FrameInfo
	Exposure float64
	Columns  *Columns
	SPC      *SPCResult
	Slope    *SlopeFit
	Masked   int
}

// Reducer turns images into spectra. Params and Background are shared
// read-only, so a Reducer may reduce several images concurrently.
type Reducer struct {
	Params     Params
	Background *Background
	Log        *zerolog.Logger
	Metrics    *Metrics
}

func (r *Reducer) logger() zerolog.Logger {
	if r.Log == nil {
		return zerolog.Nop()
	}
	return *r.Log
}

// ReduceSlice runs preprocessing, traditional extraction and the enabled
// optional steps on a single image.
func (r *Reducer) ReduceSlice(s *Slice) (res *Result, err error) {
	start := time.Now()
	log := r.logger().With().Str("source", s.Source).Int("frame", s.Index).Logger()
	defer func() {
		r.Metrics.observe(start, res, err)
	}()

	p := &r.Params
	if err = p.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid parameters")
		return nil, err
	}

	pre, err := Preprocess(s, p, r.Background, log)
	if err != nil {
		var mismatch *ShapeMismatchError
		if errors.As(err, &mismatch) {
			log.Error().Err(err).Msg("background does not fit the image")
		}
		return nil, fmt.Errorf("preprocessing %v frame %d: %w", s.Source, s.Index, err)
	}

	res = &Result{
		Source:   s.Source,
		Frame:    s.Index,
		Info:     s.Info,
		Exposure: s.Exposure,
		Masked:   pre.Masked,
	}
	res.Columns, err = ExtractTraditional(pre, p, r.Background)
	if err != nil {
		return nil, fmt.Errorf("extracting %v frame %d: %w", s.Source, s.Index, err)
	}

	if p.SPC.Enabled {
		res.SPC, err = ExtractSPC(pre, p, log)
		if err != nil {
			return nil, fmt.Errorf("counting photons in %v frame %d: %w", s.Source, s.Index, err)
		}
		if err = res.SPC.AddTo(res.Columns); err != nil {
			return nil, err
		}

		if p.FitSlope && !res.SPC.Degenerate {
			fit, err := FindSlope(res.SPC.Spots)
			switch {
			case err != nil:
				log.Warn().Err(err).Msg("slope not fitted")
			case !fit.Result.Converged:
				log.Warn().Str("status", fit.Result.Message).Float64("slope", fit.Slope).Msg("slope fit did not converge")
				res.Slope = &fit
			default:
				res.Slope = &fit
			}
		}
	}

	if p.Dispersion != 0 {
		if err = res.Columns.Calibrate(p.EnergyZero, p.Dispersion); err != nil {
			return nil, err
		}
	}

	ev := log.Info().
		Int("points", res.Columns.Len()).
		Int("masked", res.Masked)
	if res.SPC != nil {
		ev = ev.Int("spots", len(res.SPC.Spots))
	}
	ev.Dur("elapsed", time.Since(start)).Msg("image reduced")

	return res, nil
}

// Reduce reduces every image of f in order. It stops between images once
// ctx is done.
func (r *Reducer) Reduce(ctx context.Context, f *Frame) ([]*Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := r.Params.Validate(); err != nil {
		log := r.logger()
		log.Error().Err(err).Msg("invalid parameters")
		return nil, err
	}

	results := make([]*Result, 0, len(f.Images))
	for _, s := range f.Slices() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.ReduceSlice(s)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
