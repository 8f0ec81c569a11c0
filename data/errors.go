// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFrame    = errors.New("data: frame has no images")
	ErrFrameShape    = errors.New("data: frame images differ in shape")
	ErrExposureCount = errors.New("data: exposure count does not match frame count")
	ErrNoSpectra     = errors.New("data: no spectra to combine")
)

// ConfigurationError reports a parameter that cannot produce a spectrum.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("data: invalid %v: %v", e.Field, e.Reason)
}

// ShapeMismatchError reports a dark frame whose shape differs from the
// image it should be subtracted from.
type ShapeMismatchError struct {
	Image      [2]int
	Background [2]int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("data: background shape %vx%v does not match image shape %vx%v",
		e.Background[0], e.Background[1], e.Image[0], e.Image[1])
}
