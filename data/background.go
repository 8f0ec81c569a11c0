// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

type BackgroundKind int

const (
	// BackgroundNone estimates a baseline from the top rows of each image.
	BackgroundNone BackgroundKind = iota
	// BackgroundBaseline subtracts a constant.
	BackgroundBaseline
	// BackgroundDark subtracts a dark frame.
	BackgroundDark
)

func (k BackgroundKind) String() string {
	switch k {
	case BackgroundNone:
		return "none"
	case BackgroundBaseline:
		return "baseline"
	case BackgroundDark:
		return "dark"
	}
	return fmt.Sprintf("BackgroundKind(%d)", int(k))
}

// Background is shared read-only by every image of a reduction.
type Background struct {
	Kind     BackgroundKind
	Baseline float64
	Dark     *mat.Dense

	// AcquisitionTime rescales the dark frame by exposure/AcquisitionTime
	// when positive.
	AcquisitionTime float64
	// ForceZero additionally removes the estimated baseline after dark
	// frame subtraction.
	ForceZero bool

	Smoothing      bool
	SmoothingWidth float64

	// AllowShapeFallback subtracts the estimated baseline instead of
	// failing when the dark frame shape differs from the image.
	AllowShapeFallback bool
}

// BackgroundFromParams builds the background for modes that need no dark
// frames. Dark mode frames are added with AccumulateDark.
func BackgroundFromParams(p BackgroundParams) *Background {
	bg := &Background{
		ForceZero:          p.ForceZero,
		Smoothing:          p.Smoothing,
		SmoothingWidth:     p.SmoothingWidth,
		AllowShapeFallback: p.AllowShapeFallback,
	}
	switch p.Mode {
	case "baseline":
		bg.Kind = BackgroundBaseline
		bg.Baseline = p.Baseline
	case "dark":
		bg.Kind = BackgroundDark
	}
	return bg
}

type DarkMethod int

const (
	DarkAverage DarkMethod = iota
	DarkSum
	// DarkSumRescaled sums the dark images and sets the acquisition time
	// to the summed exposure so the sum is rescaled to each image.
	DarkSumRescaled
)

func ParseDarkMethod(s string) (DarkMethod, error) {
	switch s {
	case "average", "":
		return DarkAverage, nil
	case "sum":
		return DarkSum, nil
	case "sum-rescaled":
		return DarkSumRescaled, nil
	}
	return DarkAverage, fmt.Errorf("unknown dark frame method %q", s)
}

// AccumulateDark combines every image of the dark frames, cropped to roi,
// into the dark frame of bg.
func AccumulateDark(bg *Background, frames []*Frame, method DarkMethod, roi *ROI) error {
	var (
		acc      *mat.Dense
		n        int
		exposure float64
	)
	for _, f := range frames {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("dark frame %v: %w", f.Info.Source, err)
		}
		for i, img := range f.Images {
			cropped := Crop(img, roi)
			if acc == nil {
				acc = mat.DenseCopyOf(cropped)
			} else {
				ar, ac := acc.Dims()
				if r, c := cropped.Dims(); r != ar || c != ac {
					return fmt.Errorf("dark frame %v image %d: %w", f.Info.Source, i, ErrFrameShape)
				}
				acc.Add(acc, cropped)
			}
			n++
			exposure += f.Info.Exposure[i]
		}
	}
	if acc == nil {
		return ErrEmptyFrame
	}

	bg.Kind = BackgroundDark
	bg.AcquisitionTime = 0
	switch method {
	case DarkAverage:
		acc.Scale(1/float64(n), acc)
	case DarkSumRescaled:
		bg.AcquisitionTime = exposure
	}
	bg.Dark = acc
	return nil
}
