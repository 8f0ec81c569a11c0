// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DefaultEnergy is the incident photon energy in eV assumed when a frame
// does not carry one.
const DefaultEnergy = 930.0

// Counter names recognized for the beam intensity columns.
const (
	CounterRingCurrent   = "srcur"
	CounterMirrorCurrent = "mir"
)

type Motor struct {
	Name  string
	Value float64
}

// FrameInfo is the typed metadata read alongside the frame images. Energy
// is optional; Exposure holds one entry per image.
type FrameInfo struct {
	Source   string
	Beamline string
	Date     string
	Energy   float64
	Exposure []float64
	Motors   []Motor
	Counters map[string]float64
}

// PhotonEnergy returns the incident energy, or DefaultEnergy when unset.
func (i *FrameInfo) PhotonEnergy() float64 {
	if i == nil || i.Energy <= 0 {
		return DefaultEnergy
	}
	return i.Energy
}

func (i *FrameInfo) Motor(name string) (float64, bool) {
	if i == nil {
		return 0, false
	}
	for _, m := range i.Motors {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}

func (i *FrameInfo) Counter(name string) (float64, bool) {
	if i == nil || i.Counters == nil {
		return 0, false
	}
	v, ok := i.Counters[name]
	return v, ok
}

// Frame is one detector readout: a stack of equally shaped images and
// their metadata. Frames are not modified after loading.
type Frame struct {
	Images []*mat.Dense
	Info   FrameInfo
}

func (f *Frame) Validate() error {
	if f == nil || len(f.Images) == 0 {
		return ErrEmptyFrame
	}
	r, c := f.Images[0].Dims()
	for i, img := range f.Images[1:] {
		if ir, ic := img.Dims(); ir != r || ic != c {
			return fmt.Errorf("image %d is %vx%v, want %vx%v: %w", i+1, ir, ic, r, c, ErrFrameShape)
		}
	}
	if len(f.Info.Exposure) != len(f.Images) {
		return fmt.Errorf("%d exposures for %d images: %w", len(f.Info.Exposure), len(f.Images), ErrExposureCount)
	}
	return nil
}

func (f *Frame) Dims() (rows, cols int) {
	if f == nil || len(f.Images) == 0 {
		return 0, 0
	}
	return f.Images[0].Dims()
}

// Slices splits the frame into one unit of work per image.
func (f *Frame) Slices() []*Slice {
	slices := make([]*Slice, len(f.Images))
	for i, img := range f.Images {
		s := &Slice{
			Source: f.Info.Source,
			Index:  i,
			Image:  img,
			Info:   &f.Info,
		}
		if i < len(f.Info.Exposure) {
			s.Exposure = f.Info.Exposure[i]
		}
		slices[i] = s
	}
	return slices
}

// Slice is a single image of a frame travelling through the op pipeline,
// together with what has been computed from it so far.
type Slice struct {
	Source   string
	Index    int
	Image    *mat.Dense
	Exposure float64
	Info     *FrameInfo

	// Metadata holds the stream metadata of a slice decoded from a
	// reduced event stream.
	Metadata map[string][]byte

	Result *Result
	Err    error
}
