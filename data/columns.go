// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"fmt"
)

// Column names of an extracted spectrum.
const (
	ColPixel         = "Pixel"
	ColRingCurrent   = "Storage ring current / 100mA"
	ColMirrorCurrent = "Mirror current / 1e6"
	ColAcqTime       = "Acquisition time"
	ColElectrons     = "Electrons"
	ColPhotons       = "Photons"
	ColRawSignal     = "Raw signal (ADC counts)"
	ColRawBackground = "Raw background (ADC counts)"
	ColCCDBackground = "CCD background (ADC counts)"
	ColSPCSingle     = "SPC single events"
	ColSPCDouble     = "SPC double events"
	ColSPC           = "SPC"
	ColEnergyLoss    = "Energy loss (eV)"
)

// Columns is an ordered set of equal length named columns.
type Columns struct {
	Keys []string
	Data map[string][]float64
}

func (c *Columns) Set(key string, values []float64) error {
	if c.Data == nil {
		c.Data = make(map[string][]float64)
	}
	if n := c.Len(); len(c.Keys) > 0 && len(values) != n {
		if _, ok := c.Data[key]; !ok || len(c.Keys) > 1 {
			return fmt.Errorf("column %q has %d values, want %d", key, len(values), n)
		}
	}
	if _, ok := c.Data[key]; !ok {
		c.Keys = append(c.Keys, key)
	}
	c.Data[key] = values
	return nil
}

// SetConst sets key to a column repeating v.
func (c *Columns) SetConst(key string, v float64) error {
	values := make([]float64, c.Len())
	for i := range values {
		values[i] = v
	}
	return c.Set(key, values)
}

func (c *Columns) Get(key string) ([]float64, bool) {
	v, ok := c.Data[key]
	return v, ok
}

func (c *Columns) Len() int {
	if len(c.Keys) == 0 {
		return 0
	}
	return len(c.Data[c.Keys[0]])
}

// Calibrate appends the energy loss column computed from the pixel column.
func (c *Columns) Calibrate(zero, dispersion float64) error {
	pixel, ok := c.Get(ColPixel)
	if !ok {
		return fmt.Errorf("cannot calibrate without a %q column", ColPixel)
	}
	return c.Set(ColEnergyLoss, EnergyAxis(pixel, zero, dispersion))
}
