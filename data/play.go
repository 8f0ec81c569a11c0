// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"math"
	"time"
)

// Player releases slices at the pace they were acquired, taking each
// image's exposure as its acquisition time.
type Player struct {
	Speed float64
}

func (p *Player) Play(input <-chan *Slice, output chan<- *Slice) {
	if p.Speed == 0.0 {
		p.Speed = 1.0
	}
	durationScale := 1.0 / p.Speed

	start := time.Now()
	var elapsed float64
	for slice := range input {
		if slice.Exposure > 0 && !math.IsInf(slice.Exposure, 0) {
			elapsed += durationScale * slice.Exposure
		}
		relTime := time.Duration(elapsed * float64(time.Second))
		time.Sleep(time.Until(start.Add(relTime)))

		output <- slice
	}
}
