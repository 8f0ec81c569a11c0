// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package shows

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rditech/rixs-toolbox/live/message"
	rixsplot "github.com/rditech/rixs-toolbox/plot"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

type Show interface {
	Frame() (*message.Msg, uint64)
	UpdateFrame()
	UpdateFrameCount()
	AddSample(interface{})
}

// Size of rendered frames.
var (
	FrameWidth  = 4 * vg.Inch
	FrameHeight = 2.5 * vg.Inch
)

// framer holds the most recent rendered frame of a show. A new frame is
// rendered on the first sample after FramePeriod has passed.
type framer struct {
	FramePeriod time.Duration

	frame        *message.Msg
	frameCount   uint64
	frameExpired bool

	sync.RWMutex
}

func (f *framer) Frame() (*message.Msg, uint64) {
	f.RLock()
	defer f.RUnlock()

	return f.frame, f.frameCount
}

func (f *framer) UpdateFrameCount() {
	f.Lock()
	defer f.Unlock()
	f.frameCount++
}

// expired reports whether a new frame is due and clears the flag. The lock
// must be held.
func (f *framer) expired() bool {
	if f.frameExpired {
		f.frameExpired = false
		return true
	}
	return false
}

// setFrame stores a rendered frame. The lock must be held.
func (f *framer) setFrame(showType string, payload []byte, meta map[string]string) {
	f.frame = &message.Msg{
		Metadata: meta,
		Payload:  payload,
	}
	if f.frame.Metadata == nil {
		f.frame.Metadata = make(map[string]string)
	}
	f.frame.Metadata["show type"] = showType
	f.frameCount++

	period := f.FramePeriod
	go func() {
		time.Sleep(period)
		f.Lock()
		defer f.Unlock()
		f.frameExpired = true
	}()
}

func parseBool(value string) bool {
	return strings.ToLower(value) != "false"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}

func setLogScale(axis *plot.Axis, on bool) {
	if on {
		axis.Scale, axis.Tick.Marker = rixsplot.LogScale()
	} else {
		axis.Tick.Marker = plot.DefaultTicks{}
		axis.Scale = plot.LinearScale{}
	}
}

func isLogScale(axis *plot.Axis) string {
	if _, ok := axis.Scale.(plot.LinearScale); ok {
		return "false"
	}
	return "true"
}
