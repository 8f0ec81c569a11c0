// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package shows

import (
	"bytes"
	"strconv"
	"time"

	"github.com/rditech/rixs-toolbox/data"
	"github.com/rditech/rixs-toolbox/live/message"
	"github.com/rditech/rixs-toolbox/numeric"
	rixsplot "github.com/rditech/rixs-toolbox/plot"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
)

// MapSample is a spectrum taken at scan coordinate Q.
type MapSample struct {
	Q    float64
	X, Y []float64
}

type mapCurve struct {
	x, sum []float64
	n      int
}

// Map assembles spectra into an intensity map along a scan. Spectra taken
// at the same coordinate are averaged.
type Map struct {
	OversampleQ int
	Method      numeric.GridMethod
	QLabel      string
	XLabel      string

	curves map[float64]*mapCurve

	framer
}

func NewMap(period time.Duration, qLabel, xLabel string) *Map {
	s := &Map{
		OversampleQ: data.DefaultOversampleQ,
		QLabel:      qLabel,
		XLabel:      xLabel,
	}
	s.FramePeriod = period
	return s
}

func (s *Map) Execute(cmd *message.Cmd) error {
	s.Lock()
	defer s.Unlock()

	if cmd.Command != "set params" {
		return nil
	}
	for param, value := range cmd.Metadata {
		switch param {
		case "reset":
			s.curves = nil
		case "oversample":
			n, err := strconv.Atoi(value)
			if err == nil && n > 0 {
				s.OversampleQ = n
			}
		case "method":
			if method, err := numeric.ParseGridMethod(value); err == nil {
				s.Method = method
			}
		}
	}
	return nil
}

func (s *Map) AddSample(vi interface{}) {
	v, ok := vi.(*MapSample)
	if !ok || len(v.X) == 0 || len(v.X) != len(v.Y) {
		return
	}

	s.Lock()
	defer s.Unlock()

	if s.curves == nil {
		s.curves = make(map[float64]*mapCurve)
	}
	c := s.curves[v.Q]
	if c == nil || len(c.x) != len(v.X) {
		c = &mapCurve{
			x:   append([]float64(nil), v.X...),
			sum: make([]float64, len(v.Y)),
		}
		s.curves[v.Q] = c
	}
	floats.Add(c.sum, v.Y)
	c.n++

	if s.expired() {
		go s.updateFrame(true)
	}
}

// Spectra returns the averaged spectra ordered by scan coordinate.
func (s *Map) Spectra() []numeric.Curve {
	s.RLock()
	defer s.RUnlock()
	return s.spectra()
}

func (s *Map) spectra() []numeric.Curve {
	qs := maps.Keys(s.curves)
	slices.Sort(qs)
	spectra := make([]numeric.Curve, len(qs))
	for i, q := range qs {
		c := s.curves[q]
		y := make([]float64, len(c.sum))
		floats.ScaleTo(y, 1/float64(c.n), c.sum)
		spectra[i] = numeric.Curve{Q: q, X: c.x, Y: y}
	}
	return spectra
}

func (s *Map) updateFrame(doLock bool) {
	if doLock {
		s.Lock()
		defer s.Unlock()
	}

	var payload []byte
	if len(s.curves) > 0 {
		m, err := data.BuildMap(s.spectra(), s.OversampleQ, s.Method)
		if err == nil {
			buf := &bytes.Buffer{}
			if rixsplot.MapPNG(buf, m, "", s.QLabel, s.XLabel) == nil {
				payload = buf.Bytes()
			}
		}
	}

	s.setFrame("Map", payload, map[string]string{
		"is png":     "true",
		"reset":      "",
		"spectra":    strconv.Itoa(len(s.curves)),
		"oversample": strconv.Itoa(s.OversampleQ),
		"method":     s.Method.String(),
	})
}

func (s *Map) UpdateFrame() {
	s.updateFrame(true)
}
