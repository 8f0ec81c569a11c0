// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package data

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the work of a Reducer. A nil *Metrics records nothing.
type Metrics struct {
	imagesReduced    *prometheus.CounterVec
	spotsFound       prometheus.Counter
	degenerateImages prometheus.Counter
	maskedPixels     prometheus.Counter
	reduceSeconds    prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		imagesReduced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rixs_images_reduced_total",
				Help: "Number of images reduced, by outcome",
			},
			[]string{"outcome"},
		),
		spotsFound: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rixs_spc_spots_total",
				Help: "Number of photon spots found by single photon counting",
			},
		),
		degenerateImages: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rixs_spc_degenerate_images_total",
				Help: "Number of images in which no photon spot was found",
			},
		),
		maskedPixels: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rixs_masked_pixels_total",
				Help: "Number of pixels zeroed by the saturation mask",
			},
		),
		reduceSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rixs_image_reduce_seconds",
				Help:    "Time spent reducing one image",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
	}
}

func (m *Metrics) observe(start time.Time, res *Result, err error) {
	if m == nil {
		return
	}
	m.reduceSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		m.imagesReduced.WithLabelValues("error").Inc()
		return
	}
	m.imagesReduced.WithLabelValues("ok").Inc()
	m.maskedPixels.Add(float64(res.Masked))
	if res.SPC != nil {
		if res.SPC.Degenerate {
			m.degenerateImages.Inc()
		} else {
			m.spotsFound.Add(float64(len(res.SPC.Spots)))
		}
	}
}
