//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

// Package monitoring exposes prometheus metrics for the model loader
// and the adaptation pipeline. A nil *PrometheusMetrics disables all
// instrumentation, so callers never need to branch.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusMetrics struct {
	ModelLoadDurations  *prometheus.HistogramVec
	PoolSizes           *prometheus.GaugeVec
	UtterancesCollected prometheus.Counter
	FramesCollected     prometheus.Counter
	TransformsSolved    prometheus.Counter
	DegenerateClasses   prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		ModelLoadDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "tiedstate_model_load_durations_ms",
			Help: "Duration of acoustic model file loads in ms",
		}, []string{"file"}),
		PoolSizes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tiedstate_pool_size",
			Help: "Entries per loaded model pool",
		}, []string{"pool"}),
		UtterancesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tiedstate_adaptation_utterances_collected_total",
			Help: "Decoded results folded into the MLLR statistics",
		}),
		FramesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tiedstate_adaptation_frames_collected_total",
			Help: "Frames folded into the MLLR statistics",
		}),
		TransformsSolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tiedstate_adaptation_transforms_solved_total",
			Help: "Completed MLLR transform estimations",
		}),
		DegenerateClasses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tiedstate_adaptation_degenerate_classes",
			Help: "Regression classes that fell back to the identity transform in the last solve",
		}),
	}

	registerer.MustRegister(pm.ModelLoadDurations, pm.PoolSizes,
		pm.UtterancesCollected, pm.FramesCollected, pm.TransformsSolved,
		pm.DegenerateClasses)

	return pm
}

func (pm *PrometheusMetrics) ObserveModelLoad(file string, start time.Time) {
	if pm == nil {
		return
	}
	pm.ModelLoadDurations.With(prometheus.Labels{"file": file}).
		Observe(float64(time.Since(start).Milliseconds()))
}

func (pm *PrometheusMetrics) SetPoolSize(name string, size int) {
	if pm == nil {
		return
	}
	pm.PoolSizes.With(prometheus.Labels{"pool": name}).Set(float64(size))
}

func (pm *PrometheusMetrics) AddCollectedFrames(count int) {
	if pm == nil {
		return
	}
	pm.UtterancesCollected.Inc()
	pm.FramesCollected.Add(float64(count))
}

func (pm *PrometheusMetrics) TransformSolved(degenerateClasses int) {
	if pm == nil {
		return
	}
	pm.TransformsSolved.Inc()
	pm.DegenerateClasses.Set(float64(degenerateClasses))
}
