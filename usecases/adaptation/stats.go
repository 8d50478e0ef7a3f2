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

package adaptation

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/tiedstate/adapters/repos/acousticmodel"
	"github.com/weaviate/tiedstate/entities/acoustic"
	"github.com/weaviate/tiedstate/usecases/monitoring"
)

// minPosterior drops component posteriors too small to move the
// accumulators.
const minPosterior = 1e-10

// Stats accumulates the MLLR sufficient statistics: per regression
// class c and feature dimension i, a (d+1)x(d+1) outer-product
// accumulator regLs[c][i] and a (d+1) vector accumulator regRs[c][i].
// Accumulators grow monotonically across frames and utterances until
// Reset. A Stats instance is driven by a single goroutine; callers
// feeding it from several decoders must serialize.
type Stats struct {
	store   *acousticmodel.Store
	classes *RegressionClasses
	logger  logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics

	d int // feature dimension
	g int // gaussians per senone

	regLs [][][][]float64
	regRs [][][]float64

	frames     int
	utterances int
	state      State
}

// NewStats prepares zeroed accumulators for the given clustering. The
// metrics argument may be nil. Only single-stream models are
// supported; multi-stream layouts interleave streams in the mean pool
// and have no defined regression-class geometry here.
func NewStats(store *acousticmodel.Store, classes *RegressionClasses,
	logger logrus.FieldLogger, metrics *monitoring.PrometheusMetrics,
) (*Stats, error) {
	if store.NumStreams() != 1 {
		return nil, errors.Errorf(
			"mllr statistics require a single-stream model, got %d streams",
			store.NumStreams())
	}
	if classes.NumGaussians() != store.MeansPool().Len() {
		return nil, errors.Errorf(
			"clustering covers %d gaussians, model has %d",
			classes.NumGaussians(), store.MeansPool().Len())
	}

	s := &Stats{
		store:   store,
		classes: classes,
		logger:  logger,
		metrics: metrics,
		d:       store.VectorLengths()[0],
		g:       store.NumGaussiansPerSenone(),
	}
	s.allocate()
	return s, nil
}

func (s *Stats) allocate() {
	k := s.classes.K()
	s.regLs = make([][][][]float64, k)
	s.regRs = make([][][]float64, k)
	for c := 0; c < k; c++ {
		s.regLs[c] = make([][][]float64, s.d)
		s.regRs[c] = make([][]float64, s.d)
		for i := 0; i < s.d; i++ {
			s.regLs[c][i] = make([][]float64, s.d+1)
			for j := range s.regLs[c][i] {
				s.regLs[c][i][j] = make([]float64, s.d+1)
			}
			s.regRs[c][i] = make([]float64, s.d+1)
		}
	}
}

// Collect folds one decoded result's token timeline into the
// accumulators. Frames without features and senones that are not
// Gaussian mixtures are skipped.
func (s *Stats) Collect(result *Result) error {
	if result == nil {
		return errors.New("collect: nil result")
	}
	if s.state == StateEmpty {
		s.state = StateCollecting
	}

	collected := 0
	for _, token := range result.Tokens {
		if len(token.Feature) == 0 {
			continue
		}
		if len(token.Feature) != s.d {
			return errors.Errorf(
				"collect: feature dimension %d does not match model dimension %d",
				len(token.Feature), s.d)
		}
		if token.SenoneID < 0 || token.SenoneID >= s.store.SenonePool().Len() {
			return errors.Errorf("collect: senone id %d out of range",
				token.SenoneID)
		}

		mixture, ok := s.store.SenonePool().Get(token.SenoneID).(*acoustic.GaussianMixture)
		if !ok {
			continue
		}

		s.collectFrame(token.SenoneID, mixture, token.Feature)
		collected++
	}

	s.frames += collected
	s.utterances++
	s.metrics.AddCollectedFrames(collected)

	s.logger.WithFields(logrus.Fields{
		"action": "mllr_collect",
		"frames": collected,
	}).Debug("collected utterance statistics")

	return nil
}

func (s *Stats) collectFrame(senoneID int, mixture *acoustic.GaussianMixture,
	feature []float32,
) {
	posteriors := mixture.ComponentPosteriors(feature)

	// xi is the component mean extended by the affine constant,
	// [mu; 1], so the solved rows map extended means onto observed
	// features.
	xi := make([]float64, s.d+1)

	for k, gamma := range posteriors {
		if gamma < minPosterior {
			continue
		}
		component := mixture.Component(k)
		mean := component.Mean()
		variance := component.Variance()
		class := s.classes.Class(senoneID*s.g + k)

		for i, v := range mean {
			xi[i] = float64(v)
		}
		xi[s.d] = 1

		regL := s.regLs[class]
		regR := s.regRs[class]
		for i := 0; i < s.d; i++ {
			w := float64(gamma) / float64(variance[i])
			wObs := w * float64(feature[i])
			li := regL[i]
			ri := regR[i]
			for j := 0; j <= s.d; j++ {
				wxj := w * xi[j]
				ri[j] += wObs * xi[j]
				lij := li[j]
				for m := 0; m <= s.d; m++ {
					lij[m] += wxj * xi[m]
				}
			}
		}
	}
}

// Reset zeroes all accumulators and counters, returning the lifecycle
// to its empty state. Never call it mid-utterance.
func (s *Stats) Reset() {
	s.allocate()
	s.frames = 0
	s.utterances = 0
	s.state = StateEmpty
}

// RegLs returns the outer-product accumulators, indexed
// [class][dimension][d+1][d+1]. The solver reads them in place;
// callers must not modify them.
func (s *Stats) RegLs() [][][][]float64 {
	return s.regLs
}

// RegRs returns the vector accumulators, indexed
// [class][dimension][d+1].
func (s *Stats) RegRs() [][][]float64 {
	return s.regRs
}

func (s *Stats) K() int {
	return s.classes.K()
}

// Dimension returns the feature dimension d.
func (s *Stats) Dimension() int {
	return s.d
}

func (s *Stats) Frames() int {
	return s.frames
}

func (s *Stats) Utterances() int {
	return s.utterances
}

func (s *Stats) State() State {
	return s.state
}
