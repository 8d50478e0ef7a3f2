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

package acousticmodel

import (
	"github.com/sirupsen/logrus"

	"github.com/weaviate/tiedstate/entities/acoustic"
	"github.com/weaviate/tiedstate/entities/pool"
)

// Store is the assembled in-memory acoustic model. It is filled by the
// Loader and immutable afterwards, so it may be shared read-only
// across goroutines without synchronization. The Loader never fills
// the four transformation pools, so they are always nil; the
// feature-transform matrix is nil when the model ships without one.
// Every other field is non-nil after a successful load.
type Store struct {
	means          *pool.Pool[[]float32]
	variances      *pool.Pool[[]float32]
	mixtureWeights *pool.Pool[[]float32]
	transitions    *pool.Pool[[][]float32]
	senones        *pool.Pool[acoustic.Senone]

	meanTransformationMatrix     *pool.Pool[[][]float32]
	meanTransformationVector     *pool.Pool[[]float32]
	varianceTransformationMatrix *pool.Pool[[][]float32]
	varianceTransformationVector *pool.Pool[[]float32]
	transformMatrix              [][]float32

	ciUnits     map[string]*acoustic.Unit
	unitManager *acoustic.UnitManager
	hmmManager  *acoustic.HMMManager
	properties  map[string]string

	// vectorLengths holds the per-stream feature dimensions from the
	// means file header, needed again when the adapted means are
	// serialized.
	vectorLengths []int
}

func (s *Store) MeansPool() *pool.Pool[[]float32] {
	return s.means
}

func (s *Store) VariancePool() *pool.Pool[[]float32] {
	return s.variances
}

func (s *Store) MixtureWeightsPool() *pool.Pool[[]float32] {
	return s.mixtureWeights
}

func (s *Store) TransitionsPool() *pool.Pool[[][]float32] {
	return s.transitions
}

func (s *Store) SenonePool() *pool.Pool[acoustic.Senone] {
	return s.senones
}

func (s *Store) MeanTransformationMatrixPool() *pool.Pool[[][]float32] {
	return s.meanTransformationMatrix
}

func (s *Store) MeanTransformationVectorPool() *pool.Pool[[]float32] {
	return s.meanTransformationVector
}

func (s *Store) VarianceTransformationMatrixPool() *pool.Pool[[][]float32] {
	return s.varianceTransformationMatrix
}

func (s *Store) VarianceTransformationVectorPool() *pool.Pool[[]float32] {
	return s.varianceTransformationVector
}

// TransformMatrix returns the optional front-end feature transform,
// nil when the model has none.
func (s *Store) TransformMatrix() [][]float32 {
	return s.transformMatrix
}

func (s *Store) ContextIndependentUnits() map[string]*acoustic.Unit {
	return s.ciUnits
}

func (s *Store) UnitManager() *acoustic.UnitManager {
	return s.unitManager
}

func (s *Store) HMMManager() *acoustic.HMMManager {
	return s.hmmManager
}

// Properties returns the feat.params key-value pairs.
func (s *Store) Properties() map[string]string {
	return s.properties
}

func (s *Store) VectorLengths() []int {
	return s.vectorLengths
}

// NumSenones is a convenience for the senone count all pools agree on.
func (s *Store) NumSenones() int {
	return s.mixtureWeights.Feature(pool.NumSenones, 0)
}

// NumGaussiansPerSenone returns the mixture size G.
func (s *Store) NumGaussiansPerSenone() int {
	return s.mixtureWeights.Feature(pool.NumGaussiansPerState, 0)
}

func (s *Store) NumStreams() int {
	return s.mixtureWeights.Feature(pool.NumStreams, 0)
}

func (s *Store) LogInfo(logger logrus.FieldLogger) {
	s.means.LogInfo(logger)
	s.variances.LogInfo(logger)
	s.mixtureWeights.LogInfo(logger)
	s.transitions.LogInfo(logger)
	s.senones.LogInfo(logger)
	s.hmmManager.LogInfo(logger)
	logger.WithFields(logrus.Fields{
		"action":   "model_stats",
		"ci_units": len(s.ciUnits),
	}).Debug("context independent units loaded")
}
